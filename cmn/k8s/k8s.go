// Package k8s provides best-effort Kubernetes environment detection, used to
// size the shared-memory allocator against the pod's cgroup memory limit
// rather than the host's total RAM when the process is containerized.
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package k8s

import (
	"context"
	"os"
	"time"

	"github.com/wasi-embed/hostrt/cmn/nlog"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

const (
	envPodName  = "HOSTNAME"
	envPodNS    = "POD_NAMESPACE"
	nonK8s      = "non-Kubernetes deployment"
	clientTmout = 2 * time.Second
)

var (
	// NodeName is set upon successful in-cluster detection; empty otherwise.
	NodeName string
	// CgroupMemLimit, when positive, is the pod's memory limit in bytes as
	// reported by the API server for the first container of the running pod
	// that declares a memory limit.
	CgroupMemLimit int64
)

// Init attempts in-cluster discovery; always succeeds (falls back silently)
// since the guest/host runtime must work identically outside Kubernetes.
func Init() {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		nlog.Infoln(nonK8s, "(in-cluster config unavailable:", err.Error()+")")
		return
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		nlog.Infoln(nonK8s, "(client-go init failed:", err.Error()+")")
		return
	}
	podName, ns := os.Getenv(envPodName), os.Getenv(envPodNS)
	if podName == "" || ns == "" {
		nlog.Infoln(nonK8s, "(POD_NAMESPACE/HOSTNAME not set)")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), clientTmout)
	defer cancel()
	pod, err := clientset.CoreV1().Pods(ns).Get(ctx, podName, metav1.GetOptions{})
	if err != nil {
		nlog.Errorf("k8s: failed to get pod %q: %v", podName, err)
		return
	}
	NodeName = pod.Spec.NodeName
	CgroupMemLimit = firstContainerMemLimit(pod)
	nlog.Infof("k8s: running on node %q, pod %q, mem-limit=%d", NodeName, podName, CgroupMemLimit)
}

func firstContainerMemLimit(pod *corev1.Pod) int64 {
	for _, c := range pod.Spec.Containers {
		if q, ok := c.Resources.Limits[corev1.ResourceMemory]; ok {
			return q.Value()
		}
	}
	return 0
}

func IsK8s() bool { return NodeName != "" }
