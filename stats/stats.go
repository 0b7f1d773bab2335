// Package stats exposes Prometheus counters and gauges for RPC latency,
// device-driver dispatch, capability-check outcomes, and fd-table
// occupancy (A7).
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry owns every metric this process exports, mirroring the teacher's
// single coreStats tracker rather than scattering package-level globals.
type Registry struct {
	reg *prometheus.Registry

	rpcRequestsTotal    *prometheus.CounterVec
	rpcRequestDuration  *prometheus.HistogramVec
	deviceOpsTotal      *prometheus.CounterVec
	capabilityDenials   *prometheus.CounterVec
	fdTableOpenGauge    *prometheus.GaugeVec
	allocatorPressure   prometheus.Gauge
}

func NewRegistry() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}

	r.rpcRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hostrt", Subsystem: "rpc", Name: "requests_total",
		Help: "RPC requests by method and errno.",
	}, []string{"method", "errno"})

	r.rpcRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hostrt", Subsystem: "rpc", Name: "request_duration_seconds",
		Help:    "RPC request latency by method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	r.deviceOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hostrt", Subsystem: "device", Name: "ops_total",
		Help: "Device driver operations by device id, op, and errno.",
	}, []string{"device", "op", "errno"})

	r.capabilityDenials = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hostrt", Subsystem: "guest", Name: "capability_denials_total",
		Help: "fd table capability checks that failed, by operation.",
	}, []string{"op"})

	r.fdTableOpenGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "hostrt", Subsystem: "guest", Name: "open_descriptors",
		Help: "Live file descriptors by owning device id.",
	}, []string{"device"})

	r.allocatorPressure = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hostrt", Subsystem: "memsys", Name: "free_bytes",
		Help: "Most recently sampled allocator-visible free memory.",
	})

	r.reg.MustRegister(r.rpcRequestsTotal, r.rpcRequestDuration, r.deviceOpsTotal,
		r.capabilityDenials, r.fdTableOpenGauge, r.allocatorPressure)
	return r
}

// Gatherer exposes the underlying prometheus.Registry for an HTTP handler
// (cmd/hostrtd's /metrics endpoint) without leaking mutation access.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// ObserveRequest implements rpc.Metrics: called once per completed
// SendRequest with its method, wall-clock duration, and result errno.
func (r *Registry) ObserveRequest(method string, dur time.Duration, errno int32) {
	r.rpcRequestsTotal.WithLabelValues(method, errnoLabel(errno)).Inc()
	r.rpcRequestDuration.WithLabelValues(method).Observe(dur.Seconds())
}

// ObserveDeviceOp implements the device-dispatch hook stats.InstrumentingDriver
// calls after every driver method.
func (r *Registry) ObserveDeviceOp(device, op, errno string) {
	r.deviceOpsTotal.WithLabelValues(device, op, errno).Inc()
}

// ObserveCapabilityDenial records a failed AssertBaseRights/
// AssertInheritingRights check.
func (r *Registry) ObserveCapabilityDenial(op string) {
	r.capabilityDenials.WithLabelValues(op).Inc()
}

// SetOpenDescriptors replaces the open-descriptor gauge for device with n.
func (r *Registry) SetOpenDescriptors(device string, n int) {
	r.fdTableOpenGauge.WithLabelValues(device).Set(float64(n))
}

// SetFreeBytes records the most recent allocator pressure sample.
func (r *Registry) SetFreeBytes(free int64) {
	r.allocatorPressure.Set(float64(free))
}

func errnoLabel(errno int32) string {
	if errno == 0 {
		return "success"
	}
	return "error"
}
