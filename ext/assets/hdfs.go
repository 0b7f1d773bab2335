//go:build hdfs

// Package assets, HDFS backend: a read-only mount against an HDFS cluster,
// for enterprise/offline deployments staging large shared corpora for guest
// consumption through the ordinary WASI path_open/fd_pread surface.
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package assets

import (
	"context"
	"io"
	"os"
	"path"
	"strings"

	"github.com/colinmarc/hdfs/v2"
)

type hdfsBackend struct {
	client *hdfs.Client
	root   string
}

// NewHDFSStore builds a caching asset store backed by an HDFS cluster
// reachable at namenode, rooted at root within the cluster's namespace.
func NewHDFSStore(namenode, root, cacheDir string) (*CachingStore, error) {
	client, err := hdfs.New(namenode)
	if err != nil {
		return nil, err
	}
	b := &hdfsBackend{client: client, root: strings.TrimSuffix(root, "/")}
	return NewCachingStore(b, cacheDir), nil
}

func (b *hdfsBackend) id() string { return "hdfs:" + b.root }

func (b *hdfsBackend) abs(p string) string { return path.Join(b.root, p) }

func (b *hdfsBackend) fetch(_ context.Context, p string) ([]byte, error) {
	f, err := b.client.Open(b.abs(p))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (b *hdfsBackend) stat(_ context.Context, p string) (int64, bool, error) {
	fi, err := b.client.Stat(b.abs(p))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, os.ErrNotExist
		}
		return 0, false, err
	}
	return fi.Size(), fi.IsDir(), nil
}

func (b *hdfsBackend) list(_ context.Context, dir string) ([]string, error) {
	entries, err := b.client.ReadDir(b.abs(dir))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}
