/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/wasi-embed/hostrt/cmn/cos"
	"github.com/wasi-embed/hostrt/cmn/nlog"
	"github.com/wasi-embed/hostrt/device"
)

// CachingStore fronts a remoteBackend with a local cache directory: the
// first Open for a path fetches the full object, verifies it against a
// known AssetDescriptor (when one is registered) or records a fresh one,
// writes the bytes to disk once, and every later Open just opens the cache
// file. It implements device.AssetStore.
type CachingStore struct {
	backend  remoteBackend
	cacheDir string

	mu          sync.Mutex
	descriptors map[string]AssetDescriptor
}

func NewCachingStore(backend remoteBackend, cacheDir string) *CachingStore {
	return &CachingStore{backend: backend, cacheDir: cacheDir, descriptors: make(map[string]AssetDescriptor)}
}

// Describe registers a known-good digest for path, checked on the next
// fetch. Callers that ship a manifest alongside the extension use this to
// pin expected content; paths with no registered descriptor are trusted on
// first fetch instead.
func (c *CachingStore) Describe(path string, d AssetDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.descriptors[path] = d
}

func (c *CachingStore) cachePath(path string) string {
	return filepath.Join(c.cacheDir, c.backend.id(), filepath.FromSlash(path))
}

func (c *CachingStore) Open(path string) (io.ReadCloser, int64, error) {
	cp := c.cachePath(path)
	if fi, err := os.Stat(cp); err == nil {
		f, err := os.Open(cp)
		if err != nil {
			return nil, 0, err
		}
		return f, fi.Size(), nil
	}

	data, err := c.backend.fetch(context.Background(), path)
	if err != nil {
		return nil, 0, fmt.Errorf("assets: fetch %s/%s: %w", c.backend.id(), path, err)
	}

	digest := cos.NewCksumBLAKE2b256(data)
	c.mu.Lock()
	want, known := c.descriptors[path]
	if !known {
		c.descriptors[path] = AssetDescriptor{Digest: digest, Size: int64(len(data)), Backend: c.backend.id()}
	}
	c.mu.Unlock()
	if known && !want.Digest.Equal(digest) {
		return nil, 0, fmt.Errorf("assets: digest mismatch for %s: want %s, got %s", path, want.Digest, digest)
	}

	if err := os.MkdirAll(filepath.Dir(cp), 0o755); err != nil {
		return nil, 0, err
	}
	if err := os.WriteFile(cp, data, 0o644); err != nil {
		nlog.Warningf("assets: caching %s failed: %v", path, err)
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (c *CachingStore) Stat(path string) (int64, bool, error) {
	return c.backend.stat(context.Background(), path)
}

func (c *CachingStore) List(dir string) ([]string, error) {
	return c.backend.list(context.Background(), dir)
}

var _ device.AssetStore = (*CachingStore)(nil)
