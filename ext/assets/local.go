// Package assets, local backend: bundled-on-disk assets, the spec.md
// default extension-resource store before any remote backend is configured.
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package assets

import (
	"context"
	"os"
	"path/filepath"
)

type localBackend struct {
	root string
}

// NewLocalStore serves a directory of bundled assets as a device.AssetStore,
// wrapped in a CachingStore whose cache lives under root/.cache.
func NewLocalStore(root string) *CachingStore {
	return NewCachingStore(&localBackend{root: root}, filepath.Join(root, ".cache"))
}

func (l *localBackend) id() string { return "local" }

func (l *localBackend) fetch(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(l.root, filepath.FromSlash(path)))
}

func (l *localBackend) stat(_ context.Context, path string) (int64, bool, error) {
	fi, err := os.Stat(filepath.Join(l.root, filepath.FromSlash(path)))
	if err != nil {
		return 0, false, err
	}
	return fi.Size(), fi.IsDir(), nil
}

func (l *localBackend) list(_ context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(l.root, filepath.FromSlash(dir)))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}
