// Package assets implements the remote-backed extension-resource asset
// stores (A8): pluggable backends over S3, Azure Blob, GCS, and HDFS, plus
// the local bundled-asset default, all fronted by a caching layer that
// verifies fetched content against a BLAKE2b-256 digest before handing it to
// the extension-resource device driver (C9).
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package assets

import (
	"context"

	"github.com/wasi-embed/hostrt/cmn/cos"
)

// AssetDescriptor identifies one cached asset: which remote object it came
// from, its declared size, and the digest CachingStore verifies a fetch
// against before serving it to a guest.
type AssetDescriptor struct {
	Digest  cos.Cksum
	Size    int64
	Backend string
}

// remoteBackend is the minimal surface every cloud asset backend implements.
// CachingStore wraps one of these to produce the device.AssetStore the
// extension-resource driver consumes.
type remoteBackend interface {
	id() string
	fetch(ctx context.Context, path string) ([]byte, error)
	stat(ctx context.Context, path string) (size int64, isDir bool, err error)
	list(ctx context.Context, dir string) ([]string, error)
}
