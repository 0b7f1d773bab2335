//go:build gcs

// Package assets, GCS backend: a read-only mount over a Google Cloud
// Storage bucket.
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package assets

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

type gcsBackend struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore builds a caching asset store backed by a GCS bucket, using
// Application Default Credentials.
func NewGCSStore(ctx context.Context, bucket, prefix, cacheDir string) (*CachingStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	b := &gcsBackend{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
	return NewCachingStore(b, cacheDir), nil
}

func (b *gcsBackend) id() string { return "gcs:" + b.bucket + "/" + b.prefix }

func (b *gcsBackend) key(path string) string {
	if b.prefix == "" {
		return path
	}
	return b.prefix + "/" + path
}

func (b *gcsBackend) fetch(ctx context.Context, path string) ([]byte, error) {
	r, err := b.client.Bucket(b.bucket).Object(b.key(path)).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *gcsBackend) stat(ctx context.Context, path string) (int64, bool, error) {
	attrs, err := b.client.Bucket(b.bucket).Object(b.key(path)).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return 0, false, os.ErrNotExist
		}
		return 0, false, err
	}
	return attrs.Size, false, nil
}

func (b *gcsBackend) list(ctx context.Context, dir string) ([]string, error) {
	prefix := b.key(dir)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	it := b.client.Bucket(b.bucket).Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		if attrs.Prefix != "" {
			names = append(names, strings.TrimSuffix(strings.TrimPrefix(attrs.Prefix, prefix), "/"))
			continue
		}
		names = append(names, strings.TrimPrefix(attrs.Name, prefix))
	}
	return names, nil
}
