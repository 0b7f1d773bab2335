//go:build s3

// Package assets, S3 backend: extension assets too large to bundle, fetched
// lazily from an S3 bucket and verified against an AssetDescriptor digest.
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package assets

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type s3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store builds a caching asset store backed by bucket, with every key
// prefixed by prefix. Credentials come from the standard AWS environment
// and config-file chain via config.LoadDefaultConfig.
func NewS3Store(ctx context.Context, bucket, prefix, cacheDir string) (*CachingStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	b := &s3Backend{client: s3.NewFromConfig(cfg), bucket: bucket, prefix: strings.Trim(prefix, "/")}
	return NewCachingStore(b, cacheDir), nil
}

func (b *s3Backend) id() string { return "s3:" + b.bucket + "/" + b.prefix }

func (b *s3Backend) key(path string) string {
	if b.prefix == "" {
		return path
	}
	return b.prefix + "/" + path
}

func (b *s3Backend) fetch(ctx context.Context, path string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(b.key(path))})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (b *s3Backend) stat(ctx context.Context, path string) (int64, bool, error) {
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(b.bucket), Key: aws.String(b.key(path))})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return 0, false, os.ErrNotExist
		}
		return 0, false, err
	}
	return aws.ToInt64(out.ContentLength), false, nil
}

func (b *s3Backend) list(ctx context.Context, dir string) ([]string, error) {
	prefix := b.key(dir)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket), Prefix: aws.String(prefix), Delimiter: aws.String("/"),
	})
	if err != nil {
		return nil, err
	}
	var names []string
	for _, p := range out.CommonPrefixes {
		names = append(names, strings.TrimSuffix(strings.TrimPrefix(aws.ToString(p.Prefix), prefix), "/"))
	}
	for _, o := range out.Contents {
		names = append(names, strings.TrimPrefix(aws.ToString(o.Key), prefix))
	}
	return names, nil
}
