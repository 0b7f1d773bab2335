//go:build azure

// Package assets, Azure Blob backend: mirrors the shared-key credential
// setup the teacher's own azure.go backend provider uses.
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package assets

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

const (
	azAccNameEnvVar = "AZURE_STORAGE_ACCOUNT"
	azAccKeyEnvVar  = "AZURE_STORAGE_KEY"
)

type azureBackend struct {
	client *azblob.Client
	cont   string
	prefix string
}

// NewAzureStore builds a caching asset store backed by an Azure Blob
// container, authenticated via the same AZURE_STORAGE_ACCOUNT /
// AZURE_STORAGE_KEY environment pair the teacher's backend provider reads.
func NewAzureStore(container, prefix, cacheDir string) (*CachingStore, error) {
	acc, key := os.Getenv(azAccNameEnvVar), os.Getenv(azAccKeyEnvVar)
	cred, err := azblob.NewSharedKeyCredential(acc, key)
	if err != nil {
		return nil, err
	}
	client, err := azblob.NewClientWithSharedKeyCredential("https://"+acc+".blob.core.windows.net/", cred, nil)
	if err != nil {
		return nil, err
	}
	b := &azureBackend{client: client, cont: container, prefix: strings.Trim(prefix, "/")}
	return NewCachingStore(b, cacheDir), nil
}

func (b *azureBackend) id() string { return "azure:" + b.cont + "/" + b.prefix }

func (b *azureBackend) key(path string) string {
	if b.prefix == "" {
		return path
	}
	return b.prefix + "/" + path
}

func (b *azureBackend) fetch(ctx context.Context, path string) ([]byte, error) {
	resp, err := b.client.DownloadStream(ctx, b.cont, b.key(path), nil)
	if err != nil {
		return nil, err
	}
	body := resp.Body
	defer body.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *azureBackend) stat(ctx context.Context, path string) (int64, bool, error) {
	props, err := b.client.ServiceClient().NewContainerClient(b.cont).NewBlobClient(b.key(path)).GetProperties(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	var size int64
	if props.ContentLength != nil {
		size = *props.ContentLength
	}
	return size, false, nil
}

func (b *azureBackend) list(ctx context.Context, dir string) ([]string, error) {
	prefix := b.key(dir)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	cc := b.client.ServiceClient().NewContainerClient(b.cont)
	pager := cc.NewListBlobsHierarchyPager("/", &container.ListBlobsHierarchyOptions{Prefix: &prefix})
	var names []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range page.Segment.BlobPrefixes {
			names = append(names, strings.TrimSuffix(strings.TrimPrefix(*p.Name, prefix), "/"))
		}
		for _, it := range page.Segment.BlobItems {
			names = append(names, strings.TrimPrefix(*it.Name, prefix))
		}
	}
	return names, nil
}
