package assets

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/wasi-embed/hostrt/cmn/cos"
)

type fakeBackend struct {
	files map[string][]byte
}

func (f *fakeBackend) id() string { return "fake" }

func (f *fakeBackend) fetch(_ context.Context, path string) ([]byte, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (f *fakeBackend) stat(_ context.Context, path string) (int64, bool, error) {
	data, ok := f.files[path]
	if !ok {
		return 0, false, errors.New("not found")
	}
	return int64(len(data)), false, nil
}

func (f *fakeBackend) list(context.Context, string) ([]string, error) { return nil, nil }

func TestCachingStoreFetchesOnceThenReadsFromDisk(t *testing.T) {
	backend := &fakeBackend{files: map[string][]byte{"model.bin": []byte("weights")}}
	store := NewCachingStore(backend, t.TempDir())

	r, size, err := store.Open("model.bin")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	data, _ := io.ReadAll(r)
	r.Close()
	if string(data) != "weights" || size != 7 {
		t.Fatalf("unexpected content %q size %d", data, size)
	}

	delete(backend.files, "model.bin")
	r, _, err = store.Open("model.bin")
	if err != nil {
		t.Fatalf("second open should hit the cache: %v", err)
	}
	data, _ = io.ReadAll(r)
	r.Close()
	if string(data) != "weights" {
		t.Fatalf("cached content mismatch: %q", data)
	}
}

func TestCachingStoreRejectsDigestMismatch(t *testing.T) {
	backend := &fakeBackend{files: map[string][]byte{"a.txt": []byte("real")}}
	store := NewCachingStore(backend, t.TempDir())
	store.Describe("a.txt", AssetDescriptor{Digest: cos.NewCksumBLAKE2b256([]byte("tampered"))})

	if _, _, err := store.Open("a.txt"); err == nil {
		t.Fatal("expected a digest mismatch error")
	}
}
