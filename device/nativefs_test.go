package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wasi-embed/hostrt/guest"
	"github.com/wasi-embed/hostrt/wasi"
)

func nativeRootFD(t *testing.T, dir string) *guest.FileDescriptor {
	t.Helper()
	return &guest.FileDescriptor{
		DeviceID: "nativefs", Filetype: wasi.FiletypeDirectory,
		RightsBase: wasi.DirectoryBase, RightsInheriting: wasi.DirectoryInheriting,
		Backend: &dirStream{path: dir},
	}
}

func TestNativeFSCreateWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fs := NewNativeFS()
	root := nativeRootFD(t, dir)

	f, fault := fs.PathOpen(root, "out.txt", wasi.OflagsCreat, wasi.FileBase, wasi.FileInheriting, 0, 0)
	if fault != nil {
		t.Fatalf("path_open failed: %v", fault)
	}
	defer fs.FdClose(f)

	if n, fault := fs.FdWrite(f, []byte("round trip")); fault != nil || n != 10 {
		t.Fatalf("fd_write failed: %d %v", n, fault)
	}
	if fault := fs.FdSync(f); fault != nil {
		t.Fatalf("fd_sync failed: %v", fault)
	}

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatalf("reading back via os: %v", err)
	}
	if string(data) != "round trip" {
		t.Fatalf("content mismatch: %q", data)
	}
}

func TestNativeFSPathOpenMissingNoCreat(t *testing.T) {
	dir := t.TempDir()
	fs := NewNativeFS()
	root := nativeRootFD(t, dir)

	_, fault := fs.PathOpen(root, "missing.txt", 0, wasi.FileBase, 0, 0, 0)
	if fault == nil || fault.Errno != wasi.ErrnoNoent {
		t.Fatalf("expected noent, got %v", fault)
	}
}

func TestNativeFSReaddirListsEntries(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	fs := NewNativeFS()
	root := nativeRootFD(t, dir)
	root.Backend = &dirStream{path: dir}

	entries, fault := fs.FdReaddir(root, 0, 10)
	if fault != nil {
		t.Fatalf("fd_readdir failed: %v", fault)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}
}
