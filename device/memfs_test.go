package device

import (
	"testing"

	"github.com/wasi-embed/hostrt/guest"
	"github.com/wasi-embed/hostrt/wasi"
)

func rootDirFD(fs *MemFS) *guest.FileDescriptor {
	return &guest.FileDescriptor{
		DeviceID: "memfs", Filetype: wasi.FiletypeDirectory,
		RightsBase: wasi.DirectoryBase, RightsInheriting: wasi.DirectoryInheriting,
		Backend: &memHandle{path: "", isDir: true},
	}
}

func TestMemFSCreateWriteRead(t *testing.T) {
	fs, err := NewMemFS()
	if err != nil {
		t.Fatal(err)
	}
	root := rootDirFD(fs)

	f, fault := fs.PathOpen(root, "hello.txt", wasi.OflagsCreat, wasi.FileBase, wasi.FileInheriting, 0, 0)
	if fault != nil {
		t.Fatalf("path_open failed: %v", fault)
	}
	if n, fault := fs.FdWrite(f, []byte("hi there")); fault != nil || n != 8 {
		t.Fatalf("fd_write failed: %d %v", n, fault)
	}
	if _, fault := fs.FdSeek(f, 0, wasi.WhenceSet); fault != nil {
		t.Fatalf("fd_seek failed: %v", fault)
	}
	buf := make([]byte, 32)
	n, fault := fs.FdRead(f, buf)
	if fault != nil {
		t.Fatalf("fd_read failed: %v", fault)
	}
	if string(buf[:n]) != "hi there" {
		t.Fatalf("round trip mismatch: %q", buf[:n])
	}
}

func TestMemFSPathOpenExclOnExisting(t *testing.T) {
	fs, _ := NewMemFS()
	root := rootDirFD(fs)
	if _, fault := fs.PathOpen(root, "a", wasi.OflagsCreat, wasi.FileBase, 0, 0, 0); fault != nil {
		t.Fatalf("unexpected fault: %v", fault)
	}
	_, fault := fs.PathOpen(root, "a", wasi.OflagsCreat|wasi.OflagsExcl, wasi.FileBase, 0, 0, 0)
	if fault == nil || fault.Errno != wasi.ErrnoExist {
		t.Fatalf("expected exist error, got %v", fault)
	}
}

func TestMemFSReaddirListsChildren(t *testing.T) {
	fs, _ := NewMemFS()
	root := rootDirFD(fs)
	for _, name := range []string{"a", "b", "c"} {
		if _, fault := fs.PathOpen(root, name, wasi.OflagsCreat, wasi.FileBase, 0, 0, 0); fault != nil {
			t.Fatalf("path_open %s failed: %v", name, fault)
		}
	}
	entries, fault := fs.FdReaddir(root, 0, 10)
	if fault != nil {
		t.Fatalf("fd_readdir failed: %v", fault)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(entries), entries)
	}
}

func TestMemFSRemoveNonEmptyDirFails(t *testing.T) {
	fs, _ := NewMemFS()
	root := rootDirFD(fs)
	if fault := fs.PathCreateDirectory(root, "sub"); fault != nil {
		t.Fatalf("mkdir failed: %v", fault)
	}
	if _, fault := fs.PathOpen(root, "sub/file", wasi.OflagsCreat, wasi.FileBase, 0, 0, 0); fault != nil {
		t.Fatalf("nested create failed: %v", fault)
	}
	if fault := fs.PathRemoveDirectory(root, "sub"); fault == nil || fault.Errno != wasi.ErrnoNotempty {
		t.Fatalf("expected notempty, got %v", fault)
	}
}
