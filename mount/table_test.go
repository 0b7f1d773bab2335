package mount

import (
	"testing"

	"github.com/wasi-embed/hostrt/device"
	"github.com/wasi-embed/hostrt/guest"
	"github.com/wasi-embed/hostrt/wasi"
)

func newMemMount(t *testing.T, prefix string) (*device.MemFS, *guest.FileDescriptor) {
	t.Helper()
	fs, err := device.NewMemFS()
	if err != nil {
		t.Fatal(err)
	}
	root := &guest.FileDescriptor{
		DeviceID: "memfs", Filetype: wasi.FiletypeDirectory,
		RightsBase: wasi.DirectoryBase, RightsInheriting: wasi.DirectoryInheriting,
	}
	return fs, root
}

func TestCanonicalizeBlocksEscape(t *testing.T) {
	cases := map[string]string{
		"/a/b/../c":     "/a/c",
		"/a/../../b":    "/b",
		"/../../../etc": "/etc",
		"/a/./b":        "/a/b",
		"":              "/",
	}
	for in, want := range cases {
		if got := Canonicalize(in); got != want {
			t.Errorf("Canonicalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTableLongestPrefixMatch(t *testing.T) {
	table := NewTable()
	workspaceFS, workspaceRoot := newMemMount(t, "/workspace")
	extFS, extRoot := newMemMount(t, "/workspace/.ext")
	table.Add("/workspace", workspaceFS, workspaceRoot)
	table.Add("/workspace/.ext", extFS, extRoot)

	e, residual, ok := table.Resolve("/workspace/.ext/plugin.json")
	if !ok {
		t.Fatal("expected a match")
	}
	if e.Prefix != "/workspace/.ext" || residual != "plugin.json" {
		t.Fatalf("expected longest-prefix match on /workspace/.ext, got prefix=%q residual=%q", e.Prefix, residual)
	}

	e, residual, ok = table.Resolve("/workspace/src/main.go")
	if !ok || e.Prefix != "/workspace" || residual != "src/main.go" {
		t.Fatalf("expected /workspace match, got prefix=%q residual=%q ok=%v", e.Prefix, residual, ok)
	}
}

func TestTableResolveMiss(t *testing.T) {
	table := NewTable()
	fs, root := newMemMount(t, "/workspace")
	table.Add("/workspace", fs, root)

	if _, _, ok := table.Resolve("/other/file.txt"); ok {
		t.Fatal("expected no match for an unmounted path")
	}
}

func TestPreOpenAllocatesStartingAtThree(t *testing.T) {
	table := NewTable()
	fs1, root1 := newMemMount(t, "/workspace")
	fs2, root2 := newMemMount(t, "/assets")
	table.Add("/workspace", fs1, root1)
	table.Add("/assets", fs2, root2)

	fdt := guest.NewFDTable()
	table.PreOpen(fdt)

	if root1.FD != 3 || root2.FD != 4 {
		t.Fatalf("expected fds 3,4 in registration order, got %d,%d", root1.FD, root2.FD)
	}

	typ, nameLen, fault := Prestat(fdt, 3)
	if fault != nil {
		t.Fatalf("prestat failed: %v", fault)
	}
	if typ != wasi.PreopentypeDir || nameLen != uint32(len("/workspace")) {
		t.Fatalf("unexpected prestat: type=%v len=%d", typ, nameLen)
	}

	buf := make([]byte, nameLen)
	if fault := PrestatDirName(fdt, 3, buf); fault != nil {
		t.Fatalf("prestat_dir_name failed: %v", fault)
	}
	if string(buf) != "/workspace" {
		t.Fatalf("expected /workspace, got %q", buf)
	}
}

func TestPrestatOnNonPreopenFails(t *testing.T) {
	fdt := guest.NewFDTable()
	fd := fdt.Insert(&guest.FileDescriptor{})
	if _, _, fault := Prestat(fdt, fd); fault == nil || fault.Errno != wasi.ErrnoBadf {
		t.Fatalf("expected badf on a non-preopen fd, got %v", fault)
	}
}
