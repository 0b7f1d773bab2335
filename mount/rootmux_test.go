package mount

import (
	"testing"

	"github.com/wasi-embed/hostrt/guest"
	"github.com/wasi-embed/hostrt/wasi"
)

func TestRootMuxDispatchesByLongestPrefix(t *testing.T) {
	table := NewTable()
	workspaceFS, workspaceRoot := newMemMount(t, "/workspace")
	assetsFS, assetsRoot := newMemMount(t, "/assets")
	table.Add("/workspace", workspaceFS, workspaceRoot)
	table.Add("/assets", assetsFS, assetsRoot)

	fdt := guest.NewFDTable()
	table.PreOpen(fdt)

	rm := NewRootMux(table)

	f, fault := rm.PathOpen(workspaceRoot, "/workspace/main.go", wasi.OflagsCreat, wasi.FileBase, 0, 0, 0)
	if fault != nil {
		t.Fatalf("path_open via rootmux failed: %v", fault)
	}
	if n, fault := rm.FdWrite(f, []byte("package main")); fault != nil || n != len("package main") {
		t.Fatalf("fd_write via rootmux failed: %d %v", n, fault)
	}

	other, fault := rm.PathOpen(assetsRoot, "/assets/icon.png", wasi.OflagsCreat, wasi.FileBase, 0, 0, 0)
	if fault != nil {
		t.Fatalf("path_open on second mount failed: %v", fault)
	}
	if other.DeviceID != assetsFS.ID() {
		t.Fatalf("expected device id %q, got %q", assetsFS.ID(), other.DeviceID)
	}
}

func TestRootMuxRejectsCrossDeviceRename(t *testing.T) {
	table := NewTable()
	workspaceFS, workspaceRoot := newMemMount(t, "/workspace")
	assetsFS, assetsRoot := newMemMount(t, "/assets")
	table.Add("/workspace", workspaceFS, workspaceRoot)
	table.Add("/assets", assetsFS, assetsRoot)
	rm := NewRootMux(table)

	if _, fault := rm.PathOpen(workspaceRoot, "/workspace/a.txt", wasi.OflagsCreat, wasi.FileBase, 0, 0, 0); fault != nil {
		t.Fatalf("setup create failed: %v", fault)
	}

	fault := rm.PathRename(workspaceRoot, "/workspace/a.txt", assetsRoot, "/assets/a.txt")
	if fault == nil || fault.Errno != wasi.ErrnoXdev {
		t.Fatalf("expected xdev, got %v", fault)
	}
}

func TestRootMuxUnmountedPathFails(t *testing.T) {
	table := NewTable()
	fs, root := newMemMount(t, "/workspace")
	table.Add("/workspace", fs, root)
	rm := NewRootMux(table)

	if _, fault := rm.PathOpen(root, "/nowhere/file.txt", 0, wasi.FileBase, 0, 0, 0); fault == nil || fault.Errno != wasi.ErrnoNoent {
		t.Fatalf("expected noent for unmounted path, got %v", fault)
	}
}
