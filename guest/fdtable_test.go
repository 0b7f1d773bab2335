package guest

import (
	"testing"

	"github.com/wasi-embed/hostrt/wasi"
)

func TestFDTableStdioReserved(t *testing.T) {
	tbl := NewFDTable()
	in := &FileDescriptor{DeviceID: "chardev", Filetype: wasi.FiletypeCharacterDevice, RightsBase: wasi.StdinBase}
	out := &FileDescriptor{DeviceID: "chardev", Filetype: wasi.FiletypeCharacterDevice, RightsBase: wasi.StdoutBase}
	tbl.InstallStdio(in, out, nil)

	if f, fault := tbl.Get(StdinFD); fault != nil || f != in {
		t.Fatalf("stdin lookup failed: %v %v", f, fault)
	}
	if f, fault := tbl.Get(StdoutFD); fault != nil || f != out {
		t.Fatalf("stdout lookup failed: %v %v", f, fault)
	}
	if _, fault := tbl.Get(StderrFD); fault == nil {
		t.Fatal("expected badf for unset stderr slot")
	}
}

func TestFDTableInsertStartsAtThree(t *testing.T) {
	tbl := NewFDTable()
	fd := tbl.Insert(&FileDescriptor{DeviceID: "nativefs"})
	if fd != 3 {
		t.Fatalf("expected first dynamic fd to be 3, got %d", fd)
	}
	fd2 := tbl.Insert(&FileDescriptor{DeviceID: "nativefs"})
	if fd2 != 4 {
		t.Fatalf("expected second dynamic fd to be 4, got %d", fd2)
	}
}

func TestFDTableCloseThenBadf(t *testing.T) {
	tbl := NewFDTable()
	fd := tbl.Insert(&FileDescriptor{DeviceID: "memfs"})
	if fault := tbl.Close(fd); fault != nil {
		t.Fatalf("unexpected fault closing live fd: %v", fault)
	}
	if _, fault := tbl.Get(fd); fault == nil || fault.Errno != wasi.ErrnoBadf {
		t.Fatalf("expected badf after close, got %v", fault)
	}
	if fault := tbl.Close(fd); fault == nil {
		t.Fatal("expected badf closing an already-closed fd")
	}
}

func TestFDTableRenumberPreservesPartialFunction(t *testing.T) {
	tbl := NewFDTable()
	a := tbl.Insert(&FileDescriptor{DeviceID: "a"})
	b := tbl.Insert(&FileDescriptor{DeviceID: "b"})

	if fault := tbl.Renumber(a, b); fault != nil {
		t.Fatalf("unexpected fault: %v", fault)
	}
	if _, fault := tbl.Get(a); fault == nil {
		t.Fatal("from-fd should no longer resolve after renumber")
	}
	moved, fault := tbl.Get(b)
	if fault != nil || moved.DeviceID != "a" {
		t.Fatalf("to-fd should now resolve to the moved descriptor, got %+v %v", moved, fault)
	}
	if tbl.Len() != 1 {
		t.Fatalf("expected exactly one live descriptor after renumber, got %d", tbl.Len())
	}
}

func TestIdleDescriptorsExcludesStdioAndPreopens(t *testing.T) {
	tbl := NewFDTable()
	in := &FileDescriptor{DeviceID: "chardev"}
	tbl.InstallStdio(in, nil, nil)
	preopen := &FileDescriptor{DeviceID: "memfs", PreopenName: "/workspace"}
	tbl.Insert(preopen)
	scratch := &FileDescriptor{DeviceID: "memfs"}
	tbl.Insert(scratch)

	idle := tbl.IdleDescriptors(0)
	if len(idle) != 1 || idle[0] != scratch.FD {
		t.Fatalf("expected only the scratch fd to be idle, got %v", idle)
	}
}

func TestIdleDescriptorsResetByGet(t *testing.T) {
	tbl := NewFDTable()
	fd := tbl.Insert(&FileDescriptor{DeviceID: "memfs"})
	if idle := tbl.IdleDescriptors(0); len(idle) != 1 {
		t.Fatalf("expected fd to be idle immediately, got %v", idle)
	}
	if _, fault := tbl.Get(fd); fault != nil {
		t.Fatalf("unexpected fault: %v", fault)
	}
	if idle := tbl.IdleDescriptors(1_000_000_000); len(idle) != 0 {
		t.Fatalf("expected no idle fds right after a touch, got %v", idle)
	}
}

func TestCapabilityChecks(t *testing.T) {
	f := &FileDescriptor{RightsBase: wasi.StdinBase, RightsInheriting: 0}
	if fault := f.AssertBaseRights("fd_read", wasi.RightFdRead); fault != nil {
		t.Fatalf("fd_read should be permitted: %v", fault)
	}
	fault := f.AssertBaseRights("fd_write", wasi.RightFdWrite)
	if fault == nil || fault.Errno != wasi.ErrnoNotcapable {
		t.Fatalf("fd_write should be denied with notcapable, got %v", fault)
	}
	if fault := f.AssertInheritingRights("path_open", wasi.RightPathOpen); fault == nil {
		t.Fatal("expected notcapable: stdin has no inheriting rights")
	}
}
