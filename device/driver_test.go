package device

import (
	"testing"

	"github.com/wasi-embed/hostrt/guest"
	"github.com/wasi-embed/hostrt/wasi"
)

func TestNeededRightsForOpen(t *testing.T) {
	base := NeededRightsForOpen(wasi.OflagsCreat, 0, true)
	if !base.Has(wasi.RightPathOpen) || !base.Has(wasi.RightPathCreateFile) {
		t.Fatal("creat should require path_create_file")
	}
	if !base.Has(wasi.RightFdSeek) {
		t.Fatal("a writable, non-append, non-trunc open should require fd_seek")
	}

	appendOnly := NeededRightsForOpen(0, wasi.FdflagsAppend, true)
	if appendOnly.Has(wasi.RightFdSeek) {
		t.Fatal("append-only writes should not require fd_seek")
	}
}

func TestApplyReadOnlyMask(t *testing.T) {
	f := &guest.FileDescriptor{RightsBase: wasi.DirectoryBase, RightsInheriting: wasi.DirectoryInheriting}
	ApplyReadOnlyMask(f)
	if f.RightsBase.Has(wasi.RightPathCreateFile) {
		t.Fatal("read-only mask should clear path_create_file")
	}
	if !f.RightsBase.Has(wasi.RightPathOpen) {
		t.Fatal("read-only mask should keep path_open")
	}
}
