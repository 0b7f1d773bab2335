// Package device implements the WASI device driver surface (C9): the common
// interface every backend implements, and the host-native, workspace,
// in-memory, extension-resource, and character-device variants.
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package device

import (
	"github.com/wasi-embed/hostrt/guest"
	"github.com/wasi-embed/hostrt/wasi"
)

// FileStatInfo is the decoded form of a WASI filestat, passed between a
// driver and its caller before being encoded into guest memory.
type FileStatInfo struct {
	Dev, Ino, Nlink, Size, Atim, Mtim, Ctim uint64
	Filetype                                wasi.Filetype
}

// DirEntry is one row of an fd_readdir listing.
type DirEntry struct {
	Next     uint64
	Ino      uint64
	Name     string
	Filetype wasi.Filetype
}

// Driver implements every WASI operation spec.md §4.8 lists. All methods
// take the calling FileDescriptor rather than a bare fd: capability checks
// happen one layer up, in the dispatcher, before a driver method is ever
// invoked, so a driver implementation can assume the caller is authorized.
type Driver interface {
	ID() string

	FdAdvise(f *guest.FileDescriptor, offset, length uint64, advice wasi.Advice) *guest.Fault
	FdAllocate(f *guest.FileDescriptor, offset, length uint64) *guest.Fault
	FdClose(f *guest.FileDescriptor) *guest.Fault
	FdDatasync(f *guest.FileDescriptor) *guest.Fault
	FdFdstatGet(f *guest.FileDescriptor) (wasi.Fdflags, *guest.Fault)
	FdFdstatSetFlags(f *guest.FileDescriptor, flags wasi.Fdflags) *guest.Fault
	FdFilestatGet(f *guest.FileDescriptor) (FileStatInfo, *guest.Fault)
	FdFilestatSetSize(f *guest.FileDescriptor, size uint64) *guest.Fault
	FdFilestatSetTimes(f *guest.FileDescriptor, atim, mtim uint64, flags wasi.Fstflags) *guest.Fault
	FdPread(f *guest.FileDescriptor, buf []byte, offset uint64) (int, *guest.Fault)
	FdPwrite(f *guest.FileDescriptor, data []byte, offset uint64) (int, *guest.Fault)
	FdRead(f *guest.FileDescriptor, buf []byte) (int, *guest.Fault)
	FdReaddir(f *guest.FileDescriptor, cookie uint64, maxEntries int) ([]DirEntry, *guest.Fault)
	FdSeek(f *guest.FileDescriptor, delta int64, whence wasi.Whence) (uint64, *guest.Fault)
	FdRenumber(f *guest.FileDescriptor) *guest.Fault
	FdSync(f *guest.FileDescriptor) *guest.Fault
	FdTell(f *guest.FileDescriptor) (uint64, *guest.Fault)
	FdWrite(f *guest.FileDescriptor, data []byte) (int, *guest.Fault)
	FdBytesAvailable(f *guest.FileDescriptor) (uint64, *guest.Fault)

	PathCreateDirectory(parent *guest.FileDescriptor, path string) *guest.Fault
	PathFilestatGet(parent *guest.FileDescriptor, path string, flags wasi.Lookupflags) (FileStatInfo, *guest.Fault)
	PathFilestatSetTimes(parent *guest.FileDescriptor, path string, atim, mtim uint64, fstflags wasi.Fstflags, flags wasi.Lookupflags) *guest.Fault
	PathLink(oldParent *guest.FileDescriptor, oldPath string, newParent *guest.FileDescriptor, newPath string, flags wasi.Lookupflags) *guest.Fault
	PathOpen(parent *guest.FileDescriptor, path string, oflags wasi.Oflags, rightsBase, rightsInheriting wasi.Rights, fdflags wasi.Fdflags, flags wasi.Lookupflags) (*guest.FileDescriptor, *guest.Fault)
	PathReadlink(parent *guest.FileDescriptor, path string, buf []byte) (int, *guest.Fault)
	PathRemoveDirectory(parent *guest.FileDescriptor, path string) *guest.Fault
	PathRename(oldParent *guest.FileDescriptor, oldPath string, newParent *guest.FileDescriptor, newPath string) *guest.Fault
	PathSymlink(oldPath string, parent *guest.FileDescriptor, newPath string) *guest.Fault
	PathUnlinkFile(parent *guest.FileDescriptor, path string) *guest.Fault
}

// NeededRightsForOpen computes the base rights a path_open needs from oflags
// and fdflags, per spec.md §4.8's path_open policy: path_open itself, creat
// implies path_create_file, trunc implies path_filestat_set_size, dsync
// implies fd_datasync, rsync implies fd_sync, and a writable open implies
// fd_seek unless opened append-only or with trunc (which never needs to seek
// back).
func NeededRightsForOpen(oflags wasi.Oflags, fdflags wasi.Fdflags, writable bool) (base wasi.Rights) {
	base = wasi.RightPathOpen
	if oflags&wasi.OflagsCreat != 0 {
		base |= wasi.RightPathCreateFile
	}
	if oflags&wasi.OflagsTrunc != 0 {
		base |= wasi.RightPathFilestatSetSize
	}
	if fdflags&wasi.FdflagsDsync != 0 {
		base |= wasi.RightFdDatasync
	}
	if fdflags&wasi.FdflagsRsync != 0 {
		base |= wasi.RightFdSync
	}
	if writable && fdflags&(wasi.FdflagsAppend) == 0 && oflags&wasi.OflagsTrunc == 0 {
		base |= wasi.RightFdSeek
	}
	return base
}

// ApplyReadOnlyMask masks a freshly opened descriptor's rights down to
// ReadOnlyMask, per spec.md §4.8's read-only enforcement.
func ApplyReadOnlyMask(f *guest.FileDescriptor) {
	f.RightsBase &= wasi.ReadOnlyMask
	f.RightsInheriting &= wasi.ReadOnlyMask
}
