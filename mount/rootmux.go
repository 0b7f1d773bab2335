/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package mount

import (
	"github.com/wasi-embed/hostrt/device"
	"github.com/wasi-embed/hostrt/guest"
	"github.com/wasi-embed/hostrt/wasi"
)

// RootMux is the "root multiplexer" device driver variant spec.md §4.8
// describes: it owns no storage of its own. Fd-scoped operations forward to
// the driver that opened the descriptor (identified by DeviceID); path-scoped
// operations on an absolute path resolve against the mount table first and
// forward to the owning driver with the residual, mount-relative path.
type RootMux struct {
	table   *Table
	drivers map[string]device.Driver
}

// NewRootMux builds a RootMux over table, indexing its drivers by ID for
// fd-scoped dispatch.
func NewRootMux(table *Table) *RootMux {
	rm := &RootMux{table: table, drivers: make(map[string]device.Driver)}
	for _, e := range table.preOrder {
		rm.drivers[e.Driver.ID()] = e.Driver
	}
	return rm
}

func (rm *RootMux) ID() string { return "rootmux" }

func (rm *RootMux) owner(f *guest.FileDescriptor) (device.Driver, *guest.Fault) {
	d, ok := rm.drivers[f.DeviceID]
	if !ok {
		return nil, guest.NewFault("rootmux", wasi.ErrnoBadf, "no mounted driver for device %q", f.DeviceID)
	}
	return d, nil
}

// resolve performs the absolute-path longest-prefix lookup path_open and the
// other Path* methods need, returning the owning driver's own root
// descriptor and the path made relative to that mount.
func (rm *RootMux) resolve(path string) (device.Driver, *guest.FileDescriptor, string, *guest.Fault) {
	e, residual, ok := rm.table.Resolve(path)
	if !ok {
		return nil, nil, "", guest.NewFault("rootmux", wasi.ErrnoNoent, "no mount covers %q", path)
	}
	return e.Driver, e.Root, residual, nil
}

func (rm *RootMux) FdAdvise(f *guest.FileDescriptor, offset, length uint64, advice wasi.Advice) *guest.Fault {
	d, fault := rm.owner(f)
	if fault != nil {
		return fault
	}
	return d.FdAdvise(f, offset, length, advice)
}

func (rm *RootMux) FdAllocate(f *guest.FileDescriptor, offset, length uint64) *guest.Fault {
	d, fault := rm.owner(f)
	if fault != nil {
		return fault
	}
	return d.FdAllocate(f, offset, length)
}

func (rm *RootMux) FdClose(f *guest.FileDescriptor) *guest.Fault {
	d, fault := rm.owner(f)
	if fault != nil {
		return fault
	}
	return d.FdClose(f)
}

func (rm *RootMux) FdDatasync(f *guest.FileDescriptor) *guest.Fault {
	d, fault := rm.owner(f)
	if fault != nil {
		return fault
	}
	return d.FdDatasync(f)
}

func (rm *RootMux) FdFdstatGet(f *guest.FileDescriptor) (wasi.Fdflags, *guest.Fault) {
	d, fault := rm.owner(f)
	if fault != nil {
		return 0, fault
	}
	return d.FdFdstatGet(f)
}

func (rm *RootMux) FdFdstatSetFlags(f *guest.FileDescriptor, flags wasi.Fdflags) *guest.Fault {
	d, fault := rm.owner(f)
	if fault != nil {
		return fault
	}
	return d.FdFdstatSetFlags(f, flags)
}

func (rm *RootMux) FdFilestatGet(f *guest.FileDescriptor) (device.FileStatInfo, *guest.Fault) {
	d, fault := rm.owner(f)
	if fault != nil {
		return device.FileStatInfo{}, fault
	}
	return d.FdFilestatGet(f)
}

func (rm *RootMux) FdFilestatSetSize(f *guest.FileDescriptor, size uint64) *guest.Fault {
	d, fault := rm.owner(f)
	if fault != nil {
		return fault
	}
	return d.FdFilestatSetSize(f, size)
}

func (rm *RootMux) FdFilestatSetTimes(f *guest.FileDescriptor, atim, mtim uint64, flags wasi.Fstflags) *guest.Fault {
	d, fault := rm.owner(f)
	if fault != nil {
		return fault
	}
	return d.FdFilestatSetTimes(f, atim, mtim, flags)
}

func (rm *RootMux) FdPread(f *guest.FileDescriptor, buf []byte, offset uint64) (int, *guest.Fault) {
	d, fault := rm.owner(f)
	if fault != nil {
		return 0, fault
	}
	return d.FdPread(f, buf, offset)
}

func (rm *RootMux) FdPwrite(f *guest.FileDescriptor, data []byte, offset uint64) (int, *guest.Fault) {
	d, fault := rm.owner(f)
	if fault != nil {
		return 0, fault
	}
	return d.FdPwrite(f, data, offset)
}

func (rm *RootMux) FdRead(f *guest.FileDescriptor, buf []byte) (int, *guest.Fault) {
	d, fault := rm.owner(f)
	if fault != nil {
		return 0, fault
	}
	return d.FdRead(f, buf)
}

func (rm *RootMux) FdReaddir(f *guest.FileDescriptor, cookie uint64, maxEntries int) ([]device.DirEntry, *guest.Fault) {
	d, fault := rm.owner(f)
	if fault != nil {
		return nil, fault
	}
	return d.FdReaddir(f, cookie, maxEntries)
}

func (rm *RootMux) FdSeek(f *guest.FileDescriptor, delta int64, whence wasi.Whence) (uint64, *guest.Fault) {
	d, fault := rm.owner(f)
	if fault != nil {
		return 0, fault
	}
	return d.FdSeek(f, delta, whence)
}

func (rm *RootMux) FdRenumber(f *guest.FileDescriptor) *guest.Fault {
	d, fault := rm.owner(f)
	if fault != nil {
		return fault
	}
	return d.FdRenumber(f)
}

func (rm *RootMux) FdSync(f *guest.FileDescriptor) *guest.Fault {
	d, fault := rm.owner(f)
	if fault != nil {
		return fault
	}
	return d.FdSync(f)
}

func (rm *RootMux) FdTell(f *guest.FileDescriptor) (uint64, *guest.Fault) {
	d, fault := rm.owner(f)
	if fault != nil {
		return 0, fault
	}
	return d.FdTell(f)
}

func (rm *RootMux) FdWrite(f *guest.FileDescriptor, data []byte) (int, *guest.Fault) {
	d, fault := rm.owner(f)
	if fault != nil {
		return 0, fault
	}
	return d.FdWrite(f, data)
}

func (rm *RootMux) FdBytesAvailable(f *guest.FileDescriptor) (uint64, *guest.Fault) {
	d, fault := rm.owner(f)
	if fault != nil {
		return 0, fault
	}
	return d.FdBytesAvailable(f)
}

// Path* methods ignore parent's own backend and instead treat path as
// absolute, routing it through the mount table. This is the one place in the
// driver surface where "parent" is a hint rather than authoritative: a
// pre-open fd's PreopenName anchors a relative path before it reaches here.
func (rm *RootMux) absolute(parent *guest.FileDescriptor, path string) string {
	if len(path) > 0 && path[0] == '/' {
		return path
	}
	return parent.PreopenName + "/" + path
}

func (rm *RootMux) PathCreateDirectory(parent *guest.FileDescriptor, path string) *guest.Fault {
	d, root, residual, fault := rm.resolve(rm.absolute(parent, path))
	if fault != nil {
		return fault
	}
	return d.PathCreateDirectory(root, residual)
}

func (rm *RootMux) PathFilestatGet(parent *guest.FileDescriptor, path string, flags wasi.Lookupflags) (device.FileStatInfo, *guest.Fault) {
	d, root, residual, fault := rm.resolve(rm.absolute(parent, path))
	if fault != nil {
		return device.FileStatInfo{}, fault
	}
	return d.PathFilestatGet(root, residual, flags)
}

func (rm *RootMux) PathFilestatSetTimes(parent *guest.FileDescriptor, path string, atim, mtim uint64, fstflags wasi.Fstflags, flags wasi.Lookupflags) *guest.Fault {
	d, root, residual, fault := rm.resolve(rm.absolute(parent, path))
	if fault != nil {
		return fault
	}
	return d.PathFilestatSetTimes(root, residual, atim, mtim, fstflags, flags)
}

func (rm *RootMux) PathLink(oldParent *guest.FileDescriptor, oldPath string, newParent *guest.FileDescriptor, newPath string, flags wasi.Lookupflags) *guest.Fault {
	oldAbs, newAbs := rm.absolute(oldParent, oldPath), rm.absolute(newParent, newPath)
	oldDriver, oldRoot, oldResidual, fault := rm.resolve(oldAbs)
	if fault != nil {
		return fault
	}
	newDriver, newRoot, newResidual, fault := rm.resolve(newAbs)
	if fault != nil {
		return fault
	}
	if oldDriver != newDriver {
		return guest.NewFault("path_link", wasi.ErrnoXdev, "cross-device link %q -> %q", oldAbs, newAbs)
	}
	return oldDriver.PathLink(oldRoot, oldResidual, newRoot, newResidual, flags)
}

// PathOpen is the one place capability policy (spec.md §4.7/§4.8) is
// enforced: it asserts parent grants path_open plus whatever oflags/fdflags
// imply, then masks the child's requested rights down to what parent's
// inheriting rights actually allow before the owning driver ever sees them.
// A driver method can therefore assume any rights it's handed are already
// authorized.
func (rm *RootMux) PathOpen(parent *guest.FileDescriptor, path string, oflags wasi.Oflags, rightsBase, rightsInheriting wasi.Rights, fdflags wasi.Fdflags, flags wasi.Lookupflags) (*guest.FileDescriptor, *guest.Fault) {
	if fault := parent.AssertBaseRights("path_open", wasi.RightPathOpen); fault != nil {
		return nil, fault
	}
	needed := device.NeededRightsForOpen(oflags, fdflags, rightsBase.Has(wasi.RightFdWrite))
	if fault := parent.AssertInheritingRights("path_open", needed|rightsBase); fault != nil {
		return nil, fault
	}

	rightsBase &= parent.RightsInheriting
	rightsInheriting &= parent.RightsInheriting

	d, root, residual, fault := rm.resolve(rm.absolute(parent, path))
	if fault != nil {
		return nil, fault
	}
	child, fault := d.PathOpen(root, residual, oflags, rightsBase, rightsInheriting, fdflags, flags)
	if fault != nil {
		return nil, fault
	}
	if child.Filetype == wasi.FiletypeDirectory {
		child.RightsBase &= wasi.DirectoryBase
		child.RightsInheriting &= wasi.DirectoryInheriting
	} else {
		child.RightsBase &= wasi.FileBase
		child.RightsInheriting &= wasi.FileInheriting
	}
	return child, nil
}

func (rm *RootMux) PathReadlink(parent *guest.FileDescriptor, path string, buf []byte) (int, *guest.Fault) {
	d, root, residual, fault := rm.resolve(rm.absolute(parent, path))
	if fault != nil {
		return 0, fault
	}
	return d.PathReadlink(root, residual, buf)
}

func (rm *RootMux) PathRemoveDirectory(parent *guest.FileDescriptor, path string) *guest.Fault {
	d, root, residual, fault := rm.resolve(rm.absolute(parent, path))
	if fault != nil {
		return fault
	}
	return d.PathRemoveDirectory(root, residual)
}

func (rm *RootMux) PathRename(oldParent *guest.FileDescriptor, oldPath string, newParent *guest.FileDescriptor, newPath string) *guest.Fault {
	oldAbs, newAbs := rm.absolute(oldParent, oldPath), rm.absolute(newParent, newPath)
	oldDriver, oldRoot, oldResidual, fault := rm.resolve(oldAbs)
	if fault != nil {
		return fault
	}
	newDriver, newRoot, newResidual, fault := rm.resolve(newAbs)
	if fault != nil {
		return fault
	}
	if oldDriver != newDriver {
		return guest.NewFault("path_rename", wasi.ErrnoXdev, "cross-device rename %q -> %q", oldAbs, newAbs)
	}
	return oldDriver.PathRename(oldRoot, oldResidual, newRoot, newResidual)
}

func (rm *RootMux) PathSymlink(oldPath string, parent *guest.FileDescriptor, newPath string) *guest.Fault {
	d, root, residual, fault := rm.resolve(rm.absolute(parent, newPath))
	if fault != nil {
		return fault
	}
	return d.PathSymlink(oldPath, root, residual)
}

func (rm *RootMux) PathUnlinkFile(parent *guest.FileDescriptor, path string) *guest.Fault {
	d, root, residual, fault := rm.resolve(rm.absolute(parent, path))
	if fault != nil {
		return fault
	}
	return d.PathUnlinkFile(root, residual)
}

var _ device.Driver = (*RootMux)(nil)
