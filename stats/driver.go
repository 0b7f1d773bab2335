/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package stats

import (
	"github.com/wasi-embed/hostrt/device"
	"github.com/wasi-embed/hostrt/guest"
	"github.com/wasi-embed/hostrt/wasi"
)

// deviceObserver is the subset of Registry's API InstrumentingDriver needs,
// kept narrow so a test double doesn't have to build a whole Registry.
type deviceObserver interface {
	ObserveDeviceOp(device, op, errno string)
}

// InstrumentingDriver wraps any device.Driver and records a Prometheus
// counter per (device id, op, errno) on every call, without the wrapped
// driver or its callers (mount.RootMux, in practice) knowing metrics exist.
// This is applied once at assembly time rather than threaded through
// device/guest/mount, so those packages stay free of a stats dependency.
type InstrumentingDriver struct {
	device.Driver
	obs deviceObserver
}

func NewInstrumentingDriver(d device.Driver, obs deviceObserver) *InstrumentingDriver {
	return &InstrumentingDriver{Driver: d, obs: obs}
}

func (d *InstrumentingDriver) ID() string { return d.Driver.ID() }

func (d *InstrumentingDriver) record(op string, fault *guest.Fault) {
	if fault == nil {
		d.obs.ObserveDeviceOp(d.Driver.ID(), op, "success")
		return
	}
	d.obs.ObserveDeviceOp(d.Driver.ID(), op, fault.Errno.String())
}

func (d *InstrumentingDriver) FdAdvise(f *guest.FileDescriptor, offset, length uint64, advice wasi.Advice) *guest.Fault {
	fault := d.Driver.FdAdvise(f, offset, length, advice)
	d.record("fd_advise", fault)
	return fault
}

func (d *InstrumentingDriver) FdAllocate(f *guest.FileDescriptor, offset, length uint64) *guest.Fault {
	fault := d.Driver.FdAllocate(f, offset, length)
	d.record("fd_allocate", fault)
	return fault
}

func (d *InstrumentingDriver) FdClose(f *guest.FileDescriptor) *guest.Fault {
	fault := d.Driver.FdClose(f)
	d.record("fd_close", fault)
	return fault
}

func (d *InstrumentingDriver) FdDatasync(f *guest.FileDescriptor) *guest.Fault {
	fault := d.Driver.FdDatasync(f)
	d.record("fd_datasync", fault)
	return fault
}

func (d *InstrumentingDriver) FdFdstatGet(f *guest.FileDescriptor) (wasi.Fdflags, *guest.Fault) {
	flags, fault := d.Driver.FdFdstatGet(f)
	d.record("fd_fdstat_get", fault)
	return flags, fault
}

func (d *InstrumentingDriver) FdFdstatSetFlags(f *guest.FileDescriptor, flags wasi.Fdflags) *guest.Fault {
	fault := d.Driver.FdFdstatSetFlags(f, flags)
	d.record("fd_fdstat_set_flags", fault)
	return fault
}

func (d *InstrumentingDriver) FdFilestatGet(f *guest.FileDescriptor) (device.FileStatInfo, *guest.Fault) {
	info, fault := d.Driver.FdFilestatGet(f)
	d.record("fd_filestat_get", fault)
	return info, fault
}

func (d *InstrumentingDriver) FdFilestatSetSize(f *guest.FileDescriptor, size uint64) *guest.Fault {
	fault := d.Driver.FdFilestatSetSize(f, size)
	d.record("fd_filestat_set_size", fault)
	return fault
}

func (d *InstrumentingDriver) FdFilestatSetTimes(f *guest.FileDescriptor, atim, mtim uint64, flags wasi.Fstflags) *guest.Fault {
	fault := d.Driver.FdFilestatSetTimes(f, atim, mtim, flags)
	d.record("fd_filestat_set_times", fault)
	return fault
}

func (d *InstrumentingDriver) FdPread(f *guest.FileDescriptor, buf []byte, offset uint64) (int, *guest.Fault) {
	n, fault := d.Driver.FdPread(f, buf, offset)
	d.record("fd_pread", fault)
	return n, fault
}

func (d *InstrumentingDriver) FdPwrite(f *guest.FileDescriptor, data []byte, offset uint64) (int, *guest.Fault) {
	n, fault := d.Driver.FdPwrite(f, data, offset)
	d.record("fd_pwrite", fault)
	return n, fault
}

func (d *InstrumentingDriver) FdRead(f *guest.FileDescriptor, buf []byte) (int, *guest.Fault) {
	n, fault := d.Driver.FdRead(f, buf)
	d.record("fd_read", fault)
	return n, fault
}

func (d *InstrumentingDriver) FdReaddir(f *guest.FileDescriptor, cookie uint64, maxEntries int) ([]device.DirEntry, *guest.Fault) {
	entries, fault := d.Driver.FdReaddir(f, cookie, maxEntries)
	d.record("fd_readdir", fault)
	return entries, fault
}

func (d *InstrumentingDriver) FdSeek(f *guest.FileDescriptor, delta int64, whence wasi.Whence) (uint64, *guest.Fault) {
	off, fault := d.Driver.FdSeek(f, delta, whence)
	d.record("fd_seek", fault)
	return off, fault
}

func (d *InstrumentingDriver) FdRenumber(f *guest.FileDescriptor) *guest.Fault {
	fault := d.Driver.FdRenumber(f)
	d.record("fd_renumber", fault)
	return fault
}

func (d *InstrumentingDriver) FdSync(f *guest.FileDescriptor) *guest.Fault {
	fault := d.Driver.FdSync(f)
	d.record("fd_sync", fault)
	return fault
}

func (d *InstrumentingDriver) FdTell(f *guest.FileDescriptor) (uint64, *guest.Fault) {
	off, fault := d.Driver.FdTell(f)
	d.record("fd_tell", fault)
	return off, fault
}

func (d *InstrumentingDriver) FdWrite(f *guest.FileDescriptor, data []byte) (int, *guest.Fault) {
	n, fault := d.Driver.FdWrite(f, data)
	d.record("fd_write", fault)
	return n, fault
}

func (d *InstrumentingDriver) FdBytesAvailable(f *guest.FileDescriptor) (uint64, *guest.Fault) {
	n, fault := d.Driver.FdBytesAvailable(f)
	d.record("fd_bytes_available", fault)
	return n, fault
}

func (d *InstrumentingDriver) PathCreateDirectory(parent *guest.FileDescriptor, path string) *guest.Fault {
	fault := d.Driver.PathCreateDirectory(parent, path)
	d.record("path_create_directory", fault)
	return fault
}

func (d *InstrumentingDriver) PathFilestatGet(parent *guest.FileDescriptor, path string, flags wasi.Lookupflags) (device.FileStatInfo, *guest.Fault) {
	info, fault := d.Driver.PathFilestatGet(parent, path, flags)
	d.record("path_filestat_get", fault)
	return info, fault
}

func (d *InstrumentingDriver) PathFilestatSetTimes(parent *guest.FileDescriptor, path string, atim, mtim uint64, fstflags wasi.Fstflags, flags wasi.Lookupflags) *guest.Fault {
	fault := d.Driver.PathFilestatSetTimes(parent, path, atim, mtim, fstflags, flags)
	d.record("path_filestat_set_times", fault)
	return fault
}

func (d *InstrumentingDriver) PathLink(oldParent *guest.FileDescriptor, oldPath string, newParent *guest.FileDescriptor, newPath string, flags wasi.Lookupflags) *guest.Fault {
	fault := d.Driver.PathLink(oldParent, oldPath, newParent, newPath, flags)
	d.record("path_link", fault)
	return fault
}

func (d *InstrumentingDriver) PathOpen(parent *guest.FileDescriptor, path string, oflags wasi.Oflags, rightsBase, rightsInheriting wasi.Rights, fdflags wasi.Fdflags, flags wasi.Lookupflags) (*guest.FileDescriptor, *guest.Fault) {
	fd, fault := d.Driver.PathOpen(parent, path, oflags, rightsBase, rightsInheriting, fdflags, flags)
	d.record("path_open", fault)
	return fd, fault
}

func (d *InstrumentingDriver) PathReadlink(parent *guest.FileDescriptor, path string, buf []byte) (int, *guest.Fault) {
	n, fault := d.Driver.PathReadlink(parent, path, buf)
	d.record("path_readlink", fault)
	return n, fault
}

func (d *InstrumentingDriver) PathRemoveDirectory(parent *guest.FileDescriptor, path string) *guest.Fault {
	fault := d.Driver.PathRemoveDirectory(parent, path)
	d.record("path_remove_directory", fault)
	return fault
}

func (d *InstrumentingDriver) PathRename(oldParent *guest.FileDescriptor, oldPath string, newParent *guest.FileDescriptor, newPath string) *guest.Fault {
	fault := d.Driver.PathRename(oldParent, oldPath, newParent, newPath)
	d.record("path_rename", fault)
	return fault
}

func (d *InstrumentingDriver) PathSymlink(oldPath string, parent *guest.FileDescriptor, newPath string) *guest.Fault {
	fault := d.Driver.PathSymlink(oldPath, parent, newPath)
	d.record("path_symlink", fault)
	return fault
}

func (d *InstrumentingDriver) PathUnlinkFile(parent *guest.FileDescriptor, path string) *guest.Fault {
	fault := d.Driver.PathUnlinkFile(parent, path)
	d.record("path_unlink_file", fault)
	return fault
}

var _ device.Driver = (*InstrumentingDriver)(nil)
