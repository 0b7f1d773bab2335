package device

import (
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/karrick/godirwalk"
	"golang.org/x/sys/unix"

	"github.com/wasi-embed/hostrt/guest"
	"github.com/wasi-embed/hostrt/wasi"
)

// fileHandle backs a regular-file FileDescriptor opened by NativeFS.
type fileHandle struct {
	f *os.File
}

// dirStream backs a directory FileDescriptor. Per spec.md §4.8 it is a
// three-state cycle: fresh (scanner nil) -> iterating (scanner open) ->
// exhausted (scanner nil again, entries drained) -> fresh on re-open.
type dirStream struct {
	path    string
	scanner *godirwalk.Scanner
}

// NativeFS delegates to the host's native filesystem, translating syscall
// errnos through nativeErrno. A read-only instance masks every opened
// descriptor's rights down to ReadOnlyMask and rejects every mutating op
// with perm, per spec.md §4.8's read-only mount requirement.
type NativeFS struct {
	readOnly bool
}

func NewNativeFS() *NativeFS { return &NativeFS{} }

// NewReadOnlyNativeFS mounts the same host filesystem with every mutating
// WASI op rejected, for a second, read-only mount of a directory a
// writable mount already covers (spec.md §4.8 scenario: same filesystem
// mounted twice with different capabilities).
func NewReadOnlyNativeFS() *NativeFS { return &NativeFS{readOnly: true} }

func (NativeFS) ID() string { return "nativefs" }

func fault(op string, err error) *guest.Fault {
	if err == nil {
		return nil
	}
	return guest.WrapFault(op, nativeErrno(err), err, "%v", err)
}

func (NativeFS) FdAdvise(f *guest.FileDescriptor, offset, length uint64, advice wasi.Advice) *guest.Fault {
	h, ok := f.Backend.(*fileHandle)
	if !ok {
		return guest.NewFault("fd_advise", wasi.ErrnoBadf, "not a regular file")
	}
	var unixAdvice int
	switch advice {
	case wasi.AdviceSequential:
		unixAdvice = unix.FADV_SEQUENTIAL
	case wasi.AdviceRandom:
		unixAdvice = unix.FADV_RANDOM
	case wasi.AdviceWillneed:
		unixAdvice = unix.FADV_WILLNEED
	case wasi.AdviceDontneed:
		unixAdvice = unix.FADV_DONTNEED
	case wasi.AdviceNoreuse:
		unixAdvice = unix.FADV_NOREUSE
	default:
		unixAdvice = unix.FADV_NORMAL
	}
	return fault("fd_advise", unix.Fadvise(int(h.f.Fd()), int64(offset), int64(length), unixAdvice))
}

func (n NativeFS) FdAllocate(f *guest.FileDescriptor, offset, length uint64) *guest.Fault {
	if n.readOnly {
		return readOnlyFault("fd_allocate")
	}
	h, ok := f.Backend.(*fileHandle)
	if !ok {
		return guest.NewFault("fd_allocate", wasi.ErrnoBadf, "not a regular file")
	}
	return fault("fd_allocate", unix.Fallocate(int(h.f.Fd()), 0, int64(offset), int64(length)))
}

func (NativeFS) FdClose(f *guest.FileDescriptor) *guest.Fault {
	switch b := f.Backend.(type) {
	case *fileHandle:
		return fault("fd_close", b.f.Close())
	case *dirStream:
		return nil
	}
	return nil
}

func (NativeFS) FdDatasync(f *guest.FileDescriptor) *guest.Fault {
	h, ok := f.Backend.(*fileHandle)
	if !ok {
		return guest.NewFault("fd_datasync", wasi.ErrnoBadf, "not a regular file")
	}
	return fault("fd_datasync", unix.Fdatasync(int(h.f.Fd())))
}

func (NativeFS) FdFdstatGet(f *guest.FileDescriptor) (wasi.Fdflags, *guest.Fault) {
	return f.Fdflags, nil
}

func (NativeFS) FdFdstatSetFlags(f *guest.FileDescriptor, flags wasi.Fdflags) *guest.Fault {
	f.Fdflags = flags
	return nil
}

func statToInfo(fi os.FileInfo) FileStatInfo {
	info := FileStatInfo{Size: uint64(fi.Size()), Mtim: uint64(fi.ModTime().UnixNano())}
	if fi.IsDir() {
		info.Filetype = wasi.FiletypeDirectory
	} else if fi.Mode()&os.ModeSymlink != 0 {
		info.Filetype = wasi.FiletypeSymbolicLink
	} else {
		info.Filetype = wasi.FiletypeRegularFile
	}
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		info.Dev = uint64(st.Dev)
		info.Ino = st.Ino
		info.Nlink = uint64(st.Nlink)
		info.Atim = uint64(st.Atim.Sec)*1e9 + uint64(st.Atim.Nsec)
		info.Ctim = uint64(st.Ctim.Sec)*1e9 + uint64(st.Ctim.Nsec)
	}
	return info
}

func (NativeFS) FdFilestatGet(f *guest.FileDescriptor) (FileStatInfo, *guest.Fault) {
	switch b := f.Backend.(type) {
	case *fileHandle:
		fi, err := b.f.Stat()
		if err != nil {
			return FileStatInfo{}, fault("fd_filestat_get", err)
		}
		return statToInfo(fi), nil
	case *dirStream:
		fi, err := os.Stat(b.path)
		if err != nil {
			return FileStatInfo{}, fault("fd_filestat_get", err)
		}
		return statToInfo(fi), nil
	}
	return FileStatInfo{}, guest.NewFault("fd_filestat_get", wasi.ErrnoBadf, "unknown backend")
}

func (n NativeFS) FdFilestatSetSize(f *guest.FileDescriptor, size uint64) *guest.Fault {
	if n.readOnly {
		return readOnlyFault("fd_filestat_set_size")
	}
	h, ok := f.Backend.(*fileHandle)
	if !ok {
		return guest.NewFault("fd_filestat_set_size", wasi.ErrnoBadf, "not a regular file")
	}
	return fault("fd_filestat_set_size", h.f.Truncate(int64(size)))
}

func (n NativeFS) FdFilestatSetTimes(f *guest.FileDescriptor, atim, mtim uint64, flags wasi.Fstflags) *guest.Fault {
	if n.readOnly {
		return readOnlyFault("fd_filestat_set_times")
	}
	h, ok := f.Backend.(*fileHandle)
	if !ok {
		return guest.NewFault("fd_filestat_set_times", wasi.ErrnoBadf, "not a regular file")
	}
	name := h.f.Name()
	now := nanoNow()
	if flags&wasi.FstflagsAtimNow != 0 {
		atim = now
	}
	if flags&wasi.FstflagsMtimNow != 0 {
		mtim = now
	}
	return fault("fd_filestat_set_times", os.Chtimes(name, unixNano(atim), unixNano(mtim)))
}

func (NativeFS) FdPread(f *guest.FileDescriptor, buf []byte, offset uint64) (int, *guest.Fault) {
	h, ok := f.Backend.(*fileHandle)
	if !ok {
		return 0, guest.NewFault("fd_pread", wasi.ErrnoBadf, "not a regular file")
	}
	n, err := h.f.ReadAt(buf, int64(offset))
	if err != nil && err != io.EOF {
		return n, fault("fd_pread", err)
	}
	return n, nil
}

func (n NativeFS) FdPwrite(f *guest.FileDescriptor, data []byte, offset uint64) (int, *guest.Fault) {
	if n.readOnly {
		return 0, readOnlyFault("fd_pwrite")
	}
	h, ok := f.Backend.(*fileHandle)
	if !ok {
		return 0, guest.NewFault("fd_pwrite", wasi.ErrnoBadf, "not a regular file")
	}
	written, err := h.f.WriteAt(data, int64(offset))
	return written, fault("fd_pwrite", err)
}

func (NativeFS) FdRead(f *guest.FileDescriptor, buf []byte) (int, *guest.Fault) {
	h, ok := f.Backend.(*fileHandle)
	if !ok {
		return 0, guest.NewFault("fd_read", wasi.ErrnoBadf, "not a regular file")
	}
	n, err := h.f.Read(buf)
	if err != nil && err != io.EOF {
		return n, fault("fd_read", err)
	}
	return n, nil
}

func (NativeFS) FdReaddir(f *guest.FileDescriptor, cookie uint64, maxEntries int) ([]DirEntry, *guest.Fault) {
	d, ok := f.Backend.(*dirStream)
	if !ok {
		return nil, guest.NewFault("fd_readdir", wasi.ErrnoBadf, "not a directory")
	}
	if cookie == 0 || d.scanner == nil {
		scanner, err := godirwalk.NewScanner(d.path)
		if err != nil {
			return nil, fault("fd_readdir", err)
		}
		d.scanner = scanner
	}
	var entries []DirEntry
	var next uint64 = cookie
	for len(entries) < maxEntries && d.scanner.Scan() {
		next++
		dirent, err := d.scanner.Dirent()
		if err != nil {
			return entries, fault("fd_readdir", err)
		}
		ft := wasi.FiletypeRegularFile
		if dirent.IsDir() {
			ft = wasi.FiletypeDirectory
		} else if dirent.IsSymlink() {
			ft = wasi.FiletypeSymbolicLink
		}
		entries = append(entries, DirEntry{
			Next:     next,
			Ino:      0,
			Name:     dirent.Name(),
			Filetype: ft,
		})
	}
	if err := d.scanner.Err(); err != nil {
		return entries, fault("fd_readdir", err)
	}
	if len(entries) < maxEntries {
		d.scanner = nil // exhausted; reOpen starts fresh next call
	}
	return entries, nil
}

func (NativeFS) FdSeek(f *guest.FileDescriptor, delta int64, whence wasi.Whence) (uint64, *guest.Fault) {
	h, ok := f.Backend.(*fileHandle)
	if !ok {
		return 0, guest.NewFault("fd_seek", wasi.ErrnoSpipe, "not seekable")
	}
	var w int
	switch whence {
	case wasi.WhenceSet:
		w = io.SeekStart
	case wasi.WhenceCur:
		w = io.SeekCurrent
	case wasi.WhenceEnd:
		w = io.SeekEnd
	}
	pos, err := h.f.Seek(delta, w)
	if err != nil {
		return 0, fault("fd_seek", err)
	}
	return uint64(pos), nil
}

func (NativeFS) FdRenumber(*guest.FileDescriptor) *guest.Fault { return nil }

func (NativeFS) FdSync(f *guest.FileDescriptor) *guest.Fault {
	h, ok := f.Backend.(*fileHandle)
	if !ok {
		return guest.NewFault("fd_sync", wasi.ErrnoBadf, "not a regular file")
	}
	return fault("fd_sync", h.f.Sync())
}

func (NativeFS) FdTell(f *guest.FileDescriptor) (uint64, *guest.Fault) {
	h, ok := f.Backend.(*fileHandle)
	if !ok {
		return 0, guest.NewFault("fd_tell", wasi.ErrnoBadf, "not seekable")
	}
	pos, err := h.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fault("fd_tell", err)
	}
	return uint64(pos), nil
}

func (n NativeFS) FdWrite(f *guest.FileDescriptor, data []byte) (int, *guest.Fault) {
	if n.readOnly {
		return 0, readOnlyFault("fd_write")
	}
	h, ok := f.Backend.(*fileHandle)
	if !ok {
		return 0, guest.NewFault("fd_write", wasi.ErrnoBadf, "not a regular file")
	}
	written, err := h.f.Write(data)
	return written, fault("fd_write", err)
}

func (NativeFS) FdBytesAvailable(f *guest.FileDescriptor) (uint64, *guest.Fault) {
	h, ok := f.Backend.(*fileHandle)
	if !ok {
		return 0, nil
	}
	fi, err := h.f.Stat()
	if err != nil {
		return 0, fault("fd_bytesAvailable", err)
	}
	pos, err := h.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fault("fd_bytesAvailable", err)
	}
	if rem := fi.Size() - pos; rem > 0 {
		return uint64(rem), nil
	}
	return 0, nil
}

func (n NativeFS) PathCreateDirectory(parent *guest.FileDescriptor, path string) *guest.Fault {
	if n.readOnly {
		return readOnlyFault("path_create_directory")
	}
	return fault("path_create_directory", os.Mkdir(joinNative(parent, path), 0o755))
}

func (NativeFS) PathFilestatGet(parent *guest.FileDescriptor, path string, flags wasi.Lookupflags) (FileStatInfo, *guest.Fault) {
	full := joinNative(parent, path)
	var fi os.FileInfo
	var err error
	if flags&wasi.LookupflagsSymlinkFollow != 0 {
		fi, err = os.Stat(full)
	} else {
		fi, err = os.Lstat(full)
	}
	if err != nil {
		return FileStatInfo{}, fault("path_filestat_get", err)
	}
	return statToInfo(fi), nil
}

func (n NativeFS) PathFilestatSetTimes(parent *guest.FileDescriptor, path string, atim, mtim uint64, fstflags wasi.Fstflags, _ wasi.Lookupflags) *guest.Fault {
	if n.readOnly {
		return readOnlyFault("path_filestat_set_times")
	}
	full := joinNative(parent, path)
	now := nanoNow()
	if fstflags&wasi.FstflagsAtimNow != 0 {
		atim = now
	}
	if fstflags&wasi.FstflagsMtimNow != 0 {
		mtim = now
	}
	return fault("path_filestat_set_times", os.Chtimes(full, unixNano(atim), unixNano(mtim)))
}

func (n NativeFS) PathLink(oldParent *guest.FileDescriptor, oldPath string, newParent *guest.FileDescriptor, newPath string, _ wasi.Lookupflags) *guest.Fault {
	if n.readOnly {
		return readOnlyFault("path_link")
	}
	return fault("path_link", os.Link(joinNative(oldParent, oldPath), joinNative(newParent, newPath)))
}

func (n NativeFS) PathOpen(parent *guest.FileDescriptor, path string, oflags wasi.Oflags, rightsBase, rightsInheriting wasi.Rights, fdflags wasi.Fdflags, _ wasi.Lookupflags) (*guest.FileDescriptor, *guest.Fault) {
	if n.readOnly {
		if oflags&(wasi.OflagsCreat|wasi.OflagsTrunc|wasi.OflagsExcl) != 0 || rightsBase.Has(wasi.RightFdWrite) {
			return nil, readOnlyFault("path_open")
		}
	}

	full := joinNative(parent, path)

	var flags int
	writable := rightsBase.Has(wasi.RightFdWrite)
	switch {
	case rightsBase.Has(wasi.RightFdRead) && writable:
		flags = os.O_RDWR
	case writable:
		flags = os.O_WRONLY
	default:
		flags = os.O_RDONLY
	}
	if oflags&wasi.OflagsCreat != 0 {
		flags |= os.O_CREATE
	}
	if oflags&wasi.OflagsExcl != 0 {
		flags |= os.O_EXCL
	}
	if oflags&wasi.OflagsTrunc != 0 {
		flags |= os.O_TRUNC
	}
	if fdflags&wasi.FdflagsAppend != 0 {
		flags |= os.O_APPEND
	}
	if fdflags&wasi.FdflagsSync != 0 {
		flags |= os.O_SYNC
	}

	if oflags&wasi.OflagsDirectory != 0 {
		fi, err := os.Stat(full)
		if err != nil {
			return nil, fault("path_open", err)
		}
		if !fi.IsDir() {
			return nil, guest.NewFault("path_open", wasi.ErrnoNotdir, "%s is not a directory", path)
		}
		desc := &guest.FileDescriptor{
			DeviceID:         "nativefs",
			Filetype:         wasi.FiletypeDirectory,
			RightsBase:       rightsBase,
			RightsInheriting: rightsInheriting,
			Backend:          &dirStream{path: full},
		}
		if n.readOnly {
			ApplyReadOnlyMask(desc)
		}
		return desc, nil
	}

	f, err := os.OpenFile(full, flags, 0o644)
	if err != nil {
		return nil, fault("path_open", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fault("path_open", err)
	}
	ft := wasi.FiletypeRegularFile
	if fi.IsDir() {
		ft = wasi.FiletypeDirectory
	}
	desc := &guest.FileDescriptor{
		DeviceID:         "nativefs",
		Filetype:         ft,
		RightsBase:       rightsBase,
		RightsInheriting: rightsInheriting,
		Fdflags:          fdflags,
		Backend:          &fileHandle{f: f},
	}
	if n.readOnly {
		ApplyReadOnlyMask(desc)
	}
	return desc, nil
}

func (NativeFS) PathReadlink(parent *guest.FileDescriptor, path string, buf []byte) (int, *guest.Fault) {
	target, err := os.Readlink(joinNative(parent, path))
	if err != nil {
		return 0, fault("path_readlink", err)
	}
	n := copy(buf, target)
	return n, nil
}

func (n NativeFS) PathRemoveDirectory(parent *guest.FileDescriptor, path string) *guest.Fault {
	if n.readOnly {
		return readOnlyFault("path_remove_directory")
	}
	return fault("path_remove_directory", os.Remove(joinNative(parent, path)))
}

func (n NativeFS) PathRename(oldParent *guest.FileDescriptor, oldPath string, newParent *guest.FileDescriptor, newPath string) *guest.Fault {
	if n.readOnly {
		return readOnlyFault("path_rename")
	}
	return fault("path_rename", os.Rename(joinNative(oldParent, oldPath), joinNative(newParent, newPath)))
}

func (n NativeFS) PathSymlink(oldPath string, parent *guest.FileDescriptor, newPath string) *guest.Fault {
	if n.readOnly {
		return readOnlyFault("path_symlink")
	}
	return fault("path_symlink", os.Symlink(oldPath, joinNative(parent, newPath)))
}

func (n NativeFS) PathUnlinkFile(parent *guest.FileDescriptor, path string) *guest.Fault {
	if n.readOnly {
		return readOnlyFault("path_unlink_file")
	}
	return fault("path_unlink_file", os.Remove(joinNative(parent, path)))
}

// joinNative resolves path against the native directory backing parent.
// parent is always a directory descriptor opened by NativeFS.
func joinNative(parent *guest.FileDescriptor, path string) string {
	if d, ok := parent.Backend.(*dirStream); ok {
		return filepath.Join(d.path, path)
	}
	return path
}
