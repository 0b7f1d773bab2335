package device

import (
	"sort"
	"sync"

	"github.com/wasi-embed/hostrt/guest"
	"github.com/wasi-embed/hostrt/wasi"
)

// WorkspaceBackend is the host editor's file-system API, kept as a narrow
// interface so WorkspaceFS never has to know which editor embeds it.
type WorkspaceBackend interface {
	Stat(path string) (isDir bool, size int64, mtimeNs int64, err error)
	ReadDir(path string) (names []string, isDir []bool, err error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	Mkdir(path string) error
	Remove(path string) error
	Rename(oldPath, newPath string) error
}

type workspaceHandle struct {
	path    string
	isDir   bool
	data    []byte // loaded lazily on first fd_read for a regular file
	loaded  bool
	cursor  int64
	entries []string // materialized once per directory stream, spec's single-use cursor
	dirPos  int
}

// WorkspaceFS delegates to a WorkspaceBackend. Inode numbers are manufactured
// from a monotonic counter keyed by absolute path, since the editor API has
// no native inode concept. Symbolic links, hard links and explicit
// timestamps are not supported: those ops fail with nosys in either mode. A
// read-only instance masks every opened descriptor's rights and rejects
// every other mutating op with perm, per spec.md §4.8; fd_sync and
// fd_datasync on it write nothing back.
type WorkspaceFS struct {
	backend  WorkspaceBackend
	readOnly bool

	mu     sync.Mutex
	inodes map[string]uint64
	nextID uint64
}

func NewWorkspaceFS(backend WorkspaceBackend) *WorkspaceFS {
	return &WorkspaceFS{backend: backend, inodes: make(map[string]uint64), nextID: 1}
}

// NewReadOnlyWorkspaceFS mounts the same editor backend with every
// mutating WASI op rejected.
func NewReadOnlyWorkspaceFS(backend WorkspaceBackend) *WorkspaceFS {
	return &WorkspaceFS{backend: backend, readOnly: true, inodes: make(map[string]uint64), nextID: 1}
}

func (w *WorkspaceFS) ID() string { return "workspacefs" }

func (w *WorkspaceFS) inodeFor(path string) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if id, ok := w.inodes[path]; ok {
		return id
	}
	id := w.nextID
	w.nextID++
	w.inodes[path] = id
	return id
}

func (w *WorkspaceFS) statInfo(path string) (FileStatInfo, *guest.Fault) {
	isDir, size, mtimeNs, err := w.backend.Stat(path)
	if err != nil {
		return FileStatInfo{}, fault("workspacefs_stat", err)
	}
	ft := wasi.FiletypeRegularFile
	if isDir {
		ft = wasi.FiletypeDirectory
	}
	return FileStatInfo{Ino: w.inodeFor(path), Size: uint64(size), Mtim: uint64(mtimeNs), Filetype: ft}, nil
}

func (w *WorkspaceFS) FdAdvise(*guest.FileDescriptor, uint64, uint64, wasi.Advice) *guest.Fault {
	return nil // no native advise concept; treated as a harmless hint
}

func (w *WorkspaceFS) FdAllocate(*guest.FileDescriptor, uint64, uint64) *guest.Fault {
	if w.readOnly {
		return readOnlyFault("fd_allocate")
	}
	return guest.NewFault("fd_allocate", wasi.ErrnoNosys, "workspace backend has no preallocation")
}

func (w *WorkspaceFS) FdClose(*guest.FileDescriptor) *guest.Fault { return nil }

func (w *WorkspaceFS) FdDatasync(f *guest.FileDescriptor) *guest.Fault { return w.flush(f) }

func (w *WorkspaceFS) FdFdstatGet(f *guest.FileDescriptor) (wasi.Fdflags, *guest.Fault) {
	return f.Fdflags, nil
}

func (w *WorkspaceFS) FdFdstatSetFlags(f *guest.FileDescriptor, flags wasi.Fdflags) *guest.Fault {
	f.Fdflags = flags
	return nil
}

func (w *WorkspaceFS) FdFilestatGet(f *guest.FileDescriptor) (FileStatInfo, *guest.Fault) {
	h := f.Backend.(*workspaceHandle)
	return w.statInfo(h.path)
}

func (w *WorkspaceFS) FdFilestatSetSize(f *guest.FileDescriptor, size uint64) *guest.Fault {
	if w.readOnly {
		return readOnlyFault("fd_filestat_set_size")
	}
	h := f.Backend.(*workspaceHandle)
	if err := w.ensureLoaded(h); err != nil {
		return err
	}
	if int(size) <= len(h.data) {
		h.data = h.data[:size]
	} else {
		h.data = append(h.data, make([]byte, int(size)-len(h.data))...)
	}
	return w.flush(f)
}

func (w *WorkspaceFS) FdFilestatSetTimes(*guest.FileDescriptor, uint64, uint64, wasi.Fstflags) *guest.Fault {
	return guest.NewFault("fd_filestat_set_times", wasi.ErrnoNosys, "workspace backend has no explicit timestamps")
}

func (w *WorkspaceFS) ensureLoaded(h *workspaceHandle) *guest.Fault {
	if h.loaded || h.isDir {
		return nil
	}
	data, err := w.backend.ReadFile(h.path)
	if err != nil {
		return fault("workspacefs_read", err)
	}
	h.data = data
	h.loaded = true
	return nil
}

func (w *WorkspaceFS) flush(f *guest.FileDescriptor) *guest.Fault {
	h := f.Backend.(*workspaceHandle)
	if h.isDir || !h.loaded || w.readOnly {
		return nil
	}
	return fault("workspacefs_write", w.backend.WriteFile(h.path, h.data))
}

func (w *WorkspaceFS) FdPread(f *guest.FileDescriptor, buf []byte, offset uint64) (int, *guest.Fault) {
	h := f.Backend.(*workspaceHandle)
	if fa := w.ensureLoaded(h); fa != nil {
		return 0, fa
	}
	if int(offset) >= len(h.data) {
		return 0, nil
	}
	return copy(buf, h.data[offset:]), nil
}

func (w *WorkspaceFS) FdPwrite(f *guest.FileDescriptor, data []byte, offset uint64) (int, *guest.Fault) {
	if w.readOnly {
		return 0, readOnlyFault("fd_pwrite")
	}
	h := f.Backend.(*workspaceHandle)
	if fa := w.ensureLoaded(h); fa != nil {
		return 0, fa
	}
	end := int(offset) + len(data)
	if end > len(h.data) {
		h.data = append(h.data, make([]byte, end-len(h.data))...)
	}
	copy(h.data[offset:], data)
	return len(data), w.flush(f)
}

func (w *WorkspaceFS) FdRead(f *guest.FileDescriptor, buf []byte) (int, *guest.Fault) {
	h := f.Backend.(*workspaceHandle)
	n, fa := w.FdPread(f, buf, uint64(h.cursor))
	if fa != nil {
		return 0, fa
	}
	h.cursor += int64(n)
	return n, nil
}

func (w *WorkspaceFS) FdReaddir(f *guest.FileDescriptor, cookie uint64, maxEntries int) ([]DirEntry, *guest.Fault) {
	h := f.Backend.(*workspaceHandle)
	if cookie == 0 {
		names, isDir, err := w.backend.ReadDir(h.path)
		if err != nil {
			return nil, fault("fd_readdir", err)
		}
		sort.Strings(names)
		h.entries = names
		h.dirPos = 0
		_ = isDir
	}
	var out []DirEntry
	for h.dirPos < len(h.entries) && len(out) < maxEntries {
		name := h.entries[h.dirPos]
		h.dirPos++
		out = append(out, DirEntry{Next: uint64(h.dirPos), Ino: w.inodeFor(h.path + "/" + name), Name: name, Filetype: wasi.FiletypeRegularFile})
	}
	if h.dirPos >= len(h.entries) {
		h.entries = nil // exhausted; reOpen on next cookie==0 call
	}
	return out, nil
}

func (w *WorkspaceFS) FdSeek(f *guest.FileDescriptor, delta int64, whence wasi.Whence) (uint64, *guest.Fault) {
	h := f.Backend.(*workspaceHandle)
	if fa := w.ensureLoaded(h); fa != nil {
		return 0, fa
	}
	var base int64
	switch whence {
	case wasi.WhenceSet:
		base = 0
	case wasi.WhenceCur:
		base = h.cursor
	case wasi.WhenceEnd:
		base = int64(len(h.data))
	}
	h.cursor = base + delta
	return uint64(h.cursor), nil
}

func (w *WorkspaceFS) FdRenumber(*guest.FileDescriptor) *guest.Fault { return nil }
func (w *WorkspaceFS) FdSync(f *guest.FileDescriptor) *guest.Fault   { return w.flush(f) }

func (w *WorkspaceFS) FdTell(f *guest.FileDescriptor) (uint64, *guest.Fault) {
	return uint64(f.Backend.(*workspaceHandle).cursor), nil
}

func (w *WorkspaceFS) FdWrite(f *guest.FileDescriptor, data []byte) (int, *guest.Fault) {
	h := f.Backend.(*workspaceHandle)
	n, fa := w.FdPwrite(f, data, uint64(h.cursor))
	if fa != nil {
		return 0, fa
	}
	h.cursor += int64(n)
	return n, nil
}

func (w *WorkspaceFS) FdBytesAvailable(f *guest.FileDescriptor) (uint64, *guest.Fault) {
	h := f.Backend.(*workspaceHandle)
	if fa := w.ensureLoaded(h); fa != nil {
		return 0, fa
	}
	if rem := int64(len(h.data)) - h.cursor; rem > 0 {
		return uint64(rem), nil
	}
	return 0, nil
}

func (w *WorkspaceFS) PathCreateDirectory(parent *guest.FileDescriptor, path string) *guest.Fault {
	if w.readOnly {
		return readOnlyFault("path_create_directory")
	}
	return fault("path_create_directory", w.backend.Mkdir(joinWorkspace(parent, path)))
}

func (w *WorkspaceFS) PathFilestatGet(parent *guest.FileDescriptor, path string, _ wasi.Lookupflags) (FileStatInfo, *guest.Fault) {
	return w.statInfo(joinWorkspace(parent, path))
}

func (w *WorkspaceFS) PathFilestatSetTimes(*guest.FileDescriptor, string, uint64, uint64, wasi.Fstflags, wasi.Lookupflags) *guest.Fault {
	return guest.NewFault("path_filestat_set_times", wasi.ErrnoNosys, "workspace backend has no explicit timestamps")
}

func (w *WorkspaceFS) PathLink(*guest.FileDescriptor, string, *guest.FileDescriptor, string, wasi.Lookupflags) *guest.Fault {
	return guest.NewFault("path_link", wasi.ErrnoNosys, "workspace backend has no hard links")
}

func (w *WorkspaceFS) PathOpen(parent *guest.FileDescriptor, path string, oflags wasi.Oflags, rightsBase, rightsInheriting wasi.Rights, fdflags wasi.Fdflags, _ wasi.Lookupflags) (*guest.FileDescriptor, *guest.Fault) {
	if w.readOnly {
		if oflags&(wasi.OflagsCreat|wasi.OflagsTrunc|wasi.OflagsExcl) != 0 || rightsBase.Has(wasi.RightFdWrite) {
			return nil, readOnlyFault("path_open")
		}
	}

	full := joinWorkspace(parent, path)
	isDir, _, _, err := w.backend.Stat(full)
	notFound := err != nil
	if notFound && oflags&wasi.OflagsCreat == 0 {
		return nil, fault("path_open", err)
	}
	if notFound {
		if werr := w.backend.WriteFile(full, nil); werr != nil {
			return nil, fault("path_open", werr)
		}
		isDir = false
	} else if oflags&wasi.OflagsExcl != 0 {
		return nil, guest.NewFault("path_open", wasi.ErrnoExist, "%s already exists", path)
	}
	ft := wasi.FiletypeRegularFile
	if isDir {
		ft = wasi.FiletypeDirectory
	}
	h := &workspaceHandle{path: full, isDir: isDir}
	if !isDir && oflags&wasi.OflagsTrunc != 0 {
		h.data, h.loaded = nil, true
		if werr := w.backend.WriteFile(full, nil); werr != nil {
			return nil, fault("path_open", werr)
		}
	}
	desc := &guest.FileDescriptor{
		DeviceID:         "workspacefs",
		Filetype:         ft,
		RightsBase:       rightsBase,
		RightsInheriting: rightsInheriting,
		Fdflags:          fdflags,
		Inode:            w.inodeFor(full),
		Backend:          h,
	}
	if w.readOnly {
		ApplyReadOnlyMask(desc)
	}
	return desc, nil
}

func (w *WorkspaceFS) PathReadlink(*guest.FileDescriptor, string, []byte) (int, *guest.Fault) {
	return 0, guest.NewFault("path_readlink", wasi.ErrnoInval, "not a symlink")
}

func (w *WorkspaceFS) PathRemoveDirectory(parent *guest.FileDescriptor, path string) *guest.Fault {
	if w.readOnly {
		return readOnlyFault("path_remove_directory")
	}
	return fault("path_remove_directory", w.backend.Remove(joinWorkspace(parent, path)))
}

func (w *WorkspaceFS) PathRename(oldParent *guest.FileDescriptor, oldPath string, newParent *guest.FileDescriptor, newPath string) *guest.Fault {
	if w.readOnly {
		return readOnlyFault("path_rename")
	}
	return fault("path_rename", w.backend.Rename(joinWorkspace(oldParent, oldPath), joinWorkspace(newParent, newPath)))
}

func (w *WorkspaceFS) PathSymlink(string, *guest.FileDescriptor, string) *guest.Fault {
	return guest.NewFault("path_symlink", wasi.ErrnoNosys, "workspace backend has no symlinks")
}

func (w *WorkspaceFS) PathUnlinkFile(parent *guest.FileDescriptor, path string) *guest.Fault {
	if w.readOnly {
		return readOnlyFault("path_unlink_file")
	}
	return fault("path_unlink_file", w.backend.Remove(joinWorkspace(parent, path)))
}

func joinWorkspace(parent *guest.FileDescriptor, path string) string {
	if h, ok := parent.Backend.(*workspaceHandle); ok {
		return h.path + "/" + path
	}
	return path
}
