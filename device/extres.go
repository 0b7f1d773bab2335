package device

import (
	"io"

	"github.com/wasi-embed/hostrt/guest"
	"github.com/wasi-embed/hostrt/wasi"
)

// AssetStore is a pluggable, read-only source of bundled extension
// resources (SPEC_FULL §4.9.a). Concrete backends live under ext/assets:
// local disk, S3, Azure Blob, GCS, HDFS.
type AssetStore interface {
	Open(path string) (io.ReadCloser, int64, error)
	Stat(path string) (size int64, isDir bool, err error)
	List(dir string) ([]string, error)
}

type extresHandle struct {
	path   string
	isDir  bool
	data   []byte
	loaded bool
	cursor int64
	names  []string
	pos    int
}

// ExtRes is the extension-resource driver spec.md §4.8 describes: a
// read-only mount backed by bundled assets. Every mutating method is
// rejected with perm, matching the read-only enforcement wrapper the spec
// prescribes for read-only filesystems generally.
type ExtRes struct {
	store AssetStore
}

func NewExtRes(store AssetStore) *ExtRes { return &ExtRes{store: store} }

func (e *ExtRes) ID() string { return "extres" }

func readOnlyFault(op string) *guest.Fault {
	return guest.NewFault(op, wasi.ErrnoPerm, "mount is read-only")
}

func (e *ExtRes) load(h *extresHandle) *guest.Fault {
	if h.loaded {
		return nil
	}
	r, _, err := e.store.Open(h.path)
	if err != nil {
		return fault("extres_open", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return fault("extres_read", err)
	}
	h.data, h.loaded = data, true
	return nil
}

func (e *ExtRes) FdAdvise(*guest.FileDescriptor, uint64, uint64, wasi.Advice) *guest.Fault { return nil }
func (e *ExtRes) FdAllocate(*guest.FileDescriptor, uint64, uint64) *guest.Fault            { return readOnlyFault("fd_allocate") }
func (e *ExtRes) FdClose(*guest.FileDescriptor) *guest.Fault                               { return nil }
func (e *ExtRes) FdDatasync(*guest.FileDescriptor) *guest.Fault                            { return nil }
func (e *ExtRes) FdSync(*guest.FileDescriptor) *guest.Fault                                { return nil }
func (e *ExtRes) FdRenumber(*guest.FileDescriptor) *guest.Fault                            { return nil }

func (e *ExtRes) FdFdstatGet(f *guest.FileDescriptor) (wasi.Fdflags, *guest.Fault) { return f.Fdflags, nil }
func (e *ExtRes) FdFdstatSetFlags(*guest.FileDescriptor, wasi.Fdflags) *guest.Fault {
	return readOnlyFault("fd_fdstat_set_flags")
}

func (e *ExtRes) FdFilestatGet(f *guest.FileDescriptor) (FileStatInfo, *guest.Fault) {
	h := f.Backend.(*extresHandle)
	if h.isDir {
		return FileStatInfo{Filetype: wasi.FiletypeDirectory}, nil
	}
	size, _, err := e.store.Stat(h.path)
	if err != nil {
		return FileStatInfo{}, fault("fd_filestat_get", err)
	}
	return FileStatInfo{Filetype: wasi.FiletypeRegularFile, Size: uint64(size)}, nil
}

func (e *ExtRes) FdFilestatSetSize(*guest.FileDescriptor, uint64) *guest.Fault {
	return readOnlyFault("fd_filestat_set_size")
}

func (e *ExtRes) FdFilestatSetTimes(*guest.FileDescriptor, uint64, uint64, wasi.Fstflags) *guest.Fault {
	return readOnlyFault("fd_filestat_set_times")
}

func (e *ExtRes) FdPread(f *guest.FileDescriptor, buf []byte, offset uint64) (int, *guest.Fault) {
	h := f.Backend.(*extresHandle)
	if fa := e.load(h); fa != nil {
		return 0, fa
	}
	if int(offset) >= len(h.data) {
		return 0, nil
	}
	return copy(buf, h.data[offset:]), nil
}

func (e *ExtRes) FdPwrite(*guest.FileDescriptor, []byte, uint64) (int, *guest.Fault) {
	return 0, readOnlyFault("fd_pwrite")
}

func (e *ExtRes) FdRead(f *guest.FileDescriptor, buf []byte) (int, *guest.Fault) {
	h := f.Backend.(*extresHandle)
	n, fa := e.FdPread(f, buf, uint64(h.cursor))
	h.cursor += int64(n)
	return n, fa
}

func (e *ExtRes) FdWrite(*guest.FileDescriptor, []byte) (int, *guest.Fault) {
	return 0, readOnlyFault("fd_write")
}

func (e *ExtRes) FdSeek(f *guest.FileDescriptor, delta int64, whence wasi.Whence) (uint64, *guest.Fault) {
	h := f.Backend.(*extresHandle)
	if fa := e.load(h); fa != nil {
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

func (e *ExtRes) FdTell(f *guest.FileDescriptor) (uint64, *guest.Fault) {
	return uint64(f.Backend.(*extresHandle).cursor), nil
}

func (e *ExtRes) FdBytesAvailable(f *guest.FileDescriptor) (uint64, *guest.Fault) {
	h := f.Backend.(*extresHandle)
	if fa := e.load(h); fa != nil {
		return 0, fa
	}
	if rem := int64(len(h.data)) - h.cursor; rem > 0 {
		return uint64(rem), nil
	}
	return 0, nil
}

func (e *ExtRes) FdReaddir(f *guest.FileDescriptor, cookie uint64, maxEntries int) ([]DirEntry, *guest.Fault) {
	h, ok := f.Backend.(*extresHandle)
	if !ok {
		// a mount root carries no handle; like joinExtres, treat it as the
		// store's root directory
		h = &extresHandle{isDir: true}
		f.Backend = h
	}
	if cookie == 0 {
		names, err := e.store.List(h.path)
		if err != nil {
			return nil, fault("fd_readdir", err)
		}
		h.names, h.pos = names, 0
	}
	var out []DirEntry
	for h.pos < len(h.names) && len(out) < maxEntries {
		name := h.names[h.pos]
		h.pos++
		_, isDir, _ := e.store.Stat(h.path + "/" + name)
		ft := wasi.FiletypeRegularFile
		if isDir {
			ft = wasi.FiletypeDirectory
		}
		out = append(out, DirEntry{Next: uint64(h.pos), Name: name, Filetype: ft})
	}
	if h.pos >= len(h.names) {
		h.names = nil
	}
	return out, nil
}

func (e *ExtRes) PathCreateDirectory(*guest.FileDescriptor, string) *guest.Fault {
	return readOnlyFault("path_create_directory")
}

func (e *ExtRes) PathFilestatGet(parent *guest.FileDescriptor, path string, _ wasi.Lookupflags) (FileStatInfo, *guest.Fault) {
	full := joinExtres(parent, path)
	size, isDir, err := e.store.Stat(full)
	if err != nil {
		return FileStatInfo{}, fault("path_filestat_get", err)
	}
	ft := wasi.FiletypeRegularFile
	if isDir {
		ft = wasi.FiletypeDirectory
	}
	return FileStatInfo{Filetype: ft, Size: uint64(size)}, nil
}

func (e *ExtRes) PathFilestatSetTimes(*guest.FileDescriptor, string, uint64, uint64, wasi.Fstflags, wasi.Lookupflags) *guest.Fault {
	return readOnlyFault("path_filestat_set_times")
}

func (e *ExtRes) PathLink(*guest.FileDescriptor, string, *guest.FileDescriptor, string, wasi.Lookupflags) *guest.Fault {
	return readOnlyFault("path_link")
}

func (e *ExtRes) PathOpen(parent *guest.FileDescriptor, path string, oflags wasi.Oflags, rightsBase, rightsInheriting wasi.Rights, fdflags wasi.Fdflags, _ wasi.Lookupflags) (*guest.FileDescriptor, *guest.Fault) {
	full := joinExtres(parent, path)
	if oflags&(wasi.OflagsCreat|wasi.OflagsTrunc|wasi.OflagsExcl) != 0 {
		return nil, readOnlyFault("path_open")
	}
	size, isDir, err := e.store.Stat(full)
	if err != nil {
		return nil, fault("path_open", err)
	}
	ft := wasi.FiletypeRegularFile
	if isDir {
		ft = wasi.FiletypeDirectory
	}
	_ = size
	return &guest.FileDescriptor{
		DeviceID: "extres", Filetype: ft,
		RightsBase: rightsBase & wasi.ReadOnlyMask, RightsInheriting: rightsInheriting & wasi.ReadOnlyMask,
		Fdflags: fdflags,
		Backend: &extresHandle{path: full, isDir: isDir},
	}, nil
}

func (e *ExtRes) PathReadlink(*guest.FileDescriptor, string, []byte) (int, *guest.Fault) {
	return 0, guest.NewFault("path_readlink", wasi.ErrnoInval, "not a symlink")
}

func (e *ExtRes) PathRemoveDirectory(*guest.FileDescriptor, string) *guest.Fault {
	return readOnlyFault("path_remove_directory")
}

func (e *ExtRes) PathRename(*guest.FileDescriptor, string, *guest.FileDescriptor, string) *guest.Fault {
	return readOnlyFault("path_rename")
}

func (e *ExtRes) PathSymlink(string, *guest.FileDescriptor, string) *guest.Fault {
	return readOnlyFault("path_symlink")
}

func (e *ExtRes) PathUnlinkFile(*guest.FileDescriptor, string) *guest.Fault {
	return readOnlyFault("path_unlink_file")
}

func joinExtres(parent *guest.FileDescriptor, path string) string {
	if h, ok := parent.Backend.(*extresHandle); ok {
		return h.path + "/" + path
	}
	return path
}
