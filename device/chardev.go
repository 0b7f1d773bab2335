package device

import (
	"encoding/base64"

	"github.com/wasi-embed/hostrt/guest"
	"github.com/wasi-embed/hostrt/rpc"
	"github.com/wasi-embed/hostrt/wasi"
)

// reserved chardev RPC methods. Unlike application methods these travel
// through the same transport Dispatch/SendRequest pair every other request
// does; they are just host-registered handlers on a well-known name.
const (
	methodStdioRead  = "$/stdio.read"
	methodStdioWrite = "$/stdio.write"
)

type charHandle struct {
	stream string // "stdin", "stdout", or "stderr"
}

// CharDev implements stdin/stdout/stderr over the host-RPC transport:
// fd_read blocks on a request to the host's stdio.read handler until bytes
// arrive or EOF, fd_write posts bytes to stdio.write. Both block on the same
// sync-word rendezvous every other RPC call uses (rpc.Client.SendRequest),
// so a chardev read is indistinguishable, from the dispatcher's point of
// view, from any other host round trip.
type CharDev struct {
	client *rpc.Client
}

func NewCharDev(client *rpc.Client) *CharDev { return &CharDev{client: client} }

func (c *CharDev) ID() string { return "chardev" }

func (c *CharDev) FdAdvise(*guest.FileDescriptor, uint64, uint64, wasi.Advice) *guest.Fault { return nil }
func (c *CharDev) FdAllocate(*guest.FileDescriptor, uint64, uint64) *guest.Fault {
	return guest.NewFault("fd_allocate", wasi.ErrnoSpipe, "character device is not seekable")
}
func (c *CharDev) FdClose(*guest.FileDescriptor) *guest.Fault    { return nil }
func (c *CharDev) FdDatasync(*guest.FileDescriptor) *guest.Fault { return nil }
func (c *CharDev) FdSync(*guest.FileDescriptor) *guest.Fault     { return nil }
func (c *CharDev) FdRenumber(*guest.FileDescriptor) *guest.Fault { return nil }

func (c *CharDev) FdFdstatGet(f *guest.FileDescriptor) (wasi.Fdflags, *guest.Fault) { return f.Fdflags, nil }
func (c *CharDev) FdFdstatSetFlags(f *guest.FileDescriptor, flags wasi.Fdflags) *guest.Fault {
	f.Fdflags = flags
	return nil
}

func (c *CharDev) FdFilestatGet(*guest.FileDescriptor) (FileStatInfo, *guest.Fault) {
	return FileStatInfo{Filetype: wasi.FiletypeCharacterDevice}, nil
}

func (c *CharDev) FdFilestatSetSize(*guest.FileDescriptor, uint64) *guest.Fault {
	return guest.NewFault("fd_filestat_set_size", wasi.ErrnoInval, "character device has no size")
}

func (c *CharDev) FdFilestatSetTimes(*guest.FileDescriptor, uint64, uint64, wasi.Fstflags) *guest.Fault {
	return guest.NewFault("fd_filestat_set_times", wasi.ErrnoInval, "character device has no timestamps")
}

func (c *CharDev) FdPread(*guest.FileDescriptor, []byte, uint64) (int, *guest.Fault) {
	return 0, guest.NewFault("fd_pread", wasi.ErrnoSpipe, "character device is not seekable")
}

func (c *CharDev) FdPwrite(*guest.FileDescriptor, []byte, uint64) (int, *guest.Fault) {
	return 0, guest.NewFault("fd_pwrite", wasi.ErrnoSpipe, "character device is not seekable")
}

func (c *CharDev) FdRead(f *guest.FileDescriptor, buf []byte) (int, *guest.Fault) {
	h := f.Backend.(*charHandle)
	res, err := c.client.SendRequest(methodStdioRead, map[string]any{"stream": h.stream, "n": len(buf)}, nil, rpc.KindVariable, 0)
	if err != nil {
		return 0, guest.WrapFault("fd_read", wasi.ErrnoIo, err, "%v", err)
	}
	if res.Errno != rpc.ErrnoOK {
		return 0, guest.NewFault("fd_read", wasi.ErrnoIo, "host stdio.read handler failed")
	}
	encoded, _ := res.Value.(string)
	if encoded == "" {
		return 0, nil // EOF
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return 0, guest.NewFault("fd_read", wasi.ErrnoBadmsg, "malformed stdio payload")
	}
	return copy(buf, data), nil
}

func (c *CharDev) FdWrite(f *guest.FileDescriptor, data []byte) (int, *guest.Fault) {
	h := f.Backend.(*charHandle)
	res, err := c.client.SendRequest(methodStdioWrite, map[string]any{"stream": h.stream}, data, rpc.KindNone, 0)
	if err != nil {
		return 0, guest.WrapFault("fd_write", wasi.ErrnoIo, err, "%v", err)
	}
	if res.Errno != rpc.ErrnoOK {
		return 0, guest.NewFault("fd_write", wasi.ErrnoIo, "host stdio.write handler failed")
	}
	return len(data), nil
}

func (c *CharDev) FdReaddir(*guest.FileDescriptor, uint64, int) ([]DirEntry, *guest.Fault) {
	return nil, guest.NewFault("fd_readdir", wasi.ErrnoNotdir, "character device is not a directory")
}

func (c *CharDev) FdSeek(*guest.FileDescriptor, int64, wasi.Whence) (uint64, *guest.Fault) {
	return 0, guest.NewFault("fd_seek", wasi.ErrnoSpipe, "character device is not seekable")
}

func (c *CharDev) FdTell(*guest.FileDescriptor) (uint64, *guest.Fault) {
	return 0, guest.NewFault("fd_tell", wasi.ErrnoSpipe, "character device is not seekable")
}

func (c *CharDev) FdBytesAvailable(*guest.FileDescriptor) (uint64, *guest.Fault) { return 0, nil }

func (c *CharDev) PathCreateDirectory(*guest.FileDescriptor, string) *guest.Fault {
	return guest.NewFault("path_create_directory", wasi.ErrnoNotdir, "character device is not a directory")
}
func (c *CharDev) PathFilestatGet(*guest.FileDescriptor, string, wasi.Lookupflags) (FileStatInfo, *guest.Fault) {
	return FileStatInfo{}, guest.NewFault("path_filestat_get", wasi.ErrnoNotdir, "character device is not a directory")
}
func (c *CharDev) PathFilestatSetTimes(*guest.FileDescriptor, string, uint64, uint64, wasi.Fstflags, wasi.Lookupflags) *guest.Fault {
	return guest.NewFault("path_filestat_set_times", wasi.ErrnoNotdir, "character device is not a directory")
}
func (c *CharDev) PathLink(*guest.FileDescriptor, string, *guest.FileDescriptor, string, wasi.Lookupflags) *guest.Fault {
	return guest.NewFault("path_link", wasi.ErrnoNotdir, "character device is not a directory")
}
func (c *CharDev) PathOpen(*guest.FileDescriptor, string, wasi.Oflags, wasi.Rights, wasi.Rights, wasi.Fdflags, wasi.Lookupflags) (*guest.FileDescriptor, *guest.Fault) {
	return nil, guest.NewFault("path_open", wasi.ErrnoNotdir, "character device is not a directory")
}
func (c *CharDev) PathReadlink(*guest.FileDescriptor, string, []byte) (int, *guest.Fault) {
	return 0, guest.NewFault("path_readlink", wasi.ErrnoNotdir, "character device is not a directory")
}
func (c *CharDev) PathRemoveDirectory(*guest.FileDescriptor, string) *guest.Fault {
	return guest.NewFault("path_remove_directory", wasi.ErrnoNotdir, "character device is not a directory")
}
func (c *CharDev) PathRename(*guest.FileDescriptor, string, *guest.FileDescriptor, string) *guest.Fault {
	return guest.NewFault("path_rename", wasi.ErrnoNotdir, "character device is not a directory")
}
func (c *CharDev) PathSymlink(string, *guest.FileDescriptor, string) *guest.Fault {
	return guest.NewFault("path_symlink", wasi.ErrnoNotdir, "character device is not a directory")
}
func (c *CharDev) PathUnlinkFile(*guest.FileDescriptor, string) *guest.Fault {
	return guest.NewFault("path_unlink_file", wasi.ErrnoNotdir, "character device is not a directory")
}

// NewStdioDescriptor builds a stdio FileDescriptor for one of the three
// reserved slots, with the stdio-specific rights spec.md §4.6 defines.
func NewStdioDescriptor(stream string, base wasi.Rights) *guest.FileDescriptor {
	return &guest.FileDescriptor{
		DeviceID:   "chardev",
		Filetype:   wasi.FiletypeCharacterDevice,
		RightsBase: base,
		Backend:    &charHandle{stream: stream},
	}
}
