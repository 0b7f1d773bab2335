package device

import (
	"errors"
	"io/fs"

	"golang.org/x/sys/unix"

	"github.com/wasi-embed/hostrt/wasi"
)

// nativeErrno maps a host syscall errno to the WASI errno spec.md §4.8
// names explicitly (ERR_ACCESS_DENIED → acces, ERR_FS_EISDIR → isdir,
// ENOENT → noent, ENOTEMPTY → notempty, etc). Anything not named falls
// through to io, the fixed default spec.md §7 prescribes for unmapped
// backend failures.
func nativeErrno(err error) wasi.Errno {
	if err == nil {
		return wasi.ErrnoSuccess
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return wasi.ErrnoNoent
	case errors.Is(err, fs.ErrExist):
		return wasi.ErrnoExist
	case errors.Is(err, fs.ErrPermission):
		return wasi.ErrnoAcces
	}

	var errno unix.Errno
	if !errors.As(err, &errno) {
		return wasi.ErrnoIo
	}
	switch errno {
	case unix.EACCES:
		return wasi.ErrnoAcces
	case unix.EPERM:
		return wasi.ErrnoPerm
	case unix.ENOENT:
		return wasi.ErrnoNoent
	case unix.EEXIST:
		return wasi.ErrnoExist
	case unix.EISDIR:
		return wasi.ErrnoIsdir
	case unix.ENOTDIR:
		return wasi.ErrnoNotdir
	case unix.ENOTEMPTY:
		return wasi.ErrnoNotempty
	case unix.ENOSPC:
		return wasi.ErrnoNospc
	case unix.EROFS:
		return wasi.ErrnoRofs
	case unix.EINVAL:
		return wasi.ErrnoInval
	case unix.EMFILE:
		return wasi.ErrnoMfile
	case unix.ENFILE:
		return wasi.ErrnoNfile
	case unix.ENAMETOOLONG:
		return wasi.ErrnoNametoolong
	case unix.ELOOP:
		return wasi.ErrnoLoop
	case unix.EXDEV:
		return wasi.ErrnoXdev
	case unix.ENOSYS:
		return wasi.ErrnoNosys
	case unix.EBADF:
		return wasi.ErrnoBadf
	case unix.ESPIPE:
		return wasi.ErrnoSpipe
	case unix.EIO:
		return wasi.ErrnoIo
	default:
		return wasi.ErrnoIo
	}
}
