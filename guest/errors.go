// Package guest implements the per-process guest-facing state: the file
// descriptor table and capability policy (C8), and the process options a
// guest is constructed with.
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package guest

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"github.com/wasi-embed/hostrt/wasi"
)

// Fault is a typed error carrying the WASI errno it maps to across the ABI
// boundary. Device drivers and the fd table both return *Fault rather than a
// bare error so the dispatcher never has to guess an errno for a known
// failure kind. Cause, when set, carries the underlying error's full chain
// (via pkg/errors.Wrap) for nlog to print in trace mode; the errno itself is
// the only thing that ever crosses the ABI.
type Fault struct {
	Errno wasi.Errno
	Op    string
	Msg   string
	Cause error
}

func (f *Fault) Error() string {
	if f.Msg == "" {
		return fmt.Sprintf("%s: %s", f.Op, f.Errno)
	}
	return fmt.Sprintf("%s: %s: %s", f.Op, f.Errno, f.Msg)
}

// Unwrap exposes Cause to errors.Is/errors.As, independent of the msg text.
func (f *Fault) Unwrap() error { return f.Cause }

func NewFault(op string, errno wasi.Errno, format string, a ...any) *Fault {
	return &Fault{Op: op, Errno: errno, Msg: fmt.Sprintf(format, a...)}
}

// WrapFault builds a Fault whose Cause is cause wrapped with pkg/errors,
// preserving a full stack-aware chain for trace-mode logging while msg
// stays the short, ABI-facing description.
func WrapFault(op string, errno wasi.Errno, cause error, format string, a ...any) *Fault {
	return &Fault{Op: op, Errno: errno, Msg: fmt.Sprintf(format, a...), Cause: pkgerrors.Wrap(cause, op)}
}

// Notcapable builds the capability-violation fault every rights check raises.
func Notcapable(op string, needed, have wasi.Rights) *Fault {
	return NewFault(op, wasi.ErrnoNotcapable, "needs %#x, have %#x", uint64(needed), uint64(have))
}

// Badf builds the fault raised for an unknown or closed file descriptor.
func Badf(op string, fd uint32) *Fault {
	return NewFault(op, wasi.ErrnoBadf, "no such descriptor: %d", fd)
}
