// Package mount implements the root filesystem & mount table (C10): an
// ordered, longest-prefix-match list of mount points, the pre-open sequence
// that advertises them to the guest as file descriptors 3..N, and the root
// multiplexer that dispatches absolute-path operations to the owning
// device driver.
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package mount

import (
	"sort"
	"strings"

	"github.com/wasi-embed/hostrt/device"
	"github.com/wasi-embed/hostrt/guest"
	"github.com/wasi-embed/hostrt/wasi"
)

// Entry is one mount point: an absolute prefix, the driver backing it, and
// the directory FileDescriptor representing that driver's root, handed to
// the guest as a pre-open.
type Entry struct {
	Prefix string
	Driver device.Driver
	Root   *guest.FileDescriptor
}

// Table is the ordered mount list spec.md §3/§4.9 describes. Resolution is
// longest-prefix-match; entries are kept sorted by descending prefix length
// so the first match found is always the most specific one.
type Table struct {
	entries  []Entry // sorted by descending prefix length, for Resolve
	preOrder []Entry // registration order, for PreOpen
}

func NewTable() *Table { return &Table{} }

// Add registers a mount point. Prefix must be absolute (leading "/").
func (t *Table) Add(prefix string, driver device.Driver, root *guest.FileDescriptor) {
	root.PreopenName = prefix
	root.DeviceID = driver.ID()
	e := Entry{Prefix: prefix, Driver: driver, Root: root}
	t.preOrder = append(t.preOrder, e)
	t.entries = append(t.entries, e)
	sort.SliceStable(t.entries, func(i, j int) bool {
		return len(t.entries[i].Prefix) > len(t.entries[j].Prefix)
	})
}

// Resolve finds the longest registered prefix matching path and returns the
// owning entry plus the path stripped of that prefix.
func (t *Table) Resolve(path string) (Entry, string, bool) {
	canon := Canonicalize(path)
	for _, e := range t.entries {
		if e.Prefix == "/" || canon == e.Prefix || strings.HasPrefix(canon, e.Prefix+"/") {
			residual := strings.TrimPrefix(canon, e.Prefix)
			residual = strings.TrimPrefix(residual, "/")
			return e, residual, true
		}
	}
	return Entry{}, "", false
}

// Canonicalize collapses "." and ".." segments without ever escaping above
// the root, per spec.md §4.9's "no .. escape out of a mount" requirement.
func Canonicalize(path string) string {
	segs := strings.Split(path, "/")
	var out []string
	for _, s := range segs {
		switch s {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, s)
		}
	}
	return "/" + strings.Join(out, "/")
}

// PreOpen installs every mount's root into fdt, starting at fd 3, in
// registration order. Table.entries is kept sorted by descending prefix
// length for Resolve's benefit, so PreOpen walks preOrder instead, which
// Add maintains in registration order.
func (t *Table) PreOpen(fdt *guest.FDTable) {
	for _, e := range t.preOrder {
		fdt.Insert(e.Root)
	}
}

// Prestat reports the prestat tag and pre-open name length for fd, per
// fd_prestat_get.
func Prestat(fdt *guest.FDTable, fd uint32) (wasi.Preopentype, uint32, *guest.Fault) {
	f, fault := fdt.Get(fd)
	if fault != nil {
		return 0, 0, fault
	}
	if f.PreopenName == "" {
		return 0, 0, guest.NewFault("fd_prestat_get", wasi.ErrnoBadf, "fd %d is not a pre-open", fd)
	}
	return wasi.PreopentypeDir, uint32(len(f.PreopenName)), nil
}

// PrestatDirName copies fd's pre-open name into buf, per fd_prestat_dir_name.
func PrestatDirName(fdt *guest.FDTable, fd uint32, buf []byte) *guest.Fault {
	f, fault := fdt.Get(fd)
	if fault != nil {
		return fault
	}
	if f.PreopenName == "" {
		return guest.NewFault("fd_prestat_dir_name", wasi.ErrnoBadf, "fd %d is not a pre-open", fd)
	}
	if len(buf) < len(f.PreopenName) {
		return guest.NewFault("fd_prestat_dir_name", wasi.ErrnoNametoolong, "buffer too small for %q", f.PreopenName)
	}
	copy(buf, f.PreopenName)
	return nil
}
