package guest

import (
	"sync"

	"github.com/wasi-embed/hostrt/cmn/mono"
	"github.com/wasi-embed/hostrt/wasi"
)

// Backend is opaque per-driver state a FileDescriptor carries (an open
// native handle, a directory stream cursor, an in-memory node pointer). The
// fd table never inspects it; only the owning device driver does.
type Backend any

// FileDescriptor is the guest-visible handle spec.md §3 describes: a
// (device, rights, filetype) tuple plus whatever state its backend needs.
type FileDescriptor struct {
	DeviceID         string
	FD               uint32
	Filetype         wasi.Filetype
	RightsBase       wasi.Rights
	RightsInheriting wasi.Rights
	Fdflags          wasi.Fdflags
	Inode            uint64
	Cursor           int64 // byte offset for seekable descriptors; unused for directories
	PreopenName      string
	Backend          Backend
}

// AssertBaseRights returns a *Fault unless needed is a subset of the
// descriptor's base rights.
func (f *FileDescriptor) AssertBaseRights(op string, needed wasi.Rights) *Fault {
	if !f.RightsBase.Has(needed) {
		return Notcapable(op, needed, f.RightsBase)
	}
	return nil
}

// AssertInheritingRights returns a *Fault unless needed is a subset of the
// descriptor's inheriting rights (checked before a path_open/path_link
// child is constructed).
func (f *FileDescriptor) AssertInheritingRights(op string, needed wasi.Rights) *Fault {
	if !f.RightsInheriting.Has(needed) {
		return Notcapable(op, needed, f.RightsInheriting)
	}
	return nil
}

// stdioFD are the three reserved, always-present descriptor slots.
const (
	StdinFD  uint32 = 0
	StdoutFD uint32 = 1
	StderrFD uint32 = 2

	firstDynamicFD uint32 = 3
)

// FDTable is the per-process `fd → FileDescriptor` map spec.md §4.7
// describes. fd 0/1/2 are reserved for stdio; pre-opens and path_open
// results occupy 3..N.
type FDTable struct {
	mu      sync.Mutex
	fds     map[uint32]*FileDescriptor
	touched map[uint32]int64 // fd -> mono.NanoTime() of last Get, for hk's stale-handle sweep
	next    uint32
}

// NewFDTable constructs an empty table. Callers install stdio descriptors
// via InstallStdio and pre-opens via Insert before handing the table to a
// running guest.
func NewFDTable() *FDTable {
	return &FDTable{fds: make(map[uint32]*FileDescriptor), touched: make(map[uint32]int64), next: firstDynamicFD}
}

// InstallStdio places descriptors at the three reserved stdio slots. A nil
// slot is left unpopulated (lookups against it fail with badf).
func (t *FDTable) InstallStdio(in, out, errfd *FileDescriptor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if in != nil {
		in.FD = StdinFD
		t.fds[StdinFD] = in
	}
	if out != nil {
		out.FD = StdoutFD
		t.fds[StdoutFD] = out
	}
	if errfd != nil {
		errfd.FD = StderrFD
		t.fds[StderrFD] = errfd
	}
}

// Insert allocates the next unused fd (starting at 3) and assigns it to f,
// returning the assigned id. Used both for pre-opens at mount time and for
// path_open results.
func (t *FDTable) Insert(f *FileDescriptor) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	fd := t.next
	for {
		if _, taken := t.fds[fd]; !taken {
			break
		}
		fd++
	}
	t.next = fd + 1
	f.FD = fd
	t.fds[fd] = f
	t.touched[fd] = mono.NanoTime()
	return fd
}

// Get looks up fd, returning a badf fault if absent. Every successful
// lookup counts as a touch for IdleDescriptors' benefit.
func (t *FDTable) Get(fd uint32) (*FileDescriptor, *Fault) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.fds[fd]
	if !ok {
		return nil, Badf("fd_lookup", fd)
	}
	t.touched[fd] = mono.NanoTime()
	return f, nil
}

// Close removes fd from the table. Closing an unknown fd is a badf fault;
// the caller (device dispatcher) is responsible for releasing any backend
// resource before or after calling Close.
func (t *FDTable) Close(fd uint32) *Fault {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.fds[fd]; !ok {
		return Badf("fd_close", fd)
	}
	delete(t.fds, fd)
	delete(t.touched, fd)
	return nil
}

// IdleDescriptors returns fds that haven't been looked up in at least
// maxIdleNs nanoseconds, excluding stdio and pre-opens (those live for the
// process's lifetime by design). Used by hk's stale-handle sweep.
func (t *FDTable) IdleDescriptors(maxIdleNs int64) []uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var idle []uint32
	now := mono.NanoTime()
	for fd, f := range t.fds {
		if fd < firstDynamicFD || f.PreopenName != "" {
			continue
		}
		if now-t.touched[fd] >= maxIdleNs {
			idle = append(idle, fd)
		}
	}
	return idle
}

// Renumber moves the entry at from onto to, replacing whatever previously
// occupied to. fd → descriptor remains a partial function throughout: the
// move is atomic under the table's lock, and an absent from is a badf fault.
func (t *FDTable) Renumber(from, to uint32) *Fault {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.fds[from]
	if !ok {
		return Badf("fd_renumber", from)
	}
	delete(t.fds, from)
	delete(t.touched, from)
	f.FD = to
	t.fds[to] = f
	t.touched[to] = mono.NanoTime()
	return nil
}

// Len reports the number of live descriptors, for tests and diagnostics.
func (t *FDTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.fds)
}

// CountsByDevice reports the number of live descriptors per DeviceID, for
// the stats package's per-device open-descriptor gauge.
func (t *FDTable) CountsByDevice() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	counts := make(map[string]int, len(t.fds))
	for _, f := range t.fds {
		counts[f.DeviceID]++
	}
	return counts
}
