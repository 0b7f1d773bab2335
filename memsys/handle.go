package memsys

import (
	"encoding/binary"
	"sync"

	cuckoo "github.com/seiflotfy/cuckoofilter"

	"github.com/wasi-embed/hostrt/cmn/debug"
)

// Handle is a 32-bit resource handle encoding `(generation << shift) | ptr`,
// where shift = log2(region.size). Handles minted for the same pointer
// after intervening frees carry different generations, so a caller that
// dereferences a stale handle can always be told "no, that's gone" instead
// of silently aliasing a reused slot.
type Handle uint32

func (h Handle) ptr(shift uint) uint32        { return uint32(h) & ((1 << shift) - 1) }
func (h Handle) generation(shift uint) uint32 { return uint32(h) >> shift }

// HandleTable mints and validates resource handles over a Region. Each
// tracked pointer gets a 4-byte shared generation cell (bumped on every
// Free), plus a probabilistic cuckoo filter of handles known to be stale:
// a filter miss proves a handle was never freed without touching the
// shared generation cell at all, which is the common case on a hot path
// that mostly re-validates live handles. A filter hit only means "go do
// the authoritative check" — false positives never cause a live handle to
// be rejected.
type HandleTable struct {
	region *Region
	shift  uint

	mu   sync.Mutex
	cell map[uint32]MemoryRange // ptr -> 4-byte generation cell
	live map[uint32]bool

	stale *cuckoo.Filter
}

func NewHandleTable(region *Region) *HandleTable {
	return &HandleTable{
		region: region,
		shift:  region.shift(),
		cell:   make(map[uint32]MemoryRange),
		live:   make(map[uint32]bool),
		stale:  cuckoo.NewFilter(4096),
	}
}

func (t *HandleTable) cellFor(ptr uint32) MemoryRange {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.cell[ptr]
	if !ok {
		c = t.region.Alloc(4, 4)
		t.cell[ptr] = c
	}
	return c
}

// Mint returns the current, live handle for ptr.
func (t *HandleTable) Mint(ptr uint32) Handle {
	debug.Assertf(ptr < (1<<t.shift), "ptr %d exceeds region size", ptr)
	c := t.cellFor(ptr)
	gen := t.region.AtomicLoad32(c.Offset())
	t.mu.Lock()
	t.live[ptr] = true
	t.mu.Unlock()
	return Handle((gen << t.shift) | ptr)
}

// Free invalidates the current handle for ptr: the generation cell is
// bumped so any handle minted before this call becomes detectably stale.
func (t *HandleTable) Free(ptr uint32) {
	c := t.cellFor(ptr)
	oldGen := t.region.AtomicLoad32(c.Offset())
	stale := Handle((oldGen << t.shift) | ptr)
	t.region.AtomicAdd32(c.Offset(), 1)

	t.mu.Lock()
	t.live[ptr] = false
	t.mu.Unlock()

	t.stale.InsertUnique(handleKey(stale))
}

// Valid reports whether h still refers to a live, un-freed slot.
func (t *HandleTable) Valid(h Handle) bool {
	if !t.stale.Lookup(handleKey(h)) {
		return true // definitely never freed
	}
	ptr := h.ptr(t.shift)
	t.mu.Lock()
	c, ok := t.cell[ptr]
	isLive := t.live[ptr]
	t.mu.Unlock()
	if !ok || !isLive {
		return false
	}
	return t.region.AtomicLoad32(c.Offset()) == h.generation(t.shift)
}

func (t *HandleTable) Ptr(h Handle) uint32        { return h.ptr(t.shift) }
func (t *HandleTable) Generation(h Handle) uint32 { return h.generation(t.shift) }

func handleKey(h Handle) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(h))
	return b[:]
}
