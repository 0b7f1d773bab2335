// Package memsys implements the shared-memory object kit: a linear-memory
// region with an allocator (C1), typed record layout (C2), lock/signal
// primitives (C3), and shared containers / resource handles (C4).
//
// The "shared memory" here is an ordinary Go byte slice guarded by atomic
// operations on its backing array, used exactly the way a SharedArrayBuffer
// would be used by a JS host/worker pair: multiple goroutines (standing in
// for host and guest threads) read and write the same bytes, and block on
// Wait/Notify rather than channels when they need a rendezvous.
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package memsys

import (
	"fmt"
	"sync"

	"github.com/wasi-embed/hostrt/cmn/cos"
	"github.com/wasi-embed/hostrt/cmn/debug"
)

// Region is a contiguous, power-of-two-sized byte array with a stable
// identity. Two Region values with the same Identity() alias the same bytes.
type Region struct {
	buf      []byte
	id       string
	size     uint32
	mu       sync.Mutex
	freelist []span // free blocks available for reuse, in the order they were added (not sorted)
	top      uint32 // bump pointer: bytes [0,top) have been carved out at least once
	waits    *waitRegistry
}

type span struct {
	off, size uint32
}

// NewRegion allocates a fresh region of the given power-of-two size.
func NewRegion(size uint32) *Region {
	debug.Assert(cos.IsPow2(uint64(size)), "region size must be a power of two")
	return &Region{
		buf:   make([]byte, size),
		id:    cos.GenUUID(),
		size:  size,
		waits: newWaitRegistry(),
	}
}

// Identity returns the region's stable identity token. Two regions compare
// equal (in the sense of aliasing) iff their identities match.
func (r *Region) Identity() string { return r.id }

func (r *Region) Size() uint32 { return r.size }

// Transfer returns a new *Region header that shares this region's identity
// and backing bytes, standing in for the cross-thread "transfer" of a
// SharedArrayBuffer: the same memory, viewed by another owner.
func (r *Region) Transfer() *Region {
	return &Region{buf: r.buf, id: r.id, size: r.size, waits: r.waits}
}

func (r *Region) shift() uint {
	shift := uint(0)
	for sz := r.size; sz > 1; sz >>= 1 {
		shift++
	}
	return shift
}

// Alloc carves out a zero-filled, power-of-two-aligned, owning range of the
// requested size. Allocation failure is fatal per the allocator's contract:
// it panics with *cos.ErrMemory rather than returning an error, since a
// caller has no sane fallback for "no more shared memory."
func (r *Region) Alloc(align, size uint32) MemoryRange {
	if align == 0 {
		align = 1
	}
	debug.Assert(cos.IsPow2(uint64(align)), "alignment must be a power of two")
	need := alignUp(size, align)

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.freelist {
		aligned := alignUp(s.off, align)
		pad := aligned - s.off
		if s.size < pad+need {
			continue
		}
		r.freelist = append(r.freelist[:i], r.freelist[i+1:]...)
		if pad > 0 {
			r.freelist = append(r.freelist, span{s.off, pad})
		}
		if rem := s.size - pad - need; rem > 0 {
			r.freelist = append(r.freelist, span{aligned + need, rem})
		}
		r.zero(aligned, need)
		return MemoryRange{region: r, offset: aligned, length: size, owning: true}
	}

	aligned := alignUp(r.top, align)
	if uint64(aligned)+uint64(need) > uint64(r.size) {
		panic(&cos.ErrMemory{Op: "alloc", Detail: fmt.Sprintf("out of space: need %d at align %d, top=%d, size=%d", need, align, r.top, r.size)})
	}
	if aligned > r.top {
		r.freelist = append(r.freelist, span{r.top, aligned - r.top})
	}
	r.top = aligned + need
	r.zero(aligned, need)
	return MemoryRange{region: r, offset: aligned, length: size, owning: true}
}

func (r *Region) zero(off, n uint32) {
	for i := off; i < off+n; i++ {
		r.buf[i] = 0
	}
}

// Free releases an owning range back to the allocator. Freeing a borrowed
// range is a caller logic error and panics, per the allocator's contract.
func (r *Region) Free(rng MemoryRange) {
	debug.Assert(rng.region == r, "range does not belong to this region")
	if !rng.owning {
		panic(&cos.ErrMemory{Op: "free", Detail: "attempt to free a borrowed range"})
	}
	r.mu.Lock()
	r.freelist = append(r.freelist, span{rng.offset, rng.length})
	r.mu.Unlock()
}

// PreAllocated returns a borrowed, writable view into bytes the caller
// already knows are valid (e.g., a struct embedded at a fixed offset).
func (r *Region) PreAllocated(off, size uint32) MemoryRange {
	r.checkBounds("preAllocated", off, size)
	return MemoryRange{region: r, offset: off, length: size, owning: false}
}

// Readonly returns a borrowed, read-only view into the region.
func (r *Region) Readonly(off, size uint32) ReadonlyMemoryRange {
	r.checkBounds("readonly", off, size)
	return ReadonlyMemoryRange{MemoryRange{region: r, offset: off, length: size, owning: false}}
}

func (r *Region) checkBounds(op string, off, size uint32) {
	if uint64(off)+uint64(size) > uint64(r.size) {
		panic(&cos.ErrMemory{Op: op, Detail: fmt.Sprintf("out of bounds: [%d,%d) vs size %d", off, off+size, r.size)})
	}
}

// CopyWithin performs an in-region memmove from src into dst; the two
// ranges must be the same length and belong to this region.
func (r *Region) CopyWithin(dst, src MemoryRange) {
	debug.Assert(dst.region == r && src.region == r, "ranges must belong to this region")
	debug.Assert(dst.length == src.length, "copyWithin requires equal-length ranges")
	copy(r.buf[dst.offset:dst.offset+dst.length], r.buf[src.offset:src.offset+src.length])
}

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}
