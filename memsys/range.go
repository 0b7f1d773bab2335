package memsys

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/wasi-embed/hostrt/cmn/cos"
)

// MemoryRange is a (region, offset, length) triple: `0 <= offset <=
// offset+length <= region.size` always holds. An owning range came from
// Region.Alloc and must eventually be Free'd by its owner; a borrowed range
// (PreAllocated, Readonly, Sub) must never be freed.
type MemoryRange struct {
	region *Region
	offset uint32
	length uint32
	owning bool
}

// ReadonlyMemoryRange exposes only the Load* half of MemoryRange's API.
type ReadonlyMemoryRange struct {
	r MemoryRange
}

func (r MemoryRange) Offset() uint32 { return r.offset }
func (r MemoryRange) Length() uint32 { return r.length }
func (r MemoryRange) Owning() bool   { return r.owning }
func (r MemoryRange) Region() *Region { return r.region }

func (r MemoryRange) String() string {
	kind := "borrowed"
	if r.owning {
		kind = "owning"
	}
	return fmt.Sprintf("range[%s@%s %d:%d]", kind, r.region.Identity(), r.offset, r.offset+r.length)
}

func (r MemoryRange) checkBounds(off, size uint32) {
	if uint64(off)+uint64(size) > uint64(r.length) {
		panic(&cos.ErrMemory{Op: "range-access", Detail: fmt.Sprintf("[%d,%d) exceeds range length %d", off, off+size, r.length)})
	}
}

// Bytes returns the live backing slice for [0,length) of the range. The
// slice aliases the region; callers must not retain it past a Free.
func (r MemoryRange) Bytes() []byte {
	return r.region.buf[r.offset : r.offset+r.length]
}

func (r MemoryRange) LoadU8(off uint32) uint8 {
	r.checkBounds(off, 1)
	return r.region.buf[r.offset+off]
}

func (r MemoryRange) StoreU8(off uint32, v uint8) {
	r.checkBounds(off, 1)
	r.region.buf[r.offset+off] = v
}

func (r MemoryRange) LoadU16(off uint32) uint16 {
	r.checkBounds(off, 2)
	return binary.LittleEndian.Uint16(r.region.buf[r.offset+off:])
}

func (r MemoryRange) StoreU16(off uint32, v uint16) {
	r.checkBounds(off, 2)
	binary.LittleEndian.PutUint16(r.region.buf[r.offset+off:], v)
}

func (r MemoryRange) LoadU32(off uint32) uint32 {
	r.checkBounds(off, 4)
	return binary.LittleEndian.Uint32(r.region.buf[r.offset+off:])
}

func (r MemoryRange) StoreU32(off uint32, v uint32) {
	r.checkBounds(off, 4)
	binary.LittleEndian.PutUint32(r.region.buf[r.offset+off:], v)
}

func (r MemoryRange) LoadU64(off uint32) uint64 {
	r.checkBounds(off, 8)
	return binary.LittleEndian.Uint64(r.region.buf[r.offset+off:])
}

func (r MemoryRange) StoreU64(off uint32, v uint64) {
	r.checkBounds(off, 8)
	binary.LittleEndian.PutUint64(r.region.buf[r.offset+off:], v)
}

func (r MemoryRange) LoadI8(off uint32) int8   { return int8(r.LoadU8(off)) }
func (r MemoryRange) StoreI8(off uint32, v int8)  { r.StoreU8(off, uint8(v)) }
func (r MemoryRange) LoadI16(off uint32) int16 { return int16(r.LoadU16(off)) }
func (r MemoryRange) StoreI16(off uint32, v int16) { r.StoreU16(off, uint16(v)) }
func (r MemoryRange) LoadI32(off uint32) int32 { return int32(r.LoadU32(off)) }
func (r MemoryRange) StoreI32(off uint32, v int32) { r.StoreU32(off, uint32(v)) }
func (r MemoryRange) LoadI64(off uint32) int64 { return int64(r.LoadU64(off)) }
func (r MemoryRange) StoreI64(off uint32, v int64) { r.StoreU64(off, uint64(v)) }

// Sub returns a borrowed sub-view of this range.
func (r MemoryRange) Sub(off, size uint32) MemoryRange {
	r.checkBounds(off, size)
	return MemoryRange{region: r.region, offset: r.offset + off, length: size, owning: false}
}

// Readonly returns a borrowed, read-only view of this range.
func (r MemoryRange) Readonly() ReadonlyMemoryRange {
	return ReadonlyMemoryRange{MemoryRange{region: r.region, offset: r.offset, length: r.length, owning: false}}
}

func (rr ReadonlyMemoryRange) Offset() uint32      { return rr.r.offset }
func (rr ReadonlyMemoryRange) Length() uint32      { return rr.r.length }
func (rr ReadonlyMemoryRange) Bytes() []byte       { return rr.r.Bytes() }
func (rr ReadonlyMemoryRange) LoadU8(off uint32) uint8   { return rr.r.LoadU8(off) }
func (rr ReadonlyMemoryRange) LoadU16(off uint32) uint16 { return rr.r.LoadU16(off) }
func (rr ReadonlyMemoryRange) LoadU32(off uint32) uint32 { return rr.r.LoadU32(off) }
func (rr ReadonlyMemoryRange) LoadU64(off uint32) uint64 { return rr.r.LoadU64(off) }
func (rr ReadonlyMemoryRange) LoadI8(off uint32) int8    { return rr.r.LoadI8(off) }
func (rr ReadonlyMemoryRange) LoadI16(off uint32) int16  { return rr.r.LoadI16(off) }
func (rr ReadonlyMemoryRange) LoadI32(off uint32) int32  { return rr.r.LoadI32(off) }
func (rr ReadonlyMemoryRange) LoadI64(off uint32) int64  { return rr.r.LoadI64(off) }
func (rr ReadonlyMemoryRange) Sub(off, size uint32) ReadonlyMemoryRange {
	return ReadonlyMemoryRange{rr.r.Sub(off, size)}
}

//
// atomic cell access, used by Lock/Signal/Resource-handle generation
//

// atomicU32 returns a pointer suitable for sync/atomic operations on the
// 4-byte cell at the given region-relative offset. The offset must be
// 4-byte aligned; every caller in this package allocates cells that way.
func (r *Region) atomicU32(offset uint32) *uint32 {
	return (*uint32)(unsafe.Pointer(&r.buf[offset]))
}

func (r *Region) AtomicLoad32(offset uint32) uint32 {
	return atomic.LoadUint32(r.atomicU32(offset))
}

func (r *Region) AtomicStore32(offset uint32, v uint32) {
	atomic.StoreUint32(r.atomicU32(offset), v)
}

func (r *Region) AtomicAdd32(offset uint32, delta int32) uint32 {
	return atomic.AddUint32(r.atomicU32(offset), uint32(delta))
}

func (r *Region) AtomicCAS32(offset, old, new uint32) bool {
	return atomic.CompareAndSwapUint32(r.atomicU32(offset), old, new)
}
