package memsys

import (
	"github.com/wasi-embed/hostrt/cmn/cos"
	"github.com/wasi-embed/hostrt/cmn/debug"
)

// Scalar is the set of element kinds a SharedArray can hold directly as
// fixed-width cells.
type Scalar interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int8 | ~int16 | ~int32 | ~int64
}

// SharedArray is a growable, shared-memory-backed array of fixed-width
// scalars with JS-Array-flavored accessors (push/pop/at) plus a `state`
// mutation counter so a caller iterating with Entries can detect a
// concurrent Push/Pop the way a for-of loop over a live array would
// notice its backing store shifted under it.
type SharedArray[T Scalar] struct {
	region   *Region
	elemSize uint32
	rng      MemoryRange // current backing storage; owning
	length   uint32
	state    uint64 // bumped on every structural mutation
}

// NewSharedArray allocates a SharedArray with room for `capacity` elements.
func NewSharedArray[T Scalar](region *Region, capacity uint32) *SharedArray[T] {
	var zero T
	elemSize := uint32(sizeofScalar(zero))
	if capacity == 0 {
		capacity = 1
	}
	return &SharedArray[T]{
		region:   region,
		elemSize: elemSize,
		rng:      region.Alloc(elemSize, capacity*elemSize),
	}
}

func sizeofScalar(v any) uint32 {
	switch v.(type) {
	case uint8, int8:
		return 1
	case uint16, int16:
		return 2
	case uint32, int32:
		return 4
	default:
		return 8
	}
}

func (a *SharedArray[T]) Len() uint32 { return a.length }

func (a *SharedArray[T]) capacity() uint32 { return a.rng.Length() / a.elemSize }

func (a *SharedArray[T]) At(i uint32) T {
	debug.Assertf(i < a.length, "index %d out of range (len %d)", i, a.length)
	return a.load(i)
}

func (a *SharedArray[T]) SetAt(i uint32, v T) {
	debug.Assertf(i < a.length, "index %d out of range (len %d)", i, a.length)
	a.store(i, v)
}

// Push appends v, growing the backing range (a fresh, larger allocation plus
// a CopyWithin of the live prefix, the old one freed) if necessary.
func (a *SharedArray[T]) Push(v T) {
	if a.length == a.capacity() {
		a.grow()
	}
	a.store(a.length, v)
	a.length++
	a.state++
}

// Pop removes and returns the last element. Panics on an empty array.
func (a *SharedArray[T]) Pop() T {
	debug.Assertf(a.length > 0, "pop of empty shared array")
	a.length--
	v := a.load(a.length)
	a.state++
	return v
}

func (a *SharedArray[T]) grow() {
	newCap := a.capacity() * 2
	if newCap == 0 {
		newCap = 1
	}
	next := a.region.Alloc(a.elemSize, newCap*a.elemSize)
	if a.length > 0 {
		a.region.CopyWithin(next.Sub(0, a.length*a.elemSize), a.rng.Sub(0, a.length*a.elemSize))
	}
	a.region.Free(a.rng)
	a.rng = next
}

func (a *SharedArray[T]) load(i uint32) T {
	off := i * a.elemSize
	switch a.elemSize {
	case 1:
		return T(a.rng.LoadU8(off))
	case 2:
		return T(a.rng.LoadU16(off))
	case 4:
		return T(a.rng.LoadU32(off))
	default:
		return T(a.rng.LoadU64(off))
	}
}

func (a *SharedArray[T]) store(i uint32, v T) {
	off := i * a.elemSize
	switch a.elemSize {
	case 1:
		a.rng.StoreU8(off, uint8(v))
	case 2:
		a.rng.StoreU16(off, uint16(v))
	case 4:
		a.rng.StoreU32(off, uint32(v))
	default:
		a.rng.StoreU64(off, uint64(v))
	}
}

type Entry[T Scalar] struct {
	Key   uint32
	Value T
}

// Keys, Values and Entries mirror JS Array's iteration trio: each snapshots
// `state` when the iterator is created and re-checks it before every yield,
// raising *cos.ErrConcurrentModification the moment a Push/Pop is observed
// mid-iteration rather than silently returning stale or skewed data.
func (a *SharedArray[T]) Keys() func() (uint32, bool) {
	start, i := a.state, uint32(0)
	return func() (uint32, bool) {
		if i >= a.length {
			return 0, false
		}
		if a.state != start {
			panic(&cos.ErrConcurrentModification{Container: "SharedArray"})
		}
		k := i
		i++
		return k, true
	}
}

func (a *SharedArray[T]) Values() func() (T, bool) {
	start, i := a.state, uint32(0)
	return func() (v T, ok bool) {
		if i >= a.length {
			return v, false
		}
		if a.state != start {
			panic(&cos.ErrConcurrentModification{Container: "SharedArray"})
		}
		v = a.load(i)
		i++
		return v, true
	}
}

func (a *SharedArray[T]) Entries() func() (Entry[T], bool) {
	start, i := a.state, uint32(0)
	return func() (e Entry[T], ok bool) {
		if i >= a.length {
			return e, false
		}
		if a.state != start {
			panic(&cos.ErrConcurrentModification{Container: "SharedArray"})
		}
		e = Entry[T]{Key: i, Value: a.load(i)}
		i++
		return e, true
	}
}

// State returns the current mutation counter, for comparison against a value
// captured before an iteration began.
func (a *SharedArray[T]) State() uint64 { return a.state }
