package memsys

import "testing"

func TestAllocNoOverlap(t *testing.T) {
	r := NewRegion(64 * cosKiB)
	var ranges []MemoryRange
	for i := 0; i < 64; i++ {
		ranges = append(ranges, r.Alloc(8, 37))
	}
	for i, a := range ranges {
		for j, b := range ranges {
			if i == j {
				continue
			}
			if overlaps(a, b) {
				t.Fatalf("ranges %d and %d overlap: %v %v", i, j, a, b)
			}
		}
	}
}

func overlaps(a, b MemoryRange) bool {
	aEnd, bEnd := a.Offset()+a.Length(), b.Offset()+b.Length()
	return a.Offset() < bEnd && b.Offset() < aEnd
}

func TestAllocReusesFreedSpan(t *testing.T) {
	r := NewRegion(4 * cosKiB)
	a := r.Alloc(8, 128)
	top := r.top
	r.Free(a)
	b := r.Alloc(8, 128)
	if r.top != top {
		t.Fatalf("expected reuse of freed span, top grew from %d to %d", top, r.top)
	}
	if b.Offset() != a.Offset() {
		t.Fatalf("expected same offset reused, got %d vs %d", b.Offset(), a.Offset())
	}
}

func TestAllocOutOfSpacePanics(t *testing.T) {
	r := NewRegion(64)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on out-of-space allocation")
		}
	}()
	r.Alloc(8, 1024)
}

func TestFreeBorrowedRangePanics(t *testing.T) {
	r := NewRegion(64)
	ro := r.PreAllocated(0, 16)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic freeing a borrowed range")
		}
	}()
	r.Free(ro)
}

func TestTransferSharesIdentityAndBytes(t *testing.T) {
	r := NewRegion(64)
	rng := r.Alloc(4, 4)
	rng.StoreU32(0, 0xdeadbeef)

	view := r.Transfer()
	if view.Identity() != r.Identity() {
		t.Fatal("transferred region has a different identity")
	}
	if view.Readonly(rng.Offset(), 4).LoadU32(0) != 0xdeadbeef {
		t.Fatal("transferred region does not alias original bytes")
	}
}

const cosKiB = 1024
