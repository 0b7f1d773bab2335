package memsys

import "testing"

func TestHandleMintValidFree(t *testing.T) {
	r := NewRegion(4 * cosKiB)
	ht := NewHandleTable(r)
	rng := r.Alloc(8, 64)

	h := ht.Mint(rng.Offset())
	if !ht.Valid(h) {
		t.Fatal("freshly minted handle must be valid")
	}
	ht.Free(rng.Offset())
	if ht.Valid(h) {
		t.Fatal("handle must be invalid after Free")
	}
}

func TestHandleGenerationsDiffer(t *testing.T) {
	r := NewRegion(4 * cosKiB)
	ht := NewHandleTable(r)
	rng := r.Alloc(8, 64)

	h1 := ht.Mint(rng.Offset())
	ht.Free(rng.Offset())
	h2 := ht.Mint(rng.Offset())

	if ht.Generation(h1) == ht.Generation(h2) {
		t.Fatal("re-minted handle for the same slot must carry a new generation")
	}
	if ht.Ptr(h1) != ht.Ptr(h2) {
		t.Fatal("ptr bits should be unchanged across re-mint of the same slot")
	}
	if ht.Valid(h1) {
		t.Fatal("old handle must stay invalid once superseded")
	}
	if !ht.Valid(h2) {
		t.Fatal("freshly re-minted handle must be valid")
	}
}

func TestHandleNeverFreedAlwaysValid(t *testing.T) {
	r := NewRegion(4 * cosKiB)
	ht := NewHandleTable(r)
	rng := r.Alloc(8, 16)
	h := ht.Mint(rng.Offset())
	for i := 0; i < 1000; i++ {
		if !ht.Valid(h) {
			t.Fatal("filter false-rejected a never-freed handle")
		}
	}
}
