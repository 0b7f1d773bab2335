package memsys

import "testing"

func TestSharedArrayPushAtPop(t *testing.T) {
	r := NewRegion(4 * cosKiB)
	a := NewSharedArray[uint32](r, 2)

	for i := uint32(0); i < 10; i++ {
		a.Push(i * i)
	}
	if a.Len() != 10 {
		t.Fatalf("expected len 10, got %d", a.Len())
	}
	for i := uint32(0); i < 10; i++ {
		if got := a.At(i); got != i*i {
			t.Fatalf("At(%d) = %d, want %d", i, got, i*i)
		}
	}
	last := a.Pop()
	if last != 81 {
		t.Fatalf("Pop() = %d, want 81", last)
	}
	if a.Len() != 9 {
		t.Fatalf("expected len 9 after pop, got %d", a.Len())
	}
}

func TestSharedArrayGrowthPreservesContents(t *testing.T) {
	r := NewRegion(16 * cosKiB)
	a := NewSharedArray[uint8](r, 1)
	for i := 0; i < 200; i++ {
		a.Push(uint8(i))
	}
	for i := 0; i < 200; i++ {
		if got := a.At(uint32(i)); got != uint8(i) {
			t.Fatalf("At(%d) = %d, want %d after growth", i, got, uint8(i))
		}
	}
}

func TestSharedArrayStateCounterDetectsMutation(t *testing.T) {
	r := NewRegion(4 * cosKiB)
	a := NewSharedArray[uint32](r, 4)
	a.Push(1)
	a.Push(2)
	snapshot := a.State()
	a.Push(3)
	if a.State() == snapshot {
		t.Fatal("expected state counter to change after Push")
	}
}

func TestSharedArrayPopEmptyPanics(t *testing.T) {
	r := NewRegion(64)
	a := NewSharedArray[uint32](r, 1)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic popping an empty array")
		}
	}()
	a.Pop()
}

func TestSharedArrayEntries(t *testing.T) {
	r := NewRegion(4 * cosKiB)
	a := NewSharedArray[uint16](r, 4)
	a.Push(10)
	a.Push(20)
	a.Push(30)

	next := a.Entries()
	var got []Entry[uint16]
	for {
		e, ok := next()
		if !ok {
			break
		}
		got = append(got, e)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	for i, e := range got {
		if e.Key != uint32(i) {
			t.Fatalf("entry %d has key %d", i, e.Key)
		}
	}
	if got[1].Value != 20 {
		t.Fatalf("entries[1].Value = %d, want 20", got[1].Value)
	}
}

func TestSharedArrayIterationDetectsConcurrentMutation(t *testing.T) {
	r := NewRegion(4 * cosKiB)
	a := NewSharedArray[uint32](r, 4)
	a.Push(1)
	a.Push(2)
	a.Push(3)

	next := a.Values()
	if _, ok := next(); !ok {
		t.Fatal("expected first value")
	}
	a.Push(4) // mutate mid-iteration

	defer func() {
		if recover() == nil {
			t.Fatal("expected concurrent-modification panic")
		}
	}()
	next()
}
