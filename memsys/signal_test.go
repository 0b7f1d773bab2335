package memsys

import (
	"testing"
	"time"
)

func TestSignalWaitResolve(t *testing.T) {
	r := NewRegion(64)
	rng := r.Alloc(4, 4)
	s := NewSignalAt(r, rng.Offset())

	if s.IsResolved() {
		t.Fatal("fresh signal must start unresolved")
	}

	done := make(chan bool, 1)
	go func() { done <- s.Wait(0) }()

	time.Sleep(10 * time.Millisecond)
	s.Resolve(0)

	select {
	case ok := <-done:
		if !ok {
			t.Fatal("Wait returned false after Resolve")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not observe Resolve")
	}
	if !s.IsResolved() {
		t.Fatal("signal should remain resolved")
	}
}

func TestSignalResolveIsMonotonic(t *testing.T) {
	r := NewRegion(64)
	rng := r.Alloc(4, 4)
	s := NewSignalAt(r, rng.Offset())
	s.Resolve(0)
	s.Resolve(0) // must not panic or revert
	if !s.IsResolved() {
		t.Fatal("expected resolved after double Resolve")
	}
}

func TestSignalWaitTimeout(t *testing.T) {
	r := NewRegion(64)
	rng := r.Alloc(4, 4)
	s := NewSignalAt(r, rng.Offset())
	if s.Wait(10 * time.Millisecond) {
		t.Fatal("expected timeout, got resolved")
	}
}

func TestSignalWaitAsync(t *testing.T) {
	r := NewRegion(64)
	rng := r.Alloc(4, 4)
	s := NewSignalAt(r, rng.Offset())
	ch := s.WaitAsync()
	s.Resolve(0)
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitAsync channel did not close after Resolve")
	}
}
