package memsys

import (
	"sync"
	"time"
)

// waitRegistry emulates `Atomics.wait`/`Atomics.notify` on top of Go's
// goroutine scheduler: there is no direct equivalent to parking a goroutine
// on a memory address, so waiters block on a per-offset channel that Notify
// closes (and replaces) to wake everyone currently parked there. Each waiter
// re-checks its condition after waking, which makes the broadcast-style
// wakeup safe even though it doesn't honor Notify's "at most n" count
// precisely — a woken goroutine that loses the race simply waits again.
type waitRegistry struct {
	mu    sync.Mutex
	chans map[uint32]chan struct{}
}

func newWaitRegistry() *waitRegistry {
	return &waitRegistry{chans: make(map[uint32]chan struct{})}
}

func (w *waitRegistry) chanFor(offset uint32) chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.chans[offset]
	if !ok {
		c = make(chan struct{})
		w.chans[offset] = c
	}
	return c
}

// Wait blocks until check() returns true, or timeout elapses (timeout<=0
// means block indefinitely). It re-evaluates check() after every wakeup.
func (w *waitRegistry) Wait(offset uint32, check func() bool, timeout time.Duration) (satisfied bool) {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	for {
		if check() {
			return true
		}
		c := w.chanFor(offset)
		// re-check after registering the channel to close the race where
		// Notify fires between our first check() and subscribing to c.
		if check() {
			return true
		}
		select {
		case <-c:
		case <-deadline:
			return check()
		}
	}
}

// Notify wakes waiters parked on offset. n is advisory (see type doc); 0
// means "wake everyone currently parked there."
func (w *waitRegistry) Notify(offset uint32, _ int) int {
	w.mu.Lock()
	c, ok := w.chans[offset]
	if ok {
		delete(w.chans, offset)
	}
	w.mu.Unlock()
	if !ok {
		return 0
	}
	close(c)
	return 1
}
