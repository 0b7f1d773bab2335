package memsys

import "github.com/wasi-embed/hostrt/cmn/cos"

// Holder is an explicit reentrancy token. The spec describes a thread-local
// hold-count; Go does not expose goroutine identity, so callers that need
// reentrant RunLocked regions pass the same *Holder across nested calls
// (typically one Holder per logical request/goroutine, stored in a
// context.Context or a local variable threaded through the call chain).
type Holder struct{}

func NewHolder() *Holder { return &Holder{} }

// Lock is a 32-bit shared cell: 1 == free, 0 == held. Reentrancy bookkeeping
// (the hold count per Holder) lives outside shared memory, as the spec
// requires, in an ordinary Go map guarded by a host-local mutex — only the
// single-bit free/held cell itself needs to be visible across threads.
type Lock struct {
	region  *Region
	offset  uint32
	hmu     chan struct{} // 1-buffered channel used as a cheap host-local mutex
	holders map[*Holder]int
}

func NewLockAt(region *Region, offset uint32) *Lock {
	l := &Lock{region: region, offset: offset, hmu: make(chan struct{}, 1), holders: make(map[*Holder]int)}
	l.hmu <- struct{}{}
	return l
}

// Init marks the cell free. Must be called once, after the backing memory
// has been allocated and zero-filled, before any Acquire.
func (l *Lock) Init() { l.region.AtomicStore32(l.offset, 1) }

func (l *Lock) lockHolders()   { <-l.hmu }
func (l *Lock) unlockHolders() { l.hmu <- struct{}{} }

func (l *Lock) Acquire(h *Holder) {
	l.lockHolders()
	if l.holders[h] > 0 {
		l.holders[h]++
		l.unlockHolders()
		return
	}
	l.unlockHolders()

	for {
		v := l.region.AtomicLoad32(l.offset)
		if v > 0 && l.region.AtomicCAS32(l.offset, v, v-1) {
			break
		}
		l.region.waits.Wait(l.offset, func() bool { return l.region.AtomicLoad32(l.offset) > 0 }, 0)
	}

	l.lockHolders()
	l.holders[h] = 1
	l.unlockHolders()
}

func (l *Lock) Release(h *Holder) {
	l.lockHolders()
	cnt := l.holders[h]
	if cnt == 0 {
		l.unlockHolders()
		panic(&cos.ErrMemory{Op: "lock-release", Detail: "release without matching acquire"})
	}
	if cnt > 1 {
		l.holders[h] = cnt - 1
		l.unlockHolders()
		return
	}
	delete(l.holders, h)
	l.unlockHolders()

	l.region.AtomicAdd32(l.offset, 1)
	l.region.waits.Notify(l.offset, 1)
}

// RunLocked acquires l for the duration of fn, releasing even on panic.
func (l *Lock) RunLocked(h *Holder, fn func()) {
	l.Acquire(h)
	defer l.Release(h)
	fn()
}
