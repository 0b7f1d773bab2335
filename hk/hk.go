// Package hk provides a mechanism for registering cleanup functions which
// are invoked at specified intervals: idle-slab reclamation, stale-handle
// sweeps, directory-stream GC (A6).
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package hk

import (
	"container/heap"
	"sync"
	"time"

	"github.com/wasi-embed/hostrt/cmn/nlog"
)

// NameSuffix is appended to every registered job's display name, matching
// the convention every call site below uses for readable log output.
const NameSuffix = ".hk"

// UnregInterval is the sentinel a callback returns to unregister itself
// instead of being rescheduled.
const UnregInterval = time.Duration(-1)

// Tunable intervals for this module's concrete jobs (see jobs.go).
const (
	PressureIval   = 30 * time.Second
	StaleHandleIval = 2 * time.Minute
	DefaultMaxIdle = 10 * time.Minute
)

type job struct {
	name string
	f    func() time.Duration
	next time.Time
	idx  int
}

type jobHeap []*job

func (h jobHeap) Len() int            { return len(h) }
func (h jobHeap) Less(i, j int) bool  { return h[i].next.Before(h[j].next) }
func (h jobHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].idx, h[j].idx = i, j }
func (h *jobHeap) Push(x any)         { j := x.(*job); j.idx = len(*h); *h = append(*h, j) }
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return j
}

// Housekeeper runs registered jobs on their own interval until stopped.
// Grounded on the teacher's hk.DefaultHK.Run()/WaitStarted() API shape:
// jobs return their next interval from the callback itself rather than a
// host-side accounting table, so reclaim policy lives with the subsystem
// that owns the resource.
type Housekeeper struct {
	mu        sync.Mutex
	byName    map[string]*job
	heap      jobHeap
	wake      chan struct{}
	started   chan struct{}
	stop      chan struct{}
	startOnce sync.Once
}

func New() *Housekeeper {
	return &Housekeeper{
		byName:  make(map[string]*job),
		wake:    make(chan struct{}, 1),
		started: make(chan struct{}),
		stop:    make(chan struct{}),
	}
}

// DefaultHK is the process-wide housekeeper every package's init-time Reg
// call registers against, mirroring the teacher's single global instance.
var DefaultHK = New()

// Reg schedules f to run first interval from now; each later run comes after
// the delay f itself returns (UnregInterval unregisters it). A name
// collision replaces the previous registration.
func (hk *Housekeeper) Reg(name string, f func() time.Duration, interval time.Duration) {
	hk.mu.Lock()
	defer hk.mu.Unlock()
	if old, ok := hk.byName[name]; ok {
		heap.Remove(&hk.heap, old.idx)
	}
	j := &job{name: name, f: f, next: time.Now().Add(interval)}
	hk.byName[name] = j
	heap.Push(&hk.heap, j)
	hk.nudge()
}

// UnregIf removes name's registration if present, reporting whether it was.
func (hk *Housekeeper) UnregIf(name string) bool {
	hk.mu.Lock()
	defer hk.mu.Unlock()
	j, ok := hk.byName[name]
	if !ok {
		return false
	}
	heap.Remove(&hk.heap, j.idx)
	delete(hk.byName, name)
	return true
}

func (hk *Housekeeper) nudge() {
	select {
	case hk.wake <- struct{}{}:
	default:
	}
}

// Run drives the schedule until Stop is called. It always signals started
// before blocking, so WaitStarted never races a fresh Housekeeper.
func (hk *Housekeeper) Run() {
	hk.startOnce.Do(func() { close(hk.started) })
	for {
		hk.mu.Lock()
		var wait time.Duration
		if hk.heap.Len() == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(hk.heap[0].next)
			if wait < 0 {
				wait = 0
			}
		}
		hk.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-hk.stop:
			timer.Stop()
			return
		case <-hk.wake:
			timer.Stop()
			continue
		case <-timer.C:
		}
		hk.runDue()
	}
}

func (hk *Housekeeper) runDue() {
	now := time.Now()
	for {
		hk.mu.Lock()
		if hk.heap.Len() == 0 || hk.heap[0].next.After(now) {
			hk.mu.Unlock()
			return
		}
		j := heap.Pop(&hk.heap).(*job)
		delete(hk.byName, j.name)
		hk.mu.Unlock()

		next := j.f()
		if next == UnregInterval {
			continue
		}
		hk.mu.Lock()
		j.next = time.Now().Add(next)
		hk.byName[j.name] = j
		heap.Push(&hk.heap, j)
		hk.mu.Unlock()
	}
}

// WaitStarted blocks until Run has begun its loop.
func (hk *Housekeeper) WaitStarted() { <-hk.started }

// Stop ends Run's loop. Safe to call at most once.
func (hk *Housekeeper) Stop() { close(hk.stop) }

// TestInit resets DefaultHK to a fresh, unstarted state, for test suites
// that want a clean schedule per run.
func TestInit() {
	DefaultHK = New()
}

// Reg/UnregIf against DefaultHK, the common case every call site uses.
func Reg(name string, f func() time.Duration, interval time.Duration) {
	DefaultHK.Reg(name, f, interval)
}

func UnregIf(name string) bool { return DefaultHK.UnregIf(name) }

func logf(format string, a ...any) { nlog.Infof(format, a...) }
