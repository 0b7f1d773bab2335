// Package cos provides common low-level types and utilities shared by every
// package in this module: error helpers, ID generation, size formatting.
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package cos

import (
	"errors"
	"fmt"
	"sync"
	ratomic "sync/atomic"
)

type (
	// ErrNotFound is returned by lookups against an absent key/path/mount.
	ErrNotFound struct{ what string }

	// Errs accumulates up to maxErrs distinct errors, de-duplicated by message.
	Errs struct {
		errs []error
		cnt  int64
		mu   sync.Mutex
	}
)

const maxErrs = 4

func NewErrNotFound(format string, a ...any) *ErrNotFound {
	return &ErrNotFound{fmt.Sprintf(format, a...)}
}

func (e *ErrNotFound) Error() string { return e.what + " does not exist" }

func IsErrNotFound(err error) bool {
	var e *ErrNotFound
	return errors.As(err, &e)
}

func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			e.mu.Unlock()
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
		ratomic.StoreInt64(&e.cnt, int64(len(e.errs)))
	}
	e.mu.Unlock()
}

func (e *Errs) Cnt() int { return int(ratomic.LoadInt64(&e.cnt)) }

func (e *Errs) JoinErr() (cnt int, err error) {
	if cnt = e.Cnt(); cnt > 0 {
		e.mu.Lock()
		err = errors.Join(e.errs...)
		e.mu.Unlock()
	}
	return
}

func (e *Errs) Error() string {
	cnt := e.Cnt()
	if cnt == 0 {
		return ""
	}
	e.mu.Lock()
	first := e.errs[0]
	e.mu.Unlock()
	if cnt > 1 {
		return fmt.Sprintf("%v (and %d more error%s)", first, cnt-1, Plural(cnt-1))
	}
	return first.Error()
}

func Plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// ErrMemory indicates a host-side bug (out-of-bounds access, double free).
// It is never surfaced across the WASI ABI as an errno; callers that hit it
// abort the call, per spec.
type ErrMemory struct{ Op, Detail string }

func (e *ErrMemory) Error() string { return fmt.Sprintf("memory error in %s: %s", e.Op, e.Detail) }

// ErrConcurrentModification indicates a container's mutation counter changed
// mid-iteration. Like ErrMemory, this is a host bug signal, not a guest-facing errno.
type ErrConcurrentModification struct{ Container string }

func (e *ErrConcurrentModification) Error() string {
	return fmt.Sprintf("concurrent modification detected while iterating %s", e.Container)
}
