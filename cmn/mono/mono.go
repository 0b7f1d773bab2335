// Package mono provides a monotonic nanosecond clock, used wherever wall-clock
// skew would corrupt a duration measurement (idle timers, trace timestamps).
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package mono

import "time"

var start = time.Now()

// NanoTime returns nanoseconds elapsed since package init. It is monotonic
// within a process but has no relation to wall-clock time across processes.
func NanoTime() int64 { return time.Since(start).Nanoseconds() }

func Since(ns int64) int64 { return NanoTime() - ns }
