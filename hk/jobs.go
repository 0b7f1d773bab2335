/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package hk

import (
	"runtime"
	"time"

	"github.com/wasi-embed/hostrt/guest"
	"github.com/wasi-embed/hostrt/memsys"
)

// PressureReclaimJob builds the idle-slab reclamation callback: on every
// tick it samples allocator pressure and, when the policy says memory is
// tight, forces a GC pass the way memsys.PressurePolicy.ShouldReclaim's doc
// comment describes ("free idle slabs, ask hk to sweep").
func PressureReclaimJob(policy memsys.PressurePolicy) func() time.Duration {
	return func() time.Duration {
		sample := memsys.SamplePressure()
		if policy.ShouldReclaim(sample) {
			runtime.GC()
			logf("hk: reclaimed under pressure (free=%d total=%d)", sample.Free, sample.Total)
		}
		return PressureIval
	}
}

// RegisterPressureReclaim registers PressureReclaimJob against hk with the
// default policy and interval.
func RegisterPressureReclaim() {
	Reg("pressure-reclaim"+NameSuffix, PressureReclaimJob(memsys.DefaultPressurePolicy()), PressureIval)
}

// StaleHandleSweepJob builds the stale-handle sweep callback (which doubles
// as directory-stream GC: a directory stream is owned by its fd and dies
// with it, so closing an idle fd already reclaims any stream it holds).
// closeFn is supplied by whatever owns fd dispatch (the mount table's
// RootMux, in practice), since the fd table itself has no driver to call
// FdClose through.
func StaleHandleSweepJob(fdt *guest.FDTable, maxIdle time.Duration, closeFn func(fd uint32)) func() time.Duration {
	return func() time.Duration {
		idle := fdt.IdleDescriptors(maxIdle.Nanoseconds())
		for _, fd := range idle {
			closeFn(fd)
			fdt.Close(fd)
		}
		if len(idle) > 0 {
			logf("hk: swept %d idle descriptor(s)", len(idle))
		}
		return StaleHandleIval
	}
}

// RegisterStaleHandleSweep registers StaleHandleSweepJob against hk with the
// default idle threshold and interval.
func RegisterStaleHandleSweep(fdt *guest.FDTable, closeFn func(fd uint32)) {
	Reg("stale-handles"+NameSuffix, StaleHandleSweepJob(fdt, DefaultMaxIdle, closeFn), StaleHandleIval)
}
