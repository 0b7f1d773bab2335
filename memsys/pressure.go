package memsys

import (
	"runtime"

	"github.com/wasi-embed/hostrt/cmn/cos"
	"github.com/wasi-embed/hostrt/cmn/k8s"
)

// PressureSample is a point-in-time read of available memory, taken
// periodically by hk's pressure-reclaim job. Region.Alloc does not consult
// it; an allocation that does not fit still panics.
type PressureSample struct {
	Free        int64
	Total       int64
	CgroupLimit int64
	K8s         bool
}

// SamplePressure reads current memory pressure. Outside Kubernetes, Total is
// the Go runtime's view of system memory via runtime.MemStats.Sys as a
// rough proxy (this process has no portable way to read host-wide free
// memory without cgo); under Kubernetes, CgroupLimit takes precedence,
// since a pod's usable memory is bounded by its cgroup, not host RAM.
func SamplePressure() PressureSample {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	total := int64(m.Sys)
	free := total - int64(m.HeapInuse) - int64(m.StackInuse)
	if free < 0 {
		free = 0
	}
	s := PressureSample{Free: free, Total: total}
	if k8s.IsK8s() {
		s.K8s = true
		s.CgroupLimit = k8s.CgroupMemLimit
		if s.CgroupLimit > 0 {
			s.Total = s.CgroupLimit
		}
	}
	return s
}

// PressurePolicy decides when memory is tight enough that hk's periodic
// pressure-reclaim job should reclaim, mirroring the teacher's MMSA
// free-to-total ratio knobs.
type PressurePolicy struct {
	MinFree     int64
	MinPctTotal int64 // 0-100
}

func DefaultPressurePolicy() PressurePolicy {
	return PressurePolicy{MinFree: 16 * cos.MiB, MinPctTotal: 5}
}

// ShouldReclaim reports whether s indicates the pressure-reclaim job should
// run a GC pass (free idle slabs, ask hk to sweep) on this tick.
func (p PressurePolicy) ShouldReclaim(s PressureSample) bool {
	if s.Total <= 0 {
		return false
	}
	if s.Free < p.MinFree {
		return true
	}
	pct := s.Free * 100 / s.Total
	return pct < p.MinPctTotal
}
