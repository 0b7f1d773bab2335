package stats

import (
	"testing"
	"time"
)

func TestObserveRequestIncrementsCounter(t *testing.T) {
	r := NewRegistry()
	r.ObserveRequest("fd_write", 5*time.Millisecond, 0)
	r.ObserveRequest("fd_write", 3*time.Millisecond, 1)

	mf, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatal(err)
	}
	var total float64
	for _, fam := range mf {
		if fam.GetName() != "hostrt_rpc_requests_total" {
			continue
		}
		for _, m := range fam.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	if total != 2 {
		t.Fatalf("expected 2 recorded requests, got %v", total)
	}
}

func TestSetOpenDescriptorsAndFreeBytes(t *testing.T) {
	r := NewRegistry()
	r.SetOpenDescriptors("memfs", 4)
	r.SetFreeBytes(1024)

	mf, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := map[string]bool{}
	for _, fam := range mf {
		switch fam.GetName() {
		case "hostrt_guest_open_descriptors":
			for _, m := range fam.GetMetric() {
				if m.GetGauge().GetValue() == 4 {
					found["fds"] = true
				}
			}
		case "hostrt_memsys_free_bytes":
			for _, m := range fam.GetMetric() {
				if m.GetGauge().GetValue() == 1024 {
					found["free"] = true
				}
			}
		}
	}
	if !found["fds"] || !found["free"] {
		t.Fatalf("expected both gauges set, got %+v", found)
	}
}
