package hk

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/wasi-embed/hostrt/guest"
)

func TestRegRunsPeriodically(t *testing.T) {
	h := New()
	go h.Run()
	h.WaitStarted()
	defer h.Stop()

	var count int32
	h.Reg("tick"+NameSuffix, func() time.Duration {
		atomic.AddInt32(&count, 1)
		return 5 * time.Millisecond
	}, time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&count) < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if atomic.LoadInt32(&count) < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", count)
	}
}

func TestUnregIntervalStopsRescheduling(t *testing.T) {
	h := New()
	go h.Run()
	h.WaitStarted()
	defer h.Stop()

	var count int32
	h.Reg("once"+NameSuffix, func() time.Duration {
		atomic.AddInt32(&count, 1)
		return UnregInterval
	}, time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&count); got != 1 {
		t.Fatalf("expected exactly one run, got %d", got)
	}
}

func TestUnregIfRemovesPendingJob(t *testing.T) {
	h := New()
	var count int32
	h.Reg("pending"+NameSuffix, func() time.Duration {
		atomic.AddInt32(&count, 1)
		return time.Hour
	}, time.Hour)

	if !h.UnregIf("pending" + NameSuffix) {
		t.Fatal("expected UnregIf to report the job was present")
	}
	if h.UnregIf("pending" + NameSuffix) {
		t.Fatal("expected a second UnregIf to report absence")
	}
}

func TestStaleHandleSweepJobClosesIdleFds(t *testing.T) {
	fdt := guest.NewFDTable()
	fd := fdt.Insert(&guest.FileDescriptor{DeviceID: "memfs"})

	var closed []uint32
	job := StaleHandleSweepJob(fdt, 0, func(fd uint32) { closed = append(closed, fd) })
	job()

	if len(closed) != 1 || closed[0] != fd {
		t.Fatalf("expected fd %d to be closed, got %v", fd, closed)
	}
	if _, fault := fdt.Get(fd); fault == nil {
		t.Fatal("expected the swept fd to be removed from the table")
	}
}

func TestStaleHandleSweepJobSparesPreopens(t *testing.T) {
	fdt := guest.NewFDTable()
	fdt.Insert(&guest.FileDescriptor{DeviceID: "memfs", PreopenName: "/workspace"})

	var closed []uint32
	job := StaleHandleSweepJob(fdt, 0, func(fd uint32) { closed = append(closed, fd) })
	job()

	if len(closed) != 0 {
		t.Fatalf("expected pre-opens to be spared, got %v", closed)
	}
}
