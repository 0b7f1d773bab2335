package rpc

import (
	"testing"
	"time"

	"github.com/wasi-embed/hostrt/memsys"
)

type recordedObservation struct {
	method string
	dur    time.Duration
	errno  int32
}

type fakeMetrics struct {
	observations []recordedObservation
}

func (f *fakeMetrics) ObserveRequest(method string, dur time.Duration, errno int32) {
	f.observations = append(f.observations, recordedObservation{method, dur, errno})
}

func TestSendRequestReportsMetrics(t *testing.T) {
	region := memsys.NewRegion(64 * 1024)
	srv := NewServer()
	srv.Register("echo.byte", func(req *Request) (any, error) {
		v, _ := req.Params["value"].(float64)
		return []byte{byte(v) + 1}, nil
	})
	c := syncTransport(t, region, srv)
	fm := &fakeMetrics{}
	c.SetMetrics(fm)

	if _, err := c.SendRequest("echo.byte", map[string]any{"value": float64(41)}, nil, KindU8, 1); err != nil {
		t.Fatalf("SendRequest error: %v", err)
	}

	if len(fm.observations) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(fm.observations))
	}
	obs := fm.observations[0]
	if obs.method != "echo.byte" || obs.errno != ErrnoOK {
		t.Fatalf("unexpected observation: %+v", obs)
	}
}

func TestSetMetricsNilRestoresNoop(t *testing.T) {
	region := memsys.NewRegion(64 * 1024)
	c := NewClient(region, func(*memsys.Region, memsys.MemoryRange) {})
	c.SetMetrics(&fakeMetrics{})
	c.SetMetrics(nil)
	if _, ok := c.metrics.(noopMetrics); !ok {
		t.Fatalf("expected metrics to reset to noopMetrics, got %T", c.metrics)
	}
}
