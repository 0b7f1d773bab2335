package main

import (
	"bufio"
	"encoding/json"
	"sync"

	"github.com/wasi-embed/hostrt/cmn/nlog"
	"github.com/wasi-embed/hostrt/guest"
)

// traceLine is the NDJSON shape /debug/trace streams, one object per
// dispatched WASI call.
type traceLine struct {
	Nanos    int64  `json:"nanos"`
	Method   string `json:"method"`
	FD       uint32 `json:"fd"`
	Errno    string `json:"errno"`
	DurNs    int64  `json:"dur_ns"`
	Cause    string `json:"cause,omitempty"`
}

// traceHub fans every TraceEvent out to the /debug/trace long-poll
// subscribers currently attached, in addition to the normal nlog line
// guest.NlogTracer already emits. Subscribers that fall behind drop events
// rather than block the emitting goroutine.
type traceHub struct {
	mu   sync.Mutex
	subs map[chan traceLine]struct{}
}

func newTraceHub() *traceHub {
	return &traceHub{subs: make(map[chan traceLine]struct{})}
}

func (h *traceHub) Emit(ev guest.TraceEvent) {
	guest.NlogTracer{}.Emit(ev)

	line := traceLine{Nanos: ev.Nanos, Method: ev.Method, FD: ev.FD, Errno: ev.Errno.String(), DurNs: ev.DurationNs}
	if ev.Cause != nil {
		line.Cause = ev.Cause.Error()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- line:
		default:
			nlog.Warningf("hostrtd: trace subscriber is slow, dropping an event")
		}
	}
}

func (h *traceHub) subscribe() chan traceLine {
	ch := make(chan traceLine, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *traceHub) unsubscribe(ch chan traceLine) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
	close(ch)
}

// streamTo writes each line on ch as one NDJSON object, flushing after
// every write, until ch closes or the client disconnects (detected by w
// returning an error).
func streamTo(w *bufio.Writer, ch chan traceLine) {
	enc := json.NewEncoder(w)
	for line := range ch {
		if err := enc.Encode(line); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}
	}
}

var _ guest.Tracer = (*traceHub)(nil)
