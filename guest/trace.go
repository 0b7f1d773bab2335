package guest

import (
	"github.com/wasi-embed/hostrt/cmn/mono"
	"github.com/wasi-embed/hostrt/cmn/nlog"
	"github.com/wasi-embed/hostrt/wasi"
)

// TraceEvent is emitted once per WASI call when ProcessOptions.Trace is set.
type TraceEvent struct {
	Nanos      int64
	Method     string
	FD         uint32
	Errno      wasi.Errno
	DurationNs int64
	Cause      error // a Fault's wrapped pkg/errors chain, nil on success or an unwrapped fault
}

// Tracer receives TraceEvents. A process with Trace=false uses noopTracer;
// otherwise every dispatched WASI call is bracketed by StartSpan and Span.End.
type Tracer interface {
	Emit(ev TraceEvent)
}

type noopTracer struct{}

func (noopTracer) Emit(TraceEvent) {}

// NlogTracer emits a line per call through cmn/nlog, the host's ambient
// logger, rather than a dedicated trace sink: a trace is diagnostic output
// like any other.
type NlogTracer struct{}

func (NlogTracer) Emit(ev TraceEvent) {
	if ev.Cause != nil {
		// %+v on a pkg/errors-wrapped chain prints the full cause stack;
		// the errno on the line above is still the only thing that crossed the ABI.
		nlog.Infof("trace fd=%d method=%s errno=%s dur=%dns cause=%+v", ev.FD, ev.Method, ev.Errno, ev.DurationNs, ev.Cause)
		return
	}
	nlog.Infof("trace fd=%d method=%s errno=%s dur=%dns", ev.FD, ev.Method, ev.Errno, ev.DurationNs)
}

// NewTracer picks the tracer implied by ProcessOptions.Trace.
func NewTracer(enabled bool) Tracer {
	if !enabled {
		return noopTracer{}
	}
	return NlogTracer{}
}

// Span times a single dispatched call and emits a TraceEvent on End.
type Span struct {
	tracer Tracer
	method string
	fd     uint32
	start  int64
}

func StartSpan(t Tracer, method string, fd uint32) Span {
	return Span{tracer: t, method: method, fd: fd, start: mono.NanoTime()}
}

// End closes the span. fault may be nil on success.
func (s Span) End(fault *Fault) {
	ev := TraceEvent{
		Nanos:      mono.NanoTime(),
		Method:     s.method,
		FD:         s.fd,
		DurationNs: mono.Since(s.start),
	}
	if fault != nil {
		ev.Errno = fault.Errno
		ev.Cause = fault.Cause
	}
	s.tracer.Emit(ev)
}
