package main

import (
	"bufio"

	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"

	"github.com/wasi-embed/hostrt/cmn/nlog"
	"github.com/wasi-embed/hostrt/stats"
)

// newHTTPHandler builds the fasthttp request handler serving /metrics
// (Prometheus text exposition) and /debug/trace (NDJSON stream of
// guest.TraceEvent lines) per SPEC_FULL §6. fasthttp is used instead of
// net/http so the demo process can be scraped without pulling in the
// standard library's heavier ServeMux/http.Server stack.
func newHTTPHandler(reg *stats.Registry, hub *traceHub) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/metrics":
			serveMetrics(ctx, reg)
		case "/debug/trace":
			serveTrace(ctx, hub)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}
}

func serveMetrics(ctx *fasthttp.RequestCtx, reg *stats.Registry) {
	mf, err := reg.Gatherer().Gather()
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		nlog.Errorf("hostrtd: gather metrics failed: %v", err)
		return
	}
	ctx.SetContentType(string(expfmt.FmtText))
	enc := expfmt.NewEncoder(ctx.Response.BodyWriter(), expfmt.FmtText)
	for _, fam := range mf {
		if err := enc.Encode(fam); err != nil {
			nlog.Errorf("hostrtd: encode metric family failed: %v", err)
			return
		}
	}
}

func serveTrace(ctx *fasthttp.RequestCtx, hub *traceHub) {
	ctx.SetContentType("application/x-ndjson")
	ch := hub.subscribe()
	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		defer hub.unsubscribe(ch)
		streamTo(w, ch)
	})
}
