package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/wasi-embed/hostrt/cmn/nlog"
	"github.com/wasi-embed/hostrt/guest"
	"github.com/wasi-embed/hostrt/wasi"
)

var (
	listenAddr     string
	workspaceDir   string
	assetsDir      string
	assetsCacheDir string
	trace          bool
)

func init() {
	flag.StringVar(&listenAddr, "listen", ":9444", "address to serve /metrics and /debug/trace on")
	flag.StringVar(&workspaceDir, "workspace", ".", "host directory mounted at /workspace")
	flag.StringVar(&assetsDir, "assets", ".", "host directory served read-only at /assets")
	flag.StringVar(&assetsCacheDir, "assets-cache", os.TempDir(), "cache directory for remote-backed asset stores")
	flag.BoolVar(&trace, "trace", false, "emit a structured trace line per dispatched WASI call")
}

func main() {
	flag.Parse()

	rt, err := NewRuntime(workspaceDir, assetsDir, assetsCacheDir, trace)
	if err != nil {
		nlog.Errorf("hostrtd: failed to assemble runtime: %v", err)
		os.Exit(1)
	}

	hub := newTraceHub()
	if trace {
		rt.Tracer = hub
	}

	go rt.HK.Run()
	rt.HK.WaitStarted()

	stopGauges := make(chan struct{})
	go refreshGaugesLoop(rt, stopGauges)

	runDemoSequence(rt)

	srv := &fasthttp.Server{Handler: newHTTPHandler(rt.Metrics, hub)}
	go func() {
		nlog.Infof("hostrtd: serving /metrics and /debug/trace on %s", listenAddr)
		if err := srv.ListenAndServe(listenAddr); err != nil {
			nlog.Errorf("hostrtd: http server exited: %v", err)
		}
	}()

	waitForSignal()

	close(stopGauges)
	rt.HK.Stop()
	_ = srv.Shutdown()
	nlog.Flush(true)
}

func refreshGaugesLoop(rt *Runtime, stop chan struct{}) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			rt.refreshGauges()
		case <-stop:
			return
		}
	}
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-c
}

// runDemoSequence exercises the freshly assembled stack once at startup: a
// file created and written on the host-native workspace mount, a listing
// of the read-only assets mount, and a scratch file on the in-memory mount,
// all dispatched through the same instrumented driver a real guest would
// use. Every call is traced (if -trace is set) and counted in /metrics.
func runDemoSequence(rt *Runtime) {
	mux := rt.Mux

	span := guest.StartSpan(rt.Tracer, "path_open", rt.WorkspaceRoot.FD)
	f, fault := mux.PathOpen(rt.WorkspaceRoot, "hostrtd-demo.txt", wasi.OflagsCreat|wasi.OflagsTrunc, wasi.FileBase, 0, 0, 0)
	span.End(fault)
	if fault != nil {
		nlog.Warningf("hostrtd: demo path_open failed: %v", fault)
		return
	}

	span = guest.StartSpan(rt.Tracer, "fd_write", f.FD)
	_, fault = mux.FdWrite(f, []byte("hostrtd is alive\n"))
	span.End(fault)

	span = guest.StartSpan(rt.Tracer, "fd_close", f.FD)
	fault = mux.FdClose(f)
	span.End(fault)

	span = guest.StartSpan(rt.Tracer, "fd_readdir", rt.AssetsRoot.FD)
	_, fault = mux.FdReaddir(rt.AssetsRoot, 0, 4096)
	span.End(fault)
	if fault != nil {
		nlog.Warningf("hostrtd: demo assets readdir failed: %v", fault)
	}

	span = guest.StartSpan(rt.Tracer, "path_open", rt.ScratchRoot.FD)
	s, fault := mux.PathOpen(rt.ScratchRoot, "hostrtd-scratch.txt", wasi.OflagsCreat|wasi.OflagsTrunc, wasi.FileBase, 0, 0, 0)
	span.End(fault)
	if fault != nil {
		nlog.Warningf("hostrtd: demo scratch path_open failed: %v", fault)
		return
	}

	span = guest.StartSpan(rt.Tracer, "fd_write", s.FD)
	_, fault = mux.FdWrite(s, []byte("scratch\n"))
	span.End(fault)

	span = guest.StartSpan(rt.Tracer, "fd_close", s.FD)
	fault = mux.FdClose(s)
	span.End(fault)
}
