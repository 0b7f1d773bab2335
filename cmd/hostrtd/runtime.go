// Command hostrtd is a runnable demo host process: it wires the shared-memory
// allocator, the host-RPC transport, the WASI value layer, the fd table, the
// device drivers, and the mount table (C1-C10) into one running process,
// exercises them end to end, then serves a metrics and trace endpoint.
/*
 * Copyright (c) 2024, wasi-embed authors. All rights reserved.
 */
package main

import (
	"os"

	"github.com/wasi-embed/hostrt/cmn/nlog"
	"github.com/wasi-embed/hostrt/device"
	"github.com/wasi-embed/hostrt/ext/assets"
	"github.com/wasi-embed/hostrt/guest"
	"github.com/wasi-embed/hostrt/hk"
	"github.com/wasi-embed/hostrt/memsys"
	"github.com/wasi-embed/hostrt/mount"
	"github.com/wasi-embed/hostrt/rpc"
	"github.com/wasi-embed/hostrt/stats"
	"github.com/wasi-embed/hostrt/wasi"
)

// Runtime is the assembled host: one Region backing the RPC transport and
// shared-memory primitives, one FDTable, one instrumented driver dispatching
// to every mounted driver through RootMux, and the housekeeper/metrics
// infrastructure watching both.
type Runtime struct {
	Region        *memsys.Region
	FDT           *guest.FDTable
	Mux           device.Driver // *stats.InstrumentingDriver wrapping a *mount.RootMux
	WorkspaceRoot *guest.FileDescriptor
	AssetsRoot    *guest.FileDescriptor
	ScratchRoot   *guest.FileDescriptor
	Metrics       *stats.Registry
	HK            *hk.Housekeeper
	Tracer        guest.Tracer
	rpcSrv        *rpc.Server
	rpcCli        *rpc.Client
}

// NewRuntime builds the full stack against workspaceDir (mounted at
// /workspace, host-native) and assetsDir (mounted read-only at /assets,
// backed by a local on-disk bundle store cached under assetsDir/.cache).
// assetsCacheDir is not used by this stack. trace enables per-call
// structured tracing.
func NewRuntime(workspaceDir, assetsDir, assetsCacheDir string, trace bool) (*Runtime, error) {
	region := memsys.NewRegion(4 * 1024 * 1024)

	srv := rpc.NewServer()
	srv.EnableCompression(true)
	cli := rpc.NewClient(region, func(r *memsys.Region, rng memsys.MemoryRange) {
		srv.Dispatch(r, rng)
	})
	cli.EnableCompression(true)

	registerStdioHandlers(srv)

	reg := stats.NewRegistry()
	cli.SetMetrics(reg)

	table := mount.NewTable()

	nativeFS := device.NewNativeFS()
	workspaceRoot := &guest.FileDescriptor{
		DeviceID: nativeFS.ID(), Filetype: wasi.FiletypeDirectory,
		RightsBase: wasi.DirectoryBase, RightsInheriting: wasi.DirectoryInheriting,
	}
	table.Add("/workspace", nativeFS, workspaceRoot)

	localStore := assets.NewLocalStore(assetsDir)
	extRes := device.NewExtRes(localStore)
	assetsRoot := &guest.FileDescriptor{
		DeviceID: extRes.ID(), Filetype: wasi.FiletypeDirectory,
		RightsBase: wasi.DirectoryBase & wasi.ReadOnlyMask, RightsInheriting: wasi.DirectoryInheriting & wasi.ReadOnlyMask,
	}
	table.Add("/assets", extRes, assetsRoot)

	memFS, err := device.NewMemFS()
	if err != nil {
		return nil, err
	}
	scratchRoot := &guest.FileDescriptor{
		DeviceID: memFS.ID(), Filetype: wasi.FiletypeDirectory,
		RightsBase: wasi.DirectoryBase, RightsInheriting: wasi.DirectoryInheriting,
	}
	table.Add("/tmp", memFS, scratchRoot)

	fdt := guest.NewFDTable()
	fdt.InstallStdio(
		device.NewStdioDescriptor("stdin", wasi.StdinBase),
		device.NewStdioDescriptor("stdout", wasi.StdoutBase),
		device.NewStdioDescriptor("stderr", wasi.StdoutBase),
	)
	table.PreOpen(fdt)

	rm := mount.NewRootMux(table)
	instrumented := stats.NewInstrumentingDriver(rm, reg)

	housekeeper := hk.New()
	hk.DefaultHK = housekeeper
	closeFn := func(fd uint32) {
		if f, fault := fdt.Get(fd); fault == nil {
			if fault := instrumented.FdClose(f); fault != nil {
				nlog.Warningf("hostrtd: sweep close fd=%d failed: %v", fd, fault)
			}
		}
	}
	hk.RegisterStaleHandleSweep(fdt, closeFn)
	hk.RegisterPressureReclaim()

	return &Runtime{
		Region:        region,
		FDT:           fdt,
		Mux:           instrumented,
		WorkspaceRoot: workspaceRoot,
		AssetsRoot:    assetsRoot,
		ScratchRoot:   scratchRoot,
		Metrics:       reg,
		HK:            housekeeper,
		Tracer:        guest.NewTracer(trace),
		rpcSrv:        srv,
		rpcCli:        cli,
	}, nil
}

// refreshGauges republishes the per-device open-descriptor gauge; called
// periodically from main's metrics-refresh loop rather than on every fd
// operation, since the gauge only needs to be accurate at scrape time.
func (rt *Runtime) refreshGauges() {
	for dev, n := range rt.FDT.CountsByDevice() {
		rt.Metrics.SetOpenDescriptors(dev, n)
	}
	sample := memsys.SamplePressure()
	rt.Metrics.SetFreeBytes(sample.Free)
}

func registerStdioHandlers(srv *rpc.Server) {
	srv.Register("$/stdio.write", func(req *rpc.Request) (any, error) {
		stream, _ := req.Params["stream"].(string)
		out := os.Stdout
		if stream == "stderr" {
			out = os.Stderr
		}
		_, err := out.Write(req.Binary)
		return nil, err
	})
	srv.Register("$/stdio.read", func(*rpc.Request) (any, error) {
		return "", nil // the demo process never feeds guest stdin
	})
}
