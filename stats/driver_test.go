package stats

import (
	"testing"

	"github.com/wasi-embed/hostrt/device"
	"github.com/wasi-embed/hostrt/guest"
	"github.com/wasi-embed/hostrt/wasi"
)

type recordedOp struct {
	device, op, errno string
}

type fakeObserver struct {
	ops []recordedOp
}

func (f *fakeObserver) ObserveDeviceOp(device, op, errno string) {
	f.ops = append(f.ops, recordedOp{device, op, errno})
}

func rootDirFD() *guest.FileDescriptor {
	return &guest.FileDescriptor{
		DeviceID: "memfs", Filetype: wasi.FiletypeDirectory,
		RightsBase: wasi.DirectoryBase, RightsInheriting: wasi.DirectoryInheriting,
	}
}

func TestInstrumentingDriverRecordsSuccessAndFailure(t *testing.T) {
	fs, err := device.NewMemFS()
	if err != nil {
		t.Fatal(err)
	}
	obs := &fakeObserver{}
	d := NewInstrumentingDriver(fs, obs)
	root := rootDirFD()

	if _, fault := d.PathOpen(root, "hello.txt", wasi.OflagsCreat, wasi.FileBase, wasi.FileInheriting, 0, 0); fault != nil {
		t.Fatalf("path_open failed: %v", fault)
	}
	if _, fault := d.PathOpen(root, "missing.txt", 0, wasi.FileBase, wasi.FileInheriting, 0, 0); fault == nil {
		t.Fatal("expected path_open against a missing file to fault")
	}

	if len(obs.ops) != 2 {
		t.Fatalf("expected 2 recorded ops, got %d", len(obs.ops))
	}
	if obs.ops[0].op != "path_open" || obs.ops[0].errno != "success" {
		t.Fatalf("unexpected first record: %+v", obs.ops[0])
	}
	if obs.ops[1].errno == "success" {
		t.Fatalf("expected the second open to record a failing errno, got %+v", obs.ops[1])
	}
	if obs.ops[0].device != "memfs" {
		t.Fatalf("expected device label memfs, got %q", obs.ops[0].device)
	}
}

func TestInstrumentingDriverPreservesID(t *testing.T) {
	fs, err := device.NewMemFS()
	if err != nil {
		t.Fatal(err)
	}
	d := NewInstrumentingDriver(fs, &fakeObserver{})
	if d.ID() != fs.ID() {
		t.Fatalf("expected ID() %q, got %q", fs.ID(), d.ID())
	}
}
