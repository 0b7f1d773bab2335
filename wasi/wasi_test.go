package wasi

import "testing"

func TestFilestatRoundTrip(t *testing.T) {
	buf := make(View, SizeFilestat)
	s := Filestat{buf}
	s.SetDev(1)
	s.SetIno(2)
	s.SetFiletype(FiletypeRegularFile)
	s.SetNlink(3)
	s.SetSize(4096)
	s.SetAtim(100)
	s.SetMtim(200)
	s.SetCtim(300)

	if s.Dev() != 1 || s.Ino() != 2 || s.Filetype() != FiletypeRegularFile ||
		s.Nlink() != 3 || s.Size() != 4096 || s.Atim() != 100 || s.Mtim() != 200 || s.Ctim() != 300 {
		t.Fatalf("round trip mismatch: %+v", s)
	}
}

func TestFdstatRoundTrip(t *testing.T) {
	buf := make(View, SizeFdstat)
	s := Fdstat{buf}
	s.SetFiletype(FiletypeDirectory)
	s.SetFlags(FdflagsNonblock)
	s.SetRightsBase(DirectoryBase)
	s.SetRightsInheriting(DirectoryInheriting)

	if s.Filetype() != FiletypeDirectory || s.Flags() != FdflagsNonblock {
		t.Fatal("fdstat scalar fields mismatch")
	}
	if s.RightsBase() != DirectoryBase || s.RightsInheriting() != DirectoryInheriting {
		t.Fatal("fdstat rights fields mismatch")
	}
}

func TestCiovecIovecRoundTrip(t *testing.T) {
	buf := make(View, SizeIOVec)
	c := Ciovec{buf}
	c.SetBuf(0x1000)
	c.SetLen(64)
	if c.Buf() != 0x1000 || c.Len() != 64 {
		t.Fatal("ciovec round trip mismatch")
	}

	buf2 := make(View, SizeIOVec)
	v := Iovec{buf2}
	v.SetBuf(0x2000)
	v.SetLen(128)
	if v.Buf() != 0x2000 || v.Len() != 128 {
		t.Fatal("iovec round trip mismatch")
	}
}

func TestDirentRoundTrip(t *testing.T) {
	buf := make(View, SizeDirent)
	d := Dirent{buf}
	d.SetNext(7)
	d.SetIno(42)
	d.SetNamlen(5)
	d.SetType(FiletypeDirectory)

	if d.Next() != 7 || d.Ino() != 42 || d.Namlen() != 5 || d.Type() != FiletypeDirectory {
		t.Fatal("dirent round trip mismatch")
	}
}

func TestPrestatRoundTrip(t *testing.T) {
	buf := make(View, SizePrestat)
	p := Prestat{buf}
	p.SetType(PreopentypeDir)
	p.SetDirNameLen(9)
	if p.Type() != PreopentypeDir || p.DirNameLen() != 9 {
		t.Fatal("prestat round trip mismatch")
	}
}

func TestSubscriptionClockVariant(t *testing.T) {
	buf := make(View, SizeSubscription)
	s := Subscription{buf}
	s.SetUserdata(99)
	s.SetTag(EventtypeClock)

	c := s.Clock()
	c.SetID(ClockidMonotonic)
	c.SetTimeout(1_000_000)
	c.SetPrecision(1000)
	c.SetFlags(SubclockflagsSubscriptionClockAbstime)

	if s.Userdata() != 99 || s.Tag() != EventtypeClock {
		t.Fatal("subscription scalar fields mismatch")
	}
	c2 := s.Clock()
	if c2.ID() != ClockidMonotonic || c2.Timeout() != 1_000_000 ||
		c2.Precision() != 1000 || c2.Flags() != SubclockflagsSubscriptionClockAbstime {
		t.Fatal("subscription clock union mismatch")
	}
}

func TestSubscriptionFdReadwriteVariant(t *testing.T) {
	buf := make(View, SizeSubscription)
	s := Subscription{buf}
	s.SetTag(EventtypeFdRead)
	s.FdReadwrite().SetFD(3)

	if s.Tag() != EventtypeFdRead {
		t.Fatal("subscription tag mismatch")
	}
	if s.FdReadwrite().FD() != 3 {
		t.Fatal("subscription fd_readwrite union mismatch")
	}
}

func TestEventRoundTrip(t *testing.T) {
	buf := make(View, SizeEvent)
	e := Event{buf}
	e.SetUserdata(55)
	e.SetError(ErrnoSuccess)
	e.SetType(EventtypeFdWrite)
	e.FdReadwrite().SetNbytes(4096)
	e.FdReadwrite().SetFlags(EventrwflagsFdReadwriteHangup)

	if e.Userdata() != 55 || e.Error() != ErrnoSuccess || e.Type() != EventtypeFdWrite {
		t.Fatal("event scalar fields mismatch")
	}
	fw := e.FdReadwrite()
	if fw.Nbytes() != 4096 || fw.Flags() != EventrwflagsFdReadwriteHangup {
		t.Fatal("event fd_readwrite nested struct mismatch")
	}
}

func TestRightsComposites(t *testing.T) {
	if !DirectoryInheriting.Has(FileBase) {
		t.Fatal("directory inheriting rights must include file base rights")
	}
	if FileInheriting != 0 {
		t.Fatal("file inheriting rights must be empty")
	}
	if !StdinBase.Has(RightFdRead) || StdinBase.Has(RightFdWrite) {
		t.Fatal("stdin base rights wrong")
	}
	if !StdoutBase.Has(RightFdWrite) || StdoutBase.Has(RightFdRead) {
		t.Fatal("stdout base rights wrong")
	}
	ro := DirectoryBase & ReadOnlyMask
	if ro.Has(RightPathCreateFile) || ro.Has(RightPathUnlinkFile) {
		t.Fatal("read-only mask failed to clear a mutating right")
	}
	if !ro.Has(RightFdReaddir) || !ro.Has(RightPathOpen) {
		t.Fatal("read-only mask cleared a read-only right")
	}
}

func TestErrnoString(t *testing.T) {
	if ErrnoSuccess.String() != "success" {
		t.Fatal("errno 0 should stringify to success")
	}
	if ErrnoNotcapable.String() != "notcapable" {
		t.Fatal("errno 76 should stringify to notcapable")
	}
	if Errno(9999).String() != "unknown errno" {
		t.Fatal("out-of-range errno should fall back to unknown errno")
	}
}
