package wasi

import "encoding/binary"

// View is a little-endian accessor over a byte slice representing guest
// linear memory (or a stand-in buffer in tests). It mirrors memsys's
// MemoryRange load/store API but is self-contained: the WASI value-type
// layer has no dependency on the shared-memory object kit, since a device
// driver may need to lay out these structures in memory it didn't allocate
// through memsys at all (e.g. a buffer handed in by the guest runtime).
type View []byte

func (v View) u8(off int) uint8    { return v[off] }
func (v View) putU8(off int, x uint8) { v[off] = x }

func (v View) u16(off int) uint16     { return binary.LittleEndian.Uint16(v[off:]) }
func (v View) putU16(off int, x uint16) { binary.LittleEndian.PutUint16(v[off:], x) }

func (v View) u32(off int) uint32     { return binary.LittleEndian.Uint32(v[off:]) }
func (v View) putU32(off int, x uint32) { binary.LittleEndian.PutUint32(v[off:], x) }

func (v View) u64(off int) uint64     { return binary.LittleEndian.Uint64(v[off:]) }
func (v View) putU64(off int, x uint64) { binary.LittleEndian.PutUint64(v[off:], x) }

// Filestat: size 64, align 8.
type Filestat struct{ V View }

const (
	SizeFilestat  = 64
	AlignFilestat = 8
)

func (s Filestat) Dev() uint64         { return s.V.u64(0) }
func (s Filestat) SetDev(v uint64)     { s.V.putU64(0, v) }
func (s Filestat) Ino() uint64         { return s.V.u64(8) }
func (s Filestat) SetIno(v uint64)     { s.V.putU64(8, v) }
func (s Filestat) Filetype() Filetype  { return Filetype(s.V.u8(16)) }
func (s Filestat) SetFiletype(v Filetype) { s.V.putU8(16, uint8(v)) }
func (s Filestat) Nlink() uint64       { return s.V.u64(24) }
func (s Filestat) SetNlink(v uint64)   { s.V.putU64(24, v) }
func (s Filestat) Size() uint64        { return s.V.u64(32) }
func (s Filestat) SetSize(v uint64)    { s.V.putU64(32, v) }
func (s Filestat) Atim() uint64        { return s.V.u64(40) }
func (s Filestat) SetAtim(v uint64)    { s.V.putU64(40, v) }
func (s Filestat) Mtim() uint64        { return s.V.u64(48) }
func (s Filestat) SetMtim(v uint64)    { s.V.putU64(48, v) }
func (s Filestat) Ctim() uint64        { return s.V.u64(56) }
func (s Filestat) SetCtim(v uint64)    { s.V.putU64(56, v) }

// Fdstat: size 24, align 8.
type Fdstat struct{ V View }

const (
	SizeFdstat  = 24
	AlignFdstat = 8
)

func (s Fdstat) Filetype() Filetype          { return Filetype(s.V.u8(0)) }
func (s Fdstat) SetFiletype(v Filetype)      { s.V.putU8(0, uint8(v)) }
func (s Fdstat) Flags() Fdflags              { return Fdflags(s.V.u16(2)) }
func (s Fdstat) SetFlags(v Fdflags)          { s.V.putU16(2, uint16(v)) }
func (s Fdstat) RightsBase() Rights          { return Rights(s.V.u64(8)) }
func (s Fdstat) SetRightsBase(v Rights)      { s.V.putU64(8, uint64(v)) }
func (s Fdstat) RightsInheriting() Rights    { return Rights(s.V.u64(16)) }
func (s Fdstat) SetRightsInheriting(v Rights) { s.V.putU64(16, uint64(v)) }

// Ciovec/Iovec: size 8, align 4 (wasm32 guest pointers are 4 bytes).
type Ciovec struct{ V View }
type Iovec struct{ V View }

const (
	SizeIOVec  = 8
	AlignIOVec = 4
)

func (v Ciovec) Buf() uint32     { return v.V.u32(0) }
func (v Ciovec) SetBuf(x uint32) { v.V.putU32(0, x) }
func (v Ciovec) Len() uint32     { return v.V.u32(4) }
func (v Ciovec) SetLen(x uint32) { v.V.putU32(4, x) }

func (v Iovec) Buf() uint32     { return v.V.u32(0) }
func (v Iovec) SetBuf(x uint32) { v.V.putU32(0, x) }
func (v Iovec) Len() uint32     { return v.V.u32(4) }
func (v Iovec) SetLen(x uint32) { v.V.putU32(4, x) }

// Dirent: size 24, align 8.
type Dirent struct{ V View }

const (
	SizeDirent  = 24
	AlignDirent = 8
)

func (d Dirent) Next() uint64       { return d.V.u64(0) }
func (d Dirent) SetNext(v uint64)   { d.V.putU64(0, v) }
func (d Dirent) Ino() uint64        { return d.V.u64(8) }
func (d Dirent) SetIno(v uint64)    { d.V.putU64(8, v) }
func (d Dirent) Namlen() uint32     { return d.V.u32(16) }
func (d Dirent) SetNamlen(v uint32) { d.V.putU32(16, v) }
func (d Dirent) Type() Filetype     { return Filetype(d.V.u8(20)) }
func (d Dirent) SetType(v Filetype) { d.V.putU8(20, uint8(v)) }

// Prestat: size 8, align 4. Only the "dir" variant exists in preview1.
type Prestat struct{ V View }

const (
	SizePrestat  = 8
	AlignPrestat = 4
)

func (p Prestat) Type() Preopentype     { return Preopentype(p.V.u8(0)) }
func (p Prestat) SetType(v Preopentype) { p.V.putU8(0, uint8(v)) }
func (p Prestat) DirNameLen() uint32    { return p.V.u32(4) }
func (p Prestat) SetDirNameLen(v uint32) { p.V.putU32(4, v) }

// SubscriptionClock: size 32, align 8.
type SubscriptionClock struct{ V View }

const (
	SizeSubscriptionClock  = 32
	AlignSubscriptionClock = 8
)

func (c SubscriptionClock) ID() Clockid           { return Clockid(c.V.u32(0)) }
func (c SubscriptionClock) SetID(v Clockid)       { c.V.putU32(0, uint32(v)) }
func (c SubscriptionClock) Timeout() uint64       { return c.V.u64(8) }
func (c SubscriptionClock) SetTimeout(v uint64)   { c.V.putU64(8, v) }
func (c SubscriptionClock) Precision() uint64     { return c.V.u64(16) }
func (c SubscriptionClock) SetPrecision(v uint64) { c.V.putU64(16, v) }
func (c SubscriptionClock) Flags() Subclockflags  { return Subclockflags(c.V.u16(24)) }
func (c SubscriptionClock) SetFlags(v Subclockflags) { c.V.putU16(24, uint16(v)) }

// SubscriptionFdReadwrite: size 4, align 4; occupies the same union slot as
// SubscriptionClock when embedded in a Subscription.
type SubscriptionFdReadwrite struct{ V View }

const (
	SizeSubscriptionFdReadwrite  = 4
	AlignSubscriptionFdReadwrite = 4
)

func (f SubscriptionFdReadwrite) FD() uint32     { return f.V.u32(0) }
func (f SubscriptionFdReadwrite) SetFD(v uint32) { f.V.putU32(0, v) }

// Subscription: size 48, align 8. Layout: userdata(8) | tag(1)+pad(7) | union(32).
type Subscription struct{ V View }

const (
	SizeSubscription         = 48
	AlignSubscription        = 8
	subscriptionTagOff       = 8
	subscriptionUnionOff     = 16
)

func (s Subscription) Userdata() uint64     { return s.V.u64(0) }
func (s Subscription) SetUserdata(v uint64) { s.V.putU64(0, v) }
func (s Subscription) Tag() Eventtype       { return Eventtype(s.V.u8(subscriptionTagOff)) }
func (s Subscription) SetTag(v Eventtype)   { s.V.putU8(subscriptionTagOff, uint8(v)) }

func (s Subscription) Clock() SubscriptionClock {
	return SubscriptionClock{s.V[subscriptionUnionOff : subscriptionUnionOff+SizeSubscriptionClock]}
}

func (s Subscription) FdReadwrite() SubscriptionFdReadwrite {
	return SubscriptionFdReadwrite{s.V[subscriptionUnionOff : subscriptionUnionOff+SizeSubscriptionFdReadwrite]}
}

// EventFdReadwrite: size 16, align 8.
type EventFdReadwrite struct{ V View }

const (
	SizeEventFdReadwrite  = 16
	AlignEventFdReadwrite = 8
)

func (e EventFdReadwrite) Nbytes() uint64         { return e.V.u64(0) }
func (e EventFdReadwrite) SetNbytes(v uint64)     { e.V.putU64(0, v) }
func (e EventFdReadwrite) Flags() Eventrwflags     { return Eventrwflags(e.V.u16(8)) }
func (e EventFdReadwrite) SetFlags(v Eventrwflags) { e.V.putU16(8, uint16(v)) }

// Event: size 32, align 8. Layout: userdata(8) | error(2) | type(1) | pad(5) | fd_readwrite(16, at offset 16).
type Event struct{ V View }

const (
	SizeEvent          = 32
	AlignEvent         = 8
	eventErrorOff      = 8
	eventTypeOff       = 10
	eventFdReadwriteOff = 16
)

func (e Event) Userdata() uint64     { return e.V.u64(0) }
func (e Event) SetUserdata(v uint64) { e.V.putU64(0, v) }
func (e Event) Error() Errno         { return Errno(e.V.u16(eventErrorOff)) }
func (e Event) SetError(v Errno)     { e.V.putU16(eventErrorOff, uint16(v)) }
func (e Event) Type() Eventtype      { return Eventtype(e.V.u8(eventTypeOff)) }
func (e Event) SetType(v Eventtype)  { e.V.putU8(eventTypeOff, uint8(v)) }

func (e Event) FdReadwrite() EventFdReadwrite {
	return EventFdReadwrite{e.V[eventFdReadwriteOff : eventFdReadwriteOff+SizeEventFdReadwrite]}
}
