package memsys

import "github.com/wasi-embed/hostrt/cmn/debug"

// PropertyKind enumerates the scalar and nested-record field kinds a
// RecordDescriptor can lay out. Alignment follows the standard Component
// Model rule: scalars align to their own size, capped at 8.
type PropertyKind int

const (
	KindU8 PropertyKind = iota
	KindU16
	KindU32
	KindU64
	KindI8
	KindI16
	KindI32
	KindI64
	KindRecord // nested record; Field.Nested must be set
)

func (k PropertyKind) sizeAlign() (size, align uint32) {
	switch k {
	case KindU8, KindI8:
		return 1, 1
	case KindU16, KindI16:
		return 2, 2
	case KindU32, KindI32:
		return 4, 4
	case KindU64, KindI64:
		return 8, 8
	default:
		return 0, 0 // KindRecord: resolved from Nested
	}
}

type Field struct {
	Name   string
	Kind   PropertyKind
	Nested *RecordDescriptor // required iff Kind == KindRecord
}

type resolvedField struct {
	Field
	offset uint32
	size   uint32
}

// RecordDescriptor computes a field layout (offsets, alignment, total size)
// for a shared record, the way a Component-Model record type does: each
// field is padded to its own alignment, and the record's alignment is the
// max of its fields' alignments.
//
// Every shared record implicitly begins with a hidden 4-byte `_lock` field.
// Object descriptors (NewObjectDescriptor) additionally reserve `_size` and
// `_id`, immediately after `_lock`, before any user field.
type RecordDescriptor struct {
	fields    []resolvedField
	byName    map[string]int
	align     uint32
	size      uint32
	lockOff   uint32
	sizeOff   uint32 // 0 if not an object
	idOff     uint32 // 0 if not an object
	isObject  bool
}

const lockFieldSize = 4

func NewRecordDescriptor(userFields []Field) *RecordDescriptor {
	return build(userFields, false)
}

func NewObjectDescriptor(userFields []Field) *RecordDescriptor {
	return build(userFields, true)
}

func build(userFields []Field, object bool) *RecordDescriptor {
	rd := &RecordDescriptor{byName: make(map[string]int, len(userFields)), align: lockFieldSize, isObject: object}
	var off uint32
	rd.lockOff = off
	off += lockFieldSize
	if object {
		rd.sizeOff = off
		off += 4
		rd.idOff = off
		off += 4
	}
	for _, f := range userFields {
		var size, align uint32
		if f.Kind == KindRecord {
			debug.Assert(f.Nested != nil, "nested record field requires Nested descriptor")
			size, align = f.Nested.size, f.Nested.align
		} else {
			size, align = f.Kind.sizeAlign()
		}
		if align > rd.align {
			rd.align = align
		}
		off = alignUp(off, align)
		rd.byName[f.Name] = len(rd.fields)
		rd.fields = append(rd.fields, resolvedField{Field: f, offset: off, size: size})
		off += size
	}
	rd.size = alignUp(off, rd.align)
	return rd
}

func (rd *RecordDescriptor) Size() uint32  { return rd.size }
func (rd *RecordDescriptor) Align() uint32 { return rd.align }

// Load returns an accessor bound to a MemoryRange already sized for this
// descriptor (typically range.Sub(0, rd.Size()) of a larger allocation).
func (rd *RecordDescriptor) Load(rng MemoryRange) *RecordAccessor {
	debug.Assert(rng.Length() >= rd.size, "range too small for record")
	return &RecordAccessor{rd: rd, rng: rng}
}

// RecordAccessor reads/writes a record's fields by name against the
// underlying MemoryRange, translating each access into little-endian
// get/set calls at the field's computed offset.
type RecordAccessor struct {
	rd  *RecordDescriptor
	rng MemoryRange
}

func (a *RecordAccessor) field(name string) resolvedField {
	idx, ok := a.rd.byName[name]
	debug.Assertf(ok, "unknown record field %q", name)
	return a.rd.fields[idx]
}

func (a *RecordAccessor) GetU8(name string) uint8   { return a.rng.LoadU8(a.field(name).offset) }
func (a *RecordAccessor) SetU8(name string, v uint8) { a.rng.StoreU8(a.field(name).offset, v) }
func (a *RecordAccessor) GetU16(name string) uint16  { return a.rng.LoadU16(a.field(name).offset) }
func (a *RecordAccessor) SetU16(name string, v uint16) { a.rng.StoreU16(a.field(name).offset, v) }
func (a *RecordAccessor) GetU32(name string) uint32  { return a.rng.LoadU32(a.field(name).offset) }
func (a *RecordAccessor) SetU32(name string, v uint32) { a.rng.StoreU32(a.field(name).offset, v) }
func (a *RecordAccessor) GetU64(name string) uint64  { return a.rng.LoadU64(a.field(name).offset) }
func (a *RecordAccessor) SetU64(name string, v uint64) { a.rng.StoreU64(a.field(name).offset, v) }
func (a *RecordAccessor) GetI8(name string) int8    { return a.rng.LoadI8(a.field(name).offset) }
func (a *RecordAccessor) SetI8(name string, v int8) { a.rng.StoreI8(a.field(name).offset, v) }
func (a *RecordAccessor) GetI16(name string) int16    { return a.rng.LoadI16(a.field(name).offset) }
func (a *RecordAccessor) SetI16(name string, v int16) { a.rng.StoreI16(a.field(name).offset, v) }
func (a *RecordAccessor) GetI32(name string) int32    { return a.rng.LoadI32(a.field(name).offset) }
func (a *RecordAccessor) SetI32(name string, v int32) { a.rng.StoreI32(a.field(name).offset, v) }
func (a *RecordAccessor) GetI64(name string) int64    { return a.rng.LoadI64(a.field(name).offset) }
func (a *RecordAccessor) SetI64(name string, v int64) { a.rng.StoreI64(a.field(name).offset, v) }

// GetRecord returns a nested accessor for a KindRecord field. There is
// deliberately no SetRecord: a nested record's fields are mutated through
// its own accessor, not replaced wholesale.
func (a *RecordAccessor) GetRecord(name string) *RecordAccessor {
	f := a.field(name)
	debug.Assert(f.Kind == KindRecord, "field is not a nested record")
	sub := a.rng.Sub(f.offset, f.size)
	return &RecordAccessor{rd: f.Nested, rng: sub}
}

// lock/size/id accessors for the hidden object header fields.
func (a *RecordAccessor) lockOffset() uint32 { return a.rng.Offset() + a.rd.lockOff }
func (a *RecordAccessor) region() *Region    { return a.rng.Region() }

func (a *RecordAccessor) ObjectSize() uint32 {
	debug.Assert(a.rd.isObject, "not an object descriptor")
	return a.rng.LoadU32(a.rd.sizeOff)
}

func (a *RecordAccessor) SetObjectSize(v uint32) {
	debug.Assert(a.rd.isObject, "not an object descriptor")
	a.rng.StoreU32(a.rd.sizeOff, v)
}

func (a *RecordAccessor) ObjectID() uint32 {
	debug.Assert(a.rd.isObject, "not an object descriptor")
	return a.rng.LoadU32(a.rd.idOff)
}

func (a *RecordAccessor) SetObjectID(v uint32) {
	debug.Assert(a.rd.isObject, "not an object descriptor")
	a.rng.StoreU32(a.rd.idOff, v)
}
