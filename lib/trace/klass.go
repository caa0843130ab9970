// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package trace

import "sync/atomic"

// InvalidKlassID marks a klass that has not been registered yet.
const InvalidKlassID uint32 = 0xFFFFFFFF

// nextKlassID allocates user klass IDs. They are process-unique: a klass
// registered with several registries keeps the ID it was first assigned.
var nextKlassID atomic.Uint32

func init() {
	nextKlassID.Store(firstUserKlassID)
}

// Reserved klass IDs for the built-in event klasses.
const (
	BaseEventKlassID uint32 = iota
	EndiannessInfoKlassID
	EventKlassInfoKlassID
	EventKlassFieldInfoKlassID

	firstUserKlassID
)

// FieldKind describes the decoded representation of a field. The numeric
// kinds are those up to and including I64.
type FieldKind uint8

const (
	U8 FieldKind = iota
	I8
	U16
	I16
	U32
	I32
	U64
	I64
	Pointer
	String
	Struct
)

func (k FieldKind) IsNumeric() bool {
	return k <= I64
}

func (k FieldKind) IsSigned() bool {
	return k == I8 || k == I16 || k == I32 || k == I64
}

func (k FieldKind) String() string {
	switch k {
	case U8:
		return "u8"
	case I8:
		return "i8"
	case U16:
		return "u16"
	case I16:
		return "i16"
	case U32:
		return "u32"
	case I32:
		return "i32"
	case U64:
		return "u64"
	case I64:
		return "i64"
	case Pointer:
		return "pointer"
	case String:
		return "string"
	case Struct:
		return "struct"
	default:
		return "unknown"
	}
}

// The data_type byte carried by EventKlassFieldInfoEvent records. Signedness
// of integer fields is encoded here and nowhere else; the float tag is
// reserved and never emitted.
const (
	DataTypeStruct          uint8 = 0
	DataTypeInteger         uint8 = 1
	DataTypeFloat           uint8 = 2
	DataTypeString          uint8 = 3
	DataTypePointer         uint8 = 4
	DataTypeUnsignedInteger uint8 = 5
)

// DataType returns the wire tag for the field kind.
func (k FieldKind) DataType() uint8 {
	switch k {
	case String:
		return DataTypeString
	case Pointer:
		return DataTypePointer
	case Struct:
		return DataTypeStruct
	default:
		if k.IsSigned() {
			return DataTypeInteger
		}
		return DataTypeUnsignedInteger
	}
}

// KindFor maps a wire data_type tag and field size back to a FieldKind.
func KindFor(dataType uint8, size uint64) (FieldKind, bool) {
	switch dataType {
	case DataTypeStruct:
		return Struct, true
	case DataTypeString:
		return String, true
	case DataTypePointer:
		return Pointer, true
	case DataTypeInteger:
		switch size {
		case 1:
			return I8, true
		case 2:
			return I16, true
		case 4:
			return I32, true
		case 8:
			return I64, true
		}
	case DataTypeUnsignedInteger:
		switch size {
		case 1:
			return U8, true
		case 2:
			return U16, true
		case 4:
			return U32, true
		case 8:
			return U64, true
		}
	}
	return 0, false
}

// A Field describes one event field: its name, the emitter's type name, the
// decoded kind and the encoded size in bytes. String and Struct fields have
// no fixed encoded size; their Size records the emitter's in-memory size and
// is not used for decoding.
type Field struct {
	Name     string
	TypeName string
	Kind     FieldKind
	Size     uint64
}

// A Klass is an event schema: a name and an ordered field list, identified
// by a process-unique ID once registered. The field list excludes the record
// header (klass_id, timestamp, id) that every event carries.
type Klass struct {
	id        atomic.Uint32
	name      string
	fields    []Field
	fixedSize int
}

// NewKlass returns an unregistered klass descriptor. Pass it to
// Registry.RegisterKlass to assign its ID.
func NewKlass(name string, fields ...Field) *Klass {
	k := &Klass{
		name:   name,
		fields: fields,
	}
	k.id.Store(InvalidKlassID)

	size := headerSize
	for _, f := range fields {
		if f.Kind == String || f.Kind == Struct {
			size = 0
			break
		}
		size += int(f.Size)
	}
	k.fixedSize = size

	return k
}

func (k *Klass) ID() uint32 {
	return k.id.Load()
}

func (k *Klass) Name() string {
	return k.name
}

func (k *Klass) Fields() []Field {
	return k.fields
}

// FixedSize returns the passthrough record size for klasses whose every
// field has a fixed encoding. The second return is false for klasses with
// string or struct fields.
func (k *Klass) FixedSize() (int, bool) {
	if k.fixedSize == 0 {
		return 0, false
	}
	return k.fixedSize, true
}
