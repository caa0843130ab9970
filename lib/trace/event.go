// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package trace

import "github.com/tracewire/tracewire/lib/wire"

// headerSize is the encoded size of the record header every event starts
// with: klass_id (u32), timestamp (u64), id (u64).
const headerSize = 4 + 8 + 8

// Event is the record header embedded in every concrete event. It is itself
// a pushable record of the base klass.
type Event struct {
	KlassID   uint32
	Timestamp uint64
	ID        uint64
}

// A Record is an event that can be stamped and encoded. Concrete event types
// embed Event and add their own fields in a fixed order.
type Record interface {
	// Base returns the embedded record header, for stamping.
	Base() *Event
	// Klass returns the record's schema descriptor.
	Klass() *Klass
	// EncodedSize returns the canonical encoded size in bytes.
	EncodedSize() int
	// AppendEncoded appends the canonical encoding: the header followed by
	// the fields in descriptor order, little-endian, strings NUL-terminated,
	// struct fields as full nested records.
	AppendEncoded(buf []byte) []byte
}

func (e *Event) Base() *Event {
	return e
}

func (e *Event) Klass() *Klass {
	return BaseEventKlass
}

func (e *Event) EncodedSize() int {
	return headerSize
}

func (e *Event) AppendEncoded(buf []byte) []byte {
	return AppendHeader(buf, e)
}

// AppendHeader appends the record header. Concrete AppendEncoded
// implementations call this first.
func AppendHeader(buf []byte, e *Event) []byte {
	w := wire.AppendWriter(buf)
	xw := wire.NewWriter(&w)
	xw.WriteUint32(e.KlassID)
	xw.WriteUint64(e.Timestamp)
	xw.WriteUint64(e.ID)
	return w
}

// StringSize returns the encoded size of a string field, including the
// terminating NUL.
func StringSize(s string) int {
	return len(s) + 1
}

func builtinKlass(id uint32, name string, fixedSize int, fields ...Field) *Klass {
	k := &Klass{
		name:      name,
		fields:    fields,
		fixedSize: fixedSize,
	}
	k.id.Store(id)
	return k
}

// The built-in klasses, present in every registry under the reserved IDs.
var (
	BaseEventKlass = builtinKlass(BaseEventKlassID, "Event", headerSize,
		Field{Name: "klass_id", TypeName: "uint32", Kind: U32, Size: 4},
		Field{Name: "timestamp", TypeName: "uint64", Kind: U64, Size: 8},
		Field{Name: "id", TypeName: "uint64", Kind: U64, Size: 8},
	)

	EndiannessInfoKlass = builtinKlass(EndiannessInfoKlassID, "EndiannessInfoEvent", headerSize+1,
		Field{Name: "endianness", TypeName: "uint8", Kind: U8, Size: 1},
	)

	EventKlassInfoKlass = builtinKlass(EventKlassInfoKlassID, "EventKlassInfoEvent", 0,
		Field{Name: "info_klass_id", TypeName: "uint32", Kind: U32, Size: 4},
		Field{Name: "event_klass_name", TypeName: "string", Kind: String, Size: 0},
		Field{Name: "field_count", TypeName: "uint8", Kind: U8, Size: 1},
	)

	EventKlassFieldInfoKlass = builtinKlass(EventKlassFieldInfoKlassID, "EventKlassFieldInfoEvent", 0,
		Field{Name: "info_klass_id", TypeName: "uint32", Kind: U32, Size: 4},
		Field{Name: "field_type", TypeName: "string", Kind: String, Size: 0},
		Field{Name: "field_name", TypeName: "string", Kind: String, Size: 0},
		Field{Name: "size", TypeName: "uint64", Kind: U64, Size: 8},
		Field{Name: "data_type", TypeName: "uint8", Kind: U8, Size: 1},
	)
)

const (
	// EndianLittle and EndianBig are the values of the endianness field in
	// an EndiannessInfoEvent.
	EndianLittle uint8 = 0
	EndianBig    uint8 = 1
)

// EndiannessInfoEvent announces the emitter's byte order. It is the first
// record on every outbound stream, written by the sink.
type EndiannessInfoEvent struct {
	Event
	Endianness uint8
}

func (e *EndiannessInfoEvent) Klass() *Klass {
	return EndiannessInfoKlass
}

func (e *EndiannessInfoEvent) EncodedSize() int {
	return headerSize + 1
}

func (e *EndiannessInfoEvent) AppendEncoded(buf []byte) []byte {
	buf = AppendHeader(buf, &e.Event)
	return append(buf, e.Endianness)
}

// EventKlassInfoEvent announces a klass: its ID, name and field count. The
// fields follow as EventKlassFieldInfoEvent records.
type EventKlassInfoEvent struct {
	Event
	InfoKlassID    uint32
	EventKlassName string
	FieldCount     uint8
}

func (e *EventKlassInfoEvent) Klass() *Klass {
	return EventKlassInfoKlass
}

func (e *EventKlassInfoEvent) EncodedSize() int {
	return headerSize + 4 + StringSize(e.EventKlassName) + 1
}

func (e *EventKlassInfoEvent) AppendEncoded(buf []byte) []byte {
	w := wire.AppendWriter(AppendHeader(buf, &e.Event))
	xw := wire.NewWriter(&w)
	xw.WriteUint32(e.InfoKlassID)
	xw.WriteString(e.EventKlassName)
	xw.WriteUint8(e.FieldCount)
	return w
}

// EventKlassFieldInfoEvent announces one field of a klass.
type EventKlassFieldInfoEvent struct {
	Event
	InfoKlassID uint32
	FieldType   string
	FieldName   string
	Size        uint64
	DataType    uint8
}

func (e *EventKlassFieldInfoEvent) Klass() *Klass {
	return EventKlassFieldInfoKlass
}

func (e *EventKlassFieldInfoEvent) EncodedSize() int {
	return headerSize + 4 + StringSize(e.FieldType) + StringSize(e.FieldName) + 8 + 1
}

func (e *EventKlassFieldInfoEvent) AppendEncoded(buf []byte) []byte {
	w := wire.AppendWriter(AppendHeader(buf, &e.Event))
	xw := wire.NewWriter(&w)
	xw.WriteUint32(e.InfoKlassID)
	xw.WriteString(e.FieldType)
	xw.WriteString(e.FieldName)
	xw.WriteUint64(e.Size)
	xw.WriteUint8(e.DataType)
	return w
}
