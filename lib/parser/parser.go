// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package parser decodes a trace byte stream back into typed events. The
// schema is learned from metadata transmitted in-band; the stream is
// self-describing apart from the four well-known klasses.
package parser

import (
	"errors"
	"fmt"
	"io"

	"github.com/tracewire/tracewire/lib/trace"
	"github.com/tracewire/tracewire/lib/wire"
)

var (
	// ErrUnknownKlass is returned when a record references a klass the
	// stream never announced. Records carry no length prefix, so there is
	// no resynchronization point; the stream ends here.
	ErrUnknownKlass = errors.New("unknown event klass")

	// ErrBadStream is returned when the stream does not begin with an
	// endianness marker record.
	ErrBadStream = errors.New("stream does not begin with an endianness marker")
)

// A Parser decodes records from a byte stream. Schema events are applied to
// the parser's klass register as they are seen, and returned to the caller
// like any other event.
type Parser struct {
	r            *wire.Reader
	reg          *KlassRegister
	bootstrapped bool
}

// New returns a parser with a fresh klass register.
func New(r io.ByteReader) *Parser {
	return NewWithRegister(r, NewKlassRegister())
}

// NewWithRegister returns a parser decoding against an existing register,
// for streams whose schema was learned elsewhere.
func NewWithRegister(r io.ByteReader, reg *KlassRegister) *Parser {
	return &Parser{
		r:   wire.NewReader(r),
		reg: reg,
	}
}

// Register returns the parser's klass register.
func (p *Parser) Register() *KlassRegister {
	return p.reg
}

// Next decodes and returns the next event. It returns io.EOF at a clean
// record boundary, io.ErrUnexpectedEOF on a truncated record, and
// ErrUnknownKlass when the stream cannot be decoded further.
func (p *Parser) Next() (*Event, error) {
	if !p.bootstrapped {
		ev, err := p.bootstrap()
		if err != nil {
			return nil, err
		}
		p.bootstrapped = true
		return ev, nil
	}

	klassID := p.r.ReadUint32()
	if err := p.r.Error(); err != nil {
		return nil, err
	}
	return p.readRecord(klassID)
}

// bootstrap reads the mandatory leading EndiannessInfoEvent. Its klass ID
// word doubles as the byte order probe: ID 1 read as little-endian is
// unambiguous in either byte order.
func (p *Parser) bootstrap() (*Event, error) {
	id := p.r.ReadUint32()
	if err := p.r.Error(); err != nil {
		return nil, err
	}

	switch id {
	case trace.EndiannessInfoKlassID:
	case swapped32(trace.EndiannessInfoKlassID):
		p.r.SetSwapped(true)
	default:
		return nil, ErrBadStream
	}

	ev, err := p.readRecord(trace.EndiannessInfoKlassID)
	if err != nil {
		return nil, err
	}

	// The marker byte is authoritative for the rest of the stream.
	p.r.SetSwapped(uint8(ev.Uint("endianness")) == trace.EndianBig)
	return ev, nil
}

// readRecord decodes the rest of a record whose klass ID word has been
// consumed.
func (p *Parser) readRecord(klassID uint32) (*Event, error) {
	klass, ok := p.reg.Klass(klassID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKlass, klassID)
	}

	ev := &Event{Klass: klass}
	ev.Timestamp = p.r.ReadUint64()
	ev.ID = p.r.ReadUint64()

	// The base klass's descriptor fields are the header itself, which has
	// just been read.
	if klassID != trace.BaseEventKlassID {
		for _, f := range klass.Fields {
			v, err := p.readField(f)
			if err != nil {
				return nil, err
			}
			ev.Values = append(ev.Values, Value{Name: f.Name, V: v})
		}
	}

	if err := p.r.Error(); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	p.reg.handleRegisterEvents(ev)
	return ev, nil
}

func (p *Parser) readField(f trace.Field) (interface{}, error) {
	switch {
	case f.Kind == trace.String:
		return p.r.ReadString(), nil

	case f.Kind == trace.Struct:
		id := p.r.ReadUint32()
		if err := p.r.Error(); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		return p.readRecord(id)

	case f.Kind == trace.Pointer:
		return p.r.ReadUintN(int(f.Size)), nil

	case f.Kind.IsSigned():
		return signExtend(p.r.ReadUintN(int(f.Size)), int(f.Size)), nil

	default:
		return p.r.ReadUintN(int(f.Size)), nil
	}
}

func signExtend(v uint64, size int) int64 {
	shift := uint(64 - 8*size)
	return int64(v<<shift) >> shift
}

func swapped32(v uint32) uint32 {
	return v<<24 | v>>24 | (v&0xFF00)<<8 | (v>>8)&0xFF00
}
