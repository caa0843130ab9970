// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package parser

import (
	"github.com/tracewire/tracewire/lib/sync"
	"github.com/tracewire/tracewire/lib/trace"
)

// A Klass is the decoder-side schema for one event klass. Fields may be
// appended while the schema is being learned from the stream, but are never
// reordered or mutated.
type Klass struct {
	ID     uint32
	Name   string
	Fields []trace.Field
}

// A KlassRegister accumulates the schema a parser learns from in-band
// metadata. It starts out knowing the four well-known klasses.
type KlassRegister struct {
	mut     sync.RWMutex
	klasses map[uint32]*Klass
}

func NewKlassRegister() *KlassRegister {
	kr := &KlassRegister{
		mut:     sync.NewRWMutex(),
		klasses: make(map[uint32]*Klass),
	}
	for _, k := range []*trace.Klass{
		trace.BaseEventKlass,
		trace.EndiannessInfoKlass,
		trace.EventKlassInfoKlass,
		trace.EventKlassFieldInfoKlass,
	} {
		kr.klasses[k.ID()] = &Klass{
			ID:     k.ID(),
			Name:   k.Name(),
			Fields: k.Fields(),
		}
	}
	return kr
}

// IsWellKnown reports whether the klass ID is one of the built-ins whose
// schema is fixed.
func IsWellKnown(id uint32) bool {
	return id <= trace.EventKlassFieldInfoKlassID
}

// Klass returns the schema for the ID, if known.
func (kr *KlassRegister) Klass(id uint32) (*Klass, bool) {
	kr.mut.RLock()
	k, ok := kr.klasses[id]
	kr.mut.RUnlock()
	return k, ok
}

// KlassByName returns the schema with the given name, if known.
func (kr *KlassRegister) KlassByName(name string) (*Klass, bool) {
	kr.mut.RLock()
	defer kr.mut.RUnlock()
	for _, k := range kr.klasses {
		if k.Name == name {
			return k, true
		}
	}
	return nil, false
}

func (kr *KlassRegister) addKlass(id uint32, name string) {
	kr.mut.Lock()
	if _, exists := kr.klasses[id]; !exists {
		kr.klasses[id] = &Klass{ID: id, Name: name}
	}
	kr.mut.Unlock()
}

func (kr *KlassRegister) addField(id uint32, f trace.Field) {
	if IsWellKnown(id) {
		// The built-ins are fixed; in-band redefinitions are ignored.
		return
	}
	kr.mut.Lock()
	if k, ok := kr.klasses[id]; ok {
		k.Fields = append(k.Fields, f)
	}
	kr.mut.Unlock()
}

// handleRegisterEvents applies a schema event to the register. Non-schema
// events are ignored.
func (kr *KlassRegister) handleRegisterEvents(ev *Event) {
	switch ev.Klass.ID {
	case trace.EventKlassInfoKlassID:
		kr.addKlass(uint32(ev.Uint("info_klass_id")), ev.Str("event_klass_name"))

	case trace.EventKlassFieldInfoKlassID:
		id := uint32(ev.Uint("info_klass_id"))
		dataType := uint8(ev.Uint("data_type"))
		size := ev.Uint("size")
		kind, ok := trace.KindFor(dataType, size)
		if !ok {
			l.Warnf("ignoring field %q of klass %d: unknown data type %d size %d",
				ev.Str("field_name"), id, dataType, size)
			return
		}
		kr.addField(id, trace.Field{
			Name:     ev.Str("field_name"),
			TypeName: ev.Str("field_type"),
			Kind:     kind,
			Size:     size,
		})
	}
}
