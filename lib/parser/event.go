// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package parser

import (
	"fmt"
	"strings"
)

// An Event is a decoded record. Values holds the klass fields in descriptor
// order; the record header is in Timestamp and ID. String values are owned
// Go strings, valid after the parser moves on.
type Event struct {
	Klass     *Klass
	Timestamp uint64
	ID        uint64
	Values    []Value
}

// A Value is one decoded field. Exactly one of the typed accessors is
// meaningful, per the field's kind.
type Value struct {
	Name string
	// V is the decoded value: uint64 for unsigned and pointer fields,
	// int64 for signed fields, string for string fields, *Event for struct
	// fields.
	V interface{}
}

// Get returns the named field's value.
func (e *Event) Get(name string) (interface{}, bool) {
	for _, v := range e.Values {
		if v.Name == name {
			return v.V, true
		}
	}
	return nil, false
}

// Uint returns the named field widened to uint64, or zero.
func (e *Event) Uint(name string) uint64 {
	v, _ := e.Get(name)
	switch n := v.(type) {
	case uint64:
		return n
	case int64:
		return uint64(n)
	}
	return 0
}

// Int returns the named field widened to int64, or zero.
func (e *Event) Int(name string) int64 {
	v, _ := e.Get(name)
	switch n := v.(type) {
	case int64:
		return n
	case uint64:
		return int64(n)
	}
	return 0
}

// Str returns the named string field, or the empty string.
func (e *Event) Str(name string) string {
	v, _ := e.Get(name)
	s, _ := v.(string)
	return s
}

// Nested returns the named struct field, or nil.
func (e *Event) Nested(name string) *Event {
	v, _ := e.Get(name)
	n, _ := v.(*Event)
	return n
}

func (e *Event) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s{ts:%d id:%d", e.Klass.Name, e.Timestamp, e.ID)
	for _, v := range e.Values {
		fmt.Fprintf(&sb, " %s:%v", v.Name, v.V)
	}
	sb.WriteString("}")
	return sb.String()
}
