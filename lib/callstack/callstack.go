// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package callstack tracks named intervals on top of the timeline feature
// API: Start opens an interval, Stop closes the innermost one and pushes a
// duration event. It occupies the reserved feature slot 0.
package callstack

import (
	"sync/atomic"

	"github.com/tracewire/tracewire/lib/trace"
	"github.com/tracewire/tracewire/lib/wire"
)

// FeatureID is the timeline feature slot reserved for callstack tracking.
const FeatureID = 0

var (
	IntEventKlass = trace.NewKlass("CallstackIntEvent",
		trace.Field{Name: "duration", TypeName: "uint64", Kind: trace.U64, Size: 8},
		trace.Field{Name: "thread_id", TypeName: "uint32", Kind: trace.U32, Size: 4},
		trace.Field{Name: "label", TypeName: "uint64", Kind: trace.U64, Size: 8},
	)
	StringEventKlass = trace.NewKlass("CallstackStringEvent",
		trace.Field{Name: "duration", TypeName: "uint64", Kind: trace.U64, Size: 8},
		trace.Field{Name: "thread_id", TypeName: "uint32", Kind: trace.U32, Size: 4},
		trace.Field{Name: "label", TypeName: "string", Kind: trace.String, Size: 0},
	)
)

// IntEvent is a closed interval labelled by an integer.
type IntEvent struct {
	trace.Event
	Duration uint64
	ThreadID uint32
	Label    uint64
}

func (e *IntEvent) Klass() *trace.Klass {
	return IntEventKlass
}

func (e *IntEvent) EncodedSize() int {
	return e.Event.EncodedSize() + 8 + 4 + 8
}

func (e *IntEvent) AppendEncoded(buf []byte) []byte {
	w := wire.AppendWriter(trace.AppendHeader(buf, &e.Event))
	xw := wire.NewWriter(&w)
	xw.WriteUint64(e.Duration)
	xw.WriteUint32(e.ThreadID)
	xw.WriteUint64(e.Label)
	return w
}

// StringEvent is a closed interval labelled by a string.
type StringEvent struct {
	trace.Event
	Duration uint64
	ThreadID uint32
	Label    string
}

func (e *StringEvent) Klass() *trace.Klass {
	return StringEventKlass
}

func (e *StringEvent) EncodedSize() int {
	return e.Event.EncodedSize() + 8 + 4 + trace.StringSize(e.Label)
}

func (e *StringEvent) AppendEncoded(buf []byte) []byte {
	w := wire.AppendWriter(trace.AppendHeader(buf, &e.Event))
	xw := wire.NewWriter(&w)
	xw.WriteUint64(e.Duration)
	xw.WriteUint32(e.ThreadID)
	xw.WriteString(e.Label)
	return w
}

type open struct {
	rec      trace.Record
	started  uint64
	duration *uint64
}

// feature holds the stack of open intervals. The stack is not synchronized,
// even on a thread-safe timeline: Start and Stop calls on one timeline must
// not run concurrently.
type feature struct {
	producerID uint32
	stack      []open
}

func (*feature) Close() {}

var nextProducerID atomic.Uint32

// Enable installs callstack tracking on the timeline and registers its
// event klasses.
func Enable(t *trace.Timeline) error {
	reg := t.Registry()
	reg.RegisterKlass(IntEventKlass)
	reg.RegisterKlass(StringEventKlass)
	return t.SetFeature(FeatureID, &feature{producerID: nextProducerID.Add(1)})
}

// StartInt opens an interval labelled by an integer.
func StartInt(t *trace.Timeline, label uint64) error {
	f, ok := t.GetFeature(FeatureID).(*feature)
	if !ok {
		return trace.ErrFeatureNotRegistered
	}
	ev := &IntEvent{Label: label, ThreadID: f.producerID}
	return f.start(t, ev, &ev.Duration)
}

// StartString opens an interval labelled by a string.
func StartString(t *trace.Timeline, label string) error {
	f, ok := t.GetFeature(FeatureID).(*feature)
	if !ok {
		return trace.ErrFeatureNotRegistered
	}
	ev := &StringEvent{Label: label, ThreadID: f.producerID}
	return f.start(t, ev, &ev.Duration)
}

func (f *feature) start(t *trace.Timeline, rec trace.Record, duration *uint64) error {
	t.InitEvent(rec)
	f.stack = append(f.stack, open{
		rec:      rec,
		started:  rec.Base().Timestamp,
		duration: duration,
	})
	return nil
}

// Stop closes the innermost open interval and pushes its event. With no
// open interval it is a no-op.
func Stop(t *trace.Timeline) error {
	f, ok := t.GetFeature(FeatureID).(*feature)
	if !ok {
		return trace.ErrFeatureNotRegistered
	}
	if len(f.stack) == 0 {
		return nil
	}

	o := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]

	*o.duration = t.Registry().Now() - o.started
	t.PushEvent(o.rec)
	return nil
}
