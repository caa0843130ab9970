// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package listener_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/tracewire/tracewire/lib/listener"
	"github.com/tracewire/tracewire/lib/parser"
	"github.com/tracewire/tracewire/lib/trace"
	"github.com/tracewire/tracewire/lib/wire"
)

// tickEvent is the event type used by the sink tests.
type tickEvent struct {
	trace.Event
	Seq uint64
}

type tickRecord struct {
	*tickEvent
	klass *trace.Klass
}

func newTickKlass() *trace.Klass {
	return trace.NewKlass("TickEvent",
		trace.Field{Name: "seq", TypeName: "uint64", Kind: trace.U64, Size: 8},
	)
}

func (r tickRecord) Klass() *trace.Klass {
	return r.klass
}

func (r tickRecord) EncodedSize() int {
	return r.Event.EncodedSize() + 8
}

func (r tickRecord) AppendEncoded(buf []byte) []byte {
	w := wire.AppendWriter(trace.AppendHeader(buf, &r.Event))
	xw := wire.NewWriter(&w)
	xw.WriteUint64(r.Seq)
	return w
}

type closableBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closableBuffer) Close() error {
	b.closed = true
	return nil
}

func decodeTicks(t *testing.T, data []byte) []uint64 {
	t.Helper()
	p := parser.New(bytes.NewReader(data))
	var seqs []uint64
	for {
		ev, err := p.Next()
		if errors.Is(err, io.EOF) {
			return seqs
		}
		if err != nil {
			t.Fatal(err)
		}
		if ev.Klass.Name == "TickEvent" {
			seqs = append(seqs, ev.Uint("seq"))
		}
	}
}

func TestFileListenerRoundTrip(t *testing.T) {
	reg := trace.NewRegistry()
	klass := newTickKlass()
	reg.RegisterKlass(klass)

	out := &closableBuffer{}
	sink, err := listener.NewFileListener(out, 1024, reg)
	if err != nil {
		t.Fatal(err)
	}

	tl, err := trace.NewTimeline(trace.Options{
		BufferCapacity:  128,
		SerializeEvents: true,
		Registry:        reg,
	})
	if err != nil {
		t.Fatal(err)
	}
	tl.RegisterListener(sink)

	for i := 0; i < 10; i++ {
		rec := tickRecord{tickEvent: &tickEvent{Seq: uint64(i)}, klass: klass}
		tl.InitEvent(rec)
		tl.PushEvent(rec)
	}
	tl.Close()

	if !out.closed {
		t.Error("closing the timeline should close the sink")
	}

	seqs := decodeTicks(t, out.Bytes())
	if len(seqs) != 10 {
		t.Fatalf("decoded %d events, expected 10", len(seqs))
	}
	for i, seq := range seqs {
		if seq != uint64(i) {
			t.Errorf("event %d has seq %d", i, seq)
		}
	}
}

func TestFileListenerStopsAfterWriteError(t *testing.T) {
	reg := trace.NewRegistry()

	// The header (marker plus one schema batch) is two writes; everything
	// after that fails.
	sink, err := listener.NewFileListener(&failingWriter{failAfter: 2}, 4, reg)
	if err != nil {
		t.Fatal(err)
	}

	// Overflow the tiny buffer repeatedly; the first failing write must
	// silence the sink rather than panic or spin.
	for i := 0; i < 100; i++ {
		sink.Receive([]byte{1, 2, 3}, true)
	}
	if err := sink.Flush(); err == nil {
		t.Error("expected a write error")
	}
}

type failingWriter struct {
	writes    int
	failAfter int
}

func (w *failingWriter) Write(bs []byte) (int, error) {
	w.writes++
	if w.writes > w.failAfter {
		return 0, errors.New("disk full")
	}
	return len(bs), nil
}

func (w *failingWriter) Close() error {
	return nil
}
