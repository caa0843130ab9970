// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package trace implements the event pipeline core: the klass registry,
// per-producer timelines with size-aware batching, and the shared,
// reference-counted listener containers that fan batches out to sinks.
package trace

import (
	"github.com/tracewire/tracewire/lib/sync"
)

// MaxFeatures is the number of feature slots on a timeline. Slot 0 is
// reserved for callstack tracking.
const MaxFeatures = 32

// transientBufSize is the size up to which an event larger than the
// timeline buffer is encoded into a stack buffer instead of a fresh heap
// allocation.
const transientBufSize = 128

// A Feature is per-timeline plug-in state installed at a feature slot. The
// timeline owns installed features and closes them when it is closed.
type Feature interface {
	Close()
}

// Options configure a Timeline.
type Options struct {
	// BufferCapacity is the batching buffer size in bytes.
	BufferCapacity int
	// ThreadSafe serializes pushes with a mutex, allowing pushes from
	// multiple goroutines.
	ThreadSafe bool
	// SerializeEvents selects wire-canonical encoding for every pushed
	// event. When false, fixed-size records are batched in passthrough
	// form.
	SerializeEvents bool
	// ListenerName, when non-empty, attaches the timeline to the shared
	// listener container of that name, creating it on first use.
	ListenerName string
	// Registry is the klass and listener registry to attach to.
	// DefaultRegistry when nil.
	Registry *Registry
}

// A Timeline is a producer-facing event queue. Pushed events are batched in
// a byte buffer and handed to the timeline's listener container whenever
// the next event would overflow the buffer, or on Flush.
type Timeline struct {
	buf       []byte
	capacity  int
	serialize bool
	mut       sync.Mutex // nil when not thread safe
	listeners *ListenerContainer
	registry  *Registry
	features  [MaxFeatures]Feature
}

// NewTimeline creates a timeline. The returned timeline must be closed to
// flush its final batch and release its listener container.
func NewTimeline(opts Options) (*Timeline, error) {
	if opts.BufferCapacity < 0 {
		return nil, ErrInvalidArgument
	}
	reg := opts.Registry
	if reg == nil {
		reg = DefaultRegistry
	}

	t := &Timeline{
		buf:       make([]byte, 0, opts.BufferCapacity),
		capacity:  opts.BufferCapacity,
		serialize: opts.SerializeEvents,
		listeners: reg.FindOrCreateListenerContainer(opts.ListenerName),
		registry:  reg,
	}
	if opts.ThreadSafe {
		t.mut = sync.NewMutex()
	}
	return t, nil
}

// Registry returns the registry the timeline is attached to.
func (t *Timeline) Registry() *Registry {
	return t.registry
}

// InitEvent stamps the record header: klass ID, current timestamp and the
// next event ID. It does not enqueue the event.
func (t *Timeline) InitEvent(r Record) {
	e := r.Base()
	e.KlassID = r.Klass().ID()
	e.Timestamp = t.registry.clock.Now()
	e.ID = t.registry.idProvider.Next()
}

// PushEvent appends the record to the timeline's buffer, flushing first if
// it would not fit. Records larger than the whole buffer bypass it and are
// handed to the listeners as a batch of their own.
func (t *Timeline) PushEvent(r Record) {
	t.lock()
	defer t.unlock()

	size := r.EncodedSize()
	if !t.serialize {
		if fs, ok := r.Klass().FixedSize(); ok {
			size = fs
		}
	}

	if len(t.buf)+size > t.capacity {
		t.flushLocked()
	}

	if size > t.capacity {
		// The event can never fit the buffer; encode it into a transient
		// buffer and hand that single record to the listeners directly.
		var local [transientBufSize]byte
		var data []byte
		if size <= transientBufSize {
			data = r.AppendEncoded(local[:0])
		} else {
			data = r.AppendEncoded(make([]byte, 0, size))
		}
		t.listeners.Notify(data, t.serialize)
		metricEventsPushed.Inc()
		return
	}

	t.buf = r.AppendEncoded(t.buf)
	metricEventsPushed.Inc()
}

// Flush hands the buffered bytes to the listeners and resets the buffer.
// No-op when the buffer is empty.
func (t *Timeline) Flush() {
	t.lock()
	defer t.unlock()
	t.flushLocked()
}

func (t *Timeline) flushLocked() {
	if len(t.buf) == 0 {
		return
	}
	t.listeners.Notify(t.buf, t.serialize)
	t.buf = t.buf[:0]
	metricTimelineFlushes.Inc()
}

// RegisterListener attaches a listener to the timeline's container. When
// the container is shared, the listener sees batches from every attached
// timeline.
func (t *Timeline) RegisterListener(ln Listener) {
	t.listeners.RegisterListener(ln)
}

// UnregisterAllListeners removes every listener from the timeline's
// container.
func (t *Timeline) UnregisterAllListeners() {
	t.listeners.UnregisterAll()
}

// SetFeature installs plug-in state at the given slot. On failure the
// feature is closed, so ownership transfers to the timeline whether or not
// the call succeeds.
func (t *Timeline) SetFeature(id int, f Feature) error {
	if id < 0 || id >= MaxFeatures {
		f.Close()
		return ErrInvalidArgument
	}
	if t.features[id] != nil {
		f.Close()
		return ErrFeatureIDAlreadyUsed
	}
	t.features[id] = f
	return nil
}

// GetFeature returns the feature at the slot, or nil.
func (t *Timeline) GetFeature(id int) Feature {
	if id < 0 || id >= MaxFeatures {
		return nil
	}
	return t.features[id]
}

// Close flushes the final batch, releases the listener container reference
// and closes installed features.
func (t *Timeline) Close() {
	t.Flush()
	t.listeners.Unref()
	for i, f := range t.features {
		if f != nil {
			f.Close()
			t.features[i] = nil
		}
	}
}

func (t *Timeline) lock() {
	if t.mut != nil {
		t.mut.Lock()
	}
}

func (t *Timeline) unlock() {
	if t.mut != nil {
		t.mut.Unlock()
	}
}
