// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package trace

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/tracewire/tracewire/lib/sync"
)

// schemaBatchSize is the capacity of the scratch buffer used when
// broadcasting schema events.
const schemaBatchSize = 4096

// A Registry holds the known event klasses and the named listener
// containers shared between timelines. Most programs use DefaultRegistry;
// tests and embedders can run several independent registries.
type Registry struct {
	mut        sync.Mutex
	klasses    []*Klass
	containers *xsync.MapOf[uint32, *ListenerContainer]
	idProvider *IDProvider
	clock      Clock
}

// DefaultRegistry is the process-wide registry used when a Timeline is
// created without an explicit one.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{
		mut: sync.NewMutex(),
		klasses: []*Klass{
			BaseEventKlass,
			EndiannessInfoKlass,
			EventKlassInfoKlass,
			EventKlassFieldInfoKlass,
		},
		containers: xsync.NewMapOf[uint32, *ListenerContainer](),
		idProvider: NewIDProvider(),
		clock:      defaultClock,
	}
}

// SetClock replaces the registry's timestamp source. Must be called before
// any timeline is created on the registry.
func (r *Registry) SetClock(c Clock) {
	r.clock = c
}

// RegisterKlass assigns a process-unique klass ID to the descriptor, if it
// does not have one yet, and records it in this registry. Registering an
// already recorded descriptor returns its existing ID and does not grow
// the registry.
func (r *Registry) RegisterKlass(k *Klass) uint32 {
	r.mut.Lock()
	defer r.mut.Unlock()

	if k.ID() == InvalidKlassID {
		// IDs are process-unique and immutable once assigned, so a klass
		// keeps its ID across registries. A lost assignment race just
		// skips an ID.
		id := nextKlassID.Add(1) - 1
		k.id.CompareAndSwap(InvalidKlassID, id)
	}

	for _, known := range r.klasses {
		if known == k {
			return k.ID()
		}
	}
	r.klasses = append(r.klasses, k)
	if debugEnabled() {
		l.Debugln("registered klass", k.Name(), "as", k.ID())
	}
	return k.ID()
}

// Klasses returns a snapshot of the registered klasses in registration
// order.
func (r *Registry) Klasses() []*Klass {
	r.mut.Lock()
	defer r.mut.Unlock()
	ks := make([]*Klass, len(r.klasses))
	copy(ks, r.klasses)
	return ks
}

// BroadcastSchema emits one EventKlassInfoEvent plus one
// EventKlassFieldInfoEvent per field for every registered klass, coalesced
// into batches of at most schemaBatchSize bytes handed to fn. The final
// partial batch is delivered last. Returns the total number of bytes
// emitted.
func (r *Registry) BroadcastSchema(fn func(data []byte, serialized bool), serialize bool) int {
	scratch := make([]byte, 0, schemaBatchSize)
	total := 0

	emit := func(rec Record) {
		if len(scratch)+rec.EncodedSize() > schemaBatchSize {
			fn(scratch, serialize)
			total += len(scratch)
			scratch = scratch[:0]
		}
		scratch = rec.AppendEncoded(scratch)
	}

	r.mut.Lock()
	for _, k := range r.klasses {
		info := &EventKlassInfoEvent{
			InfoKlassID:    k.ID(),
			EventKlassName: k.Name(),
			FieldCount:     uint8(len(k.Fields())),
		}
		r.stamp(&info.Event, EventKlassInfoKlassID)
		emit(info)

		for _, f := range k.Fields() {
			finfo := &EventKlassFieldInfoEvent{
				InfoKlassID: k.ID(),
				FieldType:   f.TypeName,
				FieldName:   f.Name,
				Size:        f.Size,
				DataType:    f.Kind.DataType(),
			}
			r.stamp(&finfo.Event, EventKlassFieldInfoKlassID)
			emit(finfo)
		}
	}
	r.mut.Unlock()

	if len(scratch) > 0 {
		fn(scratch, serialize)
		total += len(scratch)
	}
	return total
}

// AppendEndiannessMarker appends an encoded EndiannessInfoEvent announcing
// this emitter's (little-endian) byte order. Sinks write it once at the
// start of every outbound stream, before the schema broadcast.
func (r *Registry) AppendEndiannessMarker(buf []byte) []byte {
	ev := &EndiannessInfoEvent{Endianness: EndianLittle}
	r.stamp(&ev.Event, EndiannessInfoKlassID)
	return ev.AppendEncoded(buf)
}

func (r *Registry) stamp(e *Event, klassID uint32) {
	e.KlassID = klassID
	e.Timestamp = r.clock.Now()
	e.ID = r.idProvider.Next()
}

// Now returns the current timestamp from the registry's clock.
func (r *Registry) Now() uint64 {
	return r.clock.Now()
}

// IDProvider returns the registry's default event ID provider.
func (r *Registry) IDProvider() *IDProvider {
	return r.idProvider
}

// FindListenerContainer returns the container registered under the name, or
// nil. The caller does not receive a new reference.
func (r *Registry) FindListenerContainer(name string) *ListenerContainer {
	c, _ := r.containers.Load(djb2(name))
	return c
}

// RegisterListenerContainer indexes the container under the name. The
// registry takes its own reference. Names are compared by djb2 hash;
// colliding names are treated as identical.
func (r *Registry) RegisterListenerContainer(name string, c *ListenerContainer) error {
	id := djb2(name)
	if _, loaded := r.containers.LoadOrStore(id, c); loaded {
		return ErrListenerContainerRegistered
	}
	c.nameID = id
	c.Ref()
	return nil
}

// FindOrCreateListenerContainer returns the shared container for the name,
// creating and indexing it on first use. An empty name always yields a
// fresh anonymous container. The returned container carries a reference
// owned by the caller.
func (r *Registry) FindOrCreateListenerContainer(name string) *ListenerContainer {
	if name == "" {
		return NewListenerContainer()
	}

	id := djb2(name)
	c, loaded := r.containers.LoadOrCompute(id, func() *ListenerContainer {
		nc := NewListenerContainer()
		nc.nameID = id
		nc.Ref() // the registry's reference
		return nc
	})
	if loaded {
		c.Ref()
	}
	return c
}

// Close drops the registry's references to all named containers. It must
// not be called before every timeline on the registry has been closed.
func (r *Registry) Close() {
	r.containers.Range(func(id uint32, c *ListenerContainer) bool {
		r.containers.Delete(id)
		c.Unref()
		return true
	})
}

func debugEnabled() bool {
	return l.ShouldDebug("trace")
}
