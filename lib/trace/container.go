// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package trace

import (
	"io"
	"sync/atomic"

	"github.com/tracewire/tracewire/lib/sync"
)

// A Listener receives batches of encoded events. The serialized flag tells
// it whether the bytes are in canonical wire form or fixed-size passthrough
// records. The batch slice is only valid for the duration of the call;
// listeners that retain it must copy. Listeners must not push events back
// onto a timeline attached to the same container.
type Listener interface {
	Receive(data []byte, serialized bool)
}

// ListenerFunc adapts a plain function to the Listener interface.
type ListenerFunc func(data []byte, serialized bool)

func (f ListenerFunc) Receive(data []byte, serialized bool) {
	f(data, serialized)
}

// A ListenerContainer is an ordered, reference-counted set of listeners,
// shareable between timelines. Batches handed to Notify are delivered to
// every listener in registration order, under the container mutex, so all
// listeners observe the same total order of batches.
type ListenerContainer struct {
	nameID    uint32
	refs      atomic.Int32
	mut       sync.Mutex
	listeners []Listener
}

// NewListenerContainer returns an anonymous container with a single
// reference owned by the caller.
func NewListenerContainer() *ListenerContainer {
	c := &ListenerContainer{
		mut: sync.NewMutex(),
	}
	c.refs.Store(1)
	return c
}

// NameID returns the djb2 hash of the name the container was registered
// under, or zero for anonymous containers.
func (c *ListenerContainer) NameID() uint32 {
	return c.nameID
}

// RegisterListener appends a listener. It will see every batch notified
// after registration.
func (c *ListenerContainer) RegisterListener(ln Listener) {
	c.mut.Lock()
	c.listeners = append(c.listeners, ln)
	c.mut.Unlock()
}

// UnregisterAll removes all listeners, closing those that implement
// io.Closer.
func (c *ListenerContainer) UnregisterAll() {
	c.mut.Lock()
	defer c.mut.Unlock()
	for _, ln := range c.listeners {
		if cl, ok := ln.(io.Closer); ok {
			cl.Close()
		}
	}
	c.listeners = nil
}

// Notify delivers a batch to every listener in registration order. Listener
// errors are the listener's own problem; Notify does not report them.
func (c *ListenerContainer) Notify(data []byte, serialized bool) {
	if len(data) == 0 {
		return
	}
	c.mut.Lock()
	defer c.mut.Unlock()
	for _, ln := range c.listeners {
		ln.Receive(data, serialized)
	}
	metricBatchesDelivered.Inc()
	metricBytesDelivered.Add(float64(len(data)))
}

// Ref adds a reference to the container.
func (c *ListenerContainer) Ref() {
	c.refs.Add(1)
}

// Unref drops a reference. When the last reference is gone the container
// unregisters (and closes) all its listeners.
func (c *ListenerContainer) Unref() {
	if c.refs.Add(-1) == 0 {
		c.UnregisterAll()
	}
}

// djb2 is the hash keying shared listener names. Containers with colliding
// hashes are treated as the same container; the name string itself is not
// stored.
func djb2(s string) uint32 {
	hash := uint32(5381)
	for i := 0; i < len(s); i++ {
		hash = hash*33 + uint32(s[i])
	}
	return hash
}
