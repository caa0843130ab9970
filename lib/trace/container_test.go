// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package trace_test

import (
	"testing"

	"github.com/tracewire/tracewire/lib/trace"
)

func TestNotifyRegistrationOrder(t *testing.T) {
	c := trace.NewListenerContainer()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		c.RegisterListener(trace.ListenerFunc(func(data []byte, serialized bool) {
			order = append(order, i)
		}))
	}

	c.Notify([]byte{1}, false)

	if len(order) != 5 {
		t.Fatalf("notified %d listeners, expected 5", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("listener %d notified at position %d", got, i)
		}
	}
}

func TestNotifyEmptyBatch(t *testing.T) {
	c := trace.NewListenerContainer()

	called := 0
	c.RegisterListener(trace.ListenerFunc(func(data []byte, serialized bool) {
		called++
	}))

	c.Notify(nil, false)
	if called != 0 {
		t.Errorf("listener called %d times for an empty batch", called)
	}
}

type closingListener struct {
	received int
	closed   int
}

func (c *closingListener) Receive(data []byte, serialized bool) {
	c.received++
}

func (c *closingListener) Close() error {
	c.closed++
	return nil
}

func TestUnregisterAllClosesListeners(t *testing.T) {
	c := trace.NewListenerContainer()

	ln := &closingListener{}
	c.RegisterListener(ln)
	c.Notify([]byte{1}, false)

	c.UnregisterAll()
	if ln.closed != 1 {
		t.Errorf("listener closed %d times, expected 1", ln.closed)
	}

	// After unregistering, no further deliveries.
	c.Notify([]byte{2}, false)
	if ln.received != 1 {
		t.Errorf("listener received %d batches, expected 1", ln.received)
	}
}

func TestUnrefToZeroClosesListeners(t *testing.T) {
	c := trace.NewListenerContainer()

	ln := &closingListener{}
	c.RegisterListener(ln)

	c.Ref()
	c.Unref()
	if ln.closed != 0 {
		t.Error("listener closed while references remain")
	}

	c.Unref()
	if ln.closed != 1 {
		t.Errorf("listener closed %d times, expected 1", ln.closed)
	}
}
