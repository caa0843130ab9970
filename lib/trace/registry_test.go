// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package trace_test

import (
	"fmt"
	"testing"

	"github.com/tracewire/tracewire/lib/trace"
)

func TestRegisterKlassAssignsUniqueIDs(t *testing.T) {
	reg := trace.NewRegistry()

	k1 := trace.NewKlass("TestKlassA",
		trace.Field{Name: "a", TypeName: "uint32", Kind: trace.U32, Size: 4},
	)
	k2 := trace.NewKlass("TestKlassB")

	if k1.ID() != trace.InvalidKlassID {
		t.Errorf("unregistered klass has id %d", k1.ID())
	}

	id1 := reg.RegisterKlass(k1)
	id2 := reg.RegisterKlass(k2)

	// The reserved range 0 through 3 belongs to the built-ins.
	if id1 < 4 {
		t.Errorf("user klass got reserved id %d", id1)
	}
	if id2 <= id1 {
		t.Errorf("ids not increasing: %d then %d", id1, id2)
	}
	if k1.ID() != id1 {
		t.Errorf("descriptor id %d, registration returned %d", k1.ID(), id1)
	}
}

func TestRegisterKlassIdempotent(t *testing.T) {
	reg := trace.NewRegistry()

	k := trace.NewKlass("TestKlassIdem")
	before := len(reg.Klasses())

	id1 := reg.RegisterKlass(k)
	id2 := reg.RegisterKlass(k)

	if id1 != id2 {
		t.Errorf("ids differ: %d != %d", id1, id2)
	}
	if got := len(reg.Klasses()); got != before+1 {
		t.Errorf("registry grew by %d, expected 1", got-before)
	}
}

func TestBroadcastSchemaCoalesces(t *testing.T) {
	reg := trace.NewRegistry()

	// Enough klasses and fields that the schema exceeds one scratch
	// buffer.
	for i := 0; i < 100; i++ {
		fields := make([]trace.Field, 8)
		for j := range fields {
			fields[j] = trace.Field{
				Name:     fmt.Sprintf("field_with_a_longish_name_%d_%d", i, j),
				TypeName: "uint64",
				Kind:     trace.U64,
				Size:     8,
			}
		}
		reg.RegisterKlass(trace.NewKlass(fmt.Sprintf("BroadcastKlass%d", i), fields...))
	}

	var batches int
	var total int
	ret := reg.BroadcastSchema(func(data []byte, serialized bool) {
		if !serialized {
			t.Error("schema batch not flagged serialized")
		}
		if len(data) > 4096 {
			t.Errorf("batch of %d bytes exceeds scratch capacity", len(data))
		}
		if len(data) == 0 {
			t.Error("empty schema batch")
		}
		batches++
		total += len(data)
	}, true)

	if batches < 2 {
		t.Errorf("schema fit in %d batch(es), expected coalescing over several", batches)
	}
	if ret != total {
		t.Errorf("returned %d bytes, delivered %d", ret, total)
	}
}

func TestFindOrCreateListenerContainerShares(t *testing.T) {
	reg := trace.NewRegistry()

	c1 := reg.FindOrCreateListenerContainer("shared")
	c2 := reg.FindOrCreateListenerContainer("shared")
	if c1 != c2 {
		t.Error("same name produced different containers")
	}

	c3 := reg.FindOrCreateListenerContainer("other")
	if c3 == c1 {
		t.Error("different names produced the same container")
	}

	if found := reg.FindListenerContainer("shared"); found != c1 {
		t.Error("lookup did not find the shared container")
	}

	c1.Unref()
	c2.Unref()
	c3.Unref()
	reg.Close()
}

func TestAnonymousContainersAreDistinct(t *testing.T) {
	reg := trace.NewRegistry()

	c1 := reg.FindOrCreateListenerContainer("")
	c2 := reg.FindOrCreateListenerContainer("")
	if c1 == c2 {
		t.Error("anonymous containers must not be shared")
	}
	if c1.NameID() != 0 {
		t.Errorf("anonymous container has name id %d", c1.NameID())
	}

	c1.Unref()
	c2.Unref()
}

func TestRegisterListenerContainerDuplicate(t *testing.T) {
	reg := trace.NewRegistry()

	c1 := trace.NewListenerContainer()
	c2 := trace.NewListenerContainer()

	if err := reg.RegisterListenerContainer("dup", c1); err != nil {
		t.Fatal(err)
	}
	if err := reg.RegisterListenerContainer("dup", c2); err != trace.ErrListenerContainerRegistered {
		t.Errorf("unexpected error %v", err)
	}

	c1.Unref()
	c2.Unref()
	reg.Close()
}
