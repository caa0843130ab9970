// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package listener provides the sinks that consume event batches: a TCP
// server that streams to connected clients, a plain writer sink for
// capture files, and the coalescing buffer both are built on.
package listener

// A Buffer coalesces event batches before a sink writes them out. Batches
// arrive whole from a listener container, so flushing on batch boundaries
// never splits an event mid-stream.
type Buffer struct {
	data []byte
	max  int
}

func NewBuffer(maxSize int) *Buffer {
	return &Buffer{
		data: make([]byte, 0, maxSize),
		max:  maxSize,
	}
}

// Append adds a batch, first flushing through fn if the batch would
// overflow the buffer. Batches larger than the whole buffer are handed to
// fn directly. fn's argument is only valid for the duration of the call.
func (b *Buffer) Append(bs []byte, fn func([]byte)) {
	if len(b.data)+len(bs) > b.max {
		b.Flush(fn)
	}
	if len(bs) > b.max {
		fn(bs)
		return
	}
	b.data = append(b.data, bs...)
}

// Flush hands the accumulated bytes to fn and resets the buffer. No-op
// when empty.
func (b *Buffer) Flush(fn func([]byte)) {
	if len(b.data) == 0 {
		return
	}
	fn(b.data)
	b.data = b.data[:0]
}

// Usage returns the number of buffered bytes.
func (b *Buffer) Usage() int {
	return len(b.data)
}
