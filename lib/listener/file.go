// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package listener

import (
	"io"

	"github.com/tracewire/tracewire/lib/sync"
	"github.com/tracewire/tracewire/lib/trace"
)

// A FileListener is a sink that writes the event stream to a writer,
// typically a capture file. The endianness marker and the schema are
// written up front so the file decodes standalone.
type FileListener struct {
	w   io.WriteCloser
	buf *Buffer
	mut sync.Mutex
	err error
}

// NewFileListener writes the stream header to w and returns the sink.
func NewFileListener(w io.WriteCloser, bufferSize int, reg *trace.Registry) (*FileListener, error) {
	if reg == nil {
		reg = trace.DefaultRegistry
	}

	f := &FileListener{
		w:   w,
		buf: NewBuffer(bufferSize),
		mut: sync.NewMutex(),
	}

	if _, err := w.Write(reg.AppendEndiannessMarker(nil)); err != nil {
		return nil, err
	}
	var replayErr error
	reg.BroadcastSchema(func(data []byte, _ bool) {
		if replayErr == nil {
			_, replayErr = w.Write(data)
		}
	}, true)
	if replayErr != nil {
		return nil, replayErr
	}

	return f, nil
}

// Receive implements trace.Listener. After a write error the sink goes
// quiet; nothing more is written.
func (f *FileListener) Receive(data []byte, _ bool) {
	f.mut.Lock()
	defer f.mut.Unlock()
	if f.err != nil {
		return
	}
	f.buf.Append(data, f.write)
}

// Flush writes the coalescing buffer's contents.
func (f *FileListener) Flush() error {
	f.mut.Lock()
	defer f.mut.Unlock()
	f.buf.Flush(f.write)
	return f.err
}

// Close flushes and closes the underlying writer.
func (f *FileListener) Close() error {
	f.mut.Lock()
	defer f.mut.Unlock()
	f.buf.Flush(f.write)
	if err := f.w.Close(); err != nil && f.err == nil {
		f.err = err
	}
	return f.err
}

func (f *FileListener) write(bs []byte) {
	if f.err != nil {
		return
	}
	if _, err := f.w.Write(bs); err != nil {
		l.Warnln("capture write:", err)
		f.err = err
	}
}
