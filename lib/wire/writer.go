// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package wire implements the byte-level encoding used on trace streams:
// packed little-endian integers and NUL-terminated strings. Readers and
// writers carry a sticky error so call sites can chain operations and check
// once at the end.
package wire

import "io"

type Writer struct {
	w   io.Writer
	tot int
	err error
	b   [8]byte
}

// An AppendWriter is a byte slice that grows when written to.
type AppendWriter []byte

func (w *AppendWriter) Write(bs []byte) (int, error) {
	*w = append(*w, bs...)
	return len(bs), nil
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) WriteRaw(bs []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}

	var n int
	n, w.err = w.w.Write(bs)
	w.tot += n
	return n, w.err
}

// WriteString writes the string followed by a terminating NUL byte.
func (w *Writer) WriteString(s string) (int, error) {
	if w.err != nil {
		return 0, w.err
	}

	var n int
	n, w.err = io.WriteString(w.w, s)
	w.tot += n
	if w.err != nil {
		return n, w.err
	}
	return w.WriteUint8(0)
}

func (w *Writer) WriteBool(v bool) (int, error) {
	if v {
		return w.WriteUint8(1)
	}
	return w.WriteUint8(0)
}

func (w *Writer) WriteUint8(v uint8) (int, error) {
	if w.err != nil {
		return 0, w.err
	}

	w.b[0] = v

	var n int
	n, w.err = w.w.Write(w.b[:1])
	w.tot += n
	return n, w.err
}

func (w *Writer) WriteUint16(v uint16) (int, error) {
	if w.err != nil {
		return 0, w.err
	}

	w.b[0] = byte(v)
	w.b[1] = byte(v >> 8)

	var n int
	n, w.err = w.w.Write(w.b[:2])
	w.tot += n
	return n, w.err
}

func (w *Writer) WriteUint32(v uint32) (int, error) {
	if w.err != nil {
		return 0, w.err
	}

	w.b[0] = byte(v)
	w.b[1] = byte(v >> 8)
	w.b[2] = byte(v >> 16)
	w.b[3] = byte(v >> 24)

	var n int
	n, w.err = w.w.Write(w.b[:4])
	w.tot += n
	return n, w.err
}

func (w *Writer) WriteUint64(v uint64) (int, error) {
	if w.err != nil {
		return 0, w.err
	}

	w.b[0] = byte(v)
	w.b[1] = byte(v >> 8)
	w.b[2] = byte(v >> 16)
	w.b[3] = byte(v >> 24)
	w.b[4] = byte(v >> 32)
	w.b[5] = byte(v >> 40)
	w.b[6] = byte(v >> 48)
	w.b[7] = byte(v >> 56)

	var n int
	n, w.err = w.w.Write(w.b[:8])
	w.tot += n
	return n, w.err
}

// WriteUintN writes the low size bytes of v, little-endian. Size must be 1,
// 2, 4 or 8.
func (w *Writer) WriteUintN(v uint64, size int) (int, error) {
	switch size {
	case 1:
		return w.WriteUint8(uint8(v))
	case 2:
		return w.WriteUint16(uint16(v))
	case 4:
		return w.WriteUint32(uint32(v))
	case 8:
		return w.WriteUint64(v)
	default:
		w.err = ErrInvalidSize
		return 0, w.err
	}
}

// Tot returns the total number of bytes written so far.
func (w *Writer) Tot() int {
	return w.tot
}

func (w *Writer) Error() error {
	if w.err == nil {
		return nil
	}
	return Error{"write", w.err}
}
