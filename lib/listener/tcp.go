// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/thejerf/suture/v4"

	"github.com/tracewire/tracewire/lib/sync"
	"github.com/tracewire/tracewire/lib/trace"
)

var ErrCantStartServer = errors.New("can't start trace server")

// outboxDepth bounds the number of batches queued for network writes.
// Receive never blocks on the network; when the queue is full, batches are
// dropped.
const outboxDepth = 64

// TCPConfig configures a TCPListener.
type TCPConfig struct {
	// Addr is the TCP listen address, e.g. ":28765".
	Addr string
	// BufferSize is the capacity of the coalescing buffer.
	BufferSize int
	// Registry supplies the schema replayed to newly connected clients.
	// trace.DefaultRegistry when nil.
	Registry *trace.Registry
}

// A TCPListener is a sink that serves the event stream to TCP clients.
// Every new client first receives the endianness marker and a replay of
// the registry's schema, then live batches. A client is dropped when a
// write to it fails; there are no retries. Writes have no deadline, so a
// client that stays connected but stops reading is not dropped and stalls
// the writes to every client.
type TCPListener struct {
	registry *trace.Registry
	ln       net.Listener
	sup      *suture.Supervisor
	cancel   context.CancelFunc
	buf      *Buffer
	bufMut   sync.Mutex
	outbox   chan []byte
	connsMut sync.Mutex
	conns    []net.Conn
	closed   atomic.Bool
}

// NewTCPListener starts the server. Register the returned sink on a
// timeline to serve its batches.
func NewTCPListener(cfg TCPConfig) (*TCPListener, error) {
	if cfg.Registry == nil {
		cfg.Registry = trace.DefaultRegistry
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCantStartServer, err)
	}

	t := &TCPListener{
		registry: cfg.Registry,
		ln:       ln,
		buf:      NewBuffer(cfg.BufferSize),
		bufMut:   sync.NewMutex(),
		outbox:   make(chan []byte, outboxDepth),
		connsMut: sync.NewMutex(),
	}

	t.sup = suture.New("listener.tcp@"+ln.Addr().String(), suture.Spec{
		EventHook: func(e suture.Event) {
			l.Debugln(e)
		},
	})
	t.sup.Add(serviceFunc(t.serveAccept))
	t.sup.Add(serviceFunc(t.serveWrites))

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.sup.ServeBackground(ctx)

	l.Infoln("trace server listening on", ln.Addr())
	return t, nil
}

// Addr returns the bound listen address.
func (t *TCPListener) Addr() net.Addr {
	return t.ln.Addr()
}

// Receive implements trace.Listener. The batch is coalesced and queued for
// the write goroutine; Receive itself never touches the network.
func (t *TCPListener) Receive(data []byte, _ bool) {
	if t.closed.Load() {
		return
	}
	t.bufMut.Lock()
	t.buf.Append(data, t.enqueue)
	t.bufMut.Unlock()
}

// Flush queues the coalescing buffer's contents for writing.
func (t *TCPListener) Flush() {
	t.bufMut.Lock()
	t.buf.Flush(t.enqueue)
	t.bufMut.Unlock()
}

func (t *TCPListener) enqueue(bs []byte) {
	cp := make([]byte, len(bs))
	copy(cp, bs)
	select {
	case t.outbox <- cp:
	default:
		l.Debugln("outbox full, dropping batch of", len(bs), "bytes")
	}
}

// Close stops the server, flushes buffered bytes to connected clients and
// disconnects them.
func (t *TCPListener) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	t.bufMut.Lock()
	t.buf.Flush(func(bs []byte) {
		t.connsMut.Lock()
		t.writeAll(bs)
		t.connsMut.Unlock()
	})
	t.bufMut.Unlock()

	t.cancel()
	t.ln.Close()

	t.connsMut.Lock()
	for _, conn := range t.conns {
		conn.Close()
	}
	t.conns = nil
	t.connsMut.Unlock()
	return nil
}

func (t *TCPListener) serveAccept(ctx context.Context) error {
	for {
		conn, err := t.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			l.Warnln("accept:", err)
			return err
		}
		t.onConnect(conn)
	}
}

// onConnect replays the schema to the new client before it can see any
// live batch. Replay and live writes serialize on connsMut, so the client
// observes a well-formed stream.
func (t *TCPListener) onConnect(conn net.Conn) {
	l.Debugln("client connected:", conn.RemoteAddr())

	t.connsMut.Lock()
	defer t.connsMut.Unlock()

	if _, err := conn.Write(t.registry.AppendEndiannessMarker(nil)); err != nil {
		l.Debugln("schema replay:", err)
		conn.Close()
		return
	}
	replayErr := error(nil)
	t.registry.BroadcastSchema(func(data []byte, _ bool) {
		if replayErr == nil {
			_, replayErr = conn.Write(data)
		}
	}, true)
	if replayErr != nil {
		l.Debugln("schema replay:", replayErr)
		conn.Close()
		return
	}

	t.conns = append(t.conns, conn)
}

func (t *TCPListener) serveWrites(ctx context.Context) error {
	for {
		select {
		case bs := <-t.outbox:
			t.connsMut.Lock()
			t.writeAll(bs)
			t.connsMut.Unlock()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// writeAll writes a batch to every client, dropping those that error out.
// Callers hold connsMut.
func (t *TCPListener) writeAll(bs []byte) {
	kept := t.conns[:0]
	for _, conn := range t.conns {
		if _, err := conn.Write(bs); err != nil {
			l.Debugln("client dropped:", conn.RemoteAddr(), err)
			conn.Close()
			continue
		}
		kept = append(kept, conn)
	}
	t.conns = kept
}

// serviceFunc adapts a function to suture.Service.
type serviceFunc func(ctx context.Context) error

func (f serviceFunc) Serve(ctx context.Context) error {
	return f(ctx)
}
