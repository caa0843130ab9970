// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package sync

import (
	"strings"
	stdsync "sync"
	"testing"
	"time"

	"github.com/tracewire/tracewire/lib/logger"
)

const (
	logThreshold = 100 * time.Millisecond
	shortWait    = 5 * time.Millisecond
	longWait     = 125 * time.Millisecond
)

var skipTimingTests = false

func init() {
	// Check a few times that a short sleep does not in fact overrun the
	// log threshold. If it does, the timer accuracy is crap or the host is
	// overloaded and we can't reliably run the timing tests in here.
	for i := 0; i < 25; i++ {
		t0 := time.Now()
		time.Sleep(shortWait)
		if time.Since(t0) > logThreshold {
			skipTimingTests = true
			return
		}
	}
}

func TestTypes(t *testing.T) {
	debug = false

	if _, ok := NewMutex().(*stdsync.Mutex); !ok {
		t.Error("Wrong type")
	}
	if _, ok := NewRWMutex().(*stdsync.RWMutex); !ok {
		t.Error("Wrong type")
	}
	if _, ok := NewWaitGroup().(*stdsync.WaitGroup); !ok {
		t.Error("Wrong type")
	}

	debug = true

	if _, ok := NewMutex().(*loggedMutex); !ok {
		t.Error("Wrong type")
	}
	if _, ok := NewRWMutex().(*loggedRWMutex); !ok {
		t.Error("Wrong type")
	}
	if _, ok := NewWaitGroup().(*loggedWaitGroup); !ok {
		t.Error("Wrong type")
	}

	debug = false
}

func TestMutex(t *testing.T) {
	if skipTimingTests {
		t.Skip("insufficient timer accuracy")
		return
	}

	oldDebug := debug
	debug = true
	threshold = logThreshold
	l.SetDebug("sync", true)
	defer func() {
		debug = oldDebug
		l.SetDebug("sync", oldDebug)
	}()

	msgmut := stdsync.Mutex{}
	var messages []string

	l.AddHandler(logger.LevelDebug, func(_ logger.LogLevel, message string) {
		if !strings.Contains(message, "Mutex held") {
			return
		}
		msgmut.Lock()
		messages = append(messages, message)
		msgmut.Unlock()
	})

	mut := NewMutex()
	mut.Lock()
	time.Sleep(shortWait)
	mut.Unlock()

	if len(messages) > 0 {
		t.Errorf("Unexpected message count")
	}

	mut.Lock()
	time.Sleep(longWait)
	mut.Unlock()

	if len(messages) != 1 {
		t.Errorf("Unexpected message count")
	}
}
