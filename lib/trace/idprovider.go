// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package trace

import "sync/atomic"

// An IDProvider hands out sequential event IDs. It is safe for concurrent
// use.
type IDProvider struct {
	counter atomic.Uint64
}

func NewIDProvider() *IDProvider {
	return &IDProvider{}
}

// Next returns the current counter value and increments it.
func (p *IDProvider) Next() uint64 {
	return p.counter.Add(1) - 1
}
