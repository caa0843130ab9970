// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package trace

import "time"

// A Clock supplies event timestamps in nanoseconds. Timestamps must be
// monotone non-decreasing.
type Clock interface {
	Now() uint64
}

type monotonicClock struct {
	epoch time.Time
}

func (c *monotonicClock) Now() uint64 {
	return uint64(time.Since(c.epoch))
}

// The default clock measures nanoseconds since process start, riding the
// runtime's monotonic reading.
var defaultClock Clock = &monotonicClock{epoch: time.Now()}
