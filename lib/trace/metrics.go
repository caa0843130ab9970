// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package trace

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricEventsPushed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tracewire",
		Subsystem: "timeline",
		Name:      "events_pushed_total",
		Help:      "Number of events pushed onto timelines",
	})
	metricTimelineFlushes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tracewire",
		Subsystem: "timeline",
		Name:      "flushes_total",
		Help:      "Number of timeline buffer flushes",
	})
	metricBatchesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tracewire",
		Subsystem: "listener",
		Name:      "batches_delivered_total",
		Help:      "Number of batches delivered to listener containers",
	})
	metricBytesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tracewire",
		Subsystem: "listener",
		Name:      "bytes_delivered_total",
		Help:      "Number of batch bytes delivered to listener containers",
	})
)
