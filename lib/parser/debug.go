// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package parser

import (
	"os"
	"strings"

	"github.com/tracewire/tracewire/lib/logger"
)

var l = logger.DefaultLogger.NewFacility("parser", "Trace stream decoding")

func init() {
	l.SetDebug("parser", strings.Contains(os.Getenv("TWTRACE"), "parser") || os.Getenv("TWTRACE") == "all")
}
