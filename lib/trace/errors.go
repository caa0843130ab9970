// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package trace

import "errors"

var (
	ErrInvalidArgument             = errors.New("invalid argument")
	ErrFeatureNotRegistered        = errors.New("feature not registered")
	ErrFeatureIDAlreadyUsed        = errors.New("feature id already used")
	ErrListenerContainerRegistered = errors.New("listener container already registered")
)
