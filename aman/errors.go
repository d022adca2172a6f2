// aman/errors.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aman

import "errors"

var (
	ErrNoPrediction     = errors.New("no trajectory prediction")
	ErrUnknownCallsign  = errors.New("unknown callsign")
	ErrNoAssignedRunway = errors.New("no runway assigned")
)
