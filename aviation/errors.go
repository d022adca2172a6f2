// aviation/errors.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import "errors"

var (
	ErrInvalidDatabase     = errors.New("invalid reference database")
	ErrInvalidWakeCategory = errors.New("invalid wake category")
	ErrUnknownAircraftType = errors.New("unknown aircraft type")
	ErrUnknownAirport      = errors.New("unknown airport")
	ErrUnknownRunway       = errors.New("unknown runway")
	ErrUnknownStar         = errors.New("unknown STAR")
)
