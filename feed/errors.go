// feed/errors.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package feed

import "errors"

var (
	ErrMalformedMessage   = errors.New("malformed feed message")
	ErrUnknownMessageType = errors.New("unknown feed message type")
)
