// trajectory/errors.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package trajectory

import "errors"

var (
	ErrStarFixNotFound  = errors.New("STAR fix not found")
	ErrIntegrationLimit = errors.New("trajectory integration did not converge")
	ErrEndOfRoute       = errors.New("reached end of route")
)
