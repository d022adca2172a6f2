// aviation/wake.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// WakeCategory is the wake turbulence category of an aircraft.
type WakeCategory string

const (
	WakeSuper  WakeCategory = "J"
	WakeHeavy  WakeCategory = "H"
	WakeMedium WakeCategory = "M"
	WakeLight  WakeCategory = "L"
)

func ParseWakeCategory(s string) (WakeCategory, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "J", "SUPER":
		return WakeSuper, nil
	case "H", "HEAVY":
		return WakeHeavy, nil
	case "M", "MEDIUM":
		return WakeMedium, nil
	case "L", "LIGHT":
		return WakeLight, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrInvalidWakeCategory)
	}
}

func (w *WakeCategory) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*w = ""
		return nil
	}
	wc, err := ParseWakeCategory(s)
	if err == nil {
		*w = wc
	}
	return err
}

// DefaultWakeSeparation is the spacing in nautical miles used for leader
// and follower pairs that aren't in the separation table.
const DefaultWakeSeparation = 3.0

// Leader -> follower -> nm.
var wakeSeparation = map[WakeCategory]map[WakeCategory]float32{
	WakeSuper: {
		WakeHeavy:  6,
		WakeMedium: 7,
		WakeLight:  8,
	},
	WakeHeavy: {
		WakeHeavy:  4,
		WakeMedium: 5,
		WakeLight:  6,
	},
	WakeMedium: {
		WakeLight: 5,
	},
}

// WakeSeparation returns the minimum distance in nautical miles that the
// follower must trail the leader on final.
func WakeSeparation(leader, follower WakeCategory) float32 {
	if sep, ok := wakeSeparation[leader][follower]; ok {
		return sep
	}
	return DefaultWakeSeparation
}
