// wx/wind.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wx

import (
	"fmt"
	"log/slog"

	"github.com/vice-aman/aman/math"
)

// Wind is a wind vector in the aviation convention: Direction is the
// true heading the wind blows from, in degrees, and Speed is in knots.
type Wind struct {
	Direction float32 `json:"direction"`
	Speed     float32 `json:"speed"`
}

func (w Wind) String() string {
	return fmt.Sprintf("%03d@%d", int(math.NormalizeHeading(w.Direction)), int(w.Speed+0.5))
}

func (w Wind) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("direction", float64(w.Direction)),
		slog.Float64("speed", float64(w.Speed)))
}

// windAngle returns the angle in radians between the wind's direction
// and the track; 0 is a direct headwind.
func windAngle(track float32, wind Wind) float32 {
	return math.Radians(wind.Direction - track)
}

// TASToGS returns the ground speed for an aircraft flying the given true
// airspeed along the given track:
//
//	GS^2 = TAS^2 - 2 TAS W cos(theta) + W^2
//
// where theta is the wind direction minus the track.
func TASToGS(tas, track float32, wind Wind) float32 {
	w := wind.Speed
	gs2 := tas*tas - 2*tas*w*math.Cos(windAngle(track, wind)) + w*w
	return math.Sqrt(max(gs2, 0))
}

// GSToTAS inverts TASToGS, solving the quadratic for the true airspeed
// and taking the larger root. If the discriminant is negative there is no
// decomposition of the ground speed with the given wind; in that case the
// ground speed is returned unchanged along with false.
func GSToTAS(gs, track float32, wind Wind) (float32, bool) {
	w := wind.Speed
	wc := w * math.Cos(windAngle(track, wind))

	// TAS^2 - 2 wc TAS + (W^2 - GS^2) = 0; disc is the quarter-discriminant.
	disc := wc*wc - w*w + gs*gs
	if disc < 0 {
		return gs, false
	}
	return wc + math.Sqrt(disc), true
}

// WindCorrectionAngle returns the angle in degrees to add to the track to
// get the heading to fly at the given true airspeed. Positive values are
// corrections to the right.
func WindCorrectionAngle(tas, track float32, wind Wind) float32 {
	if tas <= 0 {
		return 0
	}
	s := wind.Speed * math.Sin(windAngle(track, wind)) / tas
	return math.Degrees(math.SafeASin(s))
}
