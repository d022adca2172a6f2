// trajectory/trajectory.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package trajectory

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/vice-aman/aman/aviation"
	"github.com/vice-aman/aman/math"
	"github.com/vice-aman/aman/wx"
)

// Point is a single predicted point on an aircraft's path to the runway.
type Point struct {
	Fix               *string       `json:"fix,omitempty"` // nil for interpolated points
	Position          math.Point2LL `json:"position"`
	Altitude          float32       `json:"altitude"`          // feet MSL
	RemainingDistance float32       `json:"remainingDistance"` // nm to the threshold
	RemainingTime     time.Duration `json:"remainingTime"`
	GroundSpeed       float32       `json:"groundSpeed"`
	TAS               float32       `json:"tas"`
	IAS               float32       `json:"ias"`
	Wind              wx.Wind       `json:"wind"`
	Heading           float32       `json:"heading"`
}

func (p Point) String() string {
	fix := "-"
	if p.Fix != nil {
		fix = *p.Fix
	}
	return fmt.Sprintf("%s %s %.0fft %.1fnm %s gs %.0f ias %.0f", fix, p.Position.DDString(),
		p.Altitude, p.RemainingDistance, p.RemainingTime, p.GroundSpeed, p.IAS)
}

// Trajectory is the predicted path from the aircraft's current position
// to the runway threshold. Points[0] is the current position and the
// last point is the threshold, so remaining distance and time are
// non-increasing along Points.
type Trajectory struct {
	Points            []Point       `json:"points"`
	RemainingDistance float32       `json:"remainingDistance"`
	RemainingTime     time.Duration `json:"remainingTime"`
	// Degraded is set when the trajectory is a straight-line estimate
	// rather than a full prediction.
	Degraded bool `json:"degraded,omitempty"`
}

func (t Trajectory) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("points", len(t.Points)),
		slog.Float64("remaining_distance", float64(t.RemainingDistance)),
		slog.Duration("remaining_time", t.RemainingTime),
		slog.Bool("degraded", t.Degraded))
}

// Params collects the inputs for a prediction.
type Params struct {
	Aircraft    aviation.ArrivalCandidate
	Runway      aviation.Runway
	Star        *aviation.Star // nil if the aircraft isn't on a STAR
	Performance aviation.AircraftPerformance
	Weather     wx.Profile
}

func fixName(s string) *string {
	return &s
}

func runwayFix(rwy aviation.Runway) *string {
	return fixName("RW" + rwy.Id)
}
