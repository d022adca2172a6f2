// trajectory/straightline.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package trajectory

import (
	"time"

	"github.com/vice-aman/aman/log"
	"github.com/vice-aman/aman/math"
	"github.com/vice-aman/aman/wx"
)

// StraightLine returns a best-effort estimate for when a full prediction
// isn't possible: the distance along the remaining route at the aircraft's
// current ground speed, with altitude falling linearly to the threshold.
// STAR restrictions are ignored. The result is marked Degraded.
func StraightLine(p Params, lg *log.Logger) Trajectory {
	ac := p.Aircraft

	type pt struct {
		fix *string
		pos math.Point2LL
	}
	route := []pt{{pos: ac.Position}}
	for _, rp := range ac.Route {
		pos := rp.Position
		if pos.IsZero() && p.Star != nil {
			if sf, ok := p.Star.Fix(rp.Id); ok {
				pos = sf.Position
			}
		}
		if pos.IsZero() {
			continue
		}
		route = append(route, pt{fix: fixName(rp.Id), pos: pos})
	}
	route = append(route, pt{fix: runwayFix(p.Runway), pos: p.Runway.Threshold})

	// Cumulative distance to the threshold at each point.
	dist := make([]float32, len(route))
	for i := len(route) - 2; i >= 0; i-- {
		dist[i] = dist[i+1] + math.NMDistance2LL(route[i].pos, route[i+1].pos)
	}

	layer := p.Weather.Interpolate(ac.Altitude)
	gs := ac.GroundSpeed
	if gs < minGroundSpeed {
		gs = wx.IASToTAS(p.Performance.LandingSpeed(), ac.Altitude, layer.Temperature)
	}
	tas, ok := wx.GSToTAS(gs, ac.Track, layer.Wind)
	if !ok {
		lg.Warn("unsolvable wind triangle", "callsign", ac.Callsign, "gs", gs,
			"track", ac.Track, "wind", layer.Wind)
	}
	ias := wx.TASToIAS(tas, ac.Altitude, layer.Temperature)

	t := Trajectory{
		RemainingDistance: dist[0],
		RemainingTime:     time.Duration(float64(dist[0]/gs) * float64(time.Hour)),
		Degraded:          true,
	}
	for i, r := range route {
		frac := float32(1)
		if dist[0] > 0 {
			frac = dist[i] / dist[0]
		}
		var next math.Point2LL
		if i+1 < len(route) {
			next = route[i+1].pos
		} else {
			next = r.pos
		}
		track := math.InitialBearing2LL(r.pos, next)
		if i == 0 {
			track = ac.Track
		}

		t.Points = append(t.Points, Point{
			Fix:               r.fix,
			Position:          r.pos,
			Altitude:          math.Lerp(frac, p.Runway.Elevation, ac.Altitude),
			RemainingDistance: dist[i],
			RemainingTime:     time.Duration(float64(dist[i]/gs) * float64(time.Hour)),
			GroundSpeed:       gs,
			TAS:               tas,
			IAS:               ias,
			Wind:              layer.Wind,
			Heading:           math.NormalizeHeading(track + wx.WindCorrectionAngle(tas, track, layer.Wind)),
		})
	}

	return t
}
