// trajectory/predict.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package trajectory

import (
	"fmt"
	"slices"
	"time"

	"github.com/vice-aman/aman/aviation"
	"github.com/vice-aman/aman/log"
	"github.com/vice-aman/aman/math"
	"github.com/vice-aman/aman/wx"
)

// TimeStep is the integration step.
const TimeStep = 10 * time.Second

const (
	// Heights above the airfield where the preferred speed changes.
	landingSpeedHeight  = 3000
	approachSpeedHeight = 10000

	// Used for profiles that don't give a descent rate, ft/minute.
	fallbackDescentRate = 1000

	// Ground speeds below this are treated as bad data, knots.
	minGroundSpeed = 30

	// Legs shorter than this are considered to be done, nm.
	legEpsilon = 1e-4

	maxSteps = 20000
)

// waypoint is a point on the route as seen from the threshold, along
// with the restrictions that apply there.
type waypoint struct {
	fix      *string
	position math.Point2LL
	altitude *aviation.AltitudeRestriction
	speed    *aviation.SpeedRestriction
}

// outwardWaypoints returns the route from the threshold to the
// aircraft's current position.
func outwardWaypoints(p Params) ([]waypoint, error) {
	wps := []waypoint{{fix: runwayFix(p.Runway), position: p.Runway.Threshold}}

	for _, rp := range slices.Backward(p.Aircraft.Route) {
		wp := waypoint{fix: fixName(rp.Id), position: rp.Position}
		if rp.OnStar {
			if p.Star == nil {
				return nil, fmt.Errorf("%s: no STAR assigned: %w", rp.Id, ErrStarFixNotFound)
			}
			sf, ok := p.Star.Fix(rp.Id)
			if !ok {
				return nil, fmt.Errorf("%s: not in %s: %w", rp.Id, p.Star.Name, ErrStarFixNotFound)
			}
			wp.altitude, wp.speed = sf.Altitude, sf.Speed
			if wp.position.IsZero() {
				wp.position = sf.Position
			}
		}
		wps = append(wps, wp)
	}

	return append(wps, waypoint{position: p.Aircraft.Position}), nil
}

// legTargetAltitude returns the altitude the prediction climbs toward
// (walking backward) on the leg ending at wps[far]: that of the next
// altitude restriction at or beyond the far end of the leg, or the
// aircraft's altitude if there is none. It never exceeds the aircraft's
// altitude.
func legTargetAltitude(wps []waypoint, far int, aircraftAlt float32) float32 {
	for _, wp := range wps[far:] {
		if wp.altitude != nil {
			return min(wp.altitude.TargetAltitude(aircraftAlt), aircraftAlt)
		}
	}
	return aircraftAlt
}

// preferredIAS returns the indicated airspeed the aircraft is expected to
// fly at the given height above the airfield.
func preferredIAS(perf aviation.AircraftPerformance, aal, alt, tempC float32) float32 {
	landing := perf.LandingSpeed()
	approach := max(perf.Speed.Approach, landing)

	if aal < landingSpeedHeight {
		return landing
	} else if aal < approachSpeedHeight {
		return approach
	}

	ias := max(perf.Speed.Descent, approach)
	if perf.Speed.DescentMach > 0 {
		ias = min(ias, wx.MachToIAS(perf.Speed.DescentMach, alt, tempC))
	}
	return ias
}

// AtEndOfRoute reports whether the aircraft has no route left to fly and
// the runway threshold is behind it, which is the case once it has
// landed or gone around.
func AtEndOfRoute(p Params) bool {
	for _, rp := range p.Aircraft.Route {
		if rp.Id != p.Aircraft.Airport {
			return false
		}
	}
	pos, thr := p.Aircraft.Position, p.Runway.Threshold
	if math.NMDistance2LL(pos, thr) <= legEpsilon {
		return false
	}
	return math.HeadingDifference(math.InitialBearing2LL(pos, thr), p.Aircraft.Track) > 90
}

// Predict computes the trajectory from the aircraft's position to the
// runway threshold. The path is integrated backward from the threshold,
// one leg at a time, with a fixed time step; at each step the aircraft
// flies its preferred speed for the altitude, limited by the most recent
// STAR speed restriction, and its altitude is raised by the descent rate
// until it reaches the leg's target altitude.
//
// An error wrapping ErrStarFixNotFound is returned if a route point that
// is marked as being on the STAR isn't found in it, and one wrapping
// ErrEndOfRoute if the aircraft is past the threshold.
func Predict(p Params, lg *log.Logger) (Trajectory, error) {
	if AtEndOfRoute(p) {
		return Trajectory{}, fmt.Errorf("%s: %w", p.Aircraft.Callsign, ErrEndOfRoute)
	}

	wps, err := outwardWaypoints(p)
	if err != nil {
		return Trajectory{}, err
	}

	elevation := p.Runway.Elevation
	alt := elevation
	var dist float32
	var remaining time.Duration
	var speedLimit *aviation.SpeedRestriction

	type state struct {
		ias, tas, gs, heading float32
		wind                  wx.Wind
	}
	fly := func(from, to math.Point2LL) state {
		layer := p.Weather.Interpolate(alt)
		ias := preferredIAS(p.Performance, alt-elevation, alt, layer.Temperature)
		if speedLimit != nil {
			ias = speedLimit.Clamp(ias)
		}
		tas := wx.IASToTAS(ias, alt, layer.Temperature)

		// The aircraft flies toward the threshold, the reverse of the
		// direction we're walking.
		track := math.OppositeHeading(math.InitialBearing2LL(from, to))
		gs := wx.TASToGS(tas, track, layer.Wind)
		if gs < minGroundSpeed {
			lg.Warn("implausible predicted ground speed", "callsign", p.Aircraft.Callsign,
				"tas", tas, "gs", gs, "wind", layer.Wind)
			gs = max(tas, minGroundSpeed)
		}

		return state{
			ias:     ias,
			tas:     tas,
			gs:      gs,
			heading: math.NormalizeHeading(track + wx.WindCorrectionAngle(tas, track, layer.Wind)),
			wind:    layer.Wind,
		}
	}
	emit := func(fix *string, pos math.Point2LL, s state) Point {
		return Point{
			Fix:               fix,
			Position:          pos,
			Altitude:          alt,
			RemainingDistance: dist,
			RemainingTime:     remaining,
			GroundSpeed:       s.gs,
			TAS:               s.tas,
			IAS:               s.ias,
			Wind:              s.wind,
			Heading:           s.heading,
		}
	}

	var next math.Point2LL
	if len(wps) > 1 {
		next = wps[1].position
	}
	points := []Point{emit(wps[0].fix, wps[0].position, fly(wps[0].position, next))}

	steps := 0
	for far := 1; far < len(wps); far++ {
		pos, dest := wps[far-1].position, wps[far].position
		target := max(legTargetAltitude(wps, far, p.Aircraft.Altitude), alt)
		legRemaining := math.NMDistance2LL(pos, dest)

		var s state
		if legRemaining <= legEpsilon {
			s = fly(pos, dest)
		}
		for legRemaining > legEpsilon {
			if steps++; steps > maxSteps {
				return Trajectory{}, fmt.Errorf("%s: %d steps: %w", p.Aircraft.Callsign, maxSteps, ErrIntegrationLimit)
			}

			s = fly(pos, dest)
			dt := TimeStep
			stepDist := s.gs * float32(dt.Hours())

			if stepDist >= legRemaining {
				// Partial step; finish exactly at the waypoint.
				dt = time.Duration(float64(dt) * float64(legRemaining/stepDist))
				stepDist = legRemaining
				pos = dest
			} else {
				pos = math.InterpolatePositionAlongPath(pos, dest, stepDist)
			}
			legRemaining -= stepDist

			rate := p.Performance.DescentRate(alt - elevation)
			if rate <= 0 {
				rate = fallbackDescentRate
			}
			alt = min(alt+rate*float32(dt.Minutes()), target)

			dist += stepDist
			remaining += dt

			if legRemaining > legEpsilon {
				points = append(points, emit(nil, pos, s))
			}
		}

		points = append(points, emit(wps[far].fix, dest, s))

		if wps[far].speed != nil {
			speedLimit = wps[far].speed
		}
	}

	slices.Reverse(points)

	return Trajectory{
		Points:            points,
		RemainingDistance: dist,
		RemainingTime:     remaining,
	}, nil
}
