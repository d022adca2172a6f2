// aviation/performance.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"log/slog"

	"github.com/vice-aman/aman/util"
)

// DefaultLandingSpeed is the landing reference speed in knots assumed for
// an aircraft whose profile doesn't specify one.
const DefaultLandingSpeed = 140

// AircraftPerformance is the performance envelope of an aircraft type.
// Speeds are indicated airspeeds in knots except for the cruise speed,
// which is true airspeed; rates are in feet per minute. A zero Mach
// number means the type has no Mach-limited descent.
type AircraftPerformance struct {
	Name         string       `json:"name"`
	ICAO         string       `json:"icao"`
	WakeCategory WakeCategory `json:"wake"`

	Speed struct {
		Takeoff     float32 `json:"takeoff"`
		Climb       float32 `json:"climb"`
		Cruise      float32 `json:"cruise"`
		CruiseMach  float32 `json:"cruiseM"`
		Descent     float32 `json:"descent"`
		DescentMach float32 `json:"descentM"`
		Approach    float32 `json:"approach"`
		Landing     float32 `json:"landing"` // Vat
	} `json:"speed"`

	Rate struct {
		Climb           float32 `json:"climb"`
		Descent         float32 `json:"descent"`
		ApproachDescent float32 `json:"approachDescent"` // below 10,000' AAL
	} `json:"rate"`
}

func (ap AircraftPerformance) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("icao", ap.ICAO),
		slog.String("wake", string(ap.WakeCategory)),
		slog.Float64("landing", float64(ap.Speed.Landing)),
		slog.Float64("approach", float64(ap.Speed.Approach)),
		slog.Float64("descent", float64(ap.Speed.Descent)),
		slog.Float64("descent_rate", float64(ap.Rate.Descent)))
}

// LandingSpeed returns the landing reference speed, or
// DefaultLandingSpeed if the profile doesn't have one.
func (ap AircraftPerformance) LandingSpeed() float32 {
	if ap.Speed.Landing > 0 {
		return ap.Speed.Landing
	}
	return DefaultLandingSpeed
}

// DescentRate returns the descent rate in feet per minute at the given
// height above the airfield.
func (ap AircraftPerformance) DescentRate(altAAL float32) float32 {
	if altAAL < 10000 && ap.Rate.ApproachDescent > 0 {
		return ap.Rate.ApproachDescent
	}
	return ap.Rate.Descent
}

func (ap AircraftPerformance) Validate(e *util.ErrorLogger) {
	if ap.WakeCategory == "" {
		e.ErrorString("no wake category specified")
	}
	if ap.Speed.Landing <= 0 {
		e.ErrorString("\"landing\" speed must be positive")
	}
	if ap.Speed.Approach < ap.Speed.Landing {
		e.ErrorString("\"approach\" speed %.0f is below landing speed %.0f", ap.Speed.Approach, ap.Speed.Landing)
	}
	if ap.Speed.Descent < ap.Speed.Approach {
		e.ErrorString("\"descent\" speed %.0f is below approach speed %.0f", ap.Speed.Descent, ap.Speed.Approach)
	}
	if ap.Speed.DescentMach < 0 || ap.Speed.DescentMach >= 1 {
		e.ErrorString("\"descentM\" %.2f out of range", ap.Speed.DescentMach)
	}
	if ap.Rate.Descent <= 0 {
		e.ErrorString("\"descent\" rate must be positive")
	}
	if ap.Rate.ApproachDescent < 0 {
		e.ErrorString("\"approachDescent\" rate must not be negative")
	}
}

// DefaultPerformance returns a generic performance profile for an
// aircraft of the given wake category; it's used for types that aren't
// in the database.
func DefaultPerformance(wake WakeCategory) AircraftPerformance {
	var ap AircraftPerformance
	ap.WakeCategory = wake

	switch wake {
	case WakeSuper:
		ap.ICAO, ap.Name = "ZZZJ", "generic super"
		ap.Speed.Takeoff, ap.Speed.Climb, ap.Speed.Cruise, ap.Speed.CruiseMach = 165, 250, 490, 0.85
		ap.Speed.Descent, ap.Speed.DescentMach, ap.Speed.Approach, ap.Speed.Landing = 290, 0.84, 180, 145
		ap.Rate.Climb, ap.Rate.Descent, ap.Rate.ApproachDescent = 1800, 2500, 1000
	case WakeHeavy:
		ap.ICAO, ap.Name = "ZZZH", "generic heavy"
		ap.Speed.Takeoff, ap.Speed.Climb, ap.Speed.Cruise, ap.Speed.CruiseMach = 160, 250, 480, 0.84
		ap.Speed.Descent, ap.Speed.DescentMach, ap.Speed.Approach, ap.Speed.Landing = 290, 0.82, 180, 145
		ap.Rate.Climb, ap.Rate.Descent, ap.Rate.ApproachDescent = 2000, 2500, 1000
	case WakeLight:
		ap.ICAO, ap.Name = "ZZZL", "generic light"
		ap.Speed.Takeoff, ap.Speed.Climb, ap.Speed.Cruise = 100, 160, 250
		ap.Speed.Descent, ap.Speed.Approach, ap.Speed.Landing = 200, 130, 105
		ap.Rate.Climb, ap.Rate.Descent, ap.Rate.ApproachDescent = 1500, 1500, 800
	default:
		ap.ICAO, ap.Name = "ZZZM", "generic medium"
		ap.Speed.Takeoff, ap.Speed.Climb, ap.Speed.Cruise, ap.Speed.CruiseMach = 145, 250, 450, 0.78
		ap.Speed.Descent, ap.Speed.DescentMach, ap.Speed.Approach, ap.Speed.Landing = 280, 0.78, 170, 140
		ap.Rate.Climb, ap.Rate.Descent, ap.Rate.ApproachDescent = 2500, 2200, 1000
	}
	return ap
}
