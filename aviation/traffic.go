// aviation/traffic.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"log/slog"
	"time"

	"github.com/vice-aman/aman/math"
)

// RoutePoint is a point on an aircraft's remaining route.
type RoutePoint struct {
	Id       string        `json:"id"`
	Position math.Point2LL `json:"position"`
	OnStar   bool          `json:"onStar"`
}

// ArrivalCandidate is the latest reported state of an inbound aircraft.
// Each report replaces the previous one for the callsign.
type ArrivalCandidate struct {
	Callsign     string        `json:"callsign"`
	AircraftType string        `json:"aircraftType"`
	WakeCategory WakeCategory  `json:"wakeCategory"`
	Position     math.Point2LL `json:"position"`
	Altitude     float32       `json:"altitude"`    // feet MSL
	GroundSpeed  float32       `json:"groundSpeed"` // knots
	Track        float32       `json:"track"`       // degrees true
	Airport      string        `json:"airport"`
	Runway       string        `json:"runway"`
	// Route holds the remaining points from the aircraft's current
	// position to the runway, not including either.
	Route []RoutePoint `json:"route"`

	Star               *string `json:"star,omitempty"`
	TrackingController *string `json:"trackingController,omitempty"`
	Scratchpad         *string `json:"scratchpad,omitempty"`
}

func (ac ArrivalCandidate) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("callsign", ac.Callsign),
		slog.String("type", ac.AircraftType),
		slog.String("wake", string(ac.WakeCategory)),
		slog.String("position", ac.Position.DDString()),
		slog.Float64("altitude", float64(ac.Altitude)),
		slog.Float64("groundspeed", float64(ac.GroundSpeed)),
		slog.String("runway", ac.Airport+"/"+ac.Runway),
		slog.Int("route_points", len(ac.Route)),
	}
	if ac.Star != nil {
		attrs = append(attrs, slog.String("star", *ac.Star))
	}
	return slog.GroupValue(attrs...)
}

// Departure is a departing aircraft as reported by the feed.
type Departure struct {
	Callsign      string       `json:"callsign"`
	AircraftType  string       `json:"aircraftType"`
	WakeCategory  WakeCategory `json:"wakeCategory"`
	Airport       string       `json:"airport"`
	Runway        string       `json:"runway"`
	EstimatedTime time.Time    `json:"estimatedTime"`
}

// RunwayStatus is an airport's active runway configuration.
type RunwayStatus struct {
	Airport          string   `json:"airport"`
	Mode             string   `json:"mode,omitempty"`
	ArrivalRunways   []string `json:"arrivalRunways"`
	DepartureRunways []string `json:"departureRunways"`
}
