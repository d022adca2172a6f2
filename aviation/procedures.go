// aviation/procedures.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/vice-aman/aman/math"
	"github.com/vice-aman/aman/util"
)

///////////////////////////////////////////////////////////////////////////
// AltitudeRestriction

// AltitudeRestriction is an at-or-above, at-or-below, between, or exact
// altitude restriction, in feet.
type AltitudeRestriction struct {
	// We treat 0 as "unset", which works naturally for the bottom but
	// requires occasional care at the top.
	Range [2]float32
}

// UnmarshalJSON accepts a single number for an exact restriction, a
// two-element [min, max] array, or an object with optional "min" and
// "max" members.
func (a *AltitudeRestriction) UnmarshalJSON(b []byte) error {
	if alt, err := strconv.ParseFloat(string(b), 32); err == nil {
		a.Range = [2]float32{float32(alt), float32(alt)}
		return nil
	}

	var r [2]float32
	if err := json.Unmarshal(b, &r); err == nil {
		a.Range = r
		return nil
	}

	var mm struct {
		Min float32 `json:"min"`
		Max float32 `json:"max"`
	}
	if err := json.Unmarshal(b, &mm); err != nil {
		return fmt.Errorf("%s: invalid altitude restriction: %w", string(b), err)
	}
	a.Range = [2]float32{mm.Min, mm.Max}
	return nil
}

func (a AltitudeRestriction) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Range)
}

func (a AltitudeRestriction) Exact() bool {
	return a.Range[0] != 0 && a.Range[0] == a.Range[1]
}

// TargetAltitude returns the altitude closest to alt that satisfies the
// restriction.
func (a AltitudeRestriction) TargetAltitude(alt float32) float32 {
	if a.Range[1] != 0 {
		return math.Clamp(alt, a.Range[0], a.Range[1])
	} else {
		return max(alt, a.Range[0])
	}
}

func (a AltitudeRestriction) Satisfied(alt float32) bool {
	return a.TargetAltitude(alt) == alt
}

func (a AltitudeRestriction) String() string {
	switch {
	case a.Exact():
		return fmt.Sprintf("%.0f", a.Range[0])
	case a.Range[0] != 0 && a.Range[1] != 0:
		return fmt.Sprintf("%.0f-%.0f", a.Range[0], a.Range[1])
	case a.Range[0] != 0:
		return fmt.Sprintf("%.0f+", a.Range[0])
	case a.Range[1] != 0:
		return fmt.Sprintf("%.0f-", a.Range[1])
	default:
		return "none"
	}
}

///////////////////////////////////////////////////////////////////////////
// SpeedRestriction

// SpeedRestriction is a minimum, maximum, or exact indicated airspeed
// restriction in knots; zero is unset.
type SpeedRestriction struct {
	Min float32 `json:"min,omitempty"`
	Max float32 `json:"max,omitempty"`
}

// UnmarshalJSON also accepts a single number for an exact restriction.
func (s *SpeedRestriction) UnmarshalJSON(b []byte) error {
	if spd, err := strconv.ParseFloat(string(b), 32); err == nil {
		s.Min, s.Max = float32(spd), float32(spd)
		return nil
	}

	sr := struct{ Min, Max float32 }{}
	if err := json.Unmarshal(b, &sr); err != nil {
		return fmt.Errorf("%s: invalid speed restriction: %w", string(b), err)
	}
	s.Min, s.Max = sr.Min, sr.Max
	return nil
}

// Clamp returns the speed closest to ias that satisfies the restriction.
func (s SpeedRestriction) Clamp(ias float32) float32 {
	if s.Max != 0 {
		ias = min(ias, s.Max)
	}
	return max(ias, s.Min)
}

func (s SpeedRestriction) String() string {
	switch {
	case s.Min != 0 && s.Min == s.Max:
		return fmt.Sprintf("%.0fK", s.Min)
	case s.Min != 0 && s.Max != 0:
		return fmt.Sprintf("%.0f-%.0fK", s.Min, s.Max)
	case s.Min != 0:
		return fmt.Sprintf("%.0fK+", s.Min)
	case s.Max != 0:
		return fmt.Sprintf("%.0fK-", s.Max)
	default:
		return "none"
	}
}

///////////////////////////////////////////////////////////////////////////
// STARs

type StarFix struct {
	Id       string               `json:"id"`
	Position math.Point2LL        `json:"position"`
	Altitude *AltitudeRestriction `json:"altitude,omitempty"`
	Speed    *SpeedRestriction    `json:"speed,omitempty"`
}

func (f StarFix) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("fix", f.Id)}
	if f.Altitude != nil {
		attrs = append(attrs, slog.String("altitude_restriction", f.Altitude.String()))
	}
	if f.Speed != nil {
		attrs = append(attrs, slog.String("speed_restriction", f.Speed.String()))
	}
	return slog.GroupValue(attrs...)
}

// Star is a standard terminal arrival route to a single runway; its fixes
// are ordered from the entry fix to the last fix before the runway.
type Star struct {
	Name    string    `json:"name"`
	Airport string    `json:"-"`
	Runway  string    `json:"runway"`
	Fixes   []StarFix `json:"fixes"`
}

func (s Star) Fix(id string) (StarFix, bool) {
	for _, f := range s.Fixes {
		if f.Id == id {
			return f, true
		}
	}
	return StarFix{}, false
}

func (s Star) Validate(e *util.ErrorLogger) {
	if s.Runway == "" {
		e.ErrorString("no \"runway\" specified")
	}
	if len(s.Fixes) == 0 {
		e.ErrorString("no \"fixes\" specified")
	}

	seen := make(map[string]bool)
	for _, f := range s.Fixes {
		e.Push(f.Id)
		if f.Id == "" {
			e.ErrorString("fix has no \"id\"")
		}
		if seen[f.Id] {
			e.ErrorString("fix repeated")
		}
		seen[f.Id] = true
		if f.Position.IsZero() {
			e.ErrorString("no \"position\" specified")
		}
		if f.Altitude != nil {
			if r := f.Altitude.Range; r[1] != 0 && r[0] > r[1] {
				e.ErrorString("minimum altitude %.0f is above maximum %.0f", r[0], r[1])
			}
		}
		if f.Speed != nil && f.Speed.Max != 0 && f.Speed.Min > f.Speed.Max {
			e.ErrorString("minimum speed %.0f is above maximum %.0f", f.Speed.Min, f.Speed.Max)
		}
		e.Pop()
	}
}

///////////////////////////////////////////////////////////////////////////
// Airports and runways

type Runway struct {
	Id        string        `json:"-"`
	Threshold math.Point2LL `json:"threshold"`
	Heading   float32       `json:"heading"`   // true
	Elevation float32       `json:"elevation"` // threshold elevation, feet MSL
}

type Airport struct {
	ICAO      string            `json:"-"`
	Location  math.Point2LL     `json:"location"`
	Elevation float32           `json:"elevation"`
	Runways   map[string]Runway `json:"runways"`
	Stars     []Star            `json:"stars"`
}

// LookupStar returns the named STAR for the runway.
func (ap Airport) LookupStar(name, runway string) (Star, bool) {
	for _, s := range ap.Stars {
		if s.Name == name && s.Runway == runway {
			return s, true
		}
	}
	return Star{}, false
}

func (ap *Airport) PostDeserialize(icao string, e *util.ErrorLogger) {
	defer e.CheckDepth(e.CurrentDepth())

	ap.ICAO = icao
	if ap.Location.IsZero() {
		e.ErrorString("no \"location\" specified")
	}
	if len(ap.Runways) == 0 {
		e.ErrorString("no \"runways\" specified")
	}

	for _, id := range util.SortedMapKeys(ap.Runways) {
		rwy := ap.Runways[id]
		rwy.Id = id
		if rwy.Elevation == 0 {
			rwy.Elevation = ap.Elevation
		}
		if rwy.Threshold.IsZero() {
			e.Push("Runway " + id)
			e.ErrorString("no \"threshold\" specified")
			e.Pop()
		}
		ap.Runways[id] = rwy
	}

	for i := range ap.Stars {
		s := &ap.Stars[i]
		s.Airport = icao
		e.Push("STAR " + s.Name)
		s.Validate(e)
		if _, ok := ap.Runways[s.Runway]; s.Runway != "" && !ok {
			e.ErrorString("runway %q not found at airport", s.Runway)
		}
		e.Pop()
	}
}
