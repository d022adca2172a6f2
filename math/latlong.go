// math/latlong.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"encoding/json"
	"fmt"
	gomath "math"
	"strconv"
	"strings"
)

// EarthRadiusNM is the mean radius of the earth in nautical miles.
const EarthRadiusNM = 3440.065

const NauticalMilesToFeet = 6076.12
const FeetToNauticalMiles = 1 / NauticalMilesToFeet

///////////////////////////////////////////////////////////////////////////
// Point2LL

// Point2LL represents a 2D point on the Earth in latitude-longitude.
// Important: 0 (x) is longitude, 1 (y) is latitude
type Point2LL [2]float32

func (p Point2LL) Longitude() float32 {
	return p[0]
}

func (p Point2LL) Latitude() float32 {
	return p[1]
}

// DDString returns the position in decimal degrees, e.g.:
// (39.860901, -75.274864)
func (p Point2LL) DDString() string {
	return fmt.Sprintf("(%f, %f)", p[1], p[0]) // latitude, longitude
}

func (p Point2LL) IsZero() bool {
	return p[0] == 0 && p[1] == 0
}

// ParseLatLong parses a decimal-degrees position of the form "lat, lon"
// (e.g., "40.6328888, -73.771385").
func ParseLatLong(llstr []byte) (Point2LL, error) {
	lat, lon, ok := strings.Cut(string(llstr), ",")
	if !ok {
		return Point2LL{}, fmt.Errorf("%s: invalid latlong string", llstr)
	}

	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 32)
	if err != nil {
		return Point2LL{}, fmt.Errorf("%s: invalid latitude: %w", llstr, err)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 32)
	if err != nil {
		return Point2LL{}, fmt.Errorf("%s: invalid longitude: %w", llstr, err)
	}
	if la < -90 || la > 90 {
		return Point2LL{}, fmt.Errorf("%s: latitude out of range", llstr)
	}
	if lo < -180 || lo > 180 {
		return Point2LL{}, fmt.Errorf("%s: longitude out of range", llstr)
	}

	return Point2LL{float32(lo), float32(la)}, nil
}

// Store Point2LLs as "lat, lon" strings in JSON, for friendliness...
func (p Point2LL) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("\"%.6f, %.6f\"", p[1], p[0])), nil
}

func (p *Point2LL) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		// Arrays of two floats, longitude first.
		var pt [2]float32
		err := json.Unmarshal(b, &pt)
		if err == nil {
			*p = pt
		}
		return err
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	pt, err := ParseLatLong([]byte(s))
	if err == nil {
		*p = pt
	}
	return err
}

func (p Point2LL) radians() (lat, lon float64) {
	return float64(p[1]) / 180 * gomath.Pi, float64(p[0]) / 180 * gomath.Pi
}

// centralAngle returns the angle in radians subtended at the center of
// the earth by the two points.
func centralAngle(a Point2LL, b Point2LL) float64 {
	// https://www.movable-type.co.uk/scripts/latlong.html
	lat1, lon1 := a.radians()
	lat2, lon2 := b.radians()
	dlat, dlon := lat2-lat1, lon2-lon1

	x := Sqr(gomath.Sin(dlat/2)) + gomath.Cos(lat1)*gomath.Cos(lat2)*Sqr(gomath.Sin(dlon/2))
	x = Clamp(x, 0, 1)
	return 2 * gomath.Atan2(gomath.Sqrt(x), gomath.Sqrt(1-x))
}

// NMDistance2LL returns the great-circle distance in nautical miles
// between two provided lat-long coordinates.
func NMDistance2LL(a Point2LL, b Point2LL) float32 {
	return float32(EarthRadiusNM * centralAngle(a, b))
}

// InitialBearing2LL returns the initial true bearing in degrees of the
// great circle from |from| to |to|. Coincident points give 0.
func InitialBearing2LL(from Point2LL, to Point2LL) float32 {
	lat1, lon1 := from.radians()
	lat2, lon2 := to.radians()
	dlon := lon2 - lon1

	y := gomath.Sin(dlon) * gomath.Cos(lat2)
	x := gomath.Cos(lat1)*gomath.Sin(lat2) - gomath.Sin(lat1)*gomath.Cos(lat2)*gomath.Cos(dlon)
	if x == 0 && y == 0 {
		return 0
	}
	return NormalizeHeading(float32(gomath.Atan2(y, x) * 180 / gomath.Pi))
}

// InterpolatePositionAlongPath returns the point distanceNm nautical miles
// from |from| along the great circle through |to|. Distances beyond |to|
// continue along the same great circle. If the two points coincide (or
// are antipodal, where the great circle is undefined), |from| is returned.
func InterpolatePositionAlongPath(from, to Point2LL, distanceNm float32) Point2LL {
	delta := centralAngle(from, to)
	sd := gomath.Sin(delta)
	if delta == 0 || gomath.Abs(sd) < 1e-12 {
		return from
	}

	f := float64(distanceNm) / (delta * EarthRadiusNM)
	a := gomath.Sin((1-f)*delta) / sd
	b := gomath.Sin(f*delta) / sd

	lat1, lon1 := from.radians()
	lat2, lon2 := to.radians()
	x := a*gomath.Cos(lat1)*gomath.Cos(lon1) + b*gomath.Cos(lat2)*gomath.Cos(lon2)
	y := a*gomath.Cos(lat1)*gomath.Sin(lon1) + b*gomath.Cos(lat2)*gomath.Sin(lon2)
	z := a*gomath.Sin(lat1) + b*gomath.Sin(lat2)

	lat := gomath.Atan2(z, gomath.Sqrt(x*x+y*y))
	lon := gomath.Atan2(y, x)

	return Point2LL{float32(lon * 180 / gomath.Pi), float32(lat * 180 / gomath.Pi)}
}
