// wx/profile.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wx

import (
	"errors"
	"fmt"
	"log/slog"
	gomath "math"
	"slices"
	"time"

	"github.com/vice-aman/aman/math"
)

var ErrInvalidProfile = errors.New("invalid weather profile")

// Layer holds the weather at a single altitude.
type Layer struct {
	Altitude    float32 `json:"altitude"`    // feet MSL
	Temperature float32 `json:"temperature"` // Celsius
	Wind        Wind    `json:"wind"`
}

func (l Layer) String() string {
	return fmt.Sprintf("%.0f ft: %.1fC wind %s", l.Altitude, l.Temperature, l.Wind)
}

// StandardLayer returns a calm ISA layer for the given altitude.
func StandardLayer(alt float32) Layer {
	return Layer{Altitude: alt, Temperature: ISATemperature(alt)}
}

// Profile is a vertical weather profile over a single location at a
// single time.
type Profile struct {
	Time     time.Time     `json:"time"`
	Position math.Point2LL `json:"position"`
	Layers   []Layer       `json:"layers"`
}

func (p Profile) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Time("time", p.Time),
		slog.String("position", p.Position.DDString()),
		slog.Int("layers", len(p.Layers)))
}

// Validate checks that the layer values are usable.
func (p Profile) Validate() error {
	for i, l := range p.Layers {
		for _, v := range []float32{l.Altitude, l.Temperature, l.Wind.Direction, l.Wind.Speed} {
			if gomath.IsNaN(float64(v)) || gomath.IsInf(float64(v), 0) {
				return fmt.Errorf("layer %d: non-finite value: %w", i, ErrInvalidProfile)
			}
		}
		if l.Wind.Speed < 0 {
			return fmt.Errorf("layer %d: negative wind speed %f: %w", i, l.Wind.Speed, ErrInvalidProfile)
		}
		if l.Wind.Direction < 0 || l.Wind.Direction > 360 {
			return fmt.Errorf("layer %d: wind direction %f out of range: %w", i, l.Wind.Direction, ErrInvalidProfile)
		}
		if l.Temperature < -CelsiusToKelvin {
			return fmt.Errorf("layer %d: temperature %f below absolute zero: %w", i, l.Temperature, ErrInvalidProfile)
		}
	}
	return nil
}

// Interpolate returns the weather at the given altitude. Temperature and
// wind speed are interpolated linearly between the nearest layers below
// and above; wind direction follows the shorter way around the compass.
// Queries outside the profile return the values of the lowest or highest
// layer. A profile with no layers gives the calm standard atmosphere.
func (p Profile) Interpolate(alt float32) Layer {
	return InterpolateLayers(p.Layers, alt)
}

func InterpolateLayers(layers []Layer, alt float32) Layer {
	if len(layers) == 0 {
		return StandardLayer(alt)
	}

	cmp := func(a, b Layer) int {
		if a.Altitude < b.Altitude {
			return -1
		} else if a.Altitude > b.Altitude {
			return 1
		}
		return 0
	}
	if !slices.IsSortedFunc(layers, cmp) {
		layers = slices.Clone(layers)
		slices.SortStableFunc(layers, cmp)
	}

	if alt <= layers[0].Altitude {
		l := layers[0]
		l.Altitude = alt
		return l
	}
	if n := len(layers); alt >= layers[n-1].Altitude {
		l := layers[n-1]
		l.Altitude = alt
		return l
	}

	// Index of the first layer strictly above alt; it's in [1, n-1] given
	// the checks above.
	i, _ := slices.BinarySearchFunc(layers, alt, func(l Layer, a float32) int {
		if l.Altitude <= a {
			return -1
		}
		return 1
	})
	lo, hi := layers[i-1], layers[i]

	x := (alt - lo.Altitude) / (hi.Altitude - lo.Altitude)
	return Layer{
		Altitude:    alt,
		Temperature: math.Lerp(x, lo.Temperature, hi.Temperature),
		Wind: Wind{
			Direction: math.LerpHeading(x, lo.Wind.Direction, hi.Wind.Direction),
			Speed:     math.Lerp(x, lo.Wind.Speed, hi.Wind.Speed),
		},
	}
}
