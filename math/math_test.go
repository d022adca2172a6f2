// math/math_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"encoding/json"
	"testing"
)

func TestParseLatLong(t *testing.T) {
	type LL struct {
		str string
		pos Point2LL
	}
	latlongs := []LL{
		LL{str: "40.6328888, -73.771385", pos: Point2LL{-73.771385, 40.6328888}}, // JFK VOR
		LL{str: "40.6328888,-73.771385", pos: Point2LL{-73.771385, 40.6328888}},
		LL{str: " 51.4775 , -0.461389 ", pos: Point2LL{-0.461389, 51.4775}},
	}

	for _, ll := range latlongs {
		p, err := ParseLatLong([]byte(ll.str))
		if err != nil {
			t.Errorf("%s: unexpected error: %v", ll.str, err)
		}
		if p[0] != ll.pos[0] {
			t.Errorf("%s: got %.9g for longitude, expected %.9g", ll.str, p[0], ll.pos[0])
		}
		if p[1] != ll.pos[1] {
			t.Errorf("%s: got %.9g for latitude, expected %.9g", ll.str, p[1], ll.pos[1])
		}
	}

	for _, invalid := range []string{
		"N40.37.58.400, W073.46.17.000",
		"40.6328888",
		"91, 10",
		"45, 181",
		"abc, 10",
	} {
		if _, err := ParseLatLong([]byte(invalid)); err == nil {
			t.Errorf("%s: no error was returned for invalid latlong string!", invalid)
		}
	}
}

func TestPoint2LLJSON(t *testing.T) {
	p := Point2LL{-73.771385, 40.632889}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"40.632889, -73.771385"` {
		t.Errorf("Marshal(%v) = %s", p, b)
	}

	var q Point2LL
	if err := json.Unmarshal(b, &q); err != nil {
		t.Fatal(err)
	}
	if q != p {
		t.Errorf("round trip gave %v, want %v", q, p)
	}

	if err := json.Unmarshal([]byte(`[-0.5, 51.25]`), &q); err != nil {
		t.Fatal(err)
	}
	if q != (Point2LL{-0.5, 51.25}) {
		t.Errorf("array form gave %v", q)
	}

	if err := json.Unmarshal([]byte(`"bogus"`), &q); err == nil {
		t.Errorf("expected error for invalid position string")
	}
}

func TestHeadingDifference(t *testing.T) {
	for _, tc := range []struct{ a, b, want float32 }{
		{10, 90, 80},
		{350, 12, 22},
		{340, 120, 140},
		{-90, 90, 180},
		{0, 0, 0},
		{720, 10, 10},
	} {
		if d := HeadingDifference(tc.a, tc.b); d != tc.want {
			t.Errorf("HeadingDifference(%v, %v) = %v, want %v", tc.a, tc.b, d, tc.want)
		}
	}
}

func TestNormalizeHeading(t *testing.T) {
	for _, tc := range []struct{ h, want float32 }{
		{90, 90}, {360, 0}, {-10, 350}, {380, 20}, {-380, 340}, {-360, 0}, {0, 0},
	} {
		if n := NormalizeHeading(tc.h); n != tc.want {
			t.Errorf("NormalizeHeading(%v) = %v, want %v", tc.h, n, tc.want)
		}
	}
}

func TestOppositeHeading(t *testing.T) {
	for _, tc := range []struct{ h, want float32 }{
		{0, 180}, {90, 270}, {270, 90}, {359, 179},
	} {
		if o := OppositeHeading(tc.h); o != tc.want {
			t.Errorf("OppositeHeading(%v) = %v, want %v", tc.h, o, tc.want)
		}
	}
}

func TestHeadingSignedTurn(t *testing.T) {
	for _, tc := range []struct{ cur, target, want float32 }{
		{10, 20, 10},
		{20, 10, -10},
		{350, 10, 20},
		{10, 350, -20},
	} {
		if d := HeadingSignedTurn(tc.cur, tc.target); Abs(d-tc.want) > 1e-3 {
			t.Errorf("HeadingSignedTurn(%v, %v) = %v, want %v", tc.cur, tc.target, d, tc.want)
		}
	}
}

func TestLerpHeading(t *testing.T) {
	for _, tc := range []struct{ x, a, b, want float32 }{
		{0.5, 350, 10, 0},
		{0.5, 10, 350, 0},
		{0.25, 350, 10, 355},
		{0.5, 90, 180, 135},
		{0, 270, 90, 270},
		{1, 200, 220, 220},
	} {
		if h := LerpHeading(tc.x, tc.a, tc.b); HeadingDifference(h, tc.want) > 1e-3 {
			t.Errorf("LerpHeading(%v, %v, %v) = %v, want %v", tc.x, tc.a, tc.b, h, tc.want)
		}
		if h := LerpHeading(tc.x, tc.a, tc.b); h < 0 || h >= 360 {
			t.Errorf("LerpHeading(%v, %v, %v) = %v outside [0,360)", tc.x, tc.a, tc.b, h)
		}
	}
}

func TestNMDistance2LL(t *testing.T) {
	for _, tc := range []struct {
		a, b Point2LL
		want float32
		tol  float32
	}{
		// One degree of latitude is 60.04 NM with the mean earth radius.
		{Point2LL{0, 0}, Point2LL{0, 1}, 60.04, 0.01},
		{Point2LL{0, 0}, Point2LL{1, 0}, 60.04, 0.01},
		{Point2LL{-73.7781, 40.6413}, Point2LL{-0.4543, 51.4700}, 2990, 10}, // JFK-LHR
		{Point2LL{10, 45}, Point2LL{10, 45}, 0, 0},
	} {
		if d := NMDistance2LL(tc.a, tc.b); Abs(d-tc.want) > tc.tol {
			t.Errorf("NMDistance2LL(%v, %v) = %v, want %v", tc.a, tc.b, d, tc.want)
		}
	}
}

func TestInitialBearing2LL(t *testing.T) {
	for _, tc := range []struct {
		from, to Point2LL
		want     float32
	}{
		{Point2LL{0, 0}, Point2LL{0, 1}, 0},
		{Point2LL{0, 0}, Point2LL{1, 0}, 90},
		{Point2LL{0, 1}, Point2LL{0, 0}, 180},
		{Point2LL{1, 0}, Point2LL{0, 0}, 270},
		{Point2LL{5, 5}, Point2LL{5, 5}, 0},
	} {
		if b := InitialBearing2LL(tc.from, tc.to); HeadingDifference(b, tc.want) > 0.01 {
			t.Errorf("InitialBearing2LL(%v, %v) = %v, want %v", tc.from, tc.to, b, tc.want)
		}
	}
}

func TestInterpolatePositionAlongPath(t *testing.T) {
	from, to := Point2LL{-73.7781, 40.6413}, Point2LL{-72.5, 41.2}
	total := NMDistance2LL(from, to)

	for _, frac := range []float32{0, 0.25, 0.5, 1} {
		p := InterpolatePositionAlongPath(from, to, frac*total)
		if d := NMDistance2LL(from, p); Abs(d-frac*total) > 0.01 {
			t.Errorf("fraction %v: distance from origin %v, want %v", frac, d, frac*total)
		}
		if d := NMDistance2LL(p, to); Abs(d-(1-frac)*total) > 0.01 {
			t.Errorf("fraction %v: distance to destination %v, want %v", frac, d, (1-frac)*total)
		}
	}

	// Coincident points return the origin.
	if p := InterpolatePositionAlongPath(from, from, 10); p != from {
		t.Errorf("coincident points gave %v, want %v", p, from)
	}
}
