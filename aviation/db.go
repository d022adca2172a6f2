// aviation/db.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vice-aman/aman/log"
	"github.com/vice-aman/aman/util"

	"github.com/klauspost/compress/zstd"
)

// Database holds the static reference data: airports with their runways
// and STARs, and aircraft performance keyed by ICAO type designator. It
// is immutable once loaded.
type Database struct {
	Airports            map[string]Airport             `json:"airports"`
	AircraftPerformance map[string]AircraftPerformance `json:"aircraft"`
}

func (db *Database) LookupAirport(icao string) (Airport, bool) {
	if db == nil {
		return Airport{}, false
	}
	ap, ok := db.Airports[icao]
	return ap, ok
}

func (db *Database) LookupRunway(airport, runway string) (Runway, error) {
	ap, ok := db.LookupAirport(airport)
	if !ok {
		return Runway{}, fmt.Errorf("%s: %w", airport, ErrUnknownAirport)
	}
	rwy, ok := ap.Runways[runway]
	if !ok {
		return Runway{}, fmt.Errorf("%s/%s: %w", airport, runway, ErrUnknownRunway)
	}
	return rwy, nil
}

func (db *Database) LookupStar(airport, runway, name string) (Star, error) {
	ap, ok := db.LookupAirport(airport)
	if !ok {
		return Star{}, fmt.Errorf("%s: %w", airport, ErrUnknownAirport)
	}
	s, ok := ap.LookupStar(name, runway)
	if !ok {
		return Star{}, fmt.Errorf("%s %s/%s: %w", name, airport, runway, ErrUnknownStar)
	}
	return s, nil
}

// LookupPerformance returns the performance profile for the aircraft
// type. If the type is unknown, a generic profile for the wake category
// is returned along with an error wrapping ErrUnknownAircraftType.
func (db *Database) LookupPerformance(icao string, wake WakeCategory) (AircraftPerformance, error) {
	if db != nil {
		if ap, ok := db.AircraftPerformance[strings.ToUpper(icao)]; ok {
			return ap, nil
		}
	}
	return DefaultPerformance(wake), fmt.Errorf("%s: %w", icao, ErrUnknownAircraftType)
}

// PostDeserialize fills in the fields derived from map keys and checks
// the database for errors, which are accumulated in e.
func (db *Database) PostDeserialize(e *util.ErrorLogger) {
	defer e.CheckDepth(e.CurrentDepth())

	for _, icao := range util.SortedMapKeys(db.Airports) {
		ap := db.Airports[icao]
		e.Push("Airport " + icao)
		ap.PostDeserialize(icao, e)
		db.Airports[icao] = ap
		e.Pop()
	}

	perf := make(map[string]AircraftPerformance, len(db.AircraftPerformance))
	for _, icao := range util.SortedMapKeys(db.AircraftPerformance) {
		ap := db.AircraftPerformance[icao]
		ap.ICAO = strings.ToUpper(icao)
		e.Push("Aircraft " + icao)
		ap.Validate(e)
		e.Pop()
		perf[ap.ICAO] = ap
	}
	db.AircraftPerformance = perf
}

// ReadDatabase parses a JSON reference database from r; name is used in
// error messages. Duplicated keys in the JSON are logged as warnings.
func ReadDatabase(r io.Reader, name string, lg *log.Logger) (*Database, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	for _, dupe := range util.FindDuplicateJSONKeys(b) {
		lg.Warn("duplicate key in reference database", "file", name, "key", dupe.String())
	}

	var db Database
	if err := util.UnmarshalJSON(b, &db); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	var e util.ErrorLogger
	db.PostDeserialize(&e)
	if e.HaveErrors() {
		e.LogErrors(lg)
		return nil, fmt.Errorf("%s: %w:\n%s", name, ErrInvalidDatabase, e.String())
	}

	lg.Info("loaded reference database", "file", name, "airports", len(db.Airports),
		"aircraft_types", len(db.AircraftPerformance))

	return &db, nil
}

// LoadDatabase reads the reference database from the given file; files
// with a .zst extension are zstd-compressed.
func LoadDatabase(path string, lg *log.Logger) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if filepath.Ext(path) == ".zst" {
		zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(0))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	return ReadDatabase(r, path, lg)
}
