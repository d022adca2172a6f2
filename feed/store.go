// feed/store.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package feed

import (
	"log/slog"
	"slices"
	"time"

	"github.com/vice-aman/aman/aviation"
	"github.com/vice-aman/aman/log"
	"github.com/vice-aman/aman/util"
	"github.com/vice-aman/aman/wx"
)

// Snapshot is a copy of the most recent feed data. Version increases by
// one each time a message changes the store.
type Snapshot struct {
	Version  uint64
	Received time.Time

	Arrivals       map[string][]aviation.ArrivalCandidate // by airport
	Departures     map[string][]aviation.Departure        // by airport
	RunwayStatuses map[string]aviation.RunwayStatus       // by airport
}

// AirportArrivals returns the airport's arrivals; all arrivals, sorted
// by callsign, if airport is empty.
func (s Snapshot) AirportArrivals(airport string) []aviation.ArrivalCandidate {
	if airport != "" {
		return s.Arrivals[airport]
	}
	var all []aviation.ArrivalCandidate
	for _, ap := range util.SortedMapKeys(s.Arrivals) {
		all = append(all, s.Arrivals[ap]...)
	}
	return all
}

// AirportDepartures is the departure counterpart of AirportArrivals.
func (s Snapshot) AirportDepartures(airport string) []aviation.Departure {
	if airport != "" {
		return s.Departures[airport]
	}
	var all []aviation.Departure
	for _, ap := range util.SortedMapKeys(s.Departures) {
		all = append(all, s.Departures[ap]...)
	}
	return all
}

// Store holds the latest data received from the feed. Each message
// replaces the previous data of its kind for its airport wholesale;
// there is no merging and no history. It also records when each callsign
// was last reported so that stale callsigns can be found. Store is safe
// for concurrent use.
type Store struct {
	mu      util.LoggingMutex
	lg      *log.Logger
	weather *wx.Store

	version        uint64
	received       time.Time
	arrivals       map[string][]aviation.ArrivalCandidate
	departures     map[string][]aviation.Departure
	runwayStatuses map[string]aviation.RunwayStatus
	lastSeen       map[string]time.Time
}

// NewStore returns an empty store. Weather messages are forwarded to
// weather, which may be nil if they should be ignored.
func NewStore(weather *wx.Store, lg *log.Logger) *Store {
	return &Store{
		lg:             lg,
		weather:        weather,
		arrivals:       make(map[string][]aviation.ArrivalCandidate),
		departures:     make(map[string][]aviation.Departure),
		runwayStatuses: make(map[string]aviation.RunwayStatus),
		lastSeen:       make(map[string]time.Time),
	}
}

// Apply records the message as the latest of its kind. now is the time
// the message was received.
func (s *Store) Apply(msg Message, now time.Time) {
	if wm, ok := msg.(WeatherMessage); ok {
		// The weather store does its own locking.
		if s.weather != nil {
			s.weather.Put(wm.Airport, wm.Profile)
			s.lg.Debug("weather profile updated", slog.Any("message", wm))
		}
		return
	}

	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	switch m := msg.(type) {
	case ArrivalsMessage:
		s.arrivals[m.Airport] = slices.Clone(m.Arrivals)
		for _, ac := range m.Arrivals {
			s.lastSeen[ac.Callsign] = now
		}
	case DeparturesMessage:
		s.departures[m.Airport] = slices.Clone(m.Departures)
		for _, dep := range m.Departures {
			s.lastSeen[dep.Callsign] = now
		}
	case RunwayStatusesMessage:
		for _, rs := range m.RunwayStatuses {
			s.runwayStatuses[rs.Airport] = rs
		}
	default:
		panic("unhandled feed message type " + msg.Type())
	}

	s.version++
	s.received = now
}

// Snapshot returns a copy of the current data.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	snap := Snapshot{
		Version:        s.version,
		Received:       s.received,
		Arrivals:       make(map[string][]aviation.ArrivalCandidate, len(s.arrivals)),
		Departures:     make(map[string][]aviation.Departure, len(s.departures)),
		RunwayStatuses: util.DuplicateMap(s.runwayStatuses),
	}
	for ap, arr := range s.arrivals {
		snap.Arrivals[ap] = slices.Clone(arr)
	}
	for ap, dep := range s.departures {
		snap.Departures[ap] = slices.Clone(dep)
	}
	return snap
}

// LastSeen returns a copy of the time each callsign was last reported.
func (s *Store) LastSeen() map[string]time.Time {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	return util.DuplicateMap(s.lastSeen)
}

// Forget drops the callsign's last-seen time; it is otherwise left in
// any stored messages it appeared in.
func (s *Store) Forget(callsign string) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	delete(s.lastSeen, callsign)
}

// StaleCallsigns returns the callsigns, sorted, that have not been
// reported within window of now.
func StaleCallsigns(lastSeen map[string]time.Time, now time.Time, window time.Duration) []string {
	var stale []string
	for cs, t := range lastSeen {
		if now.Sub(t) > window {
			stale = append(stale, cs)
		}
	}
	slices.Sort(stale)
	return stale
}
