// sequence/sequencer.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sequence

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/vice-aman/aman/aviation"
	"github.com/vice-aman/aman/log"
	"github.com/vice-aman/aman/util"
)

// DefaultHorizon is the active advisory horizon: arrivals with less than
// this much time remaining to the threshold are sequenced automatically.
const DefaultHorizon = 30 * time.Minute

// Arrival is the sequencer's input for one arrival in a cycle.
type Arrival struct {
	Callsign      string
	EstimatedTime time.Time
	// RemainingTime is the predicted time to the threshold.
	RemainingTime time.Duration
	WakeCategory  aviation.WakeCategory
	LandingSpeed  float32 // knots
	Runway        string
}

func (a Arrival) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("callsign", a.Callsign),
		slog.Time("eta", a.EstimatedTime),
		slog.Duration("remaining", a.RemainingTime),
		slog.String("wake", string(a.WakeCategory)),
		slog.String("runway", a.Runway))
}

// Place is a sequence entry.
type Place struct {
	Callsign           string    `json:"callsign"`
	ScheduledTime      time.Time `json:"scheduledTime"`
	IsManuallyAssigned bool      `json:"isManuallyAssigned"`
}

// Assignment is the outcome of a sequencing cycle for one arrival.
type Assignment struct {
	Callsign      string
	ScheduledTime *time.Time // nil until the arrival is sequenced
	Status        Status
}

// Sequencer maintains the landing sequence for a runway system. It owns
// the sequence table and the set of arrivals that have entered the
// active advisory horizon; all access goes through its methods, which
// are safe for concurrent use. Readers get copies.
type Sequencer struct {
	mu      util.LoggingMutex
	lg      *log.Logger
	horizon time.Duration
	spacing float32 // minimum, nm

	places      map[string]Place
	inAAH       map[string]bool
	reinsertion map[string]bool
	// Most recent report of each arrival, used for wake category and
	// landing speed lookups.
	arrivals map[string]Arrival
}

func NewSequencer(horizon time.Duration, lg *log.Logger) *Sequencer {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	return &Sequencer{
		lg:          lg,
		horizon:     horizon,
		spacing:     DefaultMinimumSpacing,
		places:      make(map[string]Place),
		inAAH:       make(map[string]bool),
		reinsertion: make(map[string]bool),
		arrivals:    make(map[string]Arrival),
	}
}

// SetMinimumSpacing changes the minimum distance between successive
// arrivals and clears the sequence so that everything is placed again
// with it.
func (s *Sequencer) SetMinimumSpacing(nm float32) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	s.lg.Info("minimum spacing changed", slog.Float64("from", float64(s.spacing)), slog.Float64("to", float64(nm)))
	s.spacing = nm
	clear(s.places)
}

func (s *Sequencer) MinimumSpacing() float32 {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	return s.spacing
}

// safeLandingTime returns the earliest time the follower may land behind
// a leader landing at leaderTime. s.mu must be held.
func (s *Sequencer) safeLandingTime(leaderTime time.Time, leader, follower Arrival) time.Time {
	return leaderTime.Add(spacingTime(RequiredSpacing(leader, follower, s.spacing), follower))
}

var farFuture = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// UpdateSequence runs one sequencing cycle with the latest arrivals.
// Arrivals already in the sequence keep their place; others are added
// once they are within the horizon, behind the last sequenced aircraft
// and no earlier than their estimate. The whole sequence is then rebuilt
// to enforce separation. Assignments are returned in landing order, with
// arrivals awaiting sequencing last in estimated time order.
//
// An error is returned only if the rebuilt sequence is inconsistent.
func (s *Sequencer) UpdateSequence(arrivals []Arrival) ([]Assignment, error) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	for _, a := range arrivals {
		s.arrivals[a.Callsign] = a
	}

	sorted := slices.Clone(arrivals)
	slices.SortFunc(sorted, s.landingOrder)

	var leader *Arrival
	var leaderTime time.Time
	for i := range sorted {
		a := &sorted[i]

		if p, ok := s.places[a.Callsign]; ok {
			leader, leaderTime = a, p.ScheduledTime
		} else if a.RemainingTime < s.horizon || s.inAAH[a.Callsign] {
			t := a.EstimatedTime
			if leader != nil {
				t = later(t, s.safeLandingTime(leaderTime, *leader, *a))
			}
			s.inAAH[a.Callsign] = true
			s.places[a.Callsign] = Place{Callsign: a.Callsign, ScheduledTime: t}
			s.lg.Debug("sequenced arrival", slog.Any("arrival", *a), slog.Time("scheduled", t))

			leader, leaderTime = a, t
		}
	}

	if err := s.rebuild(); err != nil {
		return nil, err
	}

	slices.SortFunc(sorted, s.landingOrder)
	assignments := make([]Assignment, 0, len(sorted))
	for _, a := range sorted {
		asg := Assignment{Callsign: a.Callsign, Status: AwaitingForSequence}
		if p, ok := s.places[a.Callsign]; ok {
			t := p.ScheduledTime
			asg.ScheduledTime = &t
			asg.Status = OK
		}
		if s.reinsertion[a.Callsign] {
			asg.Status = ForManualReinsertion
		}
		assignments = append(assignments, asg)
	}

	return assignments, nil
}

// landingOrder orders arrivals by scheduled time, with unsequenced
// arrivals after all sequenced ones, then by estimated time.
func (s *Sequencer) landingOrder(a, b Arrival) int {
	ta, tb := farFuture, farFuture
	if p, ok := s.places[a.Callsign]; ok {
		ta = p.ScheduledTime
	}
	if p, ok := s.places[b.Callsign]; ok {
		tb = p.ScheduledTime
	}
	return cmp.Or(ta.Compare(tb), a.EstimatedTime.Compare(b.EstimatedTime),
		cmp.Compare(a.Callsign, b.Callsign))
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// rebuild re-sorts the sequence by stored time and tightens each entry
// so that it is no earlier than its stored time, its estimate, or the
// time separation requires behind the entry ahead of it. Entries whose
// leader is no longer known are only kept in order behind it. s.mu must
// be held.
func (s *Sequencer) rebuild() error {
	entries := make([]Place, 0, len(s.places))
	for _, p := range s.places {
		entries = append(entries, p)
	}
	slices.SortFunc(entries, func(a, b Place) int {
		return cmp.Or(a.ScheduledTime.Compare(b.ScheduledTime),
			s.estimate(a).Compare(s.estimate(b)),
			cmp.Compare(a.Callsign, b.Callsign))
	})

	for i := range entries {
		e := &entries[i]
		t := e.ScheduledTime
		follower, known := s.arrivals[e.Callsign]
		if known {
			t = later(t, follower.EstimatedTime)
		} else {
			follower = Arrival{Callsign: e.Callsign}
		}

		if i > 0 {
			prev := entries[i-1]
			t = later(t, prev.ScheduledTime)
			if leader, ok := s.arrivals[prev.Callsign]; ok {
				t = later(t, s.safeLandingTime(prev.ScheduledTime, leader, follower))
			} else {
				s.lg.Warn("sequence leader not found; no separation applied",
					slog.String("leader", prev.Callsign), slog.String("follower", e.Callsign))
			}
		}

		if !t.Equal(e.ScheduledTime) {
			s.lg.Debug("rebuild moved arrival", slog.String("callsign", e.Callsign),
				slog.Time("from", e.ScheduledTime), slog.Time("to", t))
		}
		e.ScheduledTime = t
		s.places[e.Callsign] = *e
	}

	for i := 1; i < len(entries); i++ {
		if entries[i].ScheduledTime.Before(entries[i-1].ScheduledTime) {
			return fmt.Errorf("%s scheduled at %s before %s at %s: %w",
				entries[i].Callsign, entries[i].ScheduledTime.Format(time.TimeOnly),
				entries[i-1].Callsign, entries[i-1].ScheduledTime.Format(time.TimeOnly), ErrInconsistentSequence)
		}
	}
	return nil
}

func (s *Sequencer) estimate(p Place) time.Time {
	if a, ok := s.arrivals[p.Callsign]; ok {
		return a.EstimatedTime
	}
	return p.ScheduledTime
}

///////////////////////////////////////////////////////////////////////////
// Manual operations

// SuggestScheduledTime sets the arrival's scheduled time and rebuilds the
// sequence, which may move the arrival itself and those behind it later.
// The arrival is considered to be within the horizon from then on.
func (s *Sequencer) SuggestScheduledTime(callsign string, t time.Time) error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	s.places[callsign] = Place{Callsign: callsign, ScheduledTime: t, IsManuallyAssigned: true}
	s.inAAH[callsign] = true
	s.lg.Info("manual scheduled time", slog.String("callsign", callsign), slog.Time("time", t))

	return s.rebuild()
}

// IsTimeSlotAvailable reports whether the arrival could land at t given
// only the sequenced aircraft immediately ahead of t; aircraft after t
// aren't considered. The arrival's own place is never its leader.
func (s *Sequencer) IsTimeSlotAvailable(callsign string, t time.Time) bool {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	var leader *Place
	for cs, p := range s.places {
		if cs == callsign || p.ScheduledTime.After(t) {
			continue
		}
		if leader == nil || p.ScheduledTime.After(leader.ScheduledTime) ||
			(p.ScheduledTime.Equal(leader.ScheduledTime) && p.Callsign > leader.Callsign) {
			leader = &p
		}
	}
	if leader == nil {
		return true
	}

	la, ok := s.arrivals[leader.Callsign]
	if !ok {
		s.lg.Warn("time slot leader not found", slog.String("leader", leader.Callsign))
		return true
	}

	follower, ok := s.arrivals[callsign]
	if !ok {
		follower = Arrival{Callsign: callsign}
	}
	return !t.Before(s.safeLandingTime(leader.ScheduledTime, la, follower))
}

// ReSchedule drops the given arrivals' places, or the whole sequence if
// none are given; they are placed again on the next cycle.
func (s *Sequencer) ReSchedule(callsigns ...string) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	if len(callsigns) == 0 {
		s.lg.Info("clearing sequence", slog.Int("entries", len(s.places)))
		clear(s.places)
		return
	}
	for _, cs := range callsigns {
		s.lg.Debugf("%s: rescheduling", cs)
		delete(s.places, cs)
	}
}

// RemoveFromSequence drops everything the sequencer knows about the
// callsign so that it is treated as new if it is reported again.
func (s *Sequencer) RemoveFromSequence(callsign string) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	delete(s.places, callsign)
	delete(s.inAAH, callsign)
	delete(s.reinsertion, callsign)
	delete(s.arrivals, callsign)
}

// SetManualReinsertion sets or clears the flag that reports the arrival
// as awaiting manual reinsertion. The scheduled time, if any, is kept.
func (s *Sequencer) SetManualReinsertion(callsign string, reinsert bool) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	if reinsert {
		s.reinsertion[callsign] = true
	} else {
		delete(s.reinsertion, callsign)
	}
}

///////////////////////////////////////////////////////////////////////////
// Snapshots

// Places returns a copy of the sequence in landing order.
func (s *Sequencer) Places() []Place {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	places := make([]Place, 0, len(s.places))
	for _, p := range s.places {
		places = append(places, p)
	}
	slices.SortFunc(places, func(a, b Place) int {
		return cmp.Or(a.ScheduledTime.Compare(b.ScheduledTime), cmp.Compare(a.Callsign, b.Callsign))
	})
	return places
}

func (s *Sequencer) Place(callsign string) (Place, bool) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	p, ok := s.places[callsign]
	return p, ok
}

func (s *Sequencer) InAAH(callsign string) bool {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	return s.inAAH[callsign]
}

// Callsigns returns all callsigns the sequencer is tracking in any way.
func (s *Sequencer) Callsigns() []string {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	m := make(map[string]bool)
	for cs := range s.places {
		m[cs] = true
	}
	for cs := range s.inAAH {
		m[cs] = true
	}
	for cs := range s.arrivals {
		m[cs] = true
	}
	return util.SortedMapKeys(m)
}
