// aman/manager.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aman

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vice-aman/aman/aviation"
	"github.com/vice-aman/aman/feed"
	"github.com/vice-aman/aman/log"
	"github.com/vice-aman/aman/sequence"
	"github.com/vice-aman/aman/trajectory"
	"github.com/vice-aman/aman/util"
	"github.com/vice-aman/aman/wx"

	"github.com/brunoga/deep"
	"github.com/goforj/godump"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultInterval  = time.Second
	DefaultFreshness = 30 * time.Second

	// How long to wait before complaining again about an aircraft type
	// that isn't in the database.
	unknownTypeReportInterval = time.Hour
)

type Config struct {
	// Airport limits the manager to one airport's traffic; all reported
	// traffic is handled if it is empty.
	Airport string
	// Horizon is the active advisory horizon.
	Horizon time.Duration
	// Callsigns that haven't been reported for longer than Freshness are
	// removed from the sequence. This applies to every callsign at once if
	// the feed stops, so an outage longer than Freshness clears the whole
	// sequence, manually assigned places included.
	Freshness time.Duration
	// MinimumSpacing is the least distance between successive arrivals,
	// nm; sequence.DefaultMinimumSpacing if zero.
	MinimumSpacing float32
	// Workers bounds the number of concurrent trajectory predictions.
	Workers int
}

// Manager runs the arrival manager cycle: it takes the latest feed
// snapshot, predicts a trajectory for each arrival, updates the landing
// sequence and publishes a new timeline.
type Manager struct {
	lg      *log.Logger
	config  Config
	db      atomic.Pointer[aviation.Database]
	feed    *feed.Store
	weather *wx.Store
	seq     *sequence.Sequencer

	// Held for the duration of a cycle.
	cycleMu       sync.Mutex
	reportedTypes *util.TransientMap[string, bool]

	mu       util.LoggingMutex
	timeline Timeline
	// Runways assigned by hand that the feed doesn't report yet.
	runways  map[string]string
}

func NewManager(config Config, db *aviation.Database, fs *feed.Store, weather *wx.Store, lg *log.Logger) *Manager {
	if config.Freshness <= 0 {
		config.Freshness = DefaultFreshness
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.MinimumSpacing <= 0 {
		config.MinimumSpacing = sequence.DefaultMinimumSpacing
	}
	if weather == nil {
		weather = wx.NewStore(16, wx.DefaultProfileTTL)
	}
	if fs == nil {
		fs = feed.NewStore(weather, lg)
	}

	m := &Manager{
		lg:            lg,
		config:        config,
		feed:          fs,
		weather:       weather,
		seq:           sequence.NewSequencer(config.Horizon, lg),
		reportedTypes: util.NewTransientMap[string, bool](),
		timeline:      Timeline{Airport: config.Airport},
		runways:       make(map[string]string),
	}
	if config.MinimumSpacing != sequence.DefaultMinimumSpacing {
		m.seq.SetMinimumSpacing(config.MinimumSpacing)
	}
	m.db.Store(db)
	return m
}

// SetDatabase replaces the reference data; the next cycle uses it.
func (m *Manager) SetDatabase(db *aviation.Database) {
	m.db.Store(db)
	if db != nil {
		m.lg.Info("reference database replaced", slog.Int("airports", len(db.Airports)),
			slog.Int("aircraft", len(db.AircraftPerformance)))
	}
}

func (m *Manager) Database() *aviation.Database {
	return m.db.Load()
}

func (m *Manager) Feed() *feed.Store {
	return m.feed
}

// Timeline returns a copy of the most recent timeline.
func (m *Manager) Timeline() Timeline {
	m.mu.Lock(m.lg)
	defer m.mu.Unlock(m.lg)

	return deep.MustCopy(m.timeline)
}

// Sequence returns the landing sequence.
func (m *Manager) Sequence() []sequence.Place {
	return m.seq.Places()
}

// Run calls Update at the given interval until ctx is canceled or a
// cycle fails. If cycle is non-nil, it is called with each new timeline.
func (m *Manager) Run(ctx context.Context, interval time.Duration, cycle func(Timeline)) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := m.Update(now); err != nil {
				return err
			}
			if cycle != nil {
				cycle(m.Timeline())
			}
		}
	}
}

type prediction struct {
	ac          aviation.ArrivalCandidate
	perf        aviation.AircraftPerformance
	traj        trajectory.Trajectory
	ok          bool
	unknownType bool
	// Set when ok is false.
	reason *NonSequencedReason
}

func (p prediction) wakeCategory() aviation.WakeCategory {
	return util.Select(p.ac.WakeCategory != "", p.ac.WakeCategory, p.perf.WakeCategory)
}

func (p prediction) pastEndOfRoute() bool {
	return p.reason != nil && *p.reason == EmptyRoute
}

func (p prediction) fail(reason NonSequencedReason, err error) (prediction, error) {
	p.ok, p.reason = false, &reason
	return p, fmt.Errorf("%w: %w", ErrNoPrediction, err)
}

// Update runs a single cycle at time now. Failures for individual
// arrivals are logged and only affect those arrivals; an error is
// returned only if the landing sequence became inconsistent.
func (m *Manager) Update(now time.Time) error {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	snap := m.feed.Snapshot()
	db := m.db.Load()

	lastSeen := m.feed.LastSeen()
	for _, cs := range feed.StaleCallsigns(lastSeen, now, m.config.Freshness) {
		m.lg.Info("removing stale callsign", slog.String("callsign", cs))
		m.seq.RemoveFromSequence(cs)
		m.feed.Forget(cs)
		delete(lastSeen, cs)
	}
	// The snapshot may still hold callsigns that were swept, either now
	// or in an earlier cycle, if no newer message has arrived.
	current := func(callsign string) bool {
		_, ok := lastSeen[callsign]
		return ok
	}

	candidates := util.FilterSlice(snap.AirportArrivals(m.config.Airport),
		func(ac aviation.ArrivalCandidate) bool { return current(ac.Callsign) })
	m.applyRunwayAssignments(candidates)
	preds := m.predictAll(candidates, db)

	var arrivals []sequence.Arrival
	for _, p := range preds {
		if p.unknownType {
			if _, ok := m.reportedTypes.Get(p.ac.AircraftType, now); !ok {
				m.lg.Warn("unknown aircraft type; using generic performance",
					slog.String("type", p.ac.AircraftType), slog.String("callsign", p.ac.Callsign),
					slog.Any("performance", p.perf))
				m.reportedTypes.Add(p.ac.AircraftType, true, now, unknownTypeReportInterval)
			}
		}
		if !p.ok {
			if p.pastEndOfRoute() {
				// Landed or missed; its slot is free.
				m.seq.RemoveFromSequence(p.ac.Callsign)
			}
			continue
		}
		arrivals = append(arrivals, sequence.Arrival{
			Callsign:      p.ac.Callsign,
			EstimatedTime: now.Add(p.traj.RemainingTime),
			RemainingTime: p.traj.RemainingTime,
			WakeCategory:  p.wakeCategory(),
			LandingSpeed:  p.perf.LandingSpeed(),
			Runway:        p.ac.Runway,
		})
	}

	assignments, err := m.seq.UpdateSequence(arrivals)
	if err != nil {
		m.lg.Error("sequence update failed", slog.Any("error", err))
		return err
	}

	departures := util.FilterSlice(snap.AirportDepartures(m.config.Airport),
		func(dep aviation.Departure) bool { return current(dep.Callsign) })
	tl := m.makeTimeline(now, snap, preds, assignments, departures)

	m.mu.Lock(m.lg)
	m.timeline = tl
	m.mu.Unlock(m.lg)

	m.lg.Debug("cycle complete", slog.Any("timeline", tl), slog.Int("sequenced", len(m.seq.Places())))
	return nil
}

// applyRunwayAssignments replaces the reported runway of arrivals that
// were given one by hand. Assignments are dropped once the feed reports
// them or the arrival is gone.
func (m *Manager) applyRunwayAssignments(candidates []aviation.ArrivalCandidate) {
	m.mu.Lock(m.lg)
	defer m.mu.Unlock(m.lg)

	seen := make(map[string]bool, len(candidates))
	for i := range candidates {
		ac := &candidates[i]
		seen[ac.Callsign] = true
		if rwy, ok := m.runways[ac.Callsign]; ok {
			if rwy == ac.Runway {
				m.lg.Debugf("%s: feed reports assigned runway %s", ac.Callsign, rwy)
				delete(m.runways, ac.Callsign)
			} else {
				ac.Runway = rwy
			}
		}
	}
	for cs := range m.runways {
		if !seen[cs] {
			delete(m.runways, cs)
		}
	}
}

// predictAll runs the trajectory predictions concurrently. A panic
// during one prediction is reported and leaves that arrival without a
// prediction, as an UnknownError.
func (m *Manager) predictAll(candidates []aviation.ArrivalCandidate, db *aviation.Database) []prediction {
	preds := make([]prediction, len(candidates))

	var g errgroup.Group
	g.SetLimit(m.config.Workers)
	for i, ac := range candidates {
		unknown := UnknownError
		preds[i] = prediction{ac: ac, reason: &unknown}
		g.Go(func() error {
			defer m.lg.CatchAndReportCrash()

			p, err := m.predict(ac, db)
			if errors.Is(err, trajectory.ErrEndOfRoute) {
				m.lg.Debug("arrival past the end of its route", slog.String("callsign", ac.Callsign))
			} else if err != nil {
				m.lg.Warn("unable to predict trajectory", slog.Any("arrival", ac), slog.Any("error", err))
			}
			preds[i] = p
			return nil
		})
	}
	_ = g.Wait()

	return preds
}

func (m *Manager) predict(ac aviation.ArrivalCandidate, db *aviation.Database) (prediction, error) {
	p := prediction{ac: ac}

	var err error
	p.perf, err = db.LookupPerformance(ac.AircraftType, ac.WakeCategory)
	p.unknownType = errors.Is(err, aviation.ErrUnknownAircraftType)
	if p.unknownType && ac.WakeCategory == "" {
		// Nothing to pick a generic profile or a separation with.
		return p.fail(MissingPerformanceData, err)
	}

	if ac.Runway == "" {
		return p.fail(NoAssignedRunway, fmt.Errorf("%s: %w", ac.Callsign, ErrNoAssignedRunway))
	}
	rwy, err := db.LookupRunway(ac.Airport, ac.Runway)
	if err != nil {
		return p.fail(UnknownError, err)
	}

	params := trajectory.Params{
		Aircraft:    ac,
		Runway:      rwy,
		Performance: p.perf,
		Weather:     m.weather.Profile(ac.Airport),
	}
	if ac.Star != nil {
		if star, err := db.LookupStar(ac.Airport, ac.Runway, *ac.Star); err != nil {
			m.lg.Warn("STAR not found", slog.String("callsign", ac.Callsign), slog.Any("error", err))
		} else {
			params.Star = &star
		}
	}

	p.traj, err = trajectory.Predict(params, m.lg)
	if errors.Is(err, trajectory.ErrEndOfRoute) {
		return p.fail(EmptyRoute, err)
	} else if err != nil {
		m.lg.Warn("using straight-line estimate", slog.String("callsign", ac.Callsign), slog.Any("error", err))
		m.lg.Debug("arrival", slog.String("dump", godump.DumpStr(ac)))
		p.traj = trajectory.StraightLine(params, m.lg)
	}
	p.ok = true

	return p, nil
}

func (m *Manager) makeTimeline(now time.Time, snap feed.Snapshot, preds []prediction,
	assignments []sequence.Assignment, departures []aviation.Departure) Timeline {
	tl := Timeline{
		Airport:     m.config.Airport,
		Time:        now,
		FeedVersion: snap.Version,
	}

	byCallsign := make(map[string]prediction)
	for _, p := range preds {
		byCallsign[p.ac.Callsign] = p
	}

	var prev *ArrivalEvent
	for _, asg := range assignments {
		p := byCallsign[asg.Callsign]
		eta := now.Add(p.traj.RemainingTime)
		traj := p.traj

		ev := newArrivalEvent(p)
		ev.Status = asg.Status
		ev.ScheduledTime = asg.ScheduledTime
		ev.EstimatedTime = &eta
		ev.Trajectory = &traj

		if ev.ScheduledTime != nil {
			if prev != nil {
				ev.Preceding = &Preceding{
					Callsign: prev.Callsign,
					Distance: traj.RemainingDistance - prev.Trajectory.RemainingDistance,
					Time:     ev.ScheduledTime.Sub(*prev.ScheduledTime),
				}
			}
			prev = &ev
		}

		tl.Arrivals = append(tl.Arrivals, ev)
	}

	// Arrivals without a prediction can only be placed by hand. They
	// keep any time they were already given.
	for _, p := range preds {
		if p.ok {
			continue
		}
		ev := newArrivalEvent(p)
		ev.Status = sequence.ForManualReinsertion
		ev.NonSequencedReason = p.reason
		if place, ok := m.seq.Place(p.ac.Callsign); ok {
			t := place.ScheduledTime
			ev.ScheduledTime = &t
		}
		tl.Arrivals = append(tl.Arrivals, ev)
	}

	for _, dep := range departures {
		tl.Departures = append(tl.Departures, DepartureEvent{
			Callsign:      dep.Callsign,
			AircraftType:  dep.AircraftType,
			Airport:       dep.Airport,
			Runway:        dep.Runway,
			WakeCategory:  dep.WakeCategory,
			Status:        sequence.OK,
			ScheduledTime: dep.EstimatedTime,
			EstimatedTime: dep.EstimatedTime,
		})
	}
	slices.SortStableFunc(tl.Departures, func(a, b DepartureEvent) int {
		return a.ScheduledTime.Compare(b.ScheduledTime)
	})

	if m.config.Airport != "" {
		if rs, ok := snap.RunwayStatuses[m.config.Airport]; ok {
			tl.RunwayStatus = &rs
		}
	}

	return tl
}

func newArrivalEvent(p prediction) ArrivalEvent {
	return ArrivalEvent{
		Callsign:           p.ac.Callsign,
		AircraftType:       p.ac.AircraftType,
		Airport:            p.ac.Airport,
		Runway:             p.ac.Runway,
		WakeCategory:       p.wakeCategory(),
		TrackingController: p.ac.TrackingController,
		Scratchpad:         p.ac.Scratchpad,
	}
}

///////////////////////////////////////////////////////////////////////////
// Manual operations

func (m *Manager) known(callsign string) bool {
	if _, ok := m.feed.LastSeen()[callsign]; ok {
		return true
	}
	_, ok := m.seq.Place(callsign)
	return ok
}

// SuggestScheduledTime gives the arrival a scheduled time; aircraft
// behind it are moved later as needed.
func (m *Manager) SuggestScheduledTime(callsign string, t time.Time) error {
	if !m.known(callsign) {
		return fmt.Errorf("%s: %w", callsign, ErrUnknownCallsign)
	}
	return m.seq.SuggestScheduledTime(callsign, t)
}

// AssignRunway has the arrival planned to the given runway until the feed
// reports it there.
func (m *Manager) AssignRunway(callsign, runway string) error {
	if !m.known(callsign) {
		return fmt.Errorf("%s: %w", callsign, ErrUnknownCallsign)
	}

	m.mu.Lock(m.lg)
	defer m.mu.Unlock(m.lg)

	m.lg.Info("runway assigned", slog.String("callsign", callsign), slog.String("runway", runway))
	m.runways[callsign] = runway
	return nil
}

// SuggestScheduledTimeOnRunway assigns the runway and then the scheduled
// time.
func (m *Manager) SuggestScheduledTimeOnRunway(callsign string, t time.Time, runway string) error {
	if err := m.AssignRunway(callsign, runway); err != nil {
		return err
	}
	return m.SuggestScheduledTime(callsign, t)
}

func (m *Manager) IsTimeSlotAvailable(callsign string, t time.Time) bool {
	return m.seq.IsTimeSlotAvailable(callsign, t)
}

// ReSchedule drops the given arrivals from the landing sequence, or all
// of them if none are given; they are placed again on the next cycle.
func (m *Manager) ReSchedule(callsigns ...string) {
	m.seq.ReSchedule(callsigns...)
}

// SetMinimumSpacing changes the least distance between successive
// arrivals, in nm. The sequence is rebuilt from scratch on the next
// cycle.
func (m *Manager) SetMinimumSpacing(nm float32) {
	m.seq.SetMinimumSpacing(nm)
}

func (m *Manager) MinimumSpacing() float32 {
	return m.seq.MinimumSpacing()
}

func (m *Manager) RemoveFromSequence(callsign string) {
	m.seq.RemoveFromSequence(callsign)
}

func (m *Manager) SetManualReinsertion(callsign string, reinsert bool) error {
	if !m.known(callsign) {
		return fmt.Errorf("%s: %w", callsign, ErrUnknownCallsign)
	}
	m.seq.SetManualReinsertion(callsign, reinsert)
	return nil
}
