// aman/manager_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aman

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vice-aman/aman/aviation"
	"github.com/vice-aman/aman/feed"
	"github.com/vice-aman/aman/math"
	"github.com/vice-aman/aman/sequence"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func north(nm float32) math.Point2LL {
	return math.Point2LL{0, nm / (math.EarthRadiusNM * 3.14159265 / 180)}
}

func testDatabase() *aviation.Database {
	a320 := aviation.DefaultPerformance(aviation.WakeMedium)
	a320.ICAO, a320.Name = "A320", "Airbus A320"

	return &aviation.Database{
		Airports: map[string]aviation.Airport{
			"TEST": {
				ICAO:      "TEST",
				Location:  north(0),
				Elevation: 100,
				Runways: map[string]aviation.Runway{
					"36":  {Id: "36", Threshold: north(0), Heading: 360, Elevation: 100},
					"36R": {Id: "36R", Threshold: north(0), Heading: 360, Elevation: 100},
				},
				Stars: []aviation.Star{{
					Name:    "TEST1",
					Airport: "TEST",
					Runway:  "36",
					Fixes: []aviation.StarFix{
						{Id: "ALPHA", Position: north(60), Altitude: &aviation.AltitudeRestriction{Range: [2]float32{9000, 11000}}},
						{Id: "CHARL", Position: north(20), Altitude: &aviation.AltitudeRestriction{Range: [2]float32{5000, 5000}}},
					},
				}},
			},
		},
		AircraftPerformance: map[string]aviation.AircraftPerformance{"A320": a320},
	}
}

func candidate(callsign string, nm, alt float32) aviation.ArrivalCandidate {
	return aviation.ArrivalCandidate{
		Callsign:     callsign,
		AircraftType: "A320",
		WakeCategory: aviation.WakeMedium,
		Position:     north(nm),
		Altitude:     alt,
		GroundSpeed:  250,
		Track:        180,
		Airport:      "TEST",
		Runway:       "36",
	}
}

func newTestManager(t *testing.T, db *aviation.Database) *Manager {
	t.Helper()
	return NewManager(Config{Airport: "TEST", Workers: 2}, db, nil, nil, nil)
}

func report(m *Manager, now time.Time, arrivals ...aviation.ArrivalCandidate) {
	m.Feed().Apply(feed.ArrivalsMessage{Airport: "TEST", Time: now, Arrivals: arrivals}, now)
}

func update(t *testing.T, m *Manager, now time.Time) Timeline {
	t.Helper()
	if err := m.Update(now); err != nil {
		t.Fatalf("Update: %v", err)
	}
	return m.Timeline()
}

func arrivalEvent(t *testing.T, tl Timeline, callsign string) ArrivalEvent {
	t.Helper()
	ev, ok := tl.Arrival(callsign)
	if !ok {
		t.Fatalf("%s: not in timeline", callsign)
	}
	return ev
}

func TestUpdateSequencesArrivals(t *testing.T) {
	m := newTestManager(t, testDatabase())
	report(m, t0, candidate("FAR1", 400, 16000), candidate("NEAR2", 32, 8000), candidate("NEAR1", 30, 8000))

	tl := update(t, m, t0)
	if len(tl.Arrivals) != 3 {
		t.Fatalf("timeline has %d arrivals, want 3", len(tl.Arrivals))
	}
	if tl.Arrivals[0].Callsign != "NEAR1" || tl.Arrivals[1].Callsign != "NEAR2" || tl.Arrivals[2].Callsign != "FAR1" {
		t.Errorf("order %s %s %s, want NEAR1 NEAR2 FAR1", tl.Arrivals[0].Callsign,
			tl.Arrivals[1].Callsign, tl.Arrivals[2].Callsign)
	}

	n1, n2, far := tl.Arrivals[0], tl.Arrivals[1], tl.Arrivals[2]
	for _, ev := range []ArrivalEvent{n1, n2} {
		if ev.Status != sequence.OK || ev.ScheduledTime == nil || ev.EstimatedTime == nil || ev.Trajectory == nil {
			t.Fatalf("%s: %+v, want sequenced", ev.Callsign, ev)
		}
		if ev.ScheduledTime.Before(*ev.EstimatedTime) {
			t.Errorf("%s scheduled before its estimate", ev.Callsign)
		}
		if ev.Trajectory.Degraded {
			t.Errorf("%s: unexpected straight-line estimate", ev.Callsign)
		}
	}
	if !n1.ScheduledTime.Equal(*n1.EstimatedTime) {
		t.Errorf("leader scheduled at %s, want its estimate %s", n1.ScheduledTime, n1.EstimatedTime)
	}

	if n1.Preceding != nil {
		t.Errorf("leader has preceding aircraft %+v", n1.Preceding)
	}
	if n2.Preceding == nil || n2.Preceding.Callsign != "NEAR1" {
		t.Fatalf("NEAR2 preceding = %+v", n2.Preceding)
	}
	sep := sequence.SeparationTime(aviation.WakeMedium, sequence.Arrival{WakeCategory: aviation.WakeMedium, LandingSpeed: 140})
	if n2.Preceding.Time < sep {
		t.Errorf("NEAR2 %s behind NEAR1, need %s", n2.Preceding.Time, sep)
	}
	if d := n2.Preceding.Distance; d < 1.9 || d > 2.1 {
		t.Errorf("NEAR2 %.2fnm behind NEAR1, want 2", d)
	}

	if far.Status != sequence.AwaitingForSequence || far.ScheduledTime != nil || far.EstimatedTime == nil {
		t.Errorf("FAR1: %+v, want awaiting with an estimate", far)
	}
	if far.Trajectory.RemainingTime < sequence.DefaultHorizon {
		t.Errorf("FAR1 remaining time %s inside the horizon", far.Trajectory.RemainingTime)
	}
}

func TestMissingStarFixFallsBack(t *testing.T) {
	m := newTestManager(t, testDatabase())
	ac := candidate("DAL7", 50, 10000)
	star := "TEST1"
	ac.Star = &star
	ac.Route = []aviation.RoutePoint{
		{Id: "ZULU", Position: north(40), OnStar: true},
		{Id: "CHARL", Position: north(20), OnStar: true},
	}
	report(m, t0, ac)

	ev := arrivalEvent(t, update(t, m, t0), "DAL7")
	if ev.Trajectory == nil || !ev.Trajectory.Degraded {
		t.Fatalf("trajectory %+v, want straight-line estimate", ev.Trajectory)
	}
	if ev.Status != sequence.OK || ev.ScheduledTime == nil {
		t.Errorf("DAL7 not sequenced: %+v", ev)
	}
}

func TestNoPrediction(t *testing.T) {
	m := newTestManager(t, testDatabase())
	ac := candidate("UAL3", 20, 5000)
	ac.Runway = "99"
	report(m, t0, ac, candidate("OK1", 20, 5000))

	tl := update(t, m, t0)
	ev := arrivalEvent(t, tl, "UAL3")
	if ev.Status != sequence.ForManualReinsertion || ev.EstimatedTime != nil || ev.Trajectory != nil || ev.ScheduledTime != nil {
		t.Errorf("UAL3: %+v, want manual reinsertion without prediction", ev)
	}
	if _, ok := m.seq.Place("UAL3"); ok {
		t.Errorf("UAL3 sequenced without a prediction")
	}
	if ev.NonSequencedReason == nil || *ev.NonSequencedReason != UnknownError {
		t.Errorf("UAL3 reason = %v, want UNKNOWN_ERROR", ev.NonSequencedReason)
	}
	if ev := arrivalEvent(t, tl, "OK1"); ev.Status != sequence.OK {
		t.Errorf("other arrival affected: %+v", ev)
	}
}

func TestNonSequencedReasons(t *testing.T) {
	m := newTestManager(t, testDatabase())
	report(m, t0, candidate("LND1", 10, 3000))
	update(t, m, t0)
	if _, ok := m.seq.Place("LND1"); !ok {
		t.Fatalf("LND1 not sequenced")
	}

	noRunway := candidate("NRW2", 25, 7000)
	noRunway.Runway = ""
	noPerf := candidate("NPF3", 25, 7000)
	noPerf.AircraftType, noPerf.WakeCategory = "ZZZZ", ""
	landed := candidate("LND1", -2, 200)
	badRunway := candidate("BRW4", 25, 7000)
	badRunway.Runway = "18"
	now := t0.Add(5 * time.Minute)
	report(m, now, noRunway, noPerf, landed, badRunway, candidate("OK5", 20, 5000))

	tl := update(t, m, now)
	for cs, want := range map[string]NonSequencedReason{
		"NRW2": NoAssignedRunway,
		"NPF3": MissingPerformanceData,
		"LND1": EmptyRoute,
		"BRW4": UnknownError,
	} {
		ev := arrivalEvent(t, tl, cs)
		if ev.NonSequencedReason == nil || *ev.NonSequencedReason != want {
			t.Errorf("%s: reason %v, want %s", cs, ev.NonSequencedReason, want)
		}
		if ev.Trajectory != nil || ev.EstimatedTime != nil {
			t.Errorf("%s: has a prediction", cs)
		}
	}
	if ev := arrivalEvent(t, tl, "OK5"); ev.NonSequencedReason != nil || ev.Status != sequence.OK {
		t.Errorf("OK5: %+v", ev)
	}
	if ns := tl.NonSequenced(); len(ns) != 4 {
		t.Errorf("%d non-sequenced arrivals, want 4", len(ns))
	}

	// The landed aircraft's slot is released.
	if _, ok := m.seq.Place("LND1"); ok {
		t.Errorf("LND1 still sequenced after passing the threshold")
	}
	if ev := arrivalEvent(t, tl, "LND1"); ev.ScheduledTime != nil {
		t.Errorf("LND1 kept scheduled time %s", ev.ScheduledTime)
	}
}

func TestMinimumSpacing(t *testing.T) {
	m := NewManager(Config{Airport: "TEST", MinimumSpacing: 5}, testDatabase(), nil, nil, nil)
	if m.MinimumSpacing() != 5 {
		t.Fatalf("minimum spacing %v, want 5", m.MinimumSpacing())
	}
	report(m, t0, candidate("SP1", 30, 8000), candidate("SP2", 31, 8000))

	ev := arrivalEvent(t, update(t, m, t0), "SP2")
	// 5nm at 140 knots.
	spacing, speed := 5.0, 140.0
	want := time.Duration(spacing / speed * float64(time.Hour))
	if ev.Preceding == nil || ev.Preceding.Time < want-time.Millisecond {
		t.Errorf("SP2 preceding = %+v, want at least %s", ev.Preceding, want)
	}

	m.SetMinimumSpacing(3)
	if seq := m.Sequence(); len(seq) != 0 {
		t.Errorf("sequence kept after spacing change: %+v", seq)
	}
	ev = arrivalEvent(t, update(t, m, t0.Add(time.Second)), "SP2")
	if ev.Preceding == nil || ev.Preceding.Time >= want-time.Millisecond {
		t.Errorf("SP2 preceding = %+v after reducing the spacing", ev.Preceding)
	}
}

func TestUnknownAircraftType(t *testing.T) {
	m := newTestManager(t, testDatabase())
	ac := candidate("BAW1", 25, 7000)
	ac.AircraftType, ac.WakeCategory = "B748", aviation.WakeHeavy
	report(m, t0, ac)

	ev := arrivalEvent(t, update(t, m, t0), "BAW1")
	if ev.Status != sequence.OK || ev.WakeCategory != aviation.WakeHeavy {
		t.Errorf("BAW1: %+v", ev)
	}
	if _, ok := m.reportedTypes.Get("B748", t0); !ok {
		t.Errorf("unknown type not recorded")
	}

	// Wake category comes from the performance data when it isn't
	// reported.
	ac2 := candidate("AAL2", 30, 8000)
	ac2.WakeCategory = ""
	report(m, t0, ac, ac2)
	if ev := arrivalEvent(t, update(t, m, t0), "AAL2"); ev.WakeCategory != aviation.WakeMedium {
		t.Errorf("AAL2 wake = %q, want M", ev.WakeCategory)
	}
}

func TestStaleSweep(t *testing.T) {
	m := newTestManager(t, testDatabase())
	report(m, t0, candidate("JBU5", 30, 8000))
	update(t, m, t0)
	if _, ok := m.seq.Place("JBU5"); !ok {
		t.Fatalf("JBU5 not sequenced")
	}

	// Still fresh.
	if tl := update(t, m, t0.Add(DefaultFreshness)); len(tl.Arrivals) != 1 {
		t.Errorf("JBU5 dropped before it went stale")
	}

	tl := update(t, m, t0.Add(DefaultFreshness+time.Second))
	if len(tl.Arrivals) != 0 {
		t.Errorf("stale arrival still on the timeline")
	}
	if _, ok := m.seq.Place("JBU5"); ok || m.seq.InAAH("JBU5") {
		t.Errorf("stale arrival still sequenced")
	}

	// And it stays gone until it's reported again.
	if tl := update(t, m, t0.Add(time.Minute)); len(tl.Arrivals) != 0 {
		t.Errorf("swept arrival came back from an old snapshot")
	}
	report(m, t0.Add(2*time.Minute), candidate("JBU5", 25, 7000))
	if ev := arrivalEvent(t, update(t, m, t0.Add(2*time.Minute)), "JBU5"); ev.Status != sequence.OK {
		t.Errorf("reported again: %+v", ev)
	}
}

func TestManualOperations(t *testing.T) {
	m := newTestManager(t, testDatabase())
	report(m, t0, candidate("A1", 20, 5000), candidate("B2", 40, 10000))
	tl := update(t, m, t0)

	if err := m.SuggestScheduledTime("NOPE", t0); !errors.Is(err, ErrUnknownCallsign) {
		t.Errorf("SuggestScheduledTime(NOPE) = %v, want ErrUnknownCallsign", err)
	}
	if err := m.SetManualReinsertion("NOPE", true); !errors.Is(err, ErrUnknownCallsign) {
		t.Errorf("SetManualReinsertion(NOPE) = %v, want ErrUnknownCallsign", err)
	}

	b := arrivalEvent(t, tl, "B2")
	later := b.ScheduledTime.Add(10 * time.Minute)
	if err := m.SuggestScheduledTime("A1", later); err != nil {
		t.Fatal(err)
	}
	if !m.IsTimeSlotAvailable("B2", *b.ScheduledTime) {
		t.Errorf("B2's own slot reported unavailable")
	}

	tl = update(t, m, t0.Add(time.Second))
	a := arrivalEvent(t, tl, "A1")
	if a.ScheduledTime == nil || a.ScheduledTime.Before(later) {
		t.Errorf("A1 scheduled at %v, want at least %s", a.ScheduledTime, later)
	}
	if tl.Arrivals[0].Callsign != "B2" {
		t.Errorf("B2 not first after A1 was moved")
	}
	if seq := m.Sequence(); len(seq) != 2 || !seq[1].IsManuallyAssigned {
		t.Errorf("sequence = %+v", seq)
	}

	if err := m.SetManualReinsertion("B2", true); err != nil {
		t.Fatal(err)
	}
	tl = update(t, m, t0.Add(2*time.Second))
	if b := arrivalEvent(t, tl, "B2"); b.Status != sequence.ForManualReinsertion || b.ScheduledTime == nil {
		t.Errorf("B2: %+v, want manual reinsertion keeping its time", b)
	}

	m.ReSchedule("B2")
	if seq := m.Sequence(); len(seq) != 1 || seq[0].Callsign != "A1" {
		t.Errorf("sequence after rescheduling B2 = %+v", seq)
	}

	m.ReSchedule()
	if seq := m.Sequence(); len(seq) != 0 {
		t.Errorf("sequence after ReSchedule = %+v", seq)
	}
	tl = update(t, m, t0.Add(3*time.Second))
	if a := arrivalEvent(t, tl, "A1"); a.ScheduledTime == nil || !a.ScheduledTime.Before(later) {
		t.Errorf("A1 kept its manual time after ReSchedule: %v", a.ScheduledTime)
	}

	m.RemoveFromSequence("A1")
	if _, ok := m.seq.Place("A1"); ok {
		t.Errorf("A1 still sequenced after removal")
	}
}

func TestAssignRunway(t *testing.T) {
	m := newTestManager(t, testDatabase())
	report(m, t0, candidate("RWY1", 20, 5000))
	update(t, m, t0)

	if err := m.AssignRunway("NOPE", "36R"); !errors.Is(err, ErrUnknownCallsign) {
		t.Errorf("AssignRunway(NOPE) = %v, want ErrUnknownCallsign", err)
	}
	at := t0.Add(20 * time.Minute)
	if err := m.SuggestScheduledTimeOnRunway("RWY1", at, "36R"); err != nil {
		t.Fatal(err)
	}

	ev := arrivalEvent(t, update(t, m, t0.Add(time.Second)), "RWY1")
	if ev.Runway != "36R" || ev.Status != sequence.OK || ev.ScheduledTime == nil || !ev.ScheduledTime.Equal(at) {
		t.Errorf("RWY1 after assignment: %+v", ev)
	}

	// Once the feed catches up the assignment is dropped, and later
	// reports win again.
	ac := candidate("RWY1", 19, 5000)
	ac.Runway = "36R"
	report(m, t0.Add(2*time.Second), ac)
	update(t, m, t0.Add(2*time.Second))
	if len(m.runways) != 0 {
		t.Errorf("assignment kept after the feed reported it: %v", m.runways)
	}
	report(m, t0.Add(3*time.Second), candidate("RWY1", 18, 5000))
	if ev := arrivalEvent(t, update(t, m, t0.Add(3*time.Second)), "RWY1"); ev.Runway != "36" {
		t.Errorf("RWY1 on runway %s, want the reported 36", ev.Runway)
	}
}

func TestDeparturesAndRunwayStatus(t *testing.T) {
	m := newTestManager(t, testDatabase())
	m.Feed().Apply(feed.DeparturesMessage{Airport: "TEST", Departures: []aviation.Departure{
		{Callsign: "DEP2", Airport: "TEST", Runway: "36", WakeCategory: aviation.WakeLight, EstimatedTime: t0.Add(5 * time.Minute)},
		{Callsign: "DEP1", Airport: "TEST", Runway: "36", WakeCategory: aviation.WakeMedium, EstimatedTime: t0.Add(2 * time.Minute)},
	}}, t0)
	m.Feed().Apply(feed.RunwayStatusesMessage{RunwayStatuses: []aviation.RunwayStatus{
		{Airport: "TEST", Mode: "NORTH", ArrivalRunways: []string{"36"}, DepartureRunways: []string{"36"}},
		{Airport: "OTHR", Mode: "SOUTH"},
	}}, t0)
	report(m, t0, candidate("ARR1", 15, 4000))

	tl := update(t, m, t0)
	if len(tl.Departures) != 2 || tl.Departures[0].Callsign != "DEP1" {
		t.Fatalf("departures = %+v", tl.Departures)
	}
	for _, d := range tl.Departures {
		if d.Status != sequence.OK || !d.ScheduledTime.Equal(d.EstimatedTime) {
			t.Errorf("%s: %+v", d.Callsign, d)
		}
	}
	if tl.RunwayStatus == nil || tl.RunwayStatus.Mode != "NORTH" {
		t.Errorf("runway status = %+v", tl.RunwayStatus)
	}

	events := tl.Events()
	if len(events) != 3 {
		t.Fatalf("%d events, want 3", len(events))
	}
	var arrivals, departures int
	for i, ev := range events {
		if i > 0 && ev.RunwayTime().Before(events[i-1].RunwayTime()) {
			t.Errorf("events out of order at %d", i)
		}
		switch ev := ev.(type) {
		case ArrivalEvent:
			arrivals++
			if ev.Kind() != ArrivalKind {
				t.Errorf("%s: kind %s", ev.Callsign, ev.Kind())
			}
		case DepartureEvent:
			departures++
			if ev.Kind() != DepartureKind {
				t.Errorf("%s: kind %s", ev.Callsign, ev.Kind())
			}
		default:
			t.Fatalf("unexpected event type %T", ev)
		}
	}
	if arrivals != 1 || departures != 2 {
		t.Errorf("%d arrivals and %d departures", arrivals, departures)
	}
}

func TestTimelineIsCopy(t *testing.T) {
	m := newTestManager(t, testDatabase())
	report(m, t0, candidate("CPY1", 20, 5000))
	tl := update(t, m, t0)

	orig := *tl.Arrivals[0].ScheduledTime
	tl.Arrivals[0].Callsign = "MODIFIED"
	*tl.Arrivals[0].ScheduledTime = orig.Add(time.Hour)
	tl.Arrivals[0].Trajectory.Points[0].Altitude = -1

	again := m.Timeline()
	ev := arrivalEvent(t, again, "CPY1")
	if !ev.ScheduledTime.Equal(orig) || ev.Trajectory.Points[0].Altitude < 0 {
		t.Errorf("timeline modified through a copy")
	}
}

func TestEncodeTimeline(t *testing.T) {
	m := newTestManager(t, testDatabase())
	report(m, t0, candidate("ENC1", 20, 5000), candidate("ENC2", 22, 6000), candidate("ENC3", 500, 20000))
	tl := update(t, m, t0)

	var buf bytes.Buffer
	if err := EncodeTimeline(&buf, tl); err != nil {
		t.Fatal(err)
	}
	back, err := DecodeTimeline(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if len(back.Arrivals) != len(tl.Arrivals) || back.FeedVersion != tl.FeedVersion || !back.Time.Equal(tl.Time) {
		t.Fatalf("decoded %+v", back)
	}
	for i, a := range tl.Arrivals {
		b := back.Arrivals[i]
		if a.Callsign != b.Callsign || a.Status != b.Status || (a.ScheduledTime == nil) != (b.ScheduledTime == nil) {
			t.Errorf("arrival %d: %+v, want %+v", i, b, a)
			continue
		}
		if a.ScheduledTime != nil && !a.ScheduledTime.Equal(*b.ScheduledTime) {
			t.Errorf("%s: scheduled %s, want %s", a.Callsign, b.ScheduledTime, a.ScheduledTime)
		}
		if len(b.Trajectory.Points) != len(a.Trajectory.Points) || b.Trajectory.RemainingTime != a.Trajectory.RemainingTime {
			t.Errorf("%s: trajectory not preserved", a.Callsign)
		}
	}
}

func TestSetDatabase(t *testing.T) {
	m := newTestManager(t, nil)
	report(m, t0, candidate("DB1", 20, 5000))

	if ev := arrivalEvent(t, update(t, m, t0), "DB1"); ev.Status != sequence.ForManualReinsertion {
		t.Errorf("without a database: %+v", ev)
	}

	m.SetDatabase(testDatabase())
	if ev := arrivalEvent(t, update(t, m, t0.Add(time.Second)), "DB1"); ev.Status != sequence.OK {
		t.Errorf("after SetDatabase: %+v", ev)
	}
}

func TestRun(t *testing.T) {
	m := newTestManager(t, testDatabase())
	report(m, time.Now(), candidate("RUN1", 20, 5000))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var cycles int
	err := m.Run(ctx, 10*time.Millisecond, func(tl Timeline) {
		cycles++
		if len(tl.Arrivals) != 1 {
			t.Errorf("cycle %d: %d arrivals", cycles, len(tl.Arrivals))
		}
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() = %v, want deadline exceeded", err)
	}
	if cycles == 0 {
		t.Errorf("no cycles ran")
	}
}
