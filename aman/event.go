// aman/event.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aman

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/vice-aman/aman/aviation"
	"github.com/vice-aman/aman/sequence"
	"github.com/vice-aman/aman/trajectory"
	"github.com/vice-aman/aman/util"
)

// Event is an entry on an airport's timeline. It is either an
// ArrivalEvent or a DepartureEvent.
type Event interface {
	isEvent()
	Kind() EventKind
	EventCallsign() string
	// RunwayTime is the scheduled time if there is one and the
	// estimated time otherwise.
	RunwayTime() time.Time
}

type EventKind int

const (
	ArrivalKind EventKind = iota
	DepartureKind
)

func (k EventKind) String() string {
	switch k {
	case ArrivalKind:
		return "arrival"
	case DepartureKind:
		return "departure"
	default:
		return "unknown"
	}
}

// Preceding describes the arrival's spacing behind the aircraft ahead of
// it in the landing sequence.
type Preceding struct {
	Callsign string        `json:"callsign"`
	Distance float32       `json:"distance"` // nm along track
	Time     time.Duration `json:"time"`
}

// NonSequencedReason says why no trajectory could be predicted for an
// arrival.
type NonSequencedReason int

const (
	MissingPerformanceData NonSequencedReason = iota
	NoAssignedRunway
	// EmptyRoute: the aircraft has flown its whole route and is past the
	// threshold.
	EmptyRoute
	UnknownError
)

var nonSequencedReasonNames = [...]string{
	MissingPerformanceData: "MISSING_PERFORMANCE_DATA",
	NoAssignedRunway:       "NO_ASSIGNED_RUNWAY",
	EmptyRoute:             "EMPTY_ROUTE",
	UnknownError:           "UNKNOWN_ERROR",
}

func (r NonSequencedReason) String() string {
	if r >= 0 && int(r) < len(nonSequencedReasonNames) {
		return nonSequencedReasonNames[r]
	}
	return fmt.Sprintf("NonSequencedReason(%d)", int(r))
}

func (r NonSequencedReason) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *NonSequencedReason) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	for i, n := range nonSequencedReasonNames {
		if n == str {
			*r = NonSequencedReason(i)
			return nil
		}
	}
	return fmt.Errorf("%q: unknown non-sequenced reason", str)
}

type ArrivalEvent struct {
	Callsign     string                `json:"callsign"`
	AircraftType string                `json:"aircraftType"`
	Airport      string                `json:"airport"`
	Runway       string                `json:"runway"`
	WakeCategory aviation.WakeCategory `json:"wakeCategory"`
	Status       sequence.Status       `json:"status"`

	ScheduledTime *time.Time `json:"scheduledTime,omitempty"`
	// EstimatedTime and Trajectory are nil when no prediction could be
	// made for the arrival.
	EstimatedTime *time.Time             `json:"estimatedTime,omitempty"`
	Trajectory    *trajectory.Trajectory `json:"trajectory,omitempty"`
	Preceding     *Preceding             `json:"preceding,omitempty"`

	// NonSequencedReason is set when there is no prediction.
	NonSequencedReason *NonSequencedReason `json:"nonSequencedReason,omitempty"`

	TrackingController *string `json:"trackingController,omitempty"`
	Scratchpad         *string `json:"scratchpad,omitempty"`
}

type DepartureEvent struct {
	Callsign      string                `json:"callsign"`
	AircraftType  string                `json:"aircraftType"`
	Airport       string                `json:"airport"`
	Runway        string                `json:"runway"`
	WakeCategory  aviation.WakeCategory `json:"wakeCategory"`
	Status        sequence.Status       `json:"status"`
	ScheduledTime time.Time             `json:"scheduledTime"`
	EstimatedTime time.Time             `json:"estimatedTime"`
}

func (ArrivalEvent) isEvent()   {}
func (DepartureEvent) isEvent() {}

func (ArrivalEvent) Kind() EventKind   { return ArrivalKind }
func (DepartureEvent) Kind() EventKind { return DepartureKind }

func (a ArrivalEvent) EventCallsign() string   { return a.Callsign }
func (d DepartureEvent) EventCallsign() string { return d.Callsign }

func (a ArrivalEvent) RunwayTime() time.Time {
	if a.ScheduledTime != nil {
		return *a.ScheduledTime
	} else if a.EstimatedTime != nil {
		return *a.EstimatedTime
	}
	return time.Time{}
}

func (d DepartureEvent) RunwayTime() time.Time { return d.ScheduledTime }

func (a ArrivalEvent) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("callsign", a.Callsign),
		slog.String("runway", a.Airport+"/"+a.Runway),
		slog.String("status", a.Status.String()),
	}
	if a.ScheduledTime != nil {
		attrs = append(attrs, slog.Time("scheduled", *a.ScheduledTime))
	}
	if a.EstimatedTime != nil {
		attrs = append(attrs, slog.Time("estimated", *a.EstimatedTime))
	}
	if a.Trajectory != nil && a.Trajectory.Degraded {
		attrs = append(attrs, slog.Bool("degraded", true))
	}
	if a.NonSequencedReason != nil {
		attrs = append(attrs, slog.String("reason", a.NonSequencedReason.String()))
	}
	return slog.GroupValue(attrs...)
}

// Timeline is the manager's output for one cycle.
type Timeline struct {
	Airport string    `json:"airport,omitempty"`
	Time    time.Time `json:"time"`
	// FeedVersion is the version of the feed snapshot the timeline was
	// computed from.
	FeedVersion uint64 `json:"feedVersion"`

	// Arrivals are in landing order followed by arrivals that aren't
	// sequenced yet and then those without a prediction.
	Arrivals     []ArrivalEvent         `json:"arrivals"`
	Departures   []DepartureEvent       `json:"departures"`
	RunwayStatus *aviation.RunwayStatus `json:"runwayStatus,omitempty"`
}

// Events returns all of the timeline's events ordered by runway time.
func (tl Timeline) Events() []Event {
	events := make([]Event, 0, len(tl.Arrivals)+len(tl.Departures))
	for _, a := range tl.Arrivals {
		events = append(events, a)
	}
	for _, d := range tl.Departures {
		events = append(events, d)
	}
	slices.SortStableFunc(events, func(a, b Event) int {
		return cmp.Or(a.RunwayTime().Compare(b.RunwayTime()), cmp.Compare(a.EventCallsign(), b.EventCallsign()))
	})
	return events
}

// Arrival returns the arrival event for the callsign, if present.
func (tl Timeline) Arrival(callsign string) (ArrivalEvent, bool) {
	for _, a := range tl.Arrivals {
		if a.Callsign == callsign {
			return a, true
		}
	}
	return ArrivalEvent{}, false
}

// NonSequenced returns the arrivals that couldn't be planned.
func (tl Timeline) NonSequenced() []ArrivalEvent {
	return util.FilterSlice(tl.Arrivals, func(a ArrivalEvent) bool { return a.NonSequencedReason != nil })
}

func (tl Timeline) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("airport", tl.Airport),
		slog.Time("time", tl.Time),
		slog.Uint64("feed_version", tl.FeedVersion),
		slog.Int("arrivals", len(tl.Arrivals)),
		slog.Int("departures", len(tl.Departures)))
}

// EncodeTimeline writes the timeline in the compact binary form used to
// hand it to other processes.
func EncodeTimeline(w io.Writer, tl Timeline) error {
	return util.EncodeCompressed(w, tl)
}

func DecodeTimeline(r io.Reader) (Timeline, error) {
	var tl Timeline
	err := util.DecodeCompressed(r, &tl)
	return tl, err
}
