// feed/message.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/vice-aman/aman/aviation"
	"github.com/vice-aman/aman/util"
	"github.com/vice-aman/aman/wx"
)

// Message is one decoded feed message. The set of implementations is
// closed: ArrivalsMessage, DeparturesMessage, RunwayStatusesMessage and
// WeatherMessage.
type Message interface {
	isMessage()
	Type() string
}

const (
	TypeArrivals       = "arrivals"
	TypeDepartures     = "departures"
	TypeRunwayStatuses = "runwayStatuses"
	TypeWeather        = "weather"
)

// ArrivalsMessage replaces all arrival candidates for an airport.
type ArrivalsMessage struct {
	Airport  string                      `json:"airport"`
	Time     time.Time                   `json:"time"`
	Arrivals []aviation.ArrivalCandidate `json:"arrivals"`
}

// DeparturesMessage replaces all departures for an airport.
type DeparturesMessage struct {
	Airport    string               `json:"airport"`
	Time       time.Time            `json:"time"`
	Departures []aviation.Departure `json:"departures"`
}

// RunwayStatusesMessage carries the active runway configuration of one
// or more airports.
type RunwayStatusesMessage struct {
	Time           time.Time               `json:"time"`
	RunwayStatuses []aviation.RunwayStatus `json:"runwayStatuses"`
}

// WeatherMessage carries a new vertical weather profile for an airport.
type WeatherMessage struct {
	Airport string     `json:"airport"`
	Profile wx.Profile `json:"profile"`
}

func (ArrivalsMessage) isMessage()       {}
func (DeparturesMessage) isMessage()     {}
func (RunwayStatusesMessage) isMessage() {}
func (WeatherMessage) isMessage()        {}

func (ArrivalsMessage) Type() string       { return TypeArrivals }
func (DeparturesMessage) Type() string     { return TypeDepartures }
func (RunwayStatusesMessage) Type() string { return TypeRunwayStatuses }
func (WeatherMessage) Type() string        { return TypeWeather }

func (m ArrivalsMessage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", TypeArrivals),
		slog.String("airport", m.Airport),
		slog.Int("arrivals", len(m.Arrivals)))
}

func (m DeparturesMessage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", TypeDepartures),
		slog.String("airport", m.Airport),
		slog.Int("departures", len(m.Departures)))
}

func (m RunwayStatusesMessage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", TypeRunwayStatuses),
		slog.Int("airports", len(m.RunwayStatuses)))
}

func (m WeatherMessage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", TypeWeather),
		slog.String("airport", m.Airport),
		slog.Any("profile", m.Profile))
}

type envelope struct {
	Type string `json:"type"`
}

// Decode decodes a single feed message. Messages are JSON objects with a
// "type" field that selects the payload; the payload's fields are at the
// top level of the object alongside it.
func Decode(b []byte) (Message, error) {
	b = bytes.TrimSpace(b)
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	switch env.Type {
	case TypeArrivals:
		return decodeAs[ArrivalsMessage](b)
	case TypeDepartures:
		return decodeAs[DeparturesMessage](b)
	case TypeRunwayStatuses:
		return decodeAs[RunwayStatusesMessage](b)
	case TypeWeather:
		m, err := decodeAs[WeatherMessage](b)
		if err != nil {
			return nil, err
		}
		if err := m.(WeatherMessage).Profile.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
		}
		return m, nil
	case "":
		return nil, fmt.Errorf("missing \"type\": %w", ErrMalformedMessage)
	default:
		return nil, fmt.Errorf("%q: %w", env.Type, ErrUnknownMessageType)
	}
}

func decodeAs[T Message](b []byte) (Message, error) {
	var m T
	if err := util.UnmarshalJSON(b, &m); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", m.Type(), ErrMalformedMessage, err)
	}
	return m, nil
}
