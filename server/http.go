// server/http.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"text/template"
	"time"

	"github.com/vice-aman/aman/aman"
	"github.com/vice-aman/aman/log"
	"github.com/vice-aman/aman/sequence"
	"github.com/vice-aman/aman/util"

	"github.com/iancoleman/orderedmap"
)

// Server provides read-only status and diagnostics over HTTP.
type Server struct {
	lg        *log.Logger
	m         *aman.Manager
	startTime time.Time
	// Interval over which CPU usage is sampled for /sup.
	cpuInterval time.Duration
}

func New(m *aman.Manager, lg *log.Logger) *Server {
	return &Server{lg: lg, m: m, startTime: time.Now(), cpuInterval: time.Second}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/timeline", s.timelineHandler)
	mux.HandleFunc("/sequence", s.sequenceHandler)
	mux.HandleFunc("/sup", func(w http.ResponseWriter, r *http.Request) {
		s.statsHandler(w, r)
		s.lg.Infof("%s: served stats request", r.URL.String())
	})

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return mux
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lg.Info("launching HTTP server", slog.String("address", listener.Addr().String()))

	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.lg.Errorf("HTTP server error: %v", err)
		return err
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.lg.Warnf("unable to encode response: %v", err)
	}
}

// timelineHandler serves the most recent timeline as JSON or, with
// ?format=msgpack, in the compressed binary encoding.
func (s *Server) timelineHandler(w http.ResponseWriter, r *http.Request) {
	tl := s.m.Timeline()

	if r.URL.Query().Get("format") == "msgpack" {
		w.Header().Set("Content-Type", "application/octet-stream")
		if err := aman.EncodeTimeline(w, tl); err != nil {
			s.lg.Warnf("unable to encode timeline: %v", err)
		}
		return
	}
	s.writeJSON(w, tl)
}

type sequenceSlot struct {
	ScheduledTime      time.Time `json:"scheduledTime"`
	IsManuallyAssigned bool      `json:"isManuallyAssigned,omitempty"`
}

// sequenceHandler serves the landing sequence as a JSON object from
// callsign to slot, with keys in landing order.
func (s *Server) sequenceHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, sequenceMap(s.m.Sequence()))
}

func sequenceMap(places []sequence.Place) *orderedmap.OrderedMap {
	om := orderedmap.New()
	for _, p := range places {
		om.Set(p.Callsign, sequenceSlot{ScheduledTime: p.ScheduledTime, IsManuallyAssigned: p.IsManuallyAssigned})
	}
	return om
}

type serverStats struct {
	Uptime  time.Duration
	Process util.ProcessStats

	Airport     string
	CycleTime   string
	FeedVersion uint64
	Arrivals    []arrivalStatus
	Departures  int
}

type arrivalStatus struct {
	Callsign  string
	Runway    string
	Status    string
	Scheduled string
	Estimated string
	Degraded  bool
	Reason    string
}

func makeArrivalStatus(ev aman.ArrivalEvent) arrivalStatus {
	fmtTime := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.UTC().Format(time.TimeOnly)
	}
	var reason string
	if ev.NonSequencedReason != nil {
		reason = ev.NonSequencedReason.String()
	}
	return arrivalStatus{
		Callsign:  ev.Callsign,
		Runway:    ev.Airport + "/" + ev.Runway,
		Status:    ev.Status.String(),
		Scheduled: fmtTime(ev.ScheduledTime),
		Estimated: fmtTime(ev.EstimatedTime),
		Degraded:  ev.Trajectory != nil && ev.Trajectory.Degraded,
		Reason:    reason,
	}
}

var statsTemplate = template.Must(template.New("").Parse(`
<!DOCTYPE html>
<html>
<head>
<title>aman status</title>
</head>
<style>
table {
  border-collapse: collapse;
  width: 100%;
}

th, td {
  border: 1px solid #dddddd;
  padding: 8px;
  text-align: left;
}

tr:nth-child(even) {
  background-color: #f2f2f2;
}
</style>
<body>
<h1>Server Status</h1>
<ul>
  <li>Uptime: {{.Uptime}}</li>
  <li>CPU usage: {{.Process.CPUPercent}}%</li>
  <li>Allocated memory: {{.Process.AllocMB}} MB</li>
  <li>Total allocated memory: {{.Process.TotalAllocMB}} MB</li>
  <li>System memory: {{.Process.SysMB}} MB</li>
  <li>Running goroutines: {{.Process.Goroutines}}</li>
</ul>

<h1>Arrivals {{.Airport}}</h1>
<ul>
  <li>Last cycle: {{.CycleTime}}</li>
  <li>Feed version: {{.FeedVersion}}</li>
  <li>Departures: {{.Departures}}</li>
</ul>
<table>
  <tr>
  <th>Callsign</th>
  <th>Runway</th>
  <th>Status</th>
  <th>Scheduled</th>
  <th>Estimated</th>
  <th>Straight line</th>
  <th>Not sequenced</th>
  </tr>
{{range .Arrivals}}
  <tr>
  <td>{{.Callsign}}</td>
  <td>{{.Runway}}</td>
  <td>{{.Status}}</td>
  <td>{{.Scheduled}}</td>
  <td>{{.Estimated}}</td>
  <td>{{if .Degraded}}yes{{end}}</td>
  <td>{{.Reason}}</td>
  </tr>
{{end}}
</table>

</body>
</html>
`))

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	tl := s.m.Timeline()

	stats := serverStats{
		Uptime:      time.Since(s.startTime).Round(time.Second),
		Process:     util.GetProcessStats(s.cpuInterval),
		Airport:     tl.Airport,
		FeedVersion: tl.FeedVersion,
		Arrivals:    util.MapSlice(tl.Arrivals, makeArrivalStatus),
		Departures:  len(tl.Departures),
	}
	if !tl.Time.IsZero() {
		stats.CycleTime = tl.Time.UTC().Format(time.RFC3339)
	}

	if err := statsTemplate.Execute(w, stats); err != nil {
		s.lg.Warnf("stats template: %v", err)
	}
}
