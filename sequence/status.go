// sequence/status.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sequence

import (
	"encoding/json"
	"fmt"
)

// Status is the sequencing state reported for an arrival.
type Status int

const (
	// AwaitingForSequence: not yet within the active advisory horizon.
	AwaitingForSequence Status = iota
	// OK: the arrival has a scheduled time.
	OK
	// ForManualReinsertion is set by a controller for arrivals that
	// should be placed by hand; any scheduled time is kept.
	ForManualReinsertion
)

var statusNames = [...]string{
	AwaitingForSequence:  "AWAITING_FOR_SEQUENCE",
	OK:                   "OK",
	ForManualReinsertion: "FOR_MANUAL_REINSERTION",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	for i, n := range statusNames {
		if n == str {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("%q: unknown sequence status", str)
}
