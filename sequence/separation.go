// sequence/separation.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sequence

import (
	gomath "math"
	"time"

	"github.com/vice-aman/aman/aviation"
)

// DefaultMinimumSpacing is the minimum distance between successive
// arrivals, nm.
const DefaultMinimumSpacing = 3.0

// SeparationTime returns the time it takes the follower to cover the wake
// separation distance required behind the leader at its landing speed.
func SeparationTime(leader aviation.WakeCategory, follower Arrival) time.Duration {
	return spacingTime(aviation.WakeSeparation(leader, follower.WakeCategory), follower)
}

// MinimumSafeLandingTime returns the earliest time the follower may land
// behind a leader landing at leaderTime.
func MinimumSafeLandingTime(leaderTime time.Time, leader aviation.WakeCategory, follower Arrival) time.Time {
	return leaderTime.Add(SeparationTime(leader, follower))
}

// RequiredSpacing returns the distance in nm the follower must trail the
// leader by. Arrivals to different runways only need the minimum spacing;
// otherwise it is the larger of that and the wake separation. Arrivals
// without a runway are taken to be on the same one.
func RequiredSpacing(leader, follower Arrival, minimum float32) float32 {
	if leader.Runway != "" && follower.Runway != "" && leader.Runway != follower.Runway {
		return minimum
	}
	return max(aviation.WakeSeparation(leader.WakeCategory, follower.WakeCategory), minimum)
}

func spacingTime(nm float32, follower Arrival) time.Duration {
	speed := follower.LandingSpeed
	if speed <= 0 {
		speed = aviation.DefaultLandingSpeed
	}
	secs := float64(nm) * 3600 / float64(speed)
	return time.Duration(gomath.Round(secs * float64(time.Second)))
}
