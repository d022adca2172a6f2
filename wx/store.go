// wx/store.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wx

import (
	"fmt"
	"io"
	"time"

	"github.com/vice-aman/aman/util"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultProfileTTL is how long a profile is used after it was received
// if no newer one arrives.
const DefaultProfileTTL = 2 * time.Hour

// Store holds the most recent weather profile for each airport. Updates
// replace the previous profile wholesale. Profiles expire after the
// store's TTL, after which lookups fall back to the standard atmosphere.
// It is safe for concurrent use.
type Store struct {
	profiles *expirable.LRU[string, Profile]
}

func NewStore(size int, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	return &Store{profiles: expirable.NewLRU[string, Profile](size, nil, ttl)}
}

func (s *Store) Put(airport string, p Profile) {
	s.profiles.Add(airport, p)
}

// Get returns the profile for the airport, if there is an unexpired one.
func (s *Store) Get(airport string) (Profile, bool) {
	return s.profiles.Get(airport)
}

// Profile returns the airport's profile or an empty one, which
// interpolates to the standard atmosphere.
func (s *Store) Profile(airport string) Profile {
	p, _ := s.profiles.Get(airport)
	return p
}

func (s *Store) Airports() []string {
	return s.profiles.Keys()
}

// Profiles returns all of the unexpired profiles.
func (s *Store) Profiles() map[string]Profile {
	m := make(map[string]Profile)
	for _, ap := range s.profiles.Keys() {
		if p, ok := s.profiles.Peek(ap); ok {
			m[ap] = p
		}
	}
	return m
}

// Restore adds the given profiles to the store. Profiles already present
// for an airport are kept if they are newer.
func (s *Store) Restore(m map[string]Profile) {
	for _, ap := range util.SortedMapKeys(m) {
		if cur, ok := s.profiles.Peek(ap); ok && cur.Time.After(m[ap].Time) {
			continue
		}
		s.profiles.Add(ap, m[ap])
	}
}

// Save writes all of the unexpired profiles to w.
func (s *Store) Save(w io.Writer) error {
	if err := util.EncodeCompressed(w, s.Profiles()); err != nil {
		return fmt.Errorf("saving weather profiles: %w", err)
	}
	return nil
}

// Load adds the profiles written by Save to the store, as Restore does.
func (s *Store) Load(r io.Reader) error {
	var m map[string]Profile
	if err := util.DecodeCompressed(r, &m); err != nil {
		return fmt.Errorf("loading weather profiles: %w", err)
	}
	s.Restore(m)
	return nil
}
