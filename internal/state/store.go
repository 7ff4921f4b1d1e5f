// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package state holds the application state shared between the GPS
// pipeline, the web server and MQTT: current and spawn location, where the
// current location came from, and whether a receiver has been detected.
package state

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/gps_power/internal/gps"
)

// ErrInvalidLocation is returned for coordinates outside the WGS84 ranges.
var ErrInvalidLocation = errors.New("invalid GPS location")

// Source identifies who last set the current location.
type Source int

const (
	SourceNone Source = iota
	SourceSensor
	SourceManual
)

func (s Source) String() string {
	switch s {
	case SourceSensor:
		return "sensor"
	case SourceManual:
		return "manual"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Source) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none":
		*s = SourceNone
	case "sensor":
		*s = SourceSensor
	case "manual":
		*s = SourceManual
	default:
		return fmt.Errorf("unknown location source %q", text)
	}
	return nil
}

// Store is safe for concurrent use. DetectGPS/SetDetectGPS never lock.
type Store struct {
	mu        sync.RWMutex
	current   gps.Location
	updatedAt time.Time
	spawn     gps.Location
	source    Source

	detected atomic.Bool
}

// NewStore returns a store with the given spawn point.
func NewStore(spawn gps.Location) (*Store, error) {
	s := &Store{}
	if err := s.SetSpawnLocation(spawn); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) CurrentLocation() gps.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) SetCurrentLocation(l gps.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = l
	s.updatedAt = time.Now()
}

// UpdatedAt returns when the current location was last set.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

func (s *Store) SpawnLocation() gps.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spawn
}

// SetSpawnLocation replaces the reference point distances are measured from.
func (s *Store) SetSpawnLocation(l gps.Location) error {
	if !gps.IsValidGPSLocation(l) {
		return fmt.Errorf("spawn %.6f,%.6f: %w", l.Latitude, l.Longitude, ErrInvalidLocation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spawn = l
	return nil
}

func (s *Store) SubscribeSource() Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

func (s *Store) SetSubscribeSource(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = src
}

func (s *Store) DetectGPS() bool { return s.detected.Load() }

func (s *Store) SetDetectGPS(v bool) { s.detected.Store(v) }
