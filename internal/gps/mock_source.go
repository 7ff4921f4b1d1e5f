// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"context"
	"time"
)

// MockSource simulates a receiver travelling in a straight line away from
// an origin at constant speed.
type MockSource struct {
	Dispatcher

	origin     Location
	speedKmh   float64
	bearingDeg float64
	interval   time.Duration

	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock source starting at origin.
func NewMockSource(origin Location, speedKmh, bearingDeg float64, interval time.Duration) *MockSource {
	if interval <= 0 {
		interval = time.Second
	}
	return &MockSource{
		origin:     origin,
		speedKmh:   speedKmh,
		bearingDeg: bearingDeg,
		interval:   interval,
		now:        time.Now,
	}
}

// Next returns the simulated fix for the current time.
func (m *MockSource) Next() Fix {
	now := m.now()
	if m.start.IsZero() {
		m.start = now
	}
	km := m.speedKmh * now.Sub(m.start).Hours()
	lat, lon := Destination(m.origin.Latitude, m.origin.Longitude, m.bearingDeg, km)
	utc := now.UTC()
	return Fix{
		Time:       utc.Format("15:04:05.0000"),
		Date:       utc.Format("02/01/06"),
		Latitude:   lat,
		Longitude:  lon,
		SpeedKnots: m.speedKmh / 1.852,
		CourseDeg:  m.bearingDeg,
		Valid:      true,
	}
}

// Run dispatches a fix every interval until ctx is cancelled.
func (m *MockSource) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Dispatch(m.Next())
		}
	}
}
