// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package timertest implements a manually driven timer.Service for tests.
package timertest

import (
	"sync"
	"time"

	"github.com/relabs-tech/gps_power/internal/timer"
)

// Service records every timer it creates. Set CreateErr or StartErr to
// simulate a broken timer platform.
type Service struct {
	mu     sync.Mutex
	timers map[string]*Timer

	CreateErr error
	StartErr  error
}

// Create implements timer.Service.
func (s *Service) Create(name string, cb func()) (timer.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	if s.timers == nil {
		s.timers = make(map[string]*Timer)
	}
	t := &Timer{Name: name, cb: cb, svc: s}
	s.timers[name] = t
	return t, nil
}

// Timer returns the timer created with name, or nil.
func (s *Service) Timer(name string) *Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[name]
}

// Timer is a fake timer.Handle. It never fires on its own; call Fire.
type Timer struct {
	Name string

	svc *Service
	cb  func()

	mu       sync.Mutex
	active   bool
	duration time.Duration
	starts   int
	stops    int
	fired    int
}

func (t *Timer) StartOnce(d time.Duration) error {
	t.svc.mu.Lock()
	err := t.svc.StartErr
	t.svc.mu.Unlock()
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		return timer.ErrActive
	}
	t.active = true
	t.duration = d
	t.starts++
	return nil
}

func (t *Timer) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return timer.ErrNotActive
	}
	t.active = false
	t.stops++
	return nil
}

func (t *Timer) IsActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Fire expires the timer if it is pending and runs the callback on the
// calling goroutine. It reports whether the callback ran.
func (t *Timer) Fire() bool {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return false
	}
	t.active = false
	t.fired++
	t.mu.Unlock()

	t.cb()
	return true
}

// Duration returns the duration of the last StartOnce.
func (t *Timer) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration
}

// Counts returns how often the timer was started, stopped and fired.
func (t *Timer) Counts() (starts, stops, fired int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.starts, t.stops, t.fired
}
