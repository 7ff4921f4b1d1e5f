// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package timer provides reusable one-shot timers whose callbacks run on
// their own goroutine, the way a hardware timer service dispatches them.
package timer

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrActive is returned by StartOnce when the timer is already pending.
	ErrActive = errors.New("timer: already active")
	// ErrNotActive is returned by Stop when nothing is pending.
	ErrNotActive = errors.New("timer: not active")
)

// Handle is a single reusable one-shot timer.
type Handle interface {
	// StartOnce arms the timer to fire once after d.
	StartOnce(d time.Duration) error
	// Stop cancels a pending expiry. It does not wait for a callback that
	// has already started.
	Stop() error
	IsActive() bool
}

// Service creates timers bound to a callback.
type Service interface {
	Create(name string, cb func()) (Handle, error)
}

// Runtime is the Service backed by the Go runtime timers.
type Runtime struct{}

// Create returns an idle timer that calls cb when it expires.
func (Runtime) Create(name string, cb func()) (Handle, error) {
	if cb == nil {
		return nil, errors.New("timer: nil callback for " + name)
	}
	return &oneShot{name: name, cb: cb}, nil
}

type oneShot struct {
	name string
	cb   func()

	mu     sync.Mutex
	t      *time.Timer
	active bool
	gen    uint64
}

func (o *oneShot) StartOnce(d time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active {
		return ErrActive
	}
	o.gen++
	gen := o.gen
	o.active = true
	o.t = time.AfterFunc(d, func() { o.fire(gen) })
	return nil
}

func (o *oneShot) fire(gen uint64) {
	o.mu.Lock()
	// stopped or re-armed after this expiry was scheduled
	if gen != o.gen || !o.active {
		o.mu.Unlock()
		return
	}
	o.active = false
	o.mu.Unlock()

	o.cb()
}

func (o *oneShot) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.active {
		return ErrNotActive
	}
	o.t.Stop()
	o.active = false
	o.gen++
	return nil
}

func (o *oneShot) IsActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}
