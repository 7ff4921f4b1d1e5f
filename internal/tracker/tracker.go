// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package tracker wires a fix source to the GPS power controller: a fast
// handler on the source's goroutine, a bounded queue and a worker that
// turns distance to spawn into sleep decisions.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/gps_power/internal/gps"
	"github.com/relabs-tech/gps_power/internal/power"
	"github.com/relabs-tech/gps_power/internal/state"
	"github.com/relabs-tech/gps_power/internal/timer"
)

const (
	// DefaultDetectTimeout is how long Init waits for a first fix before
	// assuming there is no receiver.
	DefaultDetectTimeout = 30 * time.Second

	// DetectTimerName is the name the detection timer is created with.
	DetectTimerName = "gpsDisable"
)

// Options tune a Tracker. Zero values select the defaults.
type Options struct {
	DetectTimeout time.Duration
	QueueCapacity int
	Policy        power.Policy
	Distance      gps.DistanceFunc
	Reporter      Reporter
}

// Tracker is the composition root owning the pipeline's lifetime.
type Tracker struct {
	source gps.Source
	store  *state.Store
	power  *power.Controller
	timers timer.Service
	log    zerolog.Logger

	detectTimeout time.Duration
	queue         *FixQueue
	handler       *EventHandler
	worker        *Worker

	mu          sync.Mutex
	registered  bool
	detectTimer timer.Handle
	cancel      context.CancelFunc
	done        chan struct{}
}

// New builds the pipeline. Nothing runs until Init.
func New(source gps.Source, store *state.Store, ctrl *power.Controller, timers timer.Service,
	logger zerolog.Logger, opts Options) (*Tracker, error) {
	if opts.DetectTimeout <= 0 {
		opts.DetectTimeout = DefaultDetectTimeout
	}
	if opts.Policy == nil {
		opts.Policy = power.DefaultPolicy()
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, err
	}

	logger = logger.With().Str("component", "gps").Logger()
	queue := NewFixQueue(opts.QueueCapacity)
	return &Tracker{
		source:        source,
		store:         store,
		power:         ctrl,
		timers:        timers,
		log:           logger,
		detectTimeout: opts.DetectTimeout,
		queue:         queue,
		handler:       NewEventHandler(store, queue, logger),
		worker:        NewWorker(queue, store, opts.Distance, opts.Policy, ctrl, opts.Reporter, logger),
	}, nil
}

// Init powers the GPS on for presence detection, registers the fix
// handler, arms the detection timeout and starts the worker goroutine.
// Calling Init again after Disable re-registers and re-arms; the worker is
// only ever started once. Timer failures abort Init.
func (t *Tracker) Init(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.power.PowerOn(); err != nil {
		return fmt.Errorf("power on: %w", err)
	}

	if !t.registered {
		t.source.Register(t.handler)
		t.registered = true
	}

	if t.detectTimer == nil {
		h, err := t.timers.Create(DetectTimerName, t.detectionTimeout)
		if err != nil {
			return fmt.Errorf("create detection timer: %w", err)
		}
		t.detectTimer = h
	}
	if !t.detectTimer.IsActive() {
		if err := t.detectTimer.StartOnce(t.detectTimeout); err != nil {
			return fmt.Errorf("start detection timer: %w", err)
		}
	}

	if t.done == nil {
		wctx, cancel := context.WithCancel(ctx)
		t.cancel = cancel
		t.done = make(chan struct{})
		go func() {
			defer close(t.done)
			t.worker.Run(wctx)
		}()
	}

	t.log.Info().Dur("detect_timeout", t.detectTimeout).Str("polarity", t.power.Polarity().String()).Msg("GPS initialised")
	return nil
}

// detectionTimeout runs on the timer goroutine once the detection window
// has passed. A fix arriving at the same moment races with it; whichever
// writes the enable line last wins.
func (t *Tracker) detectionTimeout() {
	if t.store.DetectGPS() {
		t.log.Info().Msg("GPS detected, skip disable")
		return
	}
	t.log.Info().Msg("no GPS detected, disabling GPS power")
	if err := t.Disable(); err != nil {
		t.log.Error().Err(err).Msg("disable after detection timeout")
	}
}

// Disable unregisters the fix handler, powers the GPS off and cancels a
// pending sleep. It is idempotent and safe before Init.
func (t *Tracker) Disable() error {
	t.mu.Lock()
	if t.registered {
		t.source.Unregister(t.handler)
		t.registered = false
	}
	t.mu.Unlock()

	if t.power == nil {
		return nil
	}
	return t.power.Disable()
}

// Close stops the worker goroutine and waits for it to exit. It does not
// touch the enable line; call Disable for that.
func (t *Tracker) Close() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Queue exposes the ingest queue, mostly for drop statistics.
func (t *Tracker) Queue() *FixQueue { return t.queue }

// Handler returns the fix handler registered by Init.
func (t *Tracker) Handler() gps.Handler { return t.handler }
