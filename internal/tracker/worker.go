// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package tracker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/gps_power/internal/gps"
	"github.com/relabs-tech/gps_power/internal/power"
	"github.com/relabs-tech/gps_power/internal/state"
)

// LocationStore is the part of the shared state the worker uses.
type LocationStore interface {
	SetCurrentLocation(gps.Location)
	CurrentLocation() gps.Location
	SpawnLocation() gps.Location
	SetSubscribeSource(state.Source)
}

// PowerApplier is implemented by *power.Controller.
type PowerApplier interface {
	ApplyDecision(power.Decision) error
	State() power.State
}

// Report describes one processed sample.
type Report struct {
	Time       time.Time       `json:"time"`
	Location   gps.Location    `json:"location"`
	Spawn      gps.Location    `json:"spawn"`
	DistanceKm float64         `json:"distance_km"`
	Decision   *power.Decision `json:"decision,omitempty"` // nil: below the smallest threshold
	Power      power.State     `json:"power"`
	Dropped    uint64          `json:"dropped"`
}

// Reporter receives a Report after every processed sample. Report is
// called on the worker goroutine and should not block for long.
type Reporter interface {
	Report(Report)
}

// Worker is the slow path: distance math, policy and power control.
type Worker struct {
	queue    *FixQueue
	store    LocationStore
	distance gps.DistanceFunc
	policy   power.Policy
	power    PowerApplier
	reporter Reporter
	log      zerolog.Logger
}

func NewWorker(queue *FixQueue, store LocationStore, distance gps.DistanceFunc, policy power.Policy,
	pwr PowerApplier, reporter Reporter, logger zerolog.Logger) *Worker {
	if distance == nil {
		distance = gps.HaversineKm
	}
	return &Worker{
		queue:    queue,
		store:    store,
		distance: distance,
		policy:   policy,
		power:    pwr,
		reporter: reporter,
		log:      logger.With().Str("component", "gps-worker").Logger(),
	}
}

// Run processes samples in arrival order until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Msg("worker started")
	for {
		s, err := w.queue.Receive(ctx)
		if err != nil {
			w.log.Info().Msg("worker stopped")
			return err
		}
		w.process(s)
	}
}

// process handles one sample. It reports whether the sample was used.
func (w *Worker) process(s gps.Sample) bool {
	if !s.Valid {
		return false
	}

	w.store.SetCurrentLocation(gps.Location{Latitude: s.Latitude, Longitude: s.Longitude})
	w.store.SetSubscribeSource(state.SourceSensor)

	current := w.store.CurrentLocation()
	spawn := w.store.SpawnLocation()
	distanceKm := w.distance(current.Latitude, current.Longitude, spawn.Latitude, spawn.Longitude)

	w.log.Info().Float64("distance_km", distanceKm).Msg("distance to spawn")

	r := Report{
		Time:       time.Now().UTC(),
		Location:   current,
		Spawn:      spawn,
		DistanceKm: distanceKm,
		Dropped:    w.queue.Dropped(),
	}

	if d, ok := w.policy.Resolve(distanceKm); ok {
		w.log.Info().
			Float64("threshold_km", d.ThresholdKm).
			Float64("mod_km", d.ModDistanceKm).
			Bool("keep_powered", d.KeepPowered).
			Uint32("sleep_s", d.SleepIntervalSeconds).
			Msg("sleep policy")
		if err := w.power.ApplyDecision(d); err != nil {
			w.log.Error().Err(err).Msg("apply power decision")
		}
		r.Decision = &d
	} else {
		w.log.Debug().Float64("distance_km", distanceKm).Msg("below smallest threshold, power unchanged")
	}

	r.Power = w.power.State()
	if w.reporter != nil {
		w.reporter.Report(r)
	}
	return true
}
