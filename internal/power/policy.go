// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package power

import (
	"errors"
	"fmt"
	"math"
)

// SleepConfig is one row of the sleep policy table.
type SleepConfig struct {
	DistanceThresholdKm  float64
	SleepIntervalSeconds uint32
	KeepPowered          bool // true: never sleep in this regime
}

// defaultSleepConfigs must stay sorted by strictly increasing threshold.
var defaultSleepConfigs = [...]SleepConfig{
	{DistanceThresholdKm: 10, SleepIntervalSeconds: 0, KeepPowered: true},        // within 10 km, do not sleep
	{DistanceThresholdKm: 50, SleepIntervalSeconds: 5 * 60, KeepPowered: false},  // beyond 50 km, sleep 5 minutes
	{DistanceThresholdKm: 100, SleepIntervalSeconds: 10 * 60, KeepPowered: false}, // beyond 100 km, sleep 10 minutes
	{DistanceThresholdKm: 200, SleepIntervalSeconds: 15 * 60, KeepPowered: false}, // beyond 200 km, sleep 15 minutes
}

// Policy is a sleep policy table sorted by ascending threshold.
type Policy []SleepConfig

// DefaultPolicy returns a copy of the built-in table.
func DefaultPolicy() Policy {
	p := make(Policy, len(defaultSleepConfigs))
	copy(p, defaultSleepConfigs[:])
	return p
}

// Validate checks that the table is non-empty and strictly increasing.
func (p Policy) Validate() error {
	if len(p) == 0 {
		return errors.New("power: empty sleep policy")
	}
	for i := 1; i < len(p); i++ {
		if !(p[i].DistanceThresholdKm > p[i-1].DistanceThresholdKm) {
			return fmt.Errorf("power: sleep policy threshold %d (%.3f km) not above %.3f km",
				i, p[i].DistanceThresholdKm, p[i-1].DistanceThresholdKm)
		}
	}
	return nil
}

// Decision is the outcome of resolving a distance against a Policy.
type Decision struct {
	SleepIntervalSeconds uint32  `json:"sleep_interval_s"`
	KeepPowered          bool    `json:"keep_powered"`
	ThresholdKm          float64 `json:"threshold_km"`
	ModDistanceKm        float64 `json:"mod_distance_km"`
}

// Resolve maps distanceKm to a decision in two steps. First the largest
// threshold not above distanceKm is selected; then the first row whose
// threshold is >= distanceKm mod that threshold supplies the decision, so
// the policy repeats as a sawtooth across each band.
//
// ok is false when distanceKm is below the smallest threshold (or NaN); the
// caller must then leave the power state as it is.
func (p Policy) Resolve(distanceKm float64) (d Decision, ok bool) {
	var threshold float64
	found := false
	for i := len(p) - 1; i >= 0; i-- {
		if distanceKm >= p[i].DistanceThresholdKm {
			threshold = p[i].DistanceThresholdKm
			found = true
			break
		}
	}
	if !found || threshold <= 0 {
		return Decision{}, false
	}

	mod := math.Mod(distanceKm, threshold)
	for _, c := range p {
		if c.DistanceThresholdKm >= mod {
			return Decision{
				SleepIntervalSeconds: c.SleepIntervalSeconds,
				KeepPowered:          c.KeepPowered,
				ThresholdKm:          threshold,
				ModDistanceKm:        mod,
			}, true
		}
	}
	return Decision{}, false
}
