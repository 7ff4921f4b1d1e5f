// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package power

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"

	"github.com/relabs-tech/gps_power/internal/timer"
)

// Polarity says which GPIO level powers the receiver.
type Polarity int

const (
	// ActiveLow: driving the enable line Low powers the GPS.
	ActiveLow Polarity = iota
	ActiveHigh
)

func (p Polarity) String() string {
	if p == ActiveHigh {
		return "active-high"
	}
	return "active-low"
}

func (p Polarity) level(on bool) gpio.Level {
	if p == ActiveHigh {
		return gpio.Level(on)
	}
	return gpio.Level(!on)
}

// SleepTimerName is the name the sleep timer is created with.
const SleepTimerName = "gpsSleep"

// State is a snapshot of the controller.
type State struct {
	Enabled              bool   `json:"enabled"`
	SleepTimerArmed      bool   `json:"sleep_timer_armed"`
	SleepIntervalSeconds uint32 `json:"sleep_interval_s"`
}

// Controller owns the GPS enable line and the reusable sleep timer.
type Controller struct {
	pin      gpio.PinOut
	polarity Polarity
	log      zerolog.Logger

	mu         sync.Mutex
	sleepTimer timer.Handle
	state      State
}

// NewController creates the sleep timer on timers. A timer platform that
// cannot create it is a configuration defect and the error must abort
// initialization.
func NewController(pin gpio.PinOut, polarity Polarity, timers timer.Service, logger zerolog.Logger) (*Controller, error) {
	c := &Controller{
		pin:      pin,
		polarity: polarity,
		log:      logger.With().Str("component", "power").Logger(),
	}
	t, err := timers.Create(SleepTimerName, c.sleepExpired)
	if err != nil {
		return nil, fmt.Errorf("create sleep timer: %w", err)
	}
	c.sleepTimer = t
	return c, nil
}

// sleepExpired runs on the timer goroutine: one GPIO write, nothing else.
func (c *Controller) sleepExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	// re-armed while this expiry waited for the lock
	if c.sleepTimer.IsActive() {
		return
	}
	if err := c.write(false); err != nil {
		c.log.Error().Err(err).Msg("sleep expiry: power off failed")
	}
	c.state.SleepTimerArmed = false
}

// PowerOn drives the enable line to its active level.
func (c *Controller) PowerOn() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(true)
}

// PowerOff drives the enable line to its inactive level.
func (c *Controller) PowerOff() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(false)
}

// ScheduleSleep powers the GPS off after seconds. A pending sleep is
// cancelled first, so at most one deadline is ever pending.
func (c *Controller) ScheduleSleep(seconds uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scheduleSleep(seconds)
}

func (c *Controller) scheduleSleep(seconds uint32) error {
	if c.sleepTimer == nil {
		return fmt.Errorf("power: controller has no sleep timer")
	}
	if err := c.cancelSleep(); err != nil {
		return err
	}
	if err := c.sleepTimer.StartOnce(time.Duration(seconds) * time.Second); err != nil {
		return fmt.Errorf("start sleep timer: %w", err)
	}
	c.state.SleepTimerArmed = true
	c.state.SleepIntervalSeconds = seconds
	c.log.Info().Uint32("seconds", seconds).Msg("GPS sleep scheduled")
	return nil
}

// cancelSleep stops a pending sleep timer. c.mu must be held.
func (c *Controller) cancelSleep() error {
	if c.sleepTimer == nil || !c.sleepTimer.IsActive() {
		c.state.SleepTimerArmed = false
		return nil
	}
	if err := c.sleepTimer.Stop(); err != nil {
		return fmt.Errorf("stop sleep timer: %w", err)
	}
	c.state.SleepTimerArmed = false
	return nil
}

// ApplyDecision powers the GPS on and either keeps it on or schedules the
// decision's sleep.
func (c *Controller) ApplyDecision(d Decision) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.write(true); err != nil {
		return err
	}
	c.state.SleepIntervalSeconds = d.SleepIntervalSeconds

	if d.KeepPowered {
		// staying powered supersedes a pending sleep
		if err := c.cancelSleep(); err != nil {
			return err
		}
		c.log.Debug().Msg("keep GPS powered")
		return nil
	}
	return c.scheduleSleep(d.SleepIntervalSeconds)
}

// Disable powers the GPS off and cancels a pending sleep. It is idempotent
// and safe on a zero Controller.
func (c *Controller) Disable() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.write(false); err != nil {
		return err
	}
	return c.cancelSleep()
}

// State returns a snapshot of the power state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Polarity returns the configured enable-line polarity.
func (c *Controller) Polarity() Polarity {
	return c.polarity
}

// write sets the line. c.mu must be held.
func (c *Controller) write(on bool) error {
	if c.pin != nil {
		if err := c.pin.Out(c.polarity.level(on)); err != nil {
			return fmt.Errorf("gps enable line: %w", err)
		}
	}
	c.state.Enabled = on
	return nil
}
