// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gps_power/internal/config"
	"github.com/relabs-tech/gps_power/internal/gps"
	"github.com/relabs-tech/gps_power/internal/power"
	"github.com/relabs-tech/gps_power/internal/state"
	"github.com/relabs-tech/gps_power/internal/timer"
	"github.com/relabs-tech/gps_power/internal/tracker"
)

// fixSource is a gps.Source that produces fixes while Run is active.
type fixSource interface {
	gps.Source
	Run(ctx context.Context) error
}

// RunGPSPower wires the GPS receiver, the power controller and the optional
// MQTT, web and display outputs, and runs until ctx is cancelled. On return
// the receiver has been powered off.
func RunGPSPower(ctx context.Context, logger zerolog.Logger) error {
	cfg := config.Get()
	log := logger.With().Str("component", "gps_power").Logger()

	// ---- 1) Enable line ----
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}
	pin := gpioreg.ByName(cfg.GPSEnablePin)
	if pin == nil {
		return fmt.Errorf("GPIO %q not found", cfg.GPSEnablePin)
	}
	polarity := power.ActiveLow
	if !cfg.GPSEnableActiveLow {
		polarity = power.ActiveHigh
	}
	timers := timer.Runtime{}
	ctrl, err := power.NewController(pin, polarity, timers, logger)
	if err != nil {
		return err
	}

	// ---- 2) State and fix source ----
	store, err := state.NewStore(gps.Location{Latitude: cfg.SpawnLatitude, Longitude: cfg.SpawnLongitude})
	if err != nil {
		return err
	}
	src, err := newFixSource(cfg, logger)
	if err != nil {
		return err
	}

	// ---- 3) Outputs ----
	hub := NewStatusHub(store, logger)
	if cfg.MQTTBroker != "" {
		client, err := ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDGPS)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		log.Info().Str("broker", cfg.MQTTBroker).Msg("connected to MQTT broker")

		hub.AddPublisher(NewMQTTStatusPublisher(client, cfg.TopicGPSStatus, logger))
		if cfg.TopicGPSSpawn != "" {
			if err := SubscribeSpawn(client, cfg.TopicGPSSpawn, store, logger); err != nil {
				return err
			}
		}
	}

	// ---- 4) Pipeline ----
	trk, err := tracker.New(src, store, ctrl, timers, logger, tracker.Options{
		DetectTimeout: cfg.GPSDetectTimeout,
		Reporter:      hub,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if err := trk.Init(gctx); err != nil {
		return fmt.Errorf("GPS init: %w", err)
	}
	defer func() {
		trk.Close()
		if err := trk.Disable(); err != nil {
			log.Error().Err(err).Msg("disable on shutdown")
		}
		log.Info().Uint64("dropped", trk.Queue().Dropped()).Msg("GPS stopped")
	}()

	g.Go(func() error {
		err := src.Run(gctx)
		if gctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errors.New("GPS source closed")
		}
		return err
	})

	if cfg.WebServerPort > 0 {
		web := NewWebServer(store, hub, logger)
		g.Go(func() error {
			return web.Run(gctx, ":"+strconv.Itoa(cfg.WebServerPort))
		})
	}

	if cfg.DisplayEnabled {
		display := NewDisplay(hub, cfg.DisplayI2CBus, cfg.DisplayI2CAddr, cfg.DisplayUpdateInterval, logger)
		g.Go(func() error {
			// the display is optional; losing it does not stop the pipeline
			if err := display.Run(gctx); err != nil {
				log.Warn().Err(err).Msg("display stopped")
			}
			return nil
		})
	}

	return g.Wait()
}

func newFixSource(cfg *config.Config, logger zerolog.Logger) (fixSource, error) {
	switch cfg.GPSSource {
	case "mock":
		origin := gps.Location{Latitude: cfg.SpawnLatitude, Longitude: cfg.SpawnLongitude}
		return gps.NewMockSource(origin, cfg.MockSpeedKmh, cfg.MockBearingDeg, cfg.MockFixInterval), nil
	case "nmea":
		port, err := gps.OpenSerial(cfg.GPSSerialPort, cfg.GPSBaudRate)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("port", cfg.GPSSerialPort).Int("baud", cfg.GPSBaudRate).Msg("GPS serial port opened")
		return gps.NewNMEASource(port, logger), nil
	default:
		return nil, fmt.Errorf("unknown GPS source %q", cfg.GPSSource)
	}
}
