// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package tracker

import (
	"github.com/rs/zerolog"

	"github.com/relabs-tech/gps_power/internal/gps"
)

// Detector records that a receiver is present. Implementations must not
// block.
type Detector interface {
	SetDetectGPS(bool)
}

// EventHandler is the fast path registered with the fix source. It runs on
// the source's dispatch goroutine: a flag store, a comparison and a
// non-blocking enqueue, nothing else.
type EventHandler struct {
	detector Detector
	queue    *FixQueue
	log      zerolog.Logger
}

func NewEventHandler(detector Detector, queue *FixQueue, logger zerolog.Logger) *EventHandler {
	return &EventHandler{
		detector: detector,
		queue:    queue,
		log:      logger.With().Str("component", "gps-handler").Logger(),
	}
}

// HandleFix implements gps.Handler.
func (h *EventHandler) HandleFix(f gps.Fix) {
	// any parsed sentence proves the receiver is wired up and talking
	h.detector.SetDetectGPS(true)

	if f.Latitude == 0 && f.Longitude == 0 {
		h.log.Debug().Bool("valid", f.Valid).Msg("placeholder fix (0,0), not forwarded")
		return
	}

	if e := h.log.Debug(); e.Enabled() {
		e.Bool("valid", f.Valid).
			Str("date", f.Date).
			Str("time", f.Time).
			Float64("lat", f.Latitude).
			Float64("lon", f.Longitude).
			Float64("alt", f.Altitude).
			Float64("speed_knots", f.SpeedKnots).
			Msg("fix")
	}

	// drop on backpressure
	_ = h.queue.TrySend(f.Sample())
}
