// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/gps_power/internal/state"
	"github.com/relabs-tech/gps_power/internal/tracker"
)

// Status is the JSON document published for every processed fix.
type Status struct {
	tracker.Report
	Detected bool         `json:"detected"`
	Source   state.Source `json:"source"`
}

// Publisher forwards encoded status documents somewhere (MQTT).
type Publisher interface {
	PublishStatus(payload []byte)
}

// StatusClient is one websocket subscriber.
type StatusClient struct {
	Send chan []byte
}

// StatusHub keeps the latest status and fans it out to websocket clients,
// publishers and the display. It implements tracker.Reporter.
type StatusHub struct {
	store *state.Store
	log   zerolog.Logger

	mu         sync.RWMutex
	last       Status
	haveLast   bool
	clients    map[*StatusClient]struct{}
	publishers []Publisher
}

func NewStatusHub(store *state.Store, logger zerolog.Logger) *StatusHub {
	return &StatusHub{
		store:   store,
		log:     logger.With().Str("component", "status").Logger(),
		clients: map[*StatusClient]struct{}{},
	}
}

// AddPublisher registers p for every future report.
func (h *StatusHub) AddPublisher(p Publisher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publishers = append(h.publishers, p)
}

// Report implements tracker.Reporter. It never blocks on slow clients.
func (h *StatusHub) Report(r tracker.Report) {
	st := Status{
		Report:   r,
		Detected: h.store.DetectGPS(),
		Source:   h.store.SubscribeSource(),
	}
	payload, err := json.Marshal(st)
	if err != nil {
		h.log.Error().Err(err).Msg("status marshal")
		return
	}

	h.mu.Lock()
	h.last = st
	h.haveLast = true
	publishers := append([]Publisher(nil), h.publishers...)
	h.mu.Unlock()

	h.broadcast(payload)
	for _, p := range publishers {
		p.PublishStatus(payload)
	}
}

// Latest returns the last status, if any fix has been processed.
func (h *StatusHub) Latest() (Status, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last, h.haveLast
}

// Register adds a websocket client. The latest status, if any, is queued
// immediately so new clients do not wait for the next fix.
func (h *StatusHub) Register() *StatusClient {
	c := &StatusClient{Send: make(chan []byte, 16)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if h.haveLast {
		if payload, err := json.Marshal(h.last); err == nil {
			c.Send <- payload
		}
	}
	return c
}

// Unregister removes c and closes its channel.
func (h *StatusHub) Unregister(c *StatusClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.Send)
}

func (h *StatusHub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.Send <- payload:
		default:
			// slow client, skip this update
		}
	}
}
