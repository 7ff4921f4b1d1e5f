// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/gps_power/internal/gps"
	"github.com/relabs-tech/gps_power/internal/state"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

const wsWriteTimeout = 5 * time.Second

// WebServer exposes the spawn point and the status stream over HTTP.
type WebServer struct {
	store *state.Store
	hub   *StatusHub
	log   zerolog.Logger
}

func NewWebServer(store *state.Store, hub *StatusHub, logger zerolog.Logger) *WebServer {
	return &WebServer{
		store: store,
		hub:   hub,
		log:   logger.With().Str("component", "web").Logger(),
	}
}

// Handler returns the routes:
//
//	GET  /spawn                           current spawn point
//	POST /spawn?latitude=..&longitude=..  move the spawn point
//	GET  /api/status                      latest status report
//	GET  /ws/status                       status stream (websocket)
func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/spawn", s.handleSpawn)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws/status", s.handleStatusWS)
	return mux
}

// Run serves on addr until ctx is cancelled.
func (s *WebServer) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", addr).Msg("web server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

func (s *WebServer) handleSpawn(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.store.SpawnLocation(), s.log)

	case http.MethodPost:
		loc, err := parseLocation(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.store.SetSpawnLocation(loc); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.log.Info().Float64("lat", loc.Latitude).Float64("lon", loc.Longitude).Msg("spawn updated via HTTP")
		writeJSON(w, loc, s.log)

	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func parseLocation(r *http.Request) (gps.Location, error) {
	lat, err := strconv.ParseFloat(r.FormValue("latitude"), 64)
	if err != nil {
		return gps.Location{}, fmt.Errorf("invalid latitude %q", r.FormValue("latitude"))
	}
	lon, err := strconv.ParseFloat(r.FormValue("longitude"), 64)
	if err != nil {
		return gps.Location{}, fmt.Errorf("invalid longitude %q", r.FormValue("longitude"))
	}
	return gps.Location{Latitude: lat, Longitude: lon}, nil
}

func (s *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := s.hub.Latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, st, s.log)
}

// handleStatusWS pushes every status report to the client. The read loop
// only exists to notice the client going away.
func (s *WebServer) handleStatusWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade error")
		return
	}
	defer conn.Close()

	client := s.hub.Register()
	defer s.hub.Unregister(client)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.log.Debug().Err(err).Msg("websocket read error")
				}
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case payload, ok := <-client.Send:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.log.Debug().Err(err).Msg("websocket write error")
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("json encode error")
	}
}
