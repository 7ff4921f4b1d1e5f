// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"
	"github.com/rs/zerolog"
)

// OpenSerial opens the GPS UART in 8N1 mode.
func OpenSerial(portName string, baudRate int) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open gps serial %s: %w", portName, err)
	}
	return port, nil
}

// NMEASource parses NMEA sentences from r and dispatches one Fix per RMC
// sentence. Altitude is taken from the most recent GGA.
type NMEASource struct {
	Dispatcher

	r   io.ReadCloser
	log zerolog.Logger

	closeOnce sync.Once
	current   Fix
}

// NewNMEASource wraps r. Run must be called to start reading.
func NewNMEASource(r io.ReadCloser, logger zerolog.Logger) *NMEASource {
	return &NMEASource{
		r:   r,
		log: logger.With().Str("component", "nmea").Logger(),
	}
}

// Run reads lines until the reader fails or ctx is cancelled. Cancelling
// ctx closes the underlying reader to unblock the pending read.
func (s *NMEASource) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-done:
		}
	}()

	reader := bufio.NewReader(s.r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			s.handleLine(line)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("gps read: %w", err)
		}
	}
}

// Close closes the underlying reader. Safe to call more than once.
func (s *NMEASource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.r.Close()
	})
	return err
}

func (s *NMEASource) handleLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	// NMEA sentences usually start with '$'
	if !strings.HasPrefix(line, "$") {
		return
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		// noisy GPS or partial sentences
		s.log.Debug().Err(err).Str("line", line).Msg("nmea parse error")
		return
	}

	switch sentence.DataType() {
	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		s.current.Altitude = m.Altitude

	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)

		s.current.Time = m.Time.String()
		s.current.Date = m.Date.String()
		s.current.Latitude = m.Latitude
		s.current.Longitude = m.Longitude
		s.current.SpeedKnots = m.Speed
		s.current.CourseDeg = m.Course
		s.current.Valid = m.Validity == nmea.ValidRMC

		s.Dispatch(s.current)

	default:
		// GSA, GSV, VTG etc. carry nothing the power logic needs
	}
}
