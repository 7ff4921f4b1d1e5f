// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

// Fix is a single parsed GPS fix as delivered by a Source.
type Fix struct {
	Time       string  `json:"time"`        // e.g. "12:34:56.0000"
	Date       string  `json:"date"`        // e.g. "06/12/25"
	Latitude   float64 `json:"lat"`         // decimal degrees
	Longitude  float64 `json:"lon"`         // decimal degrees
	Altitude   float64 `json:"alt_m"`       // from the last GGA, meters
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	CourseDeg  float64 `json:"course_deg"`  // course over ground
	Valid      bool    `json:"valid"`       // RMC status "A"
}

// Sample is the reduced form of a Fix that travels between the dispatch
// goroutine and the worker. It is always copied by value.
type Sample struct {
	Latitude  float64
	Longitude float64
	Valid     bool
}

// Sample returns the queueable part of the fix.
func (f Fix) Sample() Sample {
	return Sample{Latitude: f.Latitude, Longitude: f.Longitude, Valid: f.Valid}
}

// Location is a latitude/longitude pair in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IsValidGPSLocation reports whether l lies within the WGS84 coordinate
// ranges. Both bounds are inclusive.
func IsValidGPSLocation(l Location) bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}
