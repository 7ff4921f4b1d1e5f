package gps

import (
	"context"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestIsValidGPSLocation(t *testing.T) {
	cases := []struct {
		loc  Location
		want bool
	}{
		{Location{91, 0}, false},
		{Location{45, -180}, true},
		{Location{-90, 180}, true},
		{Location{-90.0001, 0}, false},
		{Location{0, 180.5}, false},
		{Location{0, 0}, true},
	}
	for _, c := range cases {
		if got := IsValidGPSLocation(c.loc); got != c.want {
			t.Fatalf("IsValidGPSLocation(%+v) = %v, want %v", c.loc, got, c.want)
		}
	}
}

func TestHaversineKm(t *testing.T) {
	// Jakarta (-6.2, 106.816) to Bandung (-6.9175, 107.6191) ~ 115-120 km
	d := HaversineKm(-6.2, 106.816, -6.9175, 107.6191)
	if d < 100 || d > 140 {
		t.Fatalf("unexpected distance: %v", d)
	}
	if HaversineKm(10, 10, 10, 10) != 0 {
		t.Fatalf("expected zero distance for identical points")
	}
}

func TestDestinationRoundTrip(t *testing.T) {
	for _, km := range []float64{1, 55, 120, 210} {
		lat, lon := Destination(48.1, 11.5, 90, km)
		got := HaversineKm(48.1, 11.5, lat, lon)
		if math.Abs(got-km) > 0.01 {
			t.Fatalf("Destination %v km: haversine back = %v", km, got)
		}
	}
}

type recorder struct {
	fixes []Fix
}

func (r *recorder) HandleFix(f Fix) { r.fixes = append(r.fixes, f) }

func TestDispatcherRegisterUnregister(t *testing.T) {
	var d Dispatcher
	a := &recorder{}
	b := &recorder{}

	d.Register(a)
	d.Register(a)
	d.Register(b)
	if d.Len() != 2 {
		t.Fatalf("expected 2 handlers, got %d", d.Len())
	}

	d.Dispatch(Fix{Latitude: 1})
	d.Unregister(a)
	d.Unregister(a)
	d.Dispatch(Fix{Latitude: 2})

	if len(a.fixes) != 1 || a.fixes[0].Latitude != 1 {
		t.Fatalf("unexpected fixes for a: %+v", a.fixes)
	}
	if len(b.fixes) != 2 {
		t.Fatalf("expected 2 fixes for b, got %d", len(b.fixes))
	}
}

const nmeaLog = "garbage line\r\n" +
	"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*00\r\n" + // bad checksum
	"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\r\n" +
	"$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A\r\n" +
	"\r\n" +
	"$GPRMC,123521,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*61\r\n"

func TestNMEASourceDispatchesRMC(t *testing.T) {
	src := NewNMEASource(io.NopCloser(strings.NewReader(nmeaLog)), zerolog.Nop())
	rec := &recorder{}
	src.Register(rec)

	if err := src.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(rec.fixes) != 2 {
		t.Fatalf("expected 2 fixes, got %d: %+v", len(rec.fixes), rec.fixes)
	}
	f := rec.fixes[0]
	if !f.Valid {
		t.Fatalf("expected valid fix")
	}
	if math.Abs(f.Latitude-48.1173) > 1e-4 || math.Abs(f.Longitude-11.516666) > 1e-4 {
		t.Fatalf("unexpected position %v,%v", f.Latitude, f.Longitude)
	}
	if f.Altitude != 545.4 {
		t.Fatalf("expected altitude from GGA, got %v", f.Altitude)
	}
	if f.SpeedKnots != 22.4 || f.CourseDeg != 84.4 {
		t.Fatalf("unexpected speed/course %v/%v", f.SpeedKnots, f.CourseDeg)
	}
	if f.Sample() != (Sample{Latitude: f.Latitude, Longitude: f.Longitude, Valid: true}) {
		t.Fatalf("unexpected sample %+v", f.Sample())
	}
}

func TestMockSourceMovesAwayFromOrigin(t *testing.T) {
	origin := Location{Latitude: 48.1, Longitude: 11.5}
	m := NewMockSource(origin, 60, 90, time.Second)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	first := m.Next()
	if math.Abs(first.Latitude-origin.Latitude) > 1e-9 || math.Abs(first.Longitude-origin.Longitude) > 1e-9 {
		t.Fatalf("first fix should be at origin, got %+v", first)
	}

	now = now.Add(time.Hour)
	f := m.Next()
	d := HaversineKm(origin.Latitude, origin.Longitude, f.Latitude, f.Longitude)
	if math.Abs(d-60) > 0.01 {
		t.Fatalf("expected 60 km after one hour, got %v", d)
	}
	if !f.Valid {
		t.Fatalf("mock fixes must be valid")
	}
}
