package state

import (
	"errors"
	"sync"
	"testing"

	"github.com/relabs-tech/gps_power/internal/gps"
)

func TestNewStoreValidatesSpawn(t *testing.T) {
	if _, err := NewStore(gps.Location{Latitude: 91}); !errors.Is(err, ErrInvalidLocation) {
		t.Fatalf("expected ErrInvalidLocation, got %v", err)
	}
	s, err := NewStore(gps.Location{Latitude: 48.1, Longitude: 11.5})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if s.SpawnLocation() != (gps.Location{Latitude: 48.1, Longitude: 11.5}) {
		t.Fatalf("unexpected spawn %+v", s.SpawnLocation())
	}
	if err := s.SetSpawnLocation(gps.Location{Longitude: -181}); err == nil {
		t.Fatalf("expected error for invalid spawn")
	}
	if s.SpawnLocation().Latitude != 48.1 {
		t.Fatalf("invalid spawn must not replace the old one")
	}
}

func TestStoreCurrentLocationAndSource(t *testing.T) {
	s := &Store{}
	if !s.UpdatedAt().IsZero() {
		t.Fatalf("expected zero update time")
	}
	s.SetCurrentLocation(gps.Location{Latitude: 1, Longitude: 2})
	s.SetSubscribeSource(SourceSensor)

	if s.CurrentLocation() != (gps.Location{Latitude: 1, Longitude: 2}) {
		t.Fatalf("unexpected current location %+v", s.CurrentLocation())
	}
	if s.SubscribeSource() != SourceSensor || s.SubscribeSource().String() != "sensor" {
		t.Fatalf("unexpected source %v", s.SubscribeSource())
	}
	if s.UpdatedAt().IsZero() {
		t.Fatalf("expected update time to be set")
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := &Store{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.SetCurrentLocation(gps.Location{Latitude: float64(i)})
				s.SetDetectGPS(true)
				_ = s.CurrentLocation()
				_ = s.DetectGPS()
			}
		}(i)
	}
	wg.Wait()
	if !s.DetectGPS() {
		t.Fatalf("expected GPS detected")
	}
}

func TestSourceTextRoundTrip(t *testing.T) {
	for _, src := range []Source{SourceNone, SourceSensor, SourceManual} {
		text, err := src.MarshalText()
		if err != nil {
			t.Fatalf("marshal %v: %v", src, err)
		}
		var got Source
		if err := got.UnmarshalText(text); err != nil || got != src {
			t.Fatalf("round trip %v: got %v, %v", src, got, err)
		}
	}
	var s Source
	if err := s.UnmarshalText([]byte("gnss")); err == nil {
		t.Fatalf("expected error for unknown source")
	}
}
