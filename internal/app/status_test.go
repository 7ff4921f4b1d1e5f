package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/gps_power/internal/gps"
	"github.com/relabs-tech/gps_power/internal/power"
	"github.com/relabs-tech/gps_power/internal/state"
	"github.com/relabs-tech/gps_power/internal/tracker"
)

type recordingPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (p *recordingPublisher) PublishStatus(payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
}

func newTestStore(t *testing.T) *state.Store {
	t.Helper()
	store, err := state.NewStore(gps.Location{Latitude: 48.0, Longitude: 11.0})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func sampleReport() tracker.Report {
	return tracker.Report{
		Location:   gps.Location{Latitude: 49.0, Longitude: 11.0},
		Spawn:      gps.Location{Latitude: 48.0, Longitude: 11.0},
		DistanceKm: 111.2,
		Decision:   &power.Decision{SleepIntervalSeconds: 600, ThresholdKm: 100, ModDistanceKm: 11.2},
		Power:      power.State{SleepTimerArmed: true, SleepIntervalSeconds: 600},
	}
}

func TestStatusHubLatest(t *testing.T) {
	store := newTestStore(t)
	hub := NewStatusHub(store, zerolog.Nop())

	if _, ok := hub.Latest(); ok {
		t.Fatalf("expected no status before the first report")
	}

	store.SetDetectGPS(true)
	store.SetSubscribeSource(state.SourceSensor)
	hub.Report(sampleReport())

	st, ok := hub.Latest()
	if !ok {
		t.Fatalf("expected a status after report")
	}
	if !st.Detected || st.Source != state.SourceSensor || st.DistanceKm != 111.2 {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestStatusHubPublishesJSON(t *testing.T) {
	store := newTestStore(t)
	hub := NewStatusHub(store, zerolog.Nop())
	pub := &recordingPublisher{}
	hub.AddPublisher(pub)

	hub.Report(sampleReport())

	if len(pub.payloads) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(pub.payloads))
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(pub.payloads[0], &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc["distance_km"] != 111.2 {
		t.Fatalf("expected flattened report fields, got %v", doc)
	}
	decision, ok := doc["decision"].(map[string]interface{})
	if !ok || decision["sleep_interval_s"] != float64(600) {
		t.Fatalf("unexpected decision %v", doc["decision"])
	}
}

func TestStatusHubClients(t *testing.T) {
	hub := NewStatusHub(newTestStore(t), zerolog.Nop())

	early := hub.Register()
	if len(early.Send) != 0 {
		t.Fatalf("expected no queued status before the first report")
	}

	hub.Report(sampleReport())
	if len(early.Send) != 1 {
		t.Fatalf("expected broadcast to registered client")
	}

	late := hub.Register()
	if len(late.Send) != 1 {
		t.Fatalf("expected latest status queued for new client")
	}

	hub.Unregister(early)
	if _, ok := <-early.Send; !ok {
		t.Fatalf("expected buffered status before close")
	}
	if _, ok := <-early.Send; ok {
		t.Fatalf("expected channel closed after unregister")
	}
	// second unregister is a no-op
	hub.Unregister(early)
}

func TestStatusHubSkipsSlowClient(t *testing.T) {
	hub := NewStatusHub(newTestStore(t), zerolog.Nop())
	c := hub.Register()
	for i := 0; i < cap(c.Send)+4; i++ {
		hub.Report(sampleReport())
	}
	if len(c.Send) != cap(c.Send) {
		t.Fatalf("expected full buffer, got %d", len(c.Send))
	}
}

func TestApplySpawnPayload(t *testing.T) {
	store := newTestStore(t)

	loc, err := applySpawnPayload(store, []byte(`{"latitude":52.52,"longitude":13.405}`))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if store.SpawnLocation() != loc || loc.Latitude != 52.52 {
		t.Fatalf("spawn not updated: %+v", store.SpawnLocation())
	}

	if _, err := applySpawnPayload(store, []byte(`{"latitude":95,"longitude":0}`)); !errors.Is(err, state.ErrInvalidLocation) {
		t.Fatalf("expected ErrInvalidLocation, got %v", err)
	}
	if _, err := applySpawnPayload(store, []byte(`not json`)); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
	if store.SpawnLocation() != loc {
		t.Fatalf("rejected payload must not change spawn")
	}
}

func TestFormatStatusLineFromPublishedJSON(t *testing.T) {
	store := newTestStore(t)
	hub := NewStatusHub(store, zerolog.Nop())
	pub := &recordingPublisher{}
	hub.AddPublisher(pub)
	store.SetSubscribeSource(state.SourceSensor)
	hub.Report(sampleReport())

	var st Status
	if err := json.Unmarshal(pub.payloads[0], &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.Source != state.SourceSensor {
		t.Fatalf("unexpected source %v", st.Source)
	}
	want := "[GPS ]  lat=49.000000 lon=11.000000 dist=111.20km power=off sleep=600s dropped=0"
	if got := formatStatusLine(st); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
