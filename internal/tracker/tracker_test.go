package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"

	"github.com/relabs-tech/gps_power/internal/gps"
	"github.com/relabs-tech/gps_power/internal/power"
)

func newTracker(t *testing.T, f *fixture) (*Tracker, *gps.Dispatcher) {
	t.Helper()
	src := &gps.Dispatcher{}
	tr, err := New(src, f.store, f.ctrl, f.timers, zerolog.Nop(), Options{
		DetectTimeout: 5 * time.Second,
		Distance:      f.dist.fn,
		Reporter:      f.reports,
	})
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	t.Cleanup(tr.Close)
	return tr, src
}

func TestInitRegistersAndArmsDetection(t *testing.T) {
	f := newFixture(t)
	tr, src := newTracker(t, f)

	if err := tr.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := tr.Init(context.Background()); err != nil {
		t.Fatalf("second init: %v", err)
	}
	if src.Len() != 1 {
		t.Fatalf("expected one registered handler, got %d", src.Len())
	}
	if f.pin.Read() != gpio.Low {
		t.Fatalf("init should power the GPS on")
	}
	dt := f.timers.Timer(DetectTimerName)
	if dt == nil || !dt.IsActive() || dt.Duration() != 5*time.Second {
		t.Fatalf("detection timer not armed")
	}
}

func TestDetectionTimeoutDisablesWithoutFix(t *testing.T) {
	f := newFixture(t)
	tr, src := newTracker(t, f)
	if err := tr.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	f.timers.Timer(DetectTimerName).Fire()

	if f.pin.Read() != gpio.High || f.ctrl.State().Enabled {
		t.Fatalf("GPS should be powered off after detection timeout")
	}
	if src.Len() != 0 {
		t.Fatalf("handler should be unregistered")
	}
}

func TestDetectionTimeoutKeepsDetectedGPS(t *testing.T) {
	f := newFixture(t)
	tr, src := newTracker(t, f)
	if err := tr.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	// a placeholder fix still proves the receiver is there
	src.Dispatch(gps.Fix{})
	f.timers.Timer(DetectTimerName).Fire()

	if f.pin.Read() != gpio.Low || src.Len() != 1 {
		t.Fatalf("detected GPS must stay powered and registered")
	}
}

func TestEndToEndSleepDecision(t *testing.T) {
	f := newFixture(t)
	tr, src := newTracker(t, f)
	if err := tr.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	f.dist.km = 120
	src.Dispatch(gps.Fix{Latitude: 49.2, Longitude: 12.1, Valid: true})

	rep := f.reports.next(t)
	if rep.Decision == nil || rep.Decision.SleepIntervalSeconds != 300 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if rep.Location != (gps.Location{Latitude: 49.2, Longitude: 12.1}) {
		t.Fatalf("unexpected location %+v", rep.Location)
	}
	st := f.timers.Timer(power.SleepTimerName)
	if !st.IsActive() || st.Duration() != 300*time.Second {
		t.Fatalf("expected pending 300s sleep")
	}
	if !f.store.DetectGPS() {
		t.Fatalf("expected GPS detected")
	}
}

func TestDisableIsIdempotent(t *testing.T) {
	f := newFixture(t)
	tr, src := newTracker(t, f)
	if err := tr.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	f.ctrl.ScheduleSleep(300)

	for i := 0; i < 2; i++ {
		if err := tr.Disable(); err != nil {
			t.Fatalf("disable #%d: %v", i+1, err)
		}
		if f.pin.Read() != gpio.High || f.ctrl.State().Enabled {
			t.Fatalf("disable #%d: GPS should be off", i+1)
		}
	}
	if src.Len() != 0 {
		t.Fatalf("handler should be unregistered")
	}
	if f.timers.Timer(power.SleepTimerName).IsActive() {
		t.Fatalf("sleep timer should be cancelled")
	}

	var never Tracker
	if err := never.Disable(); err != nil {
		t.Fatalf("disable before init: %v", err)
	}
}

func TestInitFailsOnTimerError(t *testing.T) {
	f := newFixture(t)
	tr, _ := newTracker(t, f)
	f.timers.StartErr = errors.New("timer broken")

	if err := tr.Init(context.Background()); err == nil {
		t.Fatalf("expected init to fail when the detection timer cannot start")
	}
}

func TestNewRejectsInvalidPolicy(t *testing.T) {
	f := newFixture(t)
	_, err := New(&gps.Dispatcher{}, f.store, f.ctrl, f.timers, zerolog.Nop(), Options{
		Policy: power.Policy{{DistanceThresholdKm: 50}, {DistanceThresholdKm: 10}},
	})
	if err == nil {
		t.Fatalf("expected invalid policy error")
	}
}
