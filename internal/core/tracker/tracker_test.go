package tracker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/matjarly/dispatch-core/internal/core/domain"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestManager_StartRefreshesImmediately(t *testing.T) {
	m := NewManager(time.Hour, true, zerolog.Nop())
	defer m.StopAll()

	var calls atomic.Int32
	m.Start(context.Background(), "driver-1", func(context.Context) { calls.Add(1) })

	waitFor(t, func() bool { return calls.Load() == 1 }, "expected initial refresh on connect")
	if m.ActiveSessions() != 1 {
		t.Fatalf("sessions = %d, want 1", m.ActiveSessions())
	}
}

func TestManager_TriggerCausesRefresh(t *testing.T) {
	m := NewManager(time.Hour, true, zerolog.Nop())
	defer m.StopAll()

	var calls atomic.Int32
	m.Start(context.Background(), "driver-1", func(context.Context) { calls.Add(1) })
	waitFor(t, func() bool { return calls.Load() == 1 }, "initial refresh")

	m.Trigger("driver-1")
	waitFor(t, func() bool { return calls.Load() == 2 }, "expected refresh after trigger")

	// triggering an unknown driver must not panic or block
	m.Trigger("nobody")
}

func TestManager_IntervalRefresh(t *testing.T) {
	m := NewManager(20*time.Millisecond, true, zerolog.Nop())
	defer m.StopAll()

	var calls atomic.Int32
	m.Start(context.Background(), "driver-1", func(context.Context) { calls.Add(1) })

	waitFor(t, func() bool { return calls.Load() >= 3 }, "expected periodic refreshes")
}

func TestManager_RestartReplacesSession(t *testing.T) {
	m := NewManager(time.Hour, true, zerolog.Nop())
	defer m.StopAll()

	var first, second atomic.Int32
	m.Start(context.Background(), "driver-1", func(context.Context) { first.Add(1) })
	waitFor(t, func() bool { return first.Load() == 1 }, "first session refresh")

	m.Start(context.Background(), "driver-1", func(context.Context) { second.Add(1) })
	waitFor(t, func() bool { return second.Load() == 1 }, "second session refresh")

	if m.ActiveSessions() != 1 {
		t.Fatalf("sessions = %d, want 1 after reconnect", m.ActiveSessions())
	}

	// old loop is dead: triggering only reaches the new one
	m.Trigger("driver-1")
	waitFor(t, func() bool { return second.Load() == 2 }, "trigger must reach replacement session")
	if got := first.Load(); got != 1 {
		t.Fatalf("old session refreshed %d times, want 1", got)
	}
}

func TestManager_StopDropsSessionAndPosition(t *testing.T) {
	m := NewManager(time.Hour, true, zerolog.Nop())
	m.Start(context.Background(), "driver-1", func(context.Context) {})
	m.UpdatePosition(domain.DriverLocationSample{
		DriverID:   "driver-1",
		Point:      domain.GeoPoint{Lat: 24.7136, Lng: 46.6753},
		ObservedAt: time.Now(),
	})

	m.Stop("driver-1")

	if m.ActiveSessions() != 0 {
		t.Fatalf("sessions = %d, want 0", m.ActiveSessions())
	}
	if _, ok := m.LastPosition("driver-1"); ok {
		t.Fatal("position must be dropped with the session")
	}

	// stopping again is a no-op
	m.Stop("driver-1")
}

func TestManager_UpdatePositionLastWriteWins(t *testing.T) {
	m := NewManager(time.Hour, true, zerolog.Nop())

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	if !m.UpdatePosition(domain.DriverLocationSample{DriverID: "d1", Point: domain.GeoPoint{Lat: 1, Lng: 1}, ObservedAt: base}) {
		t.Fatal("first sample must apply")
	}
	if !m.UpdatePosition(domain.DriverLocationSample{DriverID: "d1", Point: domain.GeoPoint{Lat: 2, Lng: 2}, ObservedAt: base.Add(time.Second)}) {
		t.Fatal("newer sample must apply")
	}

	got, ok := m.LastPosition("d1")
	if !ok || got.Point.Lat != 2 {
		t.Fatalf("position = %+v, want latest", got)
	}
}

func TestManager_MonotonicGuardRejectsStale(t *testing.T) {
	m := NewManager(time.Hour, true, zerolog.Nop())

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	m.UpdatePosition(domain.DriverLocationSample{DriverID: "d1", Point: domain.GeoPoint{Lat: 2, Lng: 2}, ObservedAt: base})

	if m.UpdatePosition(domain.DriverLocationSample{DriverID: "d1", Point: domain.GeoPoint{Lat: 1, Lng: 1}, ObservedAt: base.Add(-time.Minute)}) {
		t.Fatal("stale sample must be rejected with monotonic guard on")
	}
	got, _ := m.LastPosition("d1")
	if got.Point.Lat != 2 {
		t.Fatalf("stored position mutated by stale sample: %+v", got)
	}
}

func TestManager_MonotonicGuardOff(t *testing.T) {
	m := NewManager(time.Hour, false, zerolog.Nop())

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	m.UpdatePosition(domain.DriverLocationSample{DriverID: "d1", Point: domain.GeoPoint{Lat: 2, Lng: 2}, ObservedAt: base})

	if !m.UpdatePosition(domain.DriverLocationSample{DriverID: "d1", Point: domain.GeoPoint{Lat: 1, Lng: 1}, ObservedAt: base.Add(-time.Minute)}) {
		t.Fatal("guard off: every write must apply")
	}
	got, _ := m.LastPosition("d1")
	if got.Point.Lat != 1 {
		t.Fatalf("position = %+v, want last write", got)
	}
}

func TestManager_PositionWithoutSession(t *testing.T) {
	m := NewManager(time.Hour, true, zerolog.Nop())

	// HTTP location updates may land before the socket session opens
	m.UpdatePosition(domain.DriverLocationSample{DriverID: "d1", Point: domain.GeoPoint{Lat: 5, Lng: 5}, ObservedAt: time.Now()})
	if _, ok := m.LastPosition("d1"); !ok {
		t.Fatal("position must be stored even without an open session")
	}
}
