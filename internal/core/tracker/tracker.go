// Package tracker keeps the ephemeral live state of active drivers: their
// last-known position and a per-driver reconciliation loop that refreshes
// the dispatch view on an interval or on demand. Nothing here touches
// storage; positions die with the process.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/matjarly/dispatch-core/internal/api/metrics"
	"github.com/matjarly/dispatch-core/internal/core/domain"
)

const defaultRefreshInterval = 30 * time.Second

// RefreshFunc is called by a session loop whenever the driver's dispatch
// view should be recomputed and pushed.
type RefreshFunc func(ctx context.Context)

type session struct {
	cancel  context.CancelFunc
	trigger chan struct{}
}

// Manager owns one tracking session per connected driver.
type Manager struct {
	interval time.Duration
	// monotonic rejects position samples older than the stored one.
	// Disabled it degrades to pure last-write-wins.
	monotonic bool
	log       zerolog.Logger

	mu        sync.RWMutex
	sessions  map[string]*session
	positions map[string]domain.DriverLocationSample
	wg        sync.WaitGroup
}

func NewManager(interval time.Duration, monotonic bool, log zerolog.Logger) *Manager {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Manager{
		interval:  interval,
		monotonic: monotonic,
		log:       log,
		sessions:  make(map[string]*session),
		positions: make(map[string]domain.DriverLocationSample),
	}
}

// Start opens a tracking session for the driver and spawns its refresh
// loop. An existing session for the same driver is replaced: the old loop
// is cancelled before the new one starts, so a reconnect never leaves two
// loops pushing to the same driver.
func (m *Manager) Start(ctx context.Context, driverID string, refresh RefreshFunc) {
	m.mu.Lock()
	if old, ok := m.sessions[driverID]; ok {
		old.cancel()
	} else {
		metrics.TrackerActiveSessions.Inc()
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &session{cancel: cancel, trigger: make(chan struct{}, 1)}
	m.sessions[driverID] = s
	m.mu.Unlock()

	m.log.Info().Str("driver_id", driverID).Msg("tracking session started")

	m.wg.Add(1)
	go m.run(ctx, driverID, s, refresh)
}

func (m *Manager) run(ctx context.Context, driverID string, s *session, refresh RefreshFunc) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// push the current view immediately on connect
	refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.OrderListRefreshTotal.WithLabelValues("interval").Inc()
			refresh(ctx)
		case <-s.trigger:
			metrics.OrderListRefreshTotal.WithLabelValues("event").Inc()
			refresh(ctx)
		}
	}
}

// Stop ends the driver's session and drops the stored position. Stopping
// an unknown driver is a no-op.
func (m *Manager) Stop(driverID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[driverID]
	if !ok {
		return
	}
	s.cancel()
	delete(m.sessions, driverID)
	delete(m.positions, driverID)
	metrics.TrackerActiveSessions.Dec()

	m.log.Info().Str("driver_id", driverID).Msg("tracking session stopped")
}

// StopAll cancels every session and waits for the loops to exit. Used on
// shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	for id, s := range m.sessions {
		s.cancel()
		delete(m.sessions, id)
		metrics.TrackerActiveSessions.Dec()
	}
	m.positions = make(map[string]domain.DriverLocationSample)
	m.mu.Unlock()

	m.wg.Wait()
}

// Trigger requests an out-of-band refresh of the driver's view. The send
// is non-blocking: if a refresh is already pending the extra trigger is
// dropped, which is fine since the pending one will see the same state.
func (m *Manager) Trigger(driverID string) {
	m.mu.RLock()
	s, ok := m.sessions[driverID]
	m.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// UpdatePosition stores the driver's latest sample, last write wins. With
// the monotonic guard on, samples observed earlier than the stored one are
// dropped as stale. Returns whether the sample was applied.
func (m *Manager) UpdatePosition(sample domain.DriverLocationSample) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.monotonic {
		if cur, ok := m.positions[sample.DriverID]; ok && sample.ObservedAt.Before(cur.ObservedAt) {
			metrics.PositionUpdatesTotal.WithLabelValues("stale").Inc()
			return false
		}
	}

	m.positions[sample.DriverID] = sample
	metrics.PositionUpdatesTotal.WithLabelValues("applied").Inc()
	return true
}

// LastPosition implements ports.PositionSource.
func (m *Manager) LastPosition(driverID string) (domain.DriverLocationSample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sample, ok := m.positions[driverID]
	return sample, ok
}

// ActiveSessions reports how many drivers are currently tracked.
func (m *Manager) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
