// Package services orchestrates tracking sessions over the ports.
package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/platform/obs"
	"delivery-tracking-service/internal/ports"
	"delivery-tracking-service/internal/tracking"
)

// One live shift: the controller plus the push-fed source feeding it.
type session struct {
	id         string
	vehicleID  string
	date       time.Time
	controller *tracking.Controller
	source     ports.PushableSource
	cancel     context.CancelFunc
}

// SessionManager owns the registry of active tracking sessions. One session
// per vehicle at a time; ending a session cancels its subscription and any
// in-flight route computation and discards its state.
type SessionManager struct {
	repo      ports.DeliveryRepository
	optimizer ports.RouteOptimizer
	reporter  ports.PositionReporter
	newSource func() ports.PushableSource
	cfg       tracking.Config

	mu        sync.Mutex
	sessions  map[string]*session
	byVehicle map[string]string
}

func NewSessionManager(
	repo ports.DeliveryRepository,
	optimizer ports.RouteOptimizer,
	reporter ports.PositionReporter,
	newSource func() ports.PushableSource,
	cfg tracking.Config,
) *SessionManager {
	return &SessionManager{
		repo:      repo,
		optimizer: optimizer,
		reporter:  reporter,
		newSource: newSource,
		cfg:       cfg,
		sessions:  map[string]*session{},
		byVehicle: map[string]string{},
	}
}

// StartSession loads the day's assignment for a scanned vehicle and begins
// tracking it. Returns the new session id with the initial snapshot.
func (m *SessionManager) StartSession(ctx context.Context, vehicleID string, date time.Time) (tracking.Snapshot, error) {
	assignment, err := m.repo.GetAssignment(ctx, vehicleID, date)
	if err != nil {
		return tracking.Snapshot{}, fmt.Errorf("start session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byVehicle[vehicleID]; ok {
		return tracking.Snapshot{}, fmt.Errorf(
			"start session: vehicle %q already tracked by session %s", vehicleID, existing,
		)
	}

	id := uuid.NewString()
	src := m.newSource()
	ctrl := tracking.NewController(id, assignment, src, m.optimizer, m.reporter, m.cfg)

	runCtx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:         id,
		vehicleID:  vehicleID,
		date:       date,
		controller: ctrl,
		source:     src,
		cancel:     cancel,
	}
	m.sessions[id] = s
	m.byVehicle[vehicleID] = id

	go func() {
		if err := ctrl.Run(runCtx); err != nil && runCtx.Err() == nil {
			log.Printf("session=%s controller stopped: %v", id, err)
		}
	}()

	return ctrl.Snapshot(), nil
}

func (m *SessionManager) get(sessionID string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ports.ErrSessionNotFound
	}
	return s, nil
}

// Snapshot returns the current state of a session.
func (m *SessionManager) Snapshot(sessionID string) (tracking.Snapshot, error) {
	s, err := m.get(sessionID)
	if err != nil {
		return tracking.Snapshot{}, err
	}
	return s.controller.Snapshot(), nil
}

// PushLocation feeds one device fix into the session's location source.
// Returns whether the fix cleared the sampling policy.
func (m *SessionManager) PushLocation(sessionID string, sample domain.LocationSample) (bool, error) {
	s, err := m.get(sessionID)
	if err != nil {
		return false, err
	}
	return s.source.Push(sample), nil
}

// ReportLocationUnavailable relays a denied positioning permission from the
// device. The session stays alive awaiting location; retry is a UI concern.
func (m *SessionManager) ReportLocationUnavailable(sessionID string) error {
	s, err := m.get(sessionID)
	if err != nil {
		return err
	}
	s.source.MarkUnavailable()
	return nil
}

// Refresh re-fetches the delivery set from the assignment backend and installs
// it into the live session.
func (m *SessionManager) Refresh(ctx context.Context, sessionID string) (tracking.Snapshot, error) {
	s, err := m.get(sessionID)
	if err != nil {
		return tracking.Snapshot{}, err
	}

	assignment, err := m.repo.GetAssignment(obs.WithSession(ctx, sessionID), s.vehicleID, s.date)
	if err != nil {
		return tracking.Snapshot{}, fmt.Errorf("refresh session %s: %w", sessionID, err)
	}

	if err := s.controller.ReplaceDeliveries(ctx, assignment.Deliveries); err != nil {
		return tracking.Snapshot{}, fmt.Errorf("refresh session %s: %w", sessionID, err)
	}
	return s.controller.Snapshot(), nil
}

// SetDeliveryStatus records a delivery confirmation in the backend and in the
// live session.
func (m *SessionManager) SetDeliveryStatus(
	ctx context.Context,
	sessionID, deliveryID string,
	status domain.DeliveryStatus,
) (tracking.Snapshot, error) {
	s, err := m.get(sessionID)
	if err != nil {
		return tracking.Snapshot{}, err
	}

	if err := m.repo.UpdateDeliveryStatus(obs.WithSession(ctx, sessionID), deliveryID, status); err != nil {
		return tracking.Snapshot{}, fmt.Errorf("set delivery status: %w", err)
	}
	if err := s.controller.SetDeliveryStatus(ctx, deliveryID, status); err != nil {
		return tracking.Snapshot{}, fmt.Errorf("set delivery status: %w", err)
	}
	return s.controller.Snapshot(), nil
}

// EndSession closes the shift: cancels the subscription and any in-flight
// route call, and discards the session state.
func (m *SessionManager) EndSession(sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
		delete(m.byVehicle, s.vehicleID)
	}
	m.mu.Unlock()

	if !ok {
		return ports.ErrSessionNotFound
	}
	s.cancel()
	return nil
}

// Close ends every active session. Used on server shutdown.
func (m *SessionManager) Close() {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = map[string]*session{}
	m.byVehicle = map[string]string{}
	m.mu.Unlock()

	for _, s := range sessions {
		s.cancel()
	}
}
