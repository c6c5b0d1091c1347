package tracking

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"geotrail/internal/adapter/source"
	"geotrail/internal/domain"
	"geotrail/internal/geo"
	"geotrail/internal/history"
)

type subscription struct {
	id      uint64
	handler domain.SampleHandler
}

// Session is the composition root binding controller output to the
// history store and to subscriber callbacks. It owns the only mutable
// shared state (the history store) and guarantees that for any
// accepted sample the history append happens before subscribers run —
// a subscriber reading history synchronously always sees the sample
// that triggered it. Subscriber callbacks run outside the controller
// mutex, so a handler may read the session's public surface or stop
// the watch from inside its callback.
type Session struct {
	id         string
	controller *Controller
	store      *history.Store
	logger     *slog.Logger

	mu      sync.RWMutex
	current *domain.PositionSample
	subs    []subscription
	nextSub uint64
}

// NewSession hydrates the store and wires a controller over the given
// source. The session is ready to use immediately; no goroutines run
// until a watch is started.
func NewSession(src source.PositionSource, store *history.Store, cfg ControllerConfig, logger *slog.Logger) *Session {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	s := &Session{
		id:     ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String(),
		store:  store,
		logger: logger,
	}
	s.controller = NewController(src, cfg, logger, Sinks{
		Commit:  s.commit,
		Notify:  s.notify,
		Failure: s.fail,
	})
	store.Hydrate()
	s.logger.Info("tracking session ready",
		"session_id", s.id,
		"source", src.Name(),
		"history_len", store.Len(),
		"history_capacity", store.Capacity(),
	)
	return s
}

// ID returns the session's ULID.
func (s *Session) ID() string { return s.id }

// commit is the controller's Commit sink: append to history and
// publish the new current sample. It runs under the controller mutex
// and must not call back into the controller.
func (s *Session) commit(sample domain.PositionSample) {
	s.store.Append(sample)

	s.mu.Lock()
	cp := sample
	s.current = &cp
	s.mu.Unlock()
}

// notify is the controller's Notify sink: run subscriber callbacks in
// registration order, after the sample was committed.
func (s *Session) notify(sample domain.PositionSample) {
	s.mu.RLock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()

	for _, sub := range subs {
		sub.handler(sample)
	}
}

// fail is the controller's failure sink; failures are surfaced via
// LastFailure, subscribers are not invoked.
func (s *Session) fail(failure *domain.Failure) {
	s.logger.Debug("session observed failure", "session_id", s.id, "kind", string(failure.Kind()))
}

// OnLocationUpdate registers a subscriber for accepted samples.
// Subscribers run synchronously in registration order, after the
// sample is in history. Returns an unsubscribe function.
func (s *Session) OnLocationUpdate(handler domain.SampleHandler) func() {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscription{id: id, handler: handler})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Current returns the most recently accepted sample, if any.
func (s *Session) Current() (domain.PositionSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.PositionSample{}, false
	}
	return *s.current, true
}

// History returns a point-in-time copy of the trail.
func (s *Session) History() []domain.PositionSample {
	return s.store.Snapshot()
}

// Stats derives the trail statistics from the current history.
func (s *Session) Stats() geo.TrailStats {
	return geo.Stats(s.store.Snapshot())
}

// State returns the controller's acquisition state.
func (s *Session) State() domain.AcquisitionState { return s.controller.State() }

// Permission returns the last known permission state.
func (s *Session) Permission() domain.PermissionState { return s.controller.Permission() }

// LastFailure returns the last recorded failure, or nil.
func (s *Session) LastFailure() *domain.Failure { return s.controller.LastFailure() }

// RequestPermission queries or infers the platform permission state.
func (s *Session) RequestPermission(ctx context.Context) domain.PermissionState {
	return s.controller.RequestPermission(ctx)
}

// GetCurrentPosition performs a single fetch; the accepted sample is
// in history when the call returns.
func (s *Session) GetCurrentPosition(ctx context.Context) (domain.PositionSample, error) {
	return s.controller.GetCurrentPosition(ctx)
}

// StartWatching opens the continuous watch.
func (s *Session) StartWatching(ctx context.Context) domain.AcquisitionState {
	return s.controller.StartWatching(ctx)
}

// StopWatching cancels the watch; no sample for the cancelled
// subscription is appended after it returns.
func (s *Session) StopWatching() { s.controller.StopWatching() }

// ClearError clears the last recorded failure.
func (s *Session) ClearError() { s.controller.ClearError() }

// ClearHistory empties the trail and persists the empty state.
func (s *Session) ClearHistory() {
	s.store.Clear()
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}
