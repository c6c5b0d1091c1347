// Package tracking implements the acquisition state machine and the
// tracking session that composes it with the history store.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"geotrail/internal/adapter/source"
	"geotrail/internal/domain"
	"geotrail/internal/geo"
	"geotrail/internal/infra/tracer"
)

// Controller defaults.
const (
	defaultRequestTimeout = 10 * time.Second
)

// ErrAcquisitionBusy is returned when a single fetch is requested
// while another acquisition is active. It is not a location failure:
// it is never recorded as the last error and leaves all state
// unchanged.
var ErrAcquisitionBusy = fmt.Errorf("another acquisition is active")

// PermissionQuerier is implemented by position sources whose platform
// exposes a queryable permission status.
type PermissionQuerier interface {
	QueryPermission(ctx context.Context) (domain.PermissionState, error)
}

// ControllerConfig holds acquisition settings passed through to the
// position source on every request.
type ControllerConfig struct {
	HighAccuracy   bool
	RequestTimeout time.Duration
	MaxSampleAge   time.Duration
}

// Sinks receives the controller's output for an accepted sample or a
// recorded failure.
//
// Commit runs while the controller mutex is held, in the same critical
// section as the generation check that admitted the sample — so an
// append done in Commit is strictly ordered against StopWatching: once
// StopWatching returns, no Commit for the stopped subscription can run.
// Commit must not call back into the controller.
//
// Notify and Failure run after the controller mutex is released,
// serialized in admission order. Their handlers may freely call the
// controller's public surface (State, LastFailure, StopWatching, ...).
type Sinks struct {
	Commit  domain.SampleHandler
	Notify  domain.SampleHandler
	Failure domain.FailureHandler
}

// Controller is the permission/acquisition state machine over a
// PositionSource. Delivered events are validated and committed under a
// single mutex; sinks other than Commit run outside it so handlers can
// read or drive the controller without deadlocking.
type Controller struct {
	src    source.PositionSource
	cfg    ControllerConfig
	logger *slog.Logger
	sinks  Sinks

	// emitMu serializes Notify/Failure dispatch in admission order.
	// Lock order: emitMu before mu, never the reverse.
	emitMu sync.Mutex

	mu         sync.Mutex
	state      domain.AcquisitionState
	permission domain.PermissionState
	lastErr    *domain.Failure
	sub        source.Subscription
	// generation is bumped by StopWatching; deliveries carrying a
	// stale generation are dropped, so no commit happens for a
	// cancelled watch even when the delivery was already in flight.
	generation uint64
}

// NewController creates a controller emitting accepted samples and
// failures into the given sinks. Nil sink handlers are ignored.
func NewController(src source.PositionSource, cfg ControllerConfig, logger *slog.Logger, sinks Sinks) *Controller {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if sinks.Commit == nil {
		sinks.Commit = func(domain.PositionSample) {}
	}
	if sinks.Notify == nil {
		sinks.Notify = func(domain.PositionSample) {}
	}
	if sinks.Failure == nil {
		sinks.Failure = func(*domain.Failure) {}
	}
	return &Controller{
		src:        src,
		cfg:        cfg,
		logger:     logger,
		sinks:      sinks,
		state:      domain.StateIdle,
		permission: domain.PermissionUnknown,
	}
}

// State returns the current acquisition state.
func (c *Controller) State() domain.AcquisitionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Permission returns the last known permission state.
func (c *Controller) Permission() domain.PermissionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permission
}

// LastFailure returns the last recorded failure, or nil.
func (c *Controller) LastFailure() *domain.Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ClearError clears the last recorded failure. When the controller sat
// in the error state it returns to idle; an active watch is unaffected.
func (c *Controller) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = nil
	if c.state == domain.StateError {
		c.state = domain.StateIdle
	}
}

// RequestPermission queries the platform permission status when the
// source supports it. Otherwise it falls back to prompt and resolves
// to granted/denied only as a side effect of an actual position
// request.
func (c *Controller) RequestPermission(ctx context.Context) domain.PermissionState {
	if q, ok := c.src.(PermissionQuerier); ok {
		state, err := q.QueryPermission(ctx)
		switch {
		case err != nil:
			c.logger.Debug("permission query failed, falling back to prompt", "error", err)
		case state == domain.PermissionUnknown || state == "":
			// An unknown result carries no information; an already
			// observed granted/denied must not regress.
		default:
			c.mu.Lock()
			// A definite query is authoritative: it may also lift a
			// sticky denied.
			c.permission = state
			c.mu.Unlock()
			return state
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.permission == domain.PermissionUnknown {
		c.permission = domain.PermissionPrompt
	}
	return c.permission
}

// GetCurrentPosition performs a single fetch: idle → acquiring-once →
// idle. The returned sample has passed coordinate validation and has
// been committed and notified before the call returns. Returns
// ErrAcquisitionBusy, with no state change, when a fetch or watch is
// already active.
func (c *Controller) GetCurrentPosition(ctx context.Context) (domain.PositionSample, error) {
	ctx, span := tracer.StartSpan(ctx, "tracking.GetCurrentPosition")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("source", c.src.Name()))

	c.mu.Lock()
	if c.state == domain.StateAcquiringOnce || c.state == domain.StateWatching {
		c.mu.Unlock()
		return domain.PositionSample{}, ErrAcquisitionBusy
	}
	c.state = domain.StateAcquiringOnce
	c.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	sample, err := c.src.RequestOnce(reqCtx, c.options())

	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if err != nil {
		failure := domain.AsFailure("controller.GetCurrentPosition", err)
		if errors.Is(err, context.DeadlineExceeded) {
			failure = domain.NewFailure("controller.GetCurrentPosition", domain.ErrTimeout, err.Error())
		}
		c.recordFailureLocked(failure)
		c.state = domain.StateError
		c.mu.Unlock()
		tracer.RecordError(span, failure)
		return domain.PositionSample{}, failure
	}

	if !geo.ValidateCoordinate(sample.Latitude, sample.Longitude) {
		failure := domain.NewFailure("controller.GetCurrentPosition", domain.ErrInvalidData,
			fmt.Sprintf("lat=%v lng=%v", sample.Latitude, sample.Longitude))
		c.recordFailureLocked(failure)
		c.state = domain.StateError
		c.mu.Unlock()
		tracer.RecordError(span, failure)
		return domain.PositionSample{}, failure
	}

	sample = sample.Sanitized()
	c.permission = domain.PermissionGranted
	c.state = domain.StateIdle
	c.sinks.Commit(sample)
	c.mu.Unlock()

	c.sinks.Notify(sample)
	tracer.SetOK(span)
	return sample, nil
}

// StartWatching opens a continuous watch: idle → watching. A no-op
// returning the current state when a fetch or watch is already active.
// Delivered failures update the last error but do not stop the
// subscription; transient failures are expected and recoverable.
func (c *Controller) StartWatching(ctx context.Context) domain.AcquisitionState {
	_, span := tracer.StartSpan(ctx, "tracking.StartWatching")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("source", c.src.Name()))

	c.mu.Lock()
	if c.state == domain.StateAcquiringOnce || c.state == domain.StateWatching {
		state := c.state
		c.mu.Unlock()
		return state
	}
	c.state = domain.StateWatching
	gen := c.generation
	c.mu.Unlock()

	sub, err := c.src.Watch(ctx, c.options(),
		func(sample domain.PositionSample) { c.deliverSample(gen, sample) },
		func(failure *domain.Failure) { c.deliverFailure(gen, failure) },
	)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		failure := domain.AsFailure("controller.StartWatching", err)
		c.recordFailureLocked(failure)
		c.state = domain.StateError
		tracer.RecordError(span, failure)
		return c.state
	}
	if gen != c.generation {
		// StopWatching raced the open: cancel immediately.
		sub.Cancel()
		c.state = domain.StateIdle
		return c.state
	}
	c.sub = sub
	tracer.SetOK(span)
	return c.state
}

// StopWatching cancels the active subscription and returns to idle.
// Idempotent, and safe to call from inside a Notify handler. After it
// returns, no further sample is committed for that subscription even
// if a delivery was already in flight; a notification for a sample
// committed before the stop may still be running.
func (c *Controller) StopWatching() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if c.sub != nil {
		c.sub.Cancel()
		c.sub = nil
	}
	if c.state == domain.StateWatching {
		c.state = domain.StateIdle
	}
}

// deliverSample processes one pushed sample: the generation check,
// validation and commit form one critical section under mu, then the
// notification runs with only emitMu held.
func (c *Controller) deliverSample(gen uint64, sample domain.PositionSample) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if gen != c.generation || c.state != domain.StateWatching {
		c.mu.Unlock()
		c.logger.Debug("dropping late watch delivery", "generation", gen)
		return
	}
	if !geo.ValidateCoordinate(sample.Latitude, sample.Longitude) {
		failure := domain.NewFailure("controller.watch", domain.ErrInvalidData,
			fmt.Sprintf("lat=%v lng=%v", sample.Latitude, sample.Longitude))
		c.recordFailureLocked(failure)
		c.mu.Unlock()
		c.sinks.Failure(failure)
		return
	}
	sample = sample.Sanitized()
	c.permission = domain.PermissionGranted
	c.sinks.Commit(sample)
	c.mu.Unlock()

	c.sinks.Notify(sample)
}

// deliverFailure records a pushed failure; the subscription keeps
// listening.
func (c *Controller) deliverFailure(gen uint64, failure *domain.Failure) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.recordFailureLocked(failure)
	c.mu.Unlock()

	c.sinks.Failure(failure)
}

func (c *Controller) recordFailureLocked(failure *domain.Failure) {
	c.lastErr = failure
	if failure.Kind() == domain.KindPermissionDenied {
		c.permission = domain.PermissionDenied
	}
	c.logger.Warn("acquisition failure", "kind", string(failure.Kind()), "error", failure.Error())
}

func (c *Controller) options() source.Options {
	return source.Options{
		HighAccuracy: c.cfg.HighAccuracy,
		Timeout:      c.cfg.RequestTimeout,
		MaxSampleAge: c.cfg.MaxSampleAge,
	}
}
