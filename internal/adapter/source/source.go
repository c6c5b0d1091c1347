// Package source defines the position-source port and the adapters
// implementing it. A PositionSource stands in for the host platform's
// location service; the acquisition layer never talks to the platform
// directly.
package source

import (
	"context"
	"time"

	"geotrail/internal/domain"
)

// Options configures a single position request or a watch.
type Options struct {
	// HighAccuracy requests the most precise fix the platform offers.
	HighAccuracy bool
	// Timeout bounds a single request; the source must resolve or
	// fail within it.
	Timeout time.Duration
	// MaxSampleAge is the oldest cached fix the source may return as
	// fresh. Zero means a cached fix is never acceptable.
	MaxSampleAge time.Duration
}

// Subscription is a handle to an active watch.
type Subscription interface {
	// Cancel stops delivery. Idempotent.
	Cancel()
}

// PositionSource abstracts the platform's one-shot and continuous
// position providers.
type PositionSource interface {
	// RequestOnce performs a single position request. It resolves with
	// one sample or fails within opts.Timeout.
	RequestOnce(ctx context.Context, opts Options) (domain.PositionSample, error)
	// Watch opens a continuous subscription. Samples and failures are
	// delivered push-style on the source's own goroutine until the
	// subscription is cancelled.
	Watch(ctx context.Context, opts Options, onSample domain.SampleHandler, onFailure domain.FailureHandler) (Subscription, error)
	// Name returns the source identifier (e.g. "simulated").
	Name() string
}
