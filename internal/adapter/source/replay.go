package source

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"geotrail/internal/domain"
)

// TrailPoint is one entry in a recorded trail file.
type TrailPoint struct {
	Latitude  float64  `yaml:"latitude"`
	Longitude float64  `yaml:"longitude"`
	Accuracy  float64  `yaml:"accuracy_meters"`
	Altitude  *float64 `yaml:"altitude_meters,omitempty"`
	Heading   *float64 `yaml:"heading_deg,omitempty"`
	Speed     *float64 `yaml:"speed_mps,omitempty"`
}

type trailFile struct {
	Points []TrailPoint `yaml:"points"`
}

// Replay is a PositionSource that plays back a recorded trail at a
// fixed cadence. When Loop is set the trail restarts after the last
// point; otherwise the watch reports ErrUnavailable once exhausted.
type Replay struct {
	points   []TrailPoint
	interval time.Duration
	loop     bool

	mu   sync.Mutex
	next int
}

// NewReplay creates a replay source from in-memory points.
func NewReplay(points []TrailPoint, interval time.Duration, loop bool) (*Replay, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("replay source: empty trail")
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Replay{points: points, interval: interval, loop: loop}, nil
}

// LoadReplay reads a yaml trail file and builds a replay source.
func LoadReplay(path string, interval time.Duration, loop bool) (*Replay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trail file: %w", err)
	}
	var tf trailFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse trail file: %w", err)
	}
	return NewReplay(tf.Points, interval, loop)
}

func (r *Replay) Name() string { return "replay" }

func (r *Replay) RequestOnce(ctx context.Context, opts Options) (domain.PositionSample, error) {
	if err := ctx.Err(); err != nil {
		return domain.PositionSample{}, domain.NewFailure("source.RequestOnce", domain.ErrUnavailable, err.Error())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sample, ok := r.advanceLocked()
	if !ok {
		return domain.PositionSample{}, domain.NewFailure("source.RequestOnce", domain.ErrUnavailable, "trail exhausted")
	}
	return sample, nil
}

func (r *Replay) Watch(ctx context.Context, _ Options, onSample domain.SampleHandler, onFailure domain.FailureHandler) (Subscription, error) {
	done := make(chan struct{})
	sub := &simulatedSub{done: done}

	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.mu.Lock()
				sample, ok := r.advanceLocked()
				r.mu.Unlock()
				if !ok {
					onFailure(domain.NewFailure("source.Watch", domain.ErrUnavailable, "trail exhausted"))
					return
				}
				onSample(sample)
			}
		}
	}()

	return sub, nil
}

// advanceLocked returns the next trail point stamped with the current
// time. Caller holds mu.
func (r *Replay) advanceLocked() (domain.PositionSample, bool) {
	if r.next >= len(r.points) {
		if !r.loop {
			return domain.PositionSample{}, false
		}
		r.next = 0
	}
	p := r.points[r.next]
	r.next++
	return domain.PositionSample{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Accuracy:  p.Accuracy,
		Timestamp: time.Now().UnixMilli(),
		Altitude:  p.Altitude,
		Heading:   p.Heading,
		Speed:     p.Speed,
	}, true
}
