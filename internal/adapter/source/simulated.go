package source

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"geotrail/internal/domain"
)

// Simulated source defaults.
const (
	defaultStepMeters   = 15.0
	defaultInterval     = 2 * time.Second
	defaultBaseAccuracy = 8.0
)

// SimulatedConfig holds settings for the simulated walk source.
type SimulatedConfig struct {
	StartLatitude  float64
	StartLongitude float64
	// StepMeters is the approximate distance covered between samples.
	StepMeters float64
	// Interval is the delivery cadence of a watch.
	Interval time.Duration
	// BaseAccuracy is the reported accuracy floor in meters; each
	// sample adds random jitter on top.
	BaseAccuracy float64
	// Seed makes the walk deterministic when non-zero.
	Seed uint64
}

// Simulated is a PositionSource that random-walks from a start point.
// It exists for demos and tests; it never fails on its own.
type Simulated struct {
	cfg    SimulatedConfig
	logger *slog.Logger

	mu        sync.Mutex
	rng       *rand.Rand
	lat       float64
	lng       float64
	heading   float64
	lastFix   domain.PositionSample
	lastFixAt time.Time
	hasFix    bool
}

// NewSimulated creates a simulated walk source.
func NewSimulated(cfg SimulatedConfig, logger *slog.Logger) *Simulated {
	if cfg.StepMeters <= 0 {
		cfg.StepMeters = defaultStepMeters
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.BaseAccuracy <= 0 {
		cfg.BaseAccuracy = defaultBaseAccuracy
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Simulated{
		cfg:     cfg,
		logger:  logger,
		rng:     rand.New(rand.NewSource(int64(seed))),
		lat:     cfg.StartLatitude,
		lng:     cfg.StartLongitude,
		heading: 0,
	}
}

func (s *Simulated) Name() string { return "simulated" }

func (s *Simulated) RequestOnce(ctx context.Context, opts Options) (domain.PositionSample, error) {
	if err := ctx.Err(); err != nil {
		return domain.PositionSample{}, domain.NewFailure("source.RequestOnce", domain.ErrUnavailable, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A recent enough cached fix may be returned as fresh.
	if s.hasFix && opts.MaxSampleAge > 0 && time.Since(s.lastFixAt) <= opts.MaxSampleAge {
		return s.lastFix, nil
	}
	return s.nextLocked(opts.HighAccuracy), nil
}

func (s *Simulated) Watch(ctx context.Context, opts Options, onSample domain.SampleHandler, onFailure domain.FailureHandler) (Subscription, error) {
	done := make(chan struct{})
	sub := &simulatedSub{done: done}

	s.logger.Debug("simulated watch started", "interval", s.cfg.Interval, "high_accuracy", opts.HighAccuracy)

	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				sample := s.nextLocked(opts.HighAccuracy)
				s.mu.Unlock()
				onSample(sample)
			}
		}
	}()

	return sub, nil
}

// nextLocked advances the walk and records the fix. Caller holds mu.
func (s *Simulated) nextLocked(highAccuracy bool) domain.PositionSample {
	// Drift the heading a little each step so the trail curves.
	s.heading += (s.rng.Float64() - 0.5) * math.Pi / 4

	stepDeg := s.cfg.StepMeters / 111_000 // rough meters-per-degree at the equator
	s.lat += stepDeg * math.Cos(s.heading)
	s.lng += stepDeg * math.Sin(s.heading) / math.Max(math.Cos(s.lat*math.Pi/180), 0.01)
	s.lat = clampLat(s.lat)
	s.lng = wrapLng(s.lng)

	accuracy := s.cfg.BaseAccuracy + s.rng.Float64()*s.cfg.BaseAccuracy
	if highAccuracy {
		accuracy = s.cfg.BaseAccuracy * (0.5 + s.rng.Float64()*0.5)
	}

	headingDeg := math.Mod(s.heading*180/math.Pi+360, 360)
	speed := s.cfg.StepMeters / s.cfg.Interval.Seconds()

	fix := domain.PositionSample{
		Latitude:  s.lat,
		Longitude: s.lng,
		Accuracy:  accuracy,
		Timestamp: time.Now().UnixMilli(),
		Heading:   &headingDeg,
		Speed:     &speed,
	}
	s.lastFix = fix
	s.lastFixAt = time.Now()
	s.hasFix = true
	return fix
}

func clampLat(lat float64) float64 {
	return math.Max(-90, math.Min(90, lat))
}

func wrapLng(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}

type simulatedSub struct {
	once sync.Once
	done chan struct{}
}

func (s *simulatedSub) Cancel() {
	s.once.Do(func() { close(s.done) })
}
