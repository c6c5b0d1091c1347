package source

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"geotrail/internal/domain"
)

var (
	_ PositionSource = (*Simulated)(nil)
	_ PositionSource = (*Replay)(nil)
)

func TestSimulatedRequestOnceValidCoordinates(t *testing.T) {
	s := NewSimulated(SimulatedConfig{
		StartLatitude:  48.20849,
		StartLongitude: 16.37208,
		Seed:           42,
	}, newTestLogger())

	sample, err := s.RequestOnce(context.Background(), Options{Timeout: time.Second})
	if err != nil {
		t.Fatalf("RequestOnce: %v", err)
	}
	if sample.Latitude < -90 || sample.Latitude > 90 {
		t.Errorf("latitude out of range: %v", sample.Latitude)
	}
	if sample.Longitude < -180 || sample.Longitude > 180 {
		t.Errorf("longitude out of range: %v", sample.Longitude)
	}
	if sample.Accuracy <= 0 {
		t.Errorf("accuracy not positive: %v", sample.Accuracy)
	}
	if sample.Heading == nil || *sample.Heading < 0 || *sample.Heading >= 360 {
		t.Errorf("heading out of [0,360): %v", sample.Heading)
	}
}

func TestSimulatedRequestOnceDeterministicWithSeed(t *testing.T) {
	a := NewSimulated(SimulatedConfig{Seed: 7}, newTestLogger())
	b := NewSimulated(SimulatedConfig{Seed: 7}, newTestLogger())

	sa, err := a.RequestOnce(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	sb, err := b.RequestOnce(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if sa.Latitude != sb.Latitude || sa.Longitude != sb.Longitude {
		t.Errorf("same seed diverged: (%v,%v) vs (%v,%v)", sa.Latitude, sa.Longitude, sb.Latitude, sb.Longitude)
	}
}

func TestSimulatedRequestOnceReturnsCachedFix(t *testing.T) {
	s := NewSimulated(SimulatedConfig{Seed: 1}, newTestLogger())

	first, err := s.RequestOnce(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	// A generous max age must return the same cached fix.
	second, err := s.RequestOnce(context.Background(), Options{MaxSampleAge: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("expected cached fix within MaxSampleAge")
	}
	// Zero max age must always produce a fresh fix.
	third, err := s.RequestOnce(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if third == second {
		t.Error("expected fresh fix when MaxSampleAge is zero")
	}
}

func TestSimulatedWatchDeliversAndCancels(t *testing.T) {
	s := NewSimulated(SimulatedConfig{
		Seed:     3,
		Interval: 5 * time.Millisecond,
	}, newTestLogger())

	var mu sync.Mutex
	var got []domain.PositionSample
	sub, err := s.Watch(context.Background(), Options{}, func(sample domain.PositionSample) {
		mu.Lock()
		got = append(got, sample)
		mu.Unlock()
	}, func(*domain.Failure) {})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %d samples before deadline", n)
		}
		time.Sleep(time.Millisecond)
	}

	sub.Cancel()
	sub.Cancel() // idempotent

	mu.Lock()
	n := len(got)
	mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	after := len(got)
	mu.Unlock()
	if after > n+1 {
		t.Errorf("samples kept flowing after cancel: %d -> %d", n, after)
	}
}

func TestReplayEmptyTrail(t *testing.T) {
	if _, err := NewReplay(nil, time.Second, false); err == nil {
		t.Error("expected error for empty trail")
	}
}

func TestReplayRequestOnceSequence(t *testing.T) {
	points := []TrailPoint{
		{Latitude: 1, Longitude: 1, Accuracy: 5},
		{Latitude: 2, Longitude: 2, Accuracy: 5},
	}
	r, err := NewReplay(points, time.Second, false)
	if err != nil {
		t.Fatal(err)
	}

	first, err := r.RequestOnce(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if first.Latitude != 1 {
		t.Errorf("first.Latitude = %v, want 1", first.Latitude)
	}
	second, err := r.RequestOnce(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if second.Latitude != 2 {
		t.Errorf("second.Latitude = %v, want 2", second.Latitude)
	}

	// Exhausted, no loop: unavailable.
	_, err = r.RequestOnce(context.Background(), Options{})
	if domain.KindOf(err) != domain.KindUnavailable {
		t.Errorf("KindOf(err) = %q, want %q", domain.KindOf(err), domain.KindUnavailable)
	}
}

func TestReplayLoopWraps(t *testing.T) {
	points := []TrailPoint{{Latitude: 9, Longitude: 9, Accuracy: 3}}
	r, err := NewReplay(points, time.Second, true)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		s, err := r.RequestOnce(context.Background(), Options{})
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if s.Latitude != 9 {
			t.Errorf("iteration %d: Latitude = %v, want 9", i, s.Latitude)
		}
	}
}

func TestLoadReplayFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trail.yaml")
	content := `
points:
  - latitude: 37.7749
    longitude: -122.4194
    accuracy_meters: 5
  - latitude: 37.7750
    longitude: -122.4195
    accuracy_meters: 8
    heading_deg: 271.5
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	r, err := LoadReplay(path, time.Second, false)
	if err != nil {
		t.Fatalf("LoadReplay: %v", err)
	}
	s, err := r.RequestOnce(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Latitude != 37.7749 {
		t.Errorf("Latitude = %v, want 37.7749", s.Latitude)
	}
	s2, err := r.RequestOnce(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if s2.Heading == nil || *s2.Heading != 271.5 {
		t.Errorf("Heading = %v, want 271.5", s2.Heading)
	}
}

func TestLoadReplayMissingFile(t *testing.T) {
	if _, err := LoadReplay("/nonexistent/trail.yaml", time.Second, false); err == nil {
		t.Error("expected error for missing file")
	}
}
