package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPositionSampleTime(t *testing.T) {
	s := PositionSample{Timestamp: 1700000000000}
	want := time.UnixMilli(1700000000000)
	if !s.Time().Equal(want) {
		t.Errorf("Time() = %v, want %v", s.Time(), want)
	}
}

func TestPositionSampleOptionalFieldsAbsent(t *testing.T) {
	s := PositionSample{Latitude: 37.7749, Longitude: -122.4194, Accuracy: 5, Timestamp: 1}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	// Absent means "not reported by the source" — it must not serialize
	// as zero.
	for _, key := range []string{"altitude_meters", "heading_deg", "speed_mps"} {
		if _, ok := m[key]; ok {
			t.Errorf("unset optional field %q serialized: %v", key, m[key])
		}
	}
}

func TestPositionSampleSanitized(t *testing.T) {
	fullCircle, negSpeed, okHeading := 360.0, -1.0, 359.9
	s := PositionSample{Latitude: 1, Longitude: 2, Accuracy: 5, Heading: &fullCircle, Speed: &negSpeed}

	got := s.Sanitized()
	if got.Heading != nil {
		t.Errorf("Heading = %v, want dropped for 360", *got.Heading)
	}
	if got.Speed != nil {
		t.Errorf("Speed = %v, want dropped for negative", *got.Speed)
	}
	// The original sample is untouched.
	if s.Heading == nil || s.Speed == nil {
		t.Error("Sanitized mutated the receiver")
	}

	keep := PositionSample{Heading: &okHeading}.Sanitized()
	if keep.Heading == nil || *keep.Heading != okHeading {
		t.Errorf("Heading = %v, want kept", keep.Heading)
	}
}

func TestPositionSampleOptionalFieldsRoundTrip(t *testing.T) {
	alt, heading, speed := 182.0, 90.5, 1.4
	s := PositionSample{
		Latitude: 48.20849, Longitude: 16.37208, Accuracy: 12.5, Timestamp: 1700000000000,
		Altitude: &alt, Heading: &heading, Speed: &speed,
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var back PositionSample
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Altitude == nil || *back.Altitude != alt {
		t.Errorf("Altitude = %v, want %v", back.Altitude, alt)
	}
	if back.Heading == nil || *back.Heading != heading {
		t.Errorf("Heading = %v, want %v", back.Heading, heading)
	}
	if back.Speed == nil || *back.Speed != speed {
		t.Errorf("Speed = %v, want %v", back.Speed, speed)
	}
}
