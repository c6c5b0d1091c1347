// Package geo provides pure, stateless geometry and formatting
// helpers operating on position samples or raw coordinate pairs.
package geo

import (
	"fmt"
	"math"

	"geotrail/internal/domain"
)

// EarthRadiusKm is the mean Earth radius used by the haversine
// distance calculation.
const EarthRadiusKm = 6371.0

// ValidateCoordinate reports whether lat/lng form a usable coordinate
// pair: both finite, latitude in [-90,90], longitude in [-180,180].
func ValidateCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// DistanceKm returns the great-circle distance between two points
// using the haversine formula. Symmetric; zero for identical points.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// Point is a raw coordinate pair.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Box is an axis-aligned bounding region. Center is the arithmetic
// midpoint of the min/max per axis, not a centroid of the samples.
type Box struct {
	NorthEast Point `json:"north_east"`
	SouthWest Point `json:"south_west"`
	Center    Point `json:"center"`
}

// BoundingBox computes the min/max extent of the samples per axis.
// On empty input it returns the zero Box; callers must check the
// sample count before trusting the result.
func BoundingBox(samples []domain.PositionSample) Box {
	if len(samples) == 0 {
		return Box{}
	}
	minLat, maxLat := samples[0].Latitude, samples[0].Latitude
	minLng, maxLng := samples[0].Longitude, samples[0].Longitude
	for _, s := range samples[1:] {
		minLat = math.Min(minLat, s.Latitude)
		maxLat = math.Max(maxLat, s.Latitude)
		minLng = math.Min(minLng, s.Longitude)
		maxLng = math.Max(maxLng, s.Longitude)
	}
	return Box{
		NorthEast: Point{Latitude: maxLat, Longitude: maxLng},
		SouthWest: Point{Latitude: minLat, Longitude: minLng},
		Center: Point{
			Latitude:  (minLat + maxLat) / 2,
			Longitude: (minLng + maxLng) / 2,
		},
	}
}

// PolygonAreaApprox applies the shoelace formula directly to the
// (latitude, longitude) pairs as planar Cartesian coordinates. The
// result is in degree² units, not a geodesic area — a documented
// approximation kept for output stability. Returns 0 for fewer than
// three points.
func PolygonAreaApprox(samples []domain.PositionSample) float64 {
	if len(samples) < 3 {
		return 0
	}
	sum := 0.0
	n := len(samples)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += samples[i].Latitude * samples[j].Longitude
		sum -= samples[j].Latitude * samples[i].Longitude
	}
	return math.Abs(sum) / 2
}

// ZoomForAccuracy maps a fix accuracy in meters to a display zoom
// level. Monotonically non-increasing as accuracy degrades.
func ZoomForAccuracy(accuracyMeters float64) int {
	switch {
	case accuracyMeters <= 10:
		return 18
	case accuracyMeters <= 50:
		return 16
	case accuracyMeters <= 100:
		return 15
	case accuracyMeters <= 500:
		return 14
	default:
		return 13
	}
}

// AccuracyLevel is a coarse quality bucket for a fix accuracy.
type AccuracyLevel string

const (
	AccuracyExcellent AccuracyLevel = "excellent"
	AccuracyGood      AccuracyLevel = "good"
	AccuracyFair      AccuracyLevel = "fair"
	AccuracyPoor      AccuracyLevel = "poor"
)

// LevelForAccuracy buckets a fix accuracy in meters.
func LevelForAccuracy(accuracyMeters float64) AccuracyLevel {
	switch {
	case accuracyMeters <= 10:
		return AccuracyExcellent
	case accuracyMeters <= 50:
		return AccuracyGood
	case accuracyMeters <= 100:
		return AccuracyFair
	default:
		return AccuracyPoor
	}
}

// FormatDMS decomposes decimal degrees into whole degrees, whole
// minutes and seconds with two decimals. The sign is stripped; the
// caller prepends the hemisphere letter.
func FormatDMS(decimalDegrees float64) string {
	abs := math.Abs(decimalDegrees)
	degrees := int(abs)
	minutesFloat := (abs - float64(degrees)) * 60
	minutes := int(minutesFloat)
	seconds := (minutesFloat - float64(minutes)) * 60
	return fmt.Sprintf("%d°%d'%.2f\"", degrees, minutes, seconds)
}

// TimezoneOffsetEstimate estimates a UTC offset from longitude alone
// (15° per hour), formatted "UTC±HH:00". An approximation, not an
// authoritative timezone lookup.
func TimezoneOffsetEstimate(longitude float64) string {
	hours := int(math.Round(longitude / 15))
	if hours < 0 {
		return fmt.Sprintf("UTC-%02d:00", -hours)
	}
	return fmt.Sprintf("UTC+%02d:00", hours)
}

// TrailDistanceKm sums the haversine distance of consecutive legs.
func TrailDistanceKm(samples []domain.PositionSample) float64 {
	total := 0.0
	for i := 1; i < len(samples); i++ {
		total += DistanceKm(
			samples[i-1].Latitude, samples[i-1].Longitude,
			samples[i].Latitude, samples[i].Longitude,
		)
	}
	return total
}

// TrailStats aggregates the derived statistics of a trail for
// presentation callers.
type TrailStats struct {
	Count       int     `json:"count"`
	DistanceKm  float64 `json:"distance_km"`
	Bounds      Box     `json:"bounds"`
	AreaApprox  float64 `json:"area_approx_deg2"`
	OldestMs    int64   `json:"oldest_ms"`
	NewestMs    int64   `json:"newest_ms"`
}

// Stats computes TrailStats over the samples in insertion order.
// The zero TrailStats is returned for an empty trail.
func Stats(samples []domain.PositionSample) TrailStats {
	if len(samples) == 0 {
		return TrailStats{}
	}
	return TrailStats{
		Count:      len(samples),
		DistanceKm: TrailDistanceKm(samples),
		Bounds:     BoundingBox(samples),
		AreaApprox: PolygonAreaApprox(samples),
		OldestMs:   samples[0].Timestamp,
		NewestMs:   samples[len(samples)-1].Timestamp,
	}
}
