// Package staticmap builds static map image URLs for a position or a
// trail. It constructs URLs only; fetching and rendering belong to the
// caller.
package staticmap

import (
	"fmt"
	"net/url"
	"strings"

	"geotrail/internal/domain"
	"geotrail/internal/geo"
)

// DefaultBaseURL points at a staticmap-compatible render endpoint.
const DefaultBaseURL = "https://staticmap.openstreetmap.de/staticmap.php"

// Size is an image size in pixels.
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Builder assembles static map URLs against a configurable endpoint.
// The zero value is not usable; call New.
type Builder struct {
	baseURL string
}

// New returns a Builder for the given endpoint. An empty baseURL
// selects DefaultBaseURL.
func New(baseURL string) *Builder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Builder{baseURL: baseURL}
}

// MarkerURL builds a single-marker map URL centered on the given
// coordinate at the given zoom.
func (b *Builder) MarkerURL(lat, lng float64, zoom int, size Size) string {
	q := url.Values{}
	q.Set("center", fmt.Sprintf("%f,%f", lat, lng))
	q.Set("zoom", fmt.Sprintf("%d", zoom))
	q.Set("size", size.String())
	q.Set("markers", fmt.Sprintf("%f,%f,red-pushpin", lat, lng))
	return b.baseURL + "?" + q.Encode()
}

// PositionURL builds a marker URL for a sample, deriving the zoom
// level from the sample's reported accuracy.
func (b *Builder) PositionURL(sample domain.PositionSample, size Size) string {
	zoom := geo.ZoomForAccuracy(sample.Accuracy)
	return b.MarkerURL(sample.Latitude, sample.Longitude, zoom, size)
}

// TrailURL builds a map URL rendering the trail as a path, centered on
// the midpoint of the trail's bounding box. An empty trail yields "".
func (b *Builder) TrailURL(samples []domain.PositionSample, size Size) string {
	if len(samples) == 0 {
		return ""
	}

	box := geo.BoundingBox(samples)

	points := make([]string, 0, len(samples))
	for _, s := range samples {
		points = append(points, fmt.Sprintf("%f,%f", s.Latitude, s.Longitude))
	}

	q := url.Values{}
	q.Set("center", fmt.Sprintf("%f,%f", box.Center.Latitude, box.Center.Longitude))
	q.Set("size", size.String())
	q.Set("path", strings.Join(points, "|"))
	q.Set("markers", fmt.Sprintf("%f,%f,red-pushpin", samples[len(samples)-1].Latitude, samples[len(samples)-1].Longitude))
	return b.baseURL + "?" + q.Encode()
}
