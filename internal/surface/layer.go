// Package surface holds the server-side marker layer the map view draws on.
package surface

import (
	"maps"
	"slices"
	"sync"

	"github.com/UnknownOlympus/waymark/internal/mapview"
)

// FeatureCollection represents a collection of geographic features.
// It follows the standard GeoJSON structure.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is one marker as a GeoJSON point feature.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry of a feature.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [Lon, Lat]
}

// Layer collects markers and publishes them as GeoJSON on Flush.
type Layer struct {
	mu        sync.Mutex
	markers   map[string]mapview.Marker
	published FeatureCollection
	watchers  map[uint64]chan struct{}
	nextWatch uint64
}

func NewLayer() *Layer {
	return &Layer{
		markers:   make(map[string]mapview.Marker),
		published: FeatureCollection{Type: "FeatureCollection", Features: []Feature{}},
		watchers:  make(map[uint64]chan struct{}),
	}
}

func (l *Layer) AddMarker(marker mapview.Marker) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.markers[marker.PointID] = marker
}

func (l *Layer) RemoveMarker(pointID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.markers, pointID)
}

// Flush publishes the current markers and wakes every watcher.
func (l *Layer) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()

	features := make([]Feature, 0, len(l.markers))
	for _, id := range slices.Sorted(maps.Keys(l.markers)) {
		features = append(features, toFeature(l.markers[id]))
	}
	l.published = FeatureCollection{Type: "FeatureCollection", Features: features}

	for _, ch := range l.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Collection returns the last flushed collection.
func (l *Layer) Collection() FeatureCollection {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.published
}

// Watch returns a channel signalled after every Flush. Signals coalesce while
// the reader is busy. The returned func stops the watch.
func (l *Layer) Watch() (<-chan struct{}, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextWatch
	l.nextWatch++
	ch := make(chan struct{}, 1)
	l.watchers[id] = ch

	return ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.watchers, id)
	}
}

func toFeature(marker mapview.Marker) Feature {
	actions := make([]string, 0, len(marker.Popup.Actions))
	for _, action := range marker.Popup.Actions {
		actions = append(actions, string(action.Kind))
	}

	return Feature{
		Type: "Feature",
		Geometry: Geometry{
			Type:        "Point",
			Coordinates: []float64{marker.Position.Longitude, marker.Position.Latitude},
		},
		Properties: map[string]any{
			"id":      marker.PointID,
			"name":    marker.Name,
			"label":   marker.Popup.Label,
			"actions": actions,
		},
	}
}
