package geocoding

import (
	"context"
	"errors"
	"time"

	"github.com/UnknownOlympus/waymark/internal/metrics"
	"github.com/UnknownOlympus/waymark/internal/models"
)

// ErrNoMatch is returned when the provider found nothing for the address.
var ErrNoMatch = errors.New("no location matches the address")

// Provider resolves a free-form address to coordinates.
type Provider interface {
	Geocode(ctx context.Context, address string) (*models.Coordinates, error)
}

// instrumented records request durations of the wrapped provider.
type instrumented struct {
	next    Provider
	name    string
	metrics *metrics.Metrics
}

// Instrument wraps provider so every request is timed under the given provider label.
func Instrument(provider Provider, name string, m *metrics.Metrics) Provider {
	return &instrumented{next: provider, name: name, metrics: m}
}

func (i *instrumented) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	startTime := time.Now()
	defer func() {
		i.metrics.GeocodeSeconds.WithLabelValues(i.name).Observe(time.Since(startTime).Seconds())
	}()
	return i.next.Geocode(ctx, address)
}
