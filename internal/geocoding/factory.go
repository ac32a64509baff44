package geocoding

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/waymark/internal/metrics"
	"googlemaps.github.io/maps"
)

// ProviderType represents the type of geocoding provider.
type ProviderType string

const (
	// ProviderTypeGoogle represents Google Maps geocoding provider.
	ProviderTypeGoogle ProviderType = "google"
	// ProviderTypeNominatim represents OpenStreetMap Nominatim geocoding provider.
	ProviderTypeNominatim ProviderType = "nominatim"
	// ProviderTypeNone turns address search off.
	ProviderTypeNone ProviderType = "none"
)

// ErrDisabled is returned by NewProvider for ProviderTypeNone.
var ErrDisabled = errors.New("geocoding is disabled")

// ProviderConfig holds configuration for creating a geocoding provider.
type ProviderConfig struct {
	Type      ProviderType     // Type of provider to create
	APIKey    string           // API key (Google only)
	RateLimit int              // Requests per second; Nominatim defaults to 1
	Logger    *slog.Logger     // Logger for the provider
	Metrics   *metrics.Metrics // Request timing; nil leaves the provider unwrapped
}

// NewProvider creates a geocoding provider based on the provided configuration.
//
// Supported provider types:
// - "google": Google Maps Geocoding API (requires API key)
// - "nominatim": OpenStreetMap Nominatim API (free, rate limited)
// - "none": returns ErrDisabled
func NewProvider(config ProviderConfig) (Provider, error) {
	var (
		provider Provider
		err      error
	)

	switch config.Type {
	case ProviderTypeGoogle:
		provider, err = newGoogleProvider(config)
	case ProviderTypeNominatim:
		provider = NewNominatimProvider(config.Logger, WithRateLimit(config.RateLimit))
	case ProviderTypeNone:
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.Metrics != nil {
		provider = Instrument(provider, string(config.Type), config.Metrics)
	}
	return provider, nil
}

func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for Google provider")
	}

	clientOpts := []maps.ClientOption{maps.WithAPIKey(config.APIKey)}
	if config.RateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(config.RateLimit))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return NewGoogleProvider(client, config.Logger), nil
}
