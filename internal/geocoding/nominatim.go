package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/UnknownOlympus/waymark/internal/models"
	"golang.org/x/time/rate"
)

const (
	nominatimURL       = "https://nominatim.openstreetmap.org/search"
	nominatimUserAgent = "Waymark/1.0 (https://github.com/UnknownOlympus/waymark)"
	nominatimTimeout   = 10 * time.Second
)

// ErrNominatimInvalidCoords is returned when a result carries unparseable coordinates.
var ErrNominatimInvalidCoords = errors.New("nominatim API returned invalid coordinates")

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NominatimProvider geocodes through OpenStreetMap's Nominatim API.
// The public instance allows one request per second, which the limiter enforces.
type NominatimProvider struct {
	client    HTTPClient
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	log       *slog.Logger
}

// NominatimOption configures a NominatimProvider.
type NominatimOption func(*NominatimProvider)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client HTTPClient) NominatimOption {
	return func(np *NominatimProvider) { np.client = client }
}

// WithBaseURL points the provider at a self-hosted Nominatim.
func WithBaseURL(baseURL string) NominatimOption {
	return func(np *NominatimProvider) { np.baseURL = baseURL }
}

// WithRateLimit sets the allowed requests per second. Values below one keep the default.
func WithRateLimit(perSecond int) NominatimOption {
	return func(np *NominatimProvider) {
		if perSecond > 0 {
			np.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func NewNominatimProvider(log *slog.Logger, opts ...NominatimOption) *NominatimProvider {
	np := &NominatimProvider{
		client:    &http.Client{Timeout: nominatimTimeout},
		baseURL:   nominatimURL,
		userAgent: nominatimUserAgent,
		limiter:   rate.NewLimiter(rate.Limit(1), 1),
		log:       log,
	}
	for _, opt := range opts {
		opt(np)
	}
	return np
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode returns the location of the top Nominatim result for address.
func (np *NominatimProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	np.log.DebugContext(ctx, "Geocoding using Nominatim", "address", address)

	if err := np.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for nominatim rate limit: %w", err)
	}

	reqURL, err := url.Parse(np.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	query := reqURL.Query()
	query.Set("q", address)
	query.Set("format", "json")
	query.Set("limit", "1")
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// Nominatim usage policy requires an identifying User-Agent.
	req.Header.Set("User-Agent", np.userAgent)

	resp, err := np.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		np.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("nominatim API returned status %d: %s", resp.StatusCode, string(body))
	}

	var results []nominatimResult
	if err = json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoMatch
	}

	top := results[0]
	lat, err := strconv.ParseFloat(top.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid latitude: %s", ErrNominatimInvalidCoords, top.Lat)
	}
	lng, err := strconv.ParseFloat(top.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid longitude: %s", ErrNominatimInvalidCoords, top.Lon)
	}

	np.log.DebugContext(ctx, "Nominatim found result", "display_name", top.DisplayName, "lat", lat, "lng", lng)
	return &models.Coordinates{Latitude: lat, Longitude: lng}, nil
}
