package geocoding_test

import (
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/waymark/internal/geocoding"
	"github.com/UnknownOlympus/waymark/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func TestGoogleProvider_Geocode(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	t.Run("error - api fails", func(t *testing.T) {
		t.Parallel()
		client := mocks.NewGoogleAPIClient(t)
		provider := geocoding.NewGoogleProvider(client, slog.Default())

		client.On("Geocode", ctx, &maps.GeocodingRequest{Address: "Tugu Jogja"}).Return(nil, assert.AnError).Once()

		coords, err := provider.Geocode(ctx, "Tugu Jogja")

		require.Nil(t, coords)
		require.ErrorIs(t, err, assert.AnError)
	})

	t.Run("error - no match", func(t *testing.T) {
		t.Parallel()
		client := mocks.NewGoogleAPIClient(t)
		provider := geocoding.NewGoogleProvider(client, slog.Default())

		client.On("Geocode", ctx, &maps.GeocodingRequest{Address: "nowhere"}).Return(nil, nil).Once()

		coords, err := provider.Geocode(ctx, "nowhere")

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrNoMatch)
	})

	t.Run("success - first result wins", func(t *testing.T) {
		t.Parallel()
		client := mocks.NewGoogleAPIClient(t)
		provider := geocoding.NewGoogleProvider(client, slog.Default())
		results := []maps.GeocodingResult{
			{
				FormattedAddress: "Tugu Yogyakarta",
				Geometry:         maps.AddressGeometry{Location: maps.LatLng{Lat: -7.7829, Lng: 110.3671}},
			},
			{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 1, Lng: 1}}},
		}

		client.On("Geocode", ctx, &maps.GeocodingRequest{Address: "Tugu Jogja"}).Return(results, nil).Once()

		coords, err := provider.Geocode(ctx, "Tugu Jogja")

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.InEpsilon(t, -7.7829, coords.Latitude, 0.0001)
		assert.InEpsilon(t, 110.3671, coords.Longitude, 0.0001)
	})
}
