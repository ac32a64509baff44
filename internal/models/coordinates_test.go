package models_test

import (
	"testing"

	"github.com/UnknownOlympus/waymark/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCoordinates(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "-7.795600000,110.369500000", models.FormatCoordinates(-7.7956, 110.3695))
	assert.Equal(t, "0.000000000,0.000000000", models.Coordinates{}.String())
}

func TestParseCoordinates(t *testing.T) {
	t.Parallel()

	t.Run("success - round trip", func(t *testing.T) {
		t.Parallel()
		cases := []models.Coordinates{
			{Latitude: -7.7956, Longitude: 110.3695},
			{Latitude: 51.5007292, Longitude: -0.1246254},
			{Latitude: -33.856784, Longitude: -151.215297},
			{Latitude: 89.999999999, Longitude: -179.999999999},
			{Latitude: 0, Longitude: 0},
		}
		for _, want := range cases {
			got, err := models.ParseCoordinates(want.String())
			require.NoError(t, err)
			assert.InDelta(t, want.Latitude, got.Latitude, 1e-9)
			assert.InDelta(t, want.Longitude, got.Longitude, 1e-9)
		}
	})

	t.Run("success - nine decimals", func(t *testing.T) {
		t.Parallel()
		got, err := models.ParseCoordinates("-7.795600000,110.369500000")
		require.NoError(t, err)
		assert.InDelta(t, -7.7956, got.Latitude, 1e-12)
		assert.InDelta(t, 110.3695, got.Longitude, 1e-12)
	})

	t.Run("success - surrounding spaces", func(t *testing.T) {
		t.Parallel()
		got, err := models.ParseCoordinates(" -7.8 , 110.37 ")
		require.NoError(t, err)
		assert.InDelta(t, -7.8, got.Latitude, 1e-12)
		assert.InDelta(t, 110.37, got.Longitude, 1e-12)
	})

	t.Run("error - malformed", func(t *testing.T) {
		t.Parallel()
		for _, raw := range []string{"", "-7.7956", "1,2,3", "abc,110.3", "-7.7,xyz", ","} {
			_, err := models.ParseCoordinates(raw)
			require.ErrorIs(t, err, models.ErrInvalidCoordinates, raw)
		}
	})

	t.Run("error - non-finite", func(t *testing.T) {
		t.Parallel()
		for _, raw := range []string{"NaN,1", "1,Inf", "+Inf,-Inf", "nan,nan", "1e400,0"} {
			_, err := models.ParseCoordinates(raw)
			require.ErrorIs(t, err, models.ErrInvalidCoordinates, raw)
		}
	})
}

func TestPointInputValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, models.PointInput{Name: "Park", Coordinates: "-7.7956,110.3695"}.Validate())
	require.ErrorIs(t, models.PointInput{Name: "  ", Coordinates: "-7.7956,110.3695"}.Validate(), models.ErrEmptyName)
	require.ErrorIs(t, models.PointInput{Name: "Park", Coordinates: "nowhere"}.Validate(), models.ErrInvalidCoordinates)

	pos, err := models.Point{ID: "p1", Name: "Park", Coordinates: "-7.7956,110.3695"}.Position()
	require.NoError(t, err)
	assert.InDelta(t, 110.3695, pos.Longitude, 1e-12)
}
