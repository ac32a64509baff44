package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// coordinatePrecision is the number of decimals written for each component,
// matching what a dragged map marker reports.
const coordinatePrecision = 9

// ErrInvalidCoordinates is returned when a coordinate string is not "<lat>,<lng>".
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Coordinates represents a geographical point defined by its latitude and longitude.
type Coordinates struct {
	Latitude  float64 `json:"lat"` // Latitude of the geographical point.
	Longitude float64 `json:"lng"` // Longitude of the geographical point.
}

// String renders the coordinates in their persisted "<lat>,<lng>" form.
func (c Coordinates) String() string {
	return FormatCoordinates(c.Latitude, c.Longitude)
}

// FormatCoordinates joins latitude and longitude into the persisted form,
// each component with 9 decimals (e.g. "-7.795600000,110.369500000").
func FormatCoordinates(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', coordinatePrecision, 64) + "," +
		strconv.FormatFloat(lng, 'f', coordinatePrecision, 64)
}

// ParseCoordinates parses a "<lat>,<lng>" string. The string must hold exactly
// one comma separating two finite floating-point tokens; surrounding spaces
// are ignored.
func ParseCoordinates(raw string) (Coordinates, error) {
	parts := strings.Split(raw, ",")
	const components = 2
	if len(parts) != components {
		return Coordinates{}, fmt.Errorf("%w: %q", ErrInvalidCoordinates, raw)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || !finite(lat) {
		return Coordinates{}, fmt.Errorf("%w: invalid latitude %q", ErrInvalidCoordinates, parts[0])
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || !finite(lng) {
		return Coordinates{}, fmt.Errorf("%w: invalid longitude %q", ErrInvalidCoordinates, parts[1])
	}

	return Coordinates{Latitude: lat, Longitude: lng}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
