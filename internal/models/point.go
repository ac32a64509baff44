package models

import (
	"errors"
	"strings"
)

// ErrEmptyName is returned when a point is saved without a display name.
var ErrEmptyName = errors.New("point name must not be empty")

// Point is a named geographic coordinate pair persisted by the point store.
type Point struct {
	ID          string `json:"id"`          // ID is assigned by the store on creation and never changes.
	Name        string `json:"name"`        // Name is the user-supplied display label.
	Coordinates string `json:"coordinates"` // Coordinates are stored as "<lat>,<lng>".
}

// PointInput carries the user-editable fields of a point for create and update.
type PointInput struct {
	Name        string `json:"name"`
	Coordinates string `json:"coordinates"`
}

// Validate checks that the input would produce a well-formed stored point.
func (in PointInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyName
	}
	_, err := ParseCoordinates(in.Coordinates)
	return err
}

// Position parses the point's stored coordinates.
func (p Point) Position() (Coordinates, error) {
	return ParseCoordinates(p.Coordinates)
}
