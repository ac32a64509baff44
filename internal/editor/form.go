// Package editor implements the create/edit point form.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/UnknownOlympus/waymark/internal/geocoding"
	"github.com/UnknownOlympus/waymark/internal/interaction"
	"github.com/UnknownOlympus/waymark/internal/mapview"
	"github.com/UnknownOlympus/waymark/internal/models"
)

const (
	TitleCreate = "Create Point"
	TitleEdit   = "Edit Point"
)

var (
	// ErrGeocodingDisabled is returned by Locate when no provider is configured.
	ErrGeocodingDisabled = errors.New("address search is disabled")
	// ErrPointNotFound is returned by Open for an id the store does not know.
	ErrPointNotFound = errors.New("point not found")
)

// Store is the part of the point store the form writes through.
type Store interface {
	Create(ctx context.Context, input models.PointInput) (string, error)
	ReadOne(ctx context.Context, id string) (models.Point, bool, error)
	Update(ctx context.Context, id string, input models.PointInput) error
}

// Form holds the state of one create or edit session. It is not safe for
// concurrent use.
type Form struct {
	store     Store
	geocoder  geocoding.Provider
	prompter  interaction.Prompter
	navigator interaction.Navigator
	log       *slog.Logger

	id          string
	name        string
	coordinates string
	marker      models.Coordinates
}

// New creates a form in create mode. geocoder may be nil.
func New(
	store Store,
	geocoder geocoding.Provider,
	prompter interaction.Prompter,
	navigator interaction.Navigator,
	log *slog.Logger,
) *Form {
	return &Form{
		store:     store,
		geocoder:  geocoder,
		prompter:  prompter,
		navigator: navigator,
		log:       log,
		marker:    mapview.DefaultView.Center,
	}
}

// Open resets the form. An empty id starts create mode; otherwise the point is
// loaded for editing.
func (f *Form) Open(ctx context.Context, id string) error {
	f.id, f.name, f.coordinates = id, "", ""
	f.marker = mapview.DefaultView.Center
	if id == "" {
		return nil
	}

	point, found, err := f.store.ReadOne(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load point: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrPointNotFound, id)
	}

	f.name, f.coordinates = point.Name, point.Coordinates
	if position, errPos := point.Position(); errPos == nil {
		f.marker = position
	} else {
		f.log.WarnContext(ctx, "Stored point has malformed coordinates", "id", id, "error", errPos)
	}
	return nil
}

// Title is the heading shown for the current mode.
func (f *Form) Title() string {
	if f.id == "" {
		return TitleCreate
	}
	return TitleEdit
}

// ID is the point being edited, or the id assigned by the last successful create.
func (f *Form) ID() string { return f.id }

func (f *Form) SetName(name string) { f.name = name }

// SetCoordinates sets the coordinate string directly. The marker follows when
// the string parses.
func (f *Form) SetCoordinates(raw string) {
	f.coordinates = raw
	if position, err := models.ParseCoordinates(raw); err == nil {
		f.marker = position
	}
}

// MoveMarker places the marker and rewrites the coordinates to match it.
func (f *Form) MoveMarker(lat, lng float64) {
	f.marker = models.Coordinates{Latitude: lat, Longitude: lng}
	f.coordinates = models.FormatCoordinates(lat, lng)
}

// Marker is the current marker position.
func (f *Form) Marker() models.Coordinates { return f.marker }

// Values returns what Save would persist.
func (f *Form) Values() models.PointInput {
	return models.PointInput{Name: f.name, Coordinates: f.coordinates}
}

// Ready reports whether both fields are filled in.
func (f *Form) Ready() bool {
	return strings.TrimSpace(f.name) != "" && f.coordinates != ""
}

// Locate moves the marker to the geocoded address.
func (f *Form) Locate(ctx context.Context, address string) (models.Coordinates, error) {
	if f.geocoder == nil {
		return models.Coordinates{}, ErrGeocodingDisabled
	}

	coords, err := f.geocoder.Geocode(ctx, address)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("failed to locate address: %w", err)
	}

	f.MoveMarker(coords.Latitude, coords.Longitude)
	return *coords, nil
}

// Save creates or updates the point and navigates back. It does nothing and
// reports false while the form is incomplete. A store failure is shown as a
// "Save Failed" alert and returned.
func (f *Form) Save(ctx context.Context) (bool, error) {
	if !f.Ready() {
		return false, nil
	}

	input := f.Values()
	var err error
	if f.id == "" {
		var id string
		id, err = f.store.Create(ctx, input)
		if err == nil {
			f.id = id
		}
	} else {
		err = f.store.Update(ctx, f.id, input)
	}
	if err != nil {
		if errAlert := f.prompter.Alert(ctx, interaction.Alert{Header: "Save Failed", Message: err.Error()}); errAlert != nil {
			f.log.ErrorContext(ctx, "Failed to show alert", "error", errAlert)
		}
		return false, err
	}

	if err = f.navigator.Back(ctx); err != nil {
		f.log.WarnContext(ctx, "Failed to navigate back after save", "error", err)
	}
	return true, nil
}
