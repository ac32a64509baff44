package api

import (
	"net/http"

	"github.com/UnknownOlympus/waymark/internal/editor"
	"github.com/UnknownOlympus/waymark/internal/models"
)

// GeocodeResponse is the location found for an address.
type GeocodeResponse struct {
	Address     string  `json:"address"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lng"`
	Coordinates string  `json:"coordinates"`
}

func (s *Server) geocode(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, r, http.StatusBadRequest, "bad_request", "address query parameter is required")
		return
	}
	if s.geocoder == nil {
		writeFailure(w, r, editor.ErrGeocodingDisabled)
		return
	}

	coords, err := s.geocoder.Geocode(r.Context(), address)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	sendJSON(w, r, GeocodeResponse{
		Address:     address,
		Latitude:    coords.Latitude,
		Longitude:   coords.Longitude,
		Coordinates: models.FormatCoordinates(coords.Latitude, coords.Longitude),
	}, http.StatusOK)
}
