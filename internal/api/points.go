package api

import (
	"maps"
	"net/http"
	"slices"

	"github.com/UnknownOlympus/waymark/internal/editor"
	"github.com/UnknownOlympus/waymark/internal/interaction"
	"github.com/UnknownOlympus/waymark/internal/models"
	"github.com/gorilla/mux"
)

// PointRequest is the body of create and update calls. Coordinates win over
// Address; Address is geocoded when Coordinates is absent.
type PointRequest struct {
	Name        *string `json:"name"`
	Coordinates *string `json:"coordinates"`
	Address     *string `json:"address"`
}

func (s *Server) listPoints(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.ReadAll(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	points := make([]models.Point, 0, len(all))
	for _, id := range slices.Sorted(maps.Keys(all)) {
		points = append(points, all[id])
	}
	sendJSON(w, r, points, http.StatusOK)
}

func (s *Server) getPoint(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)[PointIDKey]

	point, found, err := s.store.ReadOne(r.Context(), id)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if !found {
		writeError(w, r, http.StatusNotFound, "point_not_found", "point "+id+" does not exist")
		return
	}
	sendJSON(w, r, point, http.StatusOK)
}

func (s *Server) createPoint(w http.ResponseWriter, r *http.Request) {
	s.savePoint(w, r, "", http.StatusCreated)
}

func (s *Server) updatePoint(w http.ResponseWriter, r *http.Request) {
	s.savePoint(w, r, mux.Vars(r)[PointIDKey], http.StatusOK)
}

// savePoint drives one point form session for the request.
func (s *Server) savePoint(w http.ResponseWriter, r *http.Request, id string, status int) {
	ctx := r.Context()

	var body PointRequest
	if err := parseJSONRequestBody(w, r, &body); err != nil {
		return
	}

	form := editor.New(s.store, s.geocoder,
		interaction.NewHeadlessPrompter(s.log, false), interaction.NewHeadlessNavigator(s.log), s.log)
	if err := form.Open(ctx, id); err != nil {
		writeFailure(w, r, err)
		return
	}

	if body.Name != nil {
		form.SetName(*body.Name)
	}
	switch {
	case body.Coordinates != nil:
		form.SetCoordinates(*body.Coordinates)
	case body.Address != nil:
		if _, err := form.Locate(ctx, *body.Address); err != nil {
			writeFailure(w, r, err)
			return
		}
	}

	if !form.Ready() {
		writeError(w, r, http.StatusBadRequest, "incomplete_point", "name and coordinates are required")
		return
	}

	if _, err := form.Save(ctx); err != nil {
		writeFailure(w, r, err)
		return
	}

	values := form.Values()
	sendJSON(w, r, models.Point{ID: form.ID(), Name: values.Name, Coordinates: values.Coordinates}, status)
}

func (s *Server) deletePoint(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), mux.Vars(r)[PointIDKey]); err != nil {
		writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
