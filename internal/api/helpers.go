package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/UnknownOlympus/waymark/internal/editor"
	"github.com/UnknownOlympus/waymark/internal/geocoding"
	"github.com/UnknownOlympus/waymark/internal/mapview"
	"github.com/UnknownOlympus/waymark/internal/models"
	"github.com/UnknownOlympus/waymark/internal/repository"
)

// APIError is the body of every error response.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func sendJSON(w http.ResponseWriter, r *http.Request, content any, status int) {
	body, err := json.Marshal(content)
	if err != nil {
		slog.ErrorContext(r.Context(), "Could not encode JSON response", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	if _, err = w.Write(body); err != nil {
		slog.ErrorContext(r.Context(), "Could not write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	sendJSON(w, r, APIError{Status: status, Code: code, Message: message}, status)
}

// writeFailure maps err onto a status code and writes it.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	writeError(w, r, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, editor.ErrPointNotFound):
		return http.StatusNotFound, "point_not_found"
	case errors.Is(err, models.ErrEmptyName), errors.Is(err, models.ErrInvalidCoordinates):
		return http.StatusUnprocessableEntity, "invalid_point"
	case errors.Is(err, geocoding.ErrNoMatch):
		return http.StatusUnprocessableEntity, "address_not_found"
	case errors.Is(err, editor.ErrGeocodingDisabled):
		return http.StatusNotImplemented, "geocoding_disabled"
	case errors.Is(err, mapview.ErrNotAttached):
		return http.StatusServiceUnavailable, "map_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func parseJSONRequestBody(w http.ResponseWriter, r *http.Request, structure any) error {
	if err := json.NewDecoder(r.Body).Decode(structure); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return fmt.Errorf("error parsing JSON request body: %w", err)
	}
	return nil
}

// statusRecorder remembers the status code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrader take over the connection.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	sr.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		s.log.DebugContext(r.Context(), "Handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration", time.Since(startTime))
	})
}
