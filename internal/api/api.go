// Package api exposes points, markers and address search over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/UnknownOlympus/waymark/internal/geocoding"
	"github.com/UnknownOlympus/waymark/internal/mapview"
	"github.com/UnknownOlympus/waymark/internal/metrics"
	"github.com/UnknownOlympus/waymark/internal/pointstore"
	"github.com/UnknownOlympus/waymark/internal/surface"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	BasePath    = "/api/v1"
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"
	PointsPath  = "/points"
	MarkersPath = "/markers"
	StreamPath  = "/stream"
	GeocodePath = "/geocode"
	PointIDKey  = "id"
)

// Pinger is a dependency the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds everything the handlers need.
type Server struct {
	store      *pointstore.Store
	controller *mapview.Controller
	layer      *surface.Layer
	geocoder   geocoding.Provider // nil when address search is disabled
	gatherer   prometheus.Gatherer
	checks     []Pinger
	metrics    *metrics.Metrics
	log        *slog.Logger
}

func NewServer(
	store *pointstore.Store,
	controller *mapview.Controller,
	layer *surface.Layer,
	geocoder geocoding.Provider,
	gatherer prometheus.Gatherer,
	m *metrics.Metrics,
	log *slog.Logger,
	checks ...Pinger,
) *Server {
	return &Server{
		store:      store,
		controller: controller,
		layer:      layer,
		geocoder:   geocoder,
		gatherer:   gatherer,
		checks:     checks,
		metrics:    m,
		log:        log,
	}
}

// Router returns the routes of version 1 of the API plus health and metrics.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
	})

	router.HandleFunc(HealthPath, s.health).Methods(http.MethodGet).Name(HealthPath)
	router.Handle(MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).
		Methods(http.MethodGet).Name(MetricsPath)

	v1 := router.PathPrefix(BasePath).Subrouter()

	points := v1.PathPrefix(PointsPath).Subrouter()
	points.HandleFunc("", s.listPoints).Methods(http.MethodGet).Name("listPoints")
	points.HandleFunc("", s.createPoint).Methods(http.MethodPost).Name("createPoint")
	pointPath := fmt.Sprintf("/{%s}", PointIDKey)
	points.HandleFunc(pointPath, s.getPoint).Methods(http.MethodGet).Name("getPoint")
	points.HandleFunc(pointPath, s.updatePoint).Methods(http.MethodPut).Name("updatePoint")
	points.HandleFunc(pointPath, s.deletePoint).Methods(http.MethodDelete).Name("deletePoint")

	markers := v1.PathPrefix(MarkersPath).Subrouter()
	markers.HandleFunc("", s.markers).Methods(http.MethodGet).Name("markers")
	markers.HandleFunc(StreamPath, s.stream).Methods(http.MethodGet).Name("markerStream")

	v1.HandleFunc(GeocodePath, s.geocode).Methods(http.MethodGet).Name("geocode")

	router.Use(s.loggingMiddleware)
	return router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.log.DebugContext(ctx, "Performing health checks...")

	for _, check := range s.checks {
		if err := check.Ping(ctx); err != nil {
			s.log.WarnContext(ctx, "Health check failed", "error", err)
			writeError(w, r, http.StatusServiceUnavailable, "unhealthy", "dependency ping failed")
			return
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		s.log.ErrorContext(ctx, "failed to write reply", "error", err)
	}
}
