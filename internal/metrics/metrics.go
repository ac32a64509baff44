package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	StoreOperations   *prometheus.CounterVec
	StoreSeconds      *prometheus.HistogramVec
	Notifications     prometheus.Counter
	Subscribers       prometheus.Gauge
	Reloads           *prometheus.CounterVec
	Markers           prometheus.Gauge
	RelayErrors       prometheus.Counter
	RelayReceived     prometheus.Counter
	CacheLookups      *prometheus.CounterVec
	GeocodeSeconds    *prometheus.HistogramVec
	StreamConnections prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		StoreOperations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "waymark_store_operations_total",
			Help: "Total number of point store operations by operation and outcome.",
		}, []string{"op", "status"}),
		StoreSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "waymark_store_operation_duration_seconds",
			Help:    "Duration of round-trips to the backing point store.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		Notifications: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "waymark_store_notifications_total",
			Help: "Total number of change notifications published to subscribers.",
		}),
		Subscribers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "waymark_store_subscribers",
			Help: "Current number of change-notification subscribers.",
		}),
		Reloads: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "waymark_map_reloads_total",
			Help: "Total number of marker reloads by outcome.",
		}, []string{"status"}),
		Markers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "waymark_map_markers",
			Help: "Number of markers currently rendered.",
		}),
		RelayErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "waymark_relay_errors_total",
			Help: "Total number of change announcements that could not be relayed.",
		}),
		RelayReceived: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "waymark_relay_received_total",
			Help: "Total number of changes received from other instances.",
		}),
		CacheLookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "waymark_cache_lookups_total",
			Help: "Total number of point cache lookups by result.",
		}, []string{"result"}),
		GeocodeSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "waymark_geocoder_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		StreamConnections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "waymark_stream_connections",
			Help: "Current number of open marker stream connections.",
		}),
	}
}
