package pointstore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/waymark/internal/metrics"
	"github.com/UnknownOlympus/waymark/internal/models"
	"github.com/UnknownOlympus/waymark/internal/repository"
)

// Change describes a completed mutation. Local subscribers never see it;
// it is only handed to the relay so other instances can re-query.
type Change struct {
	Op      string
	PointID string
}

// Relay forwards completed mutations to other store instances.
type Relay interface {
	Announce(ctx context.Context, change Change) error
}

// Option configures a Store.
type Option func(*Store)

// WithRelay announces every successful mutation through relay.
func WithRelay(relay Relay) Option {
	return func(s *Store) {
		s.relay = relay
	}
}

// Store mediates all access to persisted points and notifies subscribers
// after every successful create, update and delete.
type Store struct {
	backend  repository.Interface
	log      *slog.Logger
	metrics  *metrics.Metrics
	notifier *notifier
	relay    Relay
}

// New creates a Store over the given backend.
func New(backend repository.Interface, log *slog.Logger, m *metrics.Metrics, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		log:     log,
		metrics: m,
	}
	s.notifier = newNotifier(func(count int) { m.Subscribers.Set(float64(count)) })
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and persists a new point and returns its assigned id.
func (s *Store) Create(ctx context.Context, input models.PointInput) (string, error) {
	if err := input.Validate(); err != nil {
		return "", s.fail(ctx, OpCreate, "", err)
	}

	var id string
	err := s.observe(OpCreate, func() error {
		var errInsert error
		id, errInsert = s.backend.Insert(ctx, input)
		return errInsert
	})
	if err != nil {
		return "", s.fail(ctx, OpCreate, "", err)
	}

	s.log.InfoContext(ctx, "Point created", "id", id, "name", input.Name)
	s.changed(ctx, Change{Op: OpCreate, PointID: id})
	return id, nil
}

// ReadAll returns a snapshot of every stored point keyed by id.
func (s *Store) ReadAll(ctx context.Context) (map[string]models.Point, error) {
	var points []models.Point
	err := s.observe(OpReadAll, func() error {
		var errList error
		points, errList = s.backend.List(ctx)
		return errList
	})
	if err != nil {
		return nil, s.fail(ctx, OpReadAll, "", err)
	}

	snapshot := make(map[string]models.Point, len(points))
	for _, point := range points {
		snapshot[point.ID] = point
	}
	return snapshot, nil
}

// ReadOne returns the point stored under id. found is false when it is absent.
func (s *Store) ReadOne(ctx context.Context, id string) (models.Point, bool, error) {
	var point models.Point
	found := true
	err := s.observe(OpReadOne, func() error {
		var errGet error
		point, errGet = s.backend.Get(ctx, id)
		if errors.Is(errGet, repository.ErrNotFound) {
			found = false
			return nil
		}
		return errGet
	})
	if err != nil {
		return models.Point{}, false, s.fail(ctx, OpReadOne, id, err)
	}

	return point, found, nil
}

// Update overwrites name and coordinates of an existing point.
func (s *Store) Update(ctx context.Context, id string, input models.PointInput) error {
	if err := input.Validate(); err != nil {
		return s.fail(ctx, OpUpdate, id, err)
	}

	err := s.observe(OpUpdate, func() error {
		return s.backend.Update(ctx, id, input)
	})
	if err != nil {
		return s.fail(ctx, OpUpdate, id, err)
	}

	s.log.InfoContext(ctx, "Point updated", "id", id, "name", input.Name)
	s.changed(ctx, Change{Op: OpUpdate, PointID: id})
	return nil
}

// Delete removes a point. Deleting an absent id succeeds and still notifies.
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.observe(OpDelete, func() error {
		return s.backend.Delete(ctx, id)
	})
	if err != nil {
		return s.fail(ctx, OpDelete, id, err)
	}

	s.log.InfoContext(ctx, "Point deleted", "id", id)
	s.changed(ctx, Change{Op: OpDelete, PointID: id})
	return nil
}

// Subscribe registers a listener called after every successful mutation.
// Listeners receive no payload and are expected to re-query.
func (s *Store) Subscribe(listener func()) *Subscription {
	return s.notifier.add(listener)
}

// NotifyExternal tells local subscribers that another instance changed the
// point set. The change is not relayed again.
func (s *Store) NotifyExternal() {
	s.metrics.RelayReceived.Inc()
	s.publish()
}

func (s *Store) changed(ctx context.Context, change Change) {
	s.publish()

	if s.relay == nil {
		return
	}
	if err := s.relay.Announce(ctx, change); err != nil {
		s.metrics.RelayErrors.Inc()
		s.log.WarnContext(ctx, "Failed to relay point change", "op", change.Op, "id", change.PointID, "error", err)
	}
}

func (s *Store) publish() {
	delivered := s.notifier.publish()
	s.metrics.Notifications.Inc()
	s.log.Debug("Change notification published", "subscribers", delivered)
}

func (s *Store) observe(op string, call func() error) error {
	startTime := time.Now()
	err := call()
	s.metrics.StoreSeconds.WithLabelValues(op).Observe(time.Since(startTime).Seconds())

	status := "success"
	if err != nil {
		status = "failure"
	}
	s.metrics.StoreOperations.WithLabelValues(op, status).Inc()
	return err
}

func (s *Store) fail(ctx context.Context, op, id string, err error) error {
	s.log.ErrorContext(ctx, "Point store operation failed", "op", op, "id", id, "error", err)
	return &PersistenceError{Op: op, ID: id, Err: err}
}
