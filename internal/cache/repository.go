// Package cache puts a Valkey read-through cache in front of a point repository.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/UnknownOlympus/waymark/internal/metrics"
	"github.com/UnknownOlympus/waymark/internal/models"
	"github.com/UnknownOlympus/waymark/internal/repository"
)

const (
	keyVersion = "waymark:points:version"
	keyPrefix  = "waymark:point:"
	keyList    = "waymark:points:"
)

// Cache is the key/value store the decorator reads through.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
}

// Repository serves Get and List from the cache when it can. Every entry is
// keyed by the shared data version current when its read started, and every
// successful write advances that version, so a snapshot taken before a write
// is never served after it, on this instance or any other sharing the cache.
// Cache faults are logged and the call falls through to the wrapped repository.
type Repository struct {
	next    repository.Interface
	cache   Cache
	ttl     time.Duration
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewRepository(next repository.Interface, cache Cache, ttl time.Duration, log *slog.Logger, m *metrics.Metrics) *Repository {
	return &Repository{next: next, cache: cache, ttl: ttl, log: log, metrics: m}
}

func (r *Repository) Insert(ctx context.Context, input models.PointInput) (string, error) {
	id, err := r.next.Insert(ctx, input)
	if err != nil {
		return "", err
	}
	r.advance(ctx, id)
	return id, nil
}

func (r *Repository) Get(ctx context.Context, id string) (models.Point, error) {
	version, ok := r.version(ctx)
	if !ok {
		return r.next.Get(ctx, id)
	}

	key := pointKey(version, id)
	var point models.Point
	if r.lookup(ctx, key, &point) {
		return point, nil
	}

	point, err := r.next.Get(ctx, id)
	if err != nil {
		return models.Point{}, err
	}
	r.store(ctx, key, point)
	return point, nil
}

func (r *Repository) List(ctx context.Context) ([]models.Point, error) {
	version, ok := r.version(ctx)
	if !ok {
		return r.next.List(ctx)
	}

	key := listKey(version)
	var points []models.Point
	if r.lookup(ctx, key, &points) {
		return points, nil
	}

	points, err := r.next.List(ctx)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, points)
	return points, nil
}

func (r *Repository) Update(ctx context.Context, id string, input models.PointInput) error {
	if err := r.next.Update(ctx, id, input); err != nil {
		return err
	}
	r.advance(ctx, id)
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.advance(ctx, id)
	return nil
}

// version reads the shared data version. A missing counter is version zero.
// ok is false when the cache cannot be trusted for this call.
func (r *Repository) version(ctx context.Context) (int64, bool) {
	raw, err := r.cache.Get(ctx, keyVersion)
	if errors.Is(err, ErrMiss) {
		return 0, true
	}
	if err != nil {
		r.metrics.CacheLookups.WithLabelValues("error").Inc()
		r.log.WarnContext(ctx, "Failed to read point cache version", "error", err)
		return 0, false
	}

	version, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		r.metrics.CacheLookups.WithLabelValues("error").Inc()
		r.log.WarnContext(ctx, "Discarding undecodable point cache version", "value", string(raw), "error", err)
		return 0, false
	}
	return version, true
}

func (r *Repository) lookup(ctx context.Context, key string, dst any) bool {
	raw, err := r.cache.Get(ctx, key)
	switch {
	case errors.Is(err, ErrMiss):
		r.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return false
	case err != nil:
		r.metrics.CacheLookups.WithLabelValues("error").Inc()
		r.log.WarnContext(ctx, "Failed to read point cache", "key", key, "error", err)
		return false
	}

	if err = json.Unmarshal(raw, dst); err != nil {
		r.metrics.CacheLookups.WithLabelValues("error").Inc()
		r.log.WarnContext(ctx, "Discarding undecodable cache entry", "key", key, "error", err)
		return false
	}
	r.metrics.CacheLookups.WithLabelValues("hit").Inc()
	return true
}

func (r *Repository) store(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		r.log.WarnContext(ctx, "Failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err = r.cache.Set(ctx, key, raw, r.ttl); err != nil {
		r.log.WarnContext(ctx, "Failed to write point cache", "key", key, "error", err)
	}
}

// advance retires every entry cached under the previous version and drops
// the retired keys of the written point eagerly.
func (r *Repository) advance(ctx context.Context, id string) {
	version, err := r.cache.Incr(ctx, keyVersion)
	if err != nil {
		r.log.ErrorContext(ctx, "Failed to advance point cache version", "id", id, "error", err)
		return
	}

	retired := version - 1
	if err = r.cache.Delete(ctx, listKey(retired), pointKey(retired, id)); err != nil {
		r.log.WarnContext(ctx, "Failed to drop retired cache entries", "version", retired, "error", err)
	}
}

func listKey(version int64) string {
	return keyList + strconv.FormatInt(version, 10)
}

func pointKey(version int64, id string) string {
	return keyPrefix + strconv.FormatInt(version, 10) + ":" + id
}
