package repository

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/UnknownOlympus/waymark/internal/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps points in process memory. It backs local runs and tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	points map[string]models.Point
	order  []string
	newID  func() string
}

// MemoryOption configures a MemoryRepository.
type MemoryOption func(*MemoryRepository)

// WithIDGenerator replaces the default UUID generator.
// The generator must never return the same id twice.
func WithIDGenerator(gen func() string) MemoryOption {
	return func(m *MemoryRepository) {
		m.newID = gen
	}
}

// SequentialIDs returns a generator producing prefix1, prefix2, ...
func SequentialIDs(prefix string) func() string {
	var counter atomic.Uint64
	return func() string {
		return prefix + strconv.FormatUint(counter.Add(1), 10)
	}
}

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository(opts ...MemoryOption) *MemoryRepository {
	m := &MemoryRepository{
		points: make(map[string]models.Point),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryRepository) Insert(_ context.Context, input models.PointInput) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.newID()
	m.points[id] = models.Point{ID: id, Name: input.Name, Coordinates: input.Coordinates}
	m.order = append(m.order, id)
	return id, nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (models.Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	point, ok := m.points[id]
	if !ok {
		return models.Point{}, ErrNotFound
	}
	return point, nil
}

func (m *MemoryRepository) List(_ context.Context) ([]models.Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	points := make([]models.Point, 0, len(m.order))
	for _, id := range m.order {
		points = append(points, m.points[id])
	}
	return points, nil
}

func (m *MemoryRepository) Update(_ context.Context, id string, input models.PointInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.points[id]; !ok {
		return ErrNotFound
	}
	m.points[id] = models.Point{ID: id, Name: input.Name, Coordinates: input.Coordinates}
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.points[id]; !ok {
		return nil
	}
	delete(m.points, id)
	m.order = slices.DeleteFunc(m.order, func(v string) bool { return v == id })
	return nil
}
