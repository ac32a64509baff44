package pointstore_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/UnknownOlympus/waymark/internal/metrics"
	"github.com/UnknownOlympus/waymark/internal/models"
	"github.com/UnknownOlympus/waymark/internal/pointstore"
	"github.com/UnknownOlympus/waymark/internal/repository"
	"github.com/UnknownOlympus/waymark/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	park     = models.PointInput{Name: "Park", Coordinates: "-7.7956,110.3695"}
	parkWest = models.PointInput{Name: "Park West", Coordinates: "-7.8000,110.3700"}
)

func newStore(t *testing.T, backend repository.Interface, opts ...pointstore.Option) *pointstore.Store {
	t.Helper()
	return pointstore.New(backend, slog.Default(), metrics.NewMetrics(prometheus.NewRegistry()), opts...)
}

func newMemoryStore(t *testing.T, opts ...pointstore.Option) *pointstore.Store {
	t.Helper()
	backend := repository.NewMemoryRepository(repository.WithIDGenerator(repository.SequentialIDs("p")))
	return newStore(t, backend, opts...)
}

// counter counts notifications delivered to one listener.
type counter struct {
	mu    sync.Mutex
	calls int
}

func (c *counter) listen() { c.mu.Lock(); c.calls++; c.mu.Unlock() }

func (c *counter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestParkScenario(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	store := newMemoryStore(t)
	notes := &counter{}
	store.Subscribe(notes.listen)

	id, err := store.Create(ctx, park)
	require.NoError(t, err)
	assert.Equal(t, "p1", id)
	assert.Equal(t, 1, notes.count())

	all, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]models.Point{
		"p1": {ID: "p1", Name: "Park", Coordinates: "-7.7956,110.3695"},
	}, all)

	require.NoError(t, store.Update(ctx, "p1", parkWest))
	assert.Equal(t, 2, notes.count())

	point, found, err := store.ReadOne(ctx, "p1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.Point{ID: "p1", Name: "Park West", Coordinates: "-7.8000,110.3700"}, point)

	require.NoError(t, store.Delete(ctx, "p1"))
	assert.Equal(t, 3, notes.count())

	all, err = store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.NotNil(t, all)

	_, found, err = store.ReadOne(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCreateAssignsFreshIDs(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	store := newMemoryStore(t)

	seen := map[string]bool{}
	for i := range 5 {
		input := models.PointInput{Name: "spot", Coordinates: models.FormatCoordinates(float64(i), -float64(i))}
		id, err := store.Create(ctx, input)
		require.NoError(t, err)
		require.False(t, seen[id], "id %s reused", id)
		seen[id] = true

		point, found, err := store.ReadOne(ctx, id)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, input.Name, point.Name)
		assert.Equal(t, input.Coordinates, point.Coordinates)

		if i%2 == 0 {
			require.NoError(t, store.Delete(ctx, id))
		}
	}
}

func TestDeleteAbsentIsNoop(t *testing.T) {
	t.Parallel()
	store := newMemoryStore(t)
	notes := &counter{}
	store.Subscribe(notes.listen)

	require.NoError(t, store.Delete(t.Context(), "never-existed"))
	assert.Equal(t, 1, notes.count())
}

func TestPersistenceErrors(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	t.Run("error - create rejected", func(t *testing.T) {
		t.Parallel()
		backend := mocks.NewInterface(t)
		store := newStore(t, backend)
		notes := &counter{}
		store.Subscribe(notes.listen)

		backend.On("Insert", ctx, park).Return("", assert.AnError).Once()

		id, err := store.Create(ctx, park)

		require.Empty(t, id)
		var perr *pointstore.PersistenceError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, pointstore.OpCreate, perr.Op)
		require.ErrorIs(t, err, assert.AnError)
		assert.Zero(t, notes.count())
	})

	t.Run("error - invalid input never reaches the backend", func(t *testing.T) {
		t.Parallel()
		backend := mocks.NewInterface(t)
		store := newStore(t, backend)

		_, err := store.Create(ctx, models.PointInput{Name: "Park", Coordinates: "somewhere"})
		require.ErrorIs(t, err, models.ErrInvalidCoordinates)

		err = store.Update(ctx, "p1", models.PointInput{Name: "", Coordinates: "1,2"})
		require.ErrorIs(t, err, models.ErrEmptyName)
		var perr *pointstore.PersistenceError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "p1", perr.ID)
	})

	t.Run("error - read all rejected", func(t *testing.T) {
		t.Parallel()
		backend := mocks.NewInterface(t)
		store := newStore(t, backend)

		backend.On("List", ctx).Return(nil, assert.AnError).Once()

		all, err := store.ReadAll(ctx)

		require.Nil(t, all)
		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "point store read_all")
	})

	t.Run("error - read one connection failure", func(t *testing.T) {
		t.Parallel()
		backend := mocks.NewInterface(t)
		store := newStore(t, backend)

		backend.On("Get", ctx, "p1").Return(models.Point{}, assert.AnError).Once()

		_, found, err := store.ReadOne(ctx, "p1")

		assert.False(t, found)
		require.ErrorIs(t, err, assert.AnError)
	})

	t.Run("error - update unknown id", func(t *testing.T) {
		t.Parallel()
		store := newMemoryStore(t)
		notes := &counter{}
		store.Subscribe(notes.listen)

		err := store.Update(ctx, "missing", parkWest)

		var perr *pointstore.PersistenceError
		require.ErrorAs(t, err, &perr)
		require.ErrorIs(t, err, repository.ErrNotFound)
		assert.Equal(t, `point store update "missing": point not found`, err.Error())
		assert.Zero(t, notes.count())
	})

	t.Run("error - delete rejected", func(t *testing.T) {
		t.Parallel()
		backend := mocks.NewInterface(t)
		store := newStore(t, backend)
		notes := &counter{}
		store.Subscribe(notes.listen)

		backend.On("Delete", ctx, "p1").Return(assert.AnError).Once()

		err := store.Delete(ctx, "p1")

		require.ErrorIs(t, err, assert.AnError)
		assert.Zero(t, notes.count())
	})
}

func TestSubscribe(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	t.Run("every subscriber gets every notification once", func(t *testing.T) {
		t.Parallel()
		store := newMemoryStore(t)
		first, second := &counter{}, &counter{}
		store.Subscribe(first.listen)
		store.Subscribe(second.listen)

		id, err := store.Create(ctx, park)
		require.NoError(t, err)
		require.NoError(t, store.Update(ctx, id, parkWest))
		require.NoError(t, store.Delete(ctx, id))

		assert.Equal(t, 3, first.count())
		assert.Equal(t, 3, second.count())
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		t.Parallel()
		store := newMemoryStore(t)
		kept, dropped := &counter{}, &counter{}
		store.Subscribe(kept.listen)
		sub := store.Subscribe(dropped.listen)

		_, err := store.Create(ctx, park)
		require.NoError(t, err)
		sub.Unsubscribe()
		sub.Unsubscribe()
		_, err = store.Create(ctx, park)
		require.NoError(t, err)

		assert.Equal(t, 2, kept.count())
		assert.Equal(t, 1, dropped.count())
	})

	t.Run("listener may unsubscribe itself", func(t *testing.T) {
		t.Parallel()
		store := newMemoryStore(t)
		calls := 0
		var sub *pointstore.Subscription
		sub = store.Subscribe(func() {
			calls++
			sub.Unsubscribe()
		})

		for range 3 {
			_, err := store.Create(ctx, park)
			require.NoError(t, err)
		}

		assert.Equal(t, 1, calls)
	})

	t.Run("concurrent mutations notify once each", func(t *testing.T) {
		t.Parallel()
		store := newMemoryStore(t)
		notes := &counter{}
		store.Subscribe(notes.listen)

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Create(ctx, park)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, 20, notes.count())
	})
}

type recordingRelay struct {
	mu      sync.Mutex
	changes []pointstore.Change
	err     error
}

func (r *recordingRelay) Announce(_ context.Context, change pointstore.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
	return r.err
}

func TestRelay(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	t.Run("mutations are announced", func(t *testing.T) {
		t.Parallel()
		relay := &recordingRelay{}
		store := newMemoryStore(t, pointstore.WithRelay(relay))

		id, err := store.Create(ctx, park)
		require.NoError(t, err)
		require.NoError(t, store.Update(ctx, id, parkWest))
		require.NoError(t, store.Delete(ctx, id))

		assert.Equal(t, []pointstore.Change{
			{Op: pointstore.OpCreate, PointID: "p1"},
			{Op: pointstore.OpUpdate, PointID: "p1"},
			{Op: pointstore.OpDelete, PointID: "p1"},
		}, relay.changes)
	})

	t.Run("relay failure does not fail the mutation", func(t *testing.T) {
		t.Parallel()
		relay := &recordingRelay{err: errors.New("nats down")}
		store := newMemoryStore(t, pointstore.WithRelay(relay))
		notes := &counter{}
		store.Subscribe(notes.listen)

		_, err := store.Create(ctx, park)

		require.NoError(t, err)
		assert.Equal(t, 1, notes.count())
	})

	t.Run("external changes notify without announcing", func(t *testing.T) {
		t.Parallel()
		relay := &recordingRelay{}
		store := newMemoryStore(t, pointstore.WithRelay(relay))
		notes := &counter{}
		store.Subscribe(notes.listen)

		store.NotifyExternal()

		assert.Equal(t, 1, notes.count())
		assert.Empty(t, relay.changes)
	})

	t.Run("failed mutations are not announced", func(t *testing.T) {
		t.Parallel()
		relay := &recordingRelay{}
		backend := mocks.NewInterface(t)
		store := newStore(t, backend, pointstore.WithRelay(relay))

		backend.On("Update", ctx, "p1", mock.Anything).Return(assert.AnError).Once()

		require.Error(t, store.Update(ctx, "p1", parkWest))
		assert.Empty(t, relay.changes)
	})
}
