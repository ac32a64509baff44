package repository_test

import (
	"testing"

	"github.com/UnknownOlympus/waymark/internal/models"
	"github.com/UnknownOlympus/waymark/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	repo := repository.NewMemoryRepository(repository.WithIDGenerator(repository.SequentialIDs("p")))

	points, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, points)

	first, err := repo.Insert(ctx, models.PointInput{Name: "Park", Coordinates: "-7.7956,110.3695"})
	require.NoError(t, err)
	second, err := repo.Insert(ctx, models.PointInput{Name: "Museum", Coordinates: "-7.8,110.37"})
	require.NoError(t, err)
	assert.Equal(t, "p1", first)
	assert.Equal(t, "p2", second)

	err = repo.Update(ctx, "p1", models.PointInput{Name: "Park West", Coordinates: "-7.8000,110.3700"})
	require.NoError(t, err)
	point, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.Point{ID: "p1", Name: "Park West", Coordinates: "-7.8000,110.3700"}, point)

	require.ErrorIs(t, repo.Update(ctx, "p9", models.PointInput{Name: "x", Coordinates: "1,2"}), repository.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "p1"))
	require.NoError(t, repo.Delete(ctx, "p1"))
	_, err = repo.Get(ctx, "p1")
	require.ErrorIs(t, err, repository.ErrNotFound)

	third, err := repo.Insert(ctx, models.PointInput{Name: "Temple", Coordinates: "-7.6,110.2"})
	require.NoError(t, err)
	assert.Equal(t, "p3", third, "deleted ids are never reused")

	points, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "p2", points[0].ID)
	assert.Equal(t, "p3", points[1].ID)
}
