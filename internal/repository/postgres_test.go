package repository_test

import (
	"log/slog"
	"regexp"
	"testing"

	"github.com/UnknownOlympus/waymark/internal/models"
	"github.com/UnknownOlympus/waymark/internal/repository"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	insertPointQuery = `
	INSERT INTO points (point_id, name, coordinates)
	VALUES ($1, $2, $3);
`
	getPointQuery = `
	SELECT point_id, name, coordinates
	FROM points
	WHERE point_id = $1;
`
	listPointsQuery = `
	SELECT point_id, name, coordinates
	FROM points
	ORDER BY created_at ASC, point_id ASC;
`
	updatePointQuery = `
	UPDATE points
	SET
		name = $1,
		coordinates = $2,
		updated_at = now()
	WHERE
		point_id = $3;
`
	deletePointQuery = `
	DELETE FROM points
	WHERE point_id = $1;
`
)

var park = models.PointInput{Name: "Park", Coordinates: "-7.7956,110.3695"}

func TestInsert(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()

	t.Run("error - insert point", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta(insertPointQuery)).
			WithArgs(pgxmock.AnyArg(), park.Name, park.Coordinates).
			WillReturnError(assert.AnError)

		id, err := repo.Insert(ctx, park)

		require.Empty(t, id)
		require.ErrorContains(t, err, "failed to insert point")
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - fresh ids", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		for range 2 {
			mock.ExpectExec(regexp.QuoteMeta(insertPointQuery)).
				WithArgs(pgxmock.AnyArg(), park.Name, park.Coordinates).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
		}

		first, err := repo.Insert(ctx, park)
		require.NoError(t, err)
		second, err := repo.Insert(ctx, park)
		require.NoError(t, err)

		assert.NotEmpty(t, first)
		assert.NotEqual(t, first, second)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGet(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()

	t.Run("error - not found", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(getPointQuery)).
			WithArgs("missing").
			WillReturnRows(pgxmock.NewRows([]string{"point_id", "name", "coordinates"}))

		_, err = repo.Get(ctx, "missing")

		require.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - query point", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(getPointQuery)).
			WithArgs("p1").
			WillReturnError(assert.AnError)

		_, err = repo.Get(ctx, "p1")

		require.ErrorContains(t, err, "failed to get point")
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - get point", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(getPointQuery)).
			WithArgs("p1").
			WillReturnRows(
				pgxmock.NewRows([]string{"point_id", "name", "coordinates"}).
					AddRow("p1", park.Name, park.Coordinates),
			)

		point, err := repo.Get(ctx, "p1")

		require.NoError(t, err)
		assert.Equal(t, models.Point{ID: "p1", Name: park.Name, Coordinates: park.Coordinates}, point)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestList(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()

	t.Run("error - query points", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(listPointsQuery)).WillReturnError(assert.AnError)

		points, err := repo.List(ctx)

		require.Nil(t, points)
		require.ErrorContains(t, err, "failed to query points")
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - rows error", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(listPointsQuery)).
			WillReturnRows(
				pgxmock.NewRows([]string{"point_id", "name", "coordinates"}).
					AddRow("p1", park.Name, park.Coordinates).
					RowError(1, assert.AnError),
			)

		points, err := repo.List(ctx)

		require.Nil(t, points)
		require.ErrorContains(t, err, "failed to read row")
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - empty", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(listPointsQuery)).
			WillReturnRows(pgxmock.NewRows([]string{"point_id", "name", "coordinates"}))

		points, err := repo.List(ctx)

		require.NoError(t, err)
		assert.Empty(t, points)
		assert.NotNil(t, points)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - list points", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(listPointsQuery)).
			WillReturnRows(
				pgxmock.NewRows([]string{"point_id", "name", "coordinates"}).
					AddRow("p1", "Park", "-7.7956,110.3695").
					AddRow("p2", "Museum", "-7.8000,110.3700"),
			)

		points, err := repo.List(ctx)

		require.NoError(t, err)
		require.Len(t, points, 2)
		assert.Equal(t, "p1", points[0].ID)
		assert.Equal(t, "Museum", points[1].Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()
	input := models.PointInput{Name: "Park West", Coordinates: "-7.8000,110.3700"}

	t.Run("error - update point", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta(updatePointQuery)).
			WithArgs(input.Name, input.Coordinates, "p1").
			WillReturnError(assert.AnError)

		err = repo.Update(ctx, "p1", input)

		require.ErrorContains(t, err, "failed to update point")
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - unknown id", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta(updatePointQuery)).
			WithArgs(input.Name, input.Coordinates, "missing").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = repo.Update(ctx, "missing", input)

		require.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - update point", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta(updatePointQuery)).
			WithArgs(input.Name, input.Coordinates, "p1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err = repo.Update(ctx, "p1", input)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()

	t.Run("error - delete point", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta(deletePointQuery)).
			WithArgs("p1").
			WillReturnError(assert.AnError)

		err = repo.Delete(ctx, "p1")

		require.ErrorContains(t, err, "failed to delete point")
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - absent id is a no-op", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta(deletePointQuery)).
			WithArgs("missing").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err = repo.Delete(ctx, "missing")

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := repository.NewRepository(mock, slog.Default())

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS points").WillReturnError(assert.AnError)
	err = repo.EnsureSchema(t.Context())
	require.ErrorContains(t, err, "failed to create points table")

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS points").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	require.NoError(t, repo.EnsureSchema(t.Context()))

	assert.NoError(t, mock.ExpectationsWereMet())
}
