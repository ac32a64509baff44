package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/UnknownOlympus/waymark/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Database is the subset of pgxpool.Pool used by the repository.
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PoolConfig holds what is needed to open a connection pool.
type PoolConfig struct {
	DSN      string
	MaxConns int32
}

// NewDatabase opens a pgx connection pool and verifies it with a ping.
func NewDatabase(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the points table when it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS points (
			point_id    TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			coordinates TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create points table: %w", err)
	}

	return nil
}

// Insert stores a new point under a freshly generated id and returns that id.
func (r *Repository) Insert(ctx context.Context, input models.PointInput) (string, error) {
	query := `
		INSERT INTO points (point_id, name, coordinates)
		VALUES ($1, $2, $3);
	`

	id := r.newID()
	if _, err := r.db.Exec(ctx, query, id, input.Name, input.Coordinates); err != nil {
		return "", fmt.Errorf("failed to insert point: %w", err)
	}
	r.log.DebugContext(ctx, "Point inserted", "id", id, "name", input.Name)

	return id, nil
}

// Get returns the point stored under id, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, id string) (models.Point, error) {
	query := `
		SELECT point_id, name, coordinates
		FROM points
		WHERE point_id = $1;
	`

	var point models.Point
	err := r.db.QueryRow(ctx, query, id).Scan(&point.ID, &point.Name, &point.Coordinates)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Point{}, ErrNotFound
	}
	if err != nil {
		return models.Point{}, fmt.Errorf("failed to get point: %w", err)
	}

	return point, nil
}

// List returns every stored point in insertion order.
func (r *Repository) List(ctx context.Context) ([]models.Point, error) {
	query := `
		SELECT point_id, name, coordinates
		FROM points
		ORDER BY created_at ASC, point_id ASC;
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer rows.Close()

	points := []models.Point{}
	for rows.Next() {
		var point models.Point
		if errScan := rows.Scan(&point.ID, &point.Name, &point.Coordinates); errScan != nil {
			return nil, fmt.Errorf("failed to scan point: %w", errScan)
		}
		points = append(points, point)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return points, nil
}

// Update overwrites name and coordinates of an existing point.
// It returns ErrNotFound when no row carries the id.
func (r *Repository) Update(ctx context.Context, id string, input models.PointInput) error {
	query := `
		UPDATE points
		SET
			name = $1,
			coordinates = $2,
			updated_at = now()
		WHERE
			point_id = $3;
	`

	tag, err := r.db.Exec(ctx, query, input.Name, input.Coordinates, id)
	if err != nil {
		return fmt.Errorf("failed to update point: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a point. Deleting an unknown id is not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM points
		WHERE point_id = $1;
	`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete point: %w", err)
	}
	r.log.DebugContext(ctx, "Point deleted", "id", id, "rows", tag.RowsAffected())

	return nil
}
