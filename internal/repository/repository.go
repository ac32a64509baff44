package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/UnknownOlympus/waymark/internal/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no point is stored under the requested id.
var ErrNotFound = errors.New("point not found")

// Interface is the remote document store holding points.
type Interface interface {
	Insert(ctx context.Context, input models.PointInput) (string, error)
	Get(ctx context.Context, id string) (models.Point, error)
	List(ctx context.Context) ([]models.Point, error)
	Update(ctx context.Context, id string, input models.PointInput) error
	Delete(ctx context.Context, id string) error
}

// Repository stores points in PostgreSQL.
type Repository struct {
	db    Database
	log   *slog.Logger
	newID func() string
}

// NewRepository creates a new instance of Repository with the provided Database.
// Point ids are random UUIDs, so a deleted id is never handed out again.
func NewRepository(db Database, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log, newID: uuid.NewString}
}
