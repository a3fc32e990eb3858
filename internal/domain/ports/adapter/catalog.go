package adapter

import (
	"context"

	"telegram-movie-finder/internal/domain/model"
)

// MovieCatalog is the port for the third-party movie database.
type MovieCatalog interface {
	Search(ctx context.Context, query string, limit int) ([]model.Movie, error)
	Details(ctx context.Context, movieID int64) (*model.Movie, error)
}
