package repository

import (
	"context"
	"time"

	"telegram-movie-finder/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	FindByTelegramID(ctx context.Context, tx Tx, tgID int64) (*model.User, error)
	// FindByTelegramIDForUpdate locks the row until tx ends. tx must be a transaction.
	FindByTelegramIDForUpdate(ctx context.Context, tx Tx, tgID int64) (*model.User, error)
	// CreateDefault inserts a default record if none exists and returns the stored row.
	CreateDefault(ctx context.Context, tx Tx, tgID int64, displayName string, now time.Time) (*model.User, error)
	Save(ctx context.Context, tx Tx, u *model.User) error
	// IncrementFreeSearch atomically bumps the free-search counter of an
	// unregistered user while it is below limit and returns the new value.
	// It fails with domain.ErrAlreadyRegistered or domain.ErrFreeLimitReached
	// when the counter is frozen.
	IncrementFreeSearch(ctx context.Context, tx Tx, tgID int64, limit int) (int, error)

	CountUsers(ctx context.Context, tx Tx) (int, error)
	CountByState(ctx context.Context, tx Tx) (map[string]int, error)
}
