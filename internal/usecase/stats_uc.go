package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/domain/ports/repository"
	"telegram-movie-finder/internal/infra/logging"
	"telegram-movie-finder/internal/infra/metrics"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type Stats struct {
	Users   int            `json:"users"`
	ByState map[string]int `json:"by_state"`
}

type StatsUseCase interface {
	Totals(ctx context.Context) (*Stats, error)
	// RefreshGauges publishes the per-state user counts to prometheus.
	RefreshGauges(ctx context.Context) error
}

type statsUC struct {
	users repository.UserRepository
	log   *zerolog.Logger
}

func NewStatsUseCase(users repository.UserRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{users: users, log: logger}
}

func (s *statsUC) Totals(ctx context.Context) (*Stats, error) {
	defer logging.TraceDuration(s.log, "StatsUC.Totals")()

	total, err := s.users.CountUsers(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	by, err := s.users.CountByState(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return &Stats{Users: total, ByState: by}, nil
}

func (s *statsUC) RefreshGauges(ctx context.Context) error {
	by, err := s.users.CountByState(ctx, repository.NoTX)
	if err != nil {
		return err
	}
	metrics.SetUsersByState(by)
	return nil
}
