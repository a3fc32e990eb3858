package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/domain"
	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/repository"
	"telegram-movie-finder/internal/infra/logging"
	"telegram-movie-finder/internal/infra/metrics"
)

// Action names a gated user action. Only ActionSearch spends free searches.
type Action string

const (
	ActionSearch      Action = "search"
	ActionGenres      Action = "genres"
	ActionGenreSelect Action = "genre_select"
	ActionDetails     Action = "details"
)

// Access is the gate's answer for one interaction.
type Access struct {
	User    *model.User
	Created bool
	Trial   model.TrialState
	Verdict model.Verdict
}

var _ AccessUseCase = (*accessUC)(nil)

type AccessUseCase interface {
	// Authorize loads or creates the record, applies any due trial transition
	// and evaluates the policy. It does not spend anything.
	Authorize(ctx context.Context, tgID int64, displayName string, action Action, now time.Time) (*Access, error)
	// ConsumeFreeSearch spends one free search. The returned verdict is a
	// denial when a concurrent interaction spent the last one first.
	ConsumeFreeSearch(ctx context.Context, tgID int64) (model.Verdict, error)
}

type accessUC struct {
	users  UserUseCase
	trial  TrialUseCase
	repo   repository.UserRepository
	policy model.Policy
	log    *zerolog.Logger
}

func NewAccessUseCase(users UserUseCase, trial TrialUseCase, repo repository.UserRepository, policy model.Policy, logger *zerolog.Logger) *accessUC {
	return &accessUC{users: users, trial: trial, repo: repo, policy: policy, log: logger}
}

func (a *accessUC) Authorize(ctx context.Context, tgID int64, displayName string, action Action, now time.Time) (*Access, error) {
	defer logging.TraceDuration(a.log, "AccessUC.Authorize")()

	u, created, err := a.users.RegisterOrFetch(ctx, tgID, displayName, now)
	if err != nil {
		return nil, err
	}
	u, state, err := a.trial.Check(ctx, u, now)
	if err != nil {
		return nil, err
	}
	v := a.policy.Evaluate(u, now)
	metrics.IncAccessVerdict(string(action), v.Outcome())
	a.log.Debug().
		Int64("tg_id", tgID).
		Str("action", string(action)).
		Str("outcome", v.Outcome()).
		Msg("access evaluated")

	return &Access{User: u, Created: created, Trial: state, Verdict: v}, nil
}

func (a *accessUC) ConsumeFreeSearch(ctx context.Context, tgID int64) (model.Verdict, error) {
	defer logging.TraceDuration(a.log, "AccessUC.ConsumeFreeSearch")()

	n, err := a.repo.IncrementFreeSearch(ctx, repository.NoTX, tgID, a.policy.FreeSearchLimit)
	switch {
	case err == nil:
		metrics.IncFreeSearchConsumed()
		a.log.Debug().Int64("tg_id", tgID).Int("used", n).Msg("free search consumed")
		return model.Allow(true), nil
	case errors.Is(err, domain.ErrFreeLimitReached):
		return model.Deny(model.DenyRegistrationRequired), nil
	case errors.Is(err, domain.ErrAlreadyRegistered):
		// registered in between: a fresh trial covers the action
		return model.Allow(false), nil
	default:
		return model.Verdict{}, err
	}
}
