package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/adapter"
	"telegram-movie-finder/internal/domain/ports/repository"
	"telegram-movie-finder/internal/infra/logging"
	"telegram-movie-finder/internal/infra/metrics"
)

var _ TrialUseCase = (*trialUC)(nil)

// TrialUseCase advances the trial lifecycle lazily, on each interaction.
type TrialUseCase interface {
	// Check persists any transition due at now and returns the up-to-date
	// record and its lifecycle state. Unregistered users are returned as-is.
	Check(ctx context.Context, u *model.User, now time.Time) (*model.User, model.TrialState, error)
}

type trialUC struct {
	users    repository.UserRepository
	tm       repository.TransactionManager
	notifier adapter.Notifier
	texts    adapter.Localizer
	policy   model.Policy
	log      *zerolog.Logger
}

func NewTrialUseCase(users repository.UserRepository, tm repository.TransactionManager, notifier adapter.Notifier, texts adapter.Localizer, policy model.Policy, logger *zerolog.Logger) *trialUC {
	return &trialUC{users: users, tm: tm, notifier: notifier, texts: texts, policy: policy, log: logger}
}

func (t *trialUC) Check(ctx context.Context, u *model.User, now time.Time) (*model.User, model.TrialState, error) {
	defer logging.TraceDuration(t.log, "TrialUC.Check")()

	state, action := t.policy.TrialState(u, now)
	if !u.IsRegistered() || action == model.TrialActionNone {
		return u, state, nil
	}

	// Re-read under a row lock: of two racing interactions only the first
	// one still sees the transition as pending.
	var (
		out     *model.User
		warned  bool
		expired bool
	)
	err := t.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		locked, err := t.users.FindByTelegramIDForUpdate(ctx, tx, u.TelegramID)
		if err != nil {
			return err
		}
		var act model.TrialAction
		state, act = t.policy.TrialState(locked, now)
		switch act {
		case model.TrialActionExpire:
			locked.ExpireTrial(now)
			expired = true
		case model.TrialActionWarn:
			locked.MarkTrialNotified(now)
			warned = true
		default:
			out = locked
			return nil
		}
		if err := t.users.Save(ctx, tx, locked); err != nil {
			return err
		}
		out = locked
		return nil
	})
	if err != nil {
		t.log.Error().Err(err).Int64("tg_id", u.TelegramID).Msg("trial transition failed")
		return nil, "", err
	}

	switch {
	case warned:
		metrics.IncTrialTransition("warning")
		t.sendWarning(ctx, out, now)
	case expired:
		metrics.IncTrialTransition("expired")
		t.log.Info().Int64("tg_id", out.TelegramID).Msg("trial expired")
	}
	return out, state, nil
}

func (t *trialUC) sendWarning(ctx context.Context, u *model.User, now time.Time) {
	text := t.texts.T(u.Language, "trial_warning", t.policy.TrialDaysLeft(u, now))
	if err := t.notifier.Notify(ctx, u.TelegramID, text); err != nil {
		// the flag stays set: one warning per trial, even if delivery failed
		t.log.Warn().Err(err).Int64("tg_id", u.TelegramID).Msg("trial warning not delivered")
	}
}
