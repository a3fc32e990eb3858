package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/domain"
	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/adapter"
	"telegram-movie-finder/internal/domain/ports/repository"
	"telegram-movie-finder/internal/infra/logging"
	"telegram-movie-finder/internal/infra/metrics"
)

type ReferralOutcome string

const (
	ReferralCredited         ReferralOutcome = "credited"
	ReferralPromoted         ReferralOutcome = "promoted"
	ReferralInvalid          ReferralOutcome = "invalid"
	ReferralSelf             ReferralOutcome = "self"
	ReferralAlreadyApplied   ReferralOutcome = "already_applied"
	ReferralReferrerNotFound ReferralOutcome = "referrer_not_found"
)

// Credited reports whether the referrer received points.
func (o ReferralOutcome) Credited() bool {
	return o == ReferralCredited || o == ReferralPromoted
}

var _ ReferralUseCase = (*referralUC)(nil)

type ReferralUseCase interface {
	// Apply credits the referrer named by token for the first contact of
	// newUserID. Every outcome other than an error is final and idempotent.
	Apply(ctx context.Context, newUserID int64, token string, now time.Time) (ReferralOutcome, error)
}

type referralUC struct {
	users    repository.UserRepository
	tm       repository.TransactionManager
	notifier adapter.Notifier
	texts    adapter.Localizer
	policy   model.Policy
	log      *zerolog.Logger
}

func NewReferralUseCase(users repository.UserRepository, tm repository.TransactionManager, notifier adapter.Notifier, texts adapter.Localizer, policy model.Policy, logger *zerolog.Logger) *referralUC {
	return &referralUC{users: users, tm: tm, notifier: notifier, texts: texts, policy: policy, log: logger}
}

// ParseReferralToken reads the /start payload as a referrer id.
func ParseReferralToken(token string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(token), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (r *referralUC) Apply(ctx context.Context, newUserID int64, token string, now time.Time) (ReferralOutcome, error) {
	defer logging.TraceDuration(r.log, "ReferralUC.Apply")()

	referrerID, ok := ParseReferralToken(token)
	if !ok {
		metrics.IncReferral(string(ReferralInvalid))
		return ReferralInvalid, nil
	}
	if referrerID == newUserID {
		metrics.IncReferral(string(ReferralSelf))
		return ReferralSelf, nil
	}

	var (
		outcome  ReferralOutcome
		referrer *model.User
	)
	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		referred, ref, err := r.lockPair(ctx, tx, newUserID, referrerID)
		if err != nil {
			return err
		}
		if referred.ReferredBy != nil {
			outcome = ReferralAlreadyApplied
			return nil
		}
		if ref == nil {
			outcome = ReferralReferrerNotFound
			return nil
		}

		promoted := r.policy.CreditReferral(ref, now)
		if err := r.users.Save(ctx, tx, ref); err != nil {
			return err
		}
		referred.ReferredBy = &referrerID
		referred.Touch(now)
		if err := r.users.Save(ctx, tx, referred); err != nil {
			return err
		}

		outcome = ReferralCredited
		if promoted {
			outcome = ReferralPromoted
		}
		referrer = ref
		return nil
	})
	if err != nil {
		r.log.Error().Err(err).Int64("tg_id", newUserID).Int64("referrer", referrerID).Msg("referral failed")
		return "", err
	}

	metrics.IncReferral(string(outcome))
	if outcome == ReferralPromoted {
		metrics.IncPremiumPromotion()
	}
	if outcome.Credited() {
		r.log.Info().
			Int64("tg_id", newUserID).
			Int64("referrer", referrerID).
			Str("outcome", string(outcome)).
			Int("points", referrer.Points).
			Msg("referral credited")
		r.notifyReferrer(ctx, referrer, outcome)
	}
	return outcome, nil
}

// lockPair locks both rows in ascending id order so two crossing referrals
// cannot deadlock. A missing referrer is returned as nil.
func (r *referralUC) lockPair(ctx context.Context, tx repository.Tx, referredID, referrerID int64) (*model.User, *model.User, error) {
	lock := func(id int64) (*model.User, error) {
		u, err := r.users.FindByTelegramIDForUpdate(ctx, tx, id)
		if errors.Is(err, domain.ErrNotFound) && id == referrerID {
			return nil, nil
		}
		return u, err
	}

	first, second := referredID, referrerID
	if second < first {
		first, second = second, first
	}
	a, err := lock(first)
	if err != nil {
		return nil, nil, err
	}
	b, err := lock(second)
	if err != nil {
		return nil, nil, err
	}
	if first == referredID {
		return a, b, nil
	}
	return b, a, nil
}

func (r *referralUC) notifyReferrer(ctx context.Context, referrer *model.User, outcome ReferralOutcome) {
	text := r.texts.T(referrer.Language, "referral_points", r.policy.PointsPerRef, referrer.Points)
	if outcome == ReferralPromoted {
		text = r.texts.T(referrer.Language, "referral_promoted")
	}
	if err := r.notifier.Notify(ctx, referrer.TelegramID, text); err != nil {
		r.log.Warn().Err(err).Int64("tg_id", referrer.TelegramID).Msg("referral notice not delivered")
	}
}
