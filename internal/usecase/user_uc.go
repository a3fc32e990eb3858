package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/domain"
	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/repository"
	"telegram-movie-finder/internal/infra/logging"
	"telegram-movie-finder/internal/infra/metrics"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase exposes user-record operations used by bot and admin flows.
type UserUseCase interface {
	// RegisterOrFetch returns the stored record, creating the default one on
	// first contact. created reports whether this call observed no record.
	RegisterOrFetch(ctx context.Context, tgID int64, displayName string, now time.Time) (u *model.User, created bool, err error)
	GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error)
	SetLanguage(ctx context.Context, tgID int64, lang model.Language, now time.Time) (*model.User, error)
	// RegisterContact attaches a phone number and starts the trial. It runs once:
	// a registered user is returned untouched with alreadyRegistered set.
	RegisterContact(ctx context.Context, tgID int64, displayName, phone string, now time.Time) (u *model.User, alreadyRegistered bool, err error)
	Count(ctx context.Context) (int, error)
	CountByState(ctx context.Context) (map[string]int, error)
}

type userUC struct {
	users  repository.UserRepository
	tm     repository.TransactionManager
	policy model.Policy
	log    *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, tm repository.TransactionManager, policy model.Policy, logger *zerolog.Logger) *userUC {
	return &userUC{
		users:  users,
		tm:     tm,
		policy: policy,
		log:    logger,
	}
}

func (u *userUC) RegisterOrFetch(ctx context.Context, tgID int64, displayName string, now time.Time) (*model.User, bool, error) {
	defer logging.TraceDuration(u.log, "UserUC.RegisterOrFetch")()

	usr, err := u.users.FindByTelegramID(ctx, repository.NoTX, tgID)
	if err == nil {
		return usr, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	usr, err = u.users.CreateDefault(ctx, repository.NoTX, tgID, displayName, now)
	if err != nil {
		u.log.Error().Err(err).Int64("tg_id", tgID).Msg("failed to create user")
		return nil, false, err
	}
	metrics.IncUsersCreated()
	u.log.Info().Int64("tg_id", tgID).Msg("user created")
	return usr, true, nil
}

func (u *userUC) GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.GetByTelegramID")()
	return u.users.FindByTelegramID(ctx, repository.NoTX, tgID)
}

func (u *userUC) SetLanguage(ctx context.Context, tgID int64, lang model.Language, now time.Time) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.SetLanguage")()

	if _, ok := model.ParseLanguage(string(lang)); !ok {
		return nil, domain.ErrInvalidArgument
	}
	var out *model.User
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		usr, err := u.users.FindByTelegramIDForUpdate(ctx, tx, tgID)
		if err != nil {
			return err
		}
		usr.Language = lang
		usr.Touch(now)
		if err := u.users.Save(ctx, tx, usr); err != nil {
			return err
		}
		out = usr
		return nil
	})
	return out, err
}

func (u *userUC) RegisterContact(ctx context.Context, tgID int64, displayName, phone string, now time.Time) (*model.User, bool, error) {
	defer logging.TraceDuration(u.log, "UserUC.RegisterContact")()

	var (
		out     *model.User
		already bool
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		usr, err := u.users.FindByTelegramIDForUpdate(ctx, tx, tgID)
		if errors.Is(err, domain.ErrNotFound) {
			// contact shared before /start
			if _, err = u.users.CreateDefault(ctx, tx, tgID, displayName, now); err != nil {
				return err
			}
			usr, err = u.users.FindByTelegramIDForUpdate(ctx, tx, tgID)
		}
		if err != nil {
			return err
		}
		if usr.IsRegistered() {
			out, already = usr, true
			return nil
		}
		if err := usr.Register(phone, now, u.policy.ClassifyCountry); err != nil {
			return err
		}
		if err := u.users.Save(ctx, tx, usr); err != nil {
			return err
		}
		out = usr
		return nil
	})
	if err != nil {
		u.log.Error().Err(err).Int64("tg_id", tgID).Msg("registration failed")
		return nil, false, err
	}
	if !already {
		metrics.IncUsersRegistered()
		u.log.Info().Int64("tg_id", tgID).Str("country", string(out.Country)).Msg("user registered, trial started")
	}
	return out, already, nil
}

func (u *userUC) Count(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "UserUC.Count")()
	return u.users.CountUsers(ctx, repository.NoTX)
}

func (u *userUC) CountByState(ctx context.Context) (map[string]int, error) {
	defer logging.TraceDuration(u.log, "UserUC.CountByState")()
	return u.users.CountByState(ctx, repository.NoTX)
}
