package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/repository"
	"telegram-movie-finder/internal/infra/metrics"
	red "telegram-movie-finder/internal/infra/redis"
)

var _ repository.UserRepository = (*userRepoCacheDecorator)(nil)

// userRepoCacheDecorator is a read-through cache for plain lookups. Reads that
// belong to a transaction go straight to the database. Every write drops the
// key, and writes inside a transaction drop it again once the commit lands so
// a lookup racing the transaction cannot leave the old row cached.
type userRepoCacheDecorator struct {
	inner repository.UserRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewUserRepoCacheDecorator(inner repository.UserRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.UserRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &userRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		log:   logger,
	}
}

func userKey(tgID int64) string { return fmt.Sprintf("user:tgid:%d", tgID) }

func (d *userRepoCacheDecorator) drop(ctx context.Context, tgID int64) {
	if err := d.cache.Del(ctx, userKey(tgID)); err != nil && d.log != nil {
		d.log.Warn().Err(err).Int64("tg_id", tgID).Msg("user cache invalidation failed")
	}
}

func (d *userRepoCacheDecorator) invalidate(ctx context.Context, tx repository.Tx, tgID int64) {
	d.drop(ctx, tgID)
	if tx != nil {
		AfterCommit(ctx, func(ctx context.Context) { d.drop(ctx, tgID) })
	}
}

func (d *userRepoCacheDecorator) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	if tx != nil {
		metrics.IncCacheRequest("user", "bypass")
		return d.inner.FindByTelegramID(ctx, tx, tgID)
	}

	key := userKey(tgID)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var user model.User
		if json.Unmarshal([]byte(val), &user) == nil {
			metrics.IncCacheRequest("user", "hit")
			return &user, nil
		}
	} else if !errors.Is(err, red.Nil) && d.log != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("user cache read failed")
	}

	metrics.IncCacheRequest("user", "miss")
	user, err := d.inner.FindByTelegramID(ctx, tx, tgID)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(user); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return user, nil
}

func (d *userRepoCacheDecorator) FindByTelegramIDForUpdate(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	metrics.IncCacheRequest("user", "bypass")
	return d.inner.FindByTelegramIDForUpdate(ctx, tx, tgID)
}

func (d *userRepoCacheDecorator) CreateDefault(ctx context.Context, tx repository.Tx, tgID int64, displayName string, now time.Time) (*model.User, error) {
	u, err := d.inner.CreateDefault(ctx, tx, tgID, displayName, now)
	d.invalidate(ctx, tx, tgID)
	return u, err
}

func (d *userRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	d.drop(ctx, u.TelegramID)
	err := d.inner.Save(ctx, tx, u)
	d.invalidate(ctx, tx, u.TelegramID)
	return err
}

func (d *userRepoCacheDecorator) IncrementFreeSearch(ctx context.Context, tx repository.Tx, tgID int64, limit int) (int, error) {
	n, err := d.inner.IncrementFreeSearch(ctx, tx, tgID, limit)
	d.invalidate(ctx, tx, tgID)
	return n, err
}

// Pass-through methods that don't need caching
func (d *userRepoCacheDecorator) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	return d.inner.CountUsers(ctx, tx)
}

func (d *userRepoCacheDecorator) CountByState(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	return d.inner.CountByState(ctx, tx)
}
