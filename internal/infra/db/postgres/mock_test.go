//go:build !integration

package postgres

import (
	"context"
	"time"

	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/repository"
	red "telegram-movie-finder/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerUserRepo mocks the database repository that the User decorator wraps.
type mockInnerUserRepo struct {
	SaveFunc                      func(ctx context.Context, tx repository.Tx, u *model.User) error
	FindByTelegramIDFunc          func(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error)
	FindByTelegramIDForUpdateFunc func(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error)
	CreateDefaultFunc             func(ctx context.Context, tx repository.Tx, tgID int64, name string, now time.Time) (*model.User, error)
	IncrementFreeSearchFunc       func(ctx context.Context, tx repository.Tx, tgID int64, limit int) (int, error)
	CountUsersFunc                func(ctx context.Context, tx repository.Tx) (int, error)
	CountByStateFunc              func(ctx context.Context, tx repository.Tx) (map[string]int, error)
}

func (m *mockInnerUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	return m.SaveFunc(ctx, tx, u)
}
func (m *mockInnerUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	return m.FindByTelegramIDFunc(ctx, tx, tgID)
}
func (m *mockInnerUserRepo) FindByTelegramIDForUpdate(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	return m.FindByTelegramIDForUpdateFunc(ctx, tx, tgID)
}
func (m *mockInnerUserRepo) CreateDefault(ctx context.Context, tx repository.Tx, tgID int64, name string, now time.Time) (*model.User, error) {
	return m.CreateDefaultFunc(ctx, tx, tgID, name, now)
}
func (m *mockInnerUserRepo) IncrementFreeSearch(ctx context.Context, tx repository.Tx, tgID int64, limit int) (int, error) {
	return m.IncrementFreeSearchFunc(ctx, tx, tgID, limit)
}
func (m *mockInnerUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	return m.CountUsersFunc(ctx, tx)
}
func (m *mockInnerUserRepo) CountByState(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	return m.CountByStateFunc(ctx, tx)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
