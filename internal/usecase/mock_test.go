//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing/fstest"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-movie-finder/internal/domain"
	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/adapter"
	"telegram-movie-finder/internal/domain/ports/repository"
	"telegram-movie-finder/internal/infra/i18n"
	"telegram-movie-finder/internal/usecase"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// -----------------------------
// Repositories
// -----------------------------

// MockUserRepo is an in-memory user store. Records are copied on the way in
// and out, the same as a real database round-trip.
type MockUserRepo struct {
	mu    sync.Mutex
	byTG  map[int64]*model.User
	Saves int

	SaveFunc      func(ctx context.Context, tx repository.Tx, u *model.User) error
	FindErr       error
	IncrementFunc func(ctx context.Context, tx repository.Tx, tgID int64, limit int) (int, error)
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{byTG: map[int64]*model.User{}}
}

// Seed stores u directly, bypassing hooks.
func (r *MockUserRepo) Seed(u *model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.byTG[u.TelegramID] = &cp
}

// Get reads the stored copy without going through the port.
func (r *MockUserRepo) Get(tgID int64) *model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byTG[tgID]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (r *MockUserRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	if r.FindErr != nil {
		return nil, r.FindErr
	}
	if u := r.Get(tgID); u != nil {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockUserRepo) FindByTelegramIDForUpdate(ctx context.Context, tx repository.Tx, tgID int64) (*model.User, error) {
	if tx == nil {
		return nil, domain.ErrInvalidExecContext
	}
	return r.FindByTelegramID(ctx, tx, tgID)
}

func (r *MockUserRepo) CreateDefault(ctx context.Context, tx repository.Tx, tgID int64, displayName string, now time.Time) (*model.User, error) {
	r.mu.Lock()
	if _, ok := r.byTG[tgID]; !ok {
		u, err := model.NewUser(tgID, displayName, now)
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
		r.byTG[tgID] = u
	}
	r.mu.Unlock()
	return r.FindByTelegramID(ctx, tx, tgID)
}

func (r *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if r.SaveFunc != nil {
		if err := r.SaveFunc(ctx, tx, u); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.byTG[u.TelegramID] = &cp
	r.Saves++
	return nil
}

func (r *MockUserRepo) IncrementFreeSearch(ctx context.Context, tx repository.Tx, tgID int64, limit int) (int, error) {
	if r.IncrementFunc != nil {
		return r.IncrementFunc(ctx, tx, tgID, limit)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byTG[tgID]
	switch {
	case !ok:
		return 0, domain.ErrNotFound
	case u.IsRegistered():
		return 0, domain.ErrAlreadyRegistered
	case u.FreeSearchCount >= limit:
		return 0, domain.ErrFreeLimitReached
	}
	u.FreeSearchCount++
	return u.FreeSearchCount, nil
}

func (r *MockUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byTG), nil
}

func (r *MockUserRepo) CountByState(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int{}
	for _, u := range r.byTG {
		switch {
		case !u.IsRegistered():
			out["unregistered"]++
		case u.IsPremium:
			out["premium"]++
		case u.IsTrial:
			out["trial"]++
		default:
			out["expired"]++
		}
	}
	return out, nil
}

// ---- Mock TxManager ----

type mockTx struct{}

// MockTxManager runs transactions one at a time, which is how row locks on
// the same record behave. WithTxFunc overrides the default.
type MockTxManager struct {
	mu         sync.Mutex
	Calls      int
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	return fn(ctx, mockTx{})
}

// ---- Mock StateRepo ----

type MockStateRepo struct {
	mu     sync.Mutex
	states map[int64]*repository.ConversationState
	SetErr error
}

var _ repository.StateRepository = (*MockStateRepo)(nil)

func NewMockStateRepo() *MockStateRepo {
	return &MockStateRepo{states: map[int64]*repository.ConversationState{}}
}

func (m *MockStateRepo) SetState(ctx context.Context, tgID int64, st *repository.ConversationState) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[tgID] = st
	return nil
}

func (m *MockStateRepo) GetState(ctx context.Context, tgID int64) (*repository.ConversationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[tgID], nil
}

func (m *MockStateRepo) ClearState(ctx context.Context, tgID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, tgID)
	return nil
}

// =============================
// Adapters
// =============================

type sentNotice struct {
	To   int64
	Text string
}

type MockNotifier struct {
	mu   sync.Mutex
	Sent []sentNotice
	Err  error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Notify(ctx context.Context, telegramID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, sentNotice{To: telegramID, Text: text})
	return m.Err
}

func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

type MockAnalyzer struct {
	Calls       int
	AnalyzeFunc func(ctx context.Context, text string) (model.Intent, error)
}

var _ adapter.IntentAnalyzer = (*MockAnalyzer)(nil)

func (m *MockAnalyzer) Name() string { return "mock" }

func (m *MockAnalyzer) Analyze(ctx context.Context, text string) (model.Intent, error) {
	m.Calls++
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, text)
	}
	return model.Intent{IsMovieRequest: true, SearchQuery: text}, nil
}

type MockCatalog struct {
	Queries     []string
	Movies      []model.Movie
	SearchErr   error
	DetailsFunc func(ctx context.Context, id int64) (*model.Movie, error)
}

var _ adapter.MovieCatalog = (*MockCatalog)(nil)

func (m *MockCatalog) Search(ctx context.Context, query string, limit int) ([]model.Movie, error) {
	m.Queries = append(m.Queries, query)
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	if len(m.Movies) > limit {
		return m.Movies[:limit], nil
	}
	return m.Movies, nil
}

func (m *MockCatalog) Details(ctx context.Context, id int64) (*model.Movie, error) {
	if m.DetailsFunc != nil {
		return m.DetailsFunc(ctx, id)
	}
	for _, mv := range m.Movies {
		if mv.ID == id {
			cp := mv
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// =============================
// Helpers
// =============================

var errBoom = errors.New("boom")

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// newTestTranslator builds a bundle from an in-memory filesystem so tests do
// not depend on the shipped copy.
func newTestTranslator() *i18n.Bundle {
	testFS := fstest.MapFS{
		"locales/uz.yaml": {Data: []byte("trial_warning: 'uz warn %d'\nreferral_points: 'uz +%d = %d'\nreferral_promoted: 'uz premium'\n")},
		"locales/ru.yaml": {Data: []byte("trial_warning: 'ru warn %d'\n")},
		"locales/en.yaml": {Data: []byte("trial_warning: 'en warn %d'\nreferral_points: 'en +%d = %d'\n")},
	}
	b, _ := i18n.NewBundle(testFS)
	return b
}

func newUnregistered(id int64, at time.Time) *model.User {
	u, _ := model.NewUser(id, "user", at)
	return u
}

func newRegistered(id int64, registeredAt time.Time) *model.User {
	u := newUnregistered(id, registeredAt)
	_ = u.Register("+998901234567", registeredAt, false)
	return u
}

// env wires the real use cases over the in-memory doubles.
type env struct {
	repo     *MockUserRepo
	tm       *MockTxManager
	state    *MockStateRepo
	notifier *MockNotifier
	analyzer *MockAnalyzer
	catalog  *MockCatalog
	policy   model.Policy
}

func newEnv() *env {
	return &env{
		repo:     NewMockUserRepo(),
		tm:       NewMockTxManager(),
		state:    NewMockStateRepo(),
		notifier: &MockNotifier{},
		analyzer: &MockAnalyzer{},
		catalog:  &MockCatalog{},
		policy:   model.DefaultPolicy(),
	}
}

func (e *env) userUC() usecase.UserUseCase {
	return usecase.NewUserUseCase(e.repo, e.tm, e.policy, newTestLogger())
}

func (e *env) trialUC() usecase.TrialUseCase {
	return usecase.NewTrialUseCase(e.repo, e.tm, e.notifier, newTestTranslator(), e.policy, newTestLogger())
}

func (e *env) accessUC() usecase.AccessUseCase {
	return usecase.NewAccessUseCase(e.userUC(), e.trialUC(), e.repo, e.policy, newTestLogger())
}

func (e *env) referralUC() usecase.ReferralUseCase {
	return usecase.NewReferralUseCase(e.repo, e.tm, e.notifier, newTestTranslator(), e.policy, newTestLogger())
}

func (e *env) searchUC() usecase.SearchUseCase {
	return usecase.NewSearchUseCase(e.accessUC(), e.analyzer, e.catalog, e.state, 5, newTestLogger())
}
