//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/repository"
	"telegram-movie-finder/internal/usecase"
)

func TestAccessUseCase_FreeSearches(t *testing.T) {
	ctx := context.Background()

	t.Run("new user gets exactly the free limit, then must register", func(t *testing.T) {
		// --- Arrange ---
		e := newEnv()
		uc := e.accessUC()

		// --- Act / Assert ---
		for i := 0; i < e.policy.FreeSearchLimit; i++ {
			acc, err := uc.Authorize(ctx, 10, "u", usecase.ActionSearch, t0)
			if err != nil {
				t.Fatal(err)
			}
			if acc.Verdict != model.Allow(true) {
				t.Fatalf("attempt %d: expected allowed with consumption, got %+v", i+1, acc.Verdict)
			}
			v, err := uc.ConsumeFreeSearch(ctx, 10)
			if err != nil || !v.Allowed {
				t.Fatalf("attempt %d: consume failed %+v %v", i+1, v, err)
			}
		}

		acc, err := uc.Authorize(ctx, 10, "u", usecase.ActionSearch, t0)
		if err != nil {
			t.Fatal(err)
		}
		if acc.Verdict != model.Deny(model.DenyRegistrationRequired) {
			t.Errorf("expected registration required, got %+v", acc.Verdict)
		}
		if got := e.repo.Get(10).FreeSearchCount; got != e.policy.FreeSearchLimit {
			t.Errorf("expected counter %d, got %d", e.policy.FreeSearchLimit, got)
		}
	})

	t.Run("concurrent consumption never exceeds the limit", func(t *testing.T) {
		e := newEnv()
		e.repo.Seed(newUnregistered(11, t0))
		uc := e.accessUC()

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			granted int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := uc.ConsumeFreeSearch(ctx, 11)
				if err != nil {
					t.Errorf("unexpected error %v", err)
					return
				}
				if v.Allowed {
					mu.Lock()
					granted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if granted != e.policy.FreeSearchLimit {
			t.Errorf("expected %d grants, got %d", e.policy.FreeSearchLimit, granted)
		}
	})

	t.Run("consumption by a registered user is a no-op allow", func(t *testing.T) {
		e := newEnv()
		e.repo.Seed(newRegistered(12, t0))
		v, err := e.accessUC().ConsumeFreeSearch(ctx, 12)
		if err != nil || v != model.Allow(false) {
			t.Errorf("unexpected %+v %v", v, err)
		}
		if e.repo.Get(12).FreeSearchCount != 0 {
			t.Error("registered counter must stay frozen")
		}
	})

	t.Run("infrastructure errors propagate", func(t *testing.T) {
		e := newEnv()
		e.repo.IncrementFunc = func(ctx context.Context, tx repository.Tx, tgID int64, limit int) (int, error) {
			return 0, errBoom
		}
		if _, err := e.accessUC().ConsumeFreeSearch(ctx, 1); !errors.Is(err, errBoom) {
			t.Errorf("expected boom, got %v", err)
		}
	})
}

func TestAccessUseCase_Trial(t *testing.T) {
	ctx := context.Background()
	now := t0.Add(100 * model.Day)

	tests := []struct {
		name   string
		seed   func() *model.User
		at     time.Time
		want   model.Verdict
		expire bool
	}{
		{
			name: "registration right now is allowed",
			seed: func() *model.User { return newRegistered(20, now) },
			at:   now,
			want: model.Allow(false),
		},
		{
			name: "29 days into trial is allowed",
			seed: func() *model.User { return newRegistered(20, now.Add(-29*model.Day)) },
			at:   now,
			want: model.Allow(false),
		},
		{
			name:   "30 days and a millisecond is expired",
			seed:   func() *model.User { return newRegistered(20, now.Add(-30*model.Day-time.Millisecond)) },
			at:     now,
			want:   model.Deny(model.DenySubscriptionExpired),
			expire: true,
		},
		{
			name: "premium without trial is allowed forever",
			seed: func() *model.User {
				u := newRegistered(20, now.Add(-3650*model.Day))
				u.IsTrial = false
				u.IsPremium = true
				return u
			},
			at:   now,
			want: model.Allow(false),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// --- Arrange ---
			e := newEnv()
			e.repo.Seed(tt.seed())

			// --- Act ---
			acc, err := e.accessUC().Authorize(ctx, 20, "u", usecase.ActionDetails, tt.at)

			// --- Assert ---
			if err != nil {
				t.Fatal(err)
			}
			if acc.Verdict != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, acc.Verdict)
			}
			stored := e.repo.Get(20)
			if tt.expire && (stored.IsTrial || stored.IsPremium || acc.Trial != model.TrialExpired) {
				t.Errorf("expiry not persisted: %+v state=%s", stored, acc.Trial)
			}
		})
	}
}

func TestAccessUseCase_RegistrationResetsClock(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.repo.Seed(newUnregistered(30, t0))
	t1 := t0.Add(45 * model.Day)

	if _, _, err := e.userUC().RegisterContact(ctx, 30, "u", "+998901234567", t1); err != nil {
		t.Fatal(err)
	}
	acc, err := e.accessUC().Authorize(ctx, 30, "u", usecase.ActionSearch, t1)
	if err != nil {
		t.Fatal(err)
	}
	if acc.Verdict != model.Allow(false) {
		t.Errorf("expected immediate access after registration, got %+v", acc.Verdict)
	}

	acc, err = e.accessUC().Authorize(ctx, 30, "u", usecase.ActionSearch, t1.Add(31*model.Day))
	if err != nil {
		t.Fatal(err)
	}
	if acc.Verdict != model.Deny(model.DenySubscriptionExpired) {
		t.Errorf("expected expiry 31 days after registration, got %+v", acc.Verdict)
	}
}
