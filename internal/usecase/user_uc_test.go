//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"telegram-movie-finder/internal/domain"
	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/repository"
)

func TestUserUseCase_RegisterOrFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("should create the default record on first contact", func(t *testing.T) {
		// --- Arrange ---
		e := newEnv()
		uc := e.userUC()

		// --- Act ---
		u, created, err := uc.RegisterOrFetch(ctx, 111, "Ali", t0)

		// --- Assert ---
		if err != nil {
			t.Fatalf("RegisterOrFetch failed: %v", err)
		}
		if !created {
			t.Error("expected created=true for a new identity")
		}
		if u.IsRegistered() || u.FreeSearchCount != 0 || u.Language != model.DefaultLanguage {
			t.Errorf("unexpected defaults: %+v", u)
		}
		if !u.JoinedDate.Equal(t0) {
			t.Errorf("expected joined date %v, got %v", t0, u.JoinedDate)
		}
	})

	t.Run("should return the stored record untouched on later contacts", func(t *testing.T) {
		// --- Arrange ---
		e := newEnv()
		stored := newUnregistered(111, t0)
		stored.FreeSearchCount = 1
		e.repo.Seed(stored)

		// --- Act ---
		u, created, err := e.userUC().RegisterOrFetch(ctx, 111, "Other", t0.Add(model.Day))

		// --- Assert ---
		if err != nil || created {
			t.Fatalf("expected existing record, got created=%v err=%v", created, err)
		}
		if u.FreeSearchCount != 1 || u.DisplayName != "user" {
			t.Errorf("record was modified: %+v", u)
		}
		if e.repo.Saves != 0 {
			t.Errorf("expected no writes, got %d", e.repo.Saves)
		}
	})

	t.Run("should propagate repository failures", func(t *testing.T) {
		e := newEnv()
		e.repo.FindErr = errBoom
		if _, _, err := e.userUC().RegisterOrFetch(ctx, 111, "Ali", t0); !errors.Is(err, errBoom) {
			t.Errorf("expected boom, got %v", err)
		}
	})
}

func TestUserUseCase_RegisterContact(t *testing.T) {
	ctx := context.Background()

	t.Run("should start a fresh trial at submission time", func(t *testing.T) {
		// --- Arrange ---
		e := newEnv()
		e.repo.Seed(newUnregistered(5, t0))
		t1 := t0.Add(40 * model.Day)

		// --- Act ---
		u, already, err := e.userUC().RegisterContact(ctx, 5, "x", "+998901112233", t1)

		// --- Assert ---
		if err != nil || already {
			t.Fatalf("unexpected result already=%v err=%v", already, err)
		}
		stored := e.repo.Get(5)
		if !stored.IsRegistered() || !stored.IsTrial || !stored.JoinedDate.Equal(t1) {
			t.Errorf("registration not persisted: %+v", stored)
		}
		if u.PhoneValue() != "+998901112233" {
			t.Errorf("unexpected phone %q", u.PhoneValue())
		}
	})

	t.Run("should classify country when enabled", func(t *testing.T) {
		e := newEnv()
		e.policy.ClassifyCountry = true
		e.repo.Seed(newUnregistered(5, t0))
		u, _, err := e.userUC().RegisterContact(ctx, 5, "x", "+79001234567", t0)
		if err != nil {
			t.Fatal(err)
		}
		if u.Country != model.CountryForeign {
			t.Errorf("expected foreign, got %q", u.Country)
		}
	})

	t.Run("should create the record when contact comes before start", func(t *testing.T) {
		e := newEnv()
		if _, _, err := e.userUC().RegisterContact(ctx, 6, "x", "+998900000000", t0); err != nil {
			t.Fatal(err)
		}
		if u := e.repo.Get(6); u == nil || !u.IsRegistered() {
			t.Errorf("expected registered record, got %+v", u)
		}
	})

	t.Run("should not restart the trial of a registered user", func(t *testing.T) {
		// --- Arrange ---
		e := newEnv()
		e.repo.Seed(newRegistered(5, t0))

		// --- Act ---
		u, already, err := e.userUC().RegisterContact(ctx, 5, "x", "+998900000001", t0.Add(29*model.Day))

		// --- Assert ---
		if err != nil || !already {
			t.Fatalf("expected already registered, got already=%v err=%v", already, err)
		}
		if !u.JoinedDate.Equal(t0) || e.repo.Saves != 0 {
			t.Errorf("trial clock was reset: %+v (saves=%d)", u, e.repo.Saves)
		}
	})

	t.Run("should surface save failure instead of success", func(t *testing.T) {
		e := newEnv()
		e.repo.Seed(newUnregistered(5, t0))
		e.repo.SaveFunc = func(ctx context.Context, tx repository.Tx, u *model.User) error { return errBoom }

		u, _, err := e.userUC().RegisterContact(ctx, 5, "x", "+998901112233", t0)
		if !errors.Is(err, errBoom) || u != nil {
			t.Errorf("expected boom and no user, got %v / %+v", err, u)
		}
		if e.repo.Get(5).IsRegistered() {
			t.Error("failed save must not register the user")
		}
	})

	t.Run("should reject an empty phone", func(t *testing.T) {
		e := newEnv()
		e.repo.Seed(newUnregistered(5, t0))
		if _, _, err := e.userUC().RegisterContact(ctx, 5, "x", "  ", t0); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected invalid argument, got %v", err)
		}
	})
}

func TestUserUseCase_SetLanguage(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.repo.Seed(newUnregistered(5, t0))
	uc := e.userUC()

	u, err := uc.SetLanguage(ctx, 5, model.LanguageRu, t0)
	if err != nil {
		t.Fatalf("SetLanguage failed: %v", err)
	}
	if u.Language != model.LanguageRu || e.repo.Get(5).Language != model.LanguageRu {
		t.Errorf("language not stored: %+v", e.repo.Get(5))
	}

	if _, err := uc.SetLanguage(ctx, 5, model.Language("de"), t0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
	if _, err := uc.SetLanguage(ctx, 404, model.LanguageEn, t0); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestUserUseCase_Counts(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.repo.Seed(newUnregistered(1, t0))
	e.repo.Seed(newRegistered(2, t0))
	premium := newRegistered(3, t0)
	premium.IsPremium = true
	e.repo.Seed(premium)
	uc := e.userUC()

	n, err := uc.Count(ctx)
	if err != nil || n != 3 {
		t.Errorf("expected 3 users, got %d (%v)", n, err)
	}
	by, err := uc.CountByState(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if by["unregistered"] != 1 || by["trial"] != 1 || by["premium"] != 1 {
		t.Errorf("unexpected buckets %v", by)
	}
}
