//go:build !integration

package usecase_test

import (
	"context"
	"testing"

	"telegram-movie-finder/internal/usecase"
)

func TestStatsUseCase(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.repo.Seed(newUnregistered(1, t0))
	e.repo.Seed(newUnregistered(2, t0))
	e.repo.Seed(newRegistered(3, t0))
	expired := newRegistered(4, t0)
	expired.IsTrial = false
	e.repo.Seed(expired)

	uc := usecase.NewStatsUseCase(e.repo, newTestLogger())

	t.Run("totals", func(t *testing.T) {
		s, err := uc.Totals(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if s.Users != 4 || s.ByState["unregistered"] != 2 || s.ByState["trial"] != 1 || s.ByState["expired"] != 1 {
			t.Errorf("unexpected stats %+v", s)
		}
	})

	t.Run("gauges", func(t *testing.T) {
		if err := uc.RefreshGauges(ctx); err != nil {
			t.Fatal(err)
		}
	})
}
