//go:build !integration

package model

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"telegram-movie-finder/internal/domain"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func registeredUser(t *testing.T, joined time.Time) *User {
	t.Helper()
	u, err := NewUser(42, "tester", joined)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	if err := u.Register("+998901234567", joined, false); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return u
}

// --- User Model Tests ---

func TestNewUser(t *testing.T) {
	t.Run("should apply defaults once", func(t *testing.T) {
		// --- Act ---
		u, err := NewUser(12345, "Ali", t0)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if u.TelegramID != 12345 || u.Language != DefaultLanguage {
			t.Errorf("unexpected identity fields: id=%d lang=%s", u.TelegramID, u.Language)
		}
		if u.IsRegistered() || u.IsPremium || u.IsTrial {
			t.Error("a new user has no entitlement")
		}
		if u.Points != 0 || u.FreeSearchCount != 0 || u.ReferralCount != 0 {
			t.Errorf("counters should start at zero: %+v", u)
		}
		if !u.JoinedDate.Equal(t0) || u.ReferredBy != nil {
			t.Errorf("unexpected joined=%v referredBy=%v", u.JoinedDate, u.ReferredBy)
		}
	})

	t.Run("should fail with invalid telegram ID", func(t *testing.T) {
		u, err := NewUser(0, "Ali", t0)
		if u != nil || !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v, %v", u, err)
		}
	})
}

func TestUser_Register(t *testing.T) {
	t.Run("should start trial and reset clock", func(t *testing.T) {
		// --- Arrange ---
		u, _ := NewUser(1, "a", t0)
		t1 := t0.Add(45 * Day)

		// --- Act ---
		if err := u.Register(" +998901112233 ", t1, true); err != nil {
			t.Fatalf("Register: %v", err)
		}

		// --- Assert ---
		if !u.IsRegistered() || !u.IsTrial {
			t.Error("registration should start the trial")
		}
		if !u.JoinedDate.Equal(t1) {
			t.Errorf("expected clock reset to %v, got %v", t1, u.JoinedDate)
		}
		if u.PhoneValue() != "+998901112233" {
			t.Errorf("phone not trimmed: %q", u.PhoneValue())
		}
		if u.Country != CountryDomestic {
			t.Errorf("expected domestic, got %s", u.Country)
		}
	})

	t.Run("should leave country alone when classification is off", func(t *testing.T) {
		u, _ := NewUser(1, "a", t0)
		if err := u.Register("+79001234567", t0, false); err != nil {
			t.Fatalf("Register: %v", err)
		}
		if u.Country != CountryUnknown {
			t.Errorf("expected unknown country, got %s", u.Country)
		}
	})

	t.Run("should reject empty phone", func(t *testing.T) {
		u, _ := NewUser(1, "a", t0)
		if err := u.Register("  ", t0, false); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if u.IsRegistered() {
			t.Error("blank phone must not register")
		}
	})
}

func TestClassifyCountry(t *testing.T) {
	cases := map[string]Country{
		"+998901234567": CountryDomestic,
		"998901234567":  CountryDomestic,
		"+79001234567":  CountryForeign,
		"":              CountryUnknown,
	}
	for in, want := range cases {
		if got := ClassifyCountry(in); got != want {
			t.Errorf("ClassifyCountry(%q) = %s, want %s", in, got, want)
		}
	}
}

// --- Policy Tests ---

func TestElapsedDays(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want int
	}{
		{"same instant", 0, 0},
		{"one millisecond counts as day one", time.Millisecond, 1},
		{"exactly one day", Day, 1},
		{"one day and a millisecond", Day + time.Millisecond, 2},
		{"thirty days", 30 * Day, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ElapsedDays(t0, t0.Add(tt.d)); got != tt.want {
				t.Errorf("forward: got %d, want %d", got, tt.want)
			}
			if got := ElapsedDays(t0.Add(tt.d), t0); got != tt.want {
				t.Errorf("difference is absolute: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPolicy_Evaluate(t *testing.T) {
	p := DefaultPolicy()

	t.Run("free limit is exact", func(t *testing.T) {
		u, _ := NewUser(7, "a", t0)
		for i := 0; i < p.FreeSearchLimit; i++ {
			v := p.Evaluate(u, t0)
			if !v.Allowed || !v.ConsumesFreeSearch {
				t.Fatalf("search %d should spend a free search, got %+v", i+1, v)
			}
			u.FreeSearchCount++
		}
		if v := p.Evaluate(u, t0); v != Deny(DenyRegistrationRequired) {
			t.Errorf("expected registration prompt after the limit, got %+v", v)
		}
	})

	t.Run("trial boundary", func(t *testing.T) {
		now := t0.Add(90 * Day)
		tests := []struct {
			name   string
			joined time.Time
			want   Verdict
		}{
			{"a millisecond past the trial", now.Add(-30*Day - time.Millisecond), Deny(DenySubscriptionExpired)},
			{"mid trial", now.Add(-29 * Day), Allow(false)},
			{"last trial day", now.Add(-30 * Day), Allow(false)},
		}
		for _, tt := range tests {
			if got := p.Evaluate(registeredUser(t, tt.joined), now); got != tt.want {
				t.Errorf("%s: got %+v, want %+v", tt.name, got, tt.want)
			}
		}
	})

	t.Run("registration right now is allowed", func(t *testing.T) {
		if got := p.Evaluate(registeredUser(t, t0), t0); got != Allow(false) {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("premium overrides elapsed time", func(t *testing.T) {
		u := registeredUser(t, t0)
		u.IsPremium = true
		u.IsTrial = false
		for _, d := range []time.Duration{0, 31 * Day, 3650 * Day} {
			if got := p.Evaluate(u, t0.Add(d)); got != Allow(false) {
				t.Errorf("after %v: got %+v", d, got)
			}
		}
	})

	t.Run("registration resets the clock", func(t *testing.T) {
		// --- Arrange ---
		u, _ := NewUser(9, "a", t0)
		t1 := t0.Add(40 * Day)
		if err := u.Register("+998900000000", t1, false); err != nil {
			t.Fatalf("Register: %v", err)
		}

		// --- Assert ---
		if got := p.Evaluate(u, t1.Add(30*Day)); got != Allow(false) {
			t.Errorf("day 30 after registration: got %+v", got)
		}
		if got := p.Evaluate(u, t1.Add(31*Day)); got != Deny(DenySubscriptionExpired) {
			t.Errorf("day 31 after registration: got %+v", got)
		}
	})

	t.Run("evaluate does not mutate", func(t *testing.T) {
		u, _ := NewUser(9, "a", t0)
		before := *u
		_ = p.Evaluate(u, t0)
		if !reflect.DeepEqual(before, *u) {
			t.Errorf("user changed: before %+v, after %+v", before, *u)
		}
	})
}

func TestPolicy_TrialState(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name       string
		elapsed    time.Duration
		notified   bool
		premium    bool
		trial      bool
		wantState  TrialState
		wantAction TrialAction
	}{
		{"early trial", 5 * Day, false, false, true, TrialActive, TrialActionNone},
		{"warning window", 25 * Day, false, false, true, TrialWarning, TrialActionWarn},
		{"warning already sent", 25 * Day, true, false, true, TrialActive, TrialActionNone},
		{"warning starts on warning day", 20 * Day, false, false, true, TrialWarning, TrialActionWarn},
		{"last trial day still warns", 30 * Day, false, false, true, TrialWarning, TrialActionWarn},
		{"past trial expires", 30*Day + time.Millisecond, true, true, true, TrialExpired, TrialActionExpire},
		{"premium without trial", 300 * Day, false, true, false, TrialActive, TrialActionNone},
		{"nothing left", 300 * Day, false, false, false, TrialExpired, TrialActionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// --- Arrange ---
			u := registeredUser(t, t0)
			u.TrialNotified = tt.notified
			u.IsPremium = tt.premium
			u.IsTrial = tt.trial

			// --- Act ---
			state, action := p.TrialState(u, t0.Add(tt.elapsed))

			// --- Assert ---
			if state != tt.wantState || action != tt.wantAction {
				t.Errorf("got (%s, %d), want (%s, %d)", state, action, tt.wantState, tt.wantAction)
			}
		})
	}
}

func TestPolicy_CreditReferral(t *testing.T) {
	p := DefaultPolicy()

	t.Run("promotion keeps the remainder", func(t *testing.T) {
		u, _ := NewUser(1, "ref", t0)
		u.Points = 450
		if !p.CreditReferral(u, t0) {
			t.Fatal("expected promotion")
		}
		if !u.IsPremium || u.Points != 50 || u.ReferralCount != 1 {
			t.Errorf("unexpected state: premium=%v points=%d refs=%d", u.IsPremium, u.Points, u.ReferralCount)
		}
	})

	t.Run("five referrals buy premium exactly", func(t *testing.T) {
		u, _ := NewUser(1, "ref", t0)
		var promotions int
		for i := 0; i < 5; i++ {
			if p.CreditReferral(u, t0) {
				promotions++
			}
		}
		if promotions != 1 {
			t.Errorf("expected one promotion, got %d", promotions)
		}
		if !u.IsPremium || u.Points != 0 || u.ReferralCount != 5 {
			t.Errorf("unexpected state: premium=%v points=%d refs=%d", u.IsPremium, u.Points, u.ReferralCount)
		}
	})

	t.Run("premium referrer keeps accruing", func(t *testing.T) {
		u, _ := NewUser(1, "ref", t0)
		u.IsPremium = true
		u.Points = 480
		if p.CreditReferral(u, t0) {
			t.Error("an already premium referrer is not promoted again")
		}
		if u.Points != 580 {
			t.Errorf("expected 580 points, got %d", u.Points)
		}
	})
}

func TestPolicy_Validate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy should be valid: %v", err)
	}

	noFree := DefaultPolicy()
	noFree.FreeSearchLimit = 0
	if err := noFree.Validate(); err != nil {
		t.Errorf("a zero free-search limit is valid: %v", err)
	}

	bad := DefaultPolicy()
	bad.WarningDay = 40
	if err := bad.Validate(); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("warning after trial end: got %v", err)
	}

	bad = DefaultPolicy()
	bad.TrialDays = 0
	if err := bad.Validate(); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("zero trial days: got %v", err)
	}
}

func TestMovie(t *testing.T) {
	m := Movie{ID: 603, Title: "The Matrix", ReleaseDate: "1999-03-30", PosterPath: "/x.jpg"}
	if m.Year() != "1999" {
		t.Errorf("Year() = %q", m.Year())
	}
	if m.PosterURL() != "https://image.tmdb.org/t/p/w500/x.jpg" {
		t.Errorf("PosterURL() = %q", m.PosterURL())
	}

	links := WatchLinks(m)
	if len(links) != 4 {
		t.Fatalf("expected 4 watch links, got %d", len(links))
	}
	if links[0].URL != "https://embed.su/embed/movie/603" {
		t.Errorf("first link = %q", links[0].URL)
	}
	if links[3].WebApp {
		t.Error("last link opens outside the web app")
	}
	if (Movie{}).Year() != "" {
		t.Error("no release date means no year")
	}
}
