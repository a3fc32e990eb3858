package model

import (
	"fmt"
	"time"

	"telegram-movie-finder/internal/domain"
)

const Day = 24 * time.Hour

// Policy holds the business constants of the freemium/trial/referral model.
// It is built once at startup and passed by value; nothing in here reads
// process state.
type Policy struct {
	FreeSearchLimit   int
	TrialDays         int
	WarningDay        int
	PointsPerRef      int
	PremiumCostPoints int
	ClassifyCountry   bool
}

func DefaultPolicy() Policy {
	return Policy{
		FreeSearchLimit:   2,
		TrialDays:         30,
		WarningDay:        20,
		PointsPerRef:      100,
		PremiumCostPoints: 500,
	}
}

func (p Policy) Validate() error {
	switch {
	case p.FreeSearchLimit < 0:
		return fmt.Errorf("free search limit %d: %w", p.FreeSearchLimit, domain.ErrInvalidArgument)
	case p.TrialDays <= 0:
		return fmt.Errorf("trial days %d: %w", p.TrialDays, domain.ErrInvalidArgument)
	case p.WarningDay <= 0 || p.WarningDay > p.TrialDays:
		return fmt.Errorf("warning day %d outside 1..%d: %w", p.WarningDay, p.TrialDays, domain.ErrInvalidArgument)
	case p.PointsPerRef <= 0:
		return fmt.Errorf("points per referral %d: %w", p.PointsPerRef, domain.ErrInvalidArgument)
	case p.PremiumCostPoints <= 0:
		return fmt.Errorf("premium cost %d: %w", p.PremiumCostPoints, domain.ErrInvalidArgument)
	}
	return nil
}

// ElapsedDays is the ceiling of the absolute distance between joined and now
// in whole days, measured in milliseconds. One millisecond counts as day 1.
func ElapsedDays(joined, now time.Time) int {
	d := now.Sub(joined)
	if d < 0 {
		d = -d
	}
	ms := d.Milliseconds()
	dayMs := Day.Milliseconds()
	return int((ms + dayMs - 1) / dayMs)
}

// Evaluate decides whether the user may run a gated action at now.
// It never mutates u; consuming a free search is the caller's job.
func (p Policy) Evaluate(u *User, now time.Time) Verdict {
	if u.IsRegistered() {
		if u.IsPremium {
			return Allow(false)
		}
		if u.IsTrial && ElapsedDays(u.JoinedDate, now) <= p.TrialDays {
			return Allow(false)
		}
		return Deny(DenySubscriptionExpired)
	}
	if u.FreeSearchCount < p.FreeSearchLimit {
		return Allow(true)
	}
	return Deny(DenyRegistrationRequired)
}

// TrialState reads the lifecycle state of u at now and names the mutation
// the caller has to persist, if any.
func (p Policy) TrialState(u *User, now time.Time) (TrialState, TrialAction) {
	elapsed := ElapsedDays(u.JoinedDate, now)
	if u.IsTrial {
		if elapsed > p.TrialDays {
			return TrialExpired, TrialActionExpire
		}
		if elapsed >= p.WarningDay && !u.TrialNotified {
			return TrialWarning, TrialActionWarn
		}
		return TrialActive, TrialActionNone
	}
	if u.IsPremium {
		return TrialActive, TrialActionNone
	}
	return TrialExpired, TrialActionNone
}

// TrialDaysLeft is the number of whole trial days remaining, never negative.
func (p Policy) TrialDaysLeft(u *User, now time.Time) int {
	if !u.IsTrial {
		return 0
	}
	left := p.TrialDays - ElapsedDays(u.JoinedDate, now)
	if left < 0 {
		return 0
	}
	return left
}

// CreditReferral applies one referral reward to referrer and reports whether
// the balance crossed the premium threshold. The cost is deducted, so any
// remainder carries forward.
func (p Policy) CreditReferral(referrer *User, now time.Time) (promoted bool) {
	referrer.ReferralCount++
	referrer.Points += p.PointsPerRef
	if referrer.Points >= p.PremiumCostPoints && !referrer.IsPremium {
		referrer.IsPremium = true
		referrer.Points -= p.PremiumCostPoints
		promoted = true
	}
	referrer.UpdatedAt = now
	return promoted
}
