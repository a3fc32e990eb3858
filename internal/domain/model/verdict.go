package model

type DenyReason string

const (
	DenyNone                 DenyReason = ""
	DenyRegistrationRequired DenyReason = "registration_required"
	DenySubscriptionExpired  DenyReason = "subscription_expired"
)

// Verdict is the evaluator's answer for one gated action.
type Verdict struct {
	Allowed            bool
	ConsumesFreeSearch bool
	Reason             DenyReason
}

func Allow(consumesFreeSearch bool) Verdict {
	return Verdict{Allowed: true, ConsumesFreeSearch: consumesFreeSearch}
}

func Deny(reason DenyReason) Verdict {
	return Verdict{Allowed: false, Reason: reason}
}

// Outcome is a short label used for logs and metrics.
func (v Verdict) Outcome() string {
	switch {
	case v.Allowed && v.ConsumesFreeSearch:
		return "allowed_free"
	case v.Allowed:
		return "allowed"
	default:
		return string(v.Reason)
	}
}

type TrialState string

const (
	TrialActive  TrialState = "ACTIVE"
	TrialWarning TrialState = "WARNING"
	TrialExpired TrialState = "EXPIRED"
)

type TrialAction int

const (
	TrialActionNone TrialAction = iota
	TrialActionWarn
	TrialActionExpire
)
