package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		accessVerdictsTotal,
		freeSearchesConsumedTotal,
		trialTransitionsTotal,
		referralsTotal,
		premiumPromotionsTotal,
		usersByState,
	)
}

var (
	accessVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_verdicts_total",
			Help: "Evaluator verdicts for gated actions by outcome.",
		},
		[]string{"action", "outcome"}, // outcome: allowed | allowed_free | registration_required | subscription_expired
	)

	freeSearchesConsumedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "free_searches_consumed_total",
			Help: "Free searches spent by unregistered users.",
		},
	)

	trialTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trial_transitions_total",
			Help: "Trial lifecycle transitions persisted.",
		},
		[]string{"state"}, // warning | expired
	)

	referralsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referrals_total",
			Help: "Referral tokens processed by outcome.",
		},
		[]string{"outcome"},
	)

	premiumPromotionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "premium_promotions_total",
			Help: "Referrers promoted to premium by points.",
		},
	)

	usersByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "users_by_state",
			Help: "Current number of users by entitlement state.",
		},
		[]string{"state"}, // unregistered | trial | premium | expired
	)
)

// UserStates lists every label SetUsersByState maintains.
var UserStates = []string{"unregistered", "trial", "premium", "expired"}

func IncAccessVerdict(action, outcome string) {
	accessVerdictsTotal.WithLabelValues(norm(action), norm(outcome)).Inc()
}

func IncFreeSearchConsumed() {
	freeSearchesConsumedTotal.Inc()
}

func IncTrialTransition(state string) {
	trialTransitionsTotal.WithLabelValues(norm(state)).Inc()
}

func IncReferral(outcome string) {
	referralsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncPremiumPromotion() {
	premiumPromotionsTotal.Inc()
}

func SetUsersByState(counts map[string]int) {
	// missing states are reset so a drained bucket does not keep its old value
	for _, s := range UserStates {
		usersByState.WithLabelValues(s).Set(float64(counts[s]))
	}
}
