package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		usersCreatedTotal,
		usersRegisteredTotal,
		telegramCommandsReceivedTotal,
		telegramRateLimitTriggeredTotal,
		telegramLockContendedTotal,
	)
}

var (
	usersCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "users_created_total",
			Help: "Total number of user records created on first contact.",
		},
	)

	usersRegisteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "users_registered_total",
			Help: "Total number of users who shared a phone number.",
		},
	)

	telegramCommandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_commands_received_total",
			Help: "Counts incoming messages and commands from users.",
		},
		[]string{"command"},
	)

	telegramRateLimitTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_rate_limit_triggered_total",
			Help: "Total number of times users have been rate-limited.",
		},
	)

	telegramLockContendedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_lock_contended_total",
			Help: "Updates dropped because the same user already had one in flight.",
		},
	)
)

func IncUsersCreated() {
	usersCreatedTotal.Inc()
}

func IncUsersRegistered() {
	usersRegisteredTotal.Inc()
}

func IncTelegramCommand(command string) {
	telegramCommandsReceivedTotal.WithLabelValues(norm(command)).Inc()
}

func IncRateLimitTriggered() {
	telegramRateLimitTriggeredTotal.Inc()
}

func IncLockContended() {
	telegramLockContendedTotal.Inc()
}
