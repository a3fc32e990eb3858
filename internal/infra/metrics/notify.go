package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(notificationsTotal, workerTasksTotal) }

var (
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Outbound user notifications by kind and delivery status.",
		},
		[]string{"kind", "status"}, // status: sent | failed | dropped
	)

	workerTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_tasks_total",
			Help: "Background tasks processed by the worker pool, labeled by status.",
		},
		[]string{"status"}, // 'completed', 'failed'
	)
)

func IncNotification(kind, status string) {
	notificationsTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}

func IncWorkerTask(status string) {
	workerTasksTotal.WithLabelValues(norm(status)).Inc()
}
