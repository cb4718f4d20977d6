package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fileOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webdesk_file_operations_total",
			Help: "File lifecycle operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	quotaAlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webdesk_quota_alerts_total",
			Help: "Storage alerts raised by tier",
		},
		[]string{"tier"},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webdesk_notifications_total",
			Help: "Outbound notifications by kind and result",
		},
		[]string{"kind", "result"},
	)

	orphanedFilesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webdesk_orphaned_files_total",
			Help: "Physical files left behind after their record was purged",
		},
	)
)

func observeFileOp(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	fileOperationsTotal.WithLabelValues(operation, result).Inc()
}
