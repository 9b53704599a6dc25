package backup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// backup manager metrics.
//
//nolint:gochecknoglobals,promlinter
var (
	metricBackupsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vestry_backup_create_count",
		Help: "Number of archives created successfully",
	})
	metricBackupErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vestry_backup_error_count",
		Help: "Number of failed backup attempts",
	})
	metricRestores = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vestry_restore_count",
		Help: "Number of completed restores",
	})
	metricRestoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vestry_restore_error_count",
		Help: "Number of failed restore attempts",
	})
	metricRetentionDeletes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vestry_backup_retention_delete_count",
		Help: "Number of archives deleted by retention cleanup",
	})
)
