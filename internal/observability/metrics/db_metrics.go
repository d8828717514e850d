package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "expenses_count",
			Help: "Stored expense records",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM despesas")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "units_count",
			Help: "Registered consumer units",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM unidades")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "users_pending",
			Help: "Accounts awaiting approval",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM usuarios WHERE status = 'pending'")
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
