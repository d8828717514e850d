package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "gestor_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	dashboardTotal   *prometheus.CounterVec
	dashboardLatency *prometheus.HistogramVec

	reportGenerateTotal   *prometheus.CounterVec
	reportGenerateLatency *prometheus.HistogramVec
	reportSendTotal       *prometheus.CounterVec

	reportExportTotal   *prometheus.CounterVec
	reportExportLatency *prometheus.HistogramVec

	expenseWritesTotal *prometheus.CounterVec

	competenceFallbacksTotal prometheus.Counter

	loginTotal *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		dashboardTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "dashboard_requests_total",
				Help: "Total dashboard projections by result",
			},
			[]string{"result"},
		)
		dashboardLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "dashboard_latency_seconds",
				Help:    "Dashboard projection latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		reportGenerateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_generate_total",
				Help: "Total report compositions by result",
			},
			[]string{"result"},
		)
		reportGenerateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_generate_latency_seconds",
				Help:    "Report composition latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		reportSendTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_send_total",
				Help: "Total report deliveries by result",
			},
			[]string{"result"},
		)

		reportExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_export_total",
				Help: "Total report exports by format and result",
			},
			[]string{"format", "result"},
		)
		reportExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_export_latency_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		expenseWritesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "expense_writes_total",
				Help: "Total expense mutations by operation and result",
			},
			[]string{"operation", "result"},
		)

		competenceFallbacksTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "competence_fallbacks_total",
				Help: "Charge expenses kept on their stored competence because no competence covers the due month",
			},
		)

		loginTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "login_total",
				Help: "Total login attempts by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			dashboardTotal,
			dashboardLatency,
			reportGenerateTotal,
			reportGenerateLatency,
			reportSendTotal,
			reportExportTotal,
			reportExportLatency,
			expenseWritesTotal,
			competenceFallbacksTotal,
			loginTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveDashboard records dashboard projection duration and result.
func ObserveDashboard(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if dashboardTotal != nil {
		dashboardTotal.WithLabelValues(result).Inc()
	}
	if dashboardLatency != nil {
		dashboardLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveReportGenerate records report composition latency and result.
func ObserveReportGenerate(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if reportGenerateTotal != nil {
		reportGenerateTotal.WithLabelValues(result).Inc()
	}
	if reportGenerateLatency != nil {
		reportGenerateLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncReportSend increments report delivery counters.
func IncReportSend(result string) {
	if result == "" {
		result = resultSuccess
	}
	if reportSendTotal != nil {
		reportSendTotal.WithLabelValues(result).Inc()
	}
}

// ObserveReportExport records export latency by format and result.
func ObserveReportExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportExportTotal != nil {
		reportExportTotal.WithLabelValues(format, result).Inc()
	}
	if reportExportLatency != nil {
		reportExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncExpenseWrite increments expense mutation counters.
func IncExpenseWrite(operation, result string) {
	if operation == "" {
		operation = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if expenseWritesTotal != nil {
		expenseWritesTotal.WithLabelValues(operation, result).Inc()
	}
}

// AddCompetenceFallbacks increments the fallback counter by count.
func AddCompetenceFallbacks(count int) {
	if count <= 0 {
		return
	}
	if competenceFallbacksTotal != nil {
		competenceFallbacksTotal.Add(float64(count))
	}
}

// IncLogin increments login attempt counters.
func IncLogin(result string) {
	if result == "" {
		result = resultSuccess
	}
	if loginTotal != nil {
		loginTotal.WithLabelValues(result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
