package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	expensesCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "expenses_created_total",
			Help: "Total number of expenses created",
		},
	)

	expenseActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expense_actions_total",
			Help: "Total number of expense lifecycle actions",
		},
		[]string{"action"}, // submit, approve, reject
	)

	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)

	expensesByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "expenses_by_status",
			Help: "Number of expenses by status",
		},
		[]string{"status"},
	)

	eventDispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_dispatch_total",
			Help: "Total number of domain events dispatched, by outcome",
		},
		[]string{"outcome"}, // inline, async
	)
)

var once sync.Once

func init() {
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(expensesCreatedTotal)
	prometheus.MustRegister(expenseActionsTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)
	prometheus.MustRegister(expensesByStatus)
	prometheus.MustRegister(eventDispatchTotal)

	once.Do(func() {
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler returns the Prometheus scrape handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest records one HTTP request's outcome and latency.
func RecordAPIRequest(method, path string, status int, durationSeconds float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(durationSeconds)
}

// RecordExpenseCreated increments the expenses-created counter.
func RecordExpenseCreated() {
	expensesCreatedTotal.Inc()
}

// RecordExpenseAction increments the per-action lifecycle counter.
func RecordExpenseAction(action string) {
	expenseActionsTotal.WithLabelValues(action).Inc()
}

// RecordEventDispatch records whether a domain event was dispatched
// asynchronously or fell back to the publishing goroutine.
func RecordEventDispatch(outcome string) {
	eventDispatchTotal.WithLabelValues(outcome).Inc()
}

// UpdateDatabaseConnections refreshes the connection-pool gauges from db.
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}

// UpdateExpensesByStatus sets the gauge for one status bucket.
func UpdateExpensesByStatus(status string, count float64) {
	expensesByStatus.WithLabelValues(status).Set(count)
}
