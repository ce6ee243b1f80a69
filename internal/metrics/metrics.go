package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Risk evaluation metrics
var (
	// RiskEvaluationsTotal counts finished evaluations by domain and overall level
	RiskEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_evaluations_total",
			Help: "Total number of risk evaluations by domain and overall risk",
		},
		[]string{"domain", "overall"},
	)

	// RiskEntityOutcomesTotal counts per-country outcomes by status
	RiskEntityOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_entity_outcomes_total",
			Help: "Total number of per-country evaluation outcomes by domain and status",
		},
		[]string{"domain", "status"},
	)

	// RiskAssessmentDuration tracks how long a full assessment takes
	RiskAssessmentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "risk_assessment_duration_seconds",
			Help:    "Duration of full risk assessments in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// SinkErrorsTotal counts failed result persistence attempts
	SinkErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_sink_errors_total",
			Help: "Total number of failed assessment saves by sink",
		},
		[]string{"sink"},
	)
)

// Database metrics
var (
	// DBQueriesTotal tracks the total number of database queries
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_queries_total",
			Help: "Total number of database queries executed",
		},
		[]string{"query_type", "table", "status"},
	)

	// DBQueryDuration tracks the duration of database queries
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type", "table"},
	)

	// DBConnectionsOpen tracks the number of open database connections
	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Number of established connections both in use and idle",
		},
	)

	// DBConnectionsInUse tracks the number of connections currently in use
	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_in_use",
			Help: "Number of connections currently in use",
		},
	)

	// DBConnectionsIdle tracks the number of idle connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle connections",
		},
	)

	// AppInfo provides static information about the application
	AppInfo = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pathfinder_app_info",
			Help: "Application information (always 1)",
		},
	)

	// AppStartTime records when the application started
	AppStartTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pathfinder_app_start_time_seconds",
			Help: "Unix timestamp of when the application started",
		},
	)
)

func init() {
	AppInfo.Set(1)
	AppStartTime.SetToCurrentTime()
}

// RecordEvaluation records one finished domain evaluation
func RecordEvaluation(domain, overall string) {
	RiskEvaluationsTotal.WithLabelValues(domain, overall).Inc()
}

// RecordOutcome records the status of one country within a domain evaluation
func RecordOutcome(domain, status string) {
	RiskEntityOutcomesTotal.WithLabelValues(domain, status).Inc()
}

// RecordAssessment records the duration of a full assessment
func RecordAssessment(duration time.Duration) {
	RiskAssessmentDuration.Observe(duration.Seconds())
}

// RecordSinkError records a failed save to the named sink
func RecordSinkError(sink string) {
	SinkErrorsTotal.WithLabelValues(sink).Inc()
}

// RecordDBQuery records a database query execution
func RecordDBQuery(queryType, table string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DBQueriesTotal.WithLabelValues(queryType, table, status).Inc()
	DBQueryDuration.WithLabelValues(queryType, table).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(open, inUse, idle int) {
	DBConnectionsOpen.Set(float64(open))
	DBConnectionsInUse.Set(float64(inUse))
	DBConnectionsIdle.Set(float64(idle))
}
