package stats

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	resultsTotal       *prometheus.CounterVec
	resultLatency      *prometheus.HistogramVec
	txAttemptsTotal    prometheus.Counter
	txConflictsTotal   prometheus.Counter
	judgeSubmitsTotal  *prometheus.CounterVec
	ledgerWritesTotal  *prometheus.CounterVec
	activityIncrements prometheus.Counter
	httpRequestsTotal  *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
)

// Register initialises the collectors and registers them with the default
// prometheus registry. Safe to call many times.
func Register() {
	registerOnce.Do(func() {
		resultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "judge_results_processed_total",
			Help: "Judge results processed, by kind (run, scored) and outcome error code.",
		}, []string{"kind", "outcome"})

		resultLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "judge_result_processing_seconds",
			Help:    "Time spent processing one judge result.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"kind"})

		txAttemptsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docstore_transaction_attempts_total",
			Help: "Document store transaction attempts, retries included.",
		})

		txConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docstore_transaction_conflicts_total",
			Help: "Document store transaction attempts aborted by a write conflict.",
		})

		judgeSubmitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "judge_submits_total",
			Help: "Submissions sent to the judge, by outcome.",
		}, []string{"outcome"})

		ledgerWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metric_ledger_updates_total",
			Help: "Metric ledger decisions, by metric stream and whether a write was emitted.",
		}, []string{"metric", "written"})

		activityIncrements = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activity_increments_total",
			Help: "Daily activity counter increments.",
		})

		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests, by route pattern, method and status code.",
		}, []string{"route", "method", "code"})

		httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"})

		prometheus.MustRegister(
			resultsTotal,
			resultLatency,
			txAttemptsTotal,
			txConflictsTotal,
			judgeSubmitsTotal,
			ledgerWritesTotal,
			activityIncrements,
			httpRequestsTotal,
			httpDuration,
		)
	})
}

func ResultsProcessed() *prometheus.CounterVec {
	Register()
	return resultsTotal
}

func ResultLatency() *prometheus.HistogramVec {
	Register()
	return resultLatency
}

func TxAttempts() prometheus.Counter {
	Register()
	return txAttemptsTotal
}

func TxConflicts() prometheus.Counter {
	Register()
	return txConflictsTotal
}

func JudgeSubmits() *prometheus.CounterVec {
	Register()
	return judgeSubmitsTotal
}

func LedgerUpdates() *prometheus.CounterVec {
	Register()
	return ledgerWritesTotal
}

func ActivityIncrements() prometheus.Counter {
	Register()
	return activityIncrements
}

func HttpRequests() *prometheus.CounterVec {
	Register()
	return httpRequestsTotal
}

func HttpDuration() *prometheus.HistogramVec {
	Register()
	return httpDuration
}
