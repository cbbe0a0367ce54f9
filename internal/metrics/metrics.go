package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const Namespace = "infraprobe"

var (
	testResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "test_results_total",
		Help:      "Count of infrastructure test results",
	}, []string{
		"suite",
		"status",
	})

	testDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "test_duration_seconds",
		Help:      "Duration of a single infrastructure test",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{
		"suite",
	})

	runTests = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "run_tests",
		Help:      "Number of tests in the last run by status",
	}, []string{
		"environment",
		"status",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of the last run",
	}, []string{
		"environment",
	})

	genaiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "genai_requests_total",
		Help:      "Count of answered questions",
	}, []string{
		"question_type",
		"data_source",
	})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "notifications_total",
		Help:      "Count of outbound notifications",
	}, []string{
		"channel",
		"result",
	})
)

func RecordTestResult(suite, status string, d time.Duration) {
	testResultsTotal.WithLabelValues(suite, status).Inc()
	testDuration.WithLabelValues(suite).Observe(d.Seconds())
}

// RecordRun publishes the per-status totals of a finished run.
func RecordRun(env string, counts map[string]int, d time.Duration) {
	for status, n := range counts {
		runTests.WithLabelValues(env, status).Set(float64(n))
	}
	runDuration.WithLabelValues(env).Set(d.Seconds())
}

func RecordGenAI(questionType, dataSource string) {
	genaiRequestsTotal.WithLabelValues(questionType, dataSource).Inc()
}

func RecordNotification(channel string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	notificationsTotal.WithLabelValues(channel, result).Inc()
}

func Handler() http.Handler { return promhttp.Handler() }

// Push sends the run gauges and counters to a Pushgateway. Short-lived CLI
// runs are never scraped.
func Push(ctx context.Context, url, env string) error {
	return push.New(url, "infratest").
		Grouping("environment", env).
		Gatherer(prometheus.DefaultGatherer).
		PushContext(ctx)
}
