package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "occasioncheck_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "occasioncheck_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		},
		[]string{"method", "path"},
	)

	gatewayCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "occasioncheck_gateway_calls_total",
			Help: "Total model gateway invocations",
		},
		[]string{"provider", "model", "success"},
	)

	pipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "occasioncheck_pipeline_runs_total",
			Help: "Analysis pipeline runs by orchestration mode and terminal state",
		},
		[]string{"mode", "state"},
	)

	failuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "occasioncheck_failures_total",
			Help: "Analysis failures by error code",
		},
		[]string{"code"},
	)

	photoCountMismatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "occasioncheck_photo_count_mismatch_total",
			Help: "Records whose photo list length differs from the requested four",
		},
		[]string{"photos"},
	)

	factDriftTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "occasioncheck_fact_drift_total",
			Help: "Two-stage records whose analysis disagreed with a scanned fact",
		},
		[]string{"field"},
	)

	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "occasioncheck_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)

// RecordRequest increments the request counter and observes latency.
func RecordRequest(method, path string, status int, latency time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(latency.Seconds())
}

// RecordGatewayCall counts one outbound model invocation.
func RecordGatewayCall(provider, model string, success bool) {
	gatewayCallsTotal.WithLabelValues(provider, model, strconv.FormatBool(success)).Inc()
}

// RecordPipelineRun counts a pipeline run that ended in state.
func RecordPipelineRun(mode, state string) {
	pipelineRunsTotal.WithLabelValues(mode, state).Inc()
}

// RecordFailure counts a failed analysis by error code.
func RecordFailure(code string) {
	failuresTotal.WithLabelValues(code).Inc()
}

// RecordPhotoCountMismatch counts a record with n photos instead of four.
func RecordPhotoCountMismatch(n int) {
	if n > 10 {
		n = 10
	}
	photoCountMismatchTotal.WithLabelValues(strconv.Itoa(n)).Inc()
}

// RecordFactDrift counts a stage-2 value overwritten by the scanned fact.
func RecordFactDrift(field string) {
	factDriftTotal.WithLabelValues(field).Inc()
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited() {
	rateLimitedTotal.Inc()
}

// Handler serves the default registry in Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
