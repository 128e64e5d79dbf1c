package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRequestAndExport(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/analyze", "200"))
	RecordRequest("GET", "/analyze", 200, 42*time.Millisecond)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/analyze", "200"))
	assert.Equal(t, before+1, after)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, `occasioncheck_http_requests_total{method="GET",path="/analyze",status="200"}`)
	assert.Contains(t, out, "occasioncheck_http_request_duration_seconds_bucket")
}

func TestRecordPipelineMetrics(t *testing.T) {
	RecordGatewayCall("google", "gemini-test", true)
	RecordPipelineRun("two-stage", "ScanFailed")
	RecordFailure("INSUFFICIENT_FACTS")
	RecordFactDrift("price")

	assert.GreaterOrEqual(t, testutil.ToFloat64(gatewayCallsTotal.WithLabelValues("google", "gemini-test", "true")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(pipelineRunsTotal.WithLabelValues("two-stage", "ScanFailed")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(failuresTotal.WithLabelValues("INSUFFICIENT_FACTS")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(factDriftTotal.WithLabelValues("price")), 1.0)
}

func TestRecordPhotoCountMismatch_CapsLabel(t *testing.T) {
	before := testutil.ToFloat64(photoCountMismatchTotal.WithLabelValues("10"))
	RecordPhotoCountMismatch(57)

	assert.Equal(t, before+1, testutil.ToFloat64(photoCountMismatchTotal.WithLabelValues("10")))
}
