package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"occasioncheck/internal/config"
	"occasioncheck/internal/llm"
	"occasioncheck/internal/pipeline"
)

type fakeGateway struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
	last  llm.Request
}

func (f *fakeGateway) Invoke(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	return f.reply, f.err
}

func (f *fakeGateway) Provider() llm.Provider { return llm.ProviderGoogle }
func (f *fakeGateway) Model() string          { return "gemini-test" }

func testConfig() *config.Config {
	on := true
	cfg := &config.Config{}
	cfg.Pipeline.Mode = config.ModeUnified
	cfg.Pipeline.Variant = "full"
	cfg.Pipeline.WebRetrieval = &on
	cfg.Pipeline.StructuredOutput = &on
	cfg.Pipeline.TimeoutMs = 5000
	return cfg
}

func newTestServer(t *testing.T, gw llm.Gateway) *Server {
	t.Helper()
	cfg := testConfig()
	p, err := pipeline.New(gw, cfg, nil)
	require.NoError(t, err)
	return NewServer(cfg, p, nil, nil)
}

func doGet(t *testing.T, s *Server, target string) (*http.Response, []byte) {
	t.Helper()
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

const listingReply = "Hier is de analyse:\n```json\n" + `{
  "isSpecificAdAnalysis": true,
  "title": "Toyota Yaris 1.5 Hybrid Dynamic",
  "photos": ["https://img/1.jpg", "https://img/2.jpg", "https://img/3.jpg", "https://img/4.jpg"],
  "marketAnalysis": "Iets boven het marktgemiddelde.",
  "price": 21450,
  "specs": {"Merk": "Toyota", "Model": "Yaris", "Bouwjaar": "2021", "Kilometerstand": "42.000 km", "Brandstof": "Hybride", "Transmissie": "Automaat"},
  "pluspunten": ["Zeer zuinig", "Dealeronderhouden"],
  "minpunten": ["Beperkte achterbankruimte"],
  "onderhandelingsadvies": "Vraag om nieuwe banden of 500 euro korting.",
  "eindconclusie": "Betrouwbare stadsauto.",
  "score": 7.5
}` + "\n```"

func TestAnalyze_SpecificListing(t *testing.T) {
	gw := &fakeGateway{reply: listingReply}
	s := newTestServer(t, gw)

	resp, body := doGet(t, s, "/analyze?url=https%3A%2F%2Fwww.marktplaats.nl%2Fv%2Fauto-s%2Ftoyota%2Fm123")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, true, got["isSpecificAdAnalysis"])
	assert.Equal(t, "Toyota Yaris 1.5 Hybrid Dynamic", got["title"])
	assert.Equal(t, 21450.0, got["price"])
	assert.Len(t, got["photos"], 4)
	assert.Equal(t, "Iets boven het marktgemiddelde.", got["marketAnalysis"])
	for _, key := range []string{"specs", "pluspunten", "minpunten", "onderhandelingsadvies", "eindconclusie", "score"} {
		assert.Contains(t, got, key)
	}

	assert.Equal(t, 1, gw.calls)
	assert.Contains(t, gw.last.Instruction, "https://www.marktplaats.nl/v/auto-s/toyota/m123")
}

func TestAnalyze_ModelReportedFailure(t *testing.T) {
	gw := &fakeGateway{reply: `{"error": "De URL kon niet worden opgehaald."}`}
	s := newTestServer(t, gw)

	resp, body := doGet(t, s, "/analyze?url=https://example.invalid/listing")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var got ErrorResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "De URL kon niet worden opgehaald.", got.Error)
	assert.Equal(t, "MODEL_REPORTED_FAILURE", got.Code)
}

func TestAnalyze_MissingURL(t *testing.T) {
	for _, target := range []string{"/analyze", "/analyze?url=", "/analyze?url=%20%20"} {
		gw := &fakeGateway{reply: listingReply}
		s := newTestServer(t, gw)

		resp, body := doGet(t, s, target)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, target)
		assert.JSONEq(t, `{"error":"no URL provided"}`, string(body))
		assert.Equal(t, 0, gw.calls, "gateway must not be invoked")
	}
}

func TestAnalyze_GatewayUnavailable(t *testing.T) {
	s := newTestServer(t, llm.Unavailable(llm.ProviderGoogle, "gemini-2.5-flash", errors.New("GEMINI_API_KEY not set")))

	resp, body := doGet(t, s, "/analyze?url=https://example.invalid/listing")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var got ErrorResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "GATEWAY_UNAVAILABLE", got.Code)
	assert.NotEmpty(t, got.Error)
	assert.NotContains(t, got.Error, "GEMINI_API_KEY", "causes stay in the logs")
}

func TestAnalyze_NoJSON(t *testing.T) {
	s := newTestServer(t, &fakeGateway{reply: "Ik kan deze pagina helaas niet bekijken."})

	resp, body := doGet(t, s, "/analyze?url=https://example.invalid/listing")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var got ErrorResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "NO_JSON_FOUND", got.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, &fakeGateway{})
	resp, body := doGet(t, s, "/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got HealthResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, "google", got.Provider)
	assert.Equal(t, "ok", got.Gateway)
	assert.Equal(t, config.ModeUnified, got.Mode)

	s = newTestServer(t, llm.Unavailable(llm.ProviderOpenAI, "gpt-4.1", nil))
	_, body = doGet(t, s, "/healthz?deep=true")
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "unavailable", got.Gateway)
	assert.Equal(t, "disabled", got.Redis)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeGateway{})
	doGet(t, s, "/healthz")

	resp, body := doGet(t, s, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "occasioncheck_http_requests_total")
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, &fakeGateway{})

	resp, body := doGet(t, s, "/v1/scrape")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var got ErrorResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.NotEmpty(t, got.Error)
}
