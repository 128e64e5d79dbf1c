package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"occasioncheck/internal/pipeline"
)

func TestRateLimit_PerIP(t *testing.T) {
	fixed := time.Date(2026, 3, 14, 9, 30, 15, 0, time.UTC)
	clock = func() time.Time { return fixed }
	t.Cleanup(func() { clock = time.Now })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.PerMinute = 2

	gw := &fakeGateway{reply: listingReply}
	p, err := pipeline.New(gw, cfg, nil)
	require.NoError(t, err)
	s := NewServer(cfg, p, rdb, nil)

	for i := 0; i < 2; i++ {
		resp, body := doGet(t, s, "/analyze?url=https://example.invalid/a")
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	}

	resp, body := doGet(t, s, "/analyze?url=https://example.invalid/a")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, string(body), "RATE_LIMIT_EXCEEDED")
	assert.Equal(t, "45", resp.Header.Get("Retry-After"))
	assert.Equal(t, 2, gw.calls)

	// health checks are not limited
	resp, _ = doGet(t, s, "/healthz?deep=true")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, mr.TTL(keys[0]) > 0)
}

func TestRateLimit_DisabledWithoutRedis(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.PerMinute = 1

	p, err := pipeline.New(&fakeGateway{reply: listingReply}, cfg, nil)
	require.NoError(t, err)
	s := NewServer(cfg, p, nil, nil)

	for i := 0; i < 3; i++ {
		resp, _ := doGet(t, s, "/analyze?url=https://example.invalid/a")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}
