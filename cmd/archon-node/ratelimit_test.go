package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalRateLimiterBurstThenRefill(t *testing.T) {
	rl := newGlobalRateLimiter(1, 2)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	ts := httptest.NewServer(handler)
	defer ts.Close()
	client := ts.Client()

	for i := 0; i < 2; i++ {
		resp, err := client.Get(ts.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "within burst")
		require.NoError(t, resp.Body.Close())
	}

	resp, err := client.Get(ts.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode, "burst exhausted")
	require.NoError(t, resp.Body.Close())

	time.Sleep(1100 * time.Millisecond)

	resp, err = client.Get(ts.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "token refilled")
	require.NoError(t, resp.Body.Close())
}

func TestGlobalRateLimiterSeparatesVisitorsByIP(t *testing.T) {
	rl := newGlobalRateLimiter(1, 1)

	assert.True(t, rl.getVisitor("10.0.0.1").Allow())
	assert.False(t, rl.getVisitor("10.0.0.1").Allow())
	assert.True(t, rl.getVisitor("10.0.0.2").Allow(), "a different IP has its own bucket")
}

func TestGlobalRateLimiterCleanupEvictsIdleVisitors(t *testing.T) {
	rl := newGlobalRateLimiter(1, 1)
	rl.getVisitor("10.0.0.1")
	rl.mu.Lock()
	rl.visitors["10.0.0.1"].lastSeen = time.Now().Add(-4 * time.Minute)
	rl.mu.Unlock()

	rl.evictIdleVisitors()

	rl.mu.Lock()
	_, ok := rl.visitors["10.0.0.1"]
	rl.mu.Unlock()
	assert.False(t, ok, "idle visitor should have been reclaimed")
}
