package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGETSendsHeadersAndParsesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "unit", r.Header.Get("User-Agent"))
		assert.Equal(t, "yes", r.Header.Get("X-Extra"))
		w.Write([]byte(`{"symbol":"INFY"}`))
	}))
	defer srv.Close()

	c := NewClient(WithHeaders(map[string]string{"User-Agent": "unit"}))
	resp, err := c.GET(context.Background(), srv.URL, map[string]string{"X-Extra": "yes"})
	require.NoError(t, err)

	var out struct {
		Symbol string `json:"symbol"`
	}
	require.NoError(t, resp.ParseJSON(&out))
	assert.Equal(t, "INFY", out.Symbol)
}

func TestGETRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(WithRetry(&RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond}))
	resp, err := c.GET(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGETDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(WithRetry(&RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond}))
	_, err := c.GET(context.Background(), srv.URL)
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRateLimiterBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour)
	ctx := context.Background()
	require.NoError(t, rl.Wait(ctx))
	require.NoError(t, rl.Wait(ctx))

	ctx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.DeadlineExceeded)
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(1, 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Wait(ctx))
	}
}

func TestWithHTTPClientOverTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithRetry(&RetryConfig{MaxAttempts: 1})).GET(context.Background(), srv.URL)
	require.Error(t, err)

	resp, err := NewClient(WithHTTPClient(srv.Client())).GET(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
