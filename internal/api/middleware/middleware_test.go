package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PitokDf/express-app-useable/internal/api/shared"
	"github.com/PitokDf/express-app-useable/internal/config"
	"github.com/PitokDf/express-app-useable/internal/platform/logger"
)

func TestTrace(t *testing.T) {
	t.Parallel()

	log, buf := logger.NewTestLogger()
	var traceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
		shared.Success(w, r, nil)
		// A second response must be dropped.
		shared.Error(w, r)
	})

	rec := httptest.NewRecorder()
	Trace(log)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Len(t, traceID, shared.TraceIDLength*2)
	assert.Equal(t, traceID, rec.Header().Get("X-Trace-ID"))
	assert.Equal(t, http.StatusOK, rec.Code)

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	var sawHandler, sawCompleted, sawDouble bool
	for _, e := range entries {
		assert.Equal(t, traceID, e["trace_id"])
		switch e["msg"] {
		case "inside handler":
			sawHandler = true
		case "request completed":
			sawCompleted = true
			assert.EqualValues(t, http.StatusOK, e["status"])
		case "response already sent, dropping second response":
			sawDouble = true
		}
	}
	assert.True(t, sawHandler)
	assert.True(t, sawCompleted)
	assert.True(t, sawDouble)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRateLimiter(perMinute, burst int) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(config.RateLimitConfig{RequestsPerMinute: perMinute, Burst: burst})
	rl.now = clock.Now
	return rl, clock
}

func hit(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil)
	req.RemoteAddr = ip + ":1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()

	rl, clock := newTestRateLimiter(60, 2)
	h := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)

	rec := hit(h, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), string(shared.CodeTooManyRequests))

	// Other clients have their own bucket.
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.2").Code)

	clock.Advance(time.Second)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1").Code)
}

func TestRateLimiterSweep(t *testing.T) {
	t.Parallel()

	rl, clock := newTestRateLimiter(60, 1)
	h := rl.Limit(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	hit(h, "10.0.0.1")
	clock.Advance(limiterIdleTTL / 2)
	hit(h, "10.0.0.2")
	clock.Advance(limiterIdleTTL/2 + time.Second)

	assert.Equal(t, 1, rl.Sweep())
	assert.Equal(t, 1, rl.Clients())
}

func TestRecover(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), string(shared.CodeInternalError))
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestRecoverRepanicsAbort(t *testing.T) {
	t.Parallel()

	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestAPIVersion(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	APIVersion(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))
}
