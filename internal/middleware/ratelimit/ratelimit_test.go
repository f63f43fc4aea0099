package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(limit int) (*Limiter, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return NewLimiter(Config{RequestsPerMinute: limit, Clock: clock}), clock
}

func TestAllowWithinWindow(t *testing.T) {
	rl, clock := newTestLimiter(3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.2.3.4"), "request %d", i+1)
	}
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "other clients have their own budget")

	clock.Advance(Window)
	assert.True(t, rl.Allow("1.2.3.4"), "a new window resets the count")
}

func TestSteadyTrafficStillResets(t *testing.T) {
	rl, clock := newTestLimiter(2)

	assert.True(t, rl.Allow("a"))
	clock.Advance(40 * time.Second)
	assert.True(t, rl.Allow("a"))
	clock.Advance(40 * time.Second)
	assert.True(t, rl.Allow("a"), "window started 80s ago")
}

func TestRetryAfter(t *testing.T) {
	rl, clock := newTestLimiter(1)
	assert.Zero(t, rl.RetryAfter("a"))

	rl.Allow("a")
	clock.Advance(15 * time.Second)
	assert.Equal(t, 45*time.Second, rl.RetryAfter("a"))
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, clock := newTestLimiter(5)
	rl.Allow("old")
	clock.Advance(11 * time.Minute)
	rl.Allow("new")

	assert.Equal(t, 1, rl.CleanupStaleEntries())
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestCleanupLoopRunsOnTicker(t *testing.T) {
	rl, clock := newTestLimiter(5)
	rl.Allow("idle")
	rl.Start()
	defer rl.Stop()

	require.NoError(t, clock.BlockUntilContext(t.Context(), 1))
	clock.Advance(11 * time.Minute)
	assert.Eventually(t, func() bool { return rl.ActiveClients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStopIsIdempotent(t *testing.T) {
	rl, _ := newTestLimiter(5)
	rl.Start()
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(1)
	h := rl.Middleware(func(r *http.Request) string { return "k" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
}

func TestMiddlewareCustomRejection(t *testing.T) {
	rl, _ := newTestLimiter(1)
	called := 0
	h := rl.Middleware(func(r *http.Request) string { return "k" }, func(w http.ResponseWriter, r *http.Request) {
		called++
		w.WriteHeader(http.StatusTeapot)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, 1, called)
}
