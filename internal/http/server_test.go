package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "delhidash/internal/log"
	"delhidash/internal/observability"
	"delhidash/internal/report"
	"delhidash/internal/session"
)

type fakeFetcher struct {
	report *report.Report
	err    error
}

func (f fakeFetcher) Fetch(ctx context.Context, date string) (*report.Report, error) {
	return f.report, f.err
}

// fetcherFunc adapts a function to report.Fetcher.
type fetcherFunc func(ctx context.Context, date string) (*report.Report, error)

func (f fetcherFunc) Fetch(ctx context.Context, date string) (*report.Report, error) {
	return f(ctx, date)
}

func sampleReport() *report.Report {
	return &report.Report{
		TotalEarnings: decimal.NewFromInt(1500),
		TotalExpenses: decimal.NewFromInt(500),
		Balance:       decimal.NewFromInt(1000),
		Earnings: []report.Earning{
			{ID: "e1", Platform: "uber", Amount: decimal.NewFromInt(1000)},
			{ID: "e2", Platform: "ola", Amount: decimal.NewFromInt(500)},
		},
		Expenses: []report.Expense{
			{ID: "x1", Type: "petrol", Amount: decimal.NewFromInt(500)},
		},
	}
}

type testServer struct {
	*Server
	metrics  *observability.Metrics
	registry *prometheus.Registry
}

func newTestServer(t *testing.T, fetcher report.Fetcher, perMinute int) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	logger := applog.New(applog.Config{Output: io.Discard})
	clock := clockwork.NewFakeClock()
	store := session.NewStore(session.Options{Clock: clock, Metrics: m, Logger: logger.Logger})

	srv := NewServer(":0", Deps{
		Store:              store,
		Reports:            fetcher,
		Metrics:            m,
		Gatherer:           reg,
		Logger:             logger,
		RateLimitPerMinute: perMinute,
		Clock:              clock,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, metrics: m, registry: reg}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	return ts.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func TestIndexAndHealth(t *testing.T) {
	ts := newTestServer(t, fakeFetcher{}, 0)

	rr := ts.get("/")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Financial Report")
	assert.Contains(t, body, "Fetch Report")
	assert.Contains(t, body, "Category-wise Expenses")
	assert.Regexp(t, `name="sid" value="[0-9a-f-]{36}"`, body)

	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready"} {
		rr := ts.get(path)
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, want, rr.Body.String(), path)
	}

	assert.Equal(t, http.StatusNotFound, ts.get("/nope").Code)
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	ts := newTestServer(t, fakeFetcher{}, 0)

	rr := ts.get("/")
	require.Equal(t, http.StatusOK, rr.Code)
	csp := rr.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "tile.openstreetmap.org")
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Regexp(t, `^req_[0-9a-f]{16}$`, rr.Header().Get("X-Request-ID"))
}

func TestStaticAssets(t *testing.T) {
	ts := newTestServer(t, fakeFetcher{}, 0)

	rr := ts.get("/static/map.js")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
	assert.Contains(t, rr.Body.String(), "/events")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, fakeFetcher{}, 0)
	ts.get("/")

	rr := ts.get("/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "delhidash_http_requests_total")
}

func TestReportSuccess(t *testing.T) {
	ts := newTestServer(t, fakeFetcher{report: sampleReport()}, 0)
	sid := uuid.NewString()

	rr := ts.get("/ui/report?date=2024-01-01&sid=" + sid)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), EventReportLoaded)

	body := rr.Body.String()
	for _, want := range []string{
		"Total Earnings", "₹1,500",
		"Total Expenses", "₹500",
		"Balance", "₹1,000",
		"Earnings Distribution", "Expenses Distribution",
		"Earnings Breakdown", "Expenses Breakdown",
		"uber", "66.7%", "petrol", "100.0%",
	} {
		assert.Contains(t, body, want)
	}
	assert.Contains(t, body, "/ui/charts/"+sid+"/earnings.svg?date=2024-01-01")

	rr = ts.get("/ui/charts/" + sid + "/earnings.svg?date=2024-01-01")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.Contains(t, rr.Body.String(), "<svg")
	assert.InDelta(t, 1, testutil.ToFloat64(ts.metrics.ChartRenders.WithLabelValues("pie", "success")), 0)
}

func TestReportErrors(t *testing.T) {
	tests := []struct {
		name    string
		fetcher report.Fetcher
		want    string
	}{
		{"api message", fakeFetcher{err: &report.APIError{Status: 404, Message: "No report found for this date"}}, "No report found for this date"},
		{"network", fakeFetcher{err: report.ErrNetwork}, report.MsgNetwork},
		{"empty body", fakeFetcher{}, report.MsgNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.fetcher, 0)
			rr := ts.get("/ui/report?date=2024-01-01&sid=" + uuid.NewString())
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Body.String(), `role="alert"`)
			assert.Contains(t, rr.Body.String(), tt.want)
			assert.NotContains(t, rr.Body.String(), "Total Earnings")
			assert.Empty(t, rr.Header().Get("HX-Trigger"))
		})
	}
}

func TestReportSupersededAnswersNoContent(t *testing.T) {
	started := make(chan struct{})
	fetcher := fetcherFunc(func(ctx context.Context, date string) (*report.Report, error) {
		if date == "2024-01-01" {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return sampleReport(), nil
	})
	ts := newTestServer(t, fetcher, 0)
	sid := uuid.NewString()

	var wg sync.WaitGroup
	var first *httptest.ResponseRecorder
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = ts.get("/ui/report?date=2024-01-01&sid=" + sid)
	}()
	<-started

	second := ts.get("/ui/report?date=2024-01-02&sid=" + sid)
	wg.Wait()

	require.Equal(t, http.StatusOK, second.Code)
	assert.Contains(t, second.Body.String(), "Total Earnings")
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Empty(t, first.Body.String())
	assert.InDelta(t, 1, testutil.ToFloat64(ts.metrics.ReportFetches.WithLabelValues("stale")), 0)
}

func TestReportRateLimited(t *testing.T) {
	ts := newTestServer(t, fakeFetcher{report: sampleReport()}, 1)
	sid := uuid.NewString()

	require.Equal(t, http.StatusOK, ts.get("/ui/report?date=2024-01-01&sid="+sid).Code)

	rr := ts.get("/ui/report?date=2024-01-01&sid=" + sid)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Header().Get("HX-Trigger"), EventNotification)
	assert.InDelta(t, 1, testutil.ToFloat64(ts.metrics.RateLimited), 0)
}

func TestReportChartNotFound(t *testing.T) {
	ts := newTestServer(t, fakeFetcher{report: sampleReport()}, 0)

	assert.Equal(t, http.StatusNotFound, ts.get("/ui/charts/not-a-session/earnings.svg").Code)
	assert.Equal(t, http.StatusNotFound, ts.get("/ui/charts/"+uuid.NewString()+"/earnings.svg").Code)

	sid := uuid.NewString()
	require.Equal(t, http.StatusOK, ts.get("/ui/report?date=2024-01-01&sid="+sid).Code)
	assert.Equal(t, http.StatusNotFound, ts.get("/ui/charts/"+sid+"/profit.svg").Code)
}

func TestReportChartBeforeFetchIsPlaceholder(t *testing.T) {
	ts := newTestServer(t, fakeFetcher{}, 0)

	body := ts.get("/").Body.String()
	m := regexp.MustCompile(`name="sid" value="([0-9a-f-]{36})"`).FindStringSubmatch(body)
	require.Len(t, m, 2)

	rr := ts.get("/ui/charts/" + m[1] + "/expenses.svg")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(rr.Body.String()), "<svg"))
	assert.InDelta(t, 1, testutil.ToFloat64(ts.metrics.ChartRenders.WithLabelValues("pie", "placeholder")), 0)
}

func TestExpenseCategoriesChart(t *testing.T) {
	ts := newTestServer(t, fakeFetcher{}, 0)

	rr := ts.get("/ui/charts/expense-categories.svg")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
	assert.Contains(t, rr.Body.String(), "<svg")
	assert.InDelta(t, 1, testutil.ToFloat64(ts.metrics.ChartRenders.WithLabelValues("line", "success")), 0)
}
