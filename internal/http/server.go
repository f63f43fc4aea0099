package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"delhidash/internal/charts"
	applog "delhidash/internal/log"
	"delhidash/internal/middleware/ratelimit"
	"delhidash/internal/middleware/security"
	"delhidash/internal/middleware/trace"
	"delhidash/internal/observability"
	"delhidash/internal/report"
	"delhidash/internal/session"
	appweb "delhidash/web"
)

// Deps are the collaborators a Server needs. Nil optional fields select
// defaults.
type Deps struct {
	Store   *session.Store
	Reports report.Fetcher
	Metrics *observability.Metrics
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Logger   *applog.Logger

	RateLimitPerMinute int
	Clock              clockwork.Clock
}

type Server struct {
	http.Server
	templates *template.Template
	store     *session.Store
	reports   report.Fetcher
	metrics   *observability.Metrics
	logger    *applog.Logger

	// Category-wise daily expenses behind the line chart.
	expenseSeries []charts.Series

	detector *security.Detector
	headers  *security.HeadersMiddleware
	tracer   *trace.Middleware
	limiter  *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig())
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetricsForTesting()
	}
	if deps.Store == nil {
		deps.Store = session.NewStore(session.Options{Metrics: deps.Metrics, Logger: deps.Logger.Logger})
	}
	logger := deps.Logger.WithComponent(applog.ComponentHTTP)

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:    deps.Store,
		reports:  deps.Reports,
		metrics:  deps.Metrics,
		logger:   logger,
		detector: security.NewDetector(),
		headers:  security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
			Clock:             deps.Clock,
		}),
	}
	s.tracer = trace.NewMiddleware(logger, deps.Metrics, s.detector.ClientIP)
	s.limiter.Start()

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if rows, err := charts.LoadDailyExpenses(); err != nil {
		logger.Warn("Failed loading daily expenses dataset", "error", err)
	} else {
		s.expenseSeries = charts.CategorySeries(rows)
	}

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	// Dashboard
	dashboard := func(h http.HandlerFunc) http.HandlerFunc { return s.route(applog.ComponentReport, h) }
	mux.HandleFunc("GET /{$}", dashboard(s.handleIndex))
	mux.HandleFunc("GET /ui/report", dashboard(s.withRateLimit(s.handleReport)))
	mux.HandleFunc("GET /ui/charts/expense-categories.svg", s.route(applog.ComponentCharts, s.handleExpenseCategoriesChart))
	mux.HandleFunc("GET /ui/charts/{sid}/{kind}", s.route(applog.ComponentCharts, s.handleReportChart))

	// Zone map
	zoneMap := func(h http.HandlerFunc) http.HandlerFunc { return s.route(applog.ComponentMap, h) }
	mux.HandleFunc("GET /map", zoneMap(s.withRateLimit(s.handleMap)))
	mux.HandleFunc("POST /map/{sid}/events", zoneMap(s.withRateLimit(s.handleMapEvent)))
	mux.HandleFunc("GET /ui/map/{sid}/zones", zoneMap(s.handleMapZones))
	mux.HandleFunc("GET /ui/map/{sid}/details", zoneMap(s.handleMapDetails))
	mux.HandleFunc("GET /ui/map/{sid}/status", zoneMap(s.handleMapStatus))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds request tracing, security headers and probe
// screening to a page route.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	screened := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason := s.detector.Suspicious(r); reason != "" {
			s.metrics.SuspiciousRequests.Inc()
			trace.Logger(r.Context()).Warn("Suspicious request",
				applog.FieldComponent, applog.ComponentSecurity,
				"reason", reason,
				applog.FieldClientIP, s.detector.ClientIP(r))
		}
		next(w, r)
	})
	return s.tracer.Middleware(s.headers.Middleware(screened)).ServeHTTP
}

// route wraps a page handler with the security stack and tags its request
// logger with component.
func (s *Server) route(component string, next http.HandlerFunc) http.HandlerFunc {
	return s.withSecurityHeaders(applog.ComponentMiddleware(component)(next).ServeHTTP)
}

// withRateLimit applies the per-client limit to routes that cost upstream
// requests or mutate view state.
func (s *Server) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return s.limiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.metrics.RateLimited.Inc()
		trace.Logger(r.Context()).Warn("Rate limit exceeded",
			applog.FieldComponent, applog.ComponentRateLimit,
			applog.FieldClientIP, s.detector.ClientIP(r),
			applog.FieldPath, r.URL.Path)
		TooManyRequestsError("Too many requests. Please try again in a minute.").Write(w)
	})(next).ServeHTTP
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once templates are loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// render executes a named template, answering 500 when templates are
// missing or execution fails before anything was written.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		trace.Logger(r.Context()).Error("Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		trace.Logger(r.Context()).Error("Template execution failed",
			applog.FieldComponent, applog.ComponentTemplate,
			"template", name,
			applog.FieldError, err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}
