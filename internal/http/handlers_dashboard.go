package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"delhidash/internal/charts"
	applog "delhidash/internal/log"
	"delhidash/internal/middleware/trace"
	"delhidash/internal/report"
)

// reportPanel is the report partial's view model.
type reportPanel struct {
	SID      string
	Date     string
	Phase    report.Phase
	Message  string
	Cards    []summaryCard
	Earnings breakdownPanel
	Expenses breakdownPanel
}

// breakdownPanel is one pie chart with its table.
type breakdownPanel struct {
	ChartTitle string
	TableTitle string
	Column     string
	ChartURL   string
	Rows       []breakdownRow
}

func newReportPanel(sid string, st report.State) reportPanel {
	p := reportPanel{SID: sid, Date: st.Date, Phase: st.Phase, Message: st.Message}
	if st.Phase != report.PhaseSuccess || st.Report == nil {
		return p
	}
	p.Cards = summaryCards(st.Report)
	p.Earnings = breakdownPanel{
		ChartTitle: "Earnings Distribution",
		TableTitle: "Earnings Breakdown",
		Column:     "Platform",
		ChartURL:   reportChartURL(sid, "earnings", st.Date),
		Rows:       breakdownRows(charts.EarningsSlices(st.Report)),
	}
	p.Expenses = breakdownPanel{
		ChartTitle: "Expenses Distribution",
		TableTitle: "Expenses Breakdown",
		Column:     "Category",
		ChartURL:   reportChartURL(sid, "expenses", st.Date),
		Rows:       breakdownRows(charts.ExpenseSlices(st.Report)),
	}
	return p
}

// reportChartURL carries the date so a new report never reuses a cached image.
func reportChartURL(sid, kind, date string) string {
	return "/ui/charts/" + sid + "/" + kind + ".svg?date=" + date
}

// handleIndex renders the dashboard page with a fresh report view.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	rv := s.store.ReportView("")
	data := struct {
		Page   string
		Report reportPanel
	}{
		Page:   "dashboard",
		Report: newReportPanel(rv.ID, rv.Tracker.State()),
	}
	s.render(w, r, "dashboard.html", data)
}

// handleReport fetches the report for the submitted date and renders the
// report partial. A response superseded by a newer submission for the same
// view answers 204 so htmx leaves the fresher content in place.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := ParseReportQuery(r.URL.Query())
	rv := s.store.ReportView(q.SID)

	if s.reports == nil {
		InternalServerError("Report service is not configured.").Write(w)
		return
	}

	start := time.Now()
	st, applied := rv.Tracker.Run(ctx, s.reports, q.Date)
	if !applied {
		s.metrics.ReportFetches.WithLabelValues("stale").Inc()
		trace.Logger(ctx).Debug("Superseded report response dropped",
			applog.FieldSessionID, rv.ID,
			applog.FieldReportDate, q.Date)
		NoContent().Write(w)
		return
	}

	var fetchErr error
	if st.Phase == report.PhaseError {
		fetchErr = errors.New(st.Message)
	}
	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogReportFetched(ctx, rv.ID, q.Date, time.Since(start).Milliseconds(), fetchErr)

	resp := NewHTMXResponse()
	if st.Phase == report.PhaseSuccess {
		resp.TriggerReportLoaded(st.Date)
	}
	s.renderPartial(w, r, "report", newReportPanel(rv.ID, st), resp)
}

// handleReportChart serves the earnings or expenses pie of a report view.
func (s *Server) handleReportChart(w http.ResponseWriter, r *http.Request) {
	rv, err := s.store.FindReportView(r.PathValue("sid"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	st := rv.Tracker.State()
	var slices []charts.Slice
	switch r.PathValue("kind") {
	case "earnings.svg":
		slices = charts.EarningsSlices(st.Report)
	case "expenses.svg":
		slices = charts.ExpenseSlices(st.Report)
	default:
		http.NotFound(w, r)
		return
	}

	outcome := "success"
	if !charts.Plottable(slices) {
		outcome = "placeholder"
	}
	s.writeSVG(w, r, "pie", outcome, "no-store", func(out io.Writer) error {
		return charts.RenderPie(out, slices)
	})
}

// handleExpenseCategoriesChart serves the category-wise expenses line chart.
func (s *Server) handleExpenseCategoriesChart(w http.ResponseWriter, r *http.Request) {
	outcome := "success"
	if len(s.expenseSeries) == 0 {
		outcome = "placeholder"
	}
	s.writeSVG(w, r, "line", outcome, "public, max-age=3600", func(out io.Writer) error {
		return charts.RenderLine(out, s.expenseSeries)
	})
}

func (s *Server) writeSVG(w http.ResponseWriter, r *http.Request, kind, outcome, cacheControl string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		s.metrics.ChartRenders.WithLabelValues(kind, "error").Inc()
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(),
			"Chart render failed", err, applog.ComponentCharts, applog.OpRender,
			applog.NewFields().WithErrorType(applog.ErrorTypeInternal))
		http.Error(w, "chart unavailable", http.StatusInternalServerError)
		return
	}
	s.metrics.ChartRenders.WithLabelValues(kind, outcome).Inc()
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", cacheControl)
	_, _ = w.Write(buf.Bytes())
}

// renderPartial executes a template into memory and sends it through resp,
// so a failing template never leaves half a fragment in the page.
func (s *Server) renderPartial(w http.ResponseWriter, r *http.Request, name string, data any, resp *HTMXResponseBuilder) {
	if s.templates == nil {
		InternalServerError("templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		trace.Logger(r.Context()).Error("Partial template execution failed",
			applog.FieldComponent, applog.ComponentTemplate,
			"template", name,
			applog.FieldError, err)
		InternalServerError("Something went wrong rendering this panel.").Write(w)
		return
	}
	resp.BodyHTML(buf.String()).Write(w)
}
