package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	applog "delhidash/internal/log"
	"delhidash/internal/observability"
)

// maxBody caps how much of an upstream response is read.
const maxBody = 1 << 20

// Fetcher loads the report for an ISO date.
type Fetcher interface {
	Fetch(ctx context.Context, date string) (*Report, error)
}

// Client implements Fetcher against the report HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a report API client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		metrics: metrics,
	}
}

// Fetch requests GET {base}/report?date=YYYY-MM-DD. The date is validated
// before any network call.
func (c *Client) Fetch(ctx context.Context, date string) (*Report, error) {
	if _, err := ParseDate(date); err != nil {
		c.metrics.ReportFetches.WithLabelValues("invalid").Inc()
		c.logger.Debug("Report date rejected",
			applog.FieldErrorType, applog.ErrorTypeValidation,
			applog.FieldReportDate, date)
		return nil, err
	}

	start := time.Now()
	r, err := c.doRequest(ctx, c.baseURL+"/report?"+url.Values{"date": {date}}.Encode())
	c.metrics.ReportFetchDuration.Observe(time.Since(start).Seconds())

	var apiErr *APIError
	switch {
	case err == nil:
		c.metrics.ReportFetches.WithLabelValues("success").Inc()
	case errors.As(err, &apiErr):
		c.metrics.ReportFetches.WithLabelValues("api_error").Inc()
		c.logger.Debug("Report API returned an error",
			applog.FieldErrorType, applog.ErrorTypeUpstream,
			applog.FieldStatusCode, apiErr.Status,
			applog.FieldReportDate, date)
	case ctx.Err() != nil:
		c.metrics.ReportFetches.WithLabelValues("cancelled").Inc()
	default:
		c.metrics.ReportFetches.WithLabelValues("network_error").Inc()
		c.logger.Warn("Report API unreachable",
			applog.FieldErrorType, applog.ErrorTypeNetwork,
			applog.FieldError, err,
			applog.FieldReportDate, date)
	}
	return r, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (*Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("report request: %w", ctxErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}

	var payload response
	decodeErr := json.Unmarshal(body, &payload)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: messageOr(payload.Message, MsgNotFound)}
	}
	if decodeErr != nil || payload.Report == nil {
		return nil, &APIError{Status: resp.StatusCode, Message: messageOr(payload.Message, MsgNotFound)}
	}
	return payload.Report, nil
}

func messageOr(msg, fallback string) string {
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}

// Report API response envelope.

type response struct {
	Report  *Report `json:"report"`
	Message string  `json:"message"`
}
