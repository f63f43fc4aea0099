// Package report fetches date-scoped financial reports from the upstream
// report API and tracks the per-view request state.
package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO date format the upstream API expects.
const DateLayout = "2006-01-02"

// Messages shown to the user for each failure class.
const (
	MsgNotFound    = "No report found"
	MsgNetwork     = "Something went wrong while fetching report."
	MsgInvalidDate = "Please choose a valid date."
)

var (
	ErrInvalidDate = errors.New("invalid report date")
	ErrNetwork     = errors.New("report request failed")
)

// APIError is a non-2xx or malformed response from the report API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("report API status %d: %s", e.Status, e.Message)
}

// Earning is one earnings line of a report.
type Earning struct {
	ID       string          `json:"_id"`
	Platform string          `json:"platform"`
	Amount   decimal.Decimal `json:"amount"`
}

// Expense is one expense line of a report.
type Expense struct {
	ID     string          `json:"_id"`
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// Report is the daily financial summary returned by the API.
type Report struct {
	TotalEarnings decimal.Decimal `json:"totalEarnings"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	Balance       decimal.Decimal `json:"balance"`
	Earnings      []Earning       `json:"earnings"`
	Expenses      []Expense       `json:"expenses"`
}

// Phase is the request state of a report view.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseError   Phase = "error"
	PhaseSuccess Phase = "success"
)

// State is what the report view renders.
type State struct {
	Phase   Phase
	Date    string
	Message string
	Report  *Report
}

// ParseDate validates an ISO date such as 2024-01-01.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", s, ErrInvalidDate)
	}
	return d, nil
}

// UserMessage maps a fetch error to the text shown in the view.
func UserMessage(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, ErrInvalidDate):
		return MsgInvalidDate
	default:
		return MsgNetwork
	}
}
