// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// the report query, the map page query and browser map events.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"delhidash/internal/session"
	"delhidash/internal/zones"
)

// maxEventBytes bounds a map event body.
const maxEventBytes = 4 << 10

// ReportQuery holds the parameters of a report partial request.
type ReportQuery struct {
	Date string
	SID  string
}

// ParseReportQuery extracts the report date and view session from the query.
func ParseReportQuery(query url.Values) ReportQuery {
	return ReportQuery{
		Date: sanitizeInput(query.Get("date")),
		SID:  sanitizeInput(query.Get("sid")),
	}
}

// ParseMapQuery extracts the initial filter of the map page. A missing
// status selects all zones.
func ParseMapQuery(query url.Values) (zones.FilterStatus, error) {
	return zones.ParseFilter(strings.ToLower(sanitizeInput(query.Get("status"))))
}

// DecodeMapEvent reads one JSON map event from the request body. Unknown
// fields and trailing data are rejected.
func DecodeMapEvent(w http.ResponseWriter, r *http.Request) (session.Event, error) {
	var ev session.Event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		return session.Event{}, fmt.Errorf("decode map event: %w", err)
	}
	if dec.More() {
		return session.Event{}, errors.New("decode map event: trailing data")
	}
	ev.Type = sanitizeInput(ev.Type)
	ev.Container = sanitizeInput(ev.Container)
	ev.Filter = strings.ToLower(sanitizeInput(ev.Filter))
	ev.Error = sanitizeInput(ev.Error)
	if ev.Type == "" {
		return session.Event{}, errors.New("decode map event: missing type")
	}
	return ev, nil
}
