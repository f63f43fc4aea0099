// Package web bundles the dashboard's page templates and browser assets
// into the binary.
package web

import "embed"

// TemplatesFS holds the dashboard and map pages with their htmx partials.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the map command replayer.
//
//go:embed static/*
var StaticFS embed.FS
