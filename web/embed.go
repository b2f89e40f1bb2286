// Package web holds the dashboard templates and static assets, embedded into
// the server binary.
package web

import "embed"

// TemplatesFS holds the page shell and the dashboard partial.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the range sync script.
//
//go:embed static/*
var StaticFS embed.FS
