// Package web holds the dashboard page served at /.
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}
