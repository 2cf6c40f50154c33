// Package templates embeds the HTML pages of the application.
package templates

import (
	"embed"
	"html/template"

	"restaurant-menu/validation"
)

//go:embed *.html
var FS embed.FS

// Funcs are the helpers available to every page.
var Funcs = template.FuncMap{
	"fieldErrors": func(errs *validation.Errors, field string) []string {
		return errs.Get(field)
	},
}

// Load parses every embedded page.
func Load() (*template.Template, error) {
	return template.New("").Funcs(Funcs).ParseFS(FS, "*.html")
}
