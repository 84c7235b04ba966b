// Package templates holds the HTML components of the dataviz UI.
package templates

import (
	"strings"

	"github.com/a-h/templ"
)

// AppTitle is the browser title of the page.
const AppTitle = "Humatheque Tiny Dataviz app"

// PageParams describes the full page.
type PageParams struct {
	Title  string
	Accept string // file input accept list, e.g. ".csv,.json,.xlsx,.parquet"
	Main   templ.Component
}

func (p PageParams) title() string {
	if p.Title == "" {
		return AppTitle
	}
	return p.Title
}

// urlPlaceholder turns ".csv,.json" into "Enter CSV/JSON file URL...".
func urlPlaceholder(accept string) string {
	kinds := strings.ReplaceAll(strings.ReplaceAll(accept, ".", ""), ",", "/")
	return "Enter " + strings.ToUpper(kinds) + " file URL..."
}
