// Package views embeds the HTML templates rendered by the admin pages.
package views

import "embed"

//go:embed *.html layouts/*.html admin/*.html
var FS embed.FS
