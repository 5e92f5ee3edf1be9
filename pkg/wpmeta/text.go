package wpmeta

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// PlainText strips markup from titles and display names stored by the host
// platform and returns unescaped text suitable for JSON and template output.
func PlainText(value string) string {
	cleaned := strictPolicy.Sanitize(value)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
