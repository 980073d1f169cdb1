package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict is a cached bluemonday policy that removes all HTML tags and
// attributes. Safe for concurrent use as the policy is read-only after build.
var strict = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true) // Prevents word concatenation
	return p
}()

// Sanitize strips all HTML from arbitrary user input while preserving
// readability. Markdown is passed through untouched.
func Sanitize(s string) string {
	return strict.Sanitize(s)
}

// Clean sanitizes HTML and normalizes whitespace for storage.
// All note titles and content must pass through Clean before hitting the DB;
// repositories assume already-sanitized input.
//
// Steps: strip tags (with spacing), trim, unescape HTML entities, normalize
// non-breaking spaces, collapse runs of spaces while preserving newlines.
func Clean(s string) string {
	sanitized := strict.Sanitize(s)
	sanitized = strings.TrimSpace(sanitized)

	// Unescape HTML entities first to handle &#13; etc. as single chars
	sanitized = html.UnescapeString(sanitized)

	sanitized = strings.ReplaceAll(sanitized, " ", " ")

	lines := strings.Split(sanitized, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}
