package richtext

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugc   = bluemonday.UGCPolicy()
	strip = func() *bluemonday.Policy {
		p := bluemonday.StrictPolicy()
		p.AddSpaceWhenStrippingTag(true)
		return p
	}()
)

// Sanitize drops scripts, event handlers and anything else a visitor's
// browser should not run, keeping ordinary formatting.
func Sanitize(s string) string {
	return ugc.Sanitize(s)
}

// PlainText strips all markup and returns at most n runes of the text, with
// "..." appended when it was cut. n <= 0 means no limit.
func PlainText(s string, n int) string {
	text := html.UnescapeString(strip.Sanitize(s))
	text = strings.Join(strings.Fields(text), " ")
	if n <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return strings.TrimRight(string(runes[:n-3]), " ") + "..."
}
