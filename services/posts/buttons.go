package posts

import (
	"context"
	"strings"
)

// ShortenFunc maps a URL to a (possibly) shortened URL. It must never
// fail: implementations fall back to the input on any error.
type ShortenFunc func(ctx context.Context, url string) string

// ParseButtonLines parses newline-delimited "Label | URL" pairs.
// Lines without a separator are skipped. URLs run through shorten
// when it is non-nil.
func ParseButtonLines(ctx context.Context, text string, shorten ShortenFunc) []Button {
	var out []Button
	for _, line := range strings.Split(text, "\n") {
		label, url, ok := strings.Cut(line, "|")
		if !ok {
			continue
		}
		label = strings.TrimSpace(label)
		url = strings.TrimSpace(url)
		if shorten != nil {
			url = shorten(ctx, url)
		}
		out = append(out, Button{Label: label, URL: url})
	}
	return out
}
