package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// commentSizeLimit is the maximum number of characters of raw failure text
// kept in a published comment. TestRail truncates huge comments server-side;
// keeping the tail preserves the most recent part of a long failure trace.
const commentSizeLimit = 4000

// truncationMarker prefixes a comment whose failure text was cut down.
const truncationMarker = "Log truncated\n...\n"

// formatComment renders the comment field of a published result entry:
// parametrization first under its own heading, then the optional custom
// prefix, then the failure text under a "Pytest result" heading, truncated to
// the last commentSizeLimit characters and re-indented so the runner's own
// formatting is not interpreted as TestRail markup.
func formatComment(res Result, customComment string) string {
	var b strings.Builder

	if len(res.Params) > 0 {
		b.WriteString("# Test parametrize: #\n")
		b.WriteString(formatParams(res.Params))
		b.WriteString("\n\n")
	}

	if res.Comment == "" {
		b.WriteString(customComment)
		return b.String()
	}

	if customComment != "" {
		b.WriteString(customComment)
		b.WriteString("\n")
	}

	b.WriteString("# Pytest result: #\n")

	text := res.Comment
	if chars := []rune(text); len(chars) > commentSizeLimit {
		b.WriteString(truncationMarker)
		text = string(chars[len(chars)-commentSizeLimit:])
	}

	// Indent to avoid string formatting by TestRail
	b.WriteString("    ")
	b.WriteString(strings.ReplaceAll(text, "\n", "\n    "))

	return b.String()
}

// formatParams renders parametrization data deterministically, sorted by key.
func formatParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, ", ")
}

// formatElapsed renders a duration in seconds for the TestRail elapsed field.
// TestRail has no sub-second resolution, so anything below one second reports
// as "1s" and everything else rounds to the nearest whole second. A zero
// duration returns "" and the field is omitted.
func formatElapsed(seconds float64) string {
	if seconds == 0 {
		return ""
	}
	if seconds < 1 {
		return "1s"
	}
	return fmt.Sprintf("%ds", int(math.Round(seconds)))
}
