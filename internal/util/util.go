// Package util provides shared display helpers for dates and text.
package util

import (
	"html"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// ─── Dates ────────────────────────────────────────────────────────────────────

const dateLayout = "2006-01-02"

// FormatUnixDate formats Unix seconds as YYYY-MM-DD in UTC.
// Zero means "no date" and renders as "".
func FormatUnixDate(sec int64) string {
	if sec == 0 {
		return ""
	}
	return time.Unix(sec, 0).UTC().Format(dateLayout)
}

// ─── Text ─────────────────────────────────────────────────────────────────────

// PlainText strips markup from a course summary and collapses whitespace.
func PlainText(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			b.WriteByte(' ')
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(html.UnescapeString(b.String())), " ")
}

// Truncate shortens s to at most n terminal columns, marking the cut with
// "…". Wide runes (CJK, emoji) count as two columns. n <= 0 disables it.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	return runewidth.Truncate(s, n, "…")
}

// Stars renders a 1–5 rating as filled and empty stars.
func Stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}
