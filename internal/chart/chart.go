// Package chart renders horizontal ASCII bar charts for labelled counts, such
// as the courses per category or the spread of ratings in a catalog.
package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Item is one labelled bar.
type Item struct {
	Label string
	Value int
}

// Options controls bar chart rendering.
type Options struct {
	// Width is the total character width available for the chart.
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// MaxLabel caps the label column; longer labels are truncated with "…".
	// If 0, labels are capped at a third of the width.
	MaxLabel int
}

// Bars renders one bar per item, scaled against the largest value.
//
// Output example:
//
//	Courses by category
//	Mathematics  12  ████████████████████
//	Languages     5  ████████
//	Art           1  █
func Bars(w io.Writer, title string, items []Item, opts Options) error {
	if len(items) == 0 {
		return fmt.Errorf("chart: nothing to render")
	}

	totalWidth := opts.Width
	if totalWidth <= 0 {
		totalWidth = termWidth()
	}
	maxLabel := opts.MaxLabel
	if maxLabel <= 0 {
		maxLabel = totalWidth / 3
	}

	labels := make([]string, len(items))
	labelWidth, valWidth, maxVal := 0, 0, 0
	for i, it := range items {
		if it.Value < 0 {
			return fmt.Errorf("chart: negative value %d for %q", it.Value, it.Label)
		}
		labels[i] = runewidth.Truncate(it.Label, maxLabel, "…")
		if lw := runewidth.StringWidth(labels[i]); lw > labelWidth {
			labelWidth = lw
		}
		if vw := len(strconv.Itoa(it.Value)); vw > valWidth {
			valWidth = vw
		}
		if it.Value > maxVal {
			maxVal = it.Value
		}
	}

	// label, value and two 2-space separators
	barArea := totalWidth - labelWidth - valWidth - 4
	if barArea < 4 {
		barArea = 4
	}

	if title != "" {
		fmt.Fprintln(w, title)
	}
	for i, it := range items {
		fmt.Fprintf(w, "%s  %*d  %s\n",
			runewidth.FillRight(labels[i], labelWidth),
			valWidth, it.Value,
			bar(it.Value, maxVal, barArea),
		)
	}
	return nil
}

// bar scales v into at most width blocks. Non-zero values always get at
// least one block; zero gets none.
func bar(v, maxVal, width int) string {
	if v == 0 || maxVal == 0 {
		return ""
	}
	n := int(math.Round(float64(v) / float64(maxVal) * float64(width)))
	if n < 1 {
		n = 1
	}
	if n > width {
		n = width
	}
	return strings.Repeat("█", n)
}

// termWidth returns the terminal width from $COLUMNS, defaulting to 80.
func termWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 20 {
			return n
		}
	}
	return 80
}
