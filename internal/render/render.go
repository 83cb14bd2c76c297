// Package render converts Result values into human-readable or machine-parseable
// output. Each format is a separate function; the top-level Render dispatcher
// selects based on the format string.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/catalog"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/util"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatMD    = "md"
)

// headingLabels maps heading keys to their English titles.
var headingLabels = map[string]string{
	catalog.HeadingSearchResults: "Search results",
	catalog.HeadingPopular:       "Popular courses",
	catalog.HeadingUpcoming:      "Upcoming courses",
	catalog.HeadingEnded:         "Ended courses",
	catalog.HeadingAll:           "All courses",
}

// HeadingLabel returns the display title for a heading key. Category names
// are already display text and pass through unchanged.
func HeadingLabel(key string) string {
	if label, ok := headingLabels[key]; ok {
		return label
	}
	return key
}

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	case FormatCSV:
		return renderDelimited(w, result, ',')
	case FormatTSV:
		return renderDelimited(w, result, '\t')
	case FormatMD:
		return renderMarkdown(w, result)
	default:
		return renderTable(w, result)
	}
}

// RenderTo writes to stdout by default; if path is non-empty, writes to file.
func RenderTo(path string, result *model.Result, format string) error {
	if path == "" {
		return Render(os.Stdout, result, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	return Render(f, result, format)
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

// renderJSONL writes one record per line: a course, a facet, or a table row.
func renderJSONL(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	switch data := result.Data.(type) {
	case []model.Course:
		for _, c := range data {
			if err := enc.Encode(c); err != nil {
				return err
			}
		}
		return nil
	case []model.CategoryFacet:
		for _, f := range data {
			if err := enc.Encode(f); err != nil {
				return err
			}
		}
		return nil
	case model.Table:
		for _, row := range data.Rows {
			rec := make(map[string]string, len(data.Headers))
			for i, h := range data.Headers {
				if i < len(row) {
					rec[strings.ToLower(h)] = row[i]
				}
			}
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.Encode(result.Data)
	}
}

// ─── Table ────────────────────────────────────────────────────────────────────

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	return tw
}

func renderTable(w io.Writer, result *model.Result) error {
	switch data := result.Data.(type) {
	case []model.Course:
		if result.Heading != "" {
			fmt.Fprintf(w, "%s (%d)\n\n", HeadingLabel(result.Heading), len(data))
		}
		if len(data) == 0 {
			fmt.Fprintln(w, "No courses to show.")
			return nil
		}
		return renderCourseTable(w, data)
	case []model.CategoryFacet:
		tw := newTable(w, []string{"ID", "CATEGORY", "COURSES"})
		tw.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
		for _, f := range data {
			tw.Append([]string{strconv.Itoa(f.ID), f.Name, strconv.Itoa(f.Count)})
		}
		tw.Render()
		return nil
	case model.UserProfile:
		tw := newTable(w, []string{"FIELD", "VALUE"})
		tw.AppendBulk(profileRows(data))
		tw.Render()
		return nil
	case model.Table:
		tw := newTable(w, data.Headers)
		tw.AppendBulk(data.Rows)
		tw.Render()
		return nil
	default:
		return renderJSON(w, result)
	}
}

func renderCourseTable(w io.Writer, courses []model.Course) error {
	tw := newTable(w, []string{"ID", "COURSE", "CATEGORY", "RATING", "INSTRUCTOR", "DAYS", "START", "END", "COVER"})
	tw.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
	})
	for _, c := range courses {
		tw.Append([]string{
			strconv.Itoa(c.ID),
			util.Truncate(c.FullName, 40),
			util.Truncate(c.CategoryName, 24),
			util.Stars(catalog.Rating(c)),
			util.Truncate(catalog.Instructor(c), 24),
			durationCell(c),
			util.FormatUnixDate(c.StartDate),
			util.FormatUnixDate(c.EndDate),
			coverCell(c, 40),
		})
	}
	tw.Render()
	return nil
}

func profileRows(p model.UserProfile) [][]string {
	return [][]string{
		{"User ID", strconv.Itoa(p.UserID)},
		{"Name", p.FullName},
		{"Avatar", p.ProfileImageURL},
	}
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

var courseColumns = []string{
	"id", "fullname", "category_id", "category_name", "rating", "instructor",
	"duration_days", "start_date", "end_date", "image_url", "color_index", "color",
	"summary",
}

func courseRecord(c model.Course) []string {
	idx := ""
	if c.ColorIndex != nil {
		idx = strconv.Itoa(*c.ColorIndex)
	}
	cat := ""
	if c.CategoryID != 0 {
		cat = strconv.Itoa(c.CategoryID)
	}
	return []string{
		strconv.Itoa(c.ID), c.FullName, cat, c.CategoryName,
		strconv.Itoa(catalog.Rating(c)), catalog.Instructor(c), durationCell(c),
		util.FormatUnixDate(c.StartDate), util.FormatUnixDate(c.EndDate),
		c.ImageURL, idx, c.Color,
		util.PlainText(c.Summary),
	}
}

func renderDelimited(w io.Writer, result *model.Result, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	switch data := result.Data.(type) {
	case []model.Course:
		_ = cw.Write(courseColumns)
		for _, c := range data {
			_ = cw.Write(courseRecord(c))
		}
	case []model.CategoryFacet:
		_ = cw.Write([]string{"id", "name", "count"})
		for _, f := range data {
			_ = cw.Write([]string{strconv.Itoa(f.ID), f.Name, strconv.Itoa(f.Count)})
		}
	case model.UserProfile:
		_ = cw.Write([]string{"field", "value"})
		for _, row := range profileRows(data) {
			_ = cw.Write(row)
		}
	case model.Table:
		_ = cw.Write(data.Headers)
		for _, row := range data.Rows {
			_ = cw.Write(row)
		}
	default:
		b, _ := json.Marshal(result.Data)
		_ = cw.Write([]string{string(b)})
	}

	cw.Flush()
	return cw.Error()
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	switch data := result.Data.(type) {
	case []model.Course:
		if result.Heading != "" {
			fmt.Fprintf(w, "### %s\n\n", mdEscape(HeadingLabel(result.Heading)))
		}
		fmt.Fprintf(w, "| ID | COURSE | CATEGORY | RATING | INSTRUCTOR | DAYS | START | END |\n|----|----|----|----|----|----|----|----|\n")
		for _, c := range data {
			fmt.Fprintf(w, "| %d | %s | %s | %d | %s | %s | %s | %s |\n",
				c.ID, mdEscape(c.FullName), mdEscape(c.CategoryName), catalog.Rating(c),
				mdEscape(catalog.Instructor(c)), durationCell(c),
				util.FormatUnixDate(c.StartDate), util.FormatUnixDate(c.EndDate))
		}
		return nil
	case []model.CategoryFacet:
		fmt.Fprintf(w, "| ID | CATEGORY | COURSES |\n|----|----|----|\n")
		for _, f := range data {
			fmt.Fprintf(w, "| %d | %s | %d |\n", f.ID, mdEscape(f.Name), f.Count)
		}
		return nil
	case model.Table:
		fmt.Fprintf(w, "| %s |\n", strings.Join(data.Headers, " | "))
		fmt.Fprintf(w, "|%s\n", strings.Repeat("----|", len(data.Headers)))
		for _, row := range data.Rows {
			cells := make([]string, len(row))
			for i, c := range row {
				cells[i] = mdEscape(c)
			}
			fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
		}
		return nil
	default:
		return renderJSON(w, result)
	}
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings, and stats when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		fmt.Fprintf(w, "\n[%s • %d items • %dms • generation %d]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
			result.Stats.Generation,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func durationCell(c model.Course) string {
	days, ok := catalog.DurationDays(c)
	if !ok {
		return ""
	}
	return strconv.Itoa(days)
}

// coverCell shows the course image, or its fallback color and slot.
func coverCell(c model.Course, width int) string {
	if c.ImageURL != "" {
		return util.Truncate(c.ImageURL, width)
	}
	if c.ColorIndex != nil {
		return fmt.Sprintf("%s (slot %d)", c.Color, *c.ColorIndex)
	}
	return ""
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
