// Package analyze computes descriptive summaries over a loaded course
// catalog. All functions are pure; no I/O.
package analyze

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/catalog"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
)

// ─── Summary ──────────────────────────────────────────────────────────────────

// Summary holds catalog-wide counts and course length statistics.
type Summary struct {
	Courses    int `json:"courses"`
	Categories int `json:"categories"`

	// Schedule buckets partition Courses.
	Upcoming int `json:"upcoming"`
	Running  int `json:"running"`
	Ended    int `json:"ended"`
	Undated  int `json:"undated"`

	WithImage int `json:"with_image"`
	ColorOnly int `json:"color_only"`

	// Ratings[i] counts courses shown with i+1 stars.
	Ratings    [5]int  `json:"ratings"`
	MeanRating float64 `json:"mean_rating"`

	Duration Durations `json:"duration_days"`
}

// Durations describes course length in days over courses with both dates.
// Every statistic is zero when Count is zero.
type Durations struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
}

// Summarize computes a Summary over courses as of now.
//
// A course is ended when its end date has passed, otherwise upcoming when its
// start date is in the future. Courses with neither date are undated; the rest
// are running. Ended wins for the rare course whose dates are reversed.
func Summarize(courses []model.Course, now time.Time) Summary {
	s := Summary{Courses: len(courses)}
	if len(courses) == 0 {
		return s
	}

	ts := now.Unix()
	cats := make(map[int]struct{})
	var days []float64
	ratingSum := 0

	for _, c := range courses {
		if c.CategoryID != 0 {
			cats[c.CategoryID] = struct{}{}
		}

		switch {
		case c.EndDate != 0 && c.EndDate < ts:
			s.Ended++
		case c.StartDate != 0 && c.StartDate > ts:
			s.Upcoming++
		case c.StartDate == 0 && c.EndDate == 0:
			s.Undated++
		default:
			s.Running++
		}

		if c.ImageURL != "" {
			s.WithImage++
		} else {
			s.ColorOnly++
		}

		r := catalog.Rating(c)
		s.Ratings[r-1]++
		ratingSum += r

		if d, ok := catalog.DurationDays(c); ok {
			days = append(days, float64(d))
		}
	}

	s.Categories = len(cats)
	s.MeanRating = float64(ratingSum) / float64(len(courses))
	s.Duration = durations(days)
	return s
}

func durations(vals []float64) Durations {
	d := Durations{Count: len(vals)}
	if len(vals) == 0 {
		return d
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	d.Min = sorted[0]
	d.Max = sorted[len(sorted)-1]
	d.P25 = percentile(sorted, 25)
	d.Median = percentile(sorted, 50)
	d.P75 = percentile(sorted, 75)
	d.Mean = sumF(vals) / float64(len(vals))
	d.Std = stddevF(vals, d.Mean)
	return d
}

// Table lays the summary out as METRIC/VALUE rows.
func (s Summary) Table() model.Table {
	t := model.Table{Headers: []string{"METRIC", "VALUE"}}
	add := func(k, v string) { t.Rows = append(t.Rows, []string{k, v}) }

	add("courses", strconv.Itoa(s.Courses))
	add("categories", strconv.Itoa(s.Categories))
	add("upcoming", strconv.Itoa(s.Upcoming))
	add("running", strconv.Itoa(s.Running))
	add("ended", strconv.Itoa(s.Ended))
	add("undated", strconv.Itoa(s.Undated))
	add("with image", strconv.Itoa(s.WithImage))
	add("color only", strconv.Itoa(s.ColorOnly))
	if s.Courses > 0 {
		add("mean rating", formatFloat(s.MeanRating))
	}
	for i := len(s.Ratings) - 1; i >= 0; i-- {
		add(fmt.Sprintf("%d-star", i+1), strconv.Itoa(s.Ratings[i]))
	}
	add("dated courses", strconv.Itoa(s.Duration.Count))
	if s.Duration.Count > 0 {
		add("days min", formatFloat(s.Duration.Min))
		add("days median", formatFloat(s.Duration.Median))
		add("days mean", formatFloat(s.Duration.Mean))
		add("days max", formatFloat(s.Duration.Max))
	}
	return t
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

func sumF(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

// stddevF is the sample standard deviation; 0 for fewer than two values.
func stddevF(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var sq float64
	for _, v := range vals {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)-1))
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := p / 100 * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// formatFloat rounds to two decimals and drops trailing zeros.
func formatFloat(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
