package catalog

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
)

// FilterEngine computes the visible subset of a course set.
// Now supplies the reference time for the upcoming and ended views; nil
// means time.Now. Apply depends on nothing else.
type FilterEngine struct {
	Now func() time.Time
}

// Apply returns the courses visible under state. The input is never modified.
//
// A non-empty search term is exclusive: it matches against name, summary and
// instructor and ignores the status and category selections entirely.
// Without one, the status view is applied first and the category filter second.
func (e FilterEngine) Apply(all []model.Course, state model.FilterState) []model.Course {
	if term := normalizeTerm(state.SearchTerm); term != "" {
		return search(all, term)
	}

	out := make([]model.Course, len(all))
	copy(out, all)

	now := e.now().Unix()
	switch state.Status {
	case model.StatusPopular:
		sort.SliceStable(out, func(i, j int) bool { return Rating(out[i]) > Rating(out[j]) })
	case model.StatusUpcoming:
		out = keep(out, func(c model.Course) bool { return c.StartDate != 0 && c.StartDate > now })
	case model.StatusEnded:
		out = keep(out, func(c model.Course) bool { return c.EndDate != 0 && c.EndDate < now })
	}

	if state.Category.Only {
		id := state.Category.ID
		out = keep(out, func(c model.Course) bool { return c.CategoryID == id })
	}
	return out
}

func (e FilterEngine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func search(all []model.Course, term string) []model.Course {
	lower := cases.Lower(language.Und)
	out := make([]model.Course, 0, len(all))
	for _, c := range all {
		if strings.Contains(lower.String(c.FullName), term) ||
			strings.Contains(lower.String(c.Summary), term) ||
			strings.Contains(lower.String(Instructor(c)), term) {
			out = append(out, c)
		}
	}
	return out
}

// normalizeTerm trims and lower-cases a search term the same way course
// fields are lower-cased before matching.
func normalizeTerm(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Lower(language.Und).String(s)
}

// keep filters in place; s must be a slice Apply owns.
func keep(s []model.Course, fn func(model.Course) bool) []model.Course {
	out := s[:0]
	for _, c := range s {
		if fn(c) {
			out = append(out, c)
		}
	}
	return out
}
