package catalog

import (
	"strconv"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
)

// Heading keys, looked up by the presentation layer.
const (
	HeadingSearchResults = "core.home.search_results"
	HeadingPopular       = "core.home.popular_courses"
	HeadingUpcoming      = "core.home.upcoming_courses"
	HeadingEnded         = "core.home.ended_courses"
	HeadingAll           = "core.home.all_courses"
)

// Rating is the 1–5 star score shown for a course, derived from its id.
// The popular view sorts on it.
func Rating(c model.Course) int {
	return ((c.ID%5)+5)%5 + 1
}

// Instructor returns the first contact's name, or "" when there is none.
func Instructor(c model.Course) string {
	if len(c.Contacts) == 0 {
		return ""
	}
	return c.Contacts[0].FullName
}

// DurationDays returns the course length in whole days, rounded up.
// ok is false when either date is missing.
func DurationDays(c model.Course) (days int, ok bool) {
	if c.StartDate == 0 || c.EndDate == 0 {
		return 0, false
	}
	diff := c.EndDate - c.StartDate
	if diff < 0 {
		diff = -diff
	}
	const day = 24 * 60 * 60
	return int((diff + day - 1) / day), true
}

// Heading returns the title key for the current view. A selected category
// that is among facets is titled by its name.
func Heading(state model.FilterState, facets []model.CategoryFacet) string {
	if normalizeTerm(state.SearchTerm) != "" {
		return HeadingSearchResults
	}
	switch state.Status {
	case model.StatusPopular:
		return HeadingPopular
	case model.StatusUpcoming:
		return HeadingUpcoming
	case model.StatusEnded:
		return HeadingEnded
	}
	if state.Category.Only {
		for _, f := range facets {
			if f.ID == state.Category.ID {
				return f.Name
			}
		}
	}
	return HeadingAll
}

// ParseCategory converts "all" or a numeric id into a category filter.
func ParseCategory(s string) (model.CategoryFilter, error) {
	if s == "" || s == "all" {
		return model.AllCategories(), nil
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return model.CategoryFilter{}, &InvalidCategoryError{Value: s}
	}
	return model.OnlyCategory(id), nil
}
