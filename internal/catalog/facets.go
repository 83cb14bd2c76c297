package catalog

import (
	"sort"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
)

// MaxFacets caps how many categories are offered for filtering. It is a
// display cap: sets with more categories are not fully represented.
const MaxFacets = 10

// ExtractFacets counts courses per category and returns the most populated
// ones, largest first. Ties keep the order in which categories first appear.
// Courses without a category id or name are skipped.
func ExtractFacets(courses []model.Course) []model.CategoryFacet {
	index := make(map[int]int)
	var facets []model.CategoryFacet
	for _, c := range courses {
		if !c.HasCategory() {
			continue
		}
		if i, ok := index[c.CategoryID]; ok {
			facets[i].Count++
			continue
		}
		index[c.CategoryID] = len(facets)
		facets = append(facets, model.CategoryFacet{ID: c.CategoryID, Name: c.CategoryName, Count: 1})
	}

	sort.SliceStable(facets, func(i, j int) bool { return facets[i].Count > facets[j].Count })
	if len(facets) > MaxFacets {
		facets = facets[:MaxFacets]
	}
	return facets
}
