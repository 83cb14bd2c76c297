// Package catalog is the course-catalog view-model: it enriches loaded
// courses with an image or a fallback color, derives category facets, filters
// the set for display and coordinates overlapping loads through the
// coordinator package.
package catalog

import "github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"

// DefaultColor is used whenever the site palette cannot supply a color.
const DefaultColor = "#8B4513"

// paletteSize is the number of course colors a site defines.
const paletteSize = 10

// Palette is the outcome of a site color lookup.
// Err is set when the lookup failed; Colors may then be empty.
// Fallback overrides DefaultColor when non-empty.
type Palette struct {
	Colors   []string
	Err      error
	Fallback string
}

// Assignment is the fallback color chosen for a course without an image.
type Assignment struct {
	Index int
	Color string
}

// ColorIndex returns the palette slot for a course id. It is id mod 10,
// folded into [0,9] for negative ids.
func ColorIndex(id int) int {
	return ((id % paletteSize) + paletteSize) % paletteSize
}

// AssignColor picks the fallback color for c. It never fails: a failed,
// empty or short palette yields DefaultColor with the index still set.
func AssignColor(c model.Course, p Palette) Assignment {
	idx := ColorIndex(c.ID)
	a := Assignment{Index: idx, Color: DefaultColor}
	if p.Fallback != "" {
		a.Color = p.Fallback
	}
	if p.Err != nil || idx >= len(p.Colors) {
		return a
	}
	if color := p.Colors[idx]; color != "" {
		a.Color = color
	}
	return a
}
