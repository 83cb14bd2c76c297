package catalog

import (
	"net/url"
	"strings"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
)

// Resolve returns c with its display image settled. The first rule that
// matches wins:
//
//  1. an absolute http(s) ImageURL is kept;
//  2. an inline data: blob (older sites embed generated patterns) is dropped;
//  3. the first overview file with an absolute URL is adopted;
//  4. otherwise the course gets a fallback color from p.
//
// Resolve only reads fields already on the record. The returned course has
// exactly one of ImageURL and ColorIndex set.
func Resolve(c model.Course, p Palette) model.Course {
	if isDataURL(c.ImageURL) || !isAbsoluteURL(c.ImageURL) {
		c.ImageURL = ""
	}
	if c.ImageURL == "" {
		for _, f := range c.OverviewFiles {
			if isAbsoluteURL(f.FileURL) {
				c.ImageURL = f.FileURL
				break
			}
		}
	}
	if c.ImageURL != "" {
		c.ColorIndex = nil
		c.Color = ""
		return c
	}

	a := AssignColor(c, p)
	idx := a.Index
	c.ColorIndex = &idx
	c.Color = a.Color
	return c
}

// NeedsColor reports whether Resolve would fall back to a color for c.
// The controller uses it to skip the palette lookup when every course has an image.
func NeedsColor(c model.Course) bool {
	if isAbsoluteURL(c.ImageURL) {
		return false
	}
	for _, f := range c.OverviewFiles {
		if isAbsoluteURL(f.FileURL) {
			return false
		}
	}
	return true
}

func isDataURL(s string) bool {
	return len(s) >= 5 && strings.EqualFold(s[:5], "data:")
}

// isAbsoluteURL accepts http(s) URLs with a host. data: blobs never qualify.
func isAbsoluteURL(s string) bool {
	if s == "" || isDataURL(s) {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
