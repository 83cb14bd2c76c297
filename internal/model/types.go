// Package model defines the canonical data types used throughout mafazaa.
// These types are the single source of truth for courses, facets, filter
// state and the result envelope that every command returns.
package model

import (
	"fmt"
	"time"
)

// ─── Course Types ─────────────────────────────────────────────────────────────

// Contact is a course contact (teacher, manager) as listed by the site.
type Contact struct {
	ID       int    `json:"id,omitempty"`
	FullName string `json:"fullname"`
}

// OverviewFile is a file attached to the course summary, usually its image.
type OverviewFile struct {
	FileName string `json:"filename,omitempty"`
	FileURL  string `json:"fileurl"`
	MimeType string `json:"mimetype,omitempty"`
}

// Course is the display record for a single course.
// CategoryID 0, StartDate 0 and EndDate 0 mean "absent".
// After enrichment exactly one of ImageURL and ColorIndex is set.
type Course struct {
	ID            int            `json:"id"`
	FullName      string         `json:"fullname"`
	ShortName     string         `json:"shortname,omitempty"`
	Summary       string         `json:"summary,omitempty"`
	CategoryID    int            `json:"categoryid,omitempty"`
	CategoryName  string         `json:"categoryname,omitempty"`
	StartDate     int64          `json:"startdate,omitempty"`
	EndDate       int64          `json:"enddate,omitempty"`
	ImageURL      string         `json:"courseimage,omitempty"`
	ColorIndex    *int           `json:"color_index,omitempty"`
	Color         string         `json:"color,omitempty"`
	Contacts      []Contact      `json:"contacts,omitempty"`
	OverviewFiles []OverviewFile `json:"overviewfiles,omitempty"`
}

// HasCategory reports whether the course carries both a category id and name.
func (c Course) HasCategory() bool {
	return c.CategoryID != 0 && c.CategoryName != ""
}

// CategoryFacet is a derived category summary over a course set.
type CategoryFacet struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// UserProfile is the subset of a user record the catalog displays.
type UserProfile struct {
	UserID          int    `json:"userid"`
	FullName        string `json:"fullname"`
	FirstName       string `json:"firstname,omitempty"`
	LastName        string `json:"lastname,omitempty"`
	ProfileImageURL string `json:"profileimageurl,omitempty"`
}

// SiteInfo is what the site reports about itself and the token's user.
type SiteInfo struct {
	SiteName       string `json:"sitename"`
	SiteURL        string `json:"siteurl"`
	UserID         int    `json:"userid"`
	FullName       string `json:"fullname"`
	FirstName      string `json:"firstname"`
	LastName       string `json:"lastname"`
	UserPictureURL string `json:"userpictureurl"`
	Lang           string `json:"lang"`
	Release        string `json:"release"`
}

// ─── Filter State ─────────────────────────────────────────────────────────────

// Status selects a status view over the course set.
type Status string

// Status values. The empty Status behaves as StatusAll.
const (
	StatusAll      Status = "all"
	StatusPopular  Status = "popular"
	StatusUpcoming Status = "upcoming"
	StatusEnded    Status = "ended"
)

// ParseStatus converts a CLI-friendly name into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusPopular, StatusUpcoming, StatusEnded:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q: choose all|popular|upcoming|ended", s)
}

// CategoryFilter selects a single category when Only is set, every category otherwise.
// The zero value selects every category.
type CategoryFilter struct {
	ID   int  `json:"id,omitempty"`
	Only bool `json:"only"`
}

// AllCategories returns the filter that keeps every category.
func AllCategories() CategoryFilter { return CategoryFilter{} }

// OnlyCategory returns the filter that keeps a single category.
func OnlyCategory(id int) CategoryFilter { return CategoryFilter{ID: id, Only: true} }

// String renders the filter as "all" or the category id.
func (f CategoryFilter) String() string {
	if !f.Only {
		return "all"
	}
	return fmt.Sprintf("%d", f.ID)
}

// FilterState is the complete input of the filter pipeline besides the courses.
// The zero value is the default {all, all, ""}.
type FilterState struct {
	Status     Status         `json:"status"`
	Category   CategoryFilter `json:"category"`
	SearchTerm string         `json:"search_term,omitempty"`
}

// ─── Loading ──────────────────────────────────────────────────────────────────

// LoadPurpose is why a load was issued.
type LoadPurpose string

// LoadPurpose values.
const (
	PurposeInitial   LoadPurpose = "initial"
	PurposeRefresh   LoadPurpose = "refresh"
	PurposePageEnter LoadPurpose = "page_enter"
	PurposeRecheck   LoadPurpose = "recheck"
)

// ReadingStrategy tells a source how to balance its cache and the network.
type ReadingStrategy string

// ReadingStrategy values.
const (
	PreferCache   ReadingStrategy = "prefer_cache"
	PreferNetwork ReadingStrategy = "prefer_network"
	OnlyNetwork   ReadingStrategy = "only_network"
)

// StrategyFor maps a load purpose to the reading strategy it uses.
// First loads take whatever is cached; explicit refreshes always go to the site.
func StrategyFor(p LoadPurpose) ReadingStrategy {
	switch p {
	case PurposeInitial:
		return PreferCache
	case PurposeRefresh:
		return OnlyNetwork
	default:
		return PreferNetwork
	}
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries performance and cache metadata for a command result.
type ResultStats struct {
	Generation uint64 `json:"generation"`
	DurationMs int64  `json:"duration_ms"`
	Items      int    `json:"items"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Heading     string      `json:"heading,omitempty"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindCourses = "courses"
	KindFacets  = "facets"
	KindProfile = "profile"
	KindTable   = "table"
)

// Table is a generic header-plus-rows payload for KindTable results.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}
