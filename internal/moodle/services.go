package moodle

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
)

// Web-service function names.
const (
	fnSiteInfo     = "core_webservice_get_site_info"
	fnCoursesBy    = "core_course_get_courses_by_field"
	fnMobileConfig = "tool_mobile_get_config"
	fnUsersBy      = "core_user_get_users_by_field"
)

// coursecolorPrefix names the admin settings holding the course palette,
// core_admin_coursecolor1 through core_admin_coursecolor10.
const coursecolorPrefix = "core_admin_coursecolor"

// PaletteSize is the number of course colors a site defines.
const PaletteSize = 10

// ─── Site ─────────────────────────────────────────────────────────────────────

// SiteInfo returns the site name and the token owner's identity.
func (c *Client) SiteInfo(ctx context.Context) (model.SiteInfo, error) {
	var info model.SiteInfo
	if err := c.call(ctx, fnSiteInfo, nil, &info); err != nil {
		return model.SiteInfo{}, fmt.Errorf("site info: %w", err)
	}
	return info, nil
}

// SiteColors returns the ten course colors configured on the site, in slot
// order. Slots the site leaves unset are "".
func (c *Client) SiteColors(ctx context.Context) ([]string, error) {
	var raw struct {
		Settings []struct {
			Name  string      `json:"name"`
			Value interface{} `json:"value"`
		} `json:"settings"`
	}
	if err := c.call(ctx, fnMobileConfig, nil, &raw); err != nil {
		return nil, fmt.Errorf("site colors: %w", err)
	}

	colors := make([]string, PaletteSize)
	for _, s := range raw.Settings {
		if !strings.HasPrefix(s.Name, coursecolorPrefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(s.Name, coursecolorPrefix))
		if err != nil || n < 1 || n > PaletteSize {
			continue
		}
		if v, ok := s.Value.(string); ok {
			colors[n-1] = strings.TrimSpace(v)
		}
	}
	return colors, nil
}

// ─── Courses ──────────────────────────────────────────────────────────────────

// Courses returns every course visible to the token's user, with contacts
// and overview files.
func (c *Client) Courses(ctx context.Context) ([]model.Course, error) {
	var raw struct {
		Courses  []model.Course `json:"courses"`
		Warnings []struct {
			Message string `json:"message"`
		} `json:"warnings"`
	}
	if err := c.call(ctx, fnCoursesBy, url.Values{}, &raw); err != nil {
		return nil, fmt.Errorf("courses: %w", err)
	}
	if raw.Courses == nil {
		raw.Courses = []model.Course{}
	}
	return raw.Courses, nil
}

// ─── Users ────────────────────────────────────────────────────────────────────

// UserProfile returns the display profile of a user.
func (c *Client) UserProfile(ctx context.Context, userID int) (model.UserProfile, error) {
	params := url.Values{}
	params.Set("field", "id")
	params.Set("values[0]", strconv.Itoa(userID))

	var users []struct {
		ID              int    `json:"id"`
		FullName        string `json:"fullname"`
		FirstName       string `json:"firstname"`
		LastName        string `json:"lastname"`
		ProfileImageURL string `json:"profileimageurl"`
	}
	if err := c.call(ctx, fnUsersBy, params, &users); err != nil {
		return model.UserProfile{}, fmt.Errorf("user %d: %w", userID, err)
	}
	if len(users) == 0 {
		return model.UserProfile{}, fmt.Errorf("user not found: %d", userID)
	}
	u := users[0]
	return model.UserProfile{
		UserID:          u.ID,
		FullName:        u.FullName,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		ProfileImageURL: u.ProfileImageURL,
	}, nil
}
