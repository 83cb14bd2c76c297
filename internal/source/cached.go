// Package source joins the Moodle client and the local store into the
// catalog's data source, honouring the reading strategy of each load.
package source

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/store"
)

// Remote is the network side, implemented by *moodle.Client.
type Remote interface {
	Courses(ctx context.Context) ([]model.Course, error)
	SiteColors(ctx context.Context) ([]string, error)
	UserProfile(ctx context.Context, userID int) (model.UserProfile, error)
}

// Cache is the local side, implemented by *store.Store.
type Cache interface {
	GetCourses(site string) (store.CachedCourses, bool, error)
	PutCourses(site string, courses []model.Course) error
	GetPalette(site string) ([]string, bool, error)
	PutPalette(site string, colors []string) error
	GetProfile(site string, userID int) (model.UserProfile, bool, error)
	PutProfile(site string, p model.UserProfile) error
}

// Cached serves catalog reads from remote, cache or both.
// A nil cache makes every strategy a plain network read.
type Cached struct {
	site   string
	remote Remote
	cache  Cache
	log    *slog.Logger
}

// NewCached returns a Cached source for site. logger may be nil.
func NewCached(site string, remote Remote, cache Cache, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{site: site, remote: remote, cache: cache, log: logger.With("site", site)}
}

// FetchCourses reads the course list according to strategy:
//
//   - PreferCache returns the cached list when there is one and only goes to
//     the network on a miss;
//   - PreferNetwork goes to the network and falls back to the cached list
//     when the network fails;
//   - OnlyNetwork never reads the cache.
//
// Every successful network read replaces the cached list.
func (s *Cached) FetchCourses(ctx context.Context, strategy model.ReadingStrategy) ([]model.Course, error) {
	if strategy == model.PreferCache {
		if entry, ok := s.cachedCourses(); ok {
			s.log.Debug("courses served from cache", "fetched_at", entry.FetchedAt, "courses", len(entry.Courses))
			return entry.Courses, nil
		}
	}

	courses, err := s.remote.Courses(ctx)
	if err == nil {
		if s.cache != nil {
			if perr := s.cache.PutCourses(s.site, courses); perr != nil {
				s.log.Warn("caching courses failed", "err", perr)
			}
		}
		return courses, nil
	}

	if strategy == model.PreferNetwork {
		if entry, ok := s.cachedCourses(); ok {
			s.log.Warn("network failed, serving cached courses", "err", err, "fetched_at", entry.FetchedAt)
			return entry.Courses, nil
		}
	}
	return nil, fmt.Errorf("fetching courses (%s): %w", strategy, err)
}

func (s *Cached) cachedCourses() (store.CachedCourses, bool) {
	if s.cache == nil {
		return store.CachedCourses{}, false
	}
	entry, found, err := s.cache.GetCourses(s.site)
	if err != nil {
		s.log.Warn("reading cached courses failed", "err", err)
		return store.CachedCourses{}, false
	}
	return entry, found
}

// FetchSiteColors reads the palette from the network, falling back to the
// cached palette when the network fails.
func (s *Cached) FetchSiteColors(ctx context.Context) ([]string, error) {
	colors, err := s.remote.SiteColors(ctx)
	if err == nil {
		if s.cache != nil {
			if perr := s.cache.PutPalette(s.site, colors); perr != nil {
				s.log.Warn("caching palette failed", "err", perr)
			}
		}
		return colors, nil
	}
	if s.cache != nil {
		if cached, found, cerr := s.cache.GetPalette(s.site); cerr == nil && found {
			s.log.Debug("serving cached palette", "err", err)
			return cached, nil
		}
	}
	return nil, err
}

// FetchUserProfile reads a profile from the network, falling back to the
// cached profile when the network fails.
func (s *Cached) FetchUserProfile(ctx context.Context, userID int) (model.UserProfile, error) {
	p, err := s.remote.UserProfile(ctx, userID)
	if err == nil {
		if s.cache != nil {
			if perr := s.cache.PutProfile(s.site, p); perr != nil {
				s.log.Warn("caching profile failed", "err", perr)
			}
		}
		return p, nil
	}
	if s.cache != nil {
		if cached, found, cerr := s.cache.GetProfile(s.site, userID); cerr == nil && found {
			s.log.Debug("serving cached profile", "user_id", userID, "err", err)
			return cached, nil
		}
	}
	return model.UserProfile{}, err
}
