// Package store provides a thin bbolt wrapper for mafazaa's local cache.
//
// The store keeps the last successful answer for each site so that a first
// load can render before the network replies. Entries are overwritten on
// every successful fetch; nothing expires on its own.
//
// Buckets:
//
//	courses : raw course lists keyed by site URL
//	site    : site info and palettes keyed by kind and site URL
//	profiles: user profiles keyed by site URL and user id
//	_meta   : internal: schema version, created_at
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// Bucket name constants.
var (
	bucketCourses  = []byte("courses")
	bucketSite     = []byte("site")
	bucketProfiles = []byte("profiles")
	bucketInternal = []byte("_meta")
)

// AllBuckets lists every user-facing bucket for stats and clear operations.
var AllBuckets = []string{"courses", "site", "profiles"}

// Store wraps a bbolt database.
type Store struct {
	path string
	db   *bolt.DB
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path, db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

func openDB(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}
	return db, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.path
}

// migrate ensures all buckets exist and the schema version is recorded.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketCourses, bucketSite, bucketProfiles, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(strconv.Itoa(schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// SchemaVersion returns the version recorded when the database was created.
func (s *Store) SchemaVersion() (int, error) {
	var v int
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketInternal).Get([]byte("schema_version"))
		if raw == nil {
			return nil
		}
		n, err := strconv.Atoi(string(raw))
		v = n
		return err
	})
	return v, err
}

// ─── Generic helpers ──────────────────────────────────────────────────────────

func (s *Store) put(bucket []byte, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", bucket, key, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

// get decodes the value at key into v and reports whether it was present.
func (s *Store) get(bucket []byte, key string, v interface{}) (bool, error) {
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, v)
	})
	if err != nil {
		return false, fmt.Errorf("decoding %s/%s: %w", bucket, key, err)
	}
	return found, nil
}

// ─── Courses ──────────────────────────────────────────────────────────────────

// CachedCourses is the on-disk envelope for a site's course list.
type CachedCourses struct {
	Site      string         `json:"site"`
	FetchedAt time.Time      `json:"fetched_at"`
	Courses   []model.Course `json:"courses"`
}

// PutCourses replaces the cached course list for site, stamping FetchedAt.
func (s *Store) PutCourses(site string, courses []model.Course) error {
	if courses == nil {
		courses = []model.Course{}
	}
	return s.put(bucketCourses, site, CachedCourses{
		Site:      site,
		FetchedAt: time.Now().UTC(),
		Courses:   courses,
	})
}

// GetCourses returns the cached course list for site.
// Returns (entry, true, nil) if found, (zero, false, nil) if not.
func (s *Store) GetCourses(site string) (CachedCourses, bool, error) {
	var entry CachedCourses
	found, err := s.get(bucketCourses, site, &entry)
	return entry, found, err
}

// ─── Site ─────────────────────────────────────────────────────────────────────

func siteKey(kind, site string) string { return kind + ":" + site }

// PutPalette caches the site's course colors.
func (s *Store) PutPalette(site string, colors []string) error {
	return s.put(bucketSite, siteKey("palette", site), colors)
}

// GetPalette returns the cached course colors for site.
func (s *Store) GetPalette(site string) ([]string, bool, error) {
	var colors []string
	found, err := s.get(bucketSite, siteKey("palette", site), &colors)
	return colors, found, err
}

// PutSiteInfo caches what the site reported about itself.
func (s *Store) PutSiteInfo(site string, info model.SiteInfo) error {
	return s.put(bucketSite, siteKey("info", site), info)
}

// GetSiteInfo returns the cached site info for site.
func (s *Store) GetSiteInfo(site string) (model.SiteInfo, bool, error) {
	var info model.SiteInfo
	found, err := s.get(bucketSite, siteKey("info", site), &info)
	return info, found, err
}

// ─── Profiles ─────────────────────────────────────────────────────────────────

func profileKey(site string, userID int) string {
	return site + "|user:" + strconv.Itoa(userID)
}

// PutProfile caches a user profile for site.
func (s *Store) PutProfile(site string, p model.UserProfile) error {
	return s.put(bucketProfiles, profileKey(site, p.UserID), p)
}

// GetProfile returns the cached profile of userID on site.
func (s *Store) GetProfile(site string, userID int) (model.UserProfile, bool, error) {
	var p model.UserProfile
	found, err := s.get(bucketProfiles, profileKey(site, userID), &p)
	return p, found, err
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string
	Count int
	Bytes int64
}

// Stats returns row counts and approximate sizes for all user-facing
// buckets, in AllBuckets order.
func (s *Store) Stats() ([]BucketStats, error) {
	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			st := BucketStats{Name: name}
			if err := b.ForEach(func(k, v []byte) error {
				st.Count++
				st.Bytes += int64(len(k) + len(v))
				return nil
			}); err != nil {
				return err
			}
			stats = append(stats, st)
		}
		return nil
	})
	return stats, err
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	if !isUserBucket(name) {
		return fmt.Errorf("unknown bucket %q: choose one of %v", name, AllBuckets)
	}
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}

func isUserBucket(name string) bool {
	for _, b := range AllBuckets {
		if b == name {
			return true
		}
	}
	return false
}

// CompactResult reports file sizes around a Compact.
type CompactResult struct {
	BeforeBytes int64
	AfterBytes  int64
}

// Compact rewrites the database into a fresh file, reclaiming the pages
// freed by overwrites and clears, and swaps it in place.
func (s *Store) Compact() (CompactResult, error) {
	var res CompactResult
	if fi, err := os.Stat(s.path); err == nil {
		res.BeforeBytes = fi.Size()
	}

	tmp := s.path + ".compact"
	_ = os.Remove(tmp)
	dst, err := openDB(tmp)
	if err != nil {
		return res, err
	}
	if err := bolt.Compact(dst, s.db, 1<<20); err != nil {
		dst.Close()
		os.Remove(tmp)
		return res, fmt.Errorf("compacting: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return res, err
	}
	if err := s.db.Close(); err != nil {
		os.Remove(tmp)
		return res, err
	}
	renameErr := os.Rename(tmp, s.path)
	db, err := openDB(s.path)
	if renameErr != nil {
		os.Remove(tmp)
		if err == nil {
			s.db = db
		}
		return res, fmt.Errorf("replacing db: %w", renameErr)
	}
	if err != nil {
		return res, err
	}
	s.db = db

	if fi, err := os.Stat(s.path); err == nil {
		res.AfterBytes = fi.Size()
	}
	return res, nil
}
