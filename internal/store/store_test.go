package store_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/store"
)

const site = "https://school.example"

// ─── Helpers ──────────────────────────────────────────────────────────────────

// testDB opens a fresh isolated database in t.TempDir().
func testDB(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func makeCourses(n int) []model.Course {
	out := make([]model.Course, n)
	for i := range out {
		out[i] = model.Course{
			ID:           i + 1,
			FullName:     "Course",
			CategoryID:   1,
			CategoryName: "General",
			Contacts:     []model.Contact{{ID: 9, FullName: "Teacher"}},
		}
	}
	return out
}

// ─── Open ─────────────────────────────────────────────────────────────────────

func TestOpenCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open with nested path: %v", err)
	}
	defer s.Close()
	if s.Path() != path {
		t.Errorf("Path: expected %q, got %q", path, s.Path())
	}
	v, err := s.SchemaVersion()
	if err != nil || v != 1 {
		t.Errorf("SchemaVersion = %d, %v", v, err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.PutCourses(site, makeCourses(2)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	entry, found, err := s.GetCourses(site)
	if err != nil || !found {
		t.Fatalf("GetCourses after reopen: found=%v err=%v", found, err)
	}
	if len(entry.Courses) != 2 {
		t.Errorf("expected 2 courses, got %d", len(entry.Courses))
	}
}

// ─── Courses ──────────────────────────────────────────────────────────────────

func TestPutGetCourses(t *testing.T) {
	s := testDB(t)
	before := time.Now().UTC().Add(-time.Second)
	if err := s.PutCourses(site, makeCourses(3)); err != nil {
		t.Fatal(err)
	}
	entry, found, err := s.GetCourses(site)
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if entry.Site != site || len(entry.Courses) != 3 {
		t.Errorf("unexpected entry %+v", entry)
	}
	if entry.FetchedAt.Before(before) {
		t.Errorf("FetchedAt not stamped: %v", entry.FetchedAt)
	}
	if entry.Courses[0].Contacts[0].FullName != "Teacher" {
		t.Errorf("contacts lost: %+v", entry.Courses[0])
	}
}

func TestGetCoursesNotFound(t *testing.T) {
	s := testDB(t)
	_, found, err := s.GetCourses("https://other.example")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("expected not found")
	}
}

func TestPutCoursesEmptyIsFound(t *testing.T) {
	s := testDB(t)
	if err := s.PutCourses(site, nil); err != nil {
		t.Fatal(err)
	}
	entry, found, err := s.GetCourses(site)
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if entry.Courses == nil || len(entry.Courses) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", entry.Courses)
	}
}

func TestPutCoursesOverwrites(t *testing.T) {
	s := testDB(t)
	_ = s.PutCourses(site, makeCourses(5))
	_ = s.PutCourses(site, makeCourses(1))
	entry, _, _ := s.GetCourses(site)
	if len(entry.Courses) != 1 {
		t.Errorf("expected overwrite to 1 course, got %d", len(entry.Courses))
	}
}

// ─── Site & Profiles ──────────────────────────────────────────────────────────

func TestPaletteAndSiteInfo(t *testing.T) {
	s := testDB(t)
	colors := []string{"#a", "", "#c"}
	if err := s.PutPalette(site, colors); err != nil {
		t.Fatal(err)
	}
	got, found, err := s.GetPalette(site)
	if err != nil || !found || len(got) != 3 || got[2] != "#c" {
		t.Errorf("GetPalette = %v, %v, %v", got, found, err)
	}

	info := model.SiteInfo{SiteName: "School", UserID: 5, Lang: "ar"}
	if err := s.PutSiteInfo(site, info); err != nil {
		t.Fatal(err)
	}
	gotInfo, found, err := s.GetSiteInfo(site)
	if err != nil || !found || gotInfo != info {
		t.Errorf("GetSiteInfo = %+v, %v, %v", gotInfo, found, err)
	}
}

func TestProfiles(t *testing.T) {
	s := testDB(t)
	p := model.UserProfile{UserID: 5, FullName: "Sara Ali", ProfileImageURL: "https://site/u.png"}
	if err := s.PutProfile(site, p); err != nil {
		t.Fatal(err)
	}
	got, found, err := s.GetProfile(site, 5)
	if err != nil || !found || got != p {
		t.Errorf("GetProfile = %+v, %v, %v", got, found, err)
	}
	if _, found, _ := s.GetProfile(site, 6); found {
		t.Error("unexpected profile for user 6")
	}
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

func TestStats(t *testing.T) {
	s := testDB(t)
	_ = s.PutCourses(site, makeCourses(2))
	_ = s.PutCourses("https://other.example", makeCourses(1))
	_ = s.PutPalette(site, []string{"#a"})

	stats, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != len(store.AllBuckets) {
		t.Fatalf("expected %d buckets, got %d", len(store.AllBuckets), len(stats))
	}
	counts := map[string]int{}
	for _, st := range stats {
		counts[st.Name] = st.Count
		if st.Count > 0 && st.Bytes == 0 {
			t.Errorf("bucket %s: bytes should be non-zero", st.Name)
		}
	}
	if counts["courses"] != 2 || counts["site"] != 1 || counts["profiles"] != 0 {
		t.Errorf("counts = %v", counts)
	}
}

func TestClearBucket(t *testing.T) {
	s := testDB(t)
	_ = s.PutCourses(site, makeCourses(2))
	_ = s.PutPalette(site, []string{"#a"})

	if err := s.ClearBucket("courses"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := s.GetCourses(site); found {
		t.Error("courses should be cleared")
	}
	if _, found, _ := s.GetPalette(site); !found {
		t.Error("site bucket should be untouched")
	}
	if err := s.ClearBucket("_meta"); err == nil {
		t.Error("clearing the internal bucket should be refused")
	}
}

func TestClearAll(t *testing.T) {
	s := testDB(t)
	_ = s.PutCourses(site, makeCourses(2))
	_ = s.PutProfile(site, model.UserProfile{UserID: 1})
	if err := s.ClearAll(); err != nil {
		t.Fatal(err)
	}
	stats, _ := s.Stats()
	for _, st := range stats {
		if st.Count != 0 {
			t.Errorf("bucket %s not empty after ClearAll", st.Name)
		}
	}
	if v, _ := s.SchemaVersion(); v != 1 {
		t.Errorf("schema version lost: %d", v)
	}
}

func TestCompact(t *testing.T) {
	s := testDB(t)
	for i := 0; i < 20; i++ {
		_ = s.PutCourses(site, makeCourses(200))
	}
	_ = s.PutPalette(site, []string{"#a"})
	if err := s.ClearBucket("courses"); err != nil {
		t.Fatal(err)
	}

	res, err := s.Compact()
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if res.BeforeBytes == 0 || res.AfterBytes == 0 {
		t.Errorf("sizes not reported: %+v", res)
	}
	if res.AfterBytes > res.BeforeBytes {
		t.Errorf("compacted file grew: %+v", res)
	}
	if _, err := os.Stat(s.Path() + ".compact"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	// The store stays usable after the swap.
	if _, found, _ := s.GetPalette(site); !found {
		t.Error("palette lost by compaction")
	}
	if err := s.PutCourses(site, makeCourses(1)); err != nil {
		t.Errorf("write after compact: %v", err)
	}
}
