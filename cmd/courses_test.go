package cmd

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

const coursesJSON = `{"courses":[
	{"id":1,"fullname":"Math Basics","categoryid":4,"categoryname":"Math","courseimage":"https://site/1.png",
	 "contacts":[{"id":9,"fullname":"Dr. Noor"}]},
	{"id":2,"fullname":"Algebra","categoryid":4,"categoryname":"Math","courseimage":"data:image/svg+xml;base64,AA"},
	{"id":12,"fullname":"Drawing","categoryid":5,"categoryname":"Art"}
],"warnings":[]}`

type fakeSite struct {
	*httptest.Server
	courseCalls atomic.Int32
	down        atomic.Bool
}

// newFakeSite serves the four web-service functions the CLI calls.
func newFakeSite(t *testing.T) *fakeSite {
	t.Helper()
	fs := &fakeSite{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fs.down.Load() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		switch fn := r.URL.Query().Get("wsfunction"); fn {
		case "core_webservice_get_site_info":
			fmt.Fprintf(w, `{"sitename":"School","siteurl":%q,"userid":3,"fullname":"Sara Ali","lang":"en"}`, fs.URL)
		case "tool_mobile_get_config":
			var settings []string
			for i := 1; i <= 10; i++ {
				settings = append(settings, fmt.Sprintf(`{"name":"core_admin_coursecolor%d","value":"#a%d0000"}`, i, i-1))
			}
			fmt.Fprintf(w, `{"settings":[%s],"warnings":[]}`, strings.Join(settings, ","))
		case "core_course_get_courses_by_field":
			fs.courseCalls.Add(1)
			w.Write([]byte(coursesJSON))
		case "core_user_get_users_by_field":
			w.Write([]byte(`[{"id":3,"fullname":"Sara Ali","profileimageurl":"https://site/u3.png"}]`))
		default:
			t.Errorf("unexpected function %q", fn)
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func readCSV(t *testing.T, s string) [][]string {
	t.Helper()
	rows, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	if err != nil {
		t.Fatalf("parsing csv %q: %v", s, err)
	}
	return rows
}

// column returns the named column of every data row.
func column(t *testing.T, rows [][]string, name string) []string {
	t.Helper()
	idx := -1
	for i, h := range rows[0] {
		if h == name {
			idx = i
		}
	}
	if idx < 0 {
		t.Fatalf("no column %q in %v", name, rows[0])
	}
	var out []string
	for _, r := range rows[1:] {
		out = append(out, r[idx])
	}
	return out
}

func TestCoursesListEnrichesCourses(t *testing.T) {
	isolate(t)
	site := newFakeSite(t)

	out, err := run(t, "courses", "list", "--site", site.URL, "--token", "tok", "--format", "csv")
	if err != nil {
		t.Fatal(err)
	}
	rows := readCSV(t, out)
	if got := strings.Join(column(t, rows, "id"), ","); got != "1,2,12" {
		t.Fatalf("ids = %s", got)
	}
	if got := column(t, rows, "image_url"); got[0] != "https://site/1.png" || got[1] != "" || got[2] != "" {
		t.Errorf("image_url = %q", got)
	}
	if got := column(t, rows, "color_index"); got[0] != "" || got[1] != "2" || got[2] != "2" {
		t.Errorf("color_index = %q", got)
	}
	if got := column(t, rows, "color"); got[1] != "#a20000" || got[2] != "#a20000" {
		t.Errorf("color = %q", got)
	}
	if got := column(t, rows, "instructor"); got[0] != "Dr. Noor" {
		t.Errorf("instructor = %q", got)
	}
}

func TestCoursesListFilters(t *testing.T) {
	isolate(t)
	site := newFakeSite(t)
	base := []string{"courses", "list", "--site", site.URL, "--token", "tok", "--format", "csv"}

	cases := []struct {
		name  string
		extra []string
		want  string
	}{
		{"category", []string{"--category", "5"}, "12"},
		{"search", []string{"--search", "MATH", "--category", "5"}, "1"},
		{"popular", []string{"--status", "popular"}, "2,12,1"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out, err := run(t, append(base, c.extra...)...)
			if err != nil {
				t.Fatal(err)
			}
			if got := strings.Join(column(t, readCSV(t, out), "id"), ","); got != c.want {
				t.Errorf("ids = %s, want %s", got, c.want)
			}
		})
	}
}

func TestCoursesListRejectsBadFlags(t *testing.T) {
	isolate(t)
	if _, err := run(t, "courses", "list", "--site", "https://x", "--token", "t", "--status", "soon"); err == nil {
		t.Error("unknown status should fail")
	}
	if _, err := run(t, "courses", "list", "--site", "https://x", "--token", "t", "--category", "abc"); err == nil {
		t.Error("non-numeric category should fail")
	}
}

func TestCoursesListRequiresCredentials(t *testing.T) {
	isolate(t)
	if _, err := run(t, "courses", "list"); err == nil {
		t.Error("expected a missing site/token error")
	}
}

func TestCoursesServedFromCacheWhenSiteIsDown(t *testing.T) {
	isolate(t)
	site := newFakeSite(t)
	args := []string{"courses", "list", "--site", site.URL, "--token", "tok", "--format", "csv"}

	if _, err := run(t, args...); err != nil {
		t.Fatal(err)
	}
	calls := site.courseCalls.Load()

	// a first load prefers the cache
	if _, err := run(t, args...); err != nil {
		t.Fatal(err)
	}
	if site.courseCalls.Load() != calls {
		t.Error("second list should have been served from the cache")
	}

	site.down.Store(true)
	out, err := run(t, append(args, "--refresh")...)
	if err == nil {
		t.Fatalf("refresh with the site down should fail, got %q", out)
	}
}

func TestCoursesCategories(t *testing.T) {
	isolate(t)
	site := newFakeSite(t)

	out, err := run(t, "courses", "categories", "--site", site.URL, "--token", "tok", "--format", "csv")
	if err != nil {
		t.Fatal(err)
	}
	want := "id,name,count\n4,Math,2\n5,Art,1\n"
	if out != want {
		t.Errorf("output:\n%s\nwant:\n%s", out, want)
	}

	out, err = run(t, "courses", "categories", "--site", site.URL, "--token", "tok", "--chart")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "Courses by category\n") || strings.Count(out, "█") == 0 {
		t.Errorf("chart output = %q", out)
	}
}

func TestCoursesSummary(t *testing.T) {
	isolate(t)
	site := newFakeSite(t)

	out, err := run(t, "courses", "summary", "--site", site.URL, "--token", "tok", "--format", "csv")
	if err != nil {
		t.Fatal(err)
	}
	rows := readCSV(t, out)
	got := make(map[string]string)
	for _, r := range rows[1:] {
		got[r[0]] = r[1]
	}
	if got["courses"] != "3" || got["categories"] != "2" || got["with image"] != "1" || got["undated"] != "3" {
		t.Errorf("summary = %v", got)
	}
}

func TestProfileCommand(t *testing.T) {
	isolate(t)
	site := newFakeSite(t)

	out, err := run(t, "profile", "--site", site.URL, "--token", "tok", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"fullname": "Sara Ali"`) || !strings.Contains(out, "https://site/u3.png") {
		t.Errorf("profile output:\n%s", out)
	}
}

func TestCacheCommands(t *testing.T) {
	isolate(t)
	site := newFakeSite(t)

	if _, err := run(t, "courses", "list", "--site", site.URL, "--token", "tok", "--format", "csv"); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "cache", "stats", "--site", site.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Courses for "+site.URL+": 3") {
		t.Errorf("stats output:\n%s", out)
	}

	if _, err := run(t, "cache", "clear"); err == nil {
		t.Error("clear without --all or --bucket should fail")
	}
	if _, err := run(t, "cache", "clear", "--bucket", "nope"); err == nil {
		t.Error("unknown bucket should fail")
	}
	if _, err := run(t, "cache", "clear", "--bucket", "courses"); err != nil {
		t.Fatal(err)
	}
	out, err = run(t, "cache", "compact")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Compaction complete") {
		t.Errorf("compact output:\n%s", out)
	}

	out, err = run(t, "cache", "stats", "--site", site.URL)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "Courses for") {
		t.Errorf("courses should be gone after clear:\n%s", out)
	}
}
