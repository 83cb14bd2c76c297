package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/coordinator"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/events"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/metrics"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
)

// State is the lifecycle of the catalog.
type State int

// Catalog states.
const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Snapshot is a read-only copy of everything the presentation layer shows.
// The course values share nested slices with the controller; do not modify them.
type Snapshot struct {
	State      State
	Generation uint64
	Visible    []model.Course
	Facets     []model.CategoryFacet
	Filter     model.FilterState
	Heading    string
	Err        error
	Profile    model.UserProfile
	LoadedAt   time.Time
}

// Options tunes a Controller. The zero value is usable.
type Options struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
	// Clock drives the upcoming/ended views and load timings.
	Clock func() time.Time
	// ExcludeKeywords drops courses whose lower-cased name contains any entry.
	ExcludeKeywords []string
	// DefaultColor replaces DefaultColor for courses the palette cannot serve.
	DefaultColor string
}

// Controller owns the loaded course set, the filter state and the visible
// set. Other components are pure transforms it calls.
type Controller struct {
	src     Source
	coord   *coordinator.Coordinator
	engine  FilterEngine
	palette *paletteLoader
	log     *slog.Logger
	metrics metrics.Recorder
	clock   func() time.Time
	exclude []string
	bus     *events.Bus[Snapshot]

	mu       sync.RWMutex
	state    State
	all      []model.Course
	visible  []model.Course
	facets   []model.CategoryFacet
	filter   model.FilterState
	err      error
	gen      uint64
	loadedAt time.Time
	profile  model.UserProfile
}

// NewController builds a Controller over src in the Unloaded state.
func NewController(src Source, opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	exclude := make([]string, 0, len(opts.ExcludeKeywords))
	for _, k := range opts.ExcludeKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			exclude = append(exclude, k)
		}
	}
	return &Controller{
		src:     src,
		coord:   coordinator.New(),
		engine:  FilterEngine{Now: clock},
		palette: &paletteLoader{src: src, fallback: opts.DefaultColor},
		log:     log,
		metrics: rec,
		clock:   clock,
		exclude: exclude,
		bus:     events.NewBus[Snapshot](),
	}
}

// ─── Loading ──────────────────────────────────────────────────────────────────

// Load performs the first load, taking cached data when the source has it.
func (c *Controller) Load(ctx context.Context) error {
	return c.reload(ctx, model.PurposeInitial)
}

// Refresh reloads from the network, as a pull-to-refresh does.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.reload(ctx, model.PurposeRefresh)
}

// EnterPage reloads when the catalog becomes visible again.
func (c *Controller) EnterPage(ctx context.Context) error {
	return c.reload(ctx, model.PurposePageEnter)
}

// Recheck reloads on behalf of a periodic trigger.
func (c *Controller) Recheck(ctx context.Context) error {
	return c.reload(ctx, model.PurposeRecheck)
}

// Reload issues a load for an arbitrary purpose.
//
// Each call takes a new generation and supersedes every earlier one. The
// result is applied only if no newer load was issued by the time it
// completes. A superseded load returns nil whether it succeeded or failed.
// A failed current load clears the catalog and returns a *FetchError.
func (c *Controller) Reload(ctx context.Context, purpose model.LoadPurpose) error {
	return c.reload(ctx, purpose)
}

func (c *Controller) reload(ctx context.Context, purpose model.LoadPurpose) error {
	return c.run(ctx, c.issue(purpose))
}

// issue takes the next generation for purpose and flags the catalog as
// loading. Generations follow the order of issue calls.
func (c *Controller) issue(purpose model.LoadPurpose) *coordinator.Handle {
	h := c.coord.Begin(purpose)
	c.metrics.LoadIssued(purpose)
	c.coord.IfCurrent(h, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.state = StateLoading
		c.publishLocked()
	})
	return h
}

// run fetches and enriches the courses for an issued load and applies them
// if h is still current.
func (c *Controller) run(ctx context.Context, h *coordinator.Handle) error {
	purpose := h.Purpose()
	log := c.log.With(
		"generation", h.Generation(),
		"purpose", string(purpose),
		"request_id", h.RequestID().String(),
	)
	start := c.clock()
	log.Debug("catalog load started")

	raw, fetchErr := c.src.FetchCourses(ctx, model.StrategyFor(purpose))

	var courses []model.Course
	var facets []model.CategoryFacet
	if fetchErr == nil {
		courses = c.ingest(raw)
		p := Palette{Fallback: c.palette.fallback}
		if h.IsCurrent() && anyNeedsColor(courses) {
			p = c.palette.load(ctx)
			if p.Err != nil {
				log.Warn("site colors unavailable, using default course color", "err", p.Err)
				c.metrics.Degraded(metrics.DegradedPalette)
			}
		}
		for i := range courses {
			courses[i] = Resolve(courses[i], p)
		}
		facets = ExtractFacets(courses)
	}

	var loadErr error
	applied := c.coord.Complete(h, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if fetchErr != nil {
			loadErr = &FetchError{Generation: h.Generation(), Purpose: purpose, Err: fetchErr}
			c.all, c.visible, c.facets = nil, nil, nil
			c.state = StateError
			c.err = loadErr
		} else {
			c.all = courses
			c.facets = facets
			c.visible = c.engine.Apply(courses, c.filter)
			c.state = StateReady
			c.err = nil
		}
		c.gen = h.Generation()
		c.loadedAt = c.clock()
		c.publishLocked()
	})

	if !applied {
		by, _ := h.SupersededBy()
		c.metrics.LoadSuperseded(purpose)
		log.Debug("catalog load dropped", "err", ErrSuperseded, "superseded_by", by, "fetch_err", fetchErr)
		return nil
	}
	if loadErr != nil {
		c.metrics.LoadFailed(purpose)
		log.Warn("catalog load failed", "err", fetchErr)
		return loadErr
	}
	c.metrics.LoadApplied(purpose, c.clock().Sub(start))
	log.Debug("catalog load applied", "courses", len(courses), "facets", len(facets))
	return nil
}

// Watch issues a load for every purpose received on triggers until ctx is
// done or triggers is closed, then waits for loads still in flight. Loads
// overlap freely; only the newest one lands. Failures of current loads are
// passed to onErr when it is non-nil.
func (c *Controller) Watch(ctx context.Context, triggers <-chan model.LoadPurpose, onErr func(error)) {
	var g errgroup.Group
	defer func() { _ = g.Wait() }()
	for {
		select {
		case <-ctx.Done():
			return
		case purpose, ok := <-triggers:
			if !ok {
				return
			}
			h := c.issue(purpose)
			g.Go(func() error {
				if err := c.run(ctx, h); err != nil && onErr != nil && !errors.Is(err, context.Canceled) {
					onErr(err)
				}
				return nil
			})
		}
	}
}

// ingest copies the fetched records, dropping ones that are not real courses.
func (c *Controller) ingest(raw []model.Course) []model.Course {
	out := make([]model.Course, 0, len(raw))
	for _, course := range raw {
		if course.ID <= 0 || c.excluded(course.FullName) {
			continue
		}
		out = append(out, course)
	}
	return out
}

func (c *Controller) excluded(name string) bool {
	if len(c.exclude) == 0 {
		return false
	}
	name = strings.ToLower(name)
	for _, k := range c.exclude {
		if strings.Contains(name, k) {
			return true
		}
	}
	return false
}

func anyNeedsColor(courses []model.Course) bool {
	for _, course := range courses {
		if NeedsColor(course) {
			return true
		}
	}
	return false
}

// ─── Profile ──────────────────────────────────────────────────────────────────

// LoadProfile fetches the avatar for the site's user. It never fails: when
// the profile has no image or cannot be fetched, the site-info picture is
// used, and failing that the avatar stays empty.
func (c *Controller) LoadProfile(ctx context.Context, site model.SiteInfo) model.UserProfile {
	profile := model.UserProfile{
		UserID:    site.UserID,
		FullName:  site.FullName,
		FirstName: site.FirstName,
		LastName:  site.LastName,
	}
	if site.UserID != 0 {
		fetched, err := c.src.FetchUserProfile(ctx, site.UserID)
		if err != nil {
			c.log.Warn("user profile unavailable", "user_id", site.UserID, "err", err)
			c.metrics.Degraded(metrics.DegradedProfile)
		} else {
			profile.ProfileImageURL = fetched.ProfileImageURL
			if profile.FullName == "" {
				profile.FullName = fetched.FullName
			}
		}
	}
	if profile.ProfileImageURL == "" {
		profile.ProfileImageURL = site.UserPictureURL
	}

	c.mu.Lock()
	c.profile = profile
	c.publishLocked()
	c.mu.Unlock()
	return profile
}

// ─── Filtering ────────────────────────────────────────────────────────────────

// FilterByStatus switches the status view. It never fetches.
func (c *Controller) FilterByStatus(s model.Status) {
	c.updateFilter(func(f *model.FilterState) { f.Status = s })
}

// FilterByCategory switches the category filter. It never fetches.
func (c *Controller) FilterByCategory(cat model.CategoryFilter) {
	c.updateFilter(func(f *model.FilterState) { f.Category = cat })
}

// Search sets the search term. A non-empty term overrides the status and
// category selections until it is cleared.
func (c *Controller) Search(term string) {
	c.updateFilter(func(f *model.FilterState) { f.SearchTerm = strings.TrimSpace(term) })
}

// ClearSearch drops the search term and returns to the filtered view.
func (c *Controller) ClearSearch() {
	c.Search("")
}

// ViewAll resets every filter and the search term.
func (c *Controller) ViewAll() {
	c.updateFilter(func(f *model.FilterState) { *f = model.FilterState{Status: model.StatusAll} })
}

// SetFilter replaces the whole filter state at once, publishing a single
// snapshot. An empty status means all.
func (c *Controller) SetFilter(state model.FilterState) {
	if state.Status == "" {
		state.Status = model.StatusAll
	}
	state.SearchTerm = strings.TrimSpace(state.SearchTerm)
	c.updateFilter(func(f *model.FilterState) { *f = state })
}

func (c *Controller) updateFilter(mutate func(*model.FilterState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mutate(&c.filter)
	c.visible = c.engine.Apply(c.all, c.filter)
	c.publishLocked()
}

// ─── Observation ──────────────────────────────────────────────────────────────

// Snapshot returns a copy of the current view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Subscribe delivers a Snapshot after every state, data or filter change.
// Slow subscribers miss intermediate snapshots rather than block the catalog.
func (c *Controller) Subscribe(buffer int) (<-chan Snapshot, func()) {
	return c.bus.Subscribe(buffer)
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// VisibleCourses returns a copy of the visible set.
func (c *Controller) VisibleCourses() []model.Course {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneCourses(c.visible)
}

// AllCourses returns a copy of the full loaded set.
func (c *Controller) AllCourses() []model.Course {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneCourses(c.all)
}

// Facets returns a copy of the current category facets.
func (c *Controller) Facets() []model.CategoryFacet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.CategoryFacet(nil), c.facets...)
}

// Filter returns the current filter state.
func (c *Controller) Filter() model.FilterState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter
}

// Close ends every subscription.
func (c *Controller) Close() {
	c.bus.Close()
}

// publishLocked sends the current snapshot to subscribers. Callers hold
// c.mu for writing, so snapshots reach subscribers in the order the state
// changed.
func (c *Controller) publishLocked() {
	c.bus.Publish(c.snapshotLocked())
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:      c.state,
		Generation: c.gen,
		Visible:    cloneCourses(c.visible),
		Facets:     append([]model.CategoryFacet(nil), c.facets...),
		Filter:     c.filter,
		Heading:    Heading(c.filter, c.facets),
		Err:        c.err,
		Profile:    c.profile,
		LoadedAt:   c.loadedAt,
	}
}

func cloneCourses(s []model.Course) []model.Course {
	if s == nil {
		return nil
	}
	return append([]model.Course(nil), s...)
}
