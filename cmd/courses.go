package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/app"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/catalog"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/chart"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/config"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/locale"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/render"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Browse the site's course catalog",
	Long: `Load the courses visible to the configured token and show them.

Every course is shown with its image, or with one of the site's ten course
colors when it has none. The first load of a session is served from the
local cache when one exists; use --refresh to go to the site.`,
}

// ─── courses list ─────────────────────────────────────────────────────────────

var (
	coursesStatus   string
	coursesCategory string
	coursesSearch   string
	coursesRefresh  bool
	categoriesChart bool
)

var coursesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List courses, optionally filtered",
	Long: `List courses, optionally narrowed by status and category.

--status popular orders courses by rating instead of removing any.
--status upcoming keeps courses that have not started; ended keeps courses
that are over. Courses without the relevant date are left out of both.

A --search term overrides --status and --category: it matches the course
name, summary and first instructor, ignoring case.`,
	Example: `  mafazaa courses list
  mafazaa courses list --status upcoming --category 4
  mafazaa courses list --search algebra --format json
  mafazaa courses list --refresh`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		status, err := model.ParseStatus(coursesStatus)
		if err != nil {
			return err
		}
		cat, err := catalog.ParseCategory(coursesCategory)
		if err != nil {
			return err
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		ctrl := deps.Controller()
		defer ctrl.Close()
		detach := deps.Locale.Attach(deps.Languages, nil)

		if err := loadCatalog(ctx, deps, ctrl, coursesRefresh); err != nil {
			detach()
			return err
		}
		detach()

		ctrl.SetFilter(model.FilterState{Status: status, Category: cat, SearchTerm: coursesSearch})
		snap := ctrl.Snapshot()

		result := newResult(model.KindCourses, "courses list", snap.Visible, len(snap.Visible), start)
		result.Heading = snap.Heading
		result.Stats.Generation = snap.Generation
		if cat.Only && coursesSearch == "" && !hasFacet(snap.Facets, cat.ID) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("category %d is not among the %d largest categories", cat.ID, catalog.MaxFacets))
		}
		if globalFlags.Verbose {
			printSession(os.Stderr, deps, snap)
		}
		return output(cmd.OutOrStdout(), result, resolveFormat(deps.Config.Format))
	},
}

// ─── courses categories ───────────────────────────────────────────────────────

var coursesCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Show the largest course categories",
	Example: `  mafazaa courses categories --format csv
  mafazaa courses categories --chart`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		ctrl := deps.Controller()
		defer ctrl.Close()
		if err := reload(ctx, ctrl, coursesRefresh); err != nil {
			return err
		}

		facets := ctrl.Facets()
		if categoriesChart {
			if len(facets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No categories to show.")
				return nil
			}
			return chart.Bars(cmd.OutOrStdout(), "Courses by category", facetItems(facets), chart.Options{})
		}
		result := newResult(model.KindFacets, "courses categories", facets, len(facets), start)
		result.Stats.Generation = ctrl.Snapshot().Generation
		return output(cmd.OutOrStdout(), result, resolveFormat(deps.Config.Format))
	},
}

func facetItems(facets []model.CategoryFacet) []chart.Item {
	items := make([]chart.Item, len(facets))
	for i, f := range facets {
		label := f.Name
		if label == "" {
			label = fmt.Sprintf("category %d", f.ID)
		}
		items[i] = chart.Item{Label: label, Value: f.Count}
	}
	return items
}

// ─── courses watch ────────────────────────────────────────────────────────────

var (
	watchInterval time.Duration
	watchCount    int
)

var coursesWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload the catalog periodically and report each change",
	Long: `Load the catalog, then re-check it every --interval until interrupted
(or --count re-checks have been issued).

Re-checks may overlap when the site is slow; only the newest one is shown.
Language changes on the site are reported as they are seen. Send SIGHUP to
force a refresh from the site; it does not count toward --count.`,
	Example: `  mafazaa courses watch --interval 30s
  mafazaa courses watch --interval 1m --count 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchInterval <= 0 {
			return fmt.Errorf("--interval must be positive")
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		w := cmd.OutOrStdout()
		ctrl := deps.Controller()
		snaps, unsubscribe := ctrl.Subscribe(16)
		defer unsubscribe()

		detach := deps.Locale.Attach(deps.Languages, func(lang string, dir locale.Dir) {
			fmt.Fprintf(w, "%s  language %s (%s)\n", time.Now().Format("15:04:05"), lang, dir)
		})
		defer detach()

		var printer sync.WaitGroup
		printer.Add(1)
		go func() {
			defer printer.Done()
			for snap := range snaps {
				printSnapshotLine(w, snap)
			}
		}()

		triggers := make(chan model.LoadPurpose)
		watching := make(chan struct{})
		go func() {
			defer close(watching)
			ctrl.Watch(ctx, triggers, func(err error) {
				slog.Warn("catalog re-check failed", "err", err)
			})
		}()

		send := func(p model.LoadPurpose) bool {
			select {
			case triggers <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)

		if send(model.PurposeInitial) {
			publishSiteLang(ctx, deps)
			ticker := time.NewTicker(watchInterval)
			n := 0
		loop:
			for watchCount == 0 || n < watchCount {
				select {
				case <-ctx.Done():
					break loop
				case <-hup:
					if !send(model.PurposeRefresh) {
						break loop
					}
				case <-ticker.C:
					n++
					if !send(model.PurposeRecheck) {
						break loop
					}
					publishSiteLang(ctx, deps)
				}
			}
			ticker.Stop()
		}

		close(triggers)
		<-watching
		ctrl.Close()
		printer.Wait()
		return nil
	},
}

// ─── Shared loading ───────────────────────────────────────────────────────────

func reload(ctx context.Context, ctrl *catalog.Controller, refresh bool) error {
	if refresh {
		return ctrl.Refresh(ctx)
	}
	return ctrl.Load(ctx)
}

// loadCatalog loads the courses and, concurrently, the site info and the
// user's profile. Only a course failure is an error.
func loadCatalog(ctx context.Context, deps *app.Deps, ctrl *catalog.Controller, refresh bool) error {
	var g errgroup.Group
	g.Go(func() error {
		return reload(ctx, ctrl, refresh)
	})
	g.Go(func() error {
		info := siteInfo(ctx, deps)
		if !langPinned() && info.Lang != "" {
			deps.Languages.Publish(info.Lang)
		}
		ctrl.LoadProfile(ctx, info)
		return nil
	})
	return g.Wait()
}

// siteInfo fetches the site info, falling back to the cached copy. The
// --user flag replaces the token's user.
func siteInfo(ctx context.Context, deps *app.Deps) model.SiteInfo {
	site := deps.Config.SiteURL
	info, err := deps.Client.SiteInfo(ctx)
	if err == nil {
		if deps.Store != nil {
			if perr := deps.Store.PutSiteInfo(site, info); perr != nil {
				slog.Warn("caching site info failed", "err", perr)
			}
		}
	} else if cached, ok := cachedSiteInfo(deps, site); ok {
		slog.Debug("serving cached site info", "err", err)
		info = cached
	} else {
		slog.Warn("site info unavailable", "err", err)
	}
	if deps.Config.UserID > 0 && deps.Config.UserID != info.UserID {
		info = model.SiteInfo{SiteName: info.SiteName, SiteURL: info.SiteURL, Lang: info.Lang, UserID: deps.Config.UserID}
	}
	return info
}

func cachedSiteInfo(deps *app.Deps, site string) (model.SiteInfo, bool) {
	if deps.Store == nil {
		return model.SiteInfo{}, false
	}
	info, found, err := deps.Store.GetSiteInfo(site)
	return info, err == nil && found
}

func publishSiteLang(ctx context.Context, deps *app.Deps) {
	if langPinned() {
		return
	}
	info, err := deps.Client.SiteInfo(ctx)
	if err != nil {
		slog.Debug("site language check failed", "err", err)
		return
	}
	if info.Lang != "" {
		deps.Languages.Publish(info.Lang)
	}
}

// langPinned reports whether the user chose a language, in which case the
// site's language is ignored.
func langPinned() bool {
	return globalFlags.Lang != "" || os.Getenv(config.EnvLang) != ""
}

func hasFacet(facets []model.CategoryFacet, id int) bool {
	for _, f := range facets {
		if f.ID == id {
			return true
		}
	}
	return false
}

func printSession(w io.Writer, deps *app.Deps, snap catalog.Snapshot) {
	lang := deps.Locale.Current()
	fmt.Fprintf(w, "Language: %s (%s)\n", lang, locale.Direction(lang))
	if snap.Profile.FullName != "" {
		fmt.Fprintf(w, "Signed in as: %s\n", snap.Profile.FullName)
	}
}

func printSnapshotLine(w io.Writer, snap catalog.Snapshot) {
	ts := time.Now().Format("15:04:05")
	switch snap.State {
	case catalog.StateReady:
		fmt.Fprintf(w, "%s  generation %d ready: %d courses, %d categories (%s)\n",
			ts, snap.Generation, len(snap.Visible), len(snap.Facets), render.HeadingLabel(snap.Heading))
	case catalog.StateError:
		fmt.Fprintf(w, "%s  generation %d failed: %v\n", ts, snap.Generation, snap.Err)
	}
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(coursesCmd)
	coursesCmd.AddCommand(coursesListCmd)
	coursesCmd.AddCommand(coursesCategoriesCmd)
	coursesCmd.AddCommand(coursesWatchCmd)

	coursesCmd.PersistentFlags().BoolVar(&coursesRefresh, "refresh", false,
		"skip the cache and load from the site")

	coursesListCmd.Flags().StringVar(&coursesStatus, "status", "all",
		"status view: all|popular|upcoming|ended")
	coursesListCmd.Flags().StringVar(&coursesCategory, "category", "all",
		"category id, or all")
	coursesListCmd.Flags().StringVar(&coursesSearch, "search", "",
		"search term; overrides --status and --category")

	coursesCategoriesCmd.Flags().BoolVar(&categoriesChart, "chart", false,
		"draw a bar chart instead of a table")

	coursesWatchCmd.Flags().DurationVar(&watchInterval, "interval", 5*time.Minute,
		"time between re-checks")
	coursesWatchCmd.Flags().IntVar(&watchCount, "count", 0,
		"stop after this many re-checks (0: until interrupted)")
}
