package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the local cache",
	Long: `Commands for inspecting and clearing the local bbolt database.

The cache holds the last course list, site info, palette and profiles read
from each site. A first load is served from it; --refresh and failed
network reads bypass or fall back to it.`,
}

// ─── cache stats ──────────────────────────────────────────────────────────────

var cacheStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show row counts and sizes for each bucket",
	Example: `  mafazaa cache stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildLocalDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}

		stats, err := deps.Store.Stats()
		if err != nil {
			return fmt.Errorf("reading store stats: %w", err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Database: %s\n", deps.Store.Path())
		if site := deps.Config.SiteURL; site != "" {
			if entry, found, err := deps.Store.GetCourses(site); err == nil && found {
				fmt.Fprintf(w, "Courses for %s: %d, cached %s\n", site, len(entry.Courses), entry.FetchedAt.Local().Format("2006-01-02 15:04"))
			}
		}
		fmt.Fprintln(w)
		printSimpleTable(w, []string{"BUCKET", "ROWS", "SIZE"}, func(add func(...string)) {
			for _, s := range stats {
				add(s.Name, fmt.Sprintf("%d", s.Count), humanBytes(s.Bytes))
			}
		})
		return nil
	},
}

// ─── cache clear ──────────────────────────────────────────────────────────────

var (
	cacheClearAll    bool
	cacheClearBucket string
)

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete entries from the local cache",
	Long: `Delete entries from one or all buckets.

bbolt does not shrink the database file after clearing. Run
'mafazaa cache compact' afterwards to reclaim disk space.`,
	Example: `  mafazaa cache clear --all
  mafazaa cache clear --bucket courses`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cacheClearAll && cacheClearBucket == "" {
			return fmt.Errorf("specify --all or --bucket <name>\n\nBuckets: %s", strings.Join(store.AllBuckets, ", "))
		}

		deps, err := buildLocalDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if cacheClearAll {
			if err := deps.Store.ClearAll(); err != nil {
				return fmt.Errorf("clearing all buckets: %w", err)
			}
			fmt.Fprintln(w, "✓ Cleared all buckets")
		} else {
			if err := deps.Store.ClearBucket(cacheClearBucket); err != nil {
				return err
			}
			fmt.Fprintf(w, "✓ Cleared bucket %q\n", cacheClearBucket)
		}
		fmt.Fprintln(w, "  Run 'mafazaa cache compact' to reclaim disk space.")
		return nil
	},
}

// ─── cache compact ────────────────────────────────────────────────────────────

var cacheCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the database file to reclaim freed disk space",
	Long: `Compact copies every live entry into a fresh file and swaps it in place
of the old one. The cache stays usable afterwards.`,
	Example: `  mafazaa cache compact`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildLocalDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Compacting %s ...\n", deps.Store.Path())
		res, err := deps.Store.Compact()
		if err != nil {
			return fmt.Errorf("compaction failed: %w", err)
		}

		fmt.Fprintf(w, "✓ Compaction complete\n")
		fmt.Fprintf(w, "  Before: %s\n", humanBytes(res.BeforeBytes))
		fmt.Fprintf(w, "  After:  %s\n", humanBytes(res.AfterBytes))
		if saved := res.BeforeBytes - res.AfterBytes; saved > 0 {
			fmt.Fprintf(w, "  Saved:  %s\n", humanBytes(saved))
		} else {
			fmt.Fprintln(w, "  No space reclaimed (database was already compact).")
		}
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheCompactCmd)

	cacheClearCmd.Flags().BoolVar(&cacheClearAll, "all", false, "clear all buckets")
	cacheClearCmd.Flags().StringVar(&cacheClearBucket, "bucket", "",
		"clear a specific bucket: "+strings.Join(store.AllBuckets, "|"))
}
