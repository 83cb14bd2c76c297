// Package cmd implements the mafazaa CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/app"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/config"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	Site    string
	Token   string
	User    int
	Format  string
	Out     string
	Timeout string
	Rate    float64
	Lang    string
	NoCache bool
	Quiet   bool
	Verbose bool
	Debug   bool
	Metrics bool
}

// activeDeps is the container built by the running command, kept so the
// post-run hook can dump its metrics and close it.
var activeDeps *app.Deps

// rootCmd is the base command. Running `mafazaa` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "mafazaa",
	Short: "Browse a Moodle site's course catalog",
	Long: `mafazaa is a command-line client for a Moodle site's course catalog.

It loads the courses visible to a web-service token, gives every course an
image or a site color, and lets you narrow the list by status, category or
a search term.

Quick start:
  mafazaa config init                      # create a config.json
  mafazaa config set site_url https://school.example
  mafazaa config set token YOUR_TOKEN
  mafazaa courses list                     # every course
  mafazaa courses list --status upcoming   # courses that have not started`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if activeDeps == nil {
			return nil
		}
		defer func() {
			_ = activeDeps.Close()
			activeDeps = nil
		}()
		if globalFlags.Metrics {
			fmt.Fprintln(cmd.ErrOrStderr())
			return activeDeps.Metrics.WriteText(cmd.ErrOrStderr())
		}
		return nil
	},
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if activeDeps != nil {
			_ = activeDeps.Close()
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setupLogging installs the default slog handler: debug level with --debug,
// warnings only otherwise.
func setupLogging() {
	level := slog.LevelWarn
	if globalFlags.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig resolves config and applies the flag overrides that are not
// part of config.Load's layering.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Flags{
		SiteURL: globalFlags.Site,
		Token:   globalFlags.Token,
		Lang:    globalFlags.Lang,
	})
	if err != nil {
		return nil, err
	}

	cfg.NoCache = globalFlags.NoCache
	cfg.Quiet = globalFlags.Quiet
	cfg.Debug = globalFlags.Debug

	if globalFlags.User > 0 {
		cfg.UserID = globalFlags.User
	}
	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if globalFlags.Timeout != "" {
		d, err := time.ParseDuration(globalFlags.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid --timeout %q: %w", globalFlags.Timeout, err)
		}
		cfg.Timeout = d
	}
	if globalFlags.Rate > 0 {
		cfg.Rate = globalFlags.Rate
	}
	return cfg, nil
}

// buildDeps resolves and validates config and constructs the dependency
// container. Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	activeDeps = app.New(cfg, slog.Default())
	return activeDeps, nil
}

// buildLocalDeps is buildDeps for commands that only touch the local store
// and therefore do not need credentials.
func buildLocalDeps() (*app.Deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	activeDeps = app.New(cfg, slog.Default())
	return activeDeps, nil
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.Site, "site", "",
		"Moodle site URL (overrides env "+config.EnvSiteURL+" and config.json)")
	pf.StringVar(&globalFlags.Token, "token", "",
		"web service token (overrides env "+config.EnvToken+" and config.json)")
	pf.IntVar(&globalFlags.User, "user", 0,
		"user id for the profile (default: the token's user)")
	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|jsonl|csv|tsv|md (default: table)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.Timeout, "timeout", "",
		"HTTP request timeout (e.g. 30s, 2m)")
	pf.Float64Var(&globalFlags.Rate, "rate", 0,
		"max API requests per second (default: 5.0)")
	pf.StringVar(&globalFlags.Lang, "lang", "",
		"interface language, e.g. en or ar (default: the site's language)")
	pf.BoolVar(&globalFlags.NoCache, "no-cache", false,
		"do not read or write the local cache")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show timing stats after output")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log HTTP requests and load lifecycle (token redacted)")
	pf.BoolVar(&globalFlags.Metrics, "metrics", false,
		"print catalog metrics in Prometheus text format to stderr after the command")
}
