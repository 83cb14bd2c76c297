// Package app wires together configuration, the Moodle client, the local
// store and the catalog controller into a single Deps struct that commands
// receive at runtime.
package app

import (
	"fmt"
	"log/slog"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/catalog"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/config"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/events"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/locale"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/metrics"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/moodle"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/source"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/store"
)

// Deps holds all runtime dependencies injected into command Run functions.
// Store is nil until RequireStore succeeds.
type Deps struct {
	Config  *config.Config
	Client  *moodle.Client
	Store   *store.Store
	Metrics *metrics.Catalog
	Logger  *slog.Logger

	// Languages carries language changes to Locale.
	Languages *events.Bus[string]
	Locale    *locale.Watcher
}

// New builds a Deps from resolved config.
func New(cfg *config.Config, logger *slog.Logger) *Deps {
	if logger == nil {
		logger = slog.Default()
	}
	client := moodle.NewClient(
		cfg.SiteURL,
		cfg.Token,
		cfg.Timeout,
		cfg.Rate,
		cfg.Debug,
	)
	return &Deps{
		Config:    cfg,
		Client:    client,
		Metrics:   metrics.New(),
		Logger:    logger,
		Languages: events.NewBus[string](),
		Locale:    locale.NewWatcher(cfg.Lang),
	}
}

// RequireStore opens the local store at Config.DBPath.
func (d *Deps) RequireStore() error {
	if d.Store != nil {
		return nil
	}
	if d.Config.DBPath == "" {
		return fmt.Errorf("no database path: set db_path in config.json or %s", config.EnvDBPath)
	}
	s, err := store.Open(d.Config.DBPath)
	if err != nil {
		return err
	}
	d.Store = s
	return nil
}

// Source returns the catalog data source. With --no-cache, or when the store
// cannot be opened, it reads from the network only.
func (d *Deps) Source() *source.Cached {
	var cache source.Cache
	if !d.Config.NoCache {
		if err := d.RequireStore(); err != nil {
			d.Logger.Warn("local cache unavailable, reading from the network only", "err", err)
		} else {
			cache = d.Store
		}
	}
	return source.NewCached(d.Config.SiteURL, d.Client, cache, d.Logger)
}

// Controller builds a catalog controller over Source.
func (d *Deps) Controller() *catalog.Controller {
	return catalog.NewController(d.Source(), catalog.Options{
		Logger:          d.Logger,
		Metrics:         d.Metrics,
		ExcludeKeywords: d.Config.ExcludeKeywords,
		DefaultColor:    d.Config.DefaultColor,
	})
}

// Close releases the store and ends language subscriptions.
func (d *Deps) Close() error {
	d.Languages.Close()
	if d.Store == nil {
		return nil
	}
	err := d.Store.Close()
	d.Store = nil
	return err
}
