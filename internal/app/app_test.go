package app_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/app"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/catalog"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		SiteURL: "https://school.example",
		Token:   "tok",
		Format:  config.DefaultFormat,
		Timeout: time.Second,
		Rate:    config.DefaultRate,
		Lang:    "ar",
		DBPath:  filepath.Join(t.TempDir(), "test.db"),
	}
}

func TestNewDeps(t *testing.T) {
	d := app.New(testConfig(t), nil)
	t.Cleanup(func() { _ = d.Close() })

	assert.NotNil(t, d.Client)
	assert.NotNil(t, d.Metrics)
	assert.NotNil(t, d.Logger)
	assert.Nil(t, d.Store, "store opens lazily")
	assert.Equal(t, "ar", d.Locale.Current())
}

func TestRequireStore(t *testing.T) {
	d := app.New(testConfig(t), nil)
	require.NoError(t, d.RequireStore())
	first := d.Store
	require.NoError(t, d.RequireStore())
	assert.Same(t, first, d.Store, "second call reuses the open store")

	require.NoError(t, d.Close())
	assert.Nil(t, d.Store)
}

func TestRequireStoreWithoutPath(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBPath = ""
	d := app.New(cfg, nil)
	t.Cleanup(func() { _ = d.Close() })

	assert.Error(t, d.RequireStore())
}

func TestSourceSkipsStoreWithNoCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.NoCache = true
	d := app.New(cfg, nil)
	t.Cleanup(func() { _ = d.Close() })

	var src catalog.Source = d.Source()
	assert.NotNil(t, src)
	assert.Nil(t, d.Store, "--no-cache must not open the database")
}

func TestControllerOpensStore(t *testing.T) {
	d := app.New(testConfig(t), nil)
	t.Cleanup(func() { _ = d.Close() })

	ctrl := d.Controller()
	defer ctrl.Close()
	assert.Equal(t, catalog.StateUnloaded, ctrl.State())
	assert.NotNil(t, d.Store)
}
