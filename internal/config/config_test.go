package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/config"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// chdir switches the working directory to dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

// writeConfig writes a config.json into a fresh directory and moves there.
func writeConfig(t *testing.T, f config.File) {
	t.Helper()
	dir := t.TempDir()
	if err := config.WriteFile(filepath.Join(dir, config.DefaultConfigFile), f); err != nil {
		t.Fatalf("write config: %v", err)
	}
	chdir(t, dir)
}

// clearEnv unsets every MAFAZAA_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.EnvSiteURL, config.EnvToken, config.EnvDBPath, config.EnvLang} {
		t.Setenv(k, "")
	}
}

func validConfig() *config.Config {
	return &config.Config{
		SiteURL: "https://school.example",
		Token:   "abcdef123456",
		Format:  "table",
		Timeout: time.Second,
		Rate:    1,
		Lang:    "en",
	}
}

// ─── Defaults ─────────────────────────────────────────────────────────────────

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := config.Load(config.Flags{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Format != config.DefaultFormat {
		t.Errorf("Format: expected %q, got %q", config.DefaultFormat, cfg.Format)
	}
	if cfg.Timeout != config.DefaultTimeout {
		t.Errorf("Timeout: expected %v, got %v", config.DefaultTimeout, cfg.Timeout)
	}
	if cfg.Rate != config.DefaultRate {
		t.Errorf("Rate: expected %g, got %g", config.DefaultRate, cfg.Rate)
	}
	if cfg.Lang != config.DefaultLang {
		t.Errorf("Lang: expected %q, got %q", config.DefaultLang, cfg.Lang)
	}
	if cfg.DefaultColor != config.DefaultColor {
		t.Errorf("DefaultColor: expected %q, got %q", config.DefaultColor, cfg.DefaultColor)
	}
	if cfg.DBPath == "" {
		t.Error("DBPath should have a default (home dir based) value")
	}
	if cfg.ConfigPath != "" {
		t.Errorf("ConfigPath should be empty when no file found, got %q", cfg.ConfigPath)
	}
}

// ─── Config file loading ──────────────────────────────────────────────────────

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	writeConfig(t, config.File{
		SiteURL:         "https://school.example/",
		Token:           "filetoken",
		UserID:          12,
		DefaultFormat:   "json",
		Timeout:         "60s",
		Rate:            2.5,
		DBPath:          "/tmp/test.db",
		Lang:            "ar",
		ExcludeKeywords: []string{"academy"},
		DefaultColor:    "#112233",
	})

	cfg, err := config.Load(config.Flags{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SiteURL != "https://school.example" {
		t.Errorf("SiteURL should lose its trailing slash, got %q", cfg.SiteURL)
	}
	if cfg.Token != "filetoken" || cfg.UserID != 12 {
		t.Errorf("Token/UserID: got %q/%d", cfg.Token, cfg.UserID)
	}
	if cfg.Format != "json" || cfg.Timeout != time.Minute || cfg.Rate != 2.5 {
		t.Errorf("Format/Timeout/Rate: got %q/%v/%g", cfg.Format, cfg.Timeout, cfg.Rate)
	}
	if cfg.DBPath != "/tmp/test.db" || cfg.Lang != "ar" || cfg.DefaultColor != "#112233" {
		t.Errorf("DBPath/Lang/DefaultColor: got %q/%q/%q", cfg.DBPath, cfg.Lang, cfg.DefaultColor)
	}
	if len(cfg.ExcludeKeywords) != 1 || cfg.ExcludeKeywords[0] != "academy" {
		t.Errorf("ExcludeKeywords: got %v", cfg.ExcludeKeywords)
	}
	if !strings.Contains(cfg.ConfigPath, "config.json") {
		t.Errorf("ConfigPath should contain config.json, got %q", cfg.ConfigPath)
	}
}

func TestLoadInvalidTimeoutIgnored(t *testing.T) {
	clearEnv(t)
	writeConfig(t, config.File{Token: "k", Timeout: "not-a-duration"})

	cfg, err := config.Load(config.Flags{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timeout != config.DefaultTimeout {
		t.Errorf("invalid timeout should use default %v, got %v", config.DefaultTimeout, cfg.Timeout)
	}
}

func TestLoadMalformedFileErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.DefaultConfigFile), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	if _, err := config.Load(config.Flags{}); err == nil {
		t.Error("malformed config.json should be reported")
	}
}

// ─── Priority ─────────────────────────────────────────────────────────────────

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	writeConfig(t, config.File{SiteURL: "https://file.example", Token: "filetoken", Lang: "fr"})
	t.Setenv(config.EnvSiteURL, "https://env.example")
	t.Setenv(config.EnvToken, "envtoken")
	t.Setenv(config.EnvLang, "ar")
	t.Setenv(config.EnvDBPath, "/custom/path/mafazaa.db")

	cfg, err := config.Load(config.Flags{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SiteURL != "https://env.example" || cfg.Token != "envtoken" || cfg.Lang != "ar" {
		t.Errorf("env should override file, got %q/%q/%q", cfg.SiteURL, cfg.Token, cfg.Lang)
	}
	if cfg.DBPath != "/custom/path/mafazaa.db" {
		t.Errorf("DBPath: got %q", cfg.DBPath)
	}
}

func TestLoadFlagsOverrideEnvAndFile(t *testing.T) {
	clearEnv(t)
	writeConfig(t, config.File{Token: "filetoken"})
	t.Setenv(config.EnvToken, "envtoken")

	cfg, err := config.Load(config.Flags{Token: "flagtoken", SiteURL: "https://flag.example", Lang: "he"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Token != "flagtoken" || cfg.SiteURL != "https://flag.example" || cfg.Lang != "he" {
		t.Errorf("flags should win, got %q/%q/%q", cfg.Token, cfg.SiteURL, cfg.Lang)
	}
}

func TestLoadEmptyFlagsDoNotOverride(t *testing.T) {
	clearEnv(t)
	writeConfig(t, config.File{Token: "filetoken"})

	cfg, err := config.Load(config.Flags{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Token != "filetoken" {
		t.Errorf("empty flag should not override file value, got %q", cfg.Token)
	}
}

// ─── Validate ─────────────────────────────────────────────────────────────────

func TestValidateOK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidateMissingSite(t *testing.T) {
	cfg := validConfig()
	cfg.SiteURL = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), config.EnvSiteURL) {
		t.Errorf("error should explain how to set the site, got: %v", err)
	}
}

func TestValidateMissingToken(t *testing.T) {
	cfg := validConfig()
	cfg.Token = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token") {
		t.Errorf("error should mention the token, got: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"url", func(c *config.Config) { c.SiteURL = "not a url" }, "SiteURL"},
		{"format", func(c *config.Config) { c.Format = "xml" }, "Format"},
		{"rate", func(c *config.Config) { c.Rate = 0 }, "Rate"},
		{"timeout", func(c *config.Config) { c.Timeout = 0 }, "Timeout"},
		{"color", func(c *config.Config) { c.DefaultColor = "brown" }, "DefaultColor"},
		{"keyword", func(c *config.Config) { c.ExcludeKeywords = []string{""} }, "ExcludeKeywords"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error should mention %s, got: %v", tt.want, err)
			}
		})
	}
}

// ─── RedactedToken ────────────────────────────────────────────────────────────

func TestRedactedToken(t *testing.T) {
	cfg := &config.Config{Token: "abcdefghij"}
	redacted := cfg.RedactedToken()
	if redacted != "ab****ij" {
		t.Errorf("expected ab****ij, got %q", redacted)
	}
	for _, tok := range []string{"", "a", "abcd"} {
		cfg := &config.Config{Token: tok}
		if cfg.RedactedToken() != "****" {
			t.Errorf("short token %q should redact to '****', got %q", tok, cfg.RedactedToken())
		}
	}
}

// ─── WriteFile / ReadFile / Template ─────────────────────────────────────────

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	f := config.File{
		SiteURL:         "https://school.example",
		Token:           "testtoken",
		DefaultFormat:   "csv",
		Timeout:         "45s",
		Rate:            3.0,
		Lang:            "ar",
		ExcludeKeywords: []string{"academy", "sandbox"},
	}
	if err := config.WriteFile(path, f); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := config.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.SiteURL != f.SiteURL || got.Token != f.Token || got.DefaultFormat != f.DefaultFormat ||
		got.Timeout != f.Timeout || got.Rate != f.Rate || got.Lang != f.Lang || len(got.ExcludeKeywords) != 2 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestWriteFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := config.WriteFile(path, config.File{Token: "k"}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("file permissions: expected 0600, got %04o", info.Mode().Perm())
	}
}

func TestTemplateDefaults(t *testing.T) {
	tmpl := config.Template()
	data, err := json.Marshal(tmpl)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"site_url":""`) {
		t.Errorf("template should carry an empty site_url for the user to fill in: %s", data)
	}
	if tmpl.DefaultFormat != "table" || tmpl.Timeout != "30s" || tmpl.Lang != "en" {
		t.Errorf("unexpected template %+v", tmpl)
	}
	if tmpl.Token != "" {
		t.Errorf("Template.Token should be empty, got %q", tmpl.Token)
	}
}
