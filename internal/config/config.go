// Package config handles loading and resolving mafazaa configuration.
// Resolution order (first non-empty value wins):
//  1. CLI flags (--site, --token, --lang)
//  2. Environment variables (MAFAZAA_SITE_URL, MAFAZAA_TOKEN, MAFAZAA_LANG, MAFAZAA_DB_PATH)
//  3. config.json in the current working directory
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigFile = "config.json"
	DefaultFormat     = "table"
	DefaultTimeout    = 30 * time.Second
	DefaultRate       = 5.0
	DefaultLang       = "en"
	DefaultColor      = "#8B4513"
	EnvSiteURL        = "MAFAZAA_SITE_URL"
	EnvToken          = "MAFAZAA_TOKEN"
	EnvDBPath         = "MAFAZAA_DB_PATH"
	EnvLang           = "MAFAZAA_LANG"
)

// File is the on-disk representation of config.json.
type File struct {
	SiteURL         string   `json:"site_url"`
	Token           string   `json:"token"`
	UserID          int      `json:"user_id,omitempty"`
	DefaultFormat   string   `json:"default_format"`
	Timeout         string   `json:"timeout"`
	Rate            float64  `json:"rate"`
	DBPath          string   `json:"db_path,omitempty"`
	Lang            string   `json:"lang"`
	ExcludeKeywords []string `json:"exclude_keywords,omitempty"`
	DefaultColor    string   `json:"default_color,omitempty"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	SiteURL         string        `validate:"required,url"`
	Token           string        `validate:"required"`
	UserID          int           `validate:"gte=0"`
	Format          string        `validate:"oneof=table json jsonl csv tsv md"`
	Timeout         time.Duration `validate:"gt=0"`
	Rate            float64       `validate:"gt=0"`
	DBPath          string
	Lang            string   `validate:"required"`
	ExcludeKeywords []string `validate:"dive,required"`
	DefaultColor    string   `validate:"omitempty,hexcolor"`
	ConfigPath      string   // path of the config.json that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	NoCache bool
	Quiet   bool
	Debug   bool
}

// Flags carries the CLI values that take part in resolution.
// Empty fields do not override anything.
type Flags struct {
	SiteURL string
	Token   string
	Lang    string
}

// Load resolves configuration from all sources.
func Load(flags Flags) (*Config, error) {
	cfg := &Config{
		Format:       DefaultFormat,
		Timeout:      DefaultTimeout,
		Rate:         DefaultRate,
		Lang:         DefaultLang,
		DefaultColor: DefaultColor,
	}

	// Layer 1: config.json (lowest priority)
	f, path, err := loadFile()
	switch {
	case err == nil:
		applyFile(cfg, f, path)
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	// Layer 2: environment
	if v := os.Getenv(EnvSiteURL); v != "" {
		cfg.SiteURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvLang); v != "" {
		cfg.Lang = v
	}

	// Layer 3: CLI flags (highest priority)
	if flags.SiteURL != "" {
		cfg.SiteURL = flags.SiteURL
	}
	if flags.Token != "" {
		cfg.Token = flags.Token
	}
	if flags.Lang != "" {
		cfg.Lang = flags.Lang
	}

	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".mafazaa", "mafazaa.db")
		}
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks the resolved configuration. Missing credentials get a
// message that explains every way to supply them.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch {
		case fe.Field() == "SiteURL" && fe.Tag() == "required":
			return errors.New(
				"site URL not found.\n\n" +
					"Set it one of these ways:\n" +
					"  1. CLI flag:        mafazaa --site https://school.example ...\n" +
					"  2. Environment:     export " + EnvSiteURL + "=https://school.example\n" +
					"  3. config.json:     {\"site_url\": \"https://school.example\"}",
			)
		case fe.Field() == "Token" && fe.Tag() == "required":
			return errors.New(
				"web service token not found.\n\n" +
					"Set it one of these ways:\n" +
					"  1. CLI flag:        mafazaa --token YOUR_TOKEN ...\n" +
					"  2. Environment:     export " + EnvToken + "=YOUR_TOKEN\n" +
					"  3. config.json:     {\"token\": \"YOUR_TOKEN\"}\n\n" +
					"Create one under Site administration > Server > Web services > Manage tokens.",
			)
		}
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "url":
		return fmt.Sprintf("%s %q is not a valid URL", fe.Field(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "hexcolor":
		return fmt.Sprintf("%s %q is not a hex color", fe.Field(), fe.Value())
	}
	return fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
}

// RedactedToken returns the token with most characters replaced by asterisks.
// Safe for logging and display.
func (c *Config) RedactedToken() string {
	if len(c.Token) <= 4 {
		return "****"
	}
	return c.Token[:2] + "****" + c.Token[len(c.Token)-2:]
}

// loadFile attempts to read config.json from the current working directory.
// A missing file is reported with an error wrapping os.ErrNotExist.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("config.json not found at %s: %w", path, os.ErrNotExist)
		}
		return nil, "", fmt.Errorf("reading config.json: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", fmt.Errorf("parsing config.json: %w", err)
	}
	return &f, path, nil
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.SiteURL != "" {
		cfg.SiteURL = f.SiteURL
	}
	if f.Token != "" {
		cfg.Token = f.Token
	}
	if f.UserID > 0 {
		cfg.UserID = f.UserID
	}
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if f.Rate > 0 {
		cfg.Rate = f.Rate
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
	if f.Lang != "" {
		cfg.Lang = f.Lang
	}
	if len(f.ExcludeKeywords) > 0 {
		cfg.ExcludeKeywords = append([]string(nil), f.ExcludeKeywords...)
	}
	if f.DefaultColor != "" {
		cfg.DefaultColor = f.DefaultColor
	}
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config.json via `mafazaa config init`.
func Template() File {
	return File{
		DefaultFormat: DefaultFormat,
		Timeout:       "30s",
		Rate:          DefaultRate,
		Lang:          DefaultLang,
		DefaultColor:  DefaultColor,
	}
}

// ReadFile parses the config file at path.
func ReadFile(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
