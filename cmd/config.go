package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/config"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage mafazaa configuration",
	Long:  `Read and write mafazaa configuration stored in config.json.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "✓ Created %s\n", path)
		fmt.Fprintln(w, "  Set site_url and token to get started:")
		fmt.Fprintln(w, "    mafazaa config set site_url https://school.example")
		fmt.Fprintln(w, "    mafazaa config set token YOUR_TOKEN")
		return nil
	},
}

var configGetShowSecrets bool

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		token := cfg.RedactedToken()
		if configGetShowSecrets {
			token = cfg.Token
		}
		if cfg.Token == "" {
			token = "(not set)"
		}
		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}

		rows := [][]string{
			{"site_url", cfg.SiteURL},
			{"token", token},
			{"user_id", strconv.Itoa(cfg.UserID)},
			{"default_format", cfg.Format},
			{"timeout", cfg.Timeout.String()},
			{"rate", fmt.Sprintf("%.1f req/s", cfg.Rate)},
			{"db_path", cfg.DBPath},
			{"lang", cfg.Lang},
			{"exclude_keywords", strings.Join(cfg.ExcludeKeywords, ",")},
			{"default_color", cfg.DefaultColor},
			{"config_file", src},
		}

		w := cmd.OutOrStdout()
		if resolveFormat(cfg.Format) == render.FormatJSON {
			out := make(map[string]string, len(rows))
			for _, r := range rows {
				out[r[0]] = r[1]
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}
		printSimpleTable(w, []string{"KEY", "VALUE"}, func(add func(...string)) {
			for _, r := range rows {
				add(r...)
			}
		})
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "\n⚠  %v\n", err)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Args:  cobra.ExactArgs(2),
	Example: `  mafazaa config set site_url https://school.example
  mafazaa config set exclude_keywords academy,sandbox`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		path := config.DefaultConfigFile

		f, err := config.ReadFile(path)
		if os.IsNotExist(err) {
			f = config.Template()
		} else if err != nil {
			return err
		}
		if err := setConfigKey(&f, key, args[1]); err != nil {
			return err
		}
		if err := config.WriteFile(path, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", key, path)
		return nil
	},
}

// setConfigKey parses val into the field named key.
func setConfigKey(f *config.File, key, val string) error {
	switch key {
	case "site_url", "site":
		f.SiteURL = strings.TrimRight(val, "/")
	case "token":
		f.Token = val
	case "user_id", "user":
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return fmt.Errorf("user_id must be a non-negative integer")
		}
		f.UserID = n
	case "default_format", "format":
		f.DefaultFormat = val
	case "timeout":
		f.Timeout = val
	case "rate":
		r, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("rate must be a number")
		}
		f.Rate = r
	case "db_path":
		f.DBPath = val
	case "lang":
		f.Lang = val
	case "exclude_keywords":
		f.ExcludeKeywords = nil
		for _, k := range strings.Split(val, ",") {
			if k = strings.TrimSpace(k); k != "" {
				f.ExcludeKeywords = append(f.ExcludeKeywords, k)
			}
		}
	case "default_color":
		f.DefaultColor = val
	default:
		return fmt.Errorf("unknown config key: %q\n\nValid keys: site_url, token, user_id, default_format, timeout, rate, db_path, lang, exclude_keywords, default_color", key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configGetCmd.Flags().BoolVar(&configGetShowSecrets, "show-secrets", false, "show the token in plain text")
}
