package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/locale"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
)

var localeCmd = &cobra.Command{
	Use:   "locale [lang...]",
	Short: "Show the text direction of interface languages",
	Long: `Show how each language tag is normalised and which way its text runs.
With no arguments, the configured language is shown.`,
	Example: `  mafazaa locale
  mafazaa locale ar he en_us`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		if len(args) == 0 {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			args = []string{cfg.Lang}
		}

		rows := make([][]string, 0, len(args))
		for _, lang := range args {
			rows = append(rows, []string{lang, locale.Normalize(lang), string(locale.Direction(lang))})
		}
		table := model.Table{Headers: []string{"INPUT", "LANG", "DIRECTION"}, Rows: rows}
		result := newResult(model.KindTable, "locale", table, len(rows), start)
		return output(cmd.OutOrStdout(), result, resolveFormat(""))
	},
}

func init() {
	rootCmd.AddCommand(localeCmd)
}
