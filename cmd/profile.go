package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the signed-in user and their avatar",
	Long: `Show the user the token belongs to (or --user) with their avatar URL.

When the profile cannot be fetched or has no picture, the picture reported
with the site info is shown instead.`,
	Example: `  mafazaa profile
  mafazaa profile --user 42 --format json`,
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

		profile := ctrl.LoadProfile(ctx, siteInfo(ctx, deps))
		result := newResult(model.KindProfile, "profile", profile, 1, start)
		return output(cmd.OutOrStdout(), result, resolveFormat(deps.Config.Format))
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
}
