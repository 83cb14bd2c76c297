package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/analyze"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/chart"
	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
)

var summaryChart bool

var coursesSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize the whole catalog",
	Long: `Count courses by schedule, cover and star rating, and describe how long
dated courses run. Filters do not apply; the summary covers every loaded
course.`,
	Example: `  mafazaa courses summary
  mafazaa courses summary --chart`,
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

		sum := analyze.Summarize(ctrl.AllCourses(), time.Now())
		if summaryChart {
			if sum.Courses == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No courses to show.")
				return nil
			}
			items := make([]chart.Item, 0, len(sum.Ratings))
			for i := len(sum.Ratings) - 1; i >= 0; i-- {
				items = append(items, chart.Item{Label: fmt.Sprintf("%d-star", i+1), Value: sum.Ratings[i]})
			}
			return chart.Bars(cmd.OutOrStdout(), "Courses by rating", items, chart.Options{})
		}

		tbl := sum.Table()
		result := newResult(model.KindTable, "courses summary", tbl, sum.Courses, start)
		result.Stats.Generation = ctrl.Snapshot().Generation
		return output(cmd.OutOrStdout(), result, resolveFormat(deps.Config.Format))
	},
}

func init() {
	coursesCmd.AddCommand(coursesSummaryCmd)
	coursesSummaryCmd.Flags().BoolVar(&summaryChart, "chart", false,
		"draw the rating distribution as a bar chart")
}
