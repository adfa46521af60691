package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/usdplan/app"
	"github.com/kilianp07/usdplan/core/model"
	"github.com/kilianp07/usdplan/core/store"
)

var (
	solvePeriod  string
	solveSummary bool
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Plan one month and print the result",
	RunE:  runSolve,
}

func init() {
	solveCmd.Flags().StringVarP(&solvePeriod, "period", "p", "", "month to plan as YYYY-MM")
	solveCmd.Flags().BoolVar(&solveSummary, "summary", false, "print the summary instead of the full result")
	_ = solveCmd.MarkFlagRequired("period")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	p, err := model.ParsePeriod(solvePeriod)
	if err != nil {
		return err
	}
	return withService(func(ctx context.Context, svc *app.Service) error {
		res, runErr := svc.Solve(ctx, p)
		if runErr != nil && !app.IsPlanningError(runErr) {
			return runErr
		}
		var out any = res
		if solveSummary {
			out = store.Summarize(res, time.Now())
		}
		if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
			return errors.Join(runErr, err)
		}
		return runErr
	})
}
