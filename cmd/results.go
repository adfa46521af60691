package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kilianp07/usdplan/app"
	"github.com/kilianp07/usdplan/core/model"
	"github.com/kilianp07/usdplan/core/store"
	"github.com/kilianp07/usdplan/pkg/export"
)

var (
	resultsFY        int
	resultsConverged bool
	resultsPeriod    string
	resultsFormat    string
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List stored planning results",
	RunE:  runResults,
}

func init() {
	resultsCmd.Flags().IntVar(&resultsFY, "fy", 0, "only this financial year")
	resultsCmd.Flags().BoolVar(&resultsConverged, "converged", false, "only converged runs")
	resultsCmd.Flags().StringVarP(&resultsPeriod, "period", "p", "", "print the full stored result of one month (YYYY-MM)")
	resultsCmd.Flags().StringVarP(&resultsFormat, "format", "f", "json", "summary output: json or csv")
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	return withService(func(ctx context.Context, svc *app.Service) error {
		if resultsPeriod != "" {
			p, err := model.ParsePeriod(resultsPeriod)
			if err != nil {
				return err
			}
			res, err := svc.Result(ctx, p)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		}
		sums, err := svc.Results(ctx, store.Query{FinancialYear: resultsFY, ConvergedOnly: resultsConverged})
		if err != nil {
			return err
		}
		return export.Write(cmd.OutOrStdout(), export.Format(resultsFormat), sums)
	})
}
