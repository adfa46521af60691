package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/usdplan/app"
	"github.com/kilianp07/usdplan/core/store"
)

var yearFY int

var yearCmd = &cobra.Command{
	Use:   "year",
	Short: "Plan the twelve months of a financial year",
	RunE:  runYear,
}

func init() {
	yearCmd.Flags().IntVar(&yearFY, "fy", 0, "financial year, April fy to March fy+1")
	_ = yearCmd.MarkFlagRequired("fy")
	rootCmd.AddCommand(yearCmd)
}

type monthOutcome struct {
	store.Summary
	Error string `json:"error,omitempty"`
}

type yearOutput struct {
	FinancialYear int            `json:"financial_year"`
	Converged     int            `json:"converged"`
	Months        []monthOutcome `json:"months"`
}

func runYear(cmd *cobra.Command, args []string) error {
	return withService(func(ctx context.Context, svc *app.Service) error {
		rep, err := svc.SolveYear(ctx, yearFY)
		if err != nil {
			return err
		}
		now := time.Now()
		out := yearOutput{FinancialYear: rep.FinancialYear, Converged: rep.Converged()}
		for _, res := range rep.Results {
			m := monthOutcome{Summary: store.Summarize(res, now)}
			if ferr, ok := rep.Failures[res.Period]; ok {
				m.Error = ferr.Error()
			}
			out.Months = append(out.Months, m)
		}
		if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
		if n := len(rep.Failures); n > 0 {
			return fmt.Errorf("%d of %d months failed", n, len(rep.Results))
		}
		return nil
	})
}
