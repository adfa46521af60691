package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/usdplan/core/lookup"
	fileprovider "github.com/kilianp07/usdplan/infra/provider"
)

var (
	curveKind string
	curveLoad float64
)

var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Read the GT or STG performance curve of the plant file at a load",
	RunE:  runCurve,
}

func init() {
	curveCmd.Flags().StringVarP(&curveKind, "kind", "k", "gt", "curve to read: gt or stg")
	curveCmd.Flags().Float64VarP(&curveLoad, "load", "l", 0, "unit load in MW")
	rootCmd.AddCommand(curveCmd)
}

func runCurve(cmd *cobra.Command, args []string) error {
	src, err := fileprovider.Load(cfg.Snapshot.Path)
	if err != nil {
		return err
	}
	curves, err := src.Curves(context.Background())
	if err != nil {
		return err
	}
	switch strings.ToLower(curveKind) {
	case "gt":
		c, err := lookup.NewGTCurve(curves.GT)
		if err != nil {
			return err
		}
		perf, err := c.At(curveLoad)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), perf)
	case "stg":
		c, err := lookup.NewSTGCurve(curves.STG)
		if err != nil {
			return err
		}
		ext, err := c.At(curveLoad)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), ext)
	default:
		return fmt.Errorf("unknown curve kind %q", curveKind)
	}
}
