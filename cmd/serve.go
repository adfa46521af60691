package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kilianp07/usdplan/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer planning requests received over MQTT",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *app.Service) error {
			return svc.Serve(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
