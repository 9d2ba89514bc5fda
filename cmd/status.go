package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show provider health and rate-limit state",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cfgFile)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		fmt.Println(app.gw.Status(ctx))

		stats := app.tracker.Stats()
		if stats.Tracked > 0 {
			fmt.Printf("\nRate limit headroom (%d green / %d yellow / %d red):\n",
				stats.Green, stats.Yellow, stats.Red)
			for key, p := range stats.Providers {
				line := fmt.Sprintf("  %-24s %-7s requests %.0f%%  tokens %.0f%%",
					key, p.Status, p.RequestsPct, p.TokensPct)
				if p.SecondsUntilReset > 0 {
					line += fmt.Sprintf("  (reset in %ds)", p.SecondsUntilReset)
				}
				fmt.Println(line)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
