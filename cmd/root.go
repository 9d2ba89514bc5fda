package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "switchboard",
	Short: "Cost-aware message dispatch across local and cloud models",
	Long: `Switchboard routes every inbound message to the cheapest layer that can
serve it: an exact keyword table, a free local model, or a cloud model
cascade gated by rate-limit health and circuit breakers. Responses to
repeatable questions are cached against repository state, and every
routing decision is recorded for audit.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".switchboard.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
