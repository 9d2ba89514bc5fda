package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/switchboard/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize switchboard configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure providers, breakers, and caching, and generates a .switchboard.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
