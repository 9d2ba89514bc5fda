package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/switchboard/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing dispatch, route preview, provider health, and cache tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cfgFile)
		if err != nil {
			return err
		}
		defer app.Close()

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "switchboard MCP server started on stdio (mode=%s)\n", app.cfg.Mode)

		srv := mcpserver.NewServer(app.gw, app.router, app.monitor, app.tracker, app.cache)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
