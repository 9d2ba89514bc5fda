package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	cacheClearProject string
	cacheClearIntent  string
	cacheClearAll     bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache hit/miss counters and token savings",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cfgFile)
		if err != nil {
			return err
		}
		defer app.Close()

		stats := app.cache.Statistics()
		fmt.Println("Cache Statistics")
		fmt.Println("================")
		fmt.Printf("  Entries:       %d (%d expired)\n", stats.Entries, stats.Expired)
		fmt.Printf("  Hits:          %d\n", stats.Hits)
		fmt.Printf("  Misses:        %d\n", stats.Misses)
		fmt.Printf("  Hit rate:      %.1f%%\n", stats.HitRate*100)
		fmt.Printf("  Writes:        %d\n", stats.Writes)
		fmt.Printf("  Evictions:     %d\n", stats.Evictions)
		fmt.Printf("  Tokens saved:  %d\n", stats.TokensSaved)
		return nil
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired cache entries now",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cfgFile)
		if err != nil {
			return err
		}
		defer app.Close()

		n, err := app.cache.ClearExpired()
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}
		fmt.Printf("Swept %d expired entries.\n", n)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Invalidate cache entries by project, intent, or entirely",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cfgFile)
		if err != nil {
			return err
		}
		defer app.Close()

		var n int64
		switch {
		case cacheClearProject != "":
			n, err = app.cache.ClearByProject(cacheClearProject, "cli clear")
		case cacheClearIntent != "":
			n, err = app.cache.ClearByIntent(cacheClearIntent, "cli clear")
		case cacheClearAll:
			n, err = app.cache.ClearAll("cli clear")
		default:
			return fmt.Errorf("one of --project, --intent, or --all is required")
		}
		if err != nil {
			return fmt.Errorf("clear failed: %w", err)
		}
		fmt.Printf("Cleared %d entries.\n", n)
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().StringVar(&cacheClearProject, "project", "", "clear entries for one project")
	cacheClearCmd.Flags().StringVar(&cacheClearIntent, "intent", "", "clear entries for one intent")
	cacheClearCmd.Flags().BoolVar(&cacheClearAll, "all", false, "clear every entry")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
