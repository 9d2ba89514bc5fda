package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/switchboard/internal/decision"
	"github.com/ziadkadry99/switchboard/internal/health"
	"github.com/ziadkadry99/switchboard/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dispatch HTTP server",
	Long: `Starts the switchboard HTTP server: message dispatch, WebSocket chat,
cache and health inspection, the decision log, and Prometheus metrics.
A background cron job sweeps expired cache entries on the configured
schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cfgFile)
		if err != nil {
			return err
		}
		defer app.Close()

		port := servePort
		if port == 0 {
			port = app.cfg.Server.Port
		}

		srv := server.New(server.Config{Port: port, AllowAll: true}, app.database)

		r := srv.Router()
		app.gw.RegisterRoutes(r)
		app.cache.RegisterRoutes(r)
		health.RegisterRoutes(r, app.tracker, app.monitor, app.snapshots)
		decision.RegisterRoutes(r, app.decisions)

		sweeper := cron.New()
		if _, err := sweeper.AddFunc(app.cfg.Cache.SweepSchedule, func() {
			n, err := app.cache.ClearExpired()
			if err != nil {
				app.log.Component("cache").Warn("sweep failed", "error", err)
				return
			}
			if n > 0 {
				app.log.Component("cache").Info("swept expired entries", "count", n)
			}
		}); err != nil {
			return fmt.Errorf("invalid sweep schedule %q: %w", app.cfg.Cache.SweepSchedule, err)
		}
		sweeper.Start()
		defer sweeper.Stop()

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			srv.Shutdown(context.Background())
		}()

		fmt.Fprintf(os.Stderr, "switchboard v%s starting on port %d\n", Version, port)
		fmt.Fprintf(os.Stderr, "  Mode:     %s\n", app.cfg.Mode)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", app.cfg.DBPath)
		fmt.Fprintf(os.Stderr, "  Keywords: %s\n", app.cfg.KeywordsPath)

		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
