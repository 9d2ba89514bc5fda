package cmd

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/switchboard/internal/health"
	"github.com/ziadkadry99/switchboard/internal/progress"
	"github.com/ziadkadry99/switchboard/internal/route"
)

var (
	benchCount      int
	benchSeed       int64
	benchOllamaDown bool
	benchOpenAIDown bool
)

// benchMessages is a synthetic traffic mix: exact commands, small talk,
// cheap questions, and escalation-worthy engineering requests.
var benchMessages = []string{
	"status",
	"help",
	"thanks!",
	"good morning",
	"how do I restart the worker",
	"what does the uptime look like",
	"can you summarize yesterday's standup notes",
	"I hit a traceback running the deploy script",
	"review this pull request when you get a chance",
	"the auth token might be exposed in the logs",
	"sketch the system design for the ingest service",
	"docker keeps restarting the container, why",
	"tell me something interesting",
	"what is the roadmap for next quarter",
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run synthetic traffic through the router and report the layer distribution",
	Long: `Routes a synthetic message mix without dispatching anything, then prints
how requests would be distributed across the serving layers under the
configured mode and the simulated provider availability.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cfgFile)
		if err != nil {
			return err
		}
		defer app.Close()

		snap := health.SystemSnapshot{
			CheckedAt: time.Now().UTC(),
			OllamaUp:  !benchOllamaDown,
			OpenAIUp:  !benchOpenAIDown,
		}

		rng := rand.New(rand.NewSource(benchSeed))
		layers := make(map[string]int)
		intents := make(map[string]int)
		escalated := 0

		reporter := progress.NewReporter("Routing synthetic traffic")
		reporter.Start(benchCount)
		for i := 0; i < benchCount; i++ {
			text := benchMessages[rng.Intn(len(benchMessages))]
			priority := "normal"
			if rng.Float64() < 0.05 {
				priority = "high"
			}

			decided := app.router.Route(route.Envelope{
				RequestID: uuid.NewString(),
				UserID:    "bench",
				Text:      text,
				Priority:  priority,
			}, snap)

			layers[string(decided.Record.Layer)]++
			intents[decided.Record.Intent]++
			if decided.Escalation.Triggered {
				escalated++
			}
			reporter.Update(i+1, text)
		}
		reporter.Finish()

		fmt.Printf("Routed %d requests (mode=%s, ollama=%v, openai=%v)\n\n",
			benchCount, app.cfg.Mode, snap.OllamaUp, snap.OpenAIUp)

		fmt.Println("Layer distribution:")
		for _, layer := range []string{"keyword", "ollama", "openai", "fallback"} {
			n := layers[layer]
			fmt.Printf("  %-10s %6d  (%5.1f%%)\n", layer, n, 100*float64(n)/float64(benchCount))
		}

		fmt.Println("\nIntent distribution:")
		for intent, n := range intents {
			fmt.Printf("  %-14s %6d\n", intent, n)
		}

		fmt.Printf("\nEscalation triggered: %d (%.1f%%)\n",
			escalated, 100*float64(escalated)/float64(benchCount))

		return nil
	},
}

func init() {
	benchCmd.Flags().IntVar(&benchCount, "count", 1000, "number of synthetic requests")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", 1, "random seed for the traffic mix")
	benchCmd.Flags().BoolVar(&benchOllamaDown, "ollama-down", false, "simulate the local model being down")
	benchCmd.Flags().BoolVar(&benchOpenAIDown, "openai-down", false, "simulate the cloud being down")
	rootCmd.AddCommand(benchCmd)
}
