package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ziadkadry99/switchboard/internal/breaker"
	"github.com/ziadkadry99/switchboard/internal/cache"
	"github.com/ziadkadry99/switchboard/internal/classify"
	"github.com/ziadkadry99/switchboard/internal/config"
	"github.com/ziadkadry99/switchboard/internal/db"
	"github.com/ziadkadry99/switchboard/internal/decision"
	"github.com/ziadkadry99/switchboard/internal/gateway"
	"github.com/ziadkadry99/switchboard/internal/health"
	"github.com/ziadkadry99/switchboard/internal/llm"
	"github.com/ziadkadry99/switchboard/internal/logging"
	"github.com/ziadkadry99/switchboard/internal/route"
)

// app is the assembled dispatch stack shared by the runtime commands.
type app struct {
	cfg       *config.Config
	log       *logging.Logger
	database  *db.DB
	tracker   *health.Tracker
	snapshots *health.SnapshotStore
	monitor   *health.Monitor
	breakers  *breaker.Breaker
	cache     *cache.Cache
	resolver  *cache.StateResolver
	decisions *decision.Store
	router    *route.Router
	gw        *gateway.Gateway
}

// rateLimitedLocal throttles completions to the local daemon while
// keeping the liveness probe reachable.
type rateLimitedLocal struct {
	llm.Provider
	ollama *llm.OllamaProvider
}

func (p *rateLimitedLocal) Alive(ctx context.Context) bool { return p.ollama.Alive(ctx) }

// buildApp loads the config and wires the full pipeline. Cloud
// providers with missing credentials are skipped with a warning; the
// dispatch cascade degrades around them.
func buildApp(cfgFile string) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logLevel := cfg.Logging.Level
	if verbose {
		logLevel = "debug"
	}
	log := logging.NewWithConfig(logLevel, cfg.Logging.Format, cfg.Logging.File)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tracker := health.NewTracker(health.NewSnapshotStore(database), log.Component("health"))
	breakers := breaker.New(log.Component("breaker"))
	responseCache := cache.New(database, cfg.Cache.ExcludeProjects, log.Component("cache"))
	decisions := decision.NewStore(database)

	var resolver *cache.StateResolver
	if cfg.Cache.ProjectsRoot != "" {
		resolver = cache.NewStateResolver(cfg.Cache.ProjectsRoot, log.Component("cache"))
	}

	// Local model. The daemon may be down; Alive gates every use.
	ollama := llm.NewOllamaProvider(cfg.Providers.Ollama.URL, cfg.Providers.Ollama.Model)
	var local classify.LocalModel = ollama
	if cfg.Providers.Ollama.MaxRPM > 0 {
		local = &rateLimitedLocal{
			Provider: llm.NewRateLimitedProvider(ollama, cfg.Providers.Ollama.MaxRPM),
			ollama:   ollama,
		}
	}

	primary := buildCloud(log, "openai", llm.ProviderSpec{
		Type:      "openai",
		Model:     cfg.Providers.OpenAI.Model,
		APIKeyEnv: cfg.Providers.OpenAI.APIKeyEnv,
	})
	var backup classify.CloudBackend
	if cfg.Providers.Backup.Type != "" {
		backup = buildCloud(log, string(cfg.Providers.Backup.Type), llm.ProviderSpec{
			Type:      string(cfg.Providers.Backup.Type),
			Model:     cfg.Providers.Backup.Model,
			BaseURL:   cfg.Providers.Backup.URL,
			APIKeyEnv: cfg.Providers.Backup.APIKeyEnv,
		})
	}

	backupKey := ""
	if cfg.Providers.Backup.Type != "" {
		backupKey = health.Key(string(cfg.Providers.Backup.Type), cfg.Providers.Backup.Model)
	}
	monitor := health.NewMonitor(tracker,
		cfg.Providers.Ollama.URL,
		health.Key("openai", cfg.Providers.OpenAI.Model),
		backupKey,
		time.Duration(cfg.Health.CacheTTLSec)*time.Second)
	if primary.Provider != nil {
		monitor.SetCloudProbe(cloudProbe(primary))
	}

	keywords, err := route.LoadKeywordRegistry(cfg.KeywordsPath)
	if err != nil {
		database.Close()
		log.Close()
		return nil, fmt.Errorf("loading keyword registry: %w", err)
	}

	router := route.NewRouter(cfg.Mode, keywords, breakers)
	classifier := classify.New(local, cfg.Providers.Ollama.Model, primary, backup,
		tracker, log.Component("classify"))

	gw := gateway.New(gateway.Deps{
		Classifier:      classifier,
		Router:          router,
		Monitor:         monitor,
		Tracker:         tracker,
		Breakers:        breakers,
		Cache:           responseCache,
		Resolver:        resolver,
		Decisions:       decisions,
		Sessions:        gateway.NewSessionStore(cfg.Session.MaxMessages, cfg.Session.ContextWindow),
		Local:           local,
		LocalModel:      cfg.Providers.Ollama.Model,
		Primary:         primary,
		Backup:          backup,
		BreakerPolicies: cfg.Breakers,
		Logger:          log.Component("gateway"),
	})

	return &app{
		cfg:       cfg,
		log:       log,
		database:  database,
		tracker:   tracker,
		snapshots: health.NewSnapshotStore(database),
		monitor:   monitor,
		breakers:  breakers,
		cache:     responseCache,
		resolver:  resolver,
		decisions: decisions,
		router:    router,
		gw:        gw,
	}, nil
}

// cloudProbe returns a one-token completion check against the backend,
// used by the monitor to spot hard outages the rate-limit headers
// never report.
func cloudProbe(backend classify.CloudBackend) health.CloudProbe {
	return func(ctx context.Context) bool {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_, err := backend.Provider.Complete(ctx, llm.CompletionRequest{
			Model:     backend.Model,
			Messages:  []llm.Message{{Role: llm.RoleUser, Content: "health-check"}},
			MaxTokens: 1,
		})
		return err == nil
	}
}

// buildCloud constructs one cloud backend, or an empty one when its
// credential is absent.
func buildCloud(log *logging.Logger, name string, spec llm.ProviderSpec) classify.CloudBackend {
	provider, err := llm.NewProvider(spec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s backend disabled: %v\n", name, err)
		return classify.CloudBackend{}
	}
	return classify.CloudBackend{Provider: provider, Model: spec.Model}
}

func (a *app) Close() {
	a.database.Close()
	a.log.Close()
}
