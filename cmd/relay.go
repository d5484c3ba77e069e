package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	agentpkg "github.com/shanmukhchodagam/workhub/internal/agent"
	"github.com/shanmukhchodagam/workhub/internal/bus"
	"github.com/shanmukhchodagam/workhub/internal/classify"
	"github.com/shanmukhchodagam/workhub/internal/config"
	"github.com/shanmukhchodagam/workhub/internal/executor"
	"github.com/shanmukhchodagam/workhub/internal/registry"
	"github.com/shanmukhchodagam/workhub/internal/relay"
	"github.com/shanmukhchodagam/workhub/internal/store"
	"github.com/shanmukhchodagam/workhub/internal/store/mem"
	"github.com/shanmukhchodagam/workhub/internal/store/pg"
)

func relayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Run the websocket relay",
		Run: func(cmd *cobra.Command, args []string) {
			runRelay()
		},
	}
}

func setupLogging() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))
}

func loadConfig() *config.Config {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	return cfg
}

func openStores(cfg *config.Config) *store.Stores {
	if cfg.Database.PostgresDSN == "" {
		slog.Warn("WORKHUB_POSTGRES_DSN not set, using in-memory store")
		return mem.New().Stores()
	}
	stores, _, err := pg.NewPGStores(cfg.Database.PostgresDSN)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	return stores
}

func runRelay() {
	setupLogging()
	cfg := loadConfig()
	stores := openStores(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := registry.New()

	var pub bus.Publisher
	var sub bus.Subscriber
	inProcessAgent := cfg.Bus.Mode == "memory"
	if inProcessAgent {
		mb := bus.NewMemoryBus()
		pub, sub = mb, mb
	} else {
		rb, err := bus.DialRabbit(ctx, bus.DialOptions{URL: cfg.Bus.URL, Exchange: cfg.Bus.Exchange})
		if err != nil {
			slog.Error("failed to connect to bus", "error", err)
			os.Exit(1)
		}
		defer rb.Close()
		pub, sub = rb, rb
	}

	router := relay.NewRouter(stores, reg, pub)
	server := relay.NewServer(cfg, reg, router)
	server.AttachReplyConsumer(sub)

	// Memory mode runs the classification agent inside the relay process.
	if inProcessAgent {
		ag := agentpkg.New(buildPipeline(cfg), executor.New(stores.Work), pub)
		ag.Attach(sub)
		slog.Info("running classification agent in-process")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sub.Start(gctx, "workhub-relay")
	})
	g.Go(func() error {
		return server.Start(gctx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("relay exited", "error", err)
		os.Exit(1)
	}
}

func buildPipeline(cfg *config.Config) *classify.Pipeline {
	var secondary classify.Secondary
	var responder classify.Responder
	if p := buildProvider(cfg); p != nil {
		timeout := modelTimeout(cfg)
		secondary = classify.NewLLMClassifier(p, cfg.Model.Model, timeout)
		responder = classify.NewLLMResponder(p, cfg.Model.Model, timeout)
	} else {
		slog.Warn("no model API key configured, running rule-based only")
	}
	return classify.NewPipeline(secondary, responder)
}
