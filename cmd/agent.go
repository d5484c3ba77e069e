package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	agentpkg "github.com/shanmukhchodagam/workhub/internal/agent"
	"github.com/shanmukhchodagam/workhub/internal/bus"
	"github.com/shanmukhchodagam/workhub/internal/config"
	"github.com/shanmukhchodagam/workhub/internal/executor"
	"github.com/shanmukhchodagam/workhub/internal/providers"
)

func agentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agent",
		Short: "Run the classification agent as a separate process",
		Run: func(cmd *cobra.Command, args []string) {
			runAgent()
		},
	}
}

func runAgent() {
	setupLogging()
	cfg := loadConfig()
	if cfg.Bus.Mode != "rabbit" {
		slog.Error("the standalone agent needs bus mode rabbit; memory mode runs it inside the relay")
		os.Exit(1)
	}
	stores := openStores(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rb, err := bus.DialRabbit(ctx, bus.DialOptions{URL: cfg.Bus.URL, Exchange: cfg.Bus.Exchange})
	if err != nil {
		slog.Error("failed to connect to bus", "error", err)
		os.Exit(1)
	}
	defer rb.Close()

	ag := agentpkg.New(buildPipeline(cfg), executor.New(stores.Work), rb)
	ag.Attach(rb)

	if err := rb.Start(ctx, "workhub-agent"); err != nil {
		slog.Error("failed to start consumer", "error", err)
		os.Exit(1)
	}
	slog.Info("agent started, consuming worker messages")

	<-ctx.Done()
	slog.Info("agent shutting down")
}

func buildProvider(cfg *config.Config) providers.Provider {
	if cfg.Model.APIKey == "" {
		return nil
	}
	return providers.NewOpenAIProvider(cfg.Model.Provider, cfg.Model.APIKey, cfg.Model.APIBase, cfg.Model.Model)
}

func modelTimeout(cfg *config.Config) time.Duration {
	if cfg.Model.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(cfg.Model.TimeoutSeconds) * time.Second
}
