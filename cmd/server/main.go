package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solwire/solwire/service/config"
	"github.com/solwire/solwire/service/db"
	"github.com/solwire/solwire/service/events"
	"github.com/solwire/solwire/service/jupiter"
	"github.com/solwire/solwire/service/metrics"
	"github.com/solwire/solwire/service/pipeline"
	"github.com/solwire/solwire/service/resolve"
	"github.com/solwire/solwire/service/server"
	solanasvc "github.com/solwire/solwire/service/solana"
	"github.com/solwire/solwire/service/token"
)

func main() {
	// Load and validate configuration from environment.
	// This fails fast if any required config is missing or invalid.
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"solana_rpc", cfg.SolanaRPCURL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics(nil)

	// Chain RPC client; the transaction builder and the name-service registry
	// fallback share it.
	rpcClient := solanasvc.NewRPCClient(cfg.SolanaRPCURL)
	chainClient := solanasvc.NewClient(rpcClient, cfg.SolanaRPCURL, m, logger)

	// Jupiter quote/swap/token clients.
	jup := jupiter.NewClient(cfg.JupiterQuoteURL, cfg.JupiterSwapURL, cfg.JupiterTokenURL, nil, m, logger)

	// Token resolver over the known registry plus the token search service.
	tokens := token.NewResolver(jup, logger)

	// Destination resolution chain: generic provider first (broad coverage),
	// then the specialized .sol provider with its internal fallbacks.
	var providers []resolve.Provider
	if cfg.AllDomainsURL != "" {
		providers = append(providers, resolve.NewAllDomains(cfg.AllDomainsURL, nil, m, logger))
	}
	providers = append(providers, resolve.NewSNS(cfg.SNSProxyURL, nil, chainClient, m, logger))
	chain := resolve.NewChain(logger, m, providers...)

	// Optional construction audit log.
	var audit pipeline.Recorder
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}

		store := db.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure database schema", "error", err)
			os.Exit(1)
		}
		audit = store
		logger.Info("construction audit log enabled")
	} else {
		logger.Info("DATABASE_URL not set, audit log disabled")
	}

	// Optional construction event publishing.
	var publisher pipeline.EventPublisher
	if cfg.NATSURL != "" {
		p, err := events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to initialize NATS publisher", "error", err)
			os.Exit(1)
		}
		defer p.Close()
		publisher = p
	} else {
		logger.Info("NATS_URL not set, event publishing disabled")
	}

	orchestrator := pipeline.New(chain, tokens, jup, chainClient, audit, publisher, m, logger, cfg.DefaultSlippageBps)

	httpServer := server.New(cfg.ServerAddr, orchestrator, tokens, chain, m, logger)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
