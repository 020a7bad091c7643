package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"scalp-terminal/internal/broker/sim"
	"scalp-terminal/internal/broker/zerodha"
	"scalp-terminal/internal/interfaces"
	"scalp-terminal/internal/journal"
	"scalp-terminal/internal/logger"
	"scalp-terminal/internal/source"
	"scalp-terminal/internal/source/sourceobs"
	"scalp-terminal/internal/store"
	"scalp-terminal/internal/trace"
	"scalp-terminal/internal/tradelog"
)

// initializeSystem loads the environment and brings up logging and tracing.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func shutdownSystem(ctx context.Context) {
	if err := trace.Shutdown(ctx); err != nil {
		logger.Warn(ctx, "Tracer shutdown failed", "error", err)
	}
	if err := logger.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Logger shutdown failed: %v\n", err)
	}
}

// compressOldLogs gzips trade logs older than the retention window.
func compressOldLogs(ctx context.Context) {
	v := os.Getenv("TERMINAL_LOG_RETENTION_DAYS")
	if v == "" {
		return
	}
	var n int
	fmt.Sscanf(v, "%d", &n)
	if err := tradelog.CompressOlder(n); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
}

// initializeQuotes builds the quote provider for the configured data source.
// LIVE verifies a Kite session and starts the ticker stream; SIM runs without
// credentials.
func initializeQuotes(ctx context.Context, cfg *store.Config) (interfaces.QuoteProvider, *zerodha.Stream, error) {
	if cfg.DataSource != "LIVE" {
		logger.Info(ctx, "Using simulated quotes, no broker session required")
		return sim.New(time.Now().UnixNano()), nil, nil
	}

	params := zerodha.Params{
		APIKey:      os.Getenv("KITE_API_KEY"),
		AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
	}
	if params.APIKey == "" || params.AccessToken == "" {
		return nil, nil, fmt.Errorf("LIVE data source needs KITE_API_KEY and KITE_ACCESS_TOKEN")
	}

	client := zerodha.NewClient(params)
	if _, err := client.VerifySession(ctx); err != nil {
		return nil, nil, err
	}

	tokens, err := client.ResolveTokens(ctx, cfg.Instruments)
	if err != nil {
		return nil, nil, err
	}

	stream := zerodha.NewStream(params)
	if err := stream.Start(ctx, tokens); err != nil {
		return nil, nil, err
	}
	client.AttachStream(stream)

	return client, stream, nil
}

// initializeSource builds the fill source for the configured mode, wrapped
// with the observability middleware.
func initializeSource(ctx context.Context, cfg *store.Config, quotes interfaces.QuoteProvider) (interfaces.FillSource, error) {
	if cfg.Mode == "REAL" {
		client, ok := quotes.(*zerodha.Client)
		if !ok {
			return nil, fmt.Errorf("REAL mode requires the LIVE data source")
		}
		logger.Warn(ctx, "REAL mode, orders will hit the exchange")
		return sourceobs.Wrap(source.NewBroker(client)), nil
	}

	logger.Info(ctx, "PAPER mode, fills are simulated against the live book")
	return sourceobs.Wrap(source.NewPaper(quotes)), nil
}

// initializeJournal opens the configured fill journal.
func initializeJournal(ctx context.Context, cfg *store.Config) (journal.Journal, error) {
	jr, err := journal.Open(cfg.Journal.Driver, cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if cfg.Journal.Driver == "sqlite" {
		logger.Info(ctx, "Journaling fills to sqlite", "path", cfg.Journal.Path)
	}
	return jr, nil
}
