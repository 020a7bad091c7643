package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scalp-terminal/internal/logger"
	"scalp-terminal/internal/server"
	"scalp-terminal/internal/store"
	"scalp-terminal/internal/terminal"
	"scalp-terminal/internal/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the terminal config")
	instrument := flag.String("instrument", "", "start on this instrument instead of the configured active one")
	flag.Parse()

	if err := run(*configPath, *instrument); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath, startInstrument string) error {
	if err := initializeSystem(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := store.LoadConfig(configPath)
	if err != nil {
		return err
	}

	active := cfg.Active()
	if startInstrument != "" {
		inst, ok := cfg.Lookup(startInstrument)
		if !ok {
			return fmt.Errorf("instrument %q is not in the config", startInstrument)
		}
		active = inst
	}

	compressOldLogs(ctx)

	quotes, stream, err := initializeQuotes(ctx, cfg)
	if err != nil {
		return err
	}

	src, err := initializeSource(ctx, cfg, quotes)
	if err != nil {
		return err
	}

	jr, err := initializeJournal(ctx, cfg)
	if err != nil {
		return err
	}

	session := terminal.NewSession(terminal.Options{
		Mode:        types.Source(cfg.Mode),
		Instruments: cfg.Instruments,
		Active:      active,
		MTMInterval: time.Duration(cfg.MTMSeconds) * time.Second,
		ExportDir:   cfg.ExportDir,
	}, src, quotes, jr)

	var srv *server.Server
	if cfg.Dashboard.Enabled {
		srv = server.New(cfg.Dashboard.Addr, session)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		session.AttachServer(srv)
	}

	go session.RunMTM(ctx)

	runErr := session.Run(ctx, os.Stdin, os.Stdout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := session.Close(shutdownCtx); err != nil {
		logger.ErrorWithErr(shutdownCtx, "Session close failed", err)
	}
	if srv != nil {
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.ErrorWithErr(shutdownCtx, "Dashboard stop failed", err)
		}
	}
	if stream != nil {
		stream.Stop(shutdownCtx)
	}
	shutdownSystem(shutdownCtx)

	return runErr
}
