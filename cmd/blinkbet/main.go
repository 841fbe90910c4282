package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/blinkbet/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	mode := flag.String("mode", "serve", "serve | sweep | report | fund | check")
	dryRun := flag.Bool("dry-run", false, "use in-memory storage and ledger")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	reportFormat := flag.String("report", "table", "report format: table|compact|json")
	account := flag.String("account", "", "ledger account to fund (fund mode)")
	amount := flag.Uint64("amount", 0, "units to mint into -account (fund mode)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("blinkbet starting",
		"config", *configPath,
		"mode", *mode,
		"dry_run", *dryRun,
		"pool_account", cfg.Engine.PoolAccount,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	b, err := openBackend(cfg, *dryRun)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer b.Close()

	switch *mode {
	case "serve":
		err = runServe(ctx, cfg, b)
	case "sweep":
		err = runSweep(ctx, cfg, b)
	case "report":
		err = runReport(ctx, cfg, b, *reportFormat)
	case "fund":
		err = runFund(ctx, b, *account, *amount)
	case "check":
		err = runCheck(ctx, cfg, b)
	default:
		slog.Error("unknown mode", "mode", *mode)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("blinkbet exited with error", "mode", *mode, "err", err)
		os.Exit(1)
	}

	slog.Info("blinkbet stopped cleanly")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
