package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"tankarena/internal/config"
	"tankarena/internal/server"
	"tankarena/pkg/logger"
)

func main() {
	configPath := flag.String("config", config.DefaultFile, "Path to TOML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite event log path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logger.Log.WithError(err).Fatal("load config")
	}
	if *addr != "" {
		cfg.Server.Listen = *addr
	}
	if *dbPath != "" {
		cfg.Server.DB = *dbPath
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg.Server); err != nil {
		logger.Log.WithError(err).Fatal("server stopped")
	}
	logger.Log.Info("server stopped")
}
