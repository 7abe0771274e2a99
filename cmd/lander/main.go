// ====================================
// File: cmd/lander/main.go
// ====================================
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/rustamqulov/solana-lander/internal/config"
	"github.com/rustamqulov/solana-lander/internal/logger"
	"github.com/rustamqulov/solana-lander/internal/runner"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	appLogger, err := logger.New(logCfg)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("🚀 Starting Solana Lander",
		zap.Strings("rpc", cfg.MaskedRPCList()),
		zap.String("commit_level", cfg.CommitLevel),
		zap.Int("workers", cfg.Workers))

	r, err := runner.New(cfg, appLogger.Logger)
	if err != nil {
		appLogger.Fatal("Failed to initialize runner", zap.Error(err))
	}

	if err := r.Run(context.Background()); err != nil {
		if errors.Is(err, context.Canceled) {
			appLogger.Info("👋 Interrupted, shutting down")
			return
		}
		appLogger.Error("Run failed", zap.Error(err))
		_ = appLogger.Sync()
		os.Exit(1)
	}
}
