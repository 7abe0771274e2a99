// ====================================
// File: cmd/lander-tui/main.go
// ====================================
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rustamqulov/solana-lander/internal/config"
	"github.com/rustamqulov/solana-lander/internal/logger"
	"github.com/rustamqulov/solana-lander/internal/runner"
	"github.com/rustamqulov/solana-lander/internal/ui"
)

const logRingSize = 500

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Console output would corrupt the alternate screen, so logs go to the
	// file and into the ring the dashboard renders.
	ring := logger.NewRing(logRingSize)
	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	appLogger, err := logger.NewForTUI(logCfg, ring)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	r, err := runner.New(cfg, appLogger.Logger)
	if err != nil {
		appLogger.Fatal("Failed to initialize runner", zap.Error(err))
	}

	bridge := ui.NewBridge(r.Bus())
	defer bridge.Close()

	program := tea.NewProgram(
		ui.NewDashboard(bridge, ring),
		tea.WithAltScreen(),
		tea.WithContext(rootCtx),
	)

	runCtx, cancelRun := context.WithCancel(rootCtx)
	defer cancelRun()

	runDone := make(chan error, 1)
	go func() {
		err := r.Run(runCtx)
		runDone <- err
		bridge.Send(ui.RunFinishedMsg{Err: err})
	}()

	// A canceled signal context kills the program; that is a normal exit.
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		appLogger.Error("💥 Dashboard crashed", zap.Error(err))
	}

	// Quitting the dashboard stops the batch as well.
	cancelRun()
	if err := <-runDone; err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("Batch run failed", zap.Error(err))
	}
	appLogger.Info("👋 Solana Lander stopped")
}
