// internal/runner/runner.go
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rustamqulov/solana-lander/internal/chain"
	"github.com/rustamqulov/solana-lander/internal/config"
	"github.com/rustamqulov/solana-lander/internal/events"
	"github.com/rustamqulov/solana-lander/internal/license"
	"github.com/rustamqulov/solana-lander/internal/metrics"
	"github.com/rustamqulov/solana-lander/internal/submit"
	"github.com/rustamqulov/solana-lander/internal/task"
	"github.com/rustamqulov/solana-lander/internal/wallet"
)

const (
	licenseHeartbeat     = 5 * time.Minute
	resultsFlushInterval = 2 * time.Second
	busDrainTimeout      = 3 * time.Second
	eventBufferSize      = 256
)

// Runner wires configuration, wallets, tasks and the submission pipeline
// into one batch run.
type Runner struct {
	logger     *zap.Logger
	config     *config.Config
	keyring    *wallet.Keyring
	manager    *task.Manager
	bus        *events.Bus
	metrics    *metrics.Metrics
	gate       *license.Gate
	shutdownCh chan os.Signal
}

// New принимает cfg и logger
func New(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	// Загружаем кошельки
	keyring, err := wallet.LoadKeyring(cfg.WalletsFile)
	if err != nil {
		return nil, fmt.Errorf("load wallets: %w", err)
	}
	logger.Info(fmt.Sprintf("🔐 Loaded %d wallets", keyring.Len()))

	gate := license.NewGate(license.Settings{
		Key:       cfg.License,
		AccountID: cfg.KeygenAccountID,
		ProductID: cfg.KeygenProductID,
		Token:     cfg.KeygenToken,
	}, logger)

	return &Runner{
		logger:     logger,
		config:     cfg,
		keyring:    keyring,
		manager:    task.NewManager(logger),
		bus:        events.NewBus(logger, eventBufferSize),
		metrics:    metrics.New(),
		gate:       gate,
		shutdownCh: make(chan os.Signal, 1),
	}, nil
}

// Bus exposes the event bus so a frontend can subscribe before Run starts.
func (r *Runner) Bus() *events.Bus {
	return r.bus
}

// Run executes the configured batch: validate license, load tasks, bring up
// the RPC fleet, submit everything and record the results.
func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(r.shutdownCh)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case sig := <-r.shutdownCh:
			r.logger.Info("📡 Signal received: " + sig.String())
			cancel()
		case <-runCtx.Done():
		}
	}()

	defer func() {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), busDrainTimeout)
		defer drainCancel()
		if err := r.bus.Shutdown(drainCtx); err != nil {
			r.logger.Warn("Event bus shutdown incomplete", zap.Error(err))
		}
	}()

	if err := r.gate.Check(runCtx); err != nil {
		return fmt.Errorf("license validation failed: %w", err)
	}
	r.gate.StartHeartbeat(runCtx, licenseHeartbeat)

	tasks, err := r.manager.LoadTasks(r.config.TasksFile)
	if err != nil {
		return err
	}
	r.logger.Info(fmt.Sprintf("📋 Loaded %d submission tasks", len(tasks)))

	fleet, err := chain.NewFleet(runCtx, chain.Options{
		RPCURLs:      r.config.RPCList,
		WebSocketURL: r.config.WebSocketURL,
	}, r.logger)
	if err != nil {
		return fmt.Errorf("initialize RPC fleet: %w", err)
	}
	defer fleet.Close()

	if r.config.MetricsAddr != "" {
		go func() {
			if err := r.metrics.Serve(runCtx, r.config.MetricsAddr, r.logger); err != nil {
				r.logger.Warn("Metrics server stopped", zap.Error(err))
			}
		}()
	}

	summary, err := r.execute(runCtx, fleet, tasks)
	if err != nil {
		return err
	}
	r.logSummary(summary)

	if err := runCtx.Err(); err != nil {
		return err
	}
	if summary.Confirmed < summary.Total {
		return fmt.Errorf("%d of %d submissions failed", summary.Total-summary.Confirmed, summary.Total)
	}
	return nil
}

// Summary aggregates batch outcomes for the final report.
type Summary struct {
	Total     int
	Confirmed int
	Rejected  int
	TimedOut  int
	Pending   int
	Duration  time.Duration
}

func (r *Runner) execute(ctx context.Context, client chain.Client, tasks []*task.Task) (*Summary, error) {
	coordinator := submit.NewCoordinator(client, r.submitConfig(), r.bus, r.metrics, r.logger)

	entries := make([]submit.BatchEntry, 0, len(tasks))
	for _, t := range tasks {
		tx, signer, err := t.Prepare(r.keyring)
		if err != nil {
			r.logger.Warn("Skipping task",
				zap.String("task", t.Name),
				zap.Error(err),
			)
			continue
		}
		entries = append(entries, submit.BatchEntry{Tx: tx, Signer: signer, Label: t.Name})
	}
	if len(entries) == 0 {
		return nil, errors.New("no executable tasks")
	}

	var writer *task.ResultsWriter
	if r.config.ResultsFile != "" {
		var err error
		writer, err = task.NewResultsWriter(r.config.ResultsFile, resultsFlushInterval, r.logger)
		if err != nil {
			return nil, fmt.Errorf("open results file: %w", err)
		}
		defer func() {
			if err := writer.Close(); err != nil {
				r.logger.Warn("Results writer close failed", zap.Error(err))
			}
		}()
	}

	r.logger.Info(fmt.Sprintf("🚀 Submitting %d transactions with %d workers",
		len(entries), r.config.Workers))

	started := time.Now()
	results := coordinator.SubmitBatch(ctx, entries)

	summary := &Summary{Total: len(results), Duration: time.Since(started)}
	for _, res := range results {
		switch res.Outcome {
		case submit.OutcomeConfirmed:
			summary.Confirmed++
		case submit.OutcomeRejected:
			summary.Rejected++
		case submit.OutcomeTimedOut:
			summary.TimedOut++
		default:
			summary.Pending++
		}
		if writer != nil {
			if err := writer.Append(res); err != nil {
				r.logger.Warn("Failed to record result",
					zap.String("label", res.Label),
					zap.Error(err),
				)
			}
		}
	}
	return summary, nil
}

func (r *Runner) submitConfig() submit.Config {
	level, err := chain.ParseLevel(r.config.CommitLevel)
	if err != nil {
		level = chain.LevelConfirmed
	}
	return submit.Config{
		ResendInterval:  r.config.ResendInterval,
		PollInterval:    r.config.PollInterval,
		Timeout:         r.config.SubmitTimeout,
		DiagnoseTimeout: r.config.DiagnoseTimeout,
		CommitLevel:     level,
		SkipPreflight:   r.config.SkipPreflight,
		Workers:         r.config.Workers,
	}
}

func (r *Runner) logSummary(s *Summary) {
	fields := []zap.Field{
		zap.Int("total", s.Total),
		zap.Int("confirmed", s.Confirmed),
		zap.Int("rejected", s.Rejected),
		zap.Int("timed_out", s.TimedOut),
		zap.Int("pending", s.Pending),
		zap.Duration("duration", s.Duration),
	}
	if s.Confirmed == s.Total {
		r.logger.Info("✅ All submissions confirmed", fields...)
	} else {
		r.logger.Warn("Batch finished with failures", fields...)
	}
}
