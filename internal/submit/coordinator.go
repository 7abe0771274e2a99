// =============================================
// File: internal/submit/coordinator.go
// =============================================
package submit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rustamqulov/solana-lander/internal/chain"
	"github.com/rustamqulov/solana-lander/internal/events"
	"github.com/rustamqulov/solana-lander/internal/metrics"
)

const (
	defaultResendInterval  = 500 * time.Millisecond
	defaultPollInterval    = 500 * time.Millisecond
	defaultSubmitTimeout   = 30 * time.Second
	defaultDiagnoseTimeout = 10 * time.Second
	defaultWorkers         = 5
)

// Config tunes the coordinator. Zero values fall back to the package
// defaults.
type Config struct {
	ResendInterval  time.Duration
	PollInterval    time.Duration
	Timeout         time.Duration
	DiagnoseTimeout time.Duration
	CommitLevel     chain.ConfirmationLevel
	SkipPreflight   bool
	Workers         int
}

func (c *Config) normalize() {
	if c.ResendInterval <= 0 {
		c.ResendInterval = defaultResendInterval
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultSubmitTimeout
	}
	if c.DiagnoseTimeout <= 0 {
		c.DiagnoseTimeout = defaultDiagnoseTimeout
	}
	if c.CommitLevel == chain.LevelUnknown {
		c.CommitLevel = chain.LevelConfirmed
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
}

// Coordinator drives a transaction from signing to a terminal outcome:
// it binds a fresh blockhash, signs, races a resend loop against
// confirmation watching under one deadline, and runs a diagnosis
// dry-run when the submission fails. Safe for concurrent use.
type Coordinator struct {
	client    chain.Client
	diagnoser *Diagnoser
	bus       *events.Bus
	metrics   *metrics.Metrics
	logger    *zap.Logger
	cfg       Config
	sendOpts  chain.SendOptions
}

// NewCoordinator wires a coordinator. Bus and metrics may be nil when
// the caller does not use them.
func NewCoordinator(client chain.Client, cfg Config, bus *events.Bus, m *metrics.Metrics, logger *zap.Logger) *Coordinator {
	cfg.normalize()
	return &Coordinator{
		client:    client,
		diagnoser: NewDiagnoser(client, cfg.DiagnoseTimeout, logger),
		bus:       bus,
		metrics:   m,
		logger:    logger.Named("coordinator"),
		cfg:       cfg,
		sendOpts: chain.SendOptions{
			SkipPreflight:       cfg.SkipPreflight,
			PreflightCommitment: cfg.CommitLevel,
		},
	}
}

// Submit lands one transaction and blocks until it is confirmed,
// rejected, times out, or ctx is canceled. The returned signature is
// the transaction identifier and is valid whenever assembly succeeded,
// including on failure.
//
// With a non-nil signer the transaction is bound to a fresh blockhash
// and signed here; a nil signer means tx arrives already signed and its
// bytes are broadcast untouched.
func (c *Coordinator) Submit(ctx context.Context, tx *solana.Transaction, signer Signer, opts Options) (solana.Signature, error) {
	start := time.Now()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	minLevel := opts.CommitLevel
	if minLevel == chain.LevelUnknown {
		minLevel = c.cfg.CommitLevel
	}

	rawTx, sig, err := c.assemble(ctx, tx, signer)
	if err != nil {
		return solana.Signature{}, err
	}

	logger := c.logger.With(zap.String("signature", sig.String()))
	logger.Info("📤 Submitting transaction",
		zap.String("commit_level", minLevel.String()),
		zap.String("label", opts.Label),
		zap.Duration("timeout", timeout))

	c.metrics.SubmissionStarted()
	defer c.metrics.SubmissionFinished()
	c.publish(&events.SubmissionStartedEvent{
		BaseEvent: events.BaseEvent{EventType: events.SubmissionStarted, EventTime: time.Now()},
		Signature: sig.String(),
		Label:     opts.Label,
	})

	subCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	broadcaster := NewBroadcaster(c.client, c.cfg.ResendInterval, c.sendOpts, c.logger)
	broadcaster.OnSend = func(attempt int, err error) {
		c.metrics.RecordBroadcast(err)
		c.publish(&events.BroadcastAttemptEvent{
			BaseEvent: events.BaseEvent{EventType: events.BroadcastAttempt, EventTime: time.Now()},
			Signature: sig.String(),
			Attempt:   attempt,
			Err:       err,
		})
	}

	watcher := NewWatcher(c.client, c.cfg.PollInterval, c.logger)
	watcher.OnStatus = func(status *chain.TxStatus) {
		c.publish(&events.StatusObservedEvent{
			BaseEvent: events.BaseEvent{EventType: events.StatusObserved, EventTime: time.Now()},
			Signature: sig.String(),
			Slot:      status.Slot,
			Level:     status.Level.String(),
		})
	}

	stop := broadcaster.Start(subCtx, rawTx, sig)
	status, err := watcher.Await(subCtx, sig, minLevel)
	stop()

	duration := time.Since(start)

	if err == nil {
		logger.Info("✅ Transaction confirmed",
			zap.Uint64("slot", status.Slot),
			zap.String("level", status.Level.String()),
			zap.Duration("duration", duration))
		c.metrics.RecordOutcome(OutcomeConfirmed.String(), status.Level.String(), duration)
		c.publish(&events.SubmissionConfirmedEvent{
			BaseEvent: events.BaseEvent{EventType: events.SubmissionConfirmed, EventTime: time.Now()},
			Signature: sig.String(),
			Label:     opts.Label,
			Slot:      status.Slot,
			Level:     status.Level.String(),
			Duration:  duration,
		})
		return sig, nil
	}

	if errors.Is(err, context.Canceled) {
		logger.Info("Submission canceled", zap.Duration("duration", duration))
		return sig, err
	}

	// The submission deadline is spent; diagnosis gets its own bound
	// derived from the caller's context.
	err = c.enrichFailure(ctx, tx, sig, err)

	outcome := outcomeFromErr(err)
	logger.Error("❌ Transaction failed",
		zap.String("outcome", outcome.String()),
		zap.Duration("duration", duration),
		zap.Error(err))
	c.metrics.RecordOutcome(outcome.String(), minLevel.String(), duration)
	c.publish(&events.SubmissionFailedEvent{
		BaseEvent: events.BaseEvent{EventType: events.SubmissionFailed, EventTime: time.Now()},
		Signature: sig.String(),
		Label:     opts.Label,
		Outcome:   outcome.String(),
		Err:       err,
		Duration:  duration,
	})
	return sig, err
}

// SubmitBatch lands entries concurrently, at most cfg.Workers in
// flight, and returns one result per entry in input order. Entries are
// independent: a failure never cancels or degrades its siblings, and
// ctx cancellation is the only shared control.
func (c *Coordinator) SubmitBatch(ctx context.Context, entries []BatchEntry) []Result {
	start := time.Now()
	results := make([]Result, len(entries))

	c.metrics.RecordBatch(len(entries))
	c.logger.Info("Submitting batch",
		zap.Int("entries", len(entries)),
		zap.Int("workers", c.cfg.Workers))

	var g errgroup.Group
	g.SetLimit(c.cfg.Workers)

	for i, entry := range entries {
		g.Go(func() error {
			entryStart := time.Now()
			sig, err := c.Submit(ctx, entry.Tx, entry.Signer, Options{Label: entry.Label})
			results[i] = Result{
				Index:     i,
				Label:     entry.Label,
				Signature: sig,
				Outcome:   outcomeFromErr(err),
				Err:       err,
				Duration:  time.Since(entryStart),
			}
			return nil
		})
	}
	// Submit errors land in results; the group only synchronizes.
	_ = g.Wait()

	confirmed, failed := 0, 0
	for i := range results {
		switch results[i].Outcome {
		case OutcomeConfirmed:
			confirmed++
		case OutcomeRejected, OutcomeTimedOut:
			failed++
		}
	}

	duration := time.Since(start)
	c.logger.Info("Batch complete",
		zap.Int("confirmed", confirmed),
		zap.Int("failed", failed),
		zap.Int("total", len(entries)),
		zap.Duration("duration", duration))
	c.publish(&events.BatchCompletedEvent{
		BaseEvent: events.BaseEvent{EventType: events.BatchCompleted, EventTime: time.Now()},
		Total:     len(entries),
		Confirmed: confirmed,
		Failed:    failed,
		Duration:  duration,
	})

	return results
}

// assemble produces the serialized bytes and the identifying signature.
// The blockhash is bound immediately before signing so the signed bytes
// stay fresh for the whole resend window.
func (c *Coordinator) assemble(ctx context.Context, tx *solana.Transaction, signer Signer) ([]byte, solana.Signature, error) {
	if signer != nil {
		blockhash, err := c.client.GetRecentBlockhash(ctx)
		if err != nil {
			return nil, solana.Signature{}, fmt.Errorf("fetch blockhash: %w", err)
		}
		tx.Message.RecentBlockhash = blockhash
		if err := signer.SignTransaction(tx); err != nil {
			return nil, solana.Signature{}, fmt.Errorf("sign transaction: %w", err)
		}
	}

	if len(tx.Signatures) == 0 {
		return nil, solana.Signature{}, ErrNotSigned
	}

	rawTx, err := tx.MarshalBinary()
	if err != nil {
		return nil, solana.Signature{}, fmt.Errorf("serialize transaction: %w", err)
	}
	return rawTx, tx.Signatures[0], nil
}

// enrichFailure attaches a dry-run diagnosis to a terminal failure.
// Diagnosis never changes the outcome classification and its own
// failure never masks the original error.
func (c *Coordinator) enrichFailure(ctx context.Context, tx *solana.Transaction, sig solana.Signature, original error) error {
	diag, diagErr := c.diagnoser.Diagnose(ctx, tx)
	if diagErr != nil {
		c.metrics.RecordDiagnosis(DiagnosisUnavailable)
		c.logger.Debug("Diagnosis unavailable",
			zap.String("signature", sig.String()),
			zap.Error(diagErr))
		return original
	}

	c.metrics.RecordDiagnosis(diag.Source)
	if diag.Generic || diag.Message == "" {
		return original
	}

	var rejected *RejectedError
	if errors.As(original, &rejected) {
		rejected.Diagnosis = diag.Message
		return original
	}
	if errors.Is(original, ErrConfirmationTimeout) {
		return fmt.Errorf("%w: %s", ErrConfirmationTimeout, diag.Message)
	}
	return original
}

// publish forwards an event when a bus is attached.
func (c *Coordinator) publish(event events.Event) {
	if c.bus == nil {
		return
	}
	_ = c.bus.Publish(event)
}
