// =============================================
// File: internal/submit/watcher.go
// =============================================
package submit

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rustamqulov/solana-lander/internal/chain"
)

// Watcher observes the network until a submitted transaction reaches the
// requested confirmation depth, is rejected, or the deadline passes. It
// polls on a fixed cadence and additionally listens on a push
// subscription when the client supports one; whichever answers first
// wins.
//
// A Watcher belongs to exactly one submission.
type Watcher struct {
	client       chain.Client
	pollInterval time.Duration
	logger       *zap.Logger

	// OnStatus, when set, observes every status update that advances
	// the confirmation watermark.
	OnStatus func(status *chain.TxStatus)

	// best is the monotonic confirmation watermark: out-of-order status
	// responses never regress it.
	best chain.ConfirmationLevel
}

func NewWatcher(client chain.Client, pollInterval time.Duration, logger *zap.Logger) *Watcher {
	return &Watcher{
		client:       client,
		pollInterval: pollInterval,
		logger:       logger.Named("watcher"),
	}
}

// Await blocks until sig reaches minLevel with no error attached,
// returning the final observed status. A status carrying an error fails
// with RejectedError. An expired deadline fails with
// ErrConfirmationTimeout; cancellation by the caller propagates as is.
func (w *Watcher) Await(ctx context.Context, sig solana.Signature, minLevel chain.ConfirmationLevel) (*chain.TxStatus, error) {
	pushCh := w.subscribe(ctx, sig, minLevel)

	// Check once immediately: a transaction can land between the send
	// and the first tick.
	if status, done, err := w.check(ctx, sig, minLevel); done {
		return status, err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrConfirmationTimeout
			}
			return nil, ctx.Err()

		case status := <-pushCh:
			if status, done, err := w.evaluate(status, sig, minLevel); done {
				return status, err
			}

		case <-ticker.C:
			if status, done, err := w.check(ctx, sig, minLevel); done {
				return status, err
			}
		}
	}
}

// subscribe opens a push subscription when the client offers one. Push
// is an accelerator only: any subscription failure falls back to
// polling silently.
func (w *Watcher) subscribe(ctx context.Context, sig solana.Signature, minLevel chain.ConfirmationLevel) <-chan *chain.TxStatus {
	pushCh := make(chan *chain.TxStatus, 1)

	sub, err := w.client.SubscribeSignature(ctx, sig, minLevel)
	if err != nil {
		if !errors.Is(err, chain.ErrNoWebSocket) {
			w.logger.Debug("Signature subscription unavailable, polling only", zap.Error(err))
		}
		return pushCh
	}

	go func() {
		defer sub.Unsubscribe()
		status, err := sub.Recv(ctx)
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Debug("Signature subscription closed", zap.Error(err))
			}
			return
		}
		select {
		case pushCh <- status:
		case <-ctx.Done():
		}
	}()

	return pushCh
}

// check polls the status once. Poll errors never abort the wait: the
// next tick retries.
func (w *Watcher) check(ctx context.Context, sig solana.Signature, minLevel chain.ConfirmationLevel) (*chain.TxStatus, bool, error) {
	status, err := w.client.GetSignatureStatus(ctx, sig)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("Status check failed", zap.Error(err))
		}
		return nil, false, nil
	}
	if status == nil {
		// Network has not seen the signature yet.
		return nil, false, nil
	}
	return w.evaluate(status, sig, minLevel)
}

// evaluate applies one observed status to the watermark and decides
// whether the wait is over.
func (w *Watcher) evaluate(status *chain.TxStatus, sig solana.Signature, minLevel chain.ConfirmationLevel) (*chain.TxStatus, bool, error) {
	if status == nil {
		return nil, false, nil
	}

	if status.Err != nil {
		return nil, true, &RejectedError{Signature: sig, StatusErr: status.Err}
	}

	if status.Level > w.best {
		w.best = status.Level
		if w.OnStatus != nil {
			w.OnStatus(status)
		}
	}

	if w.best >= minLevel {
		final := *status
		final.Level = w.best
		return &final, true, nil
	}
	return nil, false, nil
}
