// =============================================
// File: internal/submit/broadcaster.go
// =============================================
package submit

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rustamqulov/solana-lander/internal/chain"
)

// Broadcaster repeats the send of one serialized transaction until it is
// stopped. Nodes drop single-shot submissions at the gossip layer often
// enough that periodic resend measurably raises inclusion odds, and the
// signed bytes stay valid for resend because the blockhash was bound at
// sign time.
//
// A Broadcaster belongs to exactly one submission.
type Broadcaster struct {
	client   chain.Client
	interval time.Duration
	opts     chain.SendOptions
	logger   *zap.Logger

	// OnSend, when set, observes every attempt with its result.
	OnSend func(attempt int, err error)
}

func NewBroadcaster(client chain.Client, interval time.Duration, opts chain.SendOptions, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		client:   client,
		interval: interval,
		opts:     opts,
		logger:   logger.Named("broadcaster"),
	}
}

// Start fires one send immediately and then resends the identical bytes
// every interval until ctx is canceled or its deadline passes. The
// returned stop function cancels the loop and joins it before
// returning, so no resend can happen after stop() has returned.
//
// Send failures are absorbed: a dropped retransmission is repaired by
// the next tick, and only the watcher decides the submission's fate.
func (b *Broadcaster) Start(ctx context.Context, rawTx []byte, sig solana.Signature) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		attempt := 0
		attempt = b.send(ctx, rawTx, sig, attempt)

		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				attempt = b.send(ctx, rawTx, sig, attempt)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// send performs one broadcast attempt and reports the new attempt count.
func (b *Broadcaster) send(ctx context.Context, rawTx []byte, sig solana.Signature, attempt int) int {
	if ctx.Err() != nil {
		return attempt
	}
	attempt++

	_, err := b.client.SendRawTransaction(ctx, rawTx, b.opts)
	if err != nil && ctx.Err() == nil {
		b.logger.Debug("Broadcast attempt failed",
			zap.String("signature", sig.String()),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	if b.OnSend != nil {
		b.OnSend(attempt, err)
	}
	return attempt
}
