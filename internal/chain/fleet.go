// =============================================
// File: internal/chain/fleet.go
// =============================================
package chain

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"

	"github.com/rustamqulov/solana-lander/internal/config"
)

const (
	defaultMaxAttempts = 3
	probeTimeout       = 15 * time.Second
)

// Options configure the endpoint fleet.
type Options struct {
	RPCURLs      []string
	WebSocketURL string
	// MaxAttempts bounds how many endpoints a single call may try.
	MaxAttempts int
}

// endpoint is one RPC node with its health state and counters.
type endpoint struct {
	rpc     *rpc.Client
	url     string
	display string

	mu      sync.RWMutex
	active  bool
	success uint64
	failure uint64
	latency time.Duration
}

func (e *endpoint) setActive(state bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = state
}

func (e *endpoint) isActive() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}

// observe records one call outcome. Latency is a running average.
func (e *endpoint) observe(success bool, latency time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if success {
		e.success++
	} else {
		e.failure++
	}
	if e.latency == 0 {
		e.latency = latency
	} else {
		e.latency = (e.latency + latency) / 2
	}
}

// EndpointStats is a read-only snapshot of one endpoint for display.
type EndpointStats struct {
	URL     string
	Active  bool
	Success uint64
	Failure uint64
	Latency time.Duration
}

// Fleet rotates requests across multiple RPC endpoints, deactivating the
// ones that fail and reviving the pool when everything is down.
type Fleet struct {
	endpoints   []*endpoint
	maxAttempts int
	logger      *zap.Logger

	mu   sync.Mutex
	next int

	ws *ws.Client
}

var _ Client = (*Fleet)(nil)

// NewFleet dials every configured endpoint and probes it before use.
func NewFleet(ctx context.Context, opts Options, logger *zap.Logger) (*Fleet, error) {
	if len(opts.RPCURLs) == 0 {
		return nil, errors.New("empty RPC URL list")
	}

	var endpoints []*endpoint
	for _, urlStr := range opts.RPCURLs {
		if _, err := url.Parse(urlStr); err != nil {
			logger.Warn("Invalid RPC URL", zap.String("url", config.MaskURL(urlStr)), zap.Error(err))
			continue
		}
		endpoints = append(endpoints, &endpoint{
			rpc:     rpc.New(urlStr),
			url:     urlStr,
			display: config.MaskURL(urlStr),
			active:  true,
		})
	}
	if len(endpoints) == 0 {
		return nil, errors.New("no valid RPC URLs provided")
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	f := &Fleet{
		endpoints:   endpoints,
		maxAttempts: maxAttempts,
		logger:      logger.Named("chain"),
	}

	if err := f.probeEndpoints(ctx); err != nil {
		return nil, err
	}

	if opts.WebSocketURL != "" {
		wsClient, err := ws.Connect(ctx, opts.WebSocketURL)
		if err != nil {
			return nil, fmt.Errorf("websocket connect: %w", err)
		}
		f.ws = wsClient
		f.logger.Debug("WebSocket connected", zap.String("url", config.MaskURL(opts.WebSocketURL)))
	}

	return f, nil
}

// probeEndpoints checks every endpoint concurrently and deactivates the
// unreachable ones. At least one endpoint must survive.
func (f *Fleet) probeEndpoints(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, ep := range f.endpoints {
		wg.Add(1)
		go func(ep *endpoint) {
			defer wg.Done()

			version, err := backoff.Retry(ctx, func() (*rpc.GetVersionResult, error) {
				start := time.Now()
				out, err := ep.rpc.GetVersion(ctx)
				ep.observe(err == nil, time.Since(start))
				return out, err
			}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(3))
			if err != nil {
				f.logger.Warn("RPC endpoint unreachable",
					zap.String("url", ep.display),
					zap.Error(err))
				ep.setActive(false)
				return
			}

			f.logger.Debug("Successfully connected to RPC",
				zap.String("url", ep.display),
				zap.String("solana_core", version.SolanaCore))
		}(ep)
	}
	wg.Wait()

	if !f.hasActiveEndpoints() {
		return errors.New("failed to validate connections: no active RPC connections available")
	}
	return nil
}

func (f *Fleet) hasActiveEndpoints() bool {
	for _, ep := range f.endpoints {
		if ep.isActive() {
			return true
		}
	}
	return false
}

// nextEndpoint picks the next active endpoint round-robin. When every
// endpoint has been deactivated the whole pool is revived: a fleet with
// nothing to try is worse than retrying a previously failed node.
func (f *Fleet) nextEndpoint() *endpoint {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := 0; i < len(f.endpoints); i++ {
		ep := f.endpoints[f.next]
		f.next = (f.next + 1) % len(f.endpoints)
		if ep.isActive() {
			return ep
		}
	}

	f.logger.Warn("All RPC endpoints inactive, reviving pool")
	for _, ep := range f.endpoints {
		ep.setActive(true)
	}
	ep := f.endpoints[f.next]
	f.next = (f.next + 1) % len(f.endpoints)
	return ep
}

// contextFailure reports whether err came from ctx rather than the node.
// Context errors must not poison endpoint health.
func contextFailure(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (f *Fleet) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	var lastErr error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return solana.Hash{}, ctx.Err()
		}
		ep := f.nextEndpoint()

		start := time.Now()
		result, err := ep.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		ep.observe(err == nil, time.Since(start))

		if err != nil {
			if contextFailure(err) {
				return solana.Hash{}, err
			}
			lastErr = err
			ep.setActive(false)
			f.logger.Warn("Blockhash fetch failed", zap.String("url", ep.display), zap.Error(err))
			continue
		}
		return result.Value.Blockhash, nil
	}
	return solana.Hash{}, fmt.Errorf("failed to get recent blockhash after %d attempts: %w", f.maxAttempts, lastErr)
}

func (f *Fleet) SendRawTransaction(ctx context.Context, rawTx []byte, opts SendOptions) (solana.Signature, error) {
	var lastErr error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return solana.Signature{}, ctx.Err()
		}
		ep := f.nextEndpoint()

		start := time.Now()
		sig, err := ep.rpc.SendRawTransactionWithOpts(ctx, rawTx, rpc.TransactionOpts{
			SkipPreflight:       opts.SkipPreflight,
			PreflightCommitment: opts.PreflightCommitment.Commitment(),
		})
		ep.observe(err == nil, time.Since(start))

		if err != nil {
			if contextFailure(err) {
				return solana.Signature{}, err
			}
			lastErr = err
			ep.setActive(false)
			f.logger.Debug("Send failed, rotating endpoint", zap.String("url", ep.display), zap.Error(err))
			continue
		}
		return sig, nil
	}
	return solana.Signature{}, fmt.Errorf("failed to send transaction after %d attempts: %w", f.maxAttempts, lastErr)
}

func (f *Fleet) GetSignatureStatus(ctx context.Context, sig solana.Signature) (*TxStatus, error) {
	var lastErr error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		ep := f.nextEndpoint()

		start := time.Now()
		out, err := ep.rpc.GetSignatureStatuses(ctx, false, sig)
		ep.observe(err == nil, time.Since(start))

		if err != nil {
			if contextFailure(err) {
				return nil, err
			}
			lastErr = err
			ep.setActive(false)
			continue
		}
		if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
			// Network has not seen the signature yet.
			return nil, nil
		}
		status := out.Value[0]
		return &TxStatus{
			Slot:  status.Slot,
			Level: LevelFromStatus(status),
			Err:   status.Err,
		}, nil
	}
	return nil, fmt.Errorf("failed to get signature status after %d attempts: %w", f.maxAttempts, lastErr)
}

func (f *Fleet) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error) {
	var lastErr error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		ep := f.nextEndpoint()

		start := time.Now()
		resp, err := ep.rpc.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
			ReplaceRecentBlockhash: true,
			Commitment:             rpc.CommitmentProcessed,
		})
		ep.observe(err == nil, time.Since(start))

		if err != nil {
			if contextFailure(err) {
				return nil, err
			}
			lastErr = err
			ep.setActive(false)
			continue
		}
		if resp == nil || resp.Value == nil {
			return nil, errors.New("empty simulation response")
		}

		result := &SimulationResult{
			Err:  resp.Value.Err,
			Logs: resp.Value.Logs,
		}
		if resp.Value.UnitsConsumed != nil {
			result.UnitsConsumed = *resp.Value.UnitsConsumed
		}
		return result, nil
	}
	return nil, fmt.Errorf("failed to simulate transaction after %d attempts: %w", f.maxAttempts, lastErr)
}

// Snapshot returns per-endpoint health for display.
func (f *Fleet) Snapshot() []EndpointStats {
	stats := make([]EndpointStats, 0, len(f.endpoints))
	for _, ep := range f.endpoints {
		ep.mu.RLock()
		stats = append(stats, EndpointStats{
			URL:     ep.display,
			Active:  ep.active,
			Success: ep.success,
			Failure: ep.failure,
			Latency: ep.latency,
		})
		ep.mu.RUnlock()
	}
	return stats
}

// Close tears down the websocket connection if one was opened.
func (f *Fleet) Close() {
	if f.ws != nil {
		f.ws.Close()
	}
}
