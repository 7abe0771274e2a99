// =============================================
// File: internal/submit/coordinator_test.go
// =============================================
package submit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rustamqulov/solana-lander/internal/chain"
	"github.com/rustamqulov/solana-lander/internal/events"
	"github.com/rustamqulov/solana-lander/internal/metrics"
)

func fastConfig() Config {
	return Config{
		ResendInterval:  10 * time.Millisecond,
		PollInterval:    5 * time.Millisecond,
		Timeout:         2 * time.Second,
		DiagnoseTimeout: 200 * time.Millisecond,
		CommitLevel:     chain.LevelConfirmed,
		Workers:         2,
	}
}

func newTestCoordinator(t *testing.T, client chain.Client) *Coordinator {
	t.Helper()
	return NewCoordinator(client, fastConfig(), nil, nil, zaptest.NewLogger(t))
}

func TestConfigNormalizeFillsDefaults(t *testing.T) {
	var cfg Config
	cfg.normalize()

	require.Equal(t, defaultResendInterval, cfg.ResendInterval)
	require.Equal(t, defaultPollInterval, cfg.PollInterval)
	require.Equal(t, defaultSubmitTimeout, cfg.Timeout)
	require.Equal(t, defaultDiagnoseTimeout, cfg.DiagnoseTimeout)
	require.Equal(t, chain.LevelConfirmed, cfg.CommitLevel)
	require.Equal(t, defaultWorkers, cfg.Workers)
}

func TestSubmitConfirmed(t *testing.T) {
	client := newFakeClient()
	sig := testSignature(1)
	client.scriptStatus(sig, stepLevel(chain.LevelConfirmed, 100))

	signer := &fakeSigner{sig: sig}
	tx := testTransaction()

	c := newTestCoordinator(t, client)
	got, err := c.Submit(context.Background(), tx, signer, Options{})
	require.NoError(t, err)
	require.Equal(t, sig, got, "the identifier must be the first signature")
	require.Equal(t, 1, signer.signCalls())
	require.Equal(t, client.blockhash, tx.Message.RecentBlockhash,
		"a fresh blockhash must be bound before signing")
	require.GreaterOrEqual(t, client.sendCount(), 1)
}

func TestSubmitPreSignedSkipsSigning(t *testing.T) {
	client := newFakeClient()
	sig := testSignature(2)
	client.scriptStatus(sig, stepLevel(chain.LevelConfirmed, 100))

	tx := testSignedTransaction(sig)

	c := newTestCoordinator(t, client)
	got, err := c.Submit(context.Background(), tx, nil, Options{})
	require.NoError(t, err)
	require.Equal(t, sig, got)
	require.Zero(t, client.blockhashCalls, "pre-signed bytes must broadcast untouched")
}

func TestSubmitUnsignedWithoutSignerFails(t *testing.T) {
	client := newFakeClient()

	c := newTestCoordinator(t, client)
	got, err := c.Submit(context.Background(), testTransaction(), nil, Options{})
	require.ErrorIs(t, err, ErrNotSigned)
	require.Equal(t, solana.Signature{}, got)
	require.Zero(t, client.sendCount())
}

func TestSubmitBlockhashFailure(t *testing.T) {
	client := newFakeClient()
	client.blockhashErr = errors.New("rpc down")

	c := newTestCoordinator(t, client)
	_, err := c.Submit(context.Background(), testTransaction(), &fakeSigner{sig: testSignature(3)}, Options{})
	require.ErrorContains(t, err, "fetch blockhash")
	require.Zero(t, client.sendCount())
}

func TestSubmitRejectedCarriesDiagnosis(t *testing.T) {
	client := newFakeClient()
	sig := testSignature(4)
	rawErr := map[string]interface{}{
		"InstructionError": []interface{}{float64(0), map[string]interface{}{"Custom": float64(1)}},
	}
	client.scriptStatus(sig, stepFailed(10, rawErr))
	client.simResult = &chain.SimulationResult{
		Err:  rawErr,
		Logs: []string{"Program log: Error: insufficient funds"},
	}

	c := newTestCoordinator(t, client)
	got, err := c.Submit(context.Background(), testTransaction(), &fakeSigner{sig: sig}, Options{})
	require.Equal(t, sig, got, "the identifier is known even when the submission fails")
	require.ErrorIs(t, err, ErrTransactionFailed)

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, rawErr, rejected.StatusErr)
	require.Equal(t, "Error: insufficient funds", rejected.Diagnosis)
	require.Equal(t, "transaction failed: Error: insufficient funds", err.Error())
}

func TestSubmitRejectedWithoutDiagnosisKeepsRawError(t *testing.T) {
	client := newFakeClient()
	sig := testSignature(5)
	rawErr := map[string]interface{}{
		"InstructionError": []interface{}{float64(0), "AccountInUse"},
	}
	client.scriptStatus(sig, stepFailed(10, rawErr))
	client.simErr = errors.New("simulation rpc exploded")

	c := newTestCoordinator(t, client)
	_, err := c.Submit(context.Background(), testTransaction(), &fakeSigner{sig: sig}, Options{})
	require.ErrorIs(t, err, ErrTransactionFailed)

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Empty(t, rejected.Diagnosis, "a failed dry-run never masks the original outcome")
	require.Contains(t, err.Error(), "InstructionError")
}

func TestSubmitTimeoutEnrichedByDiagnosis(t *testing.T) {
	client := newFakeClient()
	sig := testSignature(6)
	client.simResult = &chain.SimulationResult{
		Err:  "BlockhashNotFound",
		Logs: []string{"Program log: Blockhash not found"},
	}

	c := newTestCoordinator(t, client)
	start := time.Now()
	_, err := c.Submit(context.Background(), testTransaction(), &fakeSigner{sig: sig},
		Options{Timeout: 60 * time.Millisecond})
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrConfirmationTimeout)
	require.Contains(t, err.Error(), "Blockhash not found")
	require.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	require.Less(t, elapsed, 5*time.Second, "the deadline must bound the wait")
}

func TestSubmitTimeoutStaysGenericWhenDryRunSucceeds(t *testing.T) {
	client := newFakeClient()
	sig := testSignature(7)
	client.simResult = &chain.SimulationResult{}

	c := newTestCoordinator(t, client)
	_, err := c.Submit(context.Background(), testTransaction(), &fakeSigner{sig: sig},
		Options{Timeout: 60 * time.Millisecond})
	require.ErrorIs(t, err, ErrConfirmationTimeout)
	require.EqualError(t, err, "timed out awaiting confirmation")
}

func TestSubmitStopsBroadcastingAfterReturn(t *testing.T) {
	client := newFakeClient()
	sig := testSignature(8)
	client.scriptStatus(sig, stepUnseen(), stepUnseen(), stepLevel(chain.LevelConfirmed, 100))

	c := newTestCoordinator(t, client)
	_, err := c.Submit(context.Background(), testTransaction(), &fakeSigner{sig: sig}, Options{})
	require.NoError(t, err)

	sent := client.sendCount()
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, sent, client.sendCount(), "the resend loop must be joined before Submit returns")
}

func TestSubmitCallerCancellationSkipsDiagnosis(t *testing.T) {
	client := newFakeClient()
	sig := testSignature(9)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	c := newTestCoordinator(t, client)
	got, err := c.Submit(ctx, testTransaction(), &fakeSigner{sig: sig}, Options{})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, sig, got)
	require.Zero(t, client.simulateCalls(), "cancellation is not a network verdict to diagnose")
}

func TestSubmitBatchPreservesOrderAndIsolation(t *testing.T) {
	client := newFakeClient()
	sigA, sigB, sigC := testSignature(1), testSignature(2), testSignature(3)
	client.scriptStatus(sigA, stepLevel(chain.LevelConfirmed, 1))
	client.scriptStatus(sigB, stepFailed(2, "AccountInUse"))
	client.scriptStatus(sigC, stepUnseen(), stepLevel(chain.LevelConfirmed, 3))
	client.simResult = &chain.SimulationResult{
		Err:  "AccountInUse",
		Logs: []string{"Program log: account in use"},
	}

	entries := []BatchEntry{
		{Tx: testTransaction(), Signer: &fakeSigner{sig: sigA}, Label: "alpha"},
		{Tx: testTransaction(), Signer: &fakeSigner{sig: sigB}, Label: "beta"},
		{Tx: testTransaction(), Signer: &fakeSigner{sig: sigC}, Label: "gamma"},
	}

	c := newTestCoordinator(t, client)
	results := c.SubmitBatch(context.Background(), entries)
	require.Len(t, results, len(entries))

	for i, result := range results {
		require.Equal(t, i, result.Index, "results must align with input order")
		require.Equal(t, entries[i].Label, result.Label)
		require.Greater(t, result.Duration, time.Duration(0))
	}

	require.Equal(t, OutcomeConfirmed, results[0].Outcome)
	require.NoError(t, results[0].Err)
	require.Equal(t, sigA, results[0].Signature)

	require.Equal(t, OutcomeRejected, results[1].Outcome)
	var rejected *RejectedError
	require.ErrorAs(t, results[1].Err, &rejected)
	require.Equal(t, "account in use", rejected.Diagnosis)

	require.Equal(t, OutcomeConfirmed, results[2].Outcome,
		"a rejected sibling must not disturb the rest of the batch")
	require.NoError(t, results[2].Err)
}

func TestSubmitBatchEmpty(t *testing.T) {
	c := newTestCoordinator(t, newFakeClient())
	results := c.SubmitBatch(context.Background(), nil)
	require.Empty(t, results)
}

func TestSubmitBatchSingleWorkerCompletesAll(t *testing.T) {
	client := newFakeClient()
	var entries []BatchEntry
	for i := byte(1); i <= 4; i++ {
		sig := testSignature(i)
		client.scriptStatus(sig, stepLevel(chain.LevelConfirmed, uint64(i)))
		entries = append(entries, BatchEntry{Tx: testTransaction(), Signer: &fakeSigner{sig: sig}})
	}

	cfg := fastConfig()
	cfg.Workers = 1
	c := NewCoordinator(client, cfg, nil, nil, zaptest.NewLogger(t))

	results := c.SubmitBatch(context.Background(), entries)
	require.Len(t, results, len(entries))
	for _, result := range results {
		require.Equal(t, OutcomeConfirmed, result.Outcome)
	}
}

func TestSubmitPublishesLifecycleEvents(t *testing.T) {
	client := newFakeClient()
	sig := testSignature(10)
	client.scriptStatus(sig, stepLevel(chain.LevelConfirmed, 77))

	bus := events.NewBus(zaptest.NewLogger(t), 64)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	startedCh := make(chan events.Event, 1)
	confirmedCh := make(chan events.Event, 1)
	bus.SubscribeFunc(events.SubmissionStarted, func(_ context.Context, e events.Event) error {
		startedCh <- e
		return nil
	})
	bus.SubscribeFunc(events.SubmissionConfirmed, func(_ context.Context, e events.Event) error {
		confirmedCh <- e
		return nil
	})

	c := NewCoordinator(client, fastConfig(), bus, nil, zaptest.NewLogger(t))
	_, err := c.Submit(context.Background(), testTransaction(), &fakeSigner{sig: sig},
		Options{Label: "hot-path"})
	require.NoError(t, err)

	select {
	case e := <-startedCh:
		started, ok := e.(*events.SubmissionStartedEvent)
		require.True(t, ok)
		require.Equal(t, sig.String(), started.Signature)
		require.Equal(t, "hot-path", started.Label)
	case <-time.After(2 * time.Second):
		t.Fatal("submission started event never arrived")
	}

	select {
	case e := <-confirmedCh:
		confirmed, ok := e.(*events.SubmissionConfirmedEvent)
		require.True(t, ok)
		require.Equal(t, sig.String(), confirmed.Signature)
		require.Equal(t, "confirmed", confirmed.Level)
		require.Equal(t, uint64(77), confirmed.Slot)
		require.Greater(t, confirmed.Duration, time.Duration(0))
	case <-time.After(2 * time.Second):
		t.Fatal("submission confirmed event never arrived")
	}
}

func TestSubmitRecordsMetrics(t *testing.T) {
	client := newFakeClient()
	sig := testSignature(11)
	client.scriptStatus(sig, stepLevel(chain.LevelConfirmed, 5))

	m := metrics.New()
	c := NewCoordinator(client, fastConfig(), nil, m, zaptest.NewLogger(t))

	_, err := c.Submit(context.Background(), testTransaction(), &fakeSigner{sig: sig}, Options{})
	require.NoError(t, err)

	require.Equal(t, float64(1), testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("confirmed")))
	require.GreaterOrEqual(t, testutil.ToFloat64(m.BroadcastsTotal.WithLabelValues("ok")), float64(1))
	require.Equal(t, float64(0), testutil.ToFloat64(m.SubmissionsInFlight),
		"in-flight gauge must return to zero")
}
