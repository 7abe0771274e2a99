// =============================================
// File: internal/submit/fake_test.go
// =============================================
package submit

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rustamqulov/solana-lander/internal/chain"
)

// fakeClient is a scriptable chain.Client. Status responses are queued
// per signature; the final queued step repeats forever, matching a
// network whose view persists once reached.
type fakeClient struct {
	mu sync.Mutex

	blockhash      solana.Hash
	blockhashErr   error
	blockhashCalls int

	sendErr error
	sends   []sendRecord

	statusQueues map[solana.Signature][]statusStep
	statusCalls  int

	simResult *chain.SimulationResult
	simErr    error
	simCalls  int

	sub    chain.StatusSubscription
	subErr error
}

type sendRecord struct {
	at  time.Time
	raw []byte
}

type statusStep struct {
	status *chain.TxStatus
	err    error
}

func newFakeClient() *fakeClient {
	var blockhash solana.Hash
	copy(blockhash[:], "fake-recent-blockhash")
	return &fakeClient{
		blockhash:    blockhash,
		statusQueues: make(map[solana.Signature][]statusStep),
		subErr:       chain.ErrNoWebSocket,
	}
}

func (f *fakeClient) scriptStatus(sig solana.Signature, steps ...statusStep) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusQueues[sig] = append(f.statusQueues[sig], steps...)
}

func (f *fakeClient) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockhashCalls++
	if f.blockhashErr != nil {
		return solana.Hash{}, f.blockhashErr
	}
	return f.blockhash, nil
}

func (f *fakeClient) SendRawTransaction(ctx context.Context, rawTx []byte, opts chain.SendOptions) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw := make([]byte, len(rawTx))
	copy(raw, rawTx)
	f.sends = append(f.sends, sendRecord{at: time.Now(), raw: raw})
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	return solana.Signature{}, nil
}

func (f *fakeClient) GetSignatureStatus(ctx context.Context, sig solana.Signature) (*chain.TxStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	queue := f.statusQueues[sig]
	if len(queue) == 0 {
		return nil, nil
	}
	step := queue[0]
	if len(queue) > 1 {
		f.statusQueues[sig] = queue[1:]
	}
	if step.status == nil {
		return nil, step.err
	}
	status := *step.status
	return &status, step.err
}

func (f *fakeClient) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*chain.SimulationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simCalls++
	if f.simErr != nil {
		return nil, f.simErr
	}
	if f.simResult == nil {
		return &chain.SimulationResult{}, nil
	}
	result := *f.simResult
	return &result, nil
}

func (f *fakeClient) SubscribeSignature(ctx context.Context, sig solana.Signature, level chain.ConfirmationLevel) (chain.StatusSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sub != nil {
		return f.sub, nil
	}
	return nil, f.subErr
}

func (f *fakeClient) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

func (f *fakeClient) sendRecords() []sendRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sendRecord, len(f.sends))
	copy(out, f.sends)
	return out
}

func (f *fakeClient) simulateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.simCalls
}

// Scripting shorthands.

func stepUnseen() statusStep {
	return statusStep{}
}

func stepLevel(level chain.ConfirmationLevel, slot uint64) statusStep {
	return statusStep{status: &chain.TxStatus{Slot: slot, Level: level}}
}

func stepFailed(slot uint64, raw interface{}) statusStep {
	return statusStep{status: &chain.TxStatus{Slot: slot, Level: chain.LevelProcessed, Err: raw}}
}

func stepRPCError(err error) statusStep {
	return statusStep{err: err}
}

// fakeSubscription is a push channel the test feeds by hand.
type fakeSubscription struct {
	ch       chan *chain.TxStatus
	unsubbed chan struct{}
	once     sync.Once
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{
		ch:       make(chan *chain.TxStatus, 4),
		unsubbed: make(chan struct{}),
	}
}

func (s *fakeSubscription) push(status *chain.TxStatus) {
	s.ch <- status
}

func (s *fakeSubscription) Recv(ctx context.Context) (*chain.TxStatus, error) {
	select {
	case status := <-s.ch:
		return status, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeSubscription) Unsubscribe() {
	s.once.Do(func() { close(s.unsubbed) })
}

// fakeSigner stamps a fixed signature onto the transaction.
type fakeSigner struct {
	mu    sync.Mutex
	sig   solana.Signature
	err   error
	calls int
}

func (s *fakeSigner) SignTransaction(tx *solana.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.calls++
	tx.Signatures = []solana.Signature{s.sig}
	return nil
}

func (s *fakeSigner) signCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testSignature(seed byte) solana.Signature {
	var sig solana.Signature
	for i := range sig {
		sig[i] = seed
	}
	return sig
}

// testTransaction builds the smallest transaction the serializer
// accepts once exactly one signature is attached.
func testTransaction() *solana.Transaction {
	return &solana.Transaction{
		Message: solana.Message{
			Header: solana.MessageHeader{
				NumRequiredSignatures: 1,
			},
			AccountKeys:     []solana.PublicKey{solana.SystemProgramID},
			RecentBlockhash: solana.Hash{},
		},
	}
}

func testSignedTransaction(sig solana.Signature) *solana.Transaction {
	tx := testTransaction()
	tx.Signatures = []solana.Signature{sig}
	return tx
}
