// =============================================
// File: internal/chain/types.go
// =============================================
package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var (
	// ErrNoActiveEndpoints means every RPC endpoint in the fleet failed.
	ErrNoActiveEndpoints = errors.New("no active RPC endpoints available")
	// ErrNoWebSocket is returned by SubscribeSignature when the fleet was
	// built without a websocket endpoint.
	ErrNoWebSocket = errors.New("websocket endpoint not configured")
)

// ConfirmationLevel is the consensus depth of a transaction, ordered so
// deeper levels compare greater.
type ConfirmationLevel int

const (
	LevelUnknown ConfirmationLevel = iota
	LevelProcessed
	LevelConfirmed
	LevelFinalized
)

// ParseLevel maps a config string to a ConfirmationLevel.
func ParseLevel(s string) (ConfirmationLevel, error) {
	switch s {
	case "processed":
		return LevelProcessed, nil
	case "confirmed":
		return LevelConfirmed, nil
	case "finalized":
		return LevelFinalized, nil
	default:
		return LevelUnknown, fmt.Errorf("unknown confirmation level %q", s)
	}
}

func (l ConfirmationLevel) String() string {
	switch l {
	case LevelProcessed:
		return "processed"
	case LevelConfirmed:
		return "confirmed"
	case LevelFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Commitment converts the level to the RPC commitment parameter.
func (l ConfirmationLevel) Commitment() rpc.CommitmentType {
	switch l {
	case LevelProcessed:
		return rpc.CommitmentProcessed
	case LevelFinalized:
		return rpc.CommitmentFinalized
	default:
		return rpc.CommitmentConfirmed
	}
}

// LevelFromStatus derives the depth of an observed signature status.
// Nodes that omit the confirmation status field still report the rooted
// state through a nil confirmation counter.
func LevelFromStatus(status *rpc.SignatureStatusesResult) ConfirmationLevel {
	if status == nil {
		return LevelUnknown
	}
	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusProcessed:
		return LevelProcessed
	case rpc.ConfirmationStatusConfirmed:
		return LevelConfirmed
	case rpc.ConfirmationStatusFinalized:
		return LevelFinalized
	}
	if status.Confirmations == nil {
		return LevelFinalized
	}
	if *status.Confirmations >= 1 {
		return LevelConfirmed
	}
	return LevelProcessed
}

// TxStatus is one observation of a submitted transaction.
type TxStatus struct {
	Slot  uint64
	Level ConfirmationLevel
	Err   interface{}
}

// SimulationResult carries the outcome of a dry-run execution.
type SimulationResult struct {
	Err           interface{}
	Logs          []string
	UnitsConsumed uint64
}

// SendOptions control how raw transaction bytes are submitted.
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment ConfirmationLevel
}

// StatusSubscription delivers push notifications for one signature.
type StatusSubscription interface {
	// Recv blocks until the next notification or ctx cancellation.
	Recv(ctx context.Context) (*TxStatus, error)
	Unsubscribe()
}

// Client is the network surface the submission protocol consumes.
type Client interface {
	// GetRecentBlockhash returns a blockhash usable as the freshness
	// token of a new transaction.
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)

	// SendRawTransaction submits already-serialized signed bytes.
	SendRawTransaction(ctx context.Context, rawTx []byte, opts SendOptions) (solana.Signature, error)

	// GetSignatureStatus reports the current status of a signature, or
	// nil when the network has not seen it yet.
	GetSignatureStatus(ctx context.Context, sig solana.Signature) (*TxStatus, error)

	// SimulateTransaction dry-runs a signed transaction against current
	// network state without broadcasting it.
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error)

	// SubscribeSignature opens a push subscription for sig reaching
	// level. Implementations without push support return ErrNoWebSocket.
	SubscribeSignature(ctx context.Context, sig solana.Signature, level ConfirmationLevel) (StatusSubscription, error)
}
