// =============================================
// File: internal/submit/types.go
// =============================================
package submit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rustamqulov/solana-lander/internal/chain"
)

var (
	// ErrConfirmationTimeout means the deadline elapsed with no
	// qualifying status observed.
	ErrConfirmationTimeout = errors.New("timed out awaiting confirmation")
	// ErrTransactionFailed is the generic failure when nothing more
	// specific could be recovered.
	ErrTransactionFailed = errors.New("transaction failed")
	// ErrDiagnosisUnavailable means the dry-run itself could not be
	// performed. It never replaces the submission's own outcome.
	ErrDiagnosisUnavailable = errors.New("diagnosis unavailable")
	// ErrNotSigned means a transaction without a signer was submitted
	// before being signed.
	ErrNotSigned = errors.New("transaction has no signatures")
)

// Outcome is the terminal state of one submission.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeConfirmed
	OutcomeRejected
	OutcomeTimedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeRejected:
		return "rejected"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return "pending"
	}
}

// RejectedError is surfaced when the network explicitly reports a
// program or validation error for the submitted transaction.
type RejectedError struct {
	Signature solana.Signature
	// StatusErr is the raw error object from the status response.
	StatusErr interface{}
	// Diagnosis is the message recovered by the dry-run, when any.
	Diagnosis string
}

func (e *RejectedError) Error() string {
	if e.Diagnosis != "" {
		return fmt.Sprintf("transaction failed: %s", e.Diagnosis)
	}
	if e.StatusErr != nil {
		return fmt.Sprintf("transaction failed: %s", SerializeRawError(e.StatusErr))
	}
	return "transaction failed"
}

func (e *RejectedError) Unwrap() error { return ErrTransactionFailed }

// Signer signs an assembled transaction with every required key.
type Signer interface {
	SignTransaction(tx *solana.Transaction) error
}

// Options tune one submit call. Zero values fall back to the
// coordinator's configured defaults.
type Options struct {
	Timeout     time.Duration
	CommitLevel chain.ConfirmationLevel
	// Label is carried into logs, events and batch results for display.
	Label string
}

// BatchEntry is one independent submission in a batch. A nil Signer
// marks the transaction as already signed.
type BatchEntry struct {
	Tx     *solana.Transaction
	Signer Signer
	// Label is carried through to results and events for display.
	Label string
}

// Result is the per-entry outcome of a batch, index-aligned with the
// input.
type Result struct {
	Index     int
	Label     string
	Signature solana.Signature
	Outcome   Outcome
	Err       error
	Duration  time.Duration
}

// SerializeRawError renders an opaque status or simulation error for
// display. JSON keeps structured errors readable; anything that will
// not marshal falls back to plain formatting.
func SerializeRawError(raw interface{}) string {
	if raw == nil {
		return ""
	}
	if data, err := json.Marshal(raw); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", raw)
}

// outcomeFromErr classifies a submit error for reporting. Caller
// cancellation stays pending: it is not a network verdict.
func outcomeFromErr(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeConfirmed
	case errors.Is(err, ErrConfirmationTimeout):
		return OutcomeTimedOut
	case errors.Is(err, context.Canceled):
		return OutcomePending
	default:
		return OutcomeRejected
	}
}
