// =============================================
// File: internal/task/models.go
// =============================================
package task

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// LamportsPerSOL is the native token denomination.
const LamportsPerSOL = 1_000_000_000

// Kind defines the supported task kinds.
type Kind string

const (
	// KindTransfer builds and signs a native transfer at submit time.
	KindTransfer Kind = "transfer"
	// KindRaw broadcasts an already-signed transaction untouched.
	KindRaw Kind = "raw"
)

// Task represents one submission job from CSV configuration.
type Task struct {
	ID   int
	Name string
	Kind Kind

	// Transfer fields
	WalletName string
	Recipient  solana.PublicKey
	Lamports   uint64

	// Raw holds the serialized signed transaction for KindRaw.
	Raw []byte

	CreatedAt time.Time
}

// Validate checks if the task has valid parameters.
func (t *Task) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("task name cannot be empty")
	}

	switch t.Kind {
	case KindTransfer:
		if t.WalletName == "" {
			return fmt.Errorf("wallet name cannot be empty")
		}
		if t.Recipient.IsZero() {
			return fmt.Errorf("recipient cannot be empty")
		}
		if t.Lamports == 0 {
			return fmt.Errorf("amount must be greater than zero")
		}
	case KindRaw:
		if len(t.Raw) == 0 {
			return fmt.Errorf("raw payload cannot be empty")
		}
	default:
		return fmt.Errorf("invalid kind: %s", t.Kind)
	}

	return nil
}
