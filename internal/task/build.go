// =============================================
// File: internal/task/build.go
// =============================================
package task

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/rustamqulov/solana-lander/internal/submit"
	"github.com/rustamqulov/solana-lander/internal/wallet"
)

// Prepare renders the task into a transaction plus the signer that
// must sign it. Raw tasks return a nil signer: their bytes are already
// signed and must not be re-bound to a new blockhash.
func (t *Task) Prepare(keyring *wallet.Keyring) (*solana.Transaction, submit.Signer, error) {
	switch t.Kind {
	case KindTransfer:
		w, err := keyring.Get(t.WalletName)
		if err != nil {
			return nil, nil, err
		}

		ix := system.NewTransferInstruction(t.Lamports, w.PublicKey, t.Recipient).Build()
		// The blockhash placeholder is rebound right before signing.
		tx, err := solana.NewTransaction(
			[]solana.Instruction{ix},
			solana.Hash{},
			solana.TransactionPayer(w.PublicKey),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("build transfer: %w", err)
		}
		return tx, w, nil

	case KindRaw:
		tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(t.Raw))
		if err != nil {
			return nil, nil, fmt.Errorf("decode raw transaction: %w", err)
		}
		return tx, nil, nil

	default:
		return nil, nil, fmt.Errorf("invalid kind: %s", t.Kind)
	}
}
