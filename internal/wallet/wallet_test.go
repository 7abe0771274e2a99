// ==================================
// File: internal/wallet/wallet_test.go
// ==================================
package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
)

func freshKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	return solana.NewWallet().PrivateKey
}

func TestNewWallet(t *testing.T) {
	key := freshKey(t)

	w, err := NewWallet("main", key.String())
	require.NoError(t, err)
	require.Equal(t, "main", w.Name)
	require.Equal(t, key.PublicKey(), w.PublicKey)
	require.Equal(t, w.PublicKey.String(), w.String())
}

func TestNewWalletRejectsGarbage(t *testing.T) {
	_, err := NewWallet("bad", "this is not base58!!!")
	require.Error(t, err)
}

func TestNewWalletRejectsShortKey(t *testing.T) {
	short := base58.Encode([]byte("only-a-few-bytes"))
	_, err := NewWallet("short", short)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid private key length")
}

func TestWalletSignTransaction(t *testing.T) {
	key := freshKey(t)
	w, err := NewWallet("signer", key.String())
	require.NoError(t, err)

	tx := &solana.Transaction{
		Message: solana.Message{
			Header: solana.MessageHeader{
				NumRequiredSignatures: 1,
			},
			AccountKeys: []solana.PublicKey{w.PublicKey},
		},
	}

	require.NoError(t, w.SignTransaction(tx))
	require.Len(t, tx.Signatures, 1)
	require.NotEqual(t, solana.Signature{}, tx.Signatures[0])
}

func TestWalletSignTransactionUnknownSigner(t *testing.T) {
	w, err := NewWallet("signer", freshKey(t).String())
	require.NoError(t, err)

	other := solana.NewWallet().PrivateKey.PublicKey()
	tx := &solana.Transaction{
		Message: solana.Message{
			Header: solana.MessageHeader{
				NumRequiredSignatures: 1,
			},
			AccountKeys: []solana.PublicKey{other},
		},
	}

	require.Error(t, w.SignTransaction(tx), "signing must fail when the required key is not held")
}

func writeKeyring(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wallets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadKeyring(t *testing.T) {
	key1, key2 := freshKey(t), freshKey(t)
	path := writeKeyring(t, `wallets:
  - name: main
    private_key: `+key1.String()+`
  - name: backup
    private_key: `+key2.String()+`
`)

	keyring, err := LoadKeyring(path)
	require.NoError(t, err)
	require.Equal(t, 2, keyring.Len())
	require.Equal(t, []string{"backup", "main"}, keyring.Names())

	main, err := keyring.Get("main")
	require.NoError(t, err)
	require.Equal(t, key1.PublicKey(), main.PublicKey)
}

func TestLoadKeyringMissingFile(t *testing.T) {
	_, err := LoadKeyring(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestParseKeyringSkipsBlankEntries(t *testing.T) {
	key := freshKey(t)
	keyring, err := ParseKeyring([]byte(`wallets:
  - name: ""
    private_key: ` + key.String() + `
  - name: real
    private_key: ` + key.String() + `
  - name: empty-key
    private_key: ""
`))
	require.NoError(t, err)
	require.Equal(t, 1, keyring.Len())
	require.Equal(t, []string{"real"}, keyring.Names())
}

func TestParseKeyringRejectsMalformedKey(t *testing.T) {
	_, err := ParseKeyring([]byte(`wallets:
  - name: broken
    private_key: definitely-not-a-key
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), `wallet "broken"`)
}

func TestParseKeyringEmpty(t *testing.T) {
	_, err := ParseKeyring([]byte(`wallets: []`))
	require.Error(t, err)
}

func TestKeyringGetUnknown(t *testing.T) {
	key := freshKey(t)
	keyring, err := ParseKeyring([]byte(`wallets:
  - name: main
    private_key: ` + key.String() + `
`))
	require.NoError(t, err)

	_, err = keyring.Get("ghost")
	require.Error(t, err)
	require.Contains(t, err.Error(), "main", "the error must name the available wallets")
}
