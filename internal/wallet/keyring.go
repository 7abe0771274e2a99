// ==================================
// File: internal/wallet/keyring.go
// ==================================
package wallet

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// keyringFile is the on-disk YAML layout.
type keyringFile struct {
	Wallets []struct {
		Name       string `yaml:"name"`
		PrivateKey string `yaml:"private_key"`
	} `yaml:"wallets"`
}

// Keyring is a named set of wallets loaded from one YAML file.
type Keyring struct {
	wallets map[string]*Wallet
}

// LoadKeyring загружает кошельки из YAML-файла.
func LoadKeyring(path string) (*Keyring, error) {
	// Clean the path to prevent path traversal issues
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseKeyring(data)
}

// ParseKeyring builds a keyring from YAML bytes. Entries with a blank
// name or key are skipped; a malformed key fails the whole load, since
// silently dropping a signing identity is worse than refusing to start.
func ParseKeyring(data []byte) (*Keyring, error) {
	var file keyringFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(file.Wallets) == 0 {
		return nil, fmt.Errorf("no wallets found in configuration")
	}

	wallets := make(map[string]*Wallet)
	for _, entry := range file.Wallets {
		if entry.Name == "" || entry.PrivateKey == "" {
			continue
		}
		w, err := NewWallet(entry.Name, entry.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("wallet %q: %w", entry.Name, err)
		}
		wallets[entry.Name] = w
	}

	if len(wallets) == 0 {
		return nil, fmt.Errorf("no valid wallets loaded")
	}

	return &Keyring{wallets: wallets}, nil
}

// Get returns the named wallet.
func (k *Keyring) Get(name string) (*Wallet, error) {
	w, ok := k.wallets[name]
	if !ok {
		return nil, fmt.Errorf("wallet %q not found (available: %s)", name, strings.Join(k.Names(), ", "))
	}
	return w, nil
}

// Names returns all wallet names, sorted.
func (k *Keyring) Names() []string {
	names := make([]string, 0, len(k.wallets))
	for name := range k.wallets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of loaded wallets.
func (k *Keyring) Len() int {
	return len(k.wallets)
}
