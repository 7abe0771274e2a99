// internal/license/keygen.go
package license

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"

	"github.com/keygen-sh/keygen-go/v3"
	"go.uber.org/zap"
)

// KeygenValidator validates license keys against a Keygen.sh account.
// Credentials come from configuration, never from the binary.
type KeygenValidator struct {
	logger    *zap.Logger
	accountID string
	productID string
}

// NewKeygenValidator configures the global Keygen client for the given account.
func NewKeygenValidator(accountID, token, productID string, logger *zap.Logger) *KeygenValidator {
	keygen.Account = accountID
	keygen.Product = productID
	keygen.Token = token
	keygen.PublicKey = "" // fetched automatically

	return &KeygenValidator{
		logger:    logger,
		accountID: accountID,
		productID: productID,
	}
}

// Validate checks the license key and activates this machine when needed.
func (kv *KeygenValidator) Validate(ctx context.Context, licenseKey string) error {
	kv.logger.Info("🔑 Validating license: " + maskKey(licenseKey))

	fingerprint, err := Fingerprint()
	if err != nil {
		return fmt.Errorf("failed to generate machine fingerprint: %w", err)
	}

	keygen.LicenseKey = licenseKey

	lic, err := keygen.Validate(ctx, fingerprint)
	switch {
	case errors.Is(err, keygen.ErrLicenseNotActivated):
		kv.logger.Info("License not activated, attempting activation")
		machine, activateErr := lic.Activate(ctx, fingerprint)
		if activateErr != nil {
			return fmt.Errorf("failed to activate license: %w", activateErr)
		}
		kv.logger.Info("License activated",
			zap.String("machine_id", machine.ID),
			zap.String("fingerprint", fingerprint),
		)

	case errors.Is(err, keygen.ErrLicenseExpired):
		return errors.New("license has expired")

	case err != nil:
		return fmt.Errorf("license validation failed: %w", err)
	}

	if lic == nil {
		return errors.New("license not found")
	}

	kv.logger.Info("License validation successful",
		zap.String("license_id", lic.ID),
	)

	return nil
}

// Heartbeat re-validates the license to keep the machine activation alive.
func (kv *KeygenValidator) Heartbeat(ctx context.Context, licenseKey string) error {
	fingerprint, err := Fingerprint()
	if err != nil {
		return fmt.Errorf("failed to generate machine fingerprint: %w", err)
	}

	keygen.LicenseKey = licenseKey
	if _, err := keygen.Validate(ctx, fingerprint); err != nil {
		return fmt.Errorf("heartbeat failed: %w", err)
	}

	kv.logger.Debug("License heartbeat sent")
	return nil
}

// Fingerprint derives a stable machine identity from the hostname, the first
// active non-loopback interface and the OS.
func Fingerprint() (string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}

	var macAddresses []string
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagLoopback == 0 && len(iface.HardwareAddr) > 0 {
			macAddresses = append(macAddresses, iface.HardwareAddr.String())
		}
	}
	if len(macAddresses) == 0 {
		return "", errors.New("no network interfaces found")
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	data := fmt.Sprintf("%s-%s-%s", hostname, macAddresses[0], runtime.GOOS)
	hash := sha256.Sum256([]byte(data))

	return fmt.Sprintf("%x", hash), nil
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "..."
	}
	return key[:8] + "..."
}
