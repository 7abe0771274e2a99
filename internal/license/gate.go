// internal/license/gate.go
package license

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const minKeyLength = 8

// Settings selects the validation mode. A fully configured Keygen account
// enables online validation, anything less falls back to the offline check.
type Settings struct {
	Key       string
	AccountID string
	ProductID string
	Token     string
}

// Gate performs license validation before the pipeline starts.
type Gate struct {
	logger    *zap.Logger
	settings  Settings
	validator *KeygenValidator
}

func NewGate(settings Settings, logger *zap.Logger) *Gate {
	g := &Gate{
		logger:   logger.Named("license"),
		settings: settings,
	}
	if g.keygenConfigured() {
		g.validator = NewKeygenValidator(settings.AccountID, settings.Token, settings.ProductID, g.logger)
	}
	return g
}

// Check validates the configured license key.
func (g *Gate) Check(ctx context.Context) error {
	if g.validator != nil {
		return g.checkWithKeygen(ctx)
	}
	return g.checkBasic()
}

// StartHeartbeat keeps the machine activation alive until ctx is done.
// It is a no-op in offline mode.
func (g *Gate) StartHeartbeat(ctx context.Context, interval time.Duration) {
	if g.validator == nil || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := g.validator.Heartbeat(ctx, g.settings.Key); err != nil {
					g.logger.Warn("License heartbeat failed", zap.Error(err))
				}
			}
		}
	}()
}

func (g *Gate) keygenConfigured() bool {
	return g.settings.AccountID != "" && g.settings.Token != "" && g.settings.ProductID != ""
}

func (g *Gate) checkWithKeygen(ctx context.Context) error {
	g.logger.Info("🔑 Validating license with Keygen.sh")

	if err := g.validator.Validate(ctx, g.settings.Key); err != nil {
		return fmt.Errorf("keygen validation failed: %w", err)
	}

	g.logger.Info("✅ License validated with Keygen.sh")
	return nil
}

// checkBasic is the offline fallback used when no Keygen account is set.
func (g *Gate) checkBasic() error {
	key := strings.TrimSpace(g.settings.Key)
	if key == "" {
		return errors.New("license key is required")
	}
	if len(key) < minKeyLength {
		return errors.New("license key is too short")
	}

	g.logger.Info("✅ License validated (basic mode)")
	return nil
}
