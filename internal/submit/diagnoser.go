// =============================================
// File: internal/submit/diagnoser.go
// =============================================
package submit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rustamqulov/solana-lander/internal/chain"
)

// programLogPrefix marks the log lines programs emit themselves, as
// opposed to runtime bookkeeping lines.
const programLogPrefix = "Program log: "

// Diagnosis sources, used as the metrics label for diagnosis verdicts.
const (
	DiagnosisProgramLog  = "program_log"
	DiagnosisRawError    = "raw_error"
	DiagnosisGeneric     = "generic"
	DiagnosisUnavailable = "unavailable"
)

// AnchorError is the structured form of an Anchor framework error log
// line.
type AnchorError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// Diagnosis is what a dry-run recovered about a failed submission.
type Diagnosis struct {
	// Message is the most specific failure text available: the
	// innermost program log line, or the serialized dry-run error when
	// no program log matched. Empty when Generic is set.
	Message string
	Logs    []string
	// Source names where the verdict came from: DiagnosisProgramLog,
	// DiagnosisRawError or DiagnosisGeneric.
	Source string
	// Anchor holds parsed detail when the matched line is an Anchor
	// error report.
	Anchor *AnchorError
	// Generic marks a dry-run that ran but produced nothing specific.
	// Known gap: network state may have moved on since the real
	// submission failed, letting the dry-run succeed. The submission's
	// outcome stands regardless.
	Generic bool
}

// Diagnoser recovers failure reasons by re-running the exact signed
// bytes in simulation after a rejection or timeout.
type Diagnoser struct {
	client  chain.Client
	timeout time.Duration
	logger  *zap.Logger
}

func NewDiagnoser(client chain.Client, timeout time.Duration, logger *zap.Logger) *Diagnoser {
	return &Diagnoser{
		client:  client,
		timeout: timeout,
		logger:  logger.Named("diagnoser"),
	}
}

// Diagnose dry-runs tx and extracts the most specific failure message.
// The dry-run is bounded by the diagnoser's own timeout, never by the
// submission deadline that already expired. When the dry-run itself
// cannot be performed the error wraps ErrDiagnosisUnavailable; the
// caller reports the submission's own outcome and treats diagnosis as
// lost enrichment.
func (d *Diagnoser) Diagnose(ctx context.Context, tx *solana.Transaction) (*Diagnosis, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	result, err := backoff.Retry(ctx, func() (*chain.SimulationResult, error) {
		res, err := d.client.SimulateTransaction(ctx, tx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return res, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(d.timeout))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiagnosisUnavailable, err)
	}

	if result.Err == nil {
		d.logger.Debug("Dry-run succeeded for a failed submission, no diagnosis available")
		return &Diagnosis{Generic: true, Source: DiagnosisGeneric, Logs: result.Logs}, nil
	}

	// The most specific diagnostic is emitted last, so scan backwards
	// and take the first program log found.
	for i := len(result.Logs) - 1; i >= 0; i-- {
		line := result.Logs[i]
		if !strings.HasPrefix(line, programLogPrefix) {
			continue
		}
		diag := &Diagnosis{
			Message: line[len(programLogPrefix):],
			Source:  DiagnosisProgramLog,
			Logs:    result.Logs,
		}
		if anchor := parseAnchorLog(line); anchor != nil {
			diag.Anchor = anchor
			d.logger.Warn("Anchor error detected",
				zap.Int("code", anchor.Code),
				zap.String("name", anchor.Name),
				zap.String("message", anchor.Msg))
		}
		return diag, nil
	}

	// No program log matched: fall back to the raw dry-run error.
	return &Diagnosis{
		Message: SerializeRawError(result.Err),
		Source:  DiagnosisRawError,
		Logs:    result.Logs,
	}, nil
}

// parseAnchorLog parses an Anchor error log line.
// Example: "Program log: AnchorError occurred. Error Code: InstructionFallbackNotFound. Error Number: 101. Error Message: Fallback functions are not supported."
func parseAnchorLog(line string) *AnchorError {
	if !strings.Contains(line, "AnchorError occurred") {
		return nil
	}
	result := &AnchorError{}

	if parts := strings.Split(line, "Error Number:"); len(parts) > 1 {
		numPart := strings.Split(parts[1], ".")[0]
		fmt.Sscanf(strings.TrimSpace(numPart), "%d", &result.Code)
	}
	if parts := strings.Split(line, "Error Code:"); len(parts) > 1 {
		result.Name = strings.TrimSpace(strings.Split(parts[1], ".")[0])
	}
	if parts := strings.Split(line, "Error Message:"); len(parts) > 1 {
		result.Msg = strings.TrimSpace(strings.Split(parts[1], ".")[0])
	}
	return result
}
