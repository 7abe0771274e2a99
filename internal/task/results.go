// =============================================
// File: internal/task/results.go
// =============================================
package task

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustamqulov/solana-lander/internal/submit"
)

var resultsHeader = []string{"timestamp", "label", "signature", "outcome", "duration_ms", "error"}

// ResultsWriter appends submission results to a CSV file in a
// thread-safe manner, flushing on a fixed cadence so a crash loses at
// most one interval of rows.
type ResultsWriter struct {
	mu       sync.Mutex
	writer   *csv.Writer
	file     *os.File
	ticker   *time.Ticker
	done     chan struct{}
	logger   *zap.Logger
	filePath string

	writtenRecords uint64
	flushCount     uint64
}

// NewResultsWriter opens (or creates) the results file in append mode
// and writes the header when the file is empty.
func NewResultsWriter(filePath string, flushInterval time.Duration, logger *zap.Logger) (*ResultsWriter, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	w := &ResultsWriter{
		writer:   csv.NewWriter(file),
		file:     file,
		ticker:   time.NewTicker(flushInterval),
		done:     make(chan struct{}),
		logger:   logger.Named("results"),
		filePath: filePath,
	}

	if stat.Size() == 0 {
		if err := w.writer.Write(resultsHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		w.writer.Flush()
	}

	go w.periodicFlush()

	return w, nil
}

// Append records one submission result.
func (w *ResultsWriter) Append(result submit.Result) error {
	errText := ""
	if result.Err != nil {
		errText = result.Err.Error()
	}

	record := []string{
		time.Now().UTC().Format(time.RFC3339),
		result.Label,
		result.Signature.String(),
		result.Outcome.String(),
		strconv.FormatInt(result.Duration.Milliseconds(), 10),
		errText,
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.writtenRecords++
	return nil
}

// Flush forces a write of any buffered rows.
func (w *ResultsWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	w.flushCount++
	return nil
}

func (w *ResultsWriter) periodicFlush() {
	for {
		select {
		case <-w.ticker.C:
			if err := w.Flush(); err != nil {
				w.logger.Error("Periodic flush failed",
					zap.String("file", w.filePath),
					zap.Error(err))
			}
		case <-w.done:
			return
		}
	}
}

// Close flushes remaining rows and closes the file.
func (w *ResultsWriter) Close() error {
	close(w.done)
	w.ticker.Stop()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error on close: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	w.logger.Info("Results writer closed",
		zap.String("file", w.filePath),
		zap.Uint64("records", w.writtenRecords))
	return nil
}
