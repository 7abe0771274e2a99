// =============================================
// File: internal/task/manager.go
// =============================================
package task

import (
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Manager loads and parses Task definitions.
type Manager struct {
	logger *zap.Logger
}

// NewManager constructs a Manager with the given logger.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger.Named("tasks")}
}

// LoadTasks reads tasks from a CSV file. The first row is a header.
// Transfer rows carry [name, transfer, wallet, recipient, amount_sol];
// raw rows carry [name, raw, payload_base64]. Invalid rows are skipped
// with a warning.
func (m *Manager) LoadTasks(path string) ([]*Task, error) {
	cleanPath := filepath.Clean(path)
	file, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Row width depends on the task kind.
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV file is empty or missing data")
	}

	tasks := make([]*Task, 0, len(records)-1)
	for i, record := range records[1:] {
		task, err := parseRecord(i, record)
		if err != nil {
			m.logger.Warn("Skipping invalid task",
				zap.Int("row", i+2),
				zap.Error(err))
			continue
		}
		tasks = append(tasks, task)
	}

	if len(tasks) == 0 {
		return nil, fmt.Errorf("no valid tasks loaded")
	}

	m.logger.Info("Loaded tasks", zap.Int("count", len(tasks)))
	return tasks, nil
}

func parseRecord(id int, record []string) (*Task, error) {
	if len(record) < 2 {
		return nil, fmt.Errorf("expected at least 2 columns, got %d", len(record))
	}

	task := &Task{
		ID:        id,
		Name:      strings.TrimSpace(record[0]),
		Kind:      Kind(strings.TrimSpace(record[1])),
		CreatedAt: time.Now(),
	}

	switch task.Kind {
	case KindTransfer:
		if len(record) < 5 {
			return nil, fmt.Errorf("transfer task needs 5 columns, got %d", len(record))
		}
		task.WalletName = strings.TrimSpace(record[2])

		recipient, err := solana.PublicKeyFromBase58(strings.TrimSpace(record[3]))
		if err != nil {
			return nil, fmt.Errorf("invalid recipient: %w", err)
		}
		task.Recipient = recipient

		amount, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount: %w", err)
		}
		if amount <= 0 {
			return nil, fmt.Errorf("amount must be greater than zero")
		}
		task.Lamports = uint64(amount * LamportsPerSOL)

	case KindRaw:
		if len(record) < 3 {
			return nil, fmt.Errorf("raw task needs 3 columns, got %d", len(record))
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(record[2]))
		if err != nil {
			return nil, fmt.Errorf("invalid base64 payload: %w", err)
		}
		task.Raw = raw

	default:
		return nil, fmt.Errorf("unsupported kind: %q", record[1])
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}
