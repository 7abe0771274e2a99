// ============================================
// File: internal/events/types.go
// ============================================
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Submission lifecycle events
	SubmissionStarted   EventType = "submission.started"
	SubmissionConfirmed EventType = "submission.confirmed"
	SubmissionFailed    EventType = "submission.failed"

	// Wire-level events
	BroadcastAttempt EventType = "broadcast.attempt"
	StatusObserved   EventType = "status.observed"

	// Batch events
	BatchCompleted EventType = "batch.completed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// SubmissionStartedEvent is emitted when a signed transaction enters the
// broadcast loop.
type SubmissionStartedEvent struct {
	BaseEvent
	Signature string
	Label     string
}

// BroadcastAttemptEvent is emitted for every send of the transaction bytes,
// including resends. Attempt starts at 1. Err is nil for accepted sends.
type BroadcastAttemptEvent struct {
	BaseEvent
	Signature string
	Attempt   int
	Err       error
}

// StatusObservedEvent is emitted whenever the cluster reports a new highest
// confirmation level for a watched signature.
type StatusObservedEvent struct {
	BaseEvent
	Signature string
	Slot      uint64
	Level     string
}

// SubmissionConfirmedEvent is emitted when a submission reaches its target
// confirmation level.
type SubmissionConfirmedEvent struct {
	BaseEvent
	Signature string
	Label     string
	Slot      uint64
	Level     string
	Duration  time.Duration
}

// SubmissionFailedEvent is emitted when a submission is rejected by the
// cluster or times out before confirmation.
type SubmissionFailedEvent struct {
	BaseEvent
	Signature string
	Label     string
	Outcome   string
	Err       error
	Duration  time.Duration
}

// BatchCompletedEvent is emitted after every entry of a batch has resolved.
type BatchCompletedEvent struct {
	BaseEvent
	Total     int
	Confirmed int
	Failed    int
	Duration  time.Duration
}
