package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rustamqulov/solana-lander/internal/events"
)

// Tea message types for dashboard communication.

// SubmissionStartedMsg appears when a transaction enters the broadcast loop.
type SubmissionStartedMsg struct {
	Signature string
	Label     string
}

// BroadcastMsg reports one send attempt of the transaction bytes.
type BroadcastMsg struct {
	Signature string
	Attempt   int
	Failed    bool
}

// StatusMsg reports a new highest confirmation level for a signature.
type StatusMsg struct {
	Signature string
	Slot      uint64
	Level     string
}

// SubmissionResolvedMsg reports the final verdict of one submission.
type SubmissionResolvedMsg struct {
	Signature string
	Label     string
	Outcome   string
	Level     string
	Slot      uint64
	Err       string
	Duration  time.Duration
}

// BatchCompletedMsg reports aggregate counts after the whole batch resolved.
type BatchCompletedMsg struct {
	Total     int
	Confirmed int
	Failed    int
	Duration  time.Duration
}

// RunFinishedMsg carries the final runner verdict.
type RunFinishedMsg struct {
	Err error
}

// logTickMsg drives the periodic log pane refresh.
type logTickMsg time.Time

const bridgeBuffer = 1024

// Bridge forwards pipeline events into the dashboard without ever blocking
// the submission path.
type Bridge struct {
	ch   chan tea.Msg
	subs []events.Subscription
}

// NewBridge subscribes to the event bus. A nil bus yields a bridge that only
// carries messages pushed through Send.
func NewBridge(bus *events.Bus) *Bridge {
	b := &Bridge{ch: make(chan tea.Msg, bridgeBuffer)}
	if bus == nil {
		return b
	}

	b.subs = []events.Subscription{
		bus.SubscribeFunc(events.SubmissionStarted, b.forward(convertStarted)),
		bus.SubscribeFunc(events.BroadcastAttempt, b.forward(convertBroadcast)),
		bus.SubscribeFunc(events.StatusObserved, b.forward(convertStatus)),
		bus.SubscribeFunc(events.SubmissionConfirmed, b.forward(convertConfirmed)),
		bus.SubscribeFunc(events.SubmissionFailed, b.forward(convertFailed)),
		bus.SubscribeFunc(events.BatchCompleted, b.forward(convertBatch)),
	}
	return b
}

func (b *Bridge) forward(convert func(events.Event) tea.Msg) func(context.Context, events.Event) error {
	return func(_ context.Context, event events.Event) error {
		msg := convert(event)
		if msg == nil {
			return nil
		}
		select {
		case b.ch <- msg:
		default:
			// Channel full, drop the message
		}
		return nil
	}
}

// Send pushes an out-of-band message, like the final runner verdict.
func (b *Bridge) Send(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default:
		// Channel full, drop the message
	}
}

// Listen returns a command that delivers the next pipeline message.
func (b *Bridge) Listen() tea.Cmd {
	return func() tea.Msg {
		return <-b.ch
	}
}

// Close detaches the bridge from the event bus.
func (b *Bridge) Close() {
	for _, sub := range b.subs {
		sub.Unsubscribe()
	}
}

func convertStarted(e events.Event) tea.Msg {
	ev, ok := e.(*events.SubmissionStartedEvent)
	if !ok {
		return nil
	}
	return SubmissionStartedMsg{Signature: ev.Signature, Label: ev.Label}
}

func convertBroadcast(e events.Event) tea.Msg {
	ev, ok := e.(*events.BroadcastAttemptEvent)
	if !ok {
		return nil
	}
	return BroadcastMsg{Signature: ev.Signature, Attempt: ev.Attempt, Failed: ev.Err != nil}
}

func convertStatus(e events.Event) tea.Msg {
	ev, ok := e.(*events.StatusObservedEvent)
	if !ok {
		return nil
	}
	return StatusMsg{Signature: ev.Signature, Slot: ev.Slot, Level: ev.Level}
}

func convertConfirmed(e events.Event) tea.Msg {
	ev, ok := e.(*events.SubmissionConfirmedEvent)
	if !ok {
		return nil
	}
	return SubmissionResolvedMsg{
		Signature: ev.Signature,
		Label:     ev.Label,
		Outcome:   "confirmed",
		Level:     ev.Level,
		Slot:      ev.Slot,
		Duration:  ev.Duration,
	}
}

func convertFailed(e events.Event) tea.Msg {
	ev, ok := e.(*events.SubmissionFailedEvent)
	if !ok {
		return nil
	}
	msg := SubmissionResolvedMsg{
		Signature: ev.Signature,
		Label:     ev.Label,
		Outcome:   ev.Outcome,
		Duration:  ev.Duration,
	}
	if ev.Err != nil {
		msg.Err = ev.Err.Error()
	}
	return msg
}

func convertBatch(e events.Event) tea.Msg {
	ev, ok := e.(*events.BatchCompletedEvent)
	if !ok {
		return nil
	}
	return BatchCompletedMsg{
		Total:     ev.Total,
		Confirmed: ev.Confirmed,
		Failed:    ev.Failed,
		Duration:  ev.Duration,
	}
}
