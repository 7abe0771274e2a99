package ui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rustamqulov/solana-lander/internal/events"
	"github.com/rustamqulov/solana-lander/internal/logger"
)

func newTestDashboard() *Dashboard {
	d := NewDashboard(NewBridge(nil), logger.NewRing(32))
	model, _ := d.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return model.(*Dashboard)
}

func update(t *testing.T, d *Dashboard, msg tea.Msg) *Dashboard {
	t.Helper()
	model, _ := d.Update(msg)
	next, ok := model.(*Dashboard)
	require.True(t, ok)
	return next
}

func TestDashboardEmptyState(t *testing.T) {
	d := newTestDashboard()
	view := d.View()

	assert.Contains(t, view, "Solana Lander")
	assert.Contains(t, view, "waiting for submissions")
	assert.Contains(t, view, "0 confirmed")
}

func TestDashboardTracksLifecycle(t *testing.T) {
	d := newTestDashboard()

	d = update(t, d, SubmissionStartedMsg{Signature: "sig-alpha", Label: "payout-1"})
	view := d.View()
	assert.Contains(t, view, "payout-1")
	assert.Contains(t, view, "queued")
	assert.Contains(t, view, "◌ 1 in flight")

	d = update(t, d, BroadcastMsg{Signature: "sig-alpha", Attempt: 3})
	view = d.View()
	assert.Contains(t, view, "3")
	assert.Contains(t, view, "broadcasting")

	d = update(t, d, StatusMsg{Signature: "sig-alpha", Slot: 1200, Level: "processed"})
	view = d.View()
	assert.Contains(t, view, "1200")
	assert.Contains(t, view, "⟳ processed")

	d = update(t, d, SubmissionResolvedMsg{
		Signature: "sig-alpha",
		Label:     "payout-1",
		Outcome:   "confirmed",
		Level:     "confirmed",
		Slot:      1201,
		Duration:  1500 * time.Millisecond,
	})
	view = d.View()
	assert.Contains(t, view, "confirmed in 1.5s")
	assert.Contains(t, view, "✔ 1 confirmed")
	assert.Contains(t, view, "◌ 0 in flight")
}

func TestDashboardCountsFailures(t *testing.T) {
	d := newTestDashboard()

	d = update(t, d, SubmissionStartedMsg{Signature: "sig-a", Label: "a"})
	d = update(t, d, SubmissionStartedMsg{Signature: "sig-b", Label: "b"})
	d = update(t, d, SubmissionResolvedMsg{
		Signature: "sig-a",
		Outcome:   "rejected",
		Err:       "transaction failed: account in use",
	})

	view := d.View()
	assert.Contains(t, view, "✖ 1 failed")
	assert.Contains(t, view, "◌ 1 in flight")
	assert.Contains(t, view, "account in use")
}

func TestDashboardTimedOutState(t *testing.T) {
	d := newTestDashboard()

	d = update(t, d, SubmissionStartedMsg{Signature: "sig-slow", Label: "slow"})
	d = update(t, d, SubmissionResolvedMsg{Signature: "sig-slow", Outcome: "timed_out"})

	assert.Contains(t, d.View(), "timed out")
}

func TestDashboardBatchSummary(t *testing.T) {
	d := newTestDashboard()

	d = update(t, d, BatchCompletedMsg{Total: 3, Confirmed: 2, Failed: 1, Duration: 2 * time.Second})

	assert.Contains(t, d.View(), "batch 2/3")
}

func TestDashboardRunFinished(t *testing.T) {
	d := newTestDashboard()

	d = update(t, d, RunFinishedMsg{})
	assert.Contains(t, d.View(), "run finished")

	d = update(t, d, RunFinishedMsg{Err: errors.New("2 of 3 submissions failed")})
	assert.Contains(t, d.View(), "run finished: 2 of 3 submissions failed")
}

func TestDashboardQuitKey(t *testing.T) {
	d := newTestDashboard()

	_, cmd := d.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestDashboardToggleLogs(t *testing.T) {
	d := newTestDashboard()
	assert.Contains(t, d.View(), "Recent Logs")

	d = update(t, d, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.NotContains(t, d.View(), "Recent Logs")

	d = update(t, d, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Contains(t, d.View(), "Recent Logs")
}

func TestDashboardHelpToggle(t *testing.T) {
	d := newTestDashboard()
	assert.NotContains(t, d.View(), "toggle logs")

	d = update(t, d, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.Contains(t, d.View(), "toggle logs")
}

func TestDashboardSelectionMoves(t *testing.T) {
	d := newTestDashboard()
	d = update(t, d, SubmissionStartedMsg{Signature: "sig-a", Label: "a"})
	d = update(t, d, SubmissionStartedMsg{Signature: "sig-b", Label: "b"})

	require.Equal(t, 0, d.table.SelectedRow())
	d = update(t, d, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, d.table.SelectedRow())
	d = update(t, d, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, d.table.SelectedRow())
	d = update(t, d, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, d.table.SelectedRow())
}

func TestBridgeForwardsBusEvents(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t), 64)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Shutdown(shutdownCtx)
	}()
	bridge := NewBridge(bus)
	defer bridge.Close()

	require.NoError(t, bus.Publish(&events.SubmissionStartedEvent{
		BaseEvent: events.BaseEvent{EventType: events.SubmissionStarted, EventTime: time.Now()},
		Signature: "sig-1",
		Label:     "alpha",
	}))

	got := make(chan tea.Msg, 1)
	go func() { got <- bridge.Listen()() }()

	select {
	case msg := <-got:
		started, ok := msg.(SubmissionStartedMsg)
		require.True(t, ok, "expected SubmissionStartedMsg, got %T", msg)
		assert.Equal(t, "alpha", started.Label)
		assert.Equal(t, "sig-1", started.Signature)
	case <-time.After(2 * time.Second):
		t.Fatal("no message forwarded from the bus")
	}
}

func TestBridgeSendWithoutBus(t *testing.T) {
	bridge := NewBridge(nil)
	bridge.Send(RunFinishedMsg{})

	assert.IsType(t, RunFinishedMsg{}, bridge.Listen()())
}

func TestBridgeDropsWhenFull(t *testing.T) {
	bridge := NewBridge(nil)
	for i := 0; i < bridgeBuffer+10; i++ {
		bridge.Send(StatusMsg{Slot: uint64(i)})
	}

	first := bridge.Listen()()
	assert.Equal(t, uint64(0), first.(StatusMsg).Slot)
}
