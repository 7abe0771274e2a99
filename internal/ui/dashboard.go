package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rustamqulov/solana-lander/internal/logger"
)

const logRefreshInterval = 500 * time.Millisecond

type submissionRow struct {
	label     string
	signature string
	attempts  int
	slot      uint64
	level     string
	outcome   string
	errText   string
	duration  time.Duration
}

// Dashboard is the root model tracking one batch of submissions.
type Dashboard struct {
	keys   KeyMap
	bridge *Bridge
	logs   *LogPane
	table  *Table

	rows  []*submissionRow
	index map[string]*submissionRow

	batch    *BatchCompletedMsg
	runErr   error
	finished bool
	showHelp bool

	width  int
	height int
}

// NewDashboard creates the dashboard fed by bridge, with the log pane
// reading from ring.
func NewDashboard(bridge *Bridge, ring *logger.Ring) *Dashboard {
	return &Dashboard{
		keys:   DefaultKeyMap(),
		bridge: bridge,
		logs:   NewLogPane(ring),
		table: NewTable(
			TableColumn{Header: "TASK", Width: 18, Align: lipgloss.Left},
			TableColumn{Header: "SIGNATURE", Width: 14, Align: lipgloss.Left},
			TableColumn{Header: "SENDS", Width: 7, Align: lipgloss.Right},
			TableColumn{Header: "SLOT", Width: 10, Align: lipgloss.Right},
			TableColumn{Header: "LEVEL", Width: 11, Align: lipgloss.Left},
			TableColumn{Header: "STATE", Align: lipgloss.Left},
		),
		index: make(map[string]*submissionRow),
	}
}

// Init starts listening to the event bridge.
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(
		d.bridge.Listen(),
		logTick(),
		tea.EnterAltScreen,
	)
}

func logTick() tea.Cmd {
	return tea.Tick(logRefreshInterval, func(t time.Time) tea.Msg {
		return logTickMsg(t)
	})
}

// Update handles incoming messages.
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		d.table.SetWidth(msg.Width - 4)
		logHeight := msg.Height / 3
		if logHeight < 5 {
			logHeight = 5
		}
		d.logs.SetSize(msg.Width-2, logHeight)
		return d, nil

	case tea.KeyMsg:
		return d.handleKey(msg)

	case SubmissionStartedMsg:
		row := d.upsert(msg.Signature)
		if msg.Label != "" {
			row.label = msg.Label
		}
		d.refreshTable()
		return d, d.bridge.Listen()

	case BroadcastMsg:
		d.upsert(msg.Signature).attempts = msg.Attempt
		d.refreshTable()
		return d, d.bridge.Listen()

	case StatusMsg:
		row := d.upsert(msg.Signature)
		row.slot = msg.Slot
		row.level = msg.Level
		d.refreshTable()
		return d, d.bridge.Listen()

	case SubmissionResolvedMsg:
		row := d.upsert(msg.Signature)
		if msg.Label != "" {
			row.label = msg.Label
		}
		if msg.Level != "" {
			row.level = msg.Level
		}
		if msg.Slot != 0 {
			row.slot = msg.Slot
		}
		row.outcome = msg.Outcome
		row.errText = msg.Err
		row.duration = msg.Duration
		d.refreshTable()
		return d, d.bridge.Listen()

	case BatchCompletedMsg:
		batch := msg
		d.batch = &batch
		return d, d.bridge.Listen()

	case RunFinishedMsg:
		d.finished = true
		d.runErr = msg.Err
		return d, d.bridge.Listen()

	case logTickMsg:
		return d, logTick()
	}

	return d, nil
}

func (d *Dashboard) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, d.keys.Quit):
		d.bridge.Close()
		return d, tea.Quit
	case key.Matches(msg, d.keys.Up):
		d.table.MoveUp()
	case key.Matches(msg, d.keys.Down):
		d.table.MoveDown()
	case key.Matches(msg, d.keys.ToggleLogs):
		d.logs.Toggle()
	case key.Matches(msg, d.keys.Help):
		d.showHelp = !d.showHelp
	}
	return d, nil
}

// View renders the dashboard.
func (d *Dashboard) View() string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render("⚡ Solana Lander"))
	b.WriteString("\n")
	b.WriteString(d.statusLine())
	b.WriteString("\n\n")

	if len(d.rows) == 0 {
		b.WriteString(MutedStyle.Render("waiting for submissions"))
	} else {
		b.WriteString(d.table.View())
	}
	b.WriteString("\n")

	if d.logs.Visible() {
		b.WriteString(d.logs.View())
		b.WriteString("\n")
	}

	b.WriteString(d.helpView())
	return b.String()
}

func (d *Dashboard) upsert(signature string) *submissionRow {
	if row, ok := d.index[signature]; ok {
		return row
	}
	row := &submissionRow{signature: signature}
	d.index[signature] = row
	d.rows = append(d.rows, row)
	return row
}

func (d *Dashboard) refreshTable() {
	rows := make([][]string, len(d.rows))
	for i, row := range d.rows {
		rows[i] = []string{
			row.label,
			logger.ShortenSignature(row.signature),
			strconv.Itoa(row.attempts),
			slotText(row.slot),
			levelText(row.level),
			stateText(row),
		}
	}
	d.table.SetRows(rows)
	for i, row := range d.rows {
		if row.outcome != "" {
			d.table.SetRowStyle(i, OutcomeStyle(row.outcome).Padding(0, 1))
		}
	}
}

func (d *Dashboard) counts() (confirmed, failed, inFlight int) {
	for _, row := range d.rows {
		switch row.outcome {
		case "confirmed":
			confirmed++
		case "":
			inFlight++
		default:
			failed++
		}
	}
	return confirmed, failed, inFlight
}

func (d *Dashboard) statusLine() string {
	confirmed, failed, inFlight := d.counts()
	parts := []string{
		SuccessStyle.Render(fmt.Sprintf("✔ %d confirmed", confirmed)),
		ErrorStyle.Render(fmt.Sprintf("✖ %d failed", failed)),
		InfoStyle.Render(fmt.Sprintf("◌ %d in flight", inFlight)),
	}
	line := strings.Join(parts, MutedStyle.Render("  │  "))

	if d.batch != nil {
		line += MutedStyle.Render(fmt.Sprintf("   batch %d/%d in %s",
			d.batch.Confirmed, d.batch.Total, d.batch.Duration.Round(time.Millisecond)))
	}
	if d.finished {
		if d.runErr != nil {
			line += "\n" + ErrorStyle.Render("run finished: "+d.runErr.Error())
		} else {
			line += "\n" + SuccessStyle.Render("run finished")
		}
	}
	return line
}

func (d *Dashboard) helpView() string {
	if d.showHelp {
		var lines []string
		for _, group := range d.keys.FullHelp() {
			var parts []string
			for _, binding := range group {
				parts = append(parts, binding.Help().Key+" "+binding.Help().Desc)
			}
			lines = append(lines, strings.Join(parts, "   "))
		}
		return HelpStyle.Render(strings.Join(lines, "\n"))
	}

	var parts []string
	for _, binding := range d.keys.ShortHelp() {
		parts = append(parts, binding.Help().Key+" "+binding.Help().Desc)
	}
	return HelpStyle.Render(strings.Join(parts, "   "))
}

func stateText(row *submissionRow) string {
	switch row.outcome {
	case "confirmed":
		return fmt.Sprintf("✅ confirmed in %s", row.duration.Round(time.Millisecond))
	case "rejected":
		if row.errText != "" {
			return "❌ " + row.errText
		}
		return "❌ rejected"
	case "timed_out":
		return "⌛ timed out"
	default:
		if row.attempts == 0 {
			return "◌ queued"
		}
		if row.level != "" {
			return "⟳ " + row.level
		}
		return "⟳ broadcasting"
	}
}

func slotText(slot uint64) string {
	if slot == 0 {
		return "-"
	}
	return strconv.FormatUint(slot, 10)
}

func levelText(level string) string {
	if level == "" {
		return "-"
	}
	return level
}
