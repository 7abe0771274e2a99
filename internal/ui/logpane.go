package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/rustamqulov/solana-lander/internal/logger"
)

const logPaneHistory = 100

// LogPane renders the tail of the log ring buffer inside a viewport.
type LogPane struct {
	ring     *logger.Ring
	viewport viewport.Model
	visible  bool
	title    string
	width    int
	height   int
}

// NewLogPane creates a log pane over the given ring buffer.
func NewLogPane(ring *logger.Ring) *LogPane {
	return &LogPane{
		ring:     ring,
		visible:  true,
		title:    "Recent Logs",
		viewport: viewport.New(50, 6),
	}
}

// SetSize sets the pane dimensions.
func (p *LogPane) SetSize(width, height int) {
	p.width = width
	p.height = height

	viewportWidth := width - 4
	viewportHeight := height - 3
	if viewportHeight < 2 {
		viewportHeight = 2
	}
	p.viewport.Width = viewportWidth
	p.viewport.Height = viewportHeight
}

// Toggle flips the pane visibility.
func (p *LogPane) Toggle() {
	p.visible = !p.visible
}

// Visible reports whether the pane is shown.
func (p *LogPane) Visible() bool {
	return p.visible
}

// Refresh pulls the latest entries from the ring buffer.
func (p *LogPane) Refresh() {
	if p.ring == nil {
		p.viewport.SetContent(MutedStyle.Render("no log buffer attached"))
		return
	}

	entries := p.ring.Recent(logPaneHistory)
	if len(entries) == 0 {
		p.viewport.SetContent(MutedStyle.Render("waiting for logs"))
		return
	}

	p.viewport.SetContent(strings.Join(entries, "\n"))
	p.viewport.GotoBottom()
}

// ScrollUp scrolls one line up.
func (p *LogPane) ScrollUp() {
	p.viewport.LineUp(1)
}

// ScrollDown scrolls one line down.
func (p *LogPane) ScrollDown() {
	p.viewport.LineDown(1)
}

// View renders the pane.
func (p *LogPane) View() string {
	if !p.visible {
		return ""
	}

	p.Refresh()

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		SubHeaderStyle.Render(p.title),
		p.viewport.View(),
	)
	return PanelStyle.Render(content)
}
