package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TableColumn represents a column configuration.
type TableColumn struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

// Table renders tabular data with a highlighted selection row.
type Table struct {
	columns     []TableColumn
	rows        [][]string
	rowStyles   []lipgloss.Style
	width       int
	selectedRow int
	selectable  bool

	headerStyle      lipgloss.Style
	rowStyle         lipgloss.Style
	selectedRowStyle lipgloss.Style
}

// NewTable creates a table with the given columns.
func NewTable(columns ...TableColumn) *Table {
	return &Table{
		columns:          columns,
		selectable:       true,
		headerStyle:      TableHeaderStyle,
		rowStyle:         TableRowStyle,
		selectedRowStyle: TableRowSelectedStyle,
	}
}

// SetRows replaces all table rows.
func (t *Table) SetRows(rows [][]string) *Table {
	t.rows = rows
	t.rowStyles = make([]lipgloss.Style, len(rows))
	for i := range t.rowStyles {
		t.rowStyles[i] = t.rowStyle
	}
	if t.selectedRow >= len(rows) && len(rows) > 0 {
		t.selectedRow = len(rows) - 1
	}
	return t
}

// SetRowStyle overrides the style of one row.
func (t *Table) SetRowStyle(index int, style lipgloss.Style) *Table {
	if index >= 0 && index < len(t.rowStyles) {
		t.rowStyles[index] = style
	}
	return t
}

// SetWidth sets the total rendering width.
func (t *Table) SetWidth(width int) *Table {
	t.width = width
	return t
}

// SetSelectable enables or disables the selection highlight.
func (t *Table) SetSelectable(selectable bool) *Table {
	t.selectable = selectable
	return t
}

// MoveUp moves the selection up.
func (t *Table) MoveUp() *Table {
	if t.selectable && t.selectedRow > 0 {
		t.selectedRow--
	}
	return t
}

// MoveDown moves the selection down.
func (t *Table) MoveDown() *Table {
	if t.selectable && t.selectedRow < len(t.rows)-1 {
		t.selectedRow++
	}
	return t
}

// SelectedRow returns the selected row index.
func (t *Table) SelectedRow() int {
	return t.selectedRow
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return len(t.rows)
}

// View renders the table.
func (t *Table) View() string {
	if len(t.columns) == 0 {
		return ""
	}

	t.calculateColumnWidths()

	var content strings.Builder

	var headerRow strings.Builder
	for i, col := range t.columns {
		headerRow.WriteString(t.renderCell(col.Header, col.Width, col.Align, t.headerStyle))
		if i < len(t.columns)-1 {
			headerRow.WriteString("│")
		}
	}
	content.WriteString(headerRow.String())
	content.WriteString("\n")

	var separator strings.Builder
	for i, col := range t.columns {
		separator.WriteString(strings.Repeat("─", col.Width))
		if i < len(t.columns)-1 {
			separator.WriteString("┼")
		}
	}
	content.WriteString(separator.String())

	for rowIndex, row := range t.rows {
		content.WriteString("\n")

		rowStyle := t.rowStyles[rowIndex]
		if t.selectable && rowIndex == t.selectedRow {
			rowStyle = t.selectedRowStyle
		}

		var rowStr strings.Builder
		for i, col := range t.columns {
			cellData := ""
			if i < len(row) {
				cellData = row[i]
			}
			rowStr.WriteString(t.renderCell(cellData, col.Width, col.Align, rowStyle))
			if i < len(t.columns)-1 {
				rowStr.WriteString("│")
			}
		}
		content.WriteString(rowStr.String())
	}

	return content.String()
}

func (t *Table) renderCell(content string, width int, align lipgloss.Position, style lipgloss.Style) string {
	if len(content) > width {
		if width > 3 {
			content = content[:width-3] + "..."
		} else {
			content = content[:width]
		}
	}
	return style.Width(width).Align(align).Render(content)
}

// calculateColumnWidths distributes the remaining width across columns
// without an explicit width.
func (t *Table) calculateColumnWidths() {
	if t.width <= 0 {
		for i := range t.columns {
			if t.columns[i].Width <= 0 {
				t.columns[i].Width = len(t.columns[i].Header) + 2
			}
		}
		return
	}

	totalExplicitWidth := 0
	autoWidthColumns := 0
	for _, col := range t.columns {
		if col.Width > 0 {
			totalExplicitWidth += col.Width
		} else {
			autoWidthColumns++
		}
	}

	separatorWidth := len(t.columns) - 1
	availableWidth := t.width - totalExplicitWidth - separatorWidth

	if autoWidthColumns > 0 && availableWidth > 0 {
		autoWidth := availableWidth / autoWidthColumns
		for i := range t.columns {
			if t.columns[i].Width <= 0 {
				t.columns[i].Width = autoWidth
			}
		}
	}
}
