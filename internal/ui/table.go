package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column is a table column. Max caps its width; zero sizes it to the
// widest cell.
type Column struct {
	Title string
	Max   int
}

// Row is one line of cells.
type Row []string

// Table lays out rows in content-sized columns. A marked row is drawn
// highlighted with a leading marker.
type Table struct {
	Columns []Column

	rows   []Row
	marked []bool
}

const rowMarker = "▸ "

// NewTable creates an empty table.
func NewTable(cols ...Column) *Table {
	return &Table{Columns: cols}
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) { t.add(cells, false) }

// AddMarkedRow appends a highlighted row.
func (t *Table) AddMarkedRow(cells ...string) { t.add(cells, true) }

func (t *Table) add(cells []string, marked bool) {
	t.rows = append(t.rows, Row(cells))
	t.marked = append(t.marked, marked)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

func (t *Table) widths() []int {
	w := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		w[i] = lipgloss.Width(col.Title)
		for _, row := range t.rows {
			if i < len(row) && lipgloss.Width(row[i]) > w[i] {
				w[i] = lipgloss.Width(row[i])
			}
		}
		if col.Max > 0 && w[i] > col.Max {
			w[i] = col.Max
		}
	}
	return w
}

// Render returns the table as a string.
func (t *Table) Render() string {
	widths := t.widths()
	headerStyle := lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)
	gutter := strings.Repeat(" ", lipgloss.Width(rowMarker))

	var sb strings.Builder
	cells := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		cells[i] = headerStyle.Render(fit(col.Title, widths[i]))
	}
	sb.WriteString(gutter + strings.Join(cells, "  ") + "\n")

	total := 0
	for _, w := range widths {
		total += w
	}
	if len(widths) > 1 {
		total += 2 * (len(widths) - 1)
	}
	sb.WriteString(gutter + StyleMeta.Render(strings.Repeat("─", total)) + "\n")

	for r, row := range t.rows {
		style, lead := lipgloss.NewStyle().Foreground(ColorValue), gutter
		if t.marked[r] {
			style, lead = StyleSuccess, StyleSuccess.Render(rowMarker)
		}
		for i := range t.Columns {
			val := ""
			if i < len(row) {
				val = row[i]
			}
			cells[i] = style.Render(fit(val, widths[i]))
		}
		sb.WriteString(lead + strings.Join(cells, "  ") + "\n")
	}
	return sb.String()
}

// fit left-aligns s in exactly width cells, cutting it with an ellipsis when
// it is too wide.
func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if w := lipgloss.Width(s); w <= width {
		return s + strings.Repeat(" ", width-w)
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	out := string(r) + "…"
	return out + strings.Repeat(" ", width-lipgloss.Width(out))
}

// KeyValueBlock renders a set of key-value pairs in a bordered box.
func KeyValueBlock(title string, pairs [][2]string) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title))
		sb.WriteString("\n")
	}
	for _, p := range pairs {
		key := StyleMeta.Render(fmt.Sprintf("%-20s", p[0]+":"))
		val := StyleValue.Render(p[1])
		sb.WriteString("  " + key + " " + val + "\n")
	}
	return StyleBorder.Render(sb.String())
}
