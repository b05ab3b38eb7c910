package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// NoSelection is returned by Cancel and by Confirm on an empty menu.
const NoSelection = -1

// MenuModel is a vertical list with a clamped cursor and a scroll window.
// It knows nothing about keys or rendering beyond its own rows.
type MenuModel struct {
	items    []string
	selected int
	offset   int
	height   int
}

// NewMenu returns a menu over items with the cursor on the first row.
func NewMenu(items []string) *MenuModel {
	m := &MenuModel{}
	m.SetItems(items)
	return m
}

// SetItems replaces the rows, keeping the cursor where it was when it is
// still in range.
func (m *MenuModel) SetItems(items []string) {
	m.items = items
	m.clamp()
}

// SetHeight sets how many rows are visible at once. Zero shows all rows.
func (m *MenuModel) SetHeight(h int) {
	if h < 0 {
		h = 0
	}
	m.height = h
	m.clamp()
}

// Len returns the number of rows.
func (m *MenuModel) Len() int { return len(m.items) }

// Selected returns the cursor index, or NoSelection when empty.
func (m *MenuModel) Selected() int {
	if len(m.items) == 0 {
		return NoSelection
	}
	return m.selected
}

// Select moves the cursor to i, clamped to the list.
func (m *MenuModel) Select(i int) {
	m.selected = i
	m.clamp()
}

// Offset returns the index of the first visible row.
func (m *MenuModel) Offset() int { return m.offset }

// Up moves the cursor up one row. No-op on the first row.
func (m *MenuModel) Up() {
	if m.selected > 0 {
		m.selected--
	}
	m.clamp()
}

// Down moves the cursor down one row. No-op on the last row.
func (m *MenuModel) Down() {
	if m.selected < len(m.items)-1 {
		m.selected++
	}
	m.clamp()
}

// Confirm returns the cursor index. An empty menu cannot be confirmed.
func (m *MenuModel) Confirm() int {
	return m.Selected()
}

// Cancel returns NoSelection.
func (m *MenuModel) Cancel() int {
	return NoSelection
}

// Visible returns the half-open range of rows inside the scroll window.
func (m *MenuModel) Visible() (start, end int) {
	end = len(m.items)
	if m.height > 0 && end-m.offset > m.height {
		end = m.offset + m.height
	}
	return m.offset, end
}

func (m *MenuModel) clamp() {
	if len(m.items) == 0 {
		m.selected, m.offset = 0, 0
		return
	}
	if m.selected >= len(m.items) {
		m.selected = len(m.items) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}

	if m.height <= 0 {
		m.offset = 0
		return
	}
	if m.selected < m.offset {
		m.offset = m.selected
	}
	if m.selected >= m.offset+m.height {
		m.offset = m.selected - m.height + 1
	}
	if maxOffset := len(m.items) - m.height; m.offset > maxOffset {
		m.offset = max(maxOffset, 0)
	}
}

// View renders the visible rows cut to width cells. An empty menu renders
// the placeholder.
func (m *MenuModel) View(width int, placeholder string) string {
	if len(m.items) == 0 {
		return menuDimStyle.Render("  " + placeholder)
	}

	start, end := m.Visible()
	rows := make([]string, 0, end-start+2)
	if start > 0 {
		rows = append(rows, menuDimStyle.Render("  ↑"))
	}
	for i := start; i < end; i++ {
		text := m.items[i]
		if width > 4 {
			text = runewidth.Truncate(text, width-4, "…")
		}
		if i == m.selected {
			rows = append(rows, menuSelectedStyle.Render("> "+text))
			continue
		}
		rows = append(rows, menuItemStyle.Render("  "+text))
	}
	if end < len(m.items) {
		rows = append(rows, menuDimStyle.Render("  ↓"))
	}
	return strings.Join(rows, "\n")
}
