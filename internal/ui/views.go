package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/cwarden/termin/internal/calendar"
)

const (
	cellWidth    = 9
	minListWidth = 30
)

func (m *Model) viewCalendar() string {
	grid := m.renderGrid()
	gridWidth := lipgloss.Width(grid)
	listWidth := max(m.width-gridWidth-1, minListWidth)
	list := m.renderList(listWidth, m.height-1)

	main := lipgloss.JoinHorizontal(lipgloss.Top, grid, " ", list)
	return lipgloss.JoinVertical(lipgloss.Left, main, m.renderStatusBar())
}

func (m *Model) renderGrid() string {
	g := m.session.Grid()
	var rows []string

	title := lipgloss.PlaceHorizontal(cellWidth*7, lipgloss.Center, g.Title)
	rows = append(rows, m.styles.Header.Render(title), "")

	var line []string
	for i, c := range g.Cells {
		line = append(line, m.renderCell(c))
		if (i+1)%7 == 0 {
			rows = append(rows, strings.Join(line, ""))
			line = nil
		}
	}
	if len(line) > 0 {
		rows = append(rows, strings.Join(line, ""))
	}

	style := m.styles.Border
	if m.focus == FocusGrid {
		style = m.styles.Focused
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderCell(c calendar.Cell) string {
	pad := func(s string) string {
		return truncate.String(s, cellWidth) + strings.Repeat(" ", max(cellWidth-lipgloss.Width(s), 0))
	}

	switch c.Kind {
	case calendar.CellHeader:
		return m.styles.Header.UnsetUnderline().Render(pad(c.Label))
	case calendar.CellFiller:
		return pad("")
	}

	day := fmt.Sprintf("%2d", c.Day)
	switch {
	case calendar.KeyOf(c.Date) == calendar.KeyOf(m.selected):
		day = m.styles.Selected.Render(day)
	case c.Today:
		day = m.styles.Today.Render(day)
	case c.Date.Weekday() == time.Saturday || c.Date.Weekday() == time.Sunday:
		day = m.styles.Weekend.Render(day)
	default:
		day = m.styles.Normal.Render(day)
	}

	marks := strings.Repeat("•", c.Dots) + c.Suffix()
	cell := day + " " + m.styles.Event.Render(marks)
	return cell + strings.Repeat(" ", max(cellWidth-lipgloss.Width(cell), 0))
}

func (m *Model) renderList(width, height int) string {
	style := m.styles.Border
	if m.focus == FocusList {
		style = m.styles.Focused
	}
	inner := width - style.GetHorizontalFrameSize()

	list := m.session.List(calendar.TerminalEscaper)
	if list.Empty {
		return style.Width(inner).Render(lipgloss.JoinVertical(lipgloss.Left,
			m.styles.Header.Render("Termine"),
			"",
			m.styles.Normal.Render(calendar.EmptyListText),
			m.styles.Help.Render(wordwrap.String(calendar.EmptyListHint, inner)),
		))
	}

	blocks := make([]string, len(list.Items))
	for i, item := range list.Items {
		blocks[i] = m.renderItem(item, inner, m.focus == FocusList && i == m.listIndex)
	}

	// Keep the selected item on screen.
	avail := max(height-style.GetVerticalFrameSize()-2, 1)
	m.listTop = min(m.listTop, m.listIndex)
	for m.listTop < m.listIndex && linesBetween(blocks, m.listTop, m.listIndex) > avail {
		m.listTop++
	}
	var visible []string
	used := 0
	for _, b := range blocks[m.listTop:] {
		h := lipgloss.Height(b)
		if used > 0 && used+h > avail {
			break
		}
		visible = append(visible, b)
		used += h
	}

	header := m.styles.Header.Render(fmt.Sprintf("Termine (%d)", len(list.Items)))
	body := append([]string{header, ""}, visible...)
	return style.Width(inner).Render(lipgloss.JoinVertical(lipgloss.Left, body...))
}

func linesBetween(blocks []string, from, to int) int {
	n := 0
	for _, b := range blocks[from : to+1] {
		n += lipgloss.Height(b)
	}
	return n
}

func (m *Model) renderItem(item calendar.Item, width int, selected bool) string {
	title := item.Title
	if item.Category != "" {
		title += " " + m.styles.Category.Render("["+item.Category+"]")
	}
	when := item.Date + " " + item.TimeRange
	if item.Reminder > 0 {
		when += fmt.Sprintf("  (Erinnerung %d Min.)", item.Reminder)
	}

	head := truncate.StringWithTail(title, uint(max(width-2, 1)), "…")
	if selected {
		head = m.styles.Selected.Render(head)
	} else {
		head = m.styles.Normal.Render(head)
	}
	lines := []string{head, "  " + m.styles.Help.Render(when)}

	if item.Description != "" {
		descWidth := max(min(m.config.DescriptionWidth, width-2), 10)
		desc := item.Description
		if m.config.WrapText {
			desc = wordwrap.String(desc, descWidth)
		} else {
			desc = truncate.StringWithTail(strings.ReplaceAll(desc, "\n", " "), uint(descWidth), "…")
		}
		for _, l := range strings.Split(desc, "\n") {
			lines = append(lines, "  "+l)
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderStatusBar() string {
	left := m.session.Status()
	if left == "" {
		left = calendar.MonthTitle(m.session.CurrentDate())
	}
	right := "? Hilfe  q Beenden"
	if m.session.DarkMode() {
		right = "Dunkel  " + right
	}

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}
	return m.styles.Status.Render(left + strings.Repeat(" ", padding) + right)
}

func (m *Model) viewHelp() string {
	binding := func(action, text string) string {
		keys := strings.Join(m.config.KeysFor(action), "/")
		return m.styles.Help.Render(fmt.Sprintf("  %-10s - %s", keys, text))
	}

	help := []string{
		m.styles.Header.Render("Termin Hilfe"),
		"",
		m.styles.Normal.Render("Navigation:"),
		m.styles.Help.Render("  ←↑↓→/hjkl - Tag wählen"),
		m.styles.Help.Render("  enter      - Tag öffnen"),
		binding("prev_month", "Vorheriger Monat"),
		binding("next_month", "Nächster Monat"),
		binding("today", "Heute"),
		binding("focus", "Kalender/Liste wechseln"),
		"",
		m.styles.Normal.Render("Aktionen:"),
		binding("new_event", "Neuer Termin"),
		binding("edit_event", "Termin bearbeiten"),
		binding("delete_event", "Termin löschen"),
		binding("refresh", "Neu laden"),
		binding("import", "Importieren"),
		binding("export", "Exportieren"),
		binding("toggle_dark", "Dunkelmodus"),
		binding("help", "Hilfe"),
		binding("quit", "Beenden"),
		"",
		m.styles.Help.Render("Beliebige Taste zum Zurückkehren..."),
	}

	return lipgloss.JoinVertical(lipgloss.Left, help...)
}

func (m *Model) viewForm() string {
	sections := []string{
		m.styles.Header.Render(m.form.heading),
		"",
	}
	sections = append(sections, m.form.rows()...)
	if err := m.session.Editor.LastError(); err != nil {
		sections = append(sections, "", m.styles.Alert.UnsetBorderStyle().UnsetPadding().Render(
			calendar.TerminalEscaper.Escape(err.Error())))
	}
	hint := "tab Nächstes Feld  enter Speichern  esc Abbrechen"
	if m.saving {
		hint = "Speichere..."
	}
	sections = append(sections, "", m.styles.Help.Render(hint))

	box := m.styles.Border.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) viewAlert() string {
	text := calendar.TerminalEscaper.Escape(m.session.Alert())
	width := max(min(60, m.width-8), 20)
	box := m.styles.Alert.Render(lipgloss.JoinVertical(lipgloss.Left,
		wordwrap.String(text, width),
		"",
		m.styles.Help.Render("Beliebige Taste zum Schließen"),
	))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) viewImport() string {
	box := m.styles.Border.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render("Kalender importieren"),
		"",
		m.styles.Normal.Render("Pfad zur .ics-Datei:"),
		m.prompt.input.View(),
		"",
		m.styles.Help.Render("enter Importieren  esc Abbrechen"),
	))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) viewConfirmDelete() string {
	box := m.styles.Border.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Normal.Render(calendar.DeleteConfirmText),
		"",
		m.styles.Help.Render("y Löschen  n Abbrechen"),
	))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
