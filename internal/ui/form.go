package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cwarden/termin/internal/calendar"
)

// Field labels in form order.
var formLabels = [...]string{
	"Titel",
	"Beschreibung",
	"Startdatum",
	"Startzeit",
	"Enddatum",
	"Endzeit",
	"Kategorie",
	"Erinnerung (Minuten vorher)",
}

const (
	fieldTitle = iota
	fieldDescription
	fieldStartDate
	fieldStartTime
	fieldEndDate
	fieldEndTime
	fieldCategory
	fieldReminder
)

// entryForm holds one text input per form field.
type entryForm struct {
	heading string
	inputs  []textinput.Model
	active  int
}

func newEntryForm(f calendar.Form, mode calendar.EditMode) *entryForm {
	values := [...]string{
		fieldTitle:       f.Title,
		fieldDescription: f.Description,
		fieldStartDate:   f.StartDate,
		fieldStartTime:   f.StartTime,
		fieldEndDate:     f.EndDate,
		fieldEndTime:     f.EndTime,
		fieldCategory:    f.Category,
		fieldReminder:    f.Reminder,
	}
	placeholders := [...]string{
		fieldStartDate: "JJJJ-MM-TT, heute, morgen, +3d",
		fieldStartTime: "HH:MM",
		fieldEndDate:   "JJJJ-MM-TT",
		fieldEndTime:   "HH:MM",
		fieldReminder:  "15",
	}

	form := &entryForm{heading: "Neuer Termin"}
	if mode == calendar.EditEditing {
		form.heading = "Termin bearbeiten"
	}
	for i := range formLabels {
		form.inputs = append(form.inputs, newInput(values[i], placeholders[i]))
	}
	form.inputs[fieldReminder].CharLimit = 6
	return form
}

func newInput(value, placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.Cursor.SetMode(cursor.CursorStatic)
	ti.SetValue(value)
	return ti
}

func (f *entryForm) focus(i int) tea.Cmd {
	f.inputs[f.active].Blur()
	f.active = (i + len(f.inputs)) % len(f.inputs)
	return f.inputs[f.active].Focus()
}

func (f *entryForm) next() tea.Cmd { return f.focus(f.active + 1) }
func (f *entryForm) prev() tea.Cmd { return f.focus(f.active - 1) }

func (f *entryForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.active], cmd = f.inputs[f.active].Update(msg)
	return cmd
}

func (f *entryForm) value() calendar.Form {
	v := func(i int) string { return f.inputs[i].Value() }
	return calendar.Form{
		Title:       v(fieldTitle),
		Description: v(fieldDescription),
		StartDate:   v(fieldStartDate),
		StartTime:   v(fieldStartTime),
		EndDate:     v(fieldEndDate),
		EndTime:     v(fieldEndTime),
		Category:    v(fieldCategory),
		Reminder:    v(fieldReminder),
	}
}

func (f *entryForm) rows() []string {
	width := 0
	for _, l := range formLabels {
		width = max(width, len([]rune(l)))
	}
	rows := make([]string, 0, len(f.inputs))
	for i, in := range f.inputs {
		label := formLabels[i] + strings.Repeat(" ", width-len([]rune(formLabels[i])))
		marker := "  "
		if i == f.active {
			marker = "> "
		}
		rows = append(rows, marker+label+"  "+in.View())
	}
	return rows
}

// importPrompt asks for the path of a calendar file to upload.
type importPrompt struct {
	input textinput.Model
}

func newImportPrompt() *importPrompt {
	return &importPrompt{input: newInput("", "~/kalender.ics")}
}

func (p *importPrompt) focus() tea.Cmd { return p.input.Focus() }

func (p *importPrompt) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

func (p *importPrompt) value() string {
	return strings.TrimSpace(p.input.Value())
}
