package ui

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cwarden/termin/internal/calendar"
	"github.com/cwarden/termin/internal/config"
)

type fakeGateway struct {
	entries   []calendar.Entry
	createErr error
	importMsg string
	importErr error
	export    []byte

	loads    int
	created  []calendar.Entry
	updated  []calendar.Target
	deleted  []calendar.Target
	imported []string
	pushed   []calendar.RemoteConfig
}

func (g *fakeGateway) LoadEntries(ctx context.Context) ([]calendar.Entry, error) {
	g.loads++
	return append([]calendar.Entry(nil), g.entries...), nil
}

func (g *fakeGateway) CreateEntry(ctx context.Context, e calendar.Entry) error {
	if g.createErr != nil {
		return g.createErr
	}
	g.created = append(g.created, e)
	g.entries = append(g.entries, e)
	return nil
}

func (g *fakeGateway) UpdateEntry(ctx context.Context, t calendar.Target, e calendar.Entry) error {
	g.updated = append(g.updated, t)
	g.entries[t.Position] = e
	return nil
}

func (g *fakeGateway) DeleteEntry(ctx context.Context, t calendar.Target) error {
	g.deleted = append(g.deleted, t)
	g.entries = append(g.entries[:t.Position], g.entries[t.Position+1:]...)
	return nil
}

func (g *fakeGateway) ImportFile(ctx context.Context, name string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	g.imported = append(g.imported, filepath.Base(name))
	return g.importMsg, g.importErr
}

func (g *fakeGateway) ExportCalendar(ctx context.Context) ([]byte, error) {
	if g.export == nil {
		return nil, errors.New("export failed")
	}
	return g.export, nil
}

func (g *fakeGateway) GetConfig(ctx context.Context) (calendar.RemoteConfig, error) {
	return calendar.RemoteConfig{}, nil
}

func (g *fakeGateway) SetConfig(ctx context.Context, cfg calendar.RemoteConfig) error {
	g.pushed = append(g.pushed, cfg)
	return nil
}

type detailError struct{ detail string }

func (e detailError) Error() string      { return "status 400: " + e.detail }
func (e detailError) UserDetail() string { return e.detail }

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func sampleEntries() []calendar.Entry {
	return []calendar.Entry{
		{ID: "a1", Title: "Zahnarzt", Start: "2024-03-05T09:00", End: "2024-03-05T10:00"},
		{ID: "b2", Title: "Team", Start: "2024-03-12T10:00", End: "2024-03-12T11:00"},
	}
}

func newTestModel(t *testing.T, gw *fakeGateway, tweak ...func(*config.Config)) *Model {
	t.Helper()
	session := calendar.NewSession(time.UTC)
	session.SetClock(func() time.Time { return testNow })
	session.SetCurrentDate(testNow)

	cfg := config.DefaultConfig()
	cfg.AutoRefresh = false
	cfg.ExportDir = t.TempDir()
	for _, f := range tweak {
		f(cfg)
	}

	m := NewModel(context.Background(), cfg, session, gw)
	drive(t, m, m.Init())
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

// drive runs cmd and feeds every resulting message back into m until no
// work is left.
func drive(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 100 {
			t.Fatal("command loop did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, next := m.Update(msg)
			queue = append(queue, next)
		}
	}
}

func keyMsg(key string) tea.KeyMsg {
	special := map[string]tea.KeyType{
		"enter":     tea.KeyEnter,
		"tab":       tea.KeyTab,
		"shift+tab": tea.KeyShiftTab,
		"esc":       tea.KeyEsc,
		"left":      tea.KeyLeft,
		"right":     tea.KeyRight,
		"up":        tea.KeyUp,
		"down":      tea.KeyDown,
	}
	if k, ok := special[key]; ok {
		return tea.KeyMsg{Type: k}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func press(t *testing.T, m *Model, keys ...string) {
	t.Helper()
	for _, k := range keys {
		_, cmd := m.Update(keyMsg(k))
		drive(t, m, cmd)
	}
}

func TestInitLoadsEntries(t *testing.T) {
	gw := &fakeGateway{entries: sampleEntries()}
	m := newTestModel(t, gw)

	if gw.loads != 1 {
		t.Errorf("loads = %d, want 1", gw.loads)
	}
	if got := m.session.Status(); got != "Status: 2 Termine geladen" {
		t.Errorf("status = %q", got)
	}
	view := m.View()
	for _, want := range []string{"März 2024", "Termine (2)", "Zahnarzt", "Team"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestEmptyListView(t *testing.T) {
	m := newTestModel(t, &fakeGateway{})
	if view := m.View(); !strings.Contains(view, calendar.EmptyListText) {
		t.Errorf("view missing empty state:\n%s", view)
	}
}

func TestGridNavigation(t *testing.T) {
	tests := []struct {
		name      string
		keys      []string
		wantDate  time.Time
		wantMonth time.Month
	}{
		{"right", []string{"l"}, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), time.March},
		{"left arrow", []string{"left"}, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), time.March},
		{"down a week", []string{"j"}, time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC), time.March},
		{"up into february", []string{"k", "k", "k"}, time.Date(2024, 2, 23, 0, 0, 0, 0, time.UTC), time.February},
		{"next month", []string{">"}, time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC), time.April},
		{"prev month", []string{"<"}, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), time.February},
		{"back to today", []string{">", ">", "t"}, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), time.March},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t, &fakeGateway{})
			press(t, m, tt.keys...)
			if !m.selected.Equal(tt.wantDate) {
				t.Errorf("selected = %v, want %v", m.selected, tt.wantDate)
			}
			if got := m.session.CurrentDate().Month(); got != tt.wantMonth {
				t.Errorf("month = %v, want %v", got, tt.wantMonth)
			}
		})
	}
}

func TestShiftMonthClampsDay(t *testing.T) {
	m := newTestModel(t, &fakeGateway{})
	m.selectDate(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	press(t, m, ">")
	want := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	if !m.selected.Equal(want) {
		t.Errorf("selected = %v, want %v", m.selected, want)
	}
}

func TestEnterOnEmptyDayOpensForm(t *testing.T) {
	m := newTestModel(t, &fakeGateway{entries: sampleEntries()})
	press(t, m, "enter")

	if m.form == nil {
		t.Fatal("form not opened")
	}
	f := m.form.value()
	if f.StartDate != "2024-03-15" || f.StartTime != calendar.DefaultStartTime || f.EndTime != calendar.DefaultEndTime {
		t.Errorf("form = %+v", f)
	}
	if !strings.Contains(m.View(), "Neuer Termin") {
		t.Error("form heading missing")
	}
}

func TestEnterOnBusyDayFocusesList(t *testing.T) {
	m := newTestModel(t, &fakeGateway{entries: sampleEntries()})
	m.selectDate(time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC))
	press(t, m, "enter")

	if m.form != nil {
		t.Error("busy day opened the form")
	}
	if m.focus != FocusList || m.listIndex != 1 {
		t.Errorf("focus = %v index = %d, want list at 1", m.focus, m.listIndex)
	}
}

func TestCreateEntry(t *testing.T) {
	gw := &fakeGateway{entries: sampleEntries()}
	m := newTestModel(t, gw)

	press(t, m, "n", "Arzt", "enter")

	if len(gw.created) != 1 {
		t.Fatalf("created = %d, want 1", len(gw.created))
	}
	got := gw.created[0]
	if got.Title != "Arzt" || got.Start != "2024-03-15T09:00" || got.End != "2024-03-15T10:00" {
		t.Errorf("created = %+v", got)
	}
	if m.form != nil || m.session.Editor.Mode() != calendar.EditClosed {
		t.Error("form still open after save")
	}
	if gw.loads != 2 {
		t.Errorf("loads = %d, want reload after save", gw.loads)
	}
	if got := m.session.Cache.Len(); got != 3 {
		t.Errorf("cache len = %d, want 3", got)
	}
}

func TestCreateFailureKeepsForm(t *testing.T) {
	gw := &fakeGateway{createErr: errors.New("boom")}
	m := newTestModel(t, gw)

	press(t, m, "n", "Arzt", "enter")

	if want := calendar.AlertSaveFailed + ": boom"; m.session.Alert() != want {
		t.Errorf("alert = %q, want %q", m.session.Alert(), want)
	}
	press(t, m, "x")
	if m.session.Alert() != "" {
		t.Error("alert not dismissed")
	}
	if m.form == nil || m.form.value().Title != "Arzt" {
		t.Error("form lost after failed save")
	}
}

func TestLateSaveAnswerLeavesNewerForm(t *testing.T) {
	tests := []struct {
		name      string
		createErr error
		wantLoads int
	}{
		{"late success", nil, 2},
		{"late failure", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{createErr: tt.createErr}
			m := newTestModel(t, gw)

			press(t, m, "n", "A")
			_, held := m.Update(keyMsg("enter"))
			if held == nil {
				t.Fatal("enter sent no save")
			}
			press(t, m, "esc", "n", "BC")

			_, next := m.Update(held())
			drive(t, m, next)

			if m.form == nil || m.form.value().Title != "BC" {
				t.Fatal("late answer replaced the form being typed in")
			}
			if m.session.Editor.Mode() != calendar.EditCreating {
				t.Errorf("mode = %v, want creating", m.session.Editor.Mode())
			}
			if m.session.Alert() != "" || m.session.Editor.LastError() != nil {
				t.Errorf("late answer reported on newer form: alert %q err %v",
					m.session.Alert(), m.session.Editor.LastError())
			}
			if gw.loads != tt.wantLoads {
				t.Errorf("loads = %d, want %d", gw.loads, tt.wantLoads)
			}

			press(t, m, "enter")
			if tt.createErr == nil && (m.form != nil || len(gw.created) != 2) {
				t.Errorf("newer form not saved: form %v created %d", m.form != nil, len(gw.created))
			}
		})
	}
}

func TestValidationErrorShowsAlert(t *testing.T) {
	gw := &fakeGateway{}
	m := newTestModel(t, gw)

	press(t, m, "n", "enter")

	if !strings.HasPrefix(m.session.Alert(), calendar.AlertSaveFailed+": ") {
		t.Errorf("alert = %q", m.session.Alert())
	}
	if len(gw.created) != 0 {
		t.Error("invalid form was sent")
	}
	press(t, m, "x", "esc")
	if m.form != nil || m.session.Editor.Mode() != calendar.EditClosed {
		t.Error("esc did not close the form")
	}
}

func TestEditEntry(t *testing.T) {
	gw := &fakeGateway{entries: sampleEntries()}
	m := newTestModel(t, gw)

	press(t, m, "tab", "e")
	if m.form == nil {
		t.Fatal("edit form not opened")
	}
	if m.form.heading != "Termin bearbeiten" || m.form.value().Title != "Zahnarzt" {
		t.Errorf("form = %q %+v", m.form.heading, m.form.value())
	}

	m.form.inputs[fieldTitle].SetValue("Zahnarzt Dr. Weber")
	press(t, m, "enter")

	if len(gw.updated) != 1 {
		t.Fatalf("updated = %d, want 1", len(gw.updated))
	}
	if want := (calendar.Target{Position: 0, ID: "a1"}); gw.updated[0] != want {
		t.Errorf("target = %+v, want %+v", gw.updated[0], want)
	}
	if gw.entries[0].Title != "Zahnarzt Dr. Weber" {
		t.Errorf("entry = %+v", gw.entries[0])
	}
}

func TestListNavigation(t *testing.T) {
	m := newTestModel(t, &fakeGateway{entries: sampleEntries()})

	press(t, m, "tab", "j", "j")
	if m.listIndex != 1 {
		t.Errorf("listIndex = %d, want 1", m.listIndex)
	}
	press(t, m, "k")
	if m.listIndex != 0 {
		t.Errorf("listIndex = %d, want 0", m.listIndex)
	}
	press(t, m, "tab")
	if m.focus != FocusGrid {
		t.Error("tab did not return to the grid")
	}
}

func TestDeleteConfirmation(t *testing.T) {
	tests := []struct {
		name        string
		confirm     bool
		keys        []string
		wantDeleted int
	}{
		{"confirmed", true, []string{"tab", "j", "d", "y"}, 1},
		{"declined", true, []string{"tab", "d", "n"}, 0},
		{"no confirmation", false, []string{"tab", "d"}, 1},
		{"grid focus", true, []string{"d"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{entries: sampleEntries()}
			m := newTestModel(t, gw, func(c *config.Config) { c.ConfirmDelete = tt.confirm })
			press(t, m, tt.keys...)
			if len(gw.deleted) != tt.wantDeleted {
				t.Errorf("deleted = %d, want %d", len(gw.deleted), tt.wantDeleted)
			}
			if m.mode != ViewCalendar {
				t.Errorf("mode = %v, want calendar", m.mode)
			}
		})
	}
}

func TestDeleteConfirmView(t *testing.T) {
	m := newTestModel(t, &fakeGateway{entries: sampleEntries()})
	press(t, m, "tab", "d")
	if !strings.Contains(m.View(), calendar.DeleteConfirmText) {
		t.Error("confirmation text missing")
	}
}

func TestDeleteAfterReloadIsStale(t *testing.T) {
	gw := &fakeGateway{entries: sampleEntries()}
	m := newTestModel(t, gw)

	press(t, m, "tab", "d")
	drive(t, m, m.loadCmd())
	press(t, m, "y")

	if len(gw.deleted) != 0 {
		t.Errorf("stale ref deleted %+v", gw.deleted)
	}
	if m.session.Alert() != calendar.AlertStale {
		t.Errorf("alert = %q, want stale alert", m.session.Alert())
	}
}

func TestSupersededLoadDropped(t *testing.T) {
	gw := &fakeGateway{entries: sampleEntries()}
	m := newTestModel(t, gw)

	first := m.loadCmd()()
	gw.entries = gw.entries[:1]
	second := m.loadCmd()()

	m.Update(second)
	m.Update(first)

	if got := m.session.Cache.Len(); got != 1 {
		t.Errorf("cache len = %d, want the newer load", got)
	}
}

func TestImportPrompt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urlaub.ics")
	body := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nBEGIN:VEVENT\r\nUID:1\r\nDTSTART:20240320T090000Z\r\nSUMMARY:Urlaub\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	gw := &fakeGateway{importMsg: "1 Einträge importiert"}
	m := newTestModel(t, gw)

	press(t, m, "i")
	if m.mode != ViewImport || !strings.Contains(m.View(), "Kalender importieren") {
		t.Fatal("import prompt not shown")
	}
	press(t, m, path, "enter")

	if len(gw.imported) != 1 || gw.imported[0] != "urlaub.ics" {
		t.Errorf("imported = %v", gw.imported)
	}
	if gw.loads != 2 {
		t.Errorf("loads = %d, want reload after import", gw.loads)
	}
	if m.mode != ViewCalendar {
		t.Error("prompt still open")
	}
}

func TestImportFailureShowsPlainDetail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kaputt.ics")
	if err := os.WriteFile(path, []byte("nonsense"), 0644); err != nil {
		t.Fatal(err)
	}

	gw := &fakeGateway{importErr: detailError{detail: "\x1b[31mUngültige Datei"}}
	m := newTestModel(t, gw)

	press(t, m, "i", path, "enter")

	if got := m.session.Status(); got != "Import fehlgeschlagen" {
		t.Errorf("status = %q", got)
	}
	view := m.View()
	if !strings.Contains(view, "Fehler beim Import: Ungültige Datei") {
		t.Errorf("alert missing from view:\n%s", view)
	}
	if strings.Contains(view, "\x1b[31m") {
		t.Error("backend escape sequence reached the terminal")
	}
}

func TestImportMissingFile(t *testing.T) {
	gw := &fakeGateway{}
	m := newTestModel(t, gw)

	press(t, m, "i", filepath.Join(t.TempDir(), "fehlt.ics"), "enter")

	if len(gw.imported) != 0 {
		t.Error("missing file uploaded")
	}
	if !strings.HasPrefix(m.session.Alert(), calendar.AlertImportFailed) {
		t.Errorf("alert = %q", m.session.Alert())
	}
}

func TestExport(t *testing.T) {
	gw := &fakeGateway{export: []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")}
	m := newTestModel(t, gw)

	press(t, m, "x")

	path := filepath.Join(m.config.ExportDir, calendar.ExportFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("export not written: %v", err)
	}
	if string(data) != string(gw.export) {
		t.Errorf("export = %q", data)
	}
	if m.session.Status() != calendar.StatusExported {
		t.Errorf("status = %q", m.session.Status())
	}
}

func TestExportFailure(t *testing.T) {
	m := newTestModel(t, &fakeGateway{})
	press(t, m, "x")
	if m.session.Alert() != calendar.AlertExportFailed {
		t.Errorf("alert = %q", m.session.Alert())
	}
}

func TestToggleDarkMode(t *testing.T) {
	gw := &fakeGateway{}
	m := newTestModel(t, gw)

	press(t, m, "D")

	if !m.session.DarkMode() {
		t.Error("dark mode not enabled")
	}
	if len(gw.pushed) != 1 || !gw.pushed[0].DarkMode {
		t.Errorf("pushed = %+v", gw.pushed)
	}
	if got := m.styles.App.GetBackground(); got != lipgloss.Color("234") {
		t.Errorf("background = %v, want dark", got)
	}
}

func TestToggleBeforeStartupConfigSticks(t *testing.T) {
	m := newTestModel(t, &fakeGateway{})

	press(t, m, "D")
	m.Update(remoteConfigMsg{config: calendar.RemoteConfig{DarkMode: false}})

	if !m.session.DarkMode() {
		t.Error("startup config undid the local toggle")
	}
	if got := m.styles.App.GetBackground(); got != lipgloss.Color("234") {
		t.Errorf("background = %v, want dark", got)
	}
}

func TestHelpView(t *testing.T) {
	m := newTestModel(t, &fakeGateway{})

	press(t, m, "?")
	if m.mode != ViewHelp || !strings.Contains(m.View(), "Termin Hilfe") {
		t.Fatal("help not shown")
	}
	press(t, m, "z")
	if m.mode != ViewCalendar {
		t.Error("help not closed")
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, &fakeGateway{})
	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestRefreshTick(t *testing.T) {
	gw := &fakeGateway{}
	m := newTestModel(t, gw)

	_, cmd := m.Update(refreshTickMsg{id: m.refreshID - 1})
	if cmd != nil {
		t.Error("tick from an old schedule was honoured")
	}

	press(t, m, "n")
	_, cmd = m.Update(refreshTickMsg{id: m.refreshID})
	drive(t, m, cmd)
	if gw.loads != 1 {
		t.Errorf("loads = %d, reload ran under an open form", gw.loads)
	}

	press(t, m, "esc")
	_, cmd = m.Update(refreshTickMsg{id: m.refreshID})
	drive(t, m, cmd)
	if gw.loads != 2 {
		t.Errorf("loads = %d, want 2", gw.loads)
	}
}

func TestConfigReloadRebinds(t *testing.T) {
	m := newTestModel(t, &fakeGateway{})

	cfg := config.DefaultConfig()
	cfg.AutoRefresh = false
	cfg.KeyBindings["N"] = "new_event"
	m.Update(ConfigReloadedMsg{Config: cfg})

	press(t, m, "N")
	if m.form == nil {
		t.Error("rebound key did not open the form")
	}
}

func TestStyleFor(t *testing.T) {
	tests := []struct {
		spec  string
		check func(lipgloss.Style) bool
	}{
		{"bold", func(s lipgloss.Style) bool { return s.GetBold() }},
		{"reverse", func(s lipgloss.Style) bool { return s.GetReverse() }},
		{"underline", func(s lipgloss.Style) bool { return s.GetUnderline() }},
		{"196", func(s lipgloss.Style) bool { return s.GetForeground() == lipgloss.Color("196") }},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			if !tt.check(styleFor(tt.spec)) {
				t.Errorf("styleFor(%q) did not apply", tt.spec)
			}
		})
	}
}
