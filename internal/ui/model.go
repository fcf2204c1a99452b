package ui

import (
	"bytes"
	"context"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mitchellh/go-homedir"
	"github.com/robfig/cron/v3"

	"github.com/cwarden/termin/internal/calendar"
	"github.com/cwarden/termin/internal/config"
	"github.com/cwarden/termin/internal/ics"
	"github.com/cwarden/termin/internal/log"
)

type ViewMode int

const (
	ViewCalendar ViewMode = iota
	ViewHelp
	ViewImport
	ViewConfirmDelete
)

// Focus is the pane that receives navigation keys.
type Focus int

const (
	FocusGrid Focus = iota
	FocusList
)

type Model struct {
	// Core components
	ctx      context.Context
	config   *config.Config
	session  *calendar.Session
	gateway  calendar.Gateway
	schedule cron.Schedule

	// View state
	mode      ViewMode
	focus     Focus
	selected  time.Time
	listIndex int
	listTop   int

	// Pending work
	pendingDelete calendar.Ref
	saving        bool
	refreshID     int

	// UI state
	width  int
	height int
	form   *entryForm
	prompt *importPrompt

	// Styles
	styles Styles
}

type Styles struct {
	App      lipgloss.Style
	Normal   lipgloss.Style
	Selected lipgloss.Style
	Today    lipgloss.Style
	Weekend  lipgloss.Style
	Header   lipgloss.Style
	Event    lipgloss.Style
	Category lipgloss.Style
	Help     lipgloss.Style
	Status   lipgloss.Style
	Alert    lipgloss.Style
	Border   lipgloss.Style
	Focused  lipgloss.Style
}

// NewModel builds the TUI over session. Gateway calls run with ctx, so
// cancelling it abandons requests still in flight.
func NewModel(ctx context.Context, cfg *config.Config, session *calendar.Session, gw calendar.Gateway) *Model {
	m := &Model{
		ctx:      ctx,
		config:   cfg,
		session:  session,
		gateway:  gw,
		mode:     ViewCalendar,
		selected: session.CurrentDate(),
	}
	m.applyConfig(cfg)
	return m
}

// NewStyles derives the palette from the configured colors. Dark selects the
// background the remote preference asks for.
func NewStyles(colors map[string]string, dark bool) Styles {
	color := func(name string) lipgloss.Style {
		return styleFor(colors[name])
	}

	app := lipgloss.NewStyle().
		Foreground(lipgloss.Color("235")).
		Background(lipgloss.Color("255"))
	normal := color("normal")
	if dark {
		app = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("234"))
	} else {
		normal = lipgloss.NewStyle().Foreground(lipgloss.Color("235"))
	}

	return Styles{
		App:    app,
		Normal: normal,
		Selected: color("selected").
			Bold(true),
		Today: color("today").
			Bold(true),
		Weekend: color("weekend"),
		Header: color("header").
			Underline(true),
		Event:    color("event"),
		Category: color("category"),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Status: color("status").
			Padding(0, 1),
		Alert: color("alert").
			Bold(true).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(1, 2),
		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1),
		Focused: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("220")).
			Padding(0, 1),
	}
}

// styleFor turns a color spec from the config (a color, "bold" or
// "reverse") into a style.
func styleFor(spec string) lipgloss.Style {
	s := lipgloss.NewStyle()
	switch spec {
	case "":
		return s
	case "bold":
		return s.Bold(true)
	case "reverse":
		return s.Reverse(true)
	case "underline":
		return s.Underline(true)
	}
	return s.Foreground(lipgloss.Color(spec))
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadCmd(),
		m.remoteConfigCmd(),
		m.refreshCmd(),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case loadedMsg:
		if m.session.FinishLoad(msg.seq, msg.entries, msg.err) {
			m.clampList()
		}
		return m, nil

	case savedMsg:
		current := msg.seq == m.session.Editor.Seq()
		if current {
			m.saving = false
		}
		if m.session.FinishSave(msg.seq, msg.err) {
			if current {
				m.form = nil
			}
			return m, m.loadCmd()
		}
		return m, nil

	case deletedMsg:
		if m.session.FinishDelete(msg.err) {
			return m, m.loadCmd()
		}
		return m, nil

	case importedMsg:
		if m.session.FinishImport(msg.message, msg.err) {
			return m, m.loadCmd()
		}
		return m, nil

	case exportedMsg:
		m.session.FinishExport(msg.path, msg.err)
		return m, nil

	case remoteConfigMsg:
		m.session.ApplyRemoteConfig(msg.config, msg.err)
		m.styles = NewStyles(m.config.Colors, m.session.DarkMode())
		return m, nil

	case configPushedMsg:
		m.session.FinishConfigPush(msg.err)
		return m, nil

	case refreshTickMsg:
		if msg.id != m.refreshID {
			return m, nil
		}
		// Reloading under an open form would invalidate the ref it edits.
		if m.session.Editor.Mode() != calendar.EditClosed {
			return m, m.refreshCmd()
		}
		return m, tea.Batch(m.loadCmd(), m.refreshCmd())

	case ConfigReloadedMsg:
		m.applyConfig(msg.Config)
		return m, m.refreshCmd()
	}

	if m.form != nil {
		return m, m.form.update(msg)
	}
	if m.prompt != nil {
		return m, m.prompt.update(msg)
	}
	return m, nil
}

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Lade..."
	}

	var body string
	switch {
	case m.session.Alert() != "":
		body = m.viewAlert()
	case m.form != nil:
		body = m.viewForm()
	case m.mode == ViewHelp:
		body = m.viewHelp()
	case m.mode == ViewImport:
		body = m.viewImport()
	case m.mode == ViewConfirmDelete:
		body = m.viewConfirmDelete()
	default:
		body = m.viewCalendar()
	}
	return m.styles.App.Width(m.width).Height(m.height).Render(body)
}

// applyConfig installs cfg's styles and refresh schedule.
func (m *Model) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	m.config = cfg
	m.styles = NewStyles(cfg.Colors, m.session.DarkMode())
	sched, err := cfg.RefreshSchedule()
	if err != nil {
		log.Error("refresh schedule", err, "cron", cfg.RefreshCron)
	}
	m.schedule = sched
	m.refreshID++
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	// An open alert swallows the key that dismisses it.
	if m.session.Alert() != "" {
		m.session.DismissAlert()
		return m, nil
	}

	switch {
	case m.form != nil:
		return m.handleFormKeys(msg)
	case m.mode == ViewHelp:
		m.mode = ViewCalendar
		return m, nil
	case m.mode == ViewImport:
		return m.handleImportKeys(msg)
	case m.mode == ViewConfirmDelete:
		return m.handleConfirmKeys(msg)
	}

	switch m.config.ActionFor(key) {
	case "quit":
		return m, tea.Quit
	case "help":
		m.mode = ViewHelp
		return m, nil
	case "today":
		m.selectDate(m.session.Now())
		return m, nil
	case "refresh":
		return m, m.loadCmd()
	case "new_event":
		m.session.OpenNew()
		return m, m.openForm()
	case "edit_event":
		return m, m.editSelected()
	case "delete_event":
		return m, m.deleteSelected()
	case "next_month":
		m.shiftMonth(1)
		return m, nil
	case "prev_month":
		m.shiftMonth(-1)
		return m, nil
	case "toggle_dark":
		cfg := m.session.ToggleDarkMode()
		m.styles = NewStyles(m.config.Colors, cfg.DarkMode)
		return m, m.pushConfigCmd(cfg)
	case "export":
		return m, m.exportCmd()
	case "import":
		m.prompt = newImportPrompt()
		m.mode = ViewImport
		return m, m.prompt.focus()
	case "focus":
		m.toggleFocus()
		return m, nil
	}

	if m.focus == FocusList {
		return m.handleListKeys(key)
	}
	return m.handleGridKeys(key)
}

func (m *Model) handleGridKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "left", "h":
		m.moveSelection(-1)
	case "right", "l":
		m.moveSelection(1)
	case "up", "k":
		m.moveSelection(-7)
	case "down", "j":
		m.moveSelection(7)
	case "enter", " ":
		return m, m.clickSelected()
	}
	return m, nil
}

func (m *Model) handleListKeys(key string) (tea.Model, tea.Cmd) {
	n := len(m.session.List(calendar.TerminalEscaper).Items)
	switch key {
	case "down", "j":
		if m.listIndex < n-1 {
			m.listIndex++
		}
	case "up", "k":
		if m.listIndex > 0 {
			m.listIndex--
		}
	case "home", "g":
		m.listIndex = 0
	case "end", "G":
		m.listIndex = max(n-1, 0)
	case "enter":
		return m, m.editSelected()
	case "esc":
		m.focus = FocusGrid
	}
	return m, nil
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.session.Editor.Close()
		m.form = nil
		m.saving = false
		return m, nil
	case "tab", "down":
		return m, m.form.next()
	case "shift+tab", "up":
		return m, m.form.prev()
	case "enter":
		return m, m.submitForm()
	}
	return m, m.form.update(msg)
}

func (m *Model) handleImportKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.prompt = nil
		m.mode = ViewCalendar
		return m, nil
	case "enter":
		path := m.prompt.value()
		m.prompt = nil
		m.mode = ViewCalendar
		if path == "" {
			return m, nil
		}
		return m, m.importCmd(path)
	}
	return m, m.prompt.update(msg)
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = ViewCalendar
	switch msg.String() {
	case "y", "Y", "j", "J", "enter":
		return m, m.deleteCmd(m.pendingDelete)
	}
	return m, nil
}

// selectDate moves the grid cursor to t, following it into another month.
func (m *Model) selectDate(t time.Time) {
	t = t.In(m.session.Location())
	m.selected = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	cur := m.session.CurrentDate()
	if cur.Year() != t.Year() || cur.Month() != t.Month() {
		m.session.SetCurrentDate(m.selected)
	}
}

func (m *Model) moveSelection(days int) {
	m.selectDate(m.selected.AddDate(0, 0, days))
}

// shiftMonth changes the displayed month and keeps the selected day of
// month where the new month allows it.
func (m *Model) shiftMonth(delta int) {
	// Anchor on the 1st so that Jan 31 + 1 lands in February.
	cur := m.session.CurrentDate()
	m.session.SetCurrentDate(time.Date(cur.Year(), cur.Month(), 1, 0, 0, 0, 0, cur.Location()))
	m.session.ChangeMonth(delta)
	cur = m.session.CurrentDate()
	last := time.Date(cur.Year(), cur.Month()+1, 0, 0, 0, 0, 0, cur.Location()).Day()
	m.selected = time.Date(cur.Year(), cur.Month(), min(m.selected.Day(), last), 0, 0, 0, 0, cur.Location())
}

func (m *Model) toggleFocus() {
	if m.focus == FocusGrid {
		m.focus = FocusList
		m.clampList()
	} else {
		m.focus = FocusGrid
	}
}

// clickSelected applies a click on the selected day: empty days open the
// create form, busy days bring the list into focus at their first entry.
func (m *Model) clickSelected() tea.Cmd {
	cell, ok := m.session.Grid().DayCell(m.selected.Day())
	if !ok {
		return nil
	}
	switch m.session.ClickDay(cell) {
	case calendar.ClickCreate:
		return m.openForm()
	case calendar.ClickRevealList:
		m.focus = FocusList
		for i, item := range m.session.List(calendar.TerminalEscaper).Items {
			if item.HasStart && calendar.KeyOf(item.Start) == calendar.KeyOf(cell.Date) {
				m.listIndex = i
				break
			}
		}
	}
	return nil
}

// selectedItem is the list row under the cursor.
func (m *Model) selectedItem() (calendar.Item, bool) {
	items := m.session.List(calendar.TerminalEscaper).Items
	if m.focus != FocusList || m.listIndex < 0 || m.listIndex >= len(items) {
		return calendar.Item{}, false
	}
	return items[m.listIndex], true
}

func (m *Model) clampList() {
	n := len(m.session.List(calendar.TerminalEscaper).Items)
	if m.listIndex >= n {
		m.listIndex = max(n-1, 0)
	}
}

func (m *Model) editSelected() tea.Cmd {
	item, ok := m.selectedItem()
	if !ok {
		return nil
	}
	if err := m.session.OpenEdit(item.Ref); err != nil {
		return nil
	}
	return m.openForm()
}

func (m *Model) deleteSelected() tea.Cmd {
	item, ok := m.selectedItem()
	if !ok {
		return nil
	}
	if m.config.ConfirmDelete {
		m.pendingDelete = item.Ref
		m.mode = ViewConfirmDelete
		return nil
	}
	return m.deleteCmd(item.Ref)
}

func (m *Model) openForm() tea.Cmd {
	m.form = newEntryForm(m.session.Editor.Form(), m.session.Editor.Mode())
	return m.form.focus(0)
}

func (m *Model) submitForm() tea.Cmd {
	if m.saving {
		return nil
	}
	m.session.Editor.SetForm(m.form.value())
	req, err := m.session.BeginSave()
	if err != nil {
		return nil
	}
	m.saving = true
	return m.saveCmd(req)
}

func (m *Model) loadCmd() tea.Cmd {
	seq := m.session.BeginLoad()
	ctx, gw := m.ctx, m.gateway
	return func() tea.Msg {
		entries, err := gw.LoadEntries(ctx)
		return loadedMsg{seq: seq, entries: entries, err: err}
	}
}

func (m *Model) saveCmd(req calendar.Request) tea.Cmd {
	ctx, gw := m.ctx, m.gateway
	return func() tea.Msg {
		return savedMsg{seq: req.Seq, err: calendar.Dispatch(ctx, gw, req)}
	}
}

func (m *Model) deleteCmd(ref calendar.Ref) tea.Cmd {
	target, err := m.session.BeginDelete(ref)
	if err != nil {
		return nil
	}
	ctx, gw := m.ctx, m.gateway
	return func() tea.Msg {
		return deletedMsg{err: gw.DeleteEntry(ctx, target)}
	}
}

func (m *Model) importCmd(path string) tea.Cmd {
	m.session.BeginImport()
	ctx, gw, loc := m.ctx, m.gateway, m.session.Location()
	return func() tea.Msg {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return importedMsg{err: err}
		}
		body, err := os.ReadFile(expanded)
		if err != nil {
			return importedMsg{err: err}
		}
		if summary, err := ics.Summarize(body, loc); err != nil {
			log.Error("inspect import file", err, "path", expanded)
		} else {
			log.Info("importing calendar", "path", expanded, "summary", summary.String())
		}
		message, err := gw.ImportFile(ctx, expanded, bytes.NewReader(body))
		return importedMsg{message: message, err: err}
	}
}

func (m *Model) exportCmd() tea.Cmd {
	ctx, gw, dir := m.ctx, m.gateway, m.config.ExportDir
	return func() tea.Msg {
		data, err := gw.ExportCalendar(ctx)
		if err != nil {
			return exportedMsg{err: err}
		}
		path, err := calendar.WriteExport(dir, data)
		return exportedMsg{path: path, err: err}
	}
}

func (m *Model) remoteConfigCmd() tea.Cmd {
	ctx, gw := m.ctx, m.gateway
	return func() tea.Msg {
		cfg, err := gw.GetConfig(ctx)
		return remoteConfigMsg{config: cfg, err: err}
	}
}

func (m *Model) pushConfigCmd(cfg calendar.RemoteConfig) tea.Cmd {
	ctx, gw := m.ctx, m.gateway
	return func() tea.Msg {
		return configPushedMsg{err: gw.SetConfig(ctx, cfg)}
	}
}

// refreshCmd waits for the next auto-refresh slot. Ticks from a replaced
// schedule carry an old id and are ignored.
func (m *Model) refreshCmd() tea.Cmd {
	if m.schedule == nil {
		return nil
	}
	now := m.session.Now()
	next := m.schedule.Next(now)
	if next.IsZero() {
		return nil
	}
	id := m.refreshID
	return tea.Tick(next.Sub(now), func(time.Time) tea.Msg {
		return refreshTickMsg{id: id}
	})
}

// Message types
type loadedMsg struct {
	seq     uint64
	entries []calendar.Entry
	err     error
}
type savedMsg struct {
	seq uint64
	err error
}
type deletedMsg struct{ err error }
type importedMsg struct {
	message string
	err     error
}
type exportedMsg struct {
	path string
	err  error
}
type remoteConfigMsg struct {
	config calendar.RemoteConfig
	err    error
}
type configPushedMsg struct{ err error }
type refreshTickMsg struct{ id int }

// ConfigReloadedMsg carries a config file that changed on disk. Send it to
// the running program to restyle and rebind without restarting.
type ConfigReloadedMsg struct {
	Config *config.Config
}
