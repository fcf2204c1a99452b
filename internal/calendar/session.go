package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cwarden/termin/internal/log"
)

// Status line and alert texts.
const (
	StatusLoading      = "Lade Termine..."
	StatusLoadFailed   = "Fehler beim Laden der Termine"
	StatusSaved        = "Termin gespeichert"
	StatusDeleted      = "Termin gelöscht"
	StatusImporting    = "Importiere..."
	StatusImportFailed = "Import fehlgeschlagen"
	StatusExported     = "Kalender exportiert"

	AlertSaveFailed   = "Fehler beim Speichern des Termins"
	AlertDeleteFailed = "Fehler beim Löschen des Termins"
	AlertImportFailed = "Fehler beim Import"
	AlertExportFailed = "Fehler beim Export"
	AlertStale        = "Die Terminliste hat sich geändert. Bitte neu laden und erneut versuchen."

	DeleteConfirmText = "Möchten Sie diesen Termin wirklich löschen?"
)

// Gateway is the backend the session synchronises with.
type Gateway interface {
	LoadEntries(ctx context.Context) ([]Entry, error)
	CreateEntry(ctx context.Context, e Entry) error
	UpdateEntry(ctx context.Context, t Target, e Entry) error
	DeleteEntry(ctx context.Context, t Target) error
	ImportFile(ctx context.Context, name string, r io.Reader) (string, error)
	ExportCalendar(ctx context.Context) ([]byte, error)
	GetConfig(ctx context.Context) (RemoteConfig, error)
	SetConfig(ctx context.Context, cfg RemoteConfig) error
}

// Detailer is implemented by errors carrying text meant for the user.
type Detailer interface {
	UserDetail() string
}

// ErrorDetail returns the user-facing text of err.
func ErrorDetail(err error) string {
	var d Detailer
	if errors.As(err, &d) && d.UserDetail() != "" {
		return d.UserDetail()
	}
	return err.Error()
}

// Session is the client state: cache, displayed month, edit surface,
// preferences and the status line. Begin* methods run before a gateway call
// and Finish* methods apply its result; neither blocks.
type Session struct {
	Cache  *Cache
	Editor *Editor

	currentDate time.Time
	remote      RemoteConfig
	toggled     bool
	status      string
	alert       string

	loc *time.Location
	now func() time.Time
}

func NewSession(loc *time.Location) *Session {
	if loc == nil {
		loc = time.Local
	}
	s := &Session{
		Cache:  NewCache(),
		Editor: NewEditor(loc),
		loc:    loc,
		now:    time.Now,
	}
	s.currentDate = s.now().In(loc)
	return s
}

// SetClock replaces the wall clock used for "today".
func (s *Session) SetClock(now func() time.Time) {
	s.now = now
	s.currentDate = now().In(s.loc)
}

func (s *Session) Now() time.Time { return s.now().In(s.loc) }
func (s *Session) Location() *time.Location { return s.loc }
func (s *Session) CurrentDate() time.Time { return s.currentDate }
func (s *Session) DarkMode() bool { return s.remote.DarkMode }
func (s *Session) RemoteConfig() RemoteConfig { return s.remote }
func (s *Session) Status() string { return s.status }
func (s *Session) SetStatus(msg string) { s.status = msg }
func (s *Session) Alert() string { return s.alert }
func (s *Session) DismissAlert() { s.alert = "" }
func (s *Session) SetCurrentDate(t time.Time) { s.currentDate = t.In(s.loc) }
func (s *Session) ChangeMonth(delta int) { s.currentDate = ChangeMonth(s.currentDate, delta) }
func (s *Session) Grid() Grid { return BuildGrid(s.currentDate, s.Cache.Entries(), s.Now(), s.loc) }
func (s *Session) List(esc Escaper) List { return BuildList(s.Cache, esc, s.loc) }
func (s *Session) DayEntries(t time.Time) []Entry { return EntriesForDay(s.Cache.Entries(), t, s.loc) }

// BeginLoad issues a load sequence number for the request about to be sent.
func (s *Session) BeginLoad() uint64 {
	s.status = StatusLoading
	return s.Cache.BeginLoad()
}

// FinishLoad applies the outcome of load seq. Responses to superseded loads
// are dropped whether they succeeded or not.
func (s *Session) FinishLoad(seq uint64, entries []Entry, err error) bool {
	if !s.Cache.Current(seq) {
		log.Debug("dropping superseded load", "seq", seq)
		return false
	}
	if err != nil {
		log.Error("load entries", err)
		s.status = StatusLoadFailed
		return false
	}
	s.Cache.Replace(seq, entries)
	s.status = fmt.Sprintf("Status: %d Termine geladen", len(entries))
	log.Debug("entries loaded", "count", len(entries), "generation", s.Cache.Generation())
	return true
}

// OpenNew opens the create surface seeded with today.
func (s *Session) OpenNew() {
	s.Editor.OpenNew(s.Now())
}

// OpenEdit opens the edit surface for ref. A stale ref raises an alert and
// leaves the surface closed.
func (s *Session) OpenEdit(ref Ref) error {
	if err := s.Editor.OpenEdit(ref, s.Cache); err != nil {
		s.alert = AlertStale
		return err
	}
	return nil
}

// ClickDay applies a click on grid cell c.
func (s *Session) ClickDay(c Cell) ClickKind {
	click := c.Click()
	if click.Kind == ClickCreate {
		s.Editor.OpenNew(click.Seed)
	}
	return click.Kind
}

// BeginSave validates the open form and returns the request to send.
func (s *Session) BeginSave() (Request, error) {
	s.Editor.SetNow(s.Now())
	req, err := s.Editor.Submit(s.Cache)
	switch {
	case err == nil:
		return req, nil
	case errors.Is(err, ErrStaleRef), errors.Is(err, ErrNoSuchEntry):
		s.alert = AlertStale
	default:
		s.alert = AlertSaveFailed + ": " + err.Error()
	}
	s.Editor.SaveFailed(err)
	return Request{}, err
}

// FinishSave applies the backend's answer to the save sent by form seq. It
// reports whether the cache should be reloaded. An answer for a form that
// has since been closed or replaced leaves the editor alone; a success still
// asks for the reload.
func (s *Session) FinishSave(seq uint64, err error) bool {
	if seq != s.Editor.Seq() {
		if err != nil {
			log.Error("save entry for abandoned form", err, "seq", seq)
			return false
		}
		log.Debug("save answered after its form was closed", "seq", seq)
		s.status = StatusSaved
		return true
	}
	if err != nil {
		log.Error("save entry", err)
		s.Editor.SaveFailed(err)
		s.alert = AlertSaveFailed + ": " + ErrorDetail(err)
		return false
	}
	s.Editor.SaveSucceeded()
	s.status = StatusSaved
	return true
}

// BeginDelete resolves ref for a delete request.
func (s *Session) BeginDelete(ref Ref) (Target, error) {
	target, _, err := s.Cache.Resolve(ref)
	if err != nil {
		s.alert = AlertStale
		return Target{}, err
	}
	return target, nil
}

func (s *Session) FinishDelete(err error) bool {
	if err != nil {
		log.Error("delete entry", err)
		s.alert = AlertDeleteFailed + ": " + ErrorDetail(err)
		return false
	}
	s.status = StatusDeleted
	return true
}

func (s *Session) BeginImport() {
	s.status = StatusImporting
}

// FinishImport shows the backend's message verbatim on success.
func (s *Session) FinishImport(message string, err error) bool {
	if err != nil {
		log.Error("import file", err)
		s.alert = AlertImportFailed + ": " + ErrorDetail(err)
		s.status = StatusImportFailed
		return false
	}
	s.status = message
	return true
}

func (s *Session) FinishExport(path string, err error) {
	if err != nil {
		log.Error("export calendar", err)
		s.alert = AlertExportFailed
		return
	}
	log.Info("calendar exported", "path", path)
	s.status = StatusExported
}

// ApplyRemoteConfig installs preferences fetched at startup. Failures are
// logged and otherwise ignored. A dark mode toggled locally in the meantime
// wins over the fetched value.
func (s *Session) ApplyRemoteConfig(cfg RemoteConfig, err error) {
	if err != nil {
		log.Error("get config", err)
		return
	}
	if s.toggled {
		log.Debug("keeping local dark mode", "local", s.remote.DarkMode, "remote", cfg.DarkMode)
		cfg.DarkMode = s.remote.DarkMode
	}
	s.remote = cfg
}

// ToggleDarkMode flips the preference locally and returns the config to push.
func (s *Session) ToggleDarkMode() RemoteConfig {
	s.remote.DarkMode = !s.remote.DarkMode
	s.toggled = true
	return s.remote
}

// FinishConfigPush logs a failed preference push. The local value stays.
func (s *Session) FinishConfigPush(err error) {
	if err != nil {
		log.Error("set config", err)
	}
}

// Dispatch sends req through gw.
func Dispatch(ctx context.Context, gw Gateway, req Request) error {
	if req.Kind == RequestUpdate {
		return gw.UpdateEntry(ctx, req.Target, req.Entry)
	}
	return gw.CreateEntry(ctx, req.Entry)
}

// Reload fetches the entries and replaces the cache.
func (s *Session) Reload(ctx context.Context, gw Gateway) error {
	seq := s.BeginLoad()
	entries, err := gw.LoadEntries(ctx)
	s.FinishLoad(seq, entries, err)
	return err
}

// Save submits the open form and reloads on success.
func (s *Session) Save(ctx context.Context, gw Gateway) error {
	req, err := s.BeginSave()
	if err != nil {
		return err
	}
	err = Dispatch(ctx, gw, req)
	if !s.FinishSave(req.Seq, err) {
		return err
	}
	return s.Reload(ctx, gw)
}

// Delete removes the entry ref points at and reloads on success.
func (s *Session) Delete(ctx context.Context, gw Gateway, ref Ref) error {
	target, err := s.BeginDelete(ref)
	if err != nil {
		return err
	}
	err = gw.DeleteEntry(ctx, target)
	if !s.FinishDelete(err) {
		return err
	}
	return s.Reload(ctx, gw)
}

// Import uploads r and reloads on success. It returns the backend's message.
func (s *Session) Import(ctx context.Context, gw Gateway, name string, r io.Reader) (string, error) {
	s.BeginImport()
	msg, err := gw.ImportFile(ctx, name, r)
	if !s.FinishImport(msg, err) {
		return "", err
	}
	return msg, s.Reload(ctx, gw)
}

// Export downloads the calendar into dir and returns the written path.
func (s *Session) Export(ctx context.Context, gw Gateway, dir string) (string, error) {
	data, err := gw.ExportCalendar(ctx)
	path := ""
	if err == nil {
		path, err = WriteExport(dir, data)
	}
	s.FinishExport(path, err)
	return path, err
}

// LoadRemoteConfig fetches the preferences. Errors are only logged.
func (s *Session) LoadRemoteConfig(ctx context.Context, gw Gateway) {
	cfg, err := gw.GetConfig(ctx)
	s.ApplyRemoteConfig(cfg, err)
}

// PushDarkMode toggles dark mode and pushes it to the backend.
func (s *Session) PushDarkMode(ctx context.Context, gw Gateway) {
	s.FinishConfigPush(gw.SetConfig(ctx, s.ToggleDarkMode()))
}
