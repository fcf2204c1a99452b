package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cwarden/termin/internal/parser"
)

// ErrValidation marks a form that cannot be turned into an entry.
var ErrValidation = errors.New("invalid entry")

// Default times for a new entry.
const (
	DefaultStartTime = "09:00"
	DefaultEndTime   = "10:00"
)

type EditMode int

const (
	EditClosed EditMode = iota
	EditCreating
	EditEditing
)

func (m EditMode) String() string {
	switch m {
	case EditCreating:
		return "creating"
	case EditEditing:
		return "editing"
	default:
		return "closed"
	}
}

// Form holds the raw field values of the entry surface.
type Form struct {
	Title       string
	Description string
	StartDate   string
	StartTime   string
	EndDate     string
	EndTime     string
	Category    string
	Reminder    string
}

type RequestKind int

const (
	RequestCreate RequestKind = iota
	RequestUpdate
)

// Request is what a submitted form asks the gateway to do.
type Request struct {
	Kind   RequestKind
	Target Target
	Entry  Entry

	// Seq is the editor sequence of the form that produced the request.
	Seq uint64
}

// Editor is the create/edit state machine: Closed, CreatingNew or
// Editing(ref).
type Editor struct {
	mode EditMode
	ref  Ref
	form Form

	lastErr error

	// seq changes whenever a form is opened or closed, so an answer to an
	// earlier form can be told apart from one for the form on screen.
	seq uint64

	loc        *time.Location
	normalizer *parser.Normalizer
}

func NewEditor(loc *time.Location) *Editor {
	if loc == nil {
		loc = time.Local
	}
	n := parser.NewNormalizer()
	n.SetLocation(loc)
	return &Editor{loc: loc, normalizer: n}
}

func (e *Editor) Mode() EditMode { return e.mode }

// Ref is meaningful only in EditEditing.
func (e *Editor) Ref() Ref { return e.ref }

func (e *Editor) Form() Form { return e.form }

// Seq identifies the form currently open (or the last one closed).
func (e *Editor) Seq() uint64 { return e.seq }

// SetForm replaces the field values while the surface is open.
func (e *Editor) SetForm(f Form) {
	if e.mode != EditClosed {
		e.form = f
	}
}

// OpenNew resets the form for a new entry seeded with seed's date.
func (e *Editor) OpenNew(seed time.Time) {
	seed = seed.In(e.loc)
	e.seq++
	e.mode = EditCreating
	e.ref = Ref{}
	e.lastErr = nil
	e.form = Form{
		StartDate: FormatInputDate(seed),
		StartTime: DefaultStartTime,
		EndDate:   FormatInputDate(seed),
		EndTime:   DefaultEndTime,
	}
}

// OpenEdit populates the form from the entry ref points at.
func (e *Editor) OpenEdit(ref Ref, c *Cache) error {
	_, entry, err := c.Resolve(ref)
	if err != nil {
		return err
	}
	f := Form{
		Title:       entry.Title,
		Description: entry.DescriptionText(),
		Category:    entry.CategoryText(),
	}
	if entry.ReminderMinutesBefore != nil && *entry.ReminderMinutesBefore != 0 {
		f.Reminder = strconv.Itoa(*entry.ReminderMinutesBefore)
	}
	if start, ok := entry.StartTime(e.loc); ok {
		f.StartDate, f.StartTime = FormatInputDate(start), FormatInputTime(start)
	}
	if end, ok := entry.EndTime(e.loc); ok {
		f.EndDate, f.EndTime = FormatInputDate(end), FormatInputTime(end)
	}
	e.seq++
	e.mode = EditEditing
	e.ref = ref
	e.form = f
	e.lastErr = nil
	return nil
}

// SaveSucceeded closes the surface after the backend accepted the request.
func (e *Editor) SaveSucceeded() {
	e.Close()
}

// SaveFailed keeps the current state and form so the user can resubmit.
func (e *Editor) SaveFailed(err error) {
	e.lastErr = err
}

// LastError is the most recent save failure of the open form.
func (e *Editor) LastError() error { return e.lastErr }

// Close drops the form and returns to Closed.
func (e *Editor) Close() {
	e.seq++
	e.mode = EditClosed
	e.ref = Ref{}
	e.form = Form{}
	e.lastErr = nil
}

// SetNow pins the reference time used by relative date shortcuts.
func (e *Editor) SetNow(now time.Time) {
	e.normalizer.SetNow(now)
}

// Submit assembles the entry from the form and returns the request to
// dispatch. Nothing changes state: the surface stays open until the caller
// reports the outcome.
func (e *Editor) Submit(c *Cache) (Request, error) {
	switch e.mode {
	case EditClosed:
		return Request{}, fmt.Errorf("submit with no open form: %w", ErrValidation)
	case EditEditing:
		target, _, err := c.Resolve(e.ref)
		if err != nil {
			return Request{}, err
		}
		entry, err := e.assemble()
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: RequestUpdate, Target: target, Entry: entry, Seq: e.seq}, nil
	default:
		entry, err := e.assemble()
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: RequestCreate, Entry: entry, Seq: e.seq}, nil
	}
}

func (e *Editor) assemble() (Entry, error) {
	f := e.form
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return Entry{}, fmt.Errorf("title is required: %w", ErrValidation)
	}

	start, err := e.timestamp(f.StartDate, f.StartTime)
	if err != nil {
		return Entry{}, fmt.Errorf("start: %w", err)
	}
	end, err := e.timestamp(f.EndDate, f.EndTime)
	if err != nil {
		return Entry{}, fmt.Errorf("end: %w", err)
	}

	entry := Entry{Title: title, Start: start, End: end}
	if d := strings.TrimSpace(f.Description); d != "" {
		entry.Description = stringPtr(d)
	}
	if cat := strings.TrimSpace(f.Category); cat != "" {
		entry.Category = stringPtr(cat)
	}
	if r := strings.TrimSpace(f.Reminder); r != "" {
		n, err := strconv.Atoi(r)
		if err != nil || n < 0 {
			return Entry{}, fmt.Errorf("reminder %q is not a non-negative number: %w", r, ErrValidation)
		}
		entry.ReminderMinutesBefore = intPtr(n)
	}
	if e.mode == EditEditing {
		entry.ID = e.ref.ID
	}
	return entry, nil
}

func (e *Editor) timestamp(date, clock string) (string, error) {
	d, err := e.normalizer.Date(date)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, ErrValidation)
	}
	h, m, err := e.normalizer.Clock(clock)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, ErrValidation)
	}
	return CombineDateTime(FormatInputDate(d), fmt.Sprintf("%02d:%02d", h, m)), nil
}
