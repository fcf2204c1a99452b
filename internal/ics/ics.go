package ics

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/cwarden/termin/internal/calendar"
	"github.com/cwarden/termin/internal/log"
)

// UntitledSummary replaces a missing SUMMARY.
const UntitledSummary = "(Ohne Titel)"

// Summary describes the contents of a calendar file.
type Summary struct {
	Events  int
	Skipped int
	First   time.Time
	Last    time.Time
}

func (s Summary) String() string {
	if s.Events == 0 {
		return "keine Termine"
	}
	out := fmt.Sprintf("%d Termine, %s bis %s", s.Events,
		calendar.FormatDisplayDate(s.First), calendar.FormatDisplayDate(s.Last))
	if s.Skipped > 0 {
		out += fmt.Sprintf(" (%d ohne Startzeit)", s.Skipped)
	}
	return out
}

// Entries maps every VEVENT in body to the entry the service would create
// on import. Events without a usable DTSTART are skipped and counted.
func Entries(body []byte, loc *time.Location) ([]calendar.Entry, int, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, 0, errors.New("empty calendar file")
	}
	if !bytes.HasPrefix(bytes.ToUpper(bytes.TrimSpace(body)), []byte("BEGIN:VCALENDAR")) {
		return nil, 0, errors.New("not an iCalendar file")
	}
	if loc == nil {
		loc = time.Local
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("parse calendar: %w", err)
	}

	var (
		entries []calendar.Entry
		skipped int
	)
	for _, ev := range cal.Events() {
		e, err := toEntry(ev, loc)
		if err != nil {
			log.Debug("skipping vevent", "err", err)
			skipped++
			continue
		}
		entries = append(entries, e)
	}
	return entries, skipped, nil
}

// Summarize parses body and reports how many events it holds and the span
// they cover.
func Summarize(body []byte, loc *time.Location) (Summary, error) {
	entries, skipped, err := Entries(body, loc)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{Events: len(entries), Skipped: skipped}
	starts := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		if t, ok := e.StartTime(loc); ok {
			starts = append(starts, t)
		}
	}
	if len(starts) > 0 {
		sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
		s.First, s.Last = starts[0], starts[len(starts)-1]
	}
	return s, nil
}

func toEntry(ev *ical.VEvent, loc *time.Location) (calendar.Entry, error) {
	start, err := ev.GetStartAt()
	if err != nil {
		return calendar.Entry{}, fmt.Errorf("dtstart: %w", err)
	}
	end, err := ev.GetEndAt()
	if err != nil {
		end = start
	}

	e := calendar.Entry{
		Title: UntitledSummary,
		Start: start.In(loc).Format(calendar.TimestampLayout),
		End:   end.In(loc).Format(calendar.TimestampLayout),
	}
	if p := ev.GetProperty(ical.ComponentPropertySummary); p != nil && strings.TrimSpace(p.Value) != "" {
		e.Title = p.Value
	}
	if p := ev.GetProperty(ical.ComponentPropertyDescription); p != nil && p.Value != "" {
		d := p.Value
		e.Description = &d
	}
	if p := ev.GetProperty(ical.ComponentPropertyCategories); p != nil {
		if first := strings.TrimSpace(strings.Split(p.Value, ",")[0]); first != "" {
			e.Category = &first
		}
	}
	for _, alarm := range ev.Alarms() {
		p := alarm.GetProperty(ical.ComponentPropertyTrigger)
		if p == nil {
			continue
		}
		if mins, ok := triggerMinutes(p.Value); ok {
			e.ReminderMinutesBefore = &mins
			break
		}
	}
	return e, nil
}

var durationRe = regexp.MustCompile(`^([+-])?P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// triggerMinutes converts a relative VALARM trigger such as -PT15M into
// minutes before the start. Absolute triggers are ignored.
func triggerMinutes(v string) (int, bool) {
	m := durationRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(v)))
	if m == nil || m[0] == "P" || m[0] == "-P" || m[0] == "+P" {
		return 0, false
	}
	n := func(s string) int {
		i, _ := strconv.Atoi(s)
		return i
	}
	mins := n(m[2])*7*24*60 + n(m[3])*24*60 + n(m[4])*60 + n(m[5]) + n(m[6])/60
	return mins, true
}
