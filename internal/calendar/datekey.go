package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Timestamp layouts accepted from the backend. The first one is what the
// client sends back.
const (
	TimestampLayout = "2006-01-02T15:04"
	InputDateLayout = "2006-01-02"
	InputTimeLayout = "15:04"
)

var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

var monthNames = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// WeekdayNames are the grid headers, Sunday first.
var WeekdayNames = [7]string{"So", "Mo", "Di", "Mi", "Do", "Fr", "Sa"}

// DayKey identifies a calendar day irrespective of time of day.
type DayKey struct {
	Year  int
	Month time.Month
	Day   int
}

// KeyOf returns the day key of t in t's own location.
func KeyOf(t time.Time) DayKey {
	y, m, d := t.Date()
	return DayKey{Year: y, Month: m, Day: d}
}

func (k DayKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", k.Year, int(k.Month), k.Day)
}

// EntriesForDay returns the entries whose start falls on day, in cache
// order. End dates are not considered.
func EntriesForDay(entries []Entry, day time.Time, loc *time.Location) []Entry {
	want := KeyOf(day.In(loc))
	var out []Entry
	for _, e := range entries {
		start, ok := e.StartTime(loc)
		if !ok {
			continue
		}
		if KeyOf(start) == want {
			out = append(out, e)
		}
	}
	return out
}

// ParseTimestamp parses a zone-less backend timestamp in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// CombineDateTime joins form date and time values into a timestamp string.
func CombineDateTime(date, clock string) string {
	return date + "T" + clock
}

// FormatDisplayDate renders DD.MM.YYYY.
func FormatDisplayDate(t time.Time) string {
	return fmt.Sprintf("%02d.%02d.%04d", t.Day(), int(t.Month()), t.Year())
}

// FormatDisplayTime renders HH:MM.
func FormatDisplayTime(t time.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// FormatInputDate renders YYYY-MM-DD.
func FormatInputDate(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

// FormatInputTime renders HH:MM.
func FormatInputTime(t time.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MonthName returns the German month name.
func MonthName(m time.Month) string {
	return monthNames[m-1]
}

// MonthTitle renders the grid caption, e.g. "März 2024".
func MonthTitle(t time.Time) string {
	return fmt.Sprintf("%s %d", MonthName(t.Month()), t.Year())
}

// ChangeMonth moves current by delta whole months. Day overflow rolls into
// the following month the same way time.AddDate normalises it.
func ChangeMonth(current time.Time, delta int) time.Time {
	return current.AddDate(0, delta, 0)
}

func sameDay(a, b time.Time) bool {
	return KeyOf(a) == KeyOf(b)
}
