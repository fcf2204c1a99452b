package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDateRe     = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	germanDateRe  = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})?$`)
	offsetRe      = regexp.MustCompile(`^([+-])\s*(\d+)\s*([dwm]?)$`)
	inRe          = regexp.MustCompile(`^in\s+(\d+)\s+(day|days|week|weeks|month|months|tag|tagen|woche|wochen|monat|monaten)$`)
	weekdayRe     = regexp.MustCompile(`^(next|this|nächsten|nächster|nächste|diesen|dieser|diese)\s+(\S+)$`)
	clockRe       = regexp.MustCompile(`^(\d{1,2})(?::|\.|h)?(\d{2})?\s*(am|pm|uhr)?$`)
	compactTimeRe = regexp.MustCompile(`^(\d{1,2})(\d{2})$`)
)

var namedTimes = map[string]int{
	"noon":        12,
	"mittag":      12,
	"midnight":    0,
	"mitternacht": 0,
	"morning":     9,
	"morgens":     9,
	"afternoon":   14,
	"nachmittag":  14,
	"evening":     18,
	"abends":      18,
	"night":       21,
}

// Normalizer turns the shortcuts accepted by the entry form's date and time
// fields into calendar values.
type Normalizer struct {
	now      time.Time
	location *time.Location
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		now:      time.Now(),
		location: time.Local,
	}
}

func (p *Normalizer) SetNow(now time.Time) {
	p.now = now
}

func (p *Normalizer) SetLocation(loc *time.Location) {
	if loc != nil {
		p.location = loc
	}
}

// Date parses a form date. Besides YYYY-MM-DD it accepts DD.MM.YYYY, DD.MM.
// (current year), relative words (today/heute, tomorrow/morgen, übermorgen,
// yesterday/gestern), offsets like +3, +2w, -1m, "in 3 days" and weekday
// forms like "next friday" or "nächsten Montag".
func (p *Normalizer) Date(input string) (time.Time, error) {
	lower := strings.ToLower(strings.TrimSpace(input))
	if lower == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if m := isoDateRe.FindStringSubmatch(lower); m != nil {
		return p.date(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := germanDateRe.FindStringSubmatch(lower); m != nil {
		year := p.now.Year()
		if m[3] != "" {
			year = atoi(m[3])
		}
		return p.date(year, atoi(m[2]), atoi(m[1]))
	}

	switch lower {
	case "today", "heute":
		return p.today(), nil
	case "tomorrow", "tmrw", "morgen":
		return p.today().AddDate(0, 0, 1), nil
	case "übermorgen", "uebermorgen":
		return p.today().AddDate(0, 0, 2), nil
	case "yesterday", "gestern":
		return p.today().AddDate(0, 0, -1), nil
	}

	if m := offsetRe.FindStringSubmatch(lower); m != nil {
		n := atoi(m[2])
		if m[1] == "-" {
			n = -n
		}
		return p.shift(n, m[3]), nil
	}

	if m := inRe.FindStringSubmatch(lower); m != nil {
		n := atoi(m[1])
		unit := m[2]
		switch {
		case strings.HasPrefix(unit, "day"), strings.HasPrefix(unit, "tag"):
			return p.shift(n, "d"), nil
		case strings.HasPrefix(unit, "week"), strings.HasPrefix(unit, "woche"):
			return p.shift(n, "w"), nil
		default:
			return p.shift(n, "m"), nil
		}
	}

	if m := weekdayRe.FindStringSubmatch(lower); m != nil {
		weekday, ok := parseWeekday(m[2])
		if !ok {
			return time.Time{}, fmt.Errorf("unknown weekday %q", m[2])
		}
		skip := strings.HasPrefix(m[1], "next") || strings.HasPrefix(m[1], "nächst")
		return p.findNextWeekday(weekday, skip), nil
	}
	if weekday, ok := parseWeekday(lower); ok {
		return p.findNextWeekday(weekday, false), nil
	}

	return time.Time{}, fmt.Errorf("unrecognised date %q", input)
}

// Clock parses a form time: HH:MM, H, HMM/HHMM, 9am, 2:30pm, "14 Uhr",
// 14.30 or a named time such as noon/mittag.
func (p *Normalizer) Clock(input string) (hour, minute int, err error) {
	lower := strings.ToLower(strings.TrimSpace(input))
	if lower == "" {
		return 0, 0, fmt.Errorf("empty time")
	}

	if h, ok := namedTimes[lower]; ok {
		return h, 0, nil
	}

	if m := compactTimeRe.FindStringSubmatch(lower); m != nil {
		return checkClock(atoi(m[1]), atoi(m[2]))
	}

	m := clockRe.FindStringSubmatch(lower)
	if m == nil {
		return 0, 0, fmt.Errorf("unrecognised time %q", input)
	}
	hour = atoi(m[1])
	if m[2] != "" {
		minute = atoi(m[2])
	}
	switch m[3] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return checkClock(hour, minute)
}

func checkClock(hour, minute int) (int, int, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time %02d:%02d out of range", hour, minute)
	}
	return hour, minute, nil
}

func (p *Normalizer) date(year, month, day int) (time.Time, error) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, p.location)
	// Reject dates time.Date had to normalise, e.g. 31.02.
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, fmt.Errorf("invalid date %04d-%02d-%02d", year, month, day)
	}
	return t, nil
}

func (p *Normalizer) shift(n int, unit string) time.Time {
	switch unit {
	case "w":
		return p.today().AddDate(0, 0, n*7)
	case "m":
		return p.today().AddDate(0, n, 0)
	default:
		return p.today().AddDate(0, 0, n)
	}
}

func parseWeekday(s string) (time.Weekday, bool) {
	switch s {
	case "sun", "sunday", "so", "sonntag":
		return time.Sunday, true
	case "mon", "monday", "mo", "montag":
		return time.Monday, true
	case "tue", "tuesday", "di", "dienstag":
		return time.Tuesday, true
	case "wed", "wednesday", "mi", "mittwoch":
		return time.Wednesday, true
	case "thu", "thursday", "do", "donnerstag":
		return time.Thursday, true
	case "fri", "friday", "fr", "freitag":
		return time.Friday, true
	case "sat", "saturday", "sa", "samstag", "sonnabend":
		return time.Saturday, true
	}
	return time.Sunday, false
}

func (p *Normalizer) findNextWeekday(target time.Weekday, skipThisWeek bool) time.Time {
	date := p.today()
	daysUntilTarget := int(target - date.Weekday())

	if daysUntilTarget <= 0 || skipThisWeek {
		daysUntilTarget += 7
	}

	return date.AddDate(0, 0, daysUntilTarget)
}

func (p *Normalizer) today() time.Time {
	y, m, d := p.now.In(p.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, p.location)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
