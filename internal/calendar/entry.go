package calendar

import (
	"regexp"
	"strings"
	"time"
)

// Entry is a single scheduled item as the backend serves it.
type Entry struct {
	// ID is the backend-issued identifier. Older backends omit it and the
	// client falls back to position addressing.
	ID                    string  `json:"id,omitempty"`
	Title                 string  `json:"title"`
	Description           *string `json:"description"`
	Start                 string  `json:"start"`
	End                   string  `json:"end"`
	Category              *string `json:"category"`
	ReminderMinutesBefore *int    `json:"reminderMinutesBefore"`
}

// RemoteConfig is the preference set persisted by the backend.
type RemoteConfig struct {
	DarkMode bool   `json:"darkMode"`
	ICSPath  string `json:"icsPath,omitempty"`
}

// StartTime parses Start in loc.
func (e Entry) StartTime(loc *time.Location) (time.Time, bool) {
	t, err := ParseTimestamp(e.Start, loc)
	return t, err == nil
}

// EndTime parses End in loc.
func (e Entry) EndTime(loc *time.Location) (time.Time, bool) {
	t, err := ParseTimestamp(e.End, loc)
	return t, err == nil
}

// DescriptionText returns the description or "" when absent.
func (e Entry) DescriptionText() string {
	if e.Description == nil {
		return ""
	}
	return *e.Description
}

// CategoryText returns the category or "" when absent.
func (e Entry) CategoryText() string {
	if e.Category == nil {
		return ""
	}
	return *e.Category
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CategoryClass derives the CSS class token for a category, e.g.
// "Team Meeting" -> "category-team-meeting". Empty categories yield "".
func CategoryClass(category string) string {
	if category == "" {
		return ""
	}
	token := whitespaceRun.ReplaceAllString(strings.ToLower(category), "-")
	return "category-" + token
}

func stringPtr(s string) *string {
	return &s
}

func intPtr(n int) *int {
	return &n
}
