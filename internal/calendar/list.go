package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Empty-state texts shown instead of an empty list.
const (
	EmptyListText = "Keine Termine vorhanden."
	EmptyListHint = `Klicken Sie auf "Neuer Termin", um einen Termin zu erstellen.`
)

// Item is one rendered row of the event list. Text fields are already
// escaped for the target markup.
type Item struct {
	// Edit and Delete address the entry through Ref, which names its
	// position in the cache rather than its row in this sorted list.
	Ref Ref

	Title         string
	Description   string
	Category      string
	CategoryClass string
	Date          string
	TimeRange     string
	Reminder      int

	Start    time.Time
	HasStart bool
}

// List is the chronologically sorted rendering of the cache.
type List struct {
	Empty bool
	Items []Item
}

// BuildList sorts the cached entries by start (stable: equal starts keep
// cache order, unparseable starts go last) and escapes every user-supplied
// field through esc.
func BuildList(c *Cache, esc Escaper, loc *time.Location) List {
	if loc == nil {
		loc = time.Local
	}
	entries := c.Entries()
	if len(entries) == 0 {
		return List{Empty: true}
	}

	type row struct {
		pos   int
		start time.Time
		ok    bool
	}
	rows := make([]row, len(entries))
	for i, e := range entries {
		start, ok := e.StartTime(loc)
		rows[i] = row{pos: i, start: start, ok: ok}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ok != b.ok {
			return a.ok
		}
		return a.ok && a.start.Before(b.start)
	})

	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		e := entries[r.pos]
		item := Item{
			Ref:           Ref{Position: r.pos, ID: e.ID, Generation: c.Generation()},
			Title:         esc.Escape(e.Title),
			Description:   esc.Escape(e.DescriptionText()),
			Category:      esc.Escape(e.CategoryText()),
			CategoryClass: esc.Escape(CategoryClass(e.CategoryText())),
			Start:         r.start,
			HasStart:      r.ok,
		}
		if e.ReminderMinutesBefore != nil {
			item.Reminder = *e.ReminderMinutesBefore
		}
		end, endOK := e.EndTime(loc)
		switch {
		case r.ok && endOK:
			item.Date = FormatDisplayDate(r.start)
			item.TimeRange = FormatDisplayTime(r.start) + " - " + FormatDisplayTime(end)
		case r.ok:
			item.Date = FormatDisplayDate(r.start)
			item.TimeRange = FormatDisplayTime(r.start) + " - " + esc.Escape(e.End)
		default:
			item.Date = esc.Escape(e.Start)
			item.TimeRange = esc.Escape(e.End)
		}
		items = append(items, item)
	}
	return List{Items: items}
}

// RenderHTML writes the list as the web client's markup. l must have been
// built with HTMLEscaper.
func RenderHTML(l List) string {
	var b strings.Builder
	if l.Empty {
		b.WriteString(`<div class="empty-state">` + "\n")
		b.WriteString(`  <div class="empty-state-icon">📭</div>` + "\n")
		fmt.Fprintf(&b, "  <p>%s</p>\n", EmptyListText)
		fmt.Fprintf(&b, "  <p>%s</p>\n", HTMLEscaper.Escape(EmptyListHint))
		b.WriteString("</div>\n")
		return b.String()
	}
	for _, it := range l.Items {
		class := "event-item"
		if it.CategoryClass != "" {
			class += " " + it.CategoryClass
		}
		fmt.Fprintf(&b, "<div class=\"%s\">\n", class)
		fmt.Fprintf(&b, "  <div class=\"event-title\">%s</div>\n", it.Title)
		fmt.Fprintf(&b, "  <div class=\"event-time\">📅 %s %s</div>\n", it.Date, it.TimeRange)
		if it.Description != "" {
			fmt.Fprintf(&b, "  <div class=\"event-description\">%s</div>\n", it.Description)
		}
		if it.Category != "" {
			fmt.Fprintf(&b, "  <span class=\"event-category\">%s</span>\n", it.Category)
		}
		if it.Reminder > 0 {
			fmt.Fprintf(&b, "  <span class=\"event-category\">🔔 %d Min. vorher</span>\n", it.Reminder)
		}
		b.WriteString("  <div class=\"event-actions\">\n")
		fmt.Fprintf(&b, "    <button class=\"btn btn-primary\" data-action=\"edit\" data-position=\"%d\" data-generation=\"%d\">✏️ Bearbeiten</button>\n",
			it.Ref.Position, it.Ref.Generation)
		fmt.Fprintf(&b, "    <button class=\"btn btn-secondary\" data-action=\"delete\" data-position=\"%d\" data-generation=\"%d\">🗑️ Löschen</button>\n",
			it.Ref.Position, it.Ref.Generation)
		b.WriteString("  </div>\n</div>\n")
	}
	return b.String()
}
