package calendar

import (
	"fmt"
	"time"
)

// MaxDots is the number of event dots drawn before switching to "+N".
const MaxDots = 3

type CellKind int

const (
	CellHeader CellKind = iota
	CellFiller
	CellDay
)

// Cell describes one slot of the month grid.
type Cell struct {
	Kind CellKind

	// Header cells only.
	Label string

	// Day cells only.
	Day      int
	Date     time.Time
	Today    bool
	Count    int
	Dots     int
	Overflow int
}

// Suffix renders the overflow marker, e.g. " +2", or "" when every entry
// has a dot.
func (c Cell) Suffix() string {
	if c.Overflow <= 0 {
		return ""
	}
	return fmt.Sprintf(" +%d", c.Overflow)
}

// ClickKind is what a click on a day cell asks the surface to do.
type ClickKind int

const (
	ClickNone ClickKind = iota
	// ClickCreate opens the create form seeded with the cell's date.
	ClickCreate
	// ClickRevealList brings the event list into view. No filtering.
	ClickRevealList
)

type Click struct {
	Kind ClickKind
	Seed time.Time
}

// Click resolves a click on the cell.
func (c Cell) Click() Click {
	if c.Kind != CellDay {
		return Click{Kind: ClickNone}
	}
	if c.Count == 0 {
		return Click{Kind: ClickCreate, Seed: c.Date}
	}
	return Click{Kind: ClickRevealList}
}

// Grid is the laid out month: 7 headers, leading fillers, then the days.
type Grid struct {
	Title       string
	Year        int
	Month       time.Month
	LeadingDays int
	DaysInMonth int
	Cells       []Cell
}

// Days returns the day cells only.
func (g Grid) Days() []Cell {
	return g.Cells[len(WeekdayNames)+g.LeadingDays:]
}

// DayCell returns the cell for day d of the month.
func (g Grid) DayCell(d int) (Cell, bool) {
	if d < 1 || d > g.DaysInMonth {
		return Cell{}, false
	}
	return g.Days()[d-1], true
}

// BuildGrid lays out the month containing month. now decides the Today flag.
func BuildGrid(month time.Time, entries []Entry, now time.Time, loc *time.Location) Grid {
	if loc == nil {
		loc = time.Local
	}
	year, mon, _ := month.Date()
	first := time.Date(year, mon, 1, 0, 0, 0, 0, loc)
	daysInMonth := time.Date(year, mon+1, 0, 0, 0, 0, 0, loc).Day()
	leading := int(first.Weekday())

	counts := make(map[DayKey]int)
	for _, e := range entries {
		if start, ok := e.StartTime(loc); ok {
			counts[KeyOf(start)]++
		}
	}

	g := Grid{
		Title:       MonthTitle(first),
		Year:        year,
		Month:       mon,
		LeadingDays: leading,
		DaysInMonth: daysInMonth,
		Cells:       make([]Cell, 0, len(WeekdayNames)+leading+daysInMonth),
	}
	for _, name := range WeekdayNames {
		g.Cells = append(g.Cells, Cell{Kind: CellHeader, Label: name})
	}
	for i := 0; i < leading; i++ {
		g.Cells = append(g.Cells, Cell{Kind: CellFiller})
	}

	today := now.In(loc)
	for d := 1; d <= daysInMonth; d++ {
		date := time.Date(year, mon, d, 0, 0, 0, 0, loc)
		n := counts[KeyOf(date)]
		cell := Cell{
			Kind:  CellDay,
			Day:   d,
			Date:  date,
			Today: sameDay(date, today),
			Count: n,
			Dots:  min(n, MaxDots),
		}
		if n > MaxDots {
			cell.Overflow = n - MaxDots
		}
		g.Cells = append(g.Cells, cell)
	}
	return g
}
