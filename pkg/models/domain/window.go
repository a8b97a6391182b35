package domain

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Window is an inclusive range of calendar dates.
type Window struct {
	Start time.Time
	End   time.Time
}

func NewWindow(start, end time.Time) Window {
	return Window{Start: start, End: end}
}

// ParseWindow parses two YYYY-MM-DD dates. An empty end defaults to start.
func ParseWindow(start, end string) (Window, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return Window{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	if end == "" {
		return Window{Start: s, End: s}, nil
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return Window{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	return Window{Start: s, End: e}, nil
}

// Normalize truncates both bounds to calendar dates and collapses an
// inverted window to the single day at Start.
func (w Window) Normalize() Window {
	start := Day(w.Start)
	end := Day(w.End)
	if w.End.IsZero() || end.Before(start) {
		end = start
	}
	return Window{Start: start, End: end}
}

func (w Window) Days() int {
	n := w.Normalize()
	return int(n.End.Sub(n.Start).Hours()/24) + 1
}

func (w Window) String() string {
	n := w.Normalize()
	return fmt.Sprintf("%s → %s", n.Start.Format(DateLayout), n.End.Format(DateLayout))
}

// Day returns midnight UTC of the calendar date of t.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type GranularityKind string

const (
	Daily   GranularityKind = "daily"
	Monthly GranularityKind = "monthly"
	Custom  GranularityKind = "custom"
)

// Granularity selects how a window is split into sub-ranges. Months is only
// meaningful for Custom.
type Granularity struct {
	Kind   GranularityKind
	Months int
}

func DailyGranularity() Granularity {
	return Granularity{Kind: Daily}
}

func MonthlyGranularity() Granularity {
	return Granularity{Kind: Monthly}
}

func CustomGranularity(months int) Granularity {
	return Granularity{Kind: Custom, Months: months}
}

// ParseGranularity does not validate; Decompose rejects unknown kinds.
func ParseGranularity(kind string, months int) Granularity {
	k := GranularityKind(strings.ToLower(strings.TrimSpace(kind)))
	if k == "" {
		k = Monthly
	}
	return Granularity{Kind: k, Months: months}
}

func (g Granularity) String() string {
	if g.Kind == Custom {
		return fmt.Sprintf("%s(%d)", g.Kind, g.Months)
	}
	return string(g.Kind)
}

// SubRange is one chronological slice of a decomposed window.
type SubRange struct {
	Index int
	Start time.Time
	End   time.Time
	Label string
}
