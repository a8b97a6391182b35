package period

import (
	"fmt"
	"time"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
)

// MaxSubRanges caps the fan-out of a single aggregation.
const MaxSubRanges = 1000

var monthAbbrev = [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}

// Decompose splits w into chronological, non-overlapping sub-ranges.
//
// Daily yields one sub-range per day of w. Monthly and Custom always run on
// full calendar months: the first sub-range starts on day 1 of w.Start's month
// and the last one ends on the last day of w.End's month.
func Decompose(w domain.Window, g domain.Granularity) ([]domain.SubRange, error) {
	if w.Start.IsZero() {
		return nil, &InvalidWindowError{Reason: "start date is required"}
	}
	n := w.Normalize()

	switch g.Kind {
	case domain.Daily:
		return daily(n)
	case domain.Monthly:
		return monthly(n, 1)
	case domain.Custom:
		if g.Months <= 0 {
			return nil, &InvalidWindowError{Reason: fmt.Sprintf("custom granularity needs a positive month count, got %d", g.Months)}
		}
		return monthly(n, g.Months)
	default:
		return nil, &InvalidWindowError{Reason: fmt.Sprintf("unknown granularity %q", g.Kind)}
	}
}

func daily(w domain.Window) ([]domain.SubRange, error) {
	days := w.Days()
	if days > MaxSubRanges {
		return nil, tooManySubRanges(days)
	}

	subs := make([]domain.SubRange, 0, days)
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		subs = append(subs, domain.SubRange{
			Index: len(subs),
			Start: d,
			End:   d,
			Label: DayLabel(d),
		})
	}
	return subs, nil
}

func monthly(w domain.Window, step int) ([]domain.SubRange, error) {
	first := monthStart(w.Start)
	last := monthStart(w.End)

	months := (last.Year()-first.Year())*12 + int(last.Month()-first.Month()) + 1
	groups := (months + step - 1) / step
	if groups > MaxSubRanges {
		return nil, tooManySubRanges(groups)
	}

	subs := make([]domain.SubRange, 0, groups)
	for start := first; !start.After(last); start = start.AddDate(0, step, 0) {
		endMonth := start.AddDate(0, step-1, 0)
		if endMonth.After(last) {
			endMonth = last
		}
		subs = append(subs, domain.SubRange{
			Index: len(subs),
			Start: start,
			End:   monthEnd(endMonth),
			Label: rangeLabel(start, endMonth),
		})
	}
	return subs, nil
}

func tooManySubRanges(n int) *WindowTooLargeError {
	return &WindowTooLargeError{SubRanges: n, Limit: MaxSubRanges}
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthEnd(t time.Time) time.Time {
	return monthStart(t).AddDate(0, 1, -1)
}

// MonthLabel renders t as "nov 2025".
func MonthLabel(t time.Time) string {
	return fmt.Sprintf("%s %d", monthAbbrev[t.Month()-1], t.Year())
}

// DayLabel renders t as "18/11/2025".
func DayLabel(t time.Time) string {
	return t.Format("02/01/2006")
}

func rangeLabel(from, to time.Time) string {
	if from.Year() == to.Year() && from.Month() == to.Month() {
		return MonthLabel(from)
	}
	return MonthLabel(from) + " - " + MonthLabel(to)
}

// WindowLabel names a whole window, e.g. for a single breakdown query.
func WindowLabel(w domain.Window) string {
	n := w.Normalize()
	if n.Start.Equal(n.End) {
		return DayLabel(n.Start)
	}
	if n.Start.Equal(monthStart(n.Start)) && n.End.Equal(monthEnd(n.End)) {
		return rangeLabel(n.Start, n.End)
	}
	return DayLabel(n.Start) + " - " + DayLabel(n.End)
}
