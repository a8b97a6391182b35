package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Amount is an exact BRL monetary value.
type Amount = decimal.Decimal

// RawRecord is one upstream result row. Values are string, json.Number,
// float64 or nil; field names are not stable across reports.
type RawRecord map[string]any

type MetricRecord struct {
	Label           string
	Start           time.Time
	End             time.Time
	Amount          Amount
	Count           int64
	FormattedAmount string
	SharePercent    float64
	RunningTotal    Amount

	// Failed marks a record substituted for a sub-query that could not be
	// fetched, as opposed to a period that legitimately summed to zero.
	Failed bool
	Error  string
}

type Series struct {
	ReportID      string
	Window        Window
	Granularity   Granularity
	Records       []MetricRecord
	Total         Amount
	TotalCount    int64
	Average       Amount
	AverageTicket Amount
	Failures      int
}

func (s *Series) HasFailures() bool {
	return s.Failures > 0
}

func (s *Series) Complete() bool {
	return s.Failures == 0
}
