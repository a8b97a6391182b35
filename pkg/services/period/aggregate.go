package period

import (
	"context"
	"fmt"
	"sort"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/money"
	"github.com/de-tools/revenue-atlas/pkg/normalize"
	"github.com/de-tools/revenue-atlas/pkg/services/catalog"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var tenThousand = decimal.NewFromInt(10000)

// Querier runs one report query over one sub-range.
type Querier interface {
	Execute(ctx context.Context, reportID string, sub domain.SubRange, filters map[string]string) ([]domain.RawRecord, error)
}

type Request struct {
	ReportID    string
	Window      domain.Window
	Granularity domain.Granularity
	// Schema overrides the catalog schema of the report when set.
	Schema  *domain.FieldSchema
	Filters map[string]string
}

type Aggregator struct {
	querier        Querier
	reports        catalog.Registry
	maxConcurrency int
}

type Option func(*Aggregator)

// WithMaxConcurrency bounds in-flight sub-queries. Zero means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(a *Aggregator) {
		a.maxConcurrency = n
	}
}

func NewAggregator(querier Querier, reports catalog.Registry, opts ...Option) *Aggregator {
	a := &Aggregator{
		querier: querier,
		reports: reports,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate queries every sub-range of the request window concurrently and
// assembles the series in chronological order. A failed sub-query becomes a
// zero record flagged as Failed; only an invalid request or a cancelled ctx
// fail the whole call.
func (a *Aggregator) Aggregate(ctx context.Context, req Request) (*domain.Series, error) {
	logger := zerolog.Ctx(ctx)

	report, err := a.reports.Get(req.ReportID)
	if err != nil {
		return nil, err
	}
	schema := schemaFor(report, req)

	subs, err := Decompose(req.Window, req.Granularity)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("report", report.ID).
		Str("window", req.Window.String()).
		Str("granularity", req.Granularity.String()).
		Int("sub_ranges", len(subs)).
		Msg("aggregating series")

	records := make([]domain.MetricRecord, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	if a.maxConcurrency > 0 {
		g.SetLimit(a.maxConcurrency)
	}

	for _, sub := range subs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, err := a.querier.Execute(gctx, report.ID, sub, req.Filters)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			records[sub.Index] = settle(gctx, report.ID, sub, schema, rows, err)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	series := &domain.Series{
		ReportID:    report.ID,
		Window:      req.Window.Normalize(),
		Granularity: req.Granularity,
		Records:     records,
	}
	summarize(series)

	if series.HasFailures() {
		logger.Warn().
			Str("report", report.ID).
			Int("failures", series.Failures).
			Int("sub_ranges", len(subs)).
			Msg("series assembled with failed sub-ranges")
	}
	return series, nil
}

// Breakdown runs a single query over the whole window and keeps every
// returned row, e.g. revenue per insurer. The upstream error, if any, is
// returned as is since there is nothing left to assemble.
func (a *Aggregator) Breakdown(ctx context.Context, req Request) (*domain.Series, error) {
	report, err := a.reports.Get(req.ReportID)
	if err != nil {
		return nil, err
	}
	if req.Window.Start.IsZero() {
		return nil, &InvalidWindowError{Reason: "start date is required"}
	}
	window := req.Window.Normalize()

	sub := domain.SubRange{
		Start: window.Start,
		End:   window.End,
		Label: WindowLabel(window),
	}
	rows, err := a.querier.Execute(ctx, report.ID, sub, req.Filters)
	if err != nil {
		return nil, fmt.Errorf("breakdown of %s failed: %w", report.ID, err)
	}

	records := normalize.NormalizeBatch(rows, schemaFor(report, req))
	for i := range records {
		records[i].Start = window.Start
		records[i].End = window.End
	}

	series := &domain.Series{
		ReportID:    report.ID,
		Window:      window,
		Granularity: req.Granularity,
		Records:     records,
	}
	summarize(series)
	return series, nil
}

func schemaFor(report catalog.Report, req Request) domain.FieldSchema {
	if req.Schema != nil {
		return *req.Schema
	}
	return report.Schema
}

func settle(
	ctx context.Context,
	reportID string,
	sub domain.SubRange,
	schema domain.FieldSchema,
	rows []domain.RawRecord,
	err error,
) domain.MetricRecord {
	if err != nil {
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Str("report", reportID).
			Str("sub_range", sub.Label).
			Msg("sub-query failed, substituting zero")

		record := zeroRecord(sub)
		record.Failed = true
		record.Error = err.Error()
		return record
	}
	if len(rows) == 0 {
		return zeroRecord(sub)
	}

	record := normalize.Normalize(rows[0], schema, sub.Index+1)
	record.Label = sub.Label
	record.Start = sub.Start
	record.End = sub.End
	return record
}

func zeroRecord(sub domain.SubRange) domain.MetricRecord {
	return domain.MetricRecord{
		Label:           sub.Label,
		Start:           sub.Start,
		End:             sub.End,
		Amount:          decimal.Zero,
		FormattedAmount: money.Format(decimal.Zero),
	}
}

func summarize(series *domain.Series) {
	total := decimal.Zero
	var count int64
	failures := 0

	for i := range series.Records {
		total = total.Add(series.Records[i].Amount)
		series.Records[i].RunningTotal = total
		count += series.Records[i].Count
		if series.Records[i].Failed {
			failures++
		}
	}

	percents := Shares(lo.Map(series.Records, func(r domain.MetricRecord, _ int) domain.Amount {
		return r.Amount
	}))
	for i := range series.Records {
		series.Records[i].SharePercent = percents[i]
	}

	series.Total = total
	series.TotalCount = count
	series.Failures = failures
	series.Average = decimal.Zero
	series.AverageTicket = decimal.Zero
	if n := len(series.Records); n > 0 {
		series.Average = total.DivRound(decimal.NewFromInt(int64(n)), 2)
	}
	if count > 0 {
		series.AverageTicket = total.DivRound(decimal.NewFromInt(count), 2)
	}
}

// Shares splits 100% across amounts in steps of 0.01 using the largest
// remainder method. Every share has two decimals and, when the total is not
// zero, they sum to exactly 100. Ties go to the earlier amount.
func Shares(amounts []domain.Amount) []float64 {
	out := make([]float64, len(amounts))
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	if total.IsZero() {
		return out
	}

	type part struct {
		index     int
		remainder decimal.Decimal
	}
	units := make([]int64, len(amounts))
	parts := make([]part, len(amounts))
	var allotted int64
	for i, a := range amounts {
		exact := a.Mul(tenThousand).DivRound(total, 12)
		floor := exact.Floor()
		units[i] = floor.IntPart()
		allotted += units[i]
		parts[i] = part{index: i, remainder: exact.Sub(floor)}
	}

	sort.SliceStable(parts, func(i, j int) bool {
		return parts[i].remainder.GreaterThan(parts[j].remainder)
	})
	for k := int64(0); k < tenThousand.IntPart()-allotted && int(k) < len(parts); k++ {
		units[parts[k].index]++
	}

	for i, u := range units {
		out[i] = decimal.New(u, -2).InexactFloat64()
	}
	return out
}
