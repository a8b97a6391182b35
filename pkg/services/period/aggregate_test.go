package period

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/services/catalog"
	"github.com/de-tools/revenue-atlas/pkg/store/biodata"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) Execute(
	ctx context.Context,
	reportID string,
	sub domain.SubRange,
	filters map[string]string,
) ([]domain.RawRecord, error) {
	args := m.Called(ctx, reportID, sub, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RawRecord), args.Error(1)
}

type querierFunc func(ctx context.Context, reportID string, sub domain.SubRange, filters map[string]string) ([]domain.RawRecord, error)

func (f querierFunc) Execute(
	ctx context.Context,
	reportID string,
	sub domain.SubRange,
	filters map[string]string,
) ([]domain.RawRecord, error) {
	return f(ctx, reportID, sub, filters)
}

func atIndex(i int) any {
	return mock.MatchedBy(func(sub domain.SubRange) bool { return sub.Index == i })
}

func amounts(series *domain.Series) []string {
	out := make([]string, 0, len(series.Records))
	for _, r := range series.Records {
		out = append(out, r.Amount.String())
	}
	return out
}

func shares(series *domain.Series) []float64 {
	out := make([]float64, 0, len(series.Records))
	for _, r := range series.Records {
		out = append(out, r.SharePercent)
	}
	return out
}

func TestAggregate_SingleDay(t *testing.T) {
	q := new(mockQuerier)
	q.On("Execute", mock.Anything, catalog.ReportRevenueTotal, atIndex(0), mock.Anything).
		Return([]domain.RawRecord{{"ValorTotal": "14349,96"}}, nil).Once()

	agg := NewAggregator(q, catalog.NewDefaultRegistry())
	series, err := agg.Aggregate(context.Background(), Request{
		ReportID:    catalog.ReportRevenueTotal,
		Window:      window("2025-11-18", "2025-11-18"),
		Granularity: domain.DailyGranularity(),
	})

	require.NoError(t, err)
	require.Len(t, series.Records, 1)
	record := series.Records[0]
	assert.True(t, decimal.RequireFromString("14349.96").Equal(record.Amount), record.Amount.String())
	assert.Equal(t, "R$ 14.349,96", record.FormattedAmount)
	assert.Equal(t, 100.0, record.SharePercent)
	assert.Equal(t, "18/11/2025", record.Label)
	assert.False(t, record.Failed)
	assert.True(t, series.Complete())
	q.AssertExpectations(t)
}

func TestAggregate_ThreeMonths(t *testing.T) {
	q := new(mockQuerier)
	q.On("Execute", mock.Anything, catalog.ReportRevenueTotal, atIndex(0), mock.Anything).
		Return([]domain.RawRecord{{"ValorTotal": 1000}}, nil)
	q.On("Execute", mock.Anything, catalog.ReportRevenueTotal, atIndex(1), mock.Anything).
		Return([]domain.RawRecord{{"ValorTotal": 0}}, nil)
	q.On("Execute", mock.Anything, catalog.ReportRevenueTotal, atIndex(2), mock.Anything).
		Return([]domain.RawRecord{{"ValorTotal": 3000}}, nil)

	agg := NewAggregator(q, catalog.NewDefaultRegistry())
	series, err := agg.Aggregate(context.Background(), Request{
		ReportID:    catalog.ReportRevenueTotal,
		Window:      window("2025-01-01", "2025-03-31"),
		Granularity: domain.MonthlyGranularity(),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"1000", "0", "3000"}, amounts(series))
	assert.True(t, decimal.NewFromInt(4000).Equal(series.Total))
	assert.Equal(t, []float64{25, 0, 75}, shares(series))
	assert.Equal(t, "jan 2025", series.Records[0].Label)
	assert.Equal(t, "mar 2025", series.Records[2].Label)
	assert.Equal(t, "1000", series.Records[1].RunningTotal.String())
	assert.Equal(t, "4000", series.Records[2].RunningTotal.String())
	assert.Equal(t, "1333.33", series.Average.String())
}

func TestAggregate_VaryingFieldNames(t *testing.T) {
	q := new(mockQuerier)
	q.On("Execute", mock.Anything, catalog.ReportRevenueTotal, atIndex(0), mock.Anything).
		Return([]domain.RawRecord{{"ValorTotal": "1.234,50"}}, nil)
	q.On("Execute", mock.Anything, catalog.ReportRevenueTotal, atIndex(1), mock.Anything).
		Return([]domain.RawRecord{{"TotalGeral": 765.5}}, nil)
	q.On("Execute", mock.Anything, catalog.ReportRevenueTotal, atIndex(2), mock.Anything).
		Return([]domain.RawRecord{{"R$": "R$ 2.000,00"}}, nil)

	schema := domain.FieldSchema{Amount: []string{"ValorTotal", "TotalGeral", "R$"}}
	agg := NewAggregator(q, catalog.NewDefaultRegistry())
	series, err := agg.Aggregate(context.Background(), Request{
		ReportID:    catalog.ReportRevenueTotal,
		Window:      window("2025-11-16", "2025-11-18"),
		Granularity: domain.DailyGranularity(),
		Schema:      &schema,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"1234.5", "765.5", "2000"}, amounts(series))
	assert.Equal(t, "R$ 2.000,00", series.Records[2].FormattedAmount)
	assert.Equal(t, "4000", series.Total.String())
}

func TestAggregate_PreservesOrderUnderOutOfOrderCompletion(t *testing.T) {
	const days = 6
	var completed []int
	var mu sync.Mutex

	q := querierFunc(func(ctx context.Context, _ string, sub domain.SubRange, _ map[string]string) ([]domain.RawRecord, error) {
		time.Sleep(time.Duration(days-sub.Index) * 15 * time.Millisecond)
		mu.Lock()
		completed = append(completed, sub.Index)
		mu.Unlock()
		return []domain.RawRecord{{"ValorTotal": sub.Index + 1}}, nil
	})

	agg := NewAggregator(q, catalog.NewDefaultRegistry())
	series, err := agg.Aggregate(context.Background(), Request{
		ReportID:    catalog.ReportRevenueTotal,
		Window:      window("2025-11-01", "2025-11-06"),
		Granularity: domain.DailyGranularity(),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6"}, amounts(series))
	for i, r := range series.Records {
		assert.Equal(t, date("2025-11-01").AddDate(0, 0, i), r.Start)
	}
	assert.NotEqual(t, []int{0, 1, 2, 3, 4, 5}, completed, "calls should not have settled in order")
}

func TestAggregate_FailedSubRangeIsFlagged(t *testing.T) {
	q := new(mockQuerier)
	q.On("Execute", mock.Anything, catalog.ReportRevenueTotal, atIndex(0), mock.Anything).
		Return([]domain.RawRecord{{"ValorTotal": "100,00"}}, nil)
	q.On("Execute", mock.Anything, catalog.ReportRevenueTotal, atIndex(1), mock.Anything).
		Return(nil, &biodata.UpstreamError{ReportID: catalog.ReportRevenueTotal, Status: 500, Message: "boom"})
	q.On("Execute", mock.Anything, catalog.ReportRevenueTotal, atIndex(2), mock.Anything).
		Return([]domain.RawRecord{{"ValorTotal": "300,00"}}, nil)

	agg := NewAggregator(q, catalog.NewDefaultRegistry())
	series, err := agg.Aggregate(context.Background(), Request{
		ReportID:    catalog.ReportRevenueTotal,
		Window:      window("2025-01-01", "2025-03-31"),
		Granularity: domain.MonthlyGranularity(),
	})

	require.NoError(t, err)
	require.Len(t, series.Records, 3)
	assert.Equal(t, []string{"100", "0", "300"}, amounts(series))

	failed := series.Records[1]
	assert.True(t, failed.Failed)
	assert.Contains(t, failed.Error, "status 500")
	assert.Equal(t, "fev 2025", failed.Label)
	assert.Equal(t, "R$ 0,00", failed.FormattedAmount)
	assert.False(t, series.Records[0].Failed)
	assert.Equal(t, 1, series.Failures)
	assert.True(t, series.HasFailures())
	assert.Equal(t, []float64{25, 0, 75}, shares(series))
}

func TestAggregate_EmptyBatchIsLegitimateZero(t *testing.T) {
	q := new(mockQuerier)
	q.On("Execute", mock.Anything, catalog.ReportRevenueTotal, mock.Anything, mock.Anything).
		Return([]domain.RawRecord{}, nil)

	agg := NewAggregator(q, catalog.NewDefaultRegistry())
	series, err := agg.Aggregate(context.Background(), Request{
		ReportID:    catalog.ReportRevenueTotal,
		Window:      window("2025-11-01", "2025-11-02"),
		Granularity: domain.DailyGranularity(),
	})

	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, shares(series))
	assert.True(t, series.Total.IsZero())
	assert.Zero(t, series.Failures)
	assert.Equal(t, "01/11/2025", series.Records[0].Label)
}

func TestAggregate_SharesSumToHundred(t *testing.T) {
	uneven := []string{"1,00", "1,00", "1,00", "7,13", "0,01", "333,33", "12.500,77"}

	tests := []struct {
		name        string
		window      domain.Window
		granularity domain.Granularity
		value       func(sub domain.SubRange) string
	}{
		{
			name:        "three uneven days",
			window:      window("2025-11-01", "2025-11-03"),
			granularity: domain.DailyGranularity(),
			value:       func(sub domain.SubRange) string { return uneven[sub.Index%len(uneven)] },
		},
		{
			name:        "twelve equal months",
			window:      window("2025-01-01", "2025-12-31"),
			granularity: domain.MonthlyGranularity(),
			value:       func(domain.SubRange) string { return "1.000,00" },
		},
		{
			name:        "seven equal days",
			window:      window("2025-11-01", "2025-11-07"),
			granularity: domain.DailyGranularity(),
			value:       func(domain.SubRange) string { return "250,00" },
		},
		{
			name:        "thirty one uneven days",
			window:      window("2025-01-01", "2025-01-31"),
			granularity: domain.DailyGranularity(),
			value:       func(sub domain.SubRange) string { return uneven[sub.Index%len(uneven)] },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := querierFunc(func(_ context.Context, _ string, sub domain.SubRange, _ map[string]string) ([]domain.RawRecord, error) {
				return []domain.RawRecord{{"ValorTotal": tt.value(sub)}}, nil
			})

			agg := NewAggregator(q, catalog.NewDefaultRegistry())
			series, err := agg.Aggregate(context.Background(), Request{
				ReportID:    catalog.ReportRevenueTotal,
				Window:      tt.window,
				Granularity: tt.granularity,
			})
			require.NoError(t, err)

			sum := decimal.Zero
			for _, s := range shares(series) {
				d := decimal.NewFromFloat(s)
				assert.True(t, d.Equal(d.Round(2)), "share %v has more than two decimals", s)
				sum = sum.Add(d)
			}
			assert.InDelta(t, 100, sum.InexactFloat64(), 0.02)
			assert.True(t, decimal.NewFromInt(100).Equal(sum), "sum %s", sum)
		})
	}
}

func TestAggregate_DerivedMetrics(t *testing.T) {
	q := new(mockQuerier)
	q.On("Execute", mock.Anything, catalog.ReportRevenueTotal, atIndex(0), mock.Anything).
		Return([]domain.RawRecord{{"Valor": "100,00", "Qtd": "2"}}, nil)
	q.On("Execute", mock.Anything, catalog.ReportRevenueTotal, atIndex(1), mock.Anything).
		Return([]domain.RawRecord{{"Valor": "50,00", "Qtd": 1}}, nil)

	schema := domain.FieldSchema{Amount: []string{"Valor"}, Count: []string{"Qtd"}}
	agg := NewAggregator(q, catalog.NewDefaultRegistry())
	series, err := agg.Aggregate(context.Background(), Request{
		ReportID:    catalog.ReportRevenueTotal,
		Window:      window("2025-11-01", "2025-11-02"),
		Granularity: domain.DailyGranularity(),
		Schema:      &schema,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(3), series.TotalCount)
	assert.Equal(t, "75", series.Average.String())
	assert.Equal(t, "50", series.AverageTicket.String())
}

func TestAggregate_PassesFilters(t *testing.T) {
	filters := map[string]string{"UNIDADE": "2"}
	q := new(mockQuerier)
	q.On("Execute", mock.Anything, catalog.ReportRevenueTotal, mock.Anything, filters).
		Return([]domain.RawRecord{{"ValorTotal": 1}}, nil).Once()

	agg := NewAggregator(q, catalog.NewDefaultRegistry())
	_, err := agg.Aggregate(context.Background(), Request{
		ReportID:    catalog.ReportRevenueTotal,
		Window:      window("2025-11-18", "2025-11-18"),
		Granularity: domain.DailyGranularity(),
		Filters:     filters,
	})

	require.NoError(t, err)
	q.AssertExpectations(t)
}

func TestAggregate_RespectsMaxConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	q := querierFunc(func(ctx context.Context, _ string, _ domain.SubRange, _ map[string]string) ([]domain.RawRecord, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return []domain.RawRecord{{"ValorTotal": 1}}, nil
	})

	agg := NewAggregator(q, catalog.NewDefaultRegistry(), WithMaxConcurrency(2))
	series, err := agg.Aggregate(context.Background(), Request{
		ReportID:    catalog.ReportRevenueTotal,
		Window:      window("2025-11-01", "2025-11-10"),
		Granularity: domain.DailyGranularity(),
	})

	require.NoError(t, err)
	assert.Len(t, series.Records, 10)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestAggregate_Cancelled(t *testing.T) {
	started := make(chan struct{}, 31)
	q := querierFunc(func(ctx context.Context, _ string, _ domain.SubRange, _ map[string]string) ([]domain.RawRecord, error) {
		started <- struct{}{}
		<-ctx.Done()
		return nil, &biodata.UpstreamError{Message: "request failed", Err: ctx.Err()}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	agg := NewAggregator(q, catalog.NewDefaultRegistry())
	series, err := agg.Aggregate(ctx, Request{
		ReportID:    catalog.ReportRevenueTotal,
		Window:      window("2025-11-01", "2025-11-30"),
		Granularity: domain.DailyGranularity(),
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, series)
}

func TestAggregate_InvalidRequests(t *testing.T) {
	q := new(mockQuerier)
	agg := NewAggregator(q, catalog.NewDefaultRegistry())

	_, err := agg.Aggregate(context.Background(), Request{
		ReportID:    "missing",
		Window:      window("2025-11-18", "2025-11-18"),
		Granularity: domain.DailyGranularity(),
	})
	assert.ErrorIs(t, err, catalog.ErrUnknownReport)

	_, err = agg.Aggregate(context.Background(), Request{
		ReportID:    catalog.ReportRevenueTotal,
		Window:      window("2025-11-18", "2025-11-18"),
		Granularity: domain.CustomGranularity(0),
	})
	var invalid *InvalidWindowError
	assert.ErrorAs(t, err, &invalid)

	q.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBreakdown(t *testing.T) {
	q := new(mockQuerier)
	q.On("Execute", mock.Anything, catalog.ReportRevenueByInsurer, mock.MatchedBy(func(sub domain.SubRange) bool {
		return sub.Label == "nov 2025" && sub.Start.Equal(date("2025-11-01")) && sub.End.Equal(date("2025-11-30"))
	}), mock.Anything).Return([]domain.RawRecord{
		{"Convenio": "UNIMED", "R$": "R$ 3.000,00"},
		{"R$": "1000"},
	}, nil)

	agg := NewAggregator(q, catalog.NewDefaultRegistry())
	series, err := agg.Breakdown(context.Background(), Request{
		ReportID: catalog.ReportRevenueByInsurer,
		Window:   window("2025-11-01", "2025-11-30"),
	})

	require.NoError(t, err)
	require.Len(t, series.Records, 2)
	assert.Equal(t, "UNIMED", series.Records[0].Label)
	assert.Equal(t, "Convênio 2", series.Records[1].Label)
	assert.Equal(t, "R$ 1.000,00", series.Records[1].FormattedAmount)
	assert.Equal(t, []float64{75, 25}, shares(series))
	assert.Equal(t, "4000", series.Total.String())
}

func TestBreakdown_UpstreamFailure(t *testing.T) {
	q := new(mockQuerier)
	q.On("Execute", mock.Anything, catalog.ReportRevenueByGroup, mock.Anything, mock.Anything).
		Return(nil, &biodata.UpstreamError{ReportID: catalog.ReportRevenueByGroup, Timeout: true})

	agg := NewAggregator(q, catalog.NewDefaultRegistry())
	series, err := agg.Breakdown(context.Background(), Request{
		ReportID: catalog.ReportRevenueByGroup,
		Window:   window("2025-11-01", "2025-11-30"),
	})

	var upstreamErr *biodata.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.True(t, upstreamErr.Timeout)
	assert.Nil(t, series)
}

func TestShares(t *testing.T) {
	d := decimal.NewFromInt

	assert.Equal(t, []float64{0, 0}, Shares([]domain.Amount{d(5), d(-5)}))
	assert.Equal(t, []float64{}, Shares(nil))
	assert.Equal(t, []float64{33.34, 33.33, 33.33}, Shares([]domain.Amount{d(1), d(1), d(1)}))
	assert.Equal(t, []float64{33.33, 66.67}, Shares([]domain.Amount{d(1), d(2)}))
	assert.Equal(t, []float64{100}, Shares([]domain.Amount{d(3)}))
	assert.Equal(t, []float64{25, 0, 75}, Shares([]domain.Amount{d(1000), d(0), d(3000)}))
	assert.Equal(t, []float64{-50, 150}, Shares([]domain.Amount{d(-100), d(300)}))
}
