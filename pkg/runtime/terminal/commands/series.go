package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/revenue-atlas/pkg/services/account"
	"github.com/de-tools/revenue-atlas/pkg/services/period"
	"github.com/spf13/cobra"
)

const commandTimeout = 2 * time.Minute

// ExplorerProvider resolves the explorer once the root flags are parsed.
type ExplorerProvider func(ctx context.Context) (account.Explorer, error)

type SeriesCmd struct {
	report      string
	from        string
	to          string
	granularity string
	months      int
	filters     map[string]string
	breakdown   bool

	profile  *string
	explorer ExplorerProvider
	reporter *export.Reporter
	now      func() time.Time
}

// NewSeriesCmd aggregates a report over sub-ranges of the window.
func NewSeriesCmd(explorer ExplorerProvider, profile *string, reporter *export.Reporter) *cobra.Command {
	sc := &SeriesCmd{explorer: explorer, profile: profile, reporter: reporter, now: time.Now}
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Aggregate a report into a time series",
		RunE:  sc.run,
	}

	sc.bindFlags(cmd)
	cmd.Flags().StringVar(&sc.granularity, "granularity", string(domain.Monthly), "Sub-range size: daily, monthly or custom")
	cmd.Flags().IntVar(&sc.months, "months", 0, "Months per sub-range for custom granularity")

	return cmd
}

// NewBreakdownCmd runs a single query over the window and lists every row,
// e.g. revenue per insurer.
func NewBreakdownCmd(explorer ExplorerProvider, profile *string, reporter *export.Reporter) *cobra.Command {
	sc := &SeriesCmd{explorer: explorer, profile: profile, reporter: reporter, now: time.Now, breakdown: true}
	cmd := &cobra.Command{
		Use:   "breakdown",
		Short: "Break a report down by its dimension over the whole window",
		RunE:  sc.run,
	}

	sc.bindFlags(cmd)

	return cmd
}

func (sc *SeriesCmd) bindFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sc.report, "report", "", "Report id or procedure name (see `reports`)")
	cmd.Flags().StringVar(&sc.from, "from", "", "Window start, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&sc.to, "to", "", "Window end, YYYY-MM-DD (default --from)")
	cmd.Flags().StringToStringVar(&sc.filters, "filter", nil, "Report filter as name=value, e.g. unidade=3")

	_ = cmd.MarkFlagRequired("report")
}

func (sc *SeriesCmd) request() (period.Request, error) {
	from := sc.from
	if from == "" {
		from = sc.now().Format(domain.DateLayout)
	}
	window, err := domain.ParseWindow(from, sc.to)
	if err != nil {
		return period.Request{}, err
	}

	return period.Request{
		ReportID:    sc.report,
		Window:      window,
		Granularity: domain.ParseGranularity(sc.granularity, sc.months),
		Filters:     sc.filters,
	}, nil
}

func (sc *SeriesCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	req, err := sc.request()
	if err != nil {
		return err
	}

	explorer, err := sc.explorer(ctx)
	if err != nil {
		return err
	}
	agg, err := explorer.GetAggregator(ctx, *sc.profile)
	if err != nil {
		return fmt.Errorf("failed to prepare profile %q: %w", *sc.profile, err)
	}

	var series *domain.Series
	if sc.breakdown {
		series, err = agg.Breakdown(ctx, req)
	} else {
		series, err = agg.Aggregate(ctx, req)
	}
	if err != nil {
		return fmt.Errorf("failed to aggregate %s: %w", sc.report, err)
	}

	return sc.reporter.Series(series)
}
