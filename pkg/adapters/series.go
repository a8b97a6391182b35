package adapters

import (
	"strings"

	"github.com/de-tools/revenue-atlas/pkg/models/api"
	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/money"
	"github.com/de-tools/revenue-atlas/pkg/services/catalog"
	"github.com/samber/lo"
)

func MapSeriesDomainToApi(series *domain.Series) api.Series {
	return api.Series{
		Report:                 series.ReportID,
		From:                   series.Window.Start.Format(domain.DateLayout),
		To:                     series.Window.End.Format(domain.DateLayout),
		Granularity:            string(series.Granularity.Kind),
		Months:                 series.Granularity.Months,
		Records:                lo.Map(series.Records, func(r domain.MetricRecord, _ int) api.MetricRecord { return MapMetricRecordDomainToApi(r) }),
		Total:                  series.Total.InexactFloat64(),
		FormattedTotal:         money.Format(series.Total),
		TotalCount:             series.TotalCount,
		Average:                series.Average.InexactFloat64(),
		FormattedAverage:       money.Format(series.Average),
		AverageTicket:          series.AverageTicket.InexactFloat64(),
		FormattedAverageTicket: money.Format(series.AverageTicket),
		Failures:               series.Failures,
		Complete:               series.Complete(),
	}
}

func MapMetricRecordDomainToApi(record domain.MetricRecord) api.MetricRecord {
	return api.MetricRecord{
		Label:           record.Label,
		Start:           record.Start.Format(domain.DateLayout),
		End:             record.End.Format(domain.DateLayout),
		Amount:          record.Amount.InexactFloat64(),
		FormattedAmount: record.FormattedAmount,
		Count:           record.Count,
		SharePercent:    record.SharePercent,
		RunningTotal:    record.RunningTotal.InexactFloat64(),
		Failed:          record.Failed,
		Error:           record.Error,
	}
}

// MapReportCatalogToApi exposes the filter names a report accepts, i.e. its
// positional parameters past the two date bounds.
func MapReportCatalogToApi(report catalog.Report) api.Report {
	return api.Report{
		ID:          report.ID,
		Procedure:   report.Procedure,
		Description: report.Description,
		Filters: lo.Uniq(lo.Map(report.Parameters[2:], func(p string, _ int) string {
			return strings.ToLower(strings.TrimPrefix(p, "@"))
		})),
	}
}

func MapProfilesToApi(profiles []string) []api.Profile {
	return lo.Map(profiles, func(name string, _ int) api.Profile { return api.Profile{Name: name} })
}
