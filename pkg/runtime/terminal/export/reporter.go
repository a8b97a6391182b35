package export

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/money"
	"github.com/de-tools/revenue-atlas/pkg/services/catalog"
	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
)

const barWidth = 40

var hundred = decimal.NewFromInt(100)

type Reporter struct {
	writer io.Writer
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{writer: writer}
}

// Series renders one row per record, a trend column scaled to the largest
// amount, and the derived totals.
func (c *Reporter) Series(series *domain.Series) error {
	title := fmt.Sprintf("%s (%s, %s)", series.ReportID, series.Window, series.Granularity)

	if len(series.Records) == 0 {
		_, err := fmt.Fprintln(c.writer, pterm.Warning.Sprintf("%s: no records", title))
		return err
	}

	peak := decimal.Zero
	for _, r := range series.Records {
		peak = decimal.Max(peak, r.Amount)
	}

	data := pterm.TableData{{"Período", "Valor", "%", "Acumulado", "Qtd", "", "Variação"}}
	for i, r := range series.Records {
		var prev *domain.MetricRecord
		if i > 0 {
			prev = &series.Records[i-1]
		}
		amount := r.FormattedAmount
		if r.Failed {
			amount = pterm.FgRed.Sprint("falhou")
		}
		data = append(data, []string{
			r.Label,
			amount,
			fmt.Sprintf("%.2f", r.SharePercent),
			money.Format(r.RunningTotal),
			fmt.Sprintf("%d", r.Count),
			bar(r.Amount, peak),
			change(prev, r),
		})
	}

	table, err := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(data).
		Srender()
	if err != nil {
		return fmt.Errorf("failed to render series table: %w", err)
	}

	summary := fmt.Sprintf("Total: %s | Média: %s | Ticket médio: %s | Qtd: %d",
		money.Format(series.Total),
		money.Format(series.Average),
		money.Format(series.AverageTicket),
		series.TotalCount)

	panel := pterm.DefaultBox.
		WithTitle(title).
		WithBoxStyle(pterm.NewStyle(pterm.FgCyan)).
		Sprint(table + "\n" + summary)

	if _, err := fmt.Fprintln(c.writer, panel); err != nil {
		return err
	}
	if series.HasFailures() {
		_, err := fmt.Fprintln(c.writer, pterm.Warning.Sprintf(
			"%d of %d periods could not be fetched and count as zero", series.Failures, len(series.Records)))
		return err
	}
	return nil
}

func (c *Reporter) Reports(reports []catalog.Report) error {
	data := pterm.TableData{{"Report", "Procedure", "Filters", "Description"}}
	for _, r := range reports {
		data = append(data, []string{
			r.ID,
			r.Procedure,
			strings.Join(r.Parameters[2:], ","),
			r.Description,
		})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("failed to render reports table: %w", err)
	}
	_, err = fmt.Fprintln(c.writer, table)
	return err
}

func bar(amount, peak decimal.Decimal) string {
	if !peak.IsPositive() || !amount.IsPositive() {
		return ""
	}
	n := amount.Mul(decimal.NewFromInt(barWidth)).Div(peak).IntPart()
	return pterm.FgBlue.Sprint(strings.Repeat("█", int(n)))
}

func change(prev *domain.MetricRecord, cur domain.MetricRecord) string {
	if prev == nil || prev.Failed || cur.Failed {
		return ""
	}
	if prev.Amount.IsZero() {
		if cur.Amount.IsZero() {
			return pterm.FgYellow.Sprint("0%")
		}
		return pterm.FgYellow.Sprint("N/A")
	}

	pct := cur.Amount.Sub(prev.Amount).Mul(hundred).DivRound(prev.Amount.Abs(), 2)
	switch {
	case pct.IsZero():
		return pterm.FgYellow.Sprint("0%")
	case pct.IsPositive():
		return pterm.FgGreen.Sprintf("+%s%%", pct.StringFixed(2))
	default:
		return pterm.FgRed.Sprintf("%s%%", pct.StringFixed(2))
	}
}
