// Package normalize maps heterogeneous upstream rows onto MetricRecord.
package normalize

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/de-tools/revenue-atlas/pkg/money"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Normalize resolves label, amount and count of raw through schema.
// position is the 1-based index of raw in its batch and names the
// placeholder label used when no label candidate matches. It never fails.
func Normalize(raw domain.RawRecord, schema domain.FieldSchema, position int) domain.MetricRecord {
	record := domain.MetricRecord{
		Amount:       decimal.Zero,
		RunningTotal: decimal.Zero,
	}

	if v, ok := resolve(raw, schema.Label, hasLabel); ok {
		record.Label = labelString(v)
	}
	if record.Label == "" {
		record.Label = fmt.Sprintf("%s %d", schema.PlaceholderPrefix(), position)
	}

	amountRaw, _ := resolve(raw, schema.Amount, notNil)
	record.Amount = money.Parse(amountRaw)
	record.FormattedAmount = formatAmount(amountRaw, record.Amount)

	if v, ok := resolve(raw, schema.Count, notNil); ok {
		record.Count = money.ParseCount(v)
	}

	return record
}

// NormalizeBatch normalizes rows keeping their order.
func NormalizeBatch(rows []domain.RawRecord, schema domain.FieldSchema) []domain.MetricRecord {
	records := make([]domain.MetricRecord, 0, len(rows))
	for i, row := range rows {
		records = append(records, Normalize(row, schema, i+1))
	}
	return records
}

// resolve returns the value of the first candidate accepted by ok. Exact
// field names are tried before case-insensitive ones, which are taken in
// sorted order.
func resolve(raw domain.RawRecord, candidates []string, ok func(any) bool) (any, bool) {
	for _, name := range candidates {
		if v, found := raw[name]; found && ok(v) {
			return v, true
		}
		folded := lo.Filter(slices.Sorted(maps.Keys(raw)), func(key string, _ int) bool {
			return key != name && strings.EqualFold(key, name)
		})
		for _, key := range folded {
			if v := raw[key]; ok(v) {
				return v, true
			}
		}
	}
	return nil, false
}

func notNil(v any) bool {
	return v != nil
}

func hasLabel(v any) bool {
	return v != nil && labelString(v) != ""
}

func labelString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// formatAmount keeps an upstream display string as is, so the label shown
// and the parsed amount come from the same field.
func formatAmount(raw any, amount decimal.Decimal) string {
	if s, ok := raw.(string); ok && money.IsDisplayString(s) {
		return strings.TrimSpace(s)
	}
	return money.Format(amount)
}
