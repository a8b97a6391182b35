package domain

const DefaultPlaceholder = "Item"

// FieldSchema lists, per logical field, the raw field names to probe in
// order. The first candidate holding a value wins.
type FieldSchema struct {
	Label       []string `mapstructure:"label"`
	Amount      []string `mapstructure:"amount"`
	Count       []string `mapstructure:"count"`
	Placeholder string   `mapstructure:"placeholder"`
}

// Merge appends the candidates of extra that s does not list yet. The
// placeholder of extra replaces s's when set.
func (s FieldSchema) Merge(extra FieldSchema) FieldSchema {
	merged := FieldSchema{
		Label:       appendMissing(s.Label, extra.Label),
		Amount:      appendMissing(s.Amount, extra.Amount),
		Count:       appendMissing(s.Count, extra.Count),
		Placeholder: s.Placeholder,
	}
	if extra.Placeholder != "" {
		merged.Placeholder = extra.Placeholder
	}
	return merged
}

func (s FieldSchema) PlaceholderPrefix() string {
	if s.Placeholder == "" {
		return DefaultPlaceholder
	}
	return s.Placeholder
}

func appendMissing(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, name := range list {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
