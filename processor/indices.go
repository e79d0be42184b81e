package processor

import (
	"sort"

	"marketflow/models"
)

// NormalizeIndices reshapes raw index rows into the canonical OHLC schema.
// All providers feed the same bronze table, so the only merge logic needed is
// one row per (index_code, date) with the latest bronze row winning.
func NormalizeIndices(raw []models.IndexRaw) []models.IndexOhlc {
	type key struct {
		code string
		date string
	}

	merged := make(map[key]models.IndexOhlc, len(raw))
	for _, row := range raw {
		merged[key{row.Code, models.FormatDate(row.Date)}] = models.IndexOhlc{
			Date:      row.Date,
			IndexCode: row.Code,
			IndexName: row.Name,
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    row.Volume,
		}
	}

	out := make([]models.IndexOhlc, 0, len(merged))
	for _, row := range merged {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IndexCode != out[j].IndexCode {
			return out[i].IndexCode < out[j].IndexCode
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
