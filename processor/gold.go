package processor

import (
	"sort"
	"strings"

	"marketflow/models"
)

// BuildDimCurrency collects every currency code appearing on either side of
// a silver pair, deduplicated and sorted.
func BuildDimCurrency(fx []models.FxRate) []models.DimCurrency {
	seen := make(map[string]struct{})
	for _, row := range fx {
		for _, code := range strings.SplitN(row.Pair, "/", 2) {
			if code != "" {
				seen[code] = struct{}{}
			}
		}
	}

	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]models.DimCurrency, len(codes))
	for i, code := range codes {
		out[i] = models.DimCurrency{CurrencyCode: code}
	}
	return out
}

// BuildDimIndex collects the distinct indices present in silver.
func BuildDimIndex(idx []models.IndexOhlc) []models.DimIndex {
	seen := make(map[string]string)
	for _, row := range idx {
		seen[row.IndexCode] = row.IndexName
	}

	codes := make([]string, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]models.DimIndex, len(codes))
	for i, code := range codes {
		out[i] = models.DimIndex{IndexCode: code, IndexName: seen[code]}
	}
	return out
}

// BuildFactFx renames silver FX rows into the fact schema.
func BuildFactFx(fx []models.FxRate) []models.FactFxDaily {
	out := make([]models.FactFxDaily, len(fx))
	for i, row := range fx {
		out[i] = models.FactFxDaily{Date: row.Date, CurrencyPair: row.Pair, RateClose: row.Rate}
	}
	return out
}

// BuildFactCrypto renames silver crypto rows into the fact schema.
func BuildFactCrypto(cr []models.CryptoRate) []models.FactCryptoDaily {
	out := make([]models.FactCryptoDaily, len(cr))
	for i, row := range cr {
		out[i] = models.FactCryptoDaily{Date: row.Date, AssetSymbol: row.Symbol, PriceClose: row.Price}
	}
	return out
}

// BuildFactIndex renames silver index rows into the fact schema.
func BuildFactIndex(idx []models.IndexOhlc) []models.FactIndexDaily {
	out := make([]models.FactIndexDaily, len(idx))
	for i, row := range idx {
		out[i] = models.FactIndexDaily{
			Date:       row.Date,
			IndexCode:  row.IndexCode,
			Open:       row.Open,
			High:       row.High,
			Low:        row.Low,
			ClosePrice: row.Close,
			Volume:     row.Volume,
		}
	}
	return out
}
