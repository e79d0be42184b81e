// Package processor turns bronze rows into the canonical silver tables and
// reshapes silver into the gold star schema. Everything here is pure
// slice-in, slice-out logic; persistence lives in the warehouse package.
package processor

import (
	"math"
	"sort"
	"time"

	"marketflow/models"
)

// TriangulateFx derives CODE/BRL rates for every currency the ECB reports,
// from EUR-denominated legs plus the PTAX USD/BRL leg:
//
//	BRL/EUR  = (1 / USD_BRL) * USD_EUR
//	CODE/BRL = CODE_EUR / BRL_EUR
//
// Duplicate (date, code) bronze rows resolve last-write-wins, dates missing
// either input leg are dropped wholesale, and rates stay in full double
// precision; rounding belongs to display layers.
func TriangulateFx(ecb []models.EcbFxRate, ptax []models.PtaxRate) []models.FxRate {
	legs := make(map[string]map[string]float64)
	dates := make(map[string]time.Time)
	for _, row := range ecb {
		key := models.FormatDate(row.Date)
		if legs[key] == nil {
			legs[key] = make(map[string]float64)
		}
		legs[key][row.Code] = row.RateVsEur
		dates[key] = row.Date
	}

	usdbrl := make(map[string]float64)
	for _, row := range ptax {
		usdbrl[models.FormatDate(row.Date)] = row.UsdBrl
	}

	dateKeys := make([]string, 0, len(legs))
	for key := range legs {
		dateKeys = append(dateKeys, key)
	}
	sort.Strings(dateKeys)

	var out []models.FxRate
	for _, key := range dateKeys {
		row := legs[key]

		usdPerEur, ok := row["USD"]
		if !ok {
			continue
		}
		usdBrl, ok := usdbrl[key]
		if !ok || !usable(usdBrl) {
			continue
		}

		brlPerEur := (1.0 / usdBrl) * usdPerEur
		if !usable(brlPerEur) {
			continue
		}

		codes := make([]string, 0, len(row))
		for code := range row {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		for _, code := range codes {
			rate := row[code] / brlPerEur
			if !usable(rate) {
				continue
			}
			out = append(out, models.FxRate{
				Date: dates[key],
				Pair: code + "/BRL",
				Rate: rate,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Pair != out[j].Pair {
			return out[i].Pair < out[j].Pair
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// usable rejects NaN, infinities and non-positive rates.
func usable(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
