package processor

import (
	"sort"
	"time"

	"marketflow/models"
)

// NormalizeCrypto joins BTC/USD with the PTAX USD/BRL leg (left join from the
// crypto side) and emits up to two rows per date. The asymmetry is
// deliberate: BTC/USD needs no FX leg and survives a date where PTAX has no
// observation, while BTC/BRL requires the leg and is dropped for that date.
func NormalizeCrypto(btc []models.CryptoPrice, ptax []models.PtaxRate) []models.CryptoRate {
	usdbrl := make(map[string]float64)
	for _, row := range ptax {
		usdbrl[models.FormatDate(row.Date)] = row.UsdBrl
	}

	prices := make(map[string]float64)
	dates := make(map[string]time.Time)
	for _, row := range btc {
		key := models.FormatDate(row.Date)
		prices[key] = row.BtcUsd
		dates[key] = row.Date
	}

	keys := make([]string, 0, len(prices))
	for key := range prices {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]models.CryptoRate, 0, 2*len(keys))
	for _, key := range keys {
		price := prices[key]
		if !usable(price) {
			continue
		}
		out = append(out, models.CryptoRate{Date: dates[key], Symbol: "BTC/USD", Price: price})

		if leg, ok := usdbrl[key]; ok && usable(leg) {
			out = append(out, models.CryptoRate{Date: dates[key], Symbol: "BTC/BRL", Price: price * leg})
		}
	}
	return out
}
