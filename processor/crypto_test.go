package processor

import (
	"testing"
	"time"

	"marketflow/models"
)

func TestNormalizeCrypto(t *testing.T) {
	date := models.NewDate(2025, time.March, 10)

	btc := []models.CryptoPrice{{Date: date, BtcUsd: 80000}}
	ptax := []models.PtaxRate{{Date: date, UsdBrl: 5.0}}

	rates := NormalizeCrypto(btc, ptax)
	if len(rates) != 2 {
		t.Fatalf("expected 2 rates, got %d: %v", len(rates), rates)
	}
	if rates[0].Symbol != "BTC/USD" || !approx(rates[0].Price, 80000) {
		t.Errorf("unexpected first row: %+v", rates[0])
	}
	if rates[1].Symbol != "BTC/BRL" || !approx(rates[1].Price, 400000) {
		t.Errorf("unexpected second row: %+v", rates[1])
	}
}

func TestNormalizeCryptoMissingLegDropsOnlyBrl(t *testing.T) {
	d1 := models.NewDate(2025, time.March, 10)
	d2 := models.NewDate(2025, time.March, 11)

	btc := []models.CryptoPrice{
		{Date: d1, BtcUsd: 80000},
		{Date: d2, BtcUsd: 81000},
	}
	ptax := []models.PtaxRate{{Date: d1, UsdBrl: 5.0}}

	rates := NormalizeCrypto(btc, ptax)
	if len(rates) != 3 {
		t.Fatalf("expected 3 rates, got %d: %v", len(rates), rates)
	}
	for _, r := range rates {
		if r.Symbol == "BTC/BRL" && r.Date.Equal(d2) {
			t.Errorf("BTC/BRL emitted for a date without a USD/BRL leg: %+v", r)
		}
	}
}

func TestNormalizeCryptoDuplicateDatesLastWriteWins(t *testing.T) {
	date := models.NewDate(2025, time.March, 10)

	btc := []models.CryptoPrice{
		{Date: date, BtcUsd: 79000},
		{Date: date, BtcUsd: 80000},
	}

	rates := NormalizeCrypto(btc, nil)
	if len(rates) != 1 {
		t.Fatalf("expected 1 rate, got %d", len(rates))
	}
	if !approx(rates[0].Price, 80000) {
		t.Errorf("price = %v, want 80000 from latest row", rates[0].Price)
	}
}

func TestNormalizeCryptoSkipsUnusablePrice(t *testing.T) {
	date := models.NewDate(2025, time.March, 10)

	btc := []models.CryptoPrice{{Date: date, BtcUsd: 0}}
	ptax := []models.PtaxRate{{Date: date, UsdBrl: 5.0}}

	if rates := NormalizeCrypto(btc, ptax); len(rates) != 0 {
		t.Errorf("expected no rates for a zero price, got %v", rates)
	}
}
