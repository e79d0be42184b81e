package processor

import (
	"math"
	"testing"
	"time"

	"marketflow/models"
)

func approx(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func TestTriangulateFx(t *testing.T) {
	date := models.NewDate(2025, time.January, 2)

	ecb := []models.EcbFxRate{
		{Date: date, Code: "USD", RateVsEur: 0.9},
		{Date: date, Code: "GBP", RateVsEur: 0.85},
		{Date: date, Code: "EUR", RateVsEur: 1.0},
	}
	ptax := []models.PtaxRate{{Date: date, UsdBrl: 5.0}}

	rates := TriangulateFx(ecb, ptax)
	if len(rates) != 3 {
		t.Fatalf("expected 3 rates, got %d: %v", len(rates), rates)
	}

	// brl_per_eur = (1/5) * 0.9 = 0.18
	want := map[string]float64{
		"EUR/BRL": 1.0 / 0.18,
		"GBP/BRL": 0.85 / 0.18,
		"USD/BRL": 5.0,
	}
	for _, r := range rates {
		w, ok := want[r.Pair]
		if !ok {
			t.Errorf("unexpected pair %s", r.Pair)
			continue
		}
		if !approx(r.Rate, w) {
			t.Errorf("%s = %v, want %v", r.Pair, r.Rate, w)
		}
		if !r.Date.Equal(date) {
			t.Errorf("%s date = %v, want %v", r.Pair, r.Date, date)
		}
	}
}

func TestTriangulateFxOutputOrder(t *testing.T) {
	d1 := models.NewDate(2025, time.January, 2)
	d2 := models.NewDate(2025, time.January, 3)

	ecb := []models.EcbFxRate{
		{Date: d2, Code: "USD", RateVsEur: 0.91},
		{Date: d1, Code: "USD", RateVsEur: 0.9},
		{Date: d1, Code: "GBP", RateVsEur: 0.85},
	}
	ptax := []models.PtaxRate{
		{Date: d1, UsdBrl: 5.0},
		{Date: d2, UsdBrl: 5.1},
	}

	rates := TriangulateFx(ecb, ptax)
	if len(rates) != 3 {
		t.Fatalf("expected 3 rates, got %d", len(rates))
	}
	// Sorted by pair then date.
	if rates[0].Pair != "GBP/BRL" || rates[1].Pair != "USD/BRL" || rates[2].Pair != "USD/BRL" {
		t.Errorf("unexpected pair order: %s, %s, %s", rates[0].Pair, rates[1].Pair, rates[2].Pair)
	}
	if !rates[1].Date.Equal(d1) || !rates[2].Date.Equal(d2) {
		t.Errorf("USD/BRL rows out of date order: %v, %v", rates[1].Date, rates[2].Date)
	}
}

func TestTriangulateFxDropsDateMissingPtaxLeg(t *testing.T) {
	d1 := models.NewDate(2025, time.January, 2)
	d2 := models.NewDate(2025, time.January, 3)

	ecb := []models.EcbFxRate{
		{Date: d1, Code: "USD", RateVsEur: 0.9},
		{Date: d2, Code: "USD", RateVsEur: 0.91},
	}
	ptax := []models.PtaxRate{{Date: d1, UsdBrl: 5.0}}

	rates := TriangulateFx(ecb, ptax)
	if len(rates) != 1 {
		t.Fatalf("expected 1 rate, got %d", len(rates))
	}
	if !rates[0].Date.Equal(d1) {
		t.Errorf("surviving date = %v, want %v", rates[0].Date, d1)
	}
}

func TestTriangulateFxDropsDateMissingUsdLeg(t *testing.T) {
	date := models.NewDate(2025, time.January, 2)

	ecb := []models.EcbFxRate{{Date: date, Code: "GBP", RateVsEur: 0.85}}
	ptax := []models.PtaxRate{{Date: date, UsdBrl: 5.0}}

	if rates := TriangulateFx(ecb, ptax); len(rates) != 0 {
		t.Errorf("expected no rates without a USD leg, got %v", rates)
	}
}

func TestTriangulateFxDuplicateRowsLastWriteWins(t *testing.T) {
	date := models.NewDate(2025, time.January, 2)

	ecb := []models.EcbFxRate{
		{Date: date, Code: "USD", RateVsEur: 0.8},
		{Date: date, Code: "USD", RateVsEur: 0.9},
	}
	ptax := []models.PtaxRate{
		{Date: date, UsdBrl: 4.0},
		{Date: date, UsdBrl: 5.0},
	}

	rates := TriangulateFx(ecb, ptax)
	if len(rates) != 1 {
		t.Fatalf("expected 1 rate, got %d", len(rates))
	}
	if !approx(rates[0].Rate, 5.0) {
		t.Errorf("USD/BRL = %v, want 5.0 from latest rows", rates[0].Rate)
	}
}

func TestTriangulateFxRejectsUnusableLeg(t *testing.T) {
	date := models.NewDate(2025, time.January, 2)

	ecb := []models.EcbFxRate{{Date: date, Code: "USD", RateVsEur: 0.9}}

	for _, leg := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		ptax := []models.PtaxRate{{Date: date, UsdBrl: leg}}
		if rates := TriangulateFx(ecb, ptax); len(rates) != 0 {
			t.Errorf("leg %v: expected no rates, got %v", leg, rates)
		}
	}
}
