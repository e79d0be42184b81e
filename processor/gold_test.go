package processor

import (
	"testing"
	"time"

	"marketflow/models"
)

func TestBuildDimCurrency(t *testing.T) {
	date := models.NewDate(2025, time.January, 2)

	fx := []models.FxRate{
		{Date: date, Pair: "USD/BRL", Rate: 5.0},
		{Date: date, Pair: "EUR/BRL", Rate: 5.5},
		{Date: date, Pair: "USD/BRL", Rate: 5.0},
	}

	dims := BuildDimCurrency(fx)
	want := []string{"BRL", "EUR", "USD"}
	if len(dims) != len(want) {
		t.Fatalf("expected %d currencies, got %d: %v", len(want), len(dims), dims)
	}
	for i, code := range want {
		if dims[i].CurrencyCode != code {
			t.Errorf("dims[%d] = %s, want %s", i, dims[i].CurrencyCode, code)
		}
	}
}

func TestBuildDimIndex(t *testing.T) {
	date := models.NewDate(2025, time.January, 2)

	idx := []models.IndexOhlc{
		{Date: date, IndexCode: "SPX", IndexName: "S&P 500"},
		{Date: date.AddDate(0, 0, 1), IndexCode: "SPX", IndexName: "S&P 500"},
		{Date: date, IndexCode: "BVSP", IndexName: "Ibovespa"},
	}

	dims := BuildDimIndex(idx)
	if len(dims) != 2 {
		t.Fatalf("expected 2 indices, got %d", len(dims))
	}
	if dims[0].IndexCode != "BVSP" || dims[1].IndexCode != "SPX" {
		t.Errorf("unexpected order: %s, %s", dims[0].IndexCode, dims[1].IndexCode)
	}
	if dims[1].IndexName != "S&P 500" {
		t.Errorf("unexpected name: %s", dims[1].IndexName)
	}
}

func TestBuildFactFx(t *testing.T) {
	date := models.NewDate(2025, time.January, 2)

	facts := BuildFactFx([]models.FxRate{{Date: date, Pair: "USD/BRL", Rate: 5.0}})
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts))
	}
	f := facts[0]
	if !f.Date.Equal(date) || f.CurrencyPair != "USD/BRL" || !approx(f.RateClose, 5.0) {
		t.Errorf("unexpected fact: %+v", f)
	}
}

func TestBuildFactIndex(t *testing.T) {
	date := models.NewDate(2025, time.January, 2)

	facts := BuildFactIndex([]models.IndexOhlc{{
		Date:      date,
		IndexCode: "SPX",
		Open:      4990,
		High:      5030,
		Low:       4980,
		Close:     5000,
		Volume:    1234567,
	}})
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts))
	}
	f := facts[0]
	if f.IndexCode != "SPX" || !approx(f.ClosePrice, 5000) || !approx(f.Volume, 1234567) {
		t.Errorf("unexpected fact: %+v", f)
	}
}
