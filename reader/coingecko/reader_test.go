package coingecko

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketflow/config"
	"marketflow/models"
	"marketflow/reader"
)

func TestEffectiveWindowDemoClampsMax(t *testing.T) {
	today := models.NewDate(2025, time.August, 1)
	start := today.AddDate(0, 0, -500)
	cred := config.Credential{Kind: config.CredentialDemo, Key: "CG-x", QueryParam: "x_cg_demo_api_key"}

	days, effectiveStart := EffectiveWindow(start, today, cred, "max")
	if days != "365" {
		t.Errorf("days = %s, want 365", days)
	}
	want := today.AddDate(0, 0, -364)
	if !effectiveStart.Equal(want) {
		t.Errorf("effective start = %s, want %s", models.FormatDate(effectiveStart), models.FormatDate(want))
	}
}

func TestEffectiveWindowDemoInsideLimit(t *testing.T) {
	today := models.NewDate(2025, time.August, 1)
	start := today.AddDate(0, 0, -10)
	cred := config.Credential{Kind: config.CredentialDemo, Key: "CG-x", QueryParam: "x_cg_demo_api_key"}

	days, effectiveStart := EffectiveWindow(start, today, cred, "max")
	if days != "11" {
		t.Errorf("days = %s, want 11", days)
	}
	if !effectiveStart.Equal(start) {
		t.Errorf("effective start moved: %s", models.FormatDate(effectiveStart))
	}
}

func TestEffectiveWindowProKeepsMax(t *testing.T) {
	today := models.NewDate(2025, time.August, 1)
	start := today.AddDate(0, 0, -500)
	cred := config.Credential{Kind: config.CredentialPro, Key: "k", Header: "x-cg-pro-api-key"}

	days, effectiveStart := EffectiveWindow(start, today, cred, "max")
	if days != "max" {
		t.Errorf("days = %s, want max", days)
	}
	if !effectiveStart.Equal(start) {
		t.Errorf("effective start moved: %s", models.FormatDate(effectiveStart))
	}
}

func TestDateFromMsEpoch(t *testing.T) {
	if got := models.FormatDate(DateFromMsEpoch(1735689600000)); got != "2025-01-01" {
		t.Errorf("date = %s, want 2025-01-01", got)
	}
	// Mid-day timestamps truncate to the same calendar date.
	ms := time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC).UnixMilli()
	if got := models.FormatDate(DateFromMsEpoch(ms)); got != "2025-03-10" {
		t.Errorf("date = %s, want 2025-03-10", got)
	}
}

func TestParseMarketChartAveragesPerDate(t *testing.T) {
	d := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	payload := fmt.Sprintf(`{"prices": [[%d, 80000], [%d, 82000], [%d, 81000]]}`,
		d.UnixMilli(),
		d.Add(12*time.Hour).UnixMilli(),
		d.AddDate(0, 0, 1).UnixMilli())

	rows, err := ParseMarketChart([]byte(payload), models.NewDate(2025, time.March, 1))
	if err != nil {
		t.Fatalf("ParseMarketChart failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].BtcUsd != 81000 {
		t.Errorf("intra-day points should average: %v", rows[0].BtcUsd)
	}
	if rows[1].BtcUsd != 81000 {
		t.Errorf("unexpected second row: %v", rows[1].BtcUsd)
	}
}

func TestParseMarketChartFiltersStart(t *testing.T) {
	d := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	payload := fmt.Sprintf(`{"prices": [[%d, 80000]]}`, d.UnixMilli())

	rows, err := ParseMarketChart([]byte(payload), models.NewDate(2025, time.April, 1))
	if err != nil {
		t.Fatalf("ParseMarketChart failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected rows before start to drop, got %v", rows)
	}
}

func TestFetchPlacesDemoKeyInQuery(t *testing.T) {
	var gotQuery, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("x_cg_demo_api_key")
		gotHeader = r.Header.Get("x-cg-pro-api-key")
		d := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
		fmt.Fprintf(w, `{"prices": [[%d, 80000]]}`, d.UnixMilli())
	}))
	defer srv.Close()

	cfg := &config.Config{StartDate: "2025-03-01"}
	cfg.Source.Coingecko = config.CoingeckoSourceConfig{
		BaseURL:    srv.URL,
		CoinID:     "bitcoin",
		VsCurrency: "usd",
		Days:       "max",
		Credential: config.Credential{
			Kind:       config.CredentialDemo,
			Key:        "CG-testkey",
			QueryParam: "x_cg_demo_api_key",
		},
	}

	r := NewReader(cfg, reader.NewClient(5*time.Second, "test/1.0"))
	r.now = func() time.Time { return models.NewDate(2025, time.March, 15) }

	rows, err := r.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if gotQuery != "CG-testkey" {
		t.Errorf("demo key not placed in query: %q", gotQuery)
	}
	if gotHeader != "" {
		t.Errorf("demo key leaked into the pro header: %q", gotHeader)
	}
}
