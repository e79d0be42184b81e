package bacen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketflow/config"
	"marketflow/models"
	"marketflow/reader"
)

func TestParseDayFirst(t *testing.T) {
	date, err := ParseDayFirst("31/01/2025")
	if err != nil {
		t.Fatalf("ParseDayFirst failed: %v", err)
	}
	if got := models.FormatDate(date); got != "2025-01-31" {
		t.Errorf("date = %s, want 2025-01-31", got)
	}

	if _, err := ParseDayFirst("2025-01-31"); err == nil {
		t.Error("expected error for a non day-first date")
	}
}

func TestBuildURL(t *testing.T) {
	start := models.NewDate(2024, time.January, 1)
	u := BuildURL("https://api.bcb.gov.br/dados/serie", 1, start)

	if !strings.Contains(u, "bcdata.sgs.1/dados") {
		t.Errorf("URL missing series segment: %s", u)
	}
	if !strings.Contains(u, "dataInicial=01/01/2024") {
		t.Errorf("URL missing day-first start: %s", u)
	}
	if !strings.Contains(u, "dataFinal=31/12/2099") {
		t.Errorf("URL missing open-ended final date: %s", u)
	}
}

func TestParseSeries(t *testing.T) {
	payload := `[
		{"data": "30/12/2024", "valor": "6.1", "extra": "ignored"},
		{"data": "02/01/2025", "valor": "6.2"},
		{"data": "03/01/2025", "valor": "6.1523"}
	]`
	start := models.NewDate(2025, time.January, 1)

	rows, err := ParseSeries([]byte(payload), start)
	if err != nil {
		t.Fatalf("ParseSeries failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows after the start filter, got %d", len(rows))
	}
	if got := models.FormatDate(rows[0].Date); got != "2025-01-02" {
		t.Errorf("unexpected first date: %s", got)
	}
	if rows[1].UsdBrl != 6.1523 {
		t.Errorf("unexpected value: %v", rows[1].UsdBrl)
	}
}

func TestParseSeriesRejectsBadValue(t *testing.T) {
	payload := `[{"data": "02/01/2025", "valor": "n/a"}]`
	if _, err := ParseSeries([]byte(payload), models.NewDate(2025, time.January, 1)); err == nil {
		t.Fatal("expected error for a non-numeric value")
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "bcdata.sgs.1") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`[{"data": "02/01/2025", "valor": "6.2"}]`))
	}))
	defer srv.Close()

	cfg := &config.Config{StartDate: "2025-01-01"}
	cfg.Source.BacenPtax = config.PtaxSourceConfig{BaseURL: srv.URL, SerieUsdBrl: 1}

	r := NewReader(cfg, reader.NewClient(5*time.Second, "test/1.0"))
	rows, err := r.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(rows) != 1 || rows[0].UsdBrl != 6.2 {
		t.Fatalf("unexpected rows: %v", rows)
	}
}
