package stooq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketflow/config"
	"marketflow/models"
	"marketflow/reader"
)

const commaCSV = "Date,Open,High,Low,Close,Volume\n" +
	"2025-02-03,4990,5030,4980,5000,123456\n" +
	"2025-02-04,5001,5040,4995,5020,234567\n"

func TestParseCSV(t *testing.T) {
	rows, err := ParseCSV([]byte(commaCSV), "SPX", "S&P 500", models.NewDate(2025, time.January, 1))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	r := rows[0]
	if r.Code != "SPX" || r.Name != "S&P 500" || r.Source != "stooq" {
		t.Errorf("unexpected identity fields: %+v", r)
	}
	if r.Open != 4990 || r.Close != 5000 || r.Volume != 123456 {
		t.Errorf("unexpected bar values: %+v", r)
	}
}

func TestParseCSVBomHeader(t *testing.T) {
	rows, err := ParseCSV([]byte("\ufeff"+commaCSV), "SPX", "S&P 500", models.NewDate(2025, time.January, 1))
	if err != nil {
		t.Fatalf("ParseCSV failed on BOM header: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}

func TestParseCSVSemicolonVariant(t *testing.T) {
	body := "Date;Open;High;Low;Close;Volume\n" +
		"2025-02-03;4990;5030;4980;5000;123456\n"
	rows, err := ParseCSV([]byte(body), "DAX", "DAX 40", models.NewDate(2025, time.January, 1))
	if err != nil {
		t.Fatalf("ParseCSV failed on ';' variant: %v", err)
	}
	if len(rows) != 1 || rows[0].Close != 5000 {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestParseCSVRejectsTinyPayload(t *testing.T) {
	if _, err := ParseCSV([]byte("No data"), "SPX", "S&P 500", models.NewDate(2025, time.January, 1)); err == nil {
		t.Fatal("expected error for a truncated payload")
	}
}

func TestParseCSVFiltersStart(t *testing.T) {
	rows, err := ParseCSV([]byte(commaCSV), "SPX", "S&P 500", models.NewDate(2025, time.February, 4))
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row after the start filter, got %d", len(rows))
	}
}

func TestFetchBrokenSymbolDoesNotSinkSiblings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good":
			w.Write([]byte(commaCSV))
		case "/broken":
			w.Write([]byte("<html>please use the website instead</html>"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := &config.Config{StartDate: "2025-01-01"}
	cfg.Source.Stooq = config.StooqSourceConfig{
		Symbols: []config.IndexSymbol{
			{Code: "BAD", Name: "Broken", URL: srv.URL + "/broken"},
			{Code: "SPX", Name: "S&P 500", URL: srv.URL + "/good"},
		},
	}

	r := NewReader(cfg, reader.NewClient(5*time.Second, "test/1.0"))
	rows, err := r.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows from the healthy symbol, got %d", len(rows))
	}
	for _, row := range rows {
		if row.Code != "SPX" {
			t.Errorf("unexpected row from broken symbol: %+v", row)
		}
	}
}

func TestFetchTransportErrorAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := &config.Config{StartDate: "2025-01-01"}
	cfg.Source.Stooq = config.StooqSourceConfig{
		Symbols: []config.IndexSymbol{{Code: "SPX", Name: "S&P 500", URL: srv.URL}},
	}

	r := NewReader(cfg, reader.NewClient(5*time.Second, "test/1.0"))
	if _, err := r.Fetch(context.Background()); err == nil {
		t.Fatal("expected transport error to abort the fetch")
	}
}
