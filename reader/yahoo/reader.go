// Package yahoo fetches index OHLC through Yahoo Finance. The CSV download
// endpoint is unreliable behind consent and bot checks, so the reader warms
// up a browser-like session against the quote page, tries the CSV, and falls
// back to the v8 chart API when the CSV does not come back as CSV.
package yahoo

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"marketflow/config"
	"marketflow/logger"
	"marketflow/models"
	"marketflow/reader"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Reader struct {
	cfg    *config.Config
	client *reader.Client
	log    *logger.Log
	now    func() time.Time
}

func NewReader(cfg *config.Config, client *reader.Client) *Reader {
	return &Reader{
		cfg:    cfg,
		client: client,
		log:    logger.GetLogger(),
		now:    time.Now,
	}
}

// Fetch retrieves every configured index. CSV failures fall through to the
// chart API; chart transport failures abort the run, chart decode failures
// cost only the affected index.
func (r *Reader) Fetch(ctx context.Context) ([]models.IndexRaw, error) {
	log := r.log.WithComponent("yahoo_reader")

	start, err := r.cfg.Start()
	if err != nil {
		return nil, err
	}

	var rows []models.IndexRaw
	for _, idx := range r.cfg.Source.Yahoo.Indices {
		log.WithFields(logger.Fields{"code": idx.Code, "ticker": idx.Ticker}).Info("fetching yahoo index")

		idxRows, err := r.fetchIndex(ctx, idx, start)
		if err != nil {
			return nil, fmt.Errorf("yahoo %s: %w", idx.Code, err)
		}
		if len(idxRows) == 0 {
			log.WithFields(logger.Fields{"code": idx.Code}).Warn("yahoo returned no rows for index")
			continue
		}
		rows = append(rows, idxRows...)
	}

	log.WithFields(logger.Fields{"rows": len(rows)}).Info("yahoo fetch complete")
	return rows, nil
}

func (r *Reader) fetchIndex(ctx context.Context, idx config.YahooIndex, start time.Time) ([]models.IndexRaw, error) {
	log := r.log.WithComponent("yahoo_reader").WithFields(logger.Fields{"code": idx.Code})

	pageURL := fmt.Sprintf("https://finance.yahoo.com/quote/%s/history", idx.Ticker)
	headers := map[string]string{"User-Agent": browserUA, "Referer": pageURL}

	// Session warm-up; failure here is not fatal, the chart API usually
	// works without it.
	if _, err := r.client.Get(ctx, pageURL, headers); err != nil {
		log.WithError(err).Warn("history page request failed, continuing with the APIs")
	}

	csvURL := downloadURL(idx.Ticker, start, models.Day(r.now()))
	body, err := r.client.Get(ctx, csvURL, headers)
	if err == nil && bytes.HasPrefix(body, []byte("Date,")) {
		rows, perr := ParseCSV(body, idx.Code, idx.Name, start)
		if perr == nil {
			return rows, nil
		}
		log.WithError(perr).WithFields(logger.Fields{"bytes": len(body)}).Warn("yahoo CSV unparseable, falling back to chart API")
	} else if err != nil {
		log.WithError(err).Debug("yahoo CSV download failed, falling back to chart API")
	}

	chartURL := fmt.Sprintf(
		"https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=1d&range=max&includePrePost=false",
		url.PathEscape(idx.Ticker))
	body, err = r.client.Get(ctx, chartURL, headers)
	if err != nil {
		return nil, err
	}

	rows, err := ParseChart(body, idx.Code, idx.Name, start)
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{
			"bytes":   len(body),
			"preview": preview(body, 120),
		}).Warn("unusable yahoo chart payload, index contributes no rows")
		return nil, nil
	}
	return rows, nil
}

func downloadURL(ticker string, start, end time.Time) string {
	return fmt.Sprintf(
		"https://query1.finance.yahoo.com/v7/finance/download/%s?period1=%d&period2=%d&interval=1d&events=history&includeAdjustedClose=true",
		url.PathEscape(ticker), start.Unix(), end.Unix())
}

// ParseCSV decodes the download-endpoint CSV (Date,Open,High,Low,Close,
// Adj Close,Volume). "null" placeholder values zero out the field.
func ParseCSV(body []byte, code, name string, start time.Time) ([]models.IndexRaw, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("csv has no data rows")
	}

	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	dateCol, ok := cols["date"]
	if !ok {
		return nil, fmt.Errorf("csv missing 'Date' column")
	}

	rows := make([]models.IndexRaw, 0, len(records)-1)
	for _, rec := range records[1:] {
		if dateCol >= len(rec) {
			continue
		}
		date, err := models.ParseDate(rec[dateCol])
		if err != nil {
			continue
		}
		if date.Before(start) {
			continue
		}
		rows = append(rows, models.IndexRaw{
			Date:   date,
			Code:   code,
			Name:   name,
			Open:   csvField(rec, cols, "open"),
			High:   csvField(rec, cols, "high"),
			Low:    csvField(rec, cols, "low"),
			Close:  csvField(rec, cols, "close"),
			Volume: csvField(rec, cols, "volume"),
			Source: "yahoo",
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
				Adjclose []struct {
					Adjclose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// ParseChart decodes the v8 chart JSON. Timestamps are epoch seconds; the
// adjusted close series is preferred over the raw close when present. Bars
// with a null close are skipped.
func ParseChart(body []byte, code, name string, start time.Time) ([]models.IndexRaw, error) {
	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("decode chart: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("chart api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart returned no result")
	}

	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart returned no bars")
	}
	quote := result.Indicators.Quote[0]

	closes := quote.Close
	if len(result.Indicators.Adjclose) > 0 && len(result.Indicators.Adjclose[0].Adjclose) > 0 {
		closes = result.Indicators.Adjclose[0].Adjclose
	}

	rows := make([]models.IndexRaw, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		date := models.Day(time.Unix(ts, 0))
		if date.Before(start) {
			continue
		}
		closePrice := at(closes, i)
		if closePrice == nil {
			continue
		}
		rows = append(rows, models.IndexRaw{
			Date:   date,
			Code:   code,
			Name:   name,
			Open:   deref(at(quote.Open, i)),
			High:   deref(at(quote.High, i)),
			Low:    deref(at(quote.Low, i)),
			Close:  *closePrice,
			Volume: deref(at(quote.Volume, i)),
			Source: "yahoo",
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

func at(vals []*float64, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func csvField(rec []string, cols map[string]int, name string) float64 {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
	if err != nil {
		return 0
	}
	return v
}

func preview(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
