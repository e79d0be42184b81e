// Package alphavantage fetches daily index series as a fallback fill for
// tickers Stooq does not carry. The API signals rate limiting inside an
// otherwise-200 JSON body via a "Note" field, so that case is detected and
// degraded to a zero-row contribution instead of treated as data.
package alphavantage

import (
	"context"
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

type Reader struct {
	cfg    *config.Config
	client *reader.Client
	log    *logger.Log
}

func NewReader(cfg *config.Config, client *reader.Client) *Reader {
	return &Reader{
		cfg:    cfg,
		client: client,
		log:    logger.GetLogger(),
	}
}

// BuildURL assembles the query URL for one symbol.
func BuildURL(src config.AlphavantageSourceConfig, sym config.AlphaSymbol) string {
	function := src.Function
	if function == "" {
		function = "TIME_SERIES_DAILY_ADJUSTED"
	}
	outputSize := src.OutputSize
	if outputSize == "" {
		outputSize = "full"
	}
	ticker := sym.Symbol
	if ticker == "" {
		ticker = sym.Code
	}

	params := url.Values{}
	params.Set("function", function)
	params.Set("symbol", ticker)
	params.Set("apikey", src.APIKey)
	params.Set("outputsize", outputSize)
	return fmt.Sprintf("%s?%s", src.BaseURL, params.Encode())
}

// Fetch retrieves every configured symbol, skipping the provider entirely
// when no API key is present.
func (r *Reader) Fetch(ctx context.Context) ([]models.IndexRaw, error) {
	log := r.log.WithComponent("alphavantage_reader")

	src := r.cfg.Source.Alphavantage
	if len(src.Symbols) == 0 {
		return nil, nil
	}
	if src.APIKey == "" {
		log.Error("alphavantage.api_key not set (check ALPHAVANTAGE_API_KEY), skipping provider")
		return nil, nil
	}

	start, err := r.cfg.Start()
	if err != nil {
		return nil, err
	}

	var rows []models.IndexRaw
	for _, sym := range src.Symbols {
		u := BuildURL(src, sym)
		log.WithFields(logger.Fields{"code": sym.Code}).Info("fetching alphavantage series")

		body, err := r.client.Get(ctx, u, nil)
		if err != nil {
			return nil, fmt.Errorf("alphavantage %s: %w", sym.Code, err)
		}

		symRows, err := ParseSeries(body, sym.Code, sym.Name, start)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{
				"code":    sym.Code,
				"bytes":   len(body),
				"preview": preview(body, 120),
			}).Warn("unusable alphavantage payload, symbol contributes no rows")
			continue
		}
		rows = append(rows, symRows...)
	}

	log.WithFields(logger.Fields{"rows": len(rows)}).Info("alphavantage fetch complete")
	return rows, nil
}

// ParseSeries decodes one symbol's response. A "Note" field means the request
// budget is exhausted and an "Error Message" field means the query was
// rejected; both yield an error so the caller logs and moves on. The time
// series key varies by function, so it is located by substring.
func ParseSeries(body []byte, code, name string, start time.Time) ([]models.IndexRaw, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if note, ok := payload["Note"]; ok {
		return nil, fmt.Errorf("rate limit reached: %s", rawString(note))
	}
	if msg, ok := payload["Error Message"]; ok {
		return nil, fmt.Errorf("api error: %s", rawString(msg))
	}

	var seriesKey string
	for k := range payload {
		if strings.Contains(k, "Time Series") {
			seriesKey = k
			break
		}
	}
	if seriesKey == "" {
		keys := make([]string, 0, len(payload))
		for k := range payload {
			keys = append(keys, k)
		}
		return nil, fmt.Errorf("no time series in response (keys: %v)", keys)
	}

	var series map[string]map[string]string
	if err := json.Unmarshal(payload[seriesKey], &series); err != nil {
		return nil, fmt.Errorf("decode time series: %w", err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("empty time series")
	}

	rows := make([]models.IndexRaw, 0, len(series))
	for period, bar := range series {
		date, err := models.ParseDate(period)
		if err != nil {
			continue
		}
		if date.Before(start) {
			continue
		}

		closePrice, ok := barField(bar, "4. close")
		if !ok {
			// Adjusted functions report "5. adjusted close" instead.
			closePrice, ok = barField(bar, "5. adjusted close")
		}
		if !ok {
			continue
		}

		open, _ := barField(bar, "1. open")
		high, _ := barField(bar, "2. high")
		low, _ := barField(bar, "3. low")
		volume, ok := barField(bar, "6. volume")
		if !ok {
			volume, _ = barField(bar, "5. volume")
		}

		rows = append(rows, models.IndexRaw{
			Date:   date,
			Code:   code,
			Name:   name,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
			Source: "alphavantage",
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

func barField(bar map[string]string, key string) (float64, bool) {
	raw, ok := bar[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw)
	}
	return s
}

func preview(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
