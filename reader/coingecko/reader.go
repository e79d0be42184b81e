// Package coingecko fetches the BTC/USD daily series from the market-chart
// endpoint. The endpoint takes a rolling window in days rather than a date
// range, and demo-tier credentials cap that window, so the reader may narrow
// the effective start date instead of failing.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"marketflow/config"
	"marketflow/logger"
	"marketflow/models"
	"marketflow/reader"
)

// demoMaxWindowDays is the documented lookback limit for demo-tier keys.
const demoMaxWindowDays = 365

type Reader struct {
	cfg    *config.Config
	client *reader.Client
	log    *logger.Log

	// now is split out so the rolling-window arithmetic is testable.
	now func() time.Time
}

func NewReader(cfg *config.Config, client *reader.Client) *Reader {
	return &Reader{
		cfg:    cfg,
		client: client,
		log:    logger.GetLogger(),
		now:    time.Now,
	}
}

// EffectiveWindow computes the days query parameter and the start date the
// fetched series must be filtered against. A demo credential with days "max"
// gets a concrete window of today-start days clamped to the tier limit; when
// the clamp narrows the window the effective start moves forward to
// today-window+1 rather than failing the fetch.
func EffectiveWindow(start, today time.Time, cred config.Credential, daysCfg string) (string, time.Time) {
	if daysCfg == "" {
		daysCfg = "max"
	}

	start = models.Day(start)
	today = models.Day(today)

	diffDays := int(today.Sub(start).Hours() / 24)
	if diffDays < 0 {
		diffDays = 0
	}

	daysParam := daysCfg
	if strings.EqualFold(daysCfg, "max") && cred.Kind == config.CredentialDemo {
		window := diffDays + 1
		if window > demoMaxWindowDays {
			window = demoMaxWindowDays
		}
		if window <= 0 {
			window = 1
		}
		daysParam = strconv.Itoa(window)
	}

	effectiveStart := start
	if window, err := strconv.Atoi(daysParam); err == nil && window > 0 {
		limit := today.AddDate(0, 0, -(window - 1))
		if limit.After(effectiveStart) {
			effectiveStart = limit
		}
	}

	return daysParam, effectiveStart
}

// Fetch retrieves the market chart, averages intra-day points per calendar
// date, and filters to the effective start date.
func (r *Reader) Fetch(ctx context.Context) ([]models.CryptoPrice, error) {
	log := r.log.WithComponent("coingecko_reader")

	src := r.cfg.Source.Coingecko
	cred := src.Credential

	start, err := r.cfg.Start()
	if err != nil {
		return nil, err
	}
	today := models.Day(r.now())

	daysParam, effectiveStart := EffectiveWindow(start, today, cred, src.Days)
	if effectiveStart.After(start) {
		log.WithFields(logger.Fields{
			"tier":            cred.Kind.String(),
			"days":            daysParam,
			"effective_start": models.FormatDate(effectiveStart),
		}).Warn("credential tier limits the fetch window, narrowing start date")
	}

	u := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=%s&days=%s",
		src.BaseURL, src.CoinID, src.VsCurrency, daysParam)

	headers := map[string]string{}
	switch {
	case cred.Kind == config.CredentialNone:
	case cred.QueryParam != "":
		u = fmt.Sprintf("%s&%s=%s", u, cred.QueryParam, cred.Key)
	case cred.Header != "":
		headers[cred.Header] = cred.Key
	}

	logURL := u
	if cred.Key != "" {
		logURL = strings.ReplaceAll(u, cred.Key, "***")
	}
	log.WithFields(logger.Fields{
		"url":  logURL,
		"tier": cred.Kind.String(),
		"days": daysParam,
	}).Info("fetching market chart")

	body, err := r.client.Get(ctx, u, headers)
	if err != nil {
		r.diagnose(err)
		return nil, fmt.Errorf("coingecko: %w", err)
	}

	rows, err := ParseMarketChart(body, effectiveStart)
	if err != nil {
		return nil, fmt.Errorf("coingecko: %w", err)
	}

	log.WithFields(logger.Fields{"rows": len(rows)}).Info("market chart fetch complete")
	return rows, nil
}

// diagnose logs actionable detail for credentialed-request failures.
func (r *Reader) diagnose(err error) {
	statusErr, ok := err.(*reader.StatusError)
	if !ok {
		return
	}

	log := r.log.WithComponent("coingecko_reader").WithFields(logger.Fields{
		"status": statusErr.StatusCode,
		"body":   statusErr.BodyPreview(200),
	})

	switch statusErr.StatusCode {
	case 401:
		log.Error("coingecko returned 401 Unauthorized; check that the key matches its tier (demo -> x-cg-demo-api-key, pro -> x-cg-pro-api-key)")
	case 403:
		log.Error("coingecko returned 403 Forbidden")
	case 400:
		log.Error("coingecko returned 400 Bad Request; a free-tier key needs api_key_header: x-cg-demo-api-key or COINGECKO_API_KEY_HEADER")
	}
}

type marketChart struct {
	Prices [][]float64 `json:"prices"`
}

// ParseMarketChart decodes the [ms-epoch, price] pairs, collapses them to one
// averaged observation per UTC calendar date, and drops dates before start.
func ParseMarketChart(body []byte, start time.Time) ([]models.CryptoPrice, error) {
	var chart marketChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("decode market chart: %w", err)
	}

	sums := make(map[time.Time]float64)
	counts := make(map[time.Time]int)
	for _, p := range chart.Prices {
		if len(p) < 2 {
			continue
		}
		date := DateFromMsEpoch(int64(p[0]))
		if date.Before(start) {
			continue
		}
		sums[date] += p[1]
		counts[date]++
	}

	rows := make([]models.CryptoPrice, 0, len(sums))
	for date, sum := range sums {
		rows = append(rows, models.CryptoPrice{Date: date, BtcUsd: sum / float64(counts[date])})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

// DateFromMsEpoch converts a milliseconds-since-epoch timestamp to a UTC
// calendar date.
func DateFromMsEpoch(ms int64) time.Time {
	return models.Day(time.UnixMilli(ms))
}
