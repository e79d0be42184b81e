// Package ecb fetches daily reference FX rates from the ECB statistical data
// API (SDMX-JSON). Every leg is quoted versus EUR; the EUR/EUR leg is never
// served by the API and is synthesized locally.
package ecb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
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

// BuildURL assembles the SDMX data URL for one series key.
func BuildURL(baseURL, seriesKey, format, startPeriod string) string {
	return fmt.Sprintf("%s/%s?format=%s&startPeriod=%s",
		baseURL, url.PathEscape(seriesKey), format, startPeriod)
}

// Fetch retrieves one series per configured currency and returns the merged
// rows plus a synthetic EUR=1.0 leg for every distinct date seen. Transport
// errors abort the fetch; malformed series degrade to zero rows for that
// currency.
func (r *Reader) Fetch(ctx context.Context) ([]models.EcbFxRate, error) {
	log := r.log.WithComponent("ecb_reader")

	src := r.cfg.Source.Ecb
	format := src.Format
	if format == "" {
		format = "jsondata"
	}

	var rows []models.EcbFxRate
	dates := make(map[time.Time]struct{})

	for _, sym := range src.Symbols {
		if sym.Code == "EUR" {
			// Synthesized below, the API has no EUR/EUR series.
			continue
		}

		u := BuildURL(src.BaseURL, sym.Key, format, r.cfg.StartDate)
		log.WithFields(logger.Fields{"code": sym.Code, "url": u}).Info("fetching ECB series")

		body, err := r.client.Get(ctx, u, nil)
		if err != nil {
			return nil, fmt.Errorf("ecb %s: %w", sym.Code, err)
		}

		obs, err := ParseSeries(body, sym.Code)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{
				"code":    sym.Code,
				"bytes":   len(body),
				"preview": preview(body, 120),
			}).Warn("unparseable ECB payload, series contributes no rows")
			continue
		}

		for _, o := range obs {
			rows = append(rows, o)
			dates[o.Date] = struct{}{}
		}
	}

	// EUR vs itself is always 1. The pivot downstream relies on the column
	// being present for every date.
	eurDates := make([]time.Time, 0, len(dates))
	for d := range dates {
		eurDates = append(eurDates, d)
	}
	sort.Slice(eurDates, func(i, j int) bool { return eurDates[i].Before(eurDates[j]) })
	for _, d := range eurDates {
		rows = append(rows, models.EcbFxRate{Date: d, Code: "EUR", RateVsEur: 1.0})
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].Code < rows[j].Code
	})

	log.WithFields(logger.Fields{"rows": len(rows)}).Info("ECB fetch complete")
	return rows, nil
}

type sdmxEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type sdmxData struct {
	DataSets []struct {
		Series map[string]sdmxSeries `json:"series"`
	} `json:"dataSets"`
	Structure sdmxStructure `json:"structure"`
}

type sdmxSeries struct {
	Observations map[string][]json.Number `json:"observations"`
}

type sdmxStructure struct {
	Dimensions struct {
		Observation []struct {
			Values []struct {
				ID string `json:"id"`
			} `json:"values"`
		} `json:"observation"`
	} `json:"dimensions"`
}

// ParseSeries decodes one SDMX-JSON response into dated rate rows. The format
// is ambiguous about observation keys: some payloads key observations by the
// period ("2025-01-02"), others by an integer index that must be mapped
// through the time dimension in structure.dimensions.observation.
func ParseSeries(body []byte, code string) ([]models.EcbFxRate, error) {
	// Some deployments wrap the document in a top-level "data" object.
	var env sdmxEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode sdmx envelope: %w", err)
	}
	doc := body
	if len(env.Data) > 0 {
		doc = env.Data
	}

	var data sdmxData
	if err := json.Unmarshal(doc, &data); err != nil {
		return nil, fmt.Errorf("decode sdmx data: %w", err)
	}
	if len(data.DataSets) == 0 {
		return nil, fmt.Errorf("sdmx payload has no dataSets")
	}

	series, ok := data.DataSets[0].Series["0:0:0:0:0"]
	if !ok {
		return nil, fmt.Errorf("unexpected dataSets.series structure")
	}
	if len(series.Observations) == 0 {
		return nil, nil
	}

	indexed := allKeysNumeric(series.Observations)

	var times []string
	if indexed {
		obsDims := data.Structure.Dimensions.Observation
		if len(obsDims) == 0 {
			return nil, fmt.Errorf("indexed observations without a time dimension to map dates")
		}
		times = make([]string, len(obsDims[0].Values))
		for i, v := range obsDims[0].Values {
			times[i] = v.ID
		}
	}

	rows := make([]models.EcbFxRate, 0, len(series.Observations))
	for key, values := range series.Observations {
		if len(values) == 0 {
			continue
		}
		rate, err := values[0].Float64()
		if err != nil {
			return nil, fmt.Errorf("observation %q: non-numeric rate: %w", key, err)
		}

		period := key
		if indexed {
			idx := 0
			if _, err := fmt.Sscanf(key, "%d", &idx); err != nil {
				return nil, fmt.Errorf("observation key %q: %w", key, err)
			}
			if idx < 0 || idx >= len(times) {
				return nil, fmt.Errorf("observation index %d outside time dimension (%d values)", idx, len(times))
			}
			period = times[idx]
		}

		date, err := models.ParseDate(period)
		if err != nil {
			return nil, fmt.Errorf("observation period %q: %w", period, err)
		}
		rows = append(rows, models.EcbFxRate{Date: date, Code: code, RateVsEur: rate})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

func allKeysNumeric(obs map[string][]json.Number) bool {
	for k := range obs {
		if k == "" {
			return false
		}
		for _, c := range k {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

func preview(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
