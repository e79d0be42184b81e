// Package stooq fetches daily index OHLC as CSV. The endpoint drifts: headers
// sometimes carry a byte-order mark, some mirrors emit semicolon-delimited
// files, and empty or truncated bodies come back with a 200. All of that
// degrades to a zero-row contribution for the symbol, never a failed run.
package stooq

import (
	"bytes"
	"context"
	"encoding/csv"
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

// minPayloadBytes guards against truncated responses; a real CSV with a
// header row is always larger.
const minPayloadBytes = 32

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

// Fetch retrieves every configured symbol. Transport errors abort the run;
// malformed payloads cost only the affected symbol.
func (r *Reader) Fetch(ctx context.Context) ([]models.IndexRaw, error) {
	log := r.log.WithComponent("stooq_reader")

	start, err := r.cfg.Start()
	if err != nil {
		return nil, err
	}

	var rows []models.IndexRaw
	for _, sym := range r.cfg.Source.Stooq.Symbols {
		log.WithFields(logger.Fields{"code": sym.Code, "url": sym.URL}).Info("fetching stooq CSV")

		body, err := r.client.Get(ctx, sym.URL, nil)
		if err != nil {
			return nil, fmt.Errorf("stooq %s: %w", sym.Code, err)
		}

		symRows, err := ParseCSV(body, sym.Code, sym.Name, start)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{
				"code":    sym.Code,
				"bytes":   len(body),
				"preview": preview(body, 120),
			}).Warn("unusable stooq payload, symbol contributes no rows")
			continue
		}
		if len(symRows) == 0 {
			log.WithFields(logger.Fields{"code": sym.Code, "bytes": len(body)}).Warn("stooq returned no rows for symbol")
			continue
		}
		rows = append(rows, symRows...)
	}

	log.WithFields(logger.Fields{"rows": len(rows)}).Info("stooq fetch complete")
	return rows, nil
}

// ParseCSV decodes one symbol's CSV. It tolerates BOM-prefixed headers and
// the semicolon-delimited variant, and drops rows whose date fails to parse
// or precedes start.
func ParseCSV(body []byte, code, name string, start time.Time) ([]models.IndexRaw, error) {
	if len(body) < minPayloadBytes {
		return nil, fmt.Errorf("payload too small (%d bytes)", len(body))
	}

	records, err := readRecords(body, ',')
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	// A single-column header containing ';' means the delimiter variant.
	if len(records) > 0 && len(records[0]) == 1 && strings.Contains(records[0][0], ";") {
		records, err = readRecords(body, ';')
		if err != nil {
			return nil, fmt.Errorf("parse ';' csv: %w", err)
		}
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("csv has no data rows")
	}

	cols := headerIndex(records[0])
	dateCol, ok := cols["date"]
	if !ok {
		return nil, fmt.Errorf("csv missing 'date' column (headers: %v)", records[0])
	}

	rows := make([]models.IndexRaw, 0, len(records)-1)
	for _, rec := range records[1:] {
		if dateCol >= len(rec) {
			continue
		}
		date, err := models.ParseDate(strings.TrimSpace(rec[dateCol]))
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
			Open:   field(rec, cols, "open"),
			High:   field(rec, cols, "high"),
			Low:    field(rec, cols, "low"),
			Close:  field(rec, cols, "close"),
			Volume: field(rec, cols, "volume"),
			Source: "stooq",
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

func readRecords(body []byte, delimiter rune) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// headerIndex maps normalized header names to column positions, stripping any
// byte-order mark.
func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func field(rec []string, cols map[string]int, name string) float64 {
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
