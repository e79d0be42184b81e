// Package bacen fetches the PTAX USD/BRL closing rate from the Brazilian
// central bank's SGS time-series endpoint. Dates arrive day-first
// (dd/mm/yyyy) and values arrive as decimal strings.
package bacen

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"marketflow/config"
	"marketflow/logger"
	"marketflow/models"
	"marketflow/reader"
)

const (
	// The endpoint requires a closed range; the far-future end date keeps the
	// query open-ended in practice.
	rangeEnd   = "31/12/2099"
	dateLayout = "02/01/2006"
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

// BuildURL assembles the SGS series URL for the configured window floor.
func BuildURL(baseURL string, serie int, start time.Time) string {
	return fmt.Sprintf("%s/bcdata.sgs.%d/dados?dataInicial=%s&dataFinal=%s&formato=json",
		baseURL, serie, start.Format(dateLayout), rangeEnd)
}

type sgsObservation struct {
	Data  string `json:"data"`
	Valor string `json:"valor"`
}

// Fetch retrieves the USD/BRL series and filters it to dates at or after the
// configured start date.
func (r *Reader) Fetch(ctx context.Context) ([]models.PtaxRate, error) {
	log := r.log.WithComponent("bacen_reader")

	start, err := r.cfg.Start()
	if err != nil {
		return nil, err
	}

	u := BuildURL(r.cfg.Source.BacenPtax.BaseURL, r.cfg.Source.BacenPtax.SerieUsdBrl, start)
	log.WithFields(logger.Fields{"url": u}).Info("fetching PTAX USD/BRL")

	body, err := r.client.Get(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("ptax: %w", err)
	}

	rows, err := ParseSeries(body, start)
	if err != nil {
		return nil, fmt.Errorf("ptax: %w", err)
	}

	log.WithFields(logger.Fields{"rows": len(rows)}).Info("PTAX fetch complete")
	return rows, nil
}

// ParseSeries decodes the SGS JSON array, converting day-first dates and
// string-encoded values. Rows before start are dropped.
func ParseSeries(body []byte, start time.Time) ([]models.PtaxRate, error) {
	var obs []sgsObservation
	if err := json.Unmarshal(body, &obs); err != nil {
		return nil, fmt.Errorf("decode sgs payload: %w", err)
	}

	rows := make([]models.PtaxRate, 0, len(obs))
	for _, o := range obs {
		date, err := ParseDayFirst(o.Data)
		if err != nil {
			return nil, fmt.Errorf("observation date %q: %w", o.Data, err)
		}
		value, err := strconv.ParseFloat(o.Valor, 64)
		if err != nil {
			return nil, fmt.Errorf("observation value %q: %w", o.Valor, err)
		}
		if date.Before(start) {
			continue
		}
		rows = append(rows, models.PtaxRate{Date: date, UsdBrl: value})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

// ParseDayFirst parses a dd/mm/yyyy string into a UTC calendar date.
func ParseDayFirst(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return models.Day(t), nil
}
