package warehouse

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"marketflow/logger"
	"marketflow/models"
)

const insertBatchSize = 500

// Bronze tables are append-only: every run adds rows under its own ingestion
// tag, corrections included. Nothing here updates or deletes.

func (c *Client) AppendEcbFx(ctx context.Context, rows []models.EcbFxRate) error {
	return c.appendRows(ctx, "bronze.ecb_fx_raw", len(rows), func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
}

func (c *Client) AppendPtax(ctx context.Context, rows []models.PtaxRate) error {
	return c.appendRows(ctx, "bronze.ptax_usdbrl_raw", len(rows), func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
}

func (c *Client) AppendCryptoPrices(ctx context.Context, rows []models.CryptoPrice) error {
	return c.appendRows(ctx, "bronze.coingecko_btcusd_raw", len(rows), func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
}

func (c *Client) AppendIndexRaw(ctx context.Context, rows []models.IndexRaw) error {
	return c.appendRows(ctx, "bronze.index_ohlc_raw", len(rows), func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
}

func (c *Client) appendRows(ctx context.Context, table string, count int, insert func(tx *gorm.DB) error) error {
	if count == 0 {
		return nil
	}
	if err := c.db.WithContext(ctx).Transaction(insert); err != nil {
		return fmt.Errorf("append %s: %w", table, err)
	}
	c.log.WithComponent("warehouse").WithFields(logger.Fields{
		"table": table,
		"rows":  count,
	}).Info("bronze rows appended")
	return nil
}

func (c *Client) LoadEcbFx(ctx context.Context) ([]models.EcbFxRate, error) {
	var rows []models.EcbFxRate
	if err := c.db.WithContext(ctx).Order("date, code, ingestion_tag").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load bronze.ecb_fx_raw: %w", err)
	}
	return rows, nil
}

func (c *Client) LoadPtax(ctx context.Context) ([]models.PtaxRate, error) {
	var rows []models.PtaxRate
	if err := c.db.WithContext(ctx).Order("date, ingestion_tag").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load bronze.ptax_usdbrl_raw: %w", err)
	}
	return rows, nil
}

func (c *Client) LoadCryptoPrices(ctx context.Context) ([]models.CryptoPrice, error) {
	var rows []models.CryptoPrice
	if err := c.db.WithContext(ctx).Order("date, ingestion_tag").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load bronze.coingecko_btcusd_raw: %w", err)
	}
	return rows, nil
}

// LoadIndexRaw orders by source last so that rows sharing one ingestion tag
// resolve deterministically downstream: within a run, the alphabetically
// later provider wins the last-write-wins merge.
func (c *Client) LoadIndexRaw(ctx context.Context) ([]models.IndexRaw, error) {
	var rows []models.IndexRaw
	if err := c.db.WithContext(ctx).Order("code, date, ingestion_tag, source").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load bronze.index_ohlc_raw: %w", err)
	}
	return rows, nil
}
