package warehouse

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"marketflow/logger"
	"marketflow/models"
)

// Silver rows are replaced wholesale per affected key: within one
// transaction, matching keys are deleted and the fresh rows inserted. Re-runs
// therefore overwrite instead of duplicating. Row-at-a-time deletes are
// acceptable at daily batch volumes.

func (c *Client) UpsertFxRates(ctx context.Context, rows []models.FxRate) error {
	return c.replaceByKey(ctx, "silver.fx_rates", len(rows), func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Where("date = ? AND pair = ?", row.Date, row.Pair).
				Delete(&models.FxRate{}).Error; err != nil {
				return err
			}
		}
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
}

func (c *Client) UpsertCryptoRates(ctx context.Context, rows []models.CryptoRate) error {
	return c.replaceByKey(ctx, "silver.crypto_rates", len(rows), func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Where("date = ? AND symbol = ?", row.Date, row.Symbol).
				Delete(&models.CryptoRate{}).Error; err != nil {
				return err
			}
		}
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
}

func (c *Client) UpsertIndexOhlc(ctx context.Context, rows []models.IndexOhlc) error {
	return c.replaceByKey(ctx, "silver.index_ohlc", len(rows), func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Where("date = ? AND index_code = ?", row.Date, row.IndexCode).
				Delete(&models.IndexOhlc{}).Error; err != nil {
				return err
			}
		}
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
}

func (c *Client) replaceByKey(ctx context.Context, table string, count int, write func(tx *gorm.DB) error) error {
	if count == 0 {
		return nil
	}
	if err := c.db.WithContext(ctx).Transaction(write); err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	c.log.WithComponent("warehouse").WithFields(logger.Fields{
		"table": table,
		"rows":  count,
	}).Info("rows upserted")
	return nil
}

func (c *Client) LoadFxRates(ctx context.Context) ([]models.FxRate, error) {
	var rows []models.FxRate
	if err := c.db.WithContext(ctx).Order("pair, date").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load silver.fx_rates: %w", err)
	}
	return rows, nil
}

func (c *Client) LoadCryptoRates(ctx context.Context) ([]models.CryptoRate, error) {
	var rows []models.CryptoRate
	if err := c.db.WithContext(ctx).Order("date, symbol").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load silver.crypto_rates: %w", err)
	}
	return rows, nil
}

func (c *Client) LoadIndexOhlc(ctx context.Context) ([]models.IndexOhlc, error) {
	var rows []models.IndexOhlc
	if err := c.db.WithContext(ctx).Order("index_code, date").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load silver.index_ohlc: %w", err)
	}
	return rows, nil
}
