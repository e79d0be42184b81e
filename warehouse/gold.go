package warehouse

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"marketflow/logger"
	"marketflow/models"
)

// Dimension tables are rebuilt by full replace on every gold run; fact tables
// use the same keyed delete-then-insert as silver so re-running a day's batch
// is idempotent.

func (c *Client) ReplaceDimCurrency(ctx context.Context, rows []models.DimCurrency) error {
	return c.replaceAll(ctx, "gold.dim_currency", len(rows), func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.DimCurrency{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
}

func (c *Client) ReplaceDimIndex(ctx context.Context, rows []models.DimIndex) error {
	return c.replaceAll(ctx, "gold.dim_index", len(rows), func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.DimIndex{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
}

func (c *Client) UpsertFactFx(ctx context.Context, rows []models.FactFxDaily) error {
	return c.replaceByKey(ctx, "gold.fact_fx_daily", len(rows), func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Where("date = ? AND currency_pair = ?", row.Date, row.CurrencyPair).
				Delete(&models.FactFxDaily{}).Error; err != nil {
				return err
			}
		}
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
}

func (c *Client) UpsertFactCrypto(ctx context.Context, rows []models.FactCryptoDaily) error {
	return c.replaceByKey(ctx, "gold.fact_crypto_daily", len(rows), func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Where("date = ? AND asset_symbol = ?", row.Date, row.AssetSymbol).
				Delete(&models.FactCryptoDaily{}).Error; err != nil {
				return err
			}
		}
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
}

func (c *Client) UpsertFactIndex(ctx context.Context, rows []models.FactIndexDaily) error {
	return c.replaceByKey(ctx, "gold.fact_index_daily", len(rows), func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Where("date = ? AND index_code = ?", row.Date, row.IndexCode).
				Delete(&models.FactIndexDaily{}).Error; err != nil {
				return err
			}
		}
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
}

func (c *Client) replaceAll(ctx context.Context, table string, count int, write func(tx *gorm.DB) error) error {
	if err := c.db.WithContext(ctx).Transaction(write); err != nil {
		return fmt.Errorf("replace %s: %w", table, err)
	}
	c.log.WithComponent("warehouse").WithFields(logger.Fields{
		"table": table,
		"rows":  count,
	}).Info("table replaced")
	return nil
}
