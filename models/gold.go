package models

import (
	"time"
)

// DimCurrency lists every currency code that appears on either side of a
// silver pair. Rebuilt by full replace on every gold run.
type DimCurrency struct {
	CurrencyCode string `gorm:"column:currency_code;type:varchar(8)" json:"currency_code"`
}

func (DimCurrency) TableName() string { return "gold.dim_currency" }

// DimIndex lists the distinct indices present in silver. Full replace.
type DimIndex struct {
	IndexCode string `gorm:"column:index_code;type:varchar(16)" json:"index_code"`
	IndexName string `gorm:"column:index_name;type:varchar(64)" json:"index_name"`
}

func (DimIndex) TableName() string { return "gold.dim_index" }

// FactFxDaily is upserted on (date, currency_pair).
type FactFxDaily struct {
	Date         time.Time `gorm:"column:date;type:date" json:"date"`
	CurrencyPair string    `gorm:"column:currency_pair;type:varchar(16)" json:"currency_pair"`
	RateClose    float64   `gorm:"column:rate_close" json:"rate_close"`
}

func (FactFxDaily) TableName() string { return "gold.fact_fx_daily" }

// FactCryptoDaily is upserted on (date, asset_symbol).
type FactCryptoDaily struct {
	Date        time.Time `gorm:"column:date;type:date" json:"date"`
	AssetSymbol string    `gorm:"column:asset_symbol;type:varchar(16)" json:"asset_symbol"`
	PriceClose  float64   `gorm:"column:price_close" json:"price_close"`
}

func (FactCryptoDaily) TableName() string { return "gold.fact_crypto_daily" }

// FactIndexDaily is upserted on (date, index_code).
type FactIndexDaily struct {
	Date       time.Time `gorm:"column:date;type:date" json:"date"`
	IndexCode  string    `gorm:"column:index_code;type:varchar(16)" json:"index_code"`
	Open       float64   `gorm:"column:open" json:"open"`
	High       float64   `gorm:"column:high" json:"high"`
	Low        float64   `gorm:"column:low" json:"low"`
	ClosePrice float64   `gorm:"column:close_price" json:"close_price"`
	Volume     float64   `gorm:"column:volume" json:"volume"`
}

func (FactIndexDaily) TableName() string { return "gold.fact_index_daily" }
