package models

import (
	"time"
)

// EcbFxRate is one raw ECB observation: the value of one unit of Code in EUR
// terms on a given date. Rows are append-only; corrections arrive as new rows
// under a later ingestion tag.
type EcbFxRate struct {
	Date         time.Time `gorm:"column:date;type:date" json:"date"`
	Code         string    `gorm:"column:code;type:varchar(10)" json:"code"`
	RateVsEur    float64   `gorm:"column:rate_vs_eur" json:"rate_vs_eur"`
	IngestionTag string    `gorm:"column:ingestion_tag;type:varchar(32)" json:"ingestion_tag"`
}

func (EcbFxRate) TableName() string { return "bronze.ecb_fx_raw" }

// PtaxRate is one raw PTAX USD/BRL observation from the Brazilian central bank.
type PtaxRate struct {
	Date         time.Time `gorm:"column:date;type:date" json:"date"`
	UsdBrl       float64   `gorm:"column:usdbrl" json:"usdbrl"`
	IngestionTag string    `gorm:"column:ingestion_tag;type:varchar(32)" json:"ingestion_tag"`
}

func (PtaxRate) TableName() string { return "bronze.ptax_usdbrl_raw" }

// CryptoPrice is one raw BTC/USD daily price from the crypto market-chart
// endpoint, already averaged per calendar date.
type CryptoPrice struct {
	Date         time.Time `gorm:"column:date;type:date" json:"date"`
	BtcUsd       float64   `gorm:"column:btc_usd" json:"btc_usd"`
	IngestionTag string    `gorm:"column:ingestion_tag;type:varchar(32)" json:"ingestion_tag"`
}

func (CryptoPrice) TableName() string { return "bronze.coingecko_btcusd_raw" }

// IndexRaw is one raw OHLC row for an equity index. All index providers
// (Stooq, Alpha Vantage, Yahoo) feed this one table; Source records which
// provider contributed the row.
type IndexRaw struct {
	Date         time.Time `gorm:"column:date;type:date" json:"date"`
	Code         string    `gorm:"column:code;type:varchar(16)" json:"code"`
	Name         string    `gorm:"column:name;type:varchar(64)" json:"name"`
	Open         float64   `gorm:"column:open" json:"open"`
	High         float64   `gorm:"column:high" json:"high"`
	Low          float64   `gorm:"column:low" json:"low"`
	Close        float64   `gorm:"column:close" json:"close"`
	Volume       float64   `gorm:"column:volume" json:"volume"`
	Source       string    `gorm:"column:source;type:varchar(16)" json:"source"`
	IngestionTag string    `gorm:"column:ingestion_tag;type:varchar(32)" json:"ingestion_tag"`
}

func (IndexRaw) TableName() string { return "bronze.index_ohlc_raw" }
