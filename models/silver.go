package models

import (
	"time"
)

// FxRate is a canonical derived currency pair rate. Pair is always quoted
// against BRL ("USD/BRL", "EUR/BRL", ...). Rates are never fetched directly;
// they come out of the triangulation of ECB EUR legs with the PTAX USD/BRL
// leg and are persisted at full double precision.
type FxRate struct {
	Date time.Time `gorm:"column:date;type:date" json:"date"`
	Pair string    `gorm:"column:pair;type:varchar(16)" json:"pair"`
	Rate float64   `gorm:"column:rate" json:"rate"`
}

func (FxRate) TableName() string { return "silver.fx_rates" }

// CryptoRate is a canonical crypto price row, one of "BTC/USD" or "BTC/BRL"
// per date. BTC/BRL is derived as BTC/USD * USD/BRL.
type CryptoRate struct {
	Date   time.Time `gorm:"column:date;type:date" json:"date"`
	Symbol string    `gorm:"column:symbol;type:varchar(16)" json:"symbol"`
	Price  float64   `gorm:"column:price" json:"price"`
}

func (CryptoRate) TableName() string { return "silver.crypto_rates" }

// IndexOhlc is the canonical per-index daily OHLC row, one per
// (index_code, date).
type IndexOhlc struct {
	Date      time.Time `gorm:"column:date;type:date" json:"date"`
	IndexCode string    `gorm:"column:index_code;type:varchar(16)" json:"index_code"`
	IndexName string    `gorm:"column:index_name;type:varchar(64)" json:"index_name"`
	Open      float64   `gorm:"column:open" json:"open"`
	High      float64   `gorm:"column:high" json:"high"`
	Low       float64   `gorm:"column:low" json:"low"`
	Close     float64   `gorm:"column:close" json:"close"`
	Volume    float64   `gorm:"column:volume" json:"volume"`
}

func (IndexOhlc) TableName() string { return "silver.index_ohlc" }
