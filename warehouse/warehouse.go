// Package warehouse owns the PostgreSQL connection and the write semantics of
// each refinement layer: bronze appends, silver and gold replace by key
// inside one transaction per stage.
package warehouse

import (
	"context"
	"fmt"
	"net/url"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"marketflow/config"
	"marketflow/logger"
	"marketflow/models"
)

const (
	defaultHost    = "localhost"
	defaultPort    = 5432
	defaultSSLMode = "disable"
)

var schemas = []string{"bronze", "silver", "gold"}

// Client wraps the warehouse connection pool.
type Client struct {
	db  *gorm.DB
	log *logger.Log
}

// New opens the connection pool described by the config.
func New(cfg config.WarehouseConfig) (*Client, error) {
	db, err := gorm.Open(postgres.Open(dsn(cfg)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}

	log := logger.GetLogger()
	log.WithComponent("warehouse").WithFields(logger.Fields{
		"host":     cfg.Host,
		"database": cfg.Database,
	}).Info("warehouse connection opened")

	return &Client{db: db, log: log}, nil
}

// DB exposes the underlying gorm handle.
func (c *Client) DB() *gorm.DB {
	if c == nil {
		return nil
	}
	return c.db
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate creates the three layer schemas and every table.
func (c *Client) Migrate(ctx context.Context) error {
	db := c.db.WithContext(ctx)
	for _, schema := range schemas {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("create schema %s: %w", schema, err)
		}
	}

	err := db.AutoMigrate(
		&models.EcbFxRate{},
		&models.PtaxRate{},
		&models.CryptoPrice{},
		&models.IndexRaw{},
		&models.FxRate{},
		&models.CryptoRate{},
		&models.IndexOhlc{},
		&models.DimCurrency{},
		&models.DimIndex{},
		&models.FactFxDaily{},
		&models.FactCryptoDaily{},
		&models.FactIndexDaily{},
	)
	if err != nil {
		return fmt.Errorf("migrate warehouse tables: %w", err)
	}

	c.log.WithComponent("warehouse").Info("warehouse schema migrated")
	return nil
}

// DSN builds a postgres connection string from the config, applying local
// defaults for anything unset.
func dsn(cfg config.WarehouseConfig) string {
	host := cfg.Host
	if host == "" {
		host = defaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	if cfg.Database != "" {
		u.Path = "/" + cfg.Database
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	u.RawQuery = query.Encode()

	return u.String()
}
