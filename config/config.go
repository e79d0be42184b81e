package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Marketflow MarketflowConfig `yaml:"marketflow"`
	StartDate  string           `yaml:"start_date"`
	HTTP       HTTPConfig       `yaml:"http"`
	Warehouse  WarehouseConfig  `yaml:"warehouse"`
	Source     SourceConfig     `yaml:"source"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type MarketflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type WarehouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

type SourceConfig struct {
	Ecb          EcbSourceConfig          `yaml:"ecb"`
	BacenPtax    PtaxSourceConfig         `yaml:"bacen_ptax"`
	Coingecko    CoingeckoSourceConfig    `yaml:"coingecko"`
	Stooq        StooqSourceConfig        `yaml:"stooq"`
	Alphavantage AlphavantageSourceConfig `yaml:"alphavantage"`
	Yahoo        YahooSourceConfig        `yaml:"yahoo"`
}

type EcbSourceConfig struct {
	BaseURL string      `yaml:"base_url"`
	Format  string      `yaml:"format"`
	Symbols []EcbSymbol `yaml:"symbols"`
}

type EcbSymbol struct {
	Code string `yaml:"code"`
	Key  string `yaml:"key"`
}

type PtaxSourceConfig struct {
	BaseURL     string `yaml:"base_url"`
	SerieUsdBrl int    `yaml:"serie_usdbrl"`
}

type CoingeckoSourceConfig struct {
	BaseURL          string `yaml:"base_url"`
	CoinID           string `yaml:"coin_id"`
	VsCurrency       string `yaml:"vs_currency"`
	Days             string `yaml:"days"`
	APIKey           string `yaml:"api_key"`
	APIKeyHeader     string `yaml:"api_key_header"`
	APIKeyQueryParam string `yaml:"api_key_query_param"`

	// Credential is resolved once from the fields above during LoadConfig.
	Credential Credential `yaml:"-"`
}

type StooqSourceConfig struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Symbols           []IndexSymbol `yaml:"symbols"`
}

type IndexSymbol struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type AlphavantageSourceConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Function          string        `yaml:"function"`
	APIKey            string        `yaml:"api_key"`
	OutputSize        string        `yaml:"outputsize"`
	RequestsPerMinute float64       `yaml:"requests_per_minute"`
	Symbols           []AlphaSymbol `yaml:"symbols"`
}

type AlphaSymbol struct {
	Code   string `yaml:"code"`
	Name   string `yaml:"name"`
	Symbol string `yaml:"symbol"`
}

type YahooSourceConfig struct {
	Indices []YahooIndex `yaml:"indices"`
}

type YahooIndex struct {
	Code   string `yaml:"code"`
	Name   string `yaml:"name"`
	Ticker string `yaml:"ticker"`
}

type StorageConfig struct {
	LocalDir string   `yaml:"local_dir"`
	S3       S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	CloudWatch bool   `yaml:"cloudwatch"`
	Region     string `yaml:"region"`
	Namespace  string `yaml:"namespace"`
}

func LoadConfig(path string) (*Config, error) {
	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		HTTP: HTTPConfig{
			Timeout:   60 * time.Second,
			UserAgent: "marketflow/1.0",
		},
		Storage: StorageConfig{LocalDir: "data/bronze"},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)
	config.Source.Coingecko.Credential = resolveCoingeckoCredential(
		config.Source.Coingecko.APIKey,
		config.Source.Coingecko.APIKeyHeader,
		config.Source.Coingecko.APIKeyQueryParam,
	)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides layers environment variables over the file values so
// credentials and connection settings never need to live in the yaml.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("START_DATE"); v != "" {
		cfg.StartDate = strings.TrimSpace(v)
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		cfg.Source.Coingecko.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("COINGECKO_API_KEY_HEADER"); v != "" {
		cfg.Source.Coingecko.APIKeyHeader = strings.TrimSpace(v)
	}
	if v := os.Getenv("COINGECKO_API_KEY_QUERY_PARAM"); v != "" {
		cfg.Source.Coingecko.APIKeyQueryParam = strings.TrimSpace(v)
	}
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		cfg.Source.Alphavantage.APIKey = strings.TrimSpace(v)
	}

	if v := os.Getenv("PGHOST"); v != "" {
		cfg.Warehouse.Host = strings.TrimSpace(v)
	}
	if v := os.Getenv("PGPORT"); v != "" {
		if port, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.Warehouse.Port = port
		}
	}
	if v := os.Getenv("PGUSER"); v != "" {
		cfg.Warehouse.User = strings.TrimSpace(v)
	}
	if v := os.Getenv("PGPASSWORD"); v != "" {
		cfg.Warehouse.Password = strings.TrimSpace(v)
	}
	if v := os.Getenv("PGDATABASE"); v != "" {
		cfg.Warehouse.Database = strings.TrimSpace(v)
	}

	if cfg.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			cfg.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			cfg.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			cfg.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			cfg.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
}

// Start returns the configured ingestion window floor as a UTC calendar date.
func (c *Config) Start() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start_date %q: %w", c.StartDate, err)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func validateConfig(cfg *Config) error {
	if cfg.Marketflow.Name == "" {
		return fmt.Errorf("marketflow.name is required")
	}

	if cfg.Marketflow.Version == "" {
		return fmt.Errorf("marketflow.version is required")
	}

	if _, err := cfg.Start(); err != nil {
		return err
	}

	if cfg.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be greater than 0")
	}

	if cfg.Warehouse.Host == "" {
		return fmt.Errorf("warehouse.host is required")
	}
	if cfg.Warehouse.Database == "" {
		return fmt.Errorf("warehouse.database is required")
	}

	if cfg.Source.Ecb.BaseURL == "" {
		return fmt.Errorf("source.ecb.base_url is required")
	}
	if len(cfg.Source.Ecb.Symbols) == 0 {
		return fmt.Errorf("source.ecb.symbols must not be empty")
	}
	if cfg.Source.BacenPtax.BaseURL == "" {
		return fmt.Errorf("source.bacen_ptax.base_url is required")
	}
	if cfg.Source.BacenPtax.SerieUsdBrl <= 0 {
		return fmt.Errorf("source.bacen_ptax.serie_usdbrl is required")
	}
	if cfg.Source.Coingecko.BaseURL == "" {
		return fmt.Errorf("source.coingecko.base_url is required")
	}
	if cfg.Source.Coingecko.CoinID == "" {
		return fmt.Errorf("source.coingecko.coin_id is required")
	}
	if cfg.Source.Coingecko.VsCurrency == "" {
		return fmt.Errorf("source.coingecko.vs_currency is required")
	}

	if len(cfg.Source.Stooq.Symbols) == 0 &&
		len(cfg.Source.Alphavantage.Symbols) == 0 &&
		len(cfg.Source.Yahoo.Indices) == 0 {
		return fmt.Errorf("at least one index source must be configured")
	}

	if cfg.Storage.S3.Enabled {
		cfg.Storage.S3.Bucket = strings.TrimSpace(cfg.Storage.S3.Bucket)
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
	}

	return nil
}
