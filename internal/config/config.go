// Package config loads the extractor configuration from YAML.
package config

import "time"

// Config is the root configuration for an extraction run.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	API     APIConfig     `yaml:"api"`
	Pool    PoolConfig    `yaml:"pool"`
	Retry   RetryConfig   `yaml:"retry"`
	Cache   CacheConfig   `yaml:"cache"`
	Export  ExportConfig  `yaml:"export"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// APIConfig holds the catalog endpoint settings.
type APIConfig struct {
	BaseURL  string `yaml:"base_url"`
	PageSize int    `yaml:"page_size"`
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	Size int `yaml:"size"`
}

// RetryConfig holds the resilient fetch settings.
type RetryConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	MaxAttempts       int           `yaml:"max_attempts"`
	MinBackoff        time.Duration `yaml:"min_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// CacheConfig holds the optional Redis page cache settings.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db"`
	TTL       time.Duration `yaml:"ttl"`
}

// ExportConfig selects the output targets. A target is enabled when its
// path (or DSN for Postgres) is non-empty.
type ExportConfig struct {
	CSVPath  string         `yaml:"csv_path"`
	XLSXPath string         `yaml:"xlsx_path"`
	PDFPath  string         `yaml:"pdf_path"`
	PDFTitle string         `yaml:"pdf_title"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds the optional database sink settings.
type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// HasTarget reports whether at least one export target is enabled.
func (e ExportConfig) HasTarget() bool {
	return e.CSVPath != "" || e.XLSXPath != "" || e.PDFPath != "" || e.Postgres.DSN != ""
}
