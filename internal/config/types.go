// Package config loads dbpilot configuration from defaults, an optional
// dbpilot.yaml, environment variables and command-line flags.
package config

import (
	"time"

	"github.com/leapstack-labs/dbpilot/pkg/core"
)

// RelationalConfig holds the relational backend connection settings.
type RelationalConfig struct {
	Type     string `koanf:"type"` // postgres, duckdb, sqlite
	Path     string `koanf:"path"` // file-based engines; empty means in-memory
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Schema   string `koanf:"schema"`

	// Options are driver specific: sslmode for postgres, settings and
	// extensions for duckdb.
	Options map[string]string `koanf:"options"`
}

// AdapterConfig converts to the adapter connection config.
func (r RelationalConfig) AdapterConfig() core.AdapterConfig {
	return core.AdapterConfig{
		Type:     r.Type,
		Path:     r.Path,
		Host:     r.Host,
		Port:     r.Port,
		Database: r.Database,
		Username: r.User,
		Password: r.Password,
		Schema:   r.Schema,
		Options:  r.Options,
	}
}

// DocumentConfig holds the document store connection settings.
type DocumentConfig struct {
	URI      string        `koanf:"uri"`
	Database string        `koanf:"database"`
	Timeout  time.Duration `koanf:"timeout"`
}

// StoreConfig converts to the document store connection config.
func (d DocumentConfig) StoreConfig() core.DocumentConfig {
	return core.DocumentConfig{URI: d.URI, Database: d.Database, Timeout: d.Timeout}
}

// HistoryConfig controls the operation history log.
type HistoryConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// Config holds all dbpilot configuration.
type Config struct {
	Relational RelationalConfig `koanf:"relational"`
	Document   DocumentConfig   `koanf:"document"`
	History    HistoryConfig    `koanf:"history"`
	Server     ServerConfig     `koanf:"server"`
	LogLevel   string           `koanf:"log_level"`
	Output     string           `koanf:"output"`

	// FileUsed is the config file that was loaded, if any.
	FileUsed string `koanf:"-"`
}
