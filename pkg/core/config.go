package core

import "time"

// AdapterConfig holds configuration for connecting to a relational database.
type AdapterConfig struct {
	Type     string
	Path     string // file-based engines (duckdb, sqlite); empty means in-memory
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
}

// DocumentConfig holds configuration for connecting to the document store.
type DocumentConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (DuckDB, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. for parameters (PostgreSQL).
	PlaceholderDollar
)
