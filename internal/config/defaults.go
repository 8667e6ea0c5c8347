package config

import "time"

// Config file names searched in the working directory.
const (
	ConfigFileName    = "dbpilot.yaml"
	ConfigFileNameAlt = "dbpilot.yml"
)

// Default configuration values.
const (
	DefaultRelationalType = "postgres"
	DefaultHost           = "localhost"
	DefaultPostgresPort   = 5432
	DefaultDatabase       = "postgres"
	DefaultUser           = "postgres"
	DefaultPassword       = "postgres"
	DefaultMongoURI       = "mongodb://localhost:27017/"
	DefaultMongoDatabase  = "test"
	DefaultMongoTimeout   = 10 * time.Second
	DefaultHistoryPath    = ".dbpilot/history.db"
	DefaultAddr           = ":8080"
	DefaultLogLevel       = "info"
	DefaultOutput         = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// defaults returns the lowest-precedence layer.
func defaults() map[string]any {
	return map[string]any{
		"relational.type":     DefaultRelationalType,
		"relational.host":     DefaultHost,
		"relational.port":     DefaultPostgresPort,
		"relational.database": DefaultDatabase,
		"relational.user":     DefaultUser,
		"relational.password": DefaultPassword,
		"document.uri":        DefaultMongoURI,
		"document.database":   DefaultMongoDatabase,
		"document.timeout":    DefaultMongoTimeout.String(),
		"history.enabled":     true,
		"history.path":        DefaultHistoryPath,
		"server.addr":         DefaultAddr,
		"log_level":           DefaultLogLevel,
		"output":              DefaultOutput,
	}
}

// applyDefaults fills values that depend on other settings.
func applyDefaults(c *Config) {
	if c.Document.Timeout <= 0 {
		c.Document.Timeout = DefaultMongoTimeout
	}
	if c.Relational.Type == "postgres" && c.Relational.Port == 0 {
		c.Relational.Port = DefaultPostgresPort
	}
}
