package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/dbpilot/pkg/adapter"
)

// LogLevels are the accepted log_level values.
var LogLevels = []string{"debug", "info", "warn", "error"}

// OutputFormats are the accepted output values.
var OutputFormats = []string{"auto", "text", "markdown", "json", "csv", "yaml"}

// Validate checks the configuration and normalizes the relational type to
// its registered name. Adapter packages must be linked in for their types
// and aliases to resolve.
func (c *Config) Validate() error {
	c.Relational.Type = strings.ToLower(strings.TrimSpace(c.Relational.Type))
	if c.Relational.Type == "" {
		return fmt.Errorf("relational.type is required")
	}
	name, ok := adapter.Canonical(c.Relational.Type)
	if !ok {
		return &adapter.UnknownAdapterError{
			Type:      c.Relational.Type,
			Available: adapter.ListAdapters(),
		}
	}
	c.Relational.Type = name
	if c.Relational.Port < 0 || c.Relational.Port > 65535 {
		return fmt.Errorf("relational.port %d is out of range", c.Relational.Port)
	}
	if c.Document.URI == "" {
		return fmt.Errorf("document.uri is required")
	}
	if c.Document.Database == "" {
		return fmt.Errorf("document.database is required")
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path is required when history is enabled")
	}
	if !slices.Contains(LogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("log_level %q is not one of %s", c.LogLevel, strings.Join(LogLevels, ", "))
	}
	if !slices.Contains(OutputFormats, strings.ToLower(c.Output)) {
		return fmt.Errorf("output %q is not one of %s", c.Output, strings.Join(OutputFormats, ", "))
	}
	return nil
}
