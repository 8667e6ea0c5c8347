package duckdb

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// Params holds DuckDB-specific configuration parsed from the adapter
// options map.
type Params struct {
	// Extensions to install and load (e.g., "httpfs", "json").
	Extensions []string

	// Settings to apply at session level (e.g., memory_limit, threads).
	Settings map[string]string
}

var settingName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// parseParams reads the "extensions" key as a comma-separated list; every
// other key is a session setting.
func parseParams(options map[string]string) (Params, error) {
	p := Params{Settings: map[string]string{}}
	for key, value := range options {
		if key == "extensions" {
			for _, ext := range strings.Split(value, ",") {
				ext = strings.TrimSpace(ext)
				if ext == "" {
					continue
				}
				if !settingName.MatchString(ext) {
					return Params{}, fmt.Errorf("invalid duckdb extension name %q", ext)
				}
				p.Extensions = append(p.Extensions, ext)
			}
			continue
		}
		if !settingName.MatchString(key) {
			return Params{}, fmt.Errorf("invalid duckdb setting name %q", key)
		}
		p.Settings[key] = value
	}
	return p, nil
}

func (a *Adapter) applyParams(ctx context.Context, p Params) error {
	for _, ext := range p.Extensions {
		for _, verb := range []string{"INSTALL", "LOAD"} {
			//nolint:gosec // extension names are validated in parseParams
			if _, err := a.DB.ExecContext(ctx, verb+" "+ext); err != nil {
				return fmt.Errorf("failed to load duckdb extension %s: %w", ext, err)
			}
		}
		a.Logger.Debug("loaded duckdb extension", slog.String("extension", ext))
	}

	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		value := strings.ReplaceAll(p.Settings[k], "'", "''")
		//nolint:gosec // setting names are validated in parseParams
		if _, err := a.DB.ExecContext(ctx, fmt.Sprintf("SET %s = '%s'", k, value)); err != nil {
			return fmt.Errorf("failed to apply duckdb setting %s: %w", k, err)
		}
	}
	return nil
}
