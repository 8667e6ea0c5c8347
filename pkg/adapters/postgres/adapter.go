// Package postgres provides a PostgreSQL database adapter for dbpilot.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/dbpilot/pkg/adapter"
	"github.com/leapstack-labs/dbpilot/pkg/core"
)

// Dialect describes PostgreSQL SQL conventions.
var Dialect = &adapter.Dialect{
	Name:           "postgres",
	DisplayName:    "PostgreSQL",
	DefaultSchema:  "public",
	Placeholder:    core.PlaceholderDollar,
	MultiAddColumn: true,
	TypeNames: map[core.StorageType]string{
		core.TypeFloat: "DOUBLE PRECISION",
	},
}

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the PostgreSQL dialect.
func (a *Adapter) Dialect() *adapter.Dialect {
	return Dialect
}

// Connect opens a pgx-backed database/sql handle and verifies it with a ping.
func (a *Adapter) Connect(ctx context.Context, cfg core.AdapterConfig) error {
	cc, err := connConfig(cfg)
	if err != nil {
		return err
	}

	a.Logger.Debug("connecting to postgres",
		slog.String("host", cc.Host),
		slog.Int("port", int(cc.Port)),
		slog.String("database", cc.Database))

	db := stdlib.OpenDB(*cc)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// connConfig parses the connection settings. Schema becomes the session
// search_path.
func connConfig(cfg core.AdapterConfig) (*pgx.ConnConfig, error) {
	cc, err := pgx.ParseConfig(buildPostgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("invalid postgres connection settings: %w", err)
	}
	if cfg.Schema != "" {
		cc.RuntimeParams["search_path"] = cfg.Schema
	}
	if _, ok := cc.RuntimeParams["application_name"]; !ok {
		cc.RuntimeParams["application_name"] = "dbpilot"
	}
	return cc, nil
}

// buildPostgresDSN renders a keyword/value connection string. Options are
// appended as extra keywords in name order; sslmode defaults to disable.
func buildPostgresDSN(cfg core.AdapterConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	parts := []string{
		"host=" + dsnValue(host),
		"port=" + strconv.Itoa(port),
		"dbname=" + dsnValue(cfg.Database),
	}
	if cfg.Username != "" {
		parts = append(parts, "user="+dsnValue(cfg.Username))
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+dsnValue(cfg.Password))
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok && mode != "" {
		sslmode = mode
	}
	parts = append(parts, "sslmode="+dsnValue(sslmode))

	keys := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		if k != "sslmode" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+dsnValue(cfg.Options[k]))
	}
	return strings.Join(parts, " ")
}

// dsnValue quotes v when libpq syntax requires it.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// ListTables returns the base tables of the configured schema.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	return a.ListTablesCommon(ctx, Dialect)
}

// Describe retrieves column metadata for a table.
func (a *Adapter) Describe(ctx context.Context, table string) (*core.TableMetadata, error) {
	return a.DescribeCommon(ctx, table, Dialect)
}

// CopyRows bulk-loads rows using the binary COPY protocol.
func (a *Adapter) CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if a.DB == nil {
		return 0, core.ErrNotConnected
	}
	if len(rows) == 0 {
		return 0, nil
	}

	schema, name := adapter.ParseQualifiedName(table, Dialect)
	if a.Cfg.Schema != "" && schema == Dialect.DefaultSchema {
		schema = a.Cfg.Schema
	}

	conn, err := a.DB.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	var copied int64
	err = conn.Raw(func(driverConn any) error {
		pgxConn := driverConn.(*stdlib.Conn).Conn()

		n, err := pgxConn.CopyFrom(ctx, pgx.Identifier{schema, name}, columns, pgx.CopyFromRows(rows))
		copied = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to copy rows: %w", err)
	}

	a.Logger.Debug("copied rows", slog.String("table", table), slog.Int64("rows", copied))
	return copied, nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
