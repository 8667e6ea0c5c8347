package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/dbpilot/pkg/adapter"
	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   core.AdapterConfig
		expected string
	}{
		{
			name: "credentials",
			config: core.AdapterConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "testdb",
				Username: "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=testdb user=user password=pass sslmode=disable",
		},
		{
			name: "options",
			config: core.AdapterConfig{
				Host:     "prod.example.com",
				Database: "proddb",
				Username: "admin",
				Options:  map[string]string{"sslmode": "require", "connect_timeout": "5", "application_name": "ops"},
			},
			expected: "host=prod.example.com port=5432 dbname=proddb user=admin sslmode=require application_name=ops connect_timeout=5",
		},
		{
			name:     "defaults",
			config:   core.AdapterConfig{Database: "mydb"},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
		{
			name:     "quoted values",
			config:   core.AdapterConfig{Database: "my db", Password: `it's a \secret`},
			expected: `host=localhost port=5432 dbname='my db' password='it\'s a \\secret' sslmode=disable`,
		},
		{
			name:     "empty database",
			config:   core.AdapterConfig{},
			expected: "host=localhost port=5432 dbname='' sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.config))
		})
	}
}

func TestConnConfig(t *testing.T) {
	cc, err := connConfig(core.AdapterConfig{
		Host:     "db.example.com",
		Port:     5433,
		Database: "analytics",
		Username: "analyst",
		Password: "pa ss",
		Schema:   "sales",
	})
	require.NoError(t, err)

	assert.Equal(t, "db.example.com", cc.Host)
	assert.Equal(t, uint16(5433), cc.Port)
	assert.Equal(t, "analytics", cc.Database)
	assert.Equal(t, "analyst", cc.User)
	assert.Equal(t, "pa ss", cc.Password)
	assert.Equal(t, "sales", cc.RuntimeParams["search_path"])
	assert.Equal(t, "dbpilot", cc.RuntimeParams["application_name"])

	cc, err = connConfig(core.AdapterConfig{Database: "x", Options: map[string]string{"application_name": "etl"}})
	require.NoError(t, err)
	assert.Equal(t, "etl", cc.RuntimeParams["application_name"])
	_, ok := cc.RuntimeParams["search_path"]
	assert.False(t, ok)
}

func mockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	a := New(nil)
	a.DB = db
	return a, mock
}

func TestNew_Unconnected(t *testing.T) {
	a := New(nil)

	require.NotNil(t, a)
	assert.False(t, a.IsConnected())
	assert.Equal(t, "postgres", a.Dialect().Name)
	assert.Equal(t, "PostgreSQL", a.Dialect().DisplayName)
	assert.True(t, a.Dialect().MultiAddColumn)
	assert.NoError(t, a.Close())

	ctx := context.Background()
	calls := map[string]func() error{
		"exec":     func() error { _, err := a.Exec(ctx, "SELECT 1"); return err },
		"query":    func() error { _, err := a.Query(ctx, "SELECT 1"); return err },
		"describe": func() error { _, err := a.Describe(ctx, "users"); return err },
		"copy":     func() error { _, err := a.CopyRows(ctx, "users", []string{"id"}, [][]any{{1}}); return err },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, call(), core.ErrNotConnected)
		})
	}
}

func TestAdapter_ListTablesUsesSchema(t *testing.T) {
	a, mock := mockAdapter(t)
	a.Cfg.Schema = "hr"

	mock.ExpectQuery(`table_schema = \$1`).
		WithArgs("hr").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("employees").AddRow("payroll"))

	names, err := a.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"employees", "payroll"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_CopyRowsNothingToLoad(t *testing.T) {
	a, mock := mockAdapter(t)

	n, err := a.CopyRows(context.Background(), "employees", []string{"id"}, [][]any{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDialect(t *testing.T) {
	assert.Equal(t, "DOUBLE PRECISION", Dialect.ColumnType(core.TypeFloat))
	assert.Equal(t, "JSONB", Dialect.ColumnType(core.TypeJSONB))
	assert.Equal(t, "$1, $2", Dialect.Placeholders(1, 2))
}

func TestRegistered(t *testing.T) {
	for _, name := range []string{"postgres", "postgresql", "PG"} {
		factory, ok := adapter.Get(name)
		require.True(t, ok, name)
		assert.IsType(t, &Adapter{}, factory(nil), name)
	}
}
