package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/dbpilot/pkg/adapter"
	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T) *Adapter {
	t.Helper()
	adp := New(nil)
	require.NoError(t, adp.Connect(context.Background(), core.AdapterConfig{}))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func TestAdapter_ConnectFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	adp := New(nil)
	require.NoError(t, adp.Connect(context.Background(), core.AdapterConfig{Path: path}))
	defer func() { _ = adp.Close() }()

	_, err := adp.Exec(context.Background(), "CREATE TABLE t (x INTEGER)")
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestAdapter_ListTablesAndDescribe(t *testing.T) {
	ctx := context.Background()
	adp := connect(t)

	require.NoError(t, adp.ExecTx(ctx, []string{
		`CREATE TABLE "users" ("id" INTEGER NOT NULL, "email" TEXT)`,
		`CREATE TABLE "accounts" ("id" INTEGER)`,
		`INSERT INTO "users" VALUES (1, 'a@example.com')`,
	}))

	tables, err := adp.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"accounts", "users"}, tables)

	meta, err := adp.Describe(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, "main", meta.Schema)
	assert.Equal(t, int64(1), meta.RowCount)
	require.Len(t, meta.Columns, 2)
	assert.Equal(t, core.Column{Name: "id", Type: "INTEGER", Nullable: false, Position: 1}, meta.Columns[0])
	assert.Equal(t, core.Column{Name: "email", Type: "TEXT", Nullable: true, Position: 2}, meta.Columns[1])

	_, err = adp.Describe(ctx, "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestAdapter_ListTablesEmpty(t *testing.T) {
	tables, err := connect(t).ListTables(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestAdapter_CopyRowsAndQuery(t *testing.T) {
	ctx := context.Background()
	adp := connect(t)

	_, err := adp.Exec(ctx, `CREATE TABLE "products" ("id" INTEGER, "name" TEXT, "meta" JSON)`)
	require.NoError(t, err)

	n, err := adp.CopyRows(ctx, "products", []string{"id", "name", "meta"}, [][]any{
		{int64(1), "Widget", map[string]any{"color": "red"}},
		{int64(2), "Gadget", nil},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	table, err := adp.Query(ctx, `SELECT "id", "name", "meta" FROM "products" ORDER BY "id"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "meta"}, table.Columns)
	assert.Equal(t, [][]any{
		{int64(1), "Widget", `{"color":"red"}`},
		{int64(2), "Gadget", nil},
	}, table.Rows)
}

func TestAdapter_NotConnected(t *testing.T) {
	adp := New(nil)
	ctx := context.Background()

	_, err := adp.ListTables(ctx)
	assert.ErrorIs(t, err, core.ErrNotConnected)

	_, err = adp.Describe(ctx, "users")
	assert.ErrorIs(t, err, core.ErrNotConnected)

	assert.NoError(t, adp.Close())
}

func TestAdapter_Registry(t *testing.T) {
	assert.True(t, adapter.IsRegistered("sqlite"))

	adp, err := adapter.NewAdapter(core.AdapterConfig{Type: "sqlite"}, nil)
	require.NoError(t, err)
	_, ok := adp.(*Adapter)
	assert.True(t, ok)
}
