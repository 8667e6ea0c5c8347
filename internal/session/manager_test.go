package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/leapstack-labs/dbpilot/internal/testutil"
	"github.com/leapstack-labs/dbpilot/pkg/adapter"
	"github.com/leapstack-labs/dbpilot/pkg/adapters/sqlite"
	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/leapstack-labs/dbpilot/pkg/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAdapter struct {
	*sqlite.Adapter
	mu       sync.Mutex
	connects int
	closes   int
	err      error
}

func (c *countingAdapter) Connect(ctx context.Context, cfg core.AdapterConfig) error {
	c.mu.Lock()
	c.connects++
	c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	return c.Adapter.Connect(ctx, cfg)
}

func (c *countingAdapter) Close() error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()
	return c.Adapter.Close()
}

type fixture struct {
	manager  *Manager
	adapters []*countingAdapter
	store    *testutil.MemoryStore
	connErr  error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: testutil.NewMemoryStore()}
	f.manager = NewManager(Options{
		Relational: core.AdapterConfig{Type: "sqlite"},
		Logger:     testutil.NewTestLogger(t),
		NewAdapter: func(_ core.AdapterConfig, logger *slog.Logger) (adapter.Adapter, error) {
			a := &countingAdapter{Adapter: sqlite.New(logger), err: f.connErr}
			f.adapters = append(f.adapters, a)
			return a, nil
		},
		NewStore: func(*slog.Logger) docstore.Store { return f.store },
	})
	t.Cleanup(func() { _ = f.manager.CloseAll(context.Background()) })
	return f
}

func TestManager_EnsureConnectedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Equal(t, Disconnected, f.manager.State(core.BackendRelational))

	for range 3 {
		require.NoError(t, f.manager.EnsureConnected(ctx, core.BackendRelational))
	}
	require.Len(t, f.adapters, 1)
	assert.Equal(t, 1, f.adapters[0].connects)
	assert.Equal(t, Connected, f.manager.State(core.BackendRelational))

	for range 2 {
		_, err := f.manager.Document(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.store.ConnectCalls)
	assert.Equal(t, Connected, f.manager.State(core.BackendDocument))
}

func TestManager_ConnectForcesReconnect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.manager.Connect(ctx, core.BackendRelational)
	require.NoError(t, err)
	assert.Equal(t, "Connected to SQLite", msg)

	_, err = f.manager.Connect(ctx, core.BackendRelational)
	require.NoError(t, err)
	require.Len(t, f.adapters, 2)
	assert.Equal(t, 1, f.adapters[0].closes)

	msg, err = f.manager.Connect(ctx, core.BackendDocument)
	require.NoError(t, err)
	assert.Equal(t, "Connected to MongoDB", msg)
}

func TestManager_Close(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.manager.Close(ctx, core.BackendDocument)
	require.NoError(t, err)
	assert.Equal(t, "No active MongoDB connection", msg)

	msg, err = f.manager.Close(ctx, core.BackendRelational)
	require.NoError(t, err)
	assert.Equal(t, "No active SQLite connection", msg)

	require.NoError(t, f.manager.EnsureConnected(ctx, core.BackendDocument))
	msg, err = f.manager.Close(ctx, core.BackendDocument)
	require.NoError(t, err)
	assert.Equal(t, "MongoDB connection closed", msg)
	assert.Equal(t, Disconnected, f.manager.State(core.BackendDocument))

	require.NoError(t, f.manager.EnsureConnected(ctx, core.BackendRelational))
	msg, err = f.manager.Close(ctx, core.BackendRelational)
	require.NoError(t, err)
	assert.Equal(t, "SQLite connection closed", msg)
}

func TestManager_ConnectFailure(t *testing.T) {
	f := newFixture(t)
	f.connErr = errors.New("connection refused")

	_, err := f.manager.Relational(context.Background())
	require.Error(t, err)

	var connErr *core.ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, core.BackendRelational, connErr.Backend)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, Disconnected, f.manager.State(core.BackendRelational))

	f.store.ConnectErr = errors.New("server selection timeout")
	_, err = f.manager.Document(context.Background())
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, core.BackendDocument, connErr.Backend)
}

func TestManager_ConcurrentUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.manager.Relational(ctx)
		}()
	}
	wg.Wait()

	require.Len(t, f.adapters, 1)
	assert.Equal(t, 1, f.adapters[0].connects)
}

func TestPool(t *testing.T) {
	store := testutil.NewMemoryStore()
	pool := NewPool(Options{
		NewStore: func(*slog.Logger) docstore.Store { return store },
	})
	ctx := context.Background()

	a := pool.Get("alpha")
	assert.Same(t, a, pool.Get("alpha"))
	assert.NotSame(t, a, pool.Get("beta"))
	assert.Same(t, pool.Get(""), pool.Get(DefaultSessionID))
	assert.Equal(t, []string{"alpha", "beta", DefaultSessionID}, pool.IDs())

	_, err := a.Document(ctx)
	require.NoError(t, err)

	require.NoError(t, pool.Release(ctx, "alpha"))
	assert.Equal(t, 1, store.CloseCalls)
	assert.NotSame(t, a, pool.Get("alpha"))

	_, err = pool.Get("beta").Document(ctx)
	require.NoError(t, err)
	require.NoError(t, pool.Close(ctx))
	assert.Equal(t, 2, store.CloseCalls)
	assert.Empty(t, pool.IDs())
}
