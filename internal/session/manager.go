// Package session owns the live backend connections used to execute
// operations.
//
// A Manager holds at most one relational adapter and one document store and
// connects them lazily. A Pool keys Managers by logical session ID for
// concurrent callers such as the HTTP server.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/dbpilot/pkg/adapter"
	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/leapstack-labs/dbpilot/pkg/docstore"
	"github.com/leapstack-labs/dbpilot/pkg/docstore/mongo"
)

// State is the connection state of one backend.
type State int

const (
	// Disconnected means no live handle is held.
	Disconnected State = iota
	// Connected means a handle was opened and not yet closed.
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// AdapterFactory builds an unconnected relational adapter.
type AdapterFactory func(cfg core.AdapterConfig, logger *slog.Logger) (adapter.Adapter, error)

// StoreFactory builds an unconnected document store.
type StoreFactory func(logger *slog.Logger) docstore.Store

// Options configures a Manager.
type Options struct {
	Relational core.AdapterConfig
	Document   core.DocumentConfig
	Logger     *slog.Logger

	// NewAdapter defaults to adapter.NewAdapter.
	NewAdapter AdapterFactory
	// NewStore defaults to the MongoDB store.
	NewStore StoreFactory
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.NewAdapter == nil {
		o.NewAdapter = adapter.NewAdapter
	}
	if o.NewStore == nil {
		o.NewStore = func(logger *slog.Logger) docstore.Store { return mongo.New(logger) }
	}
	return o
}

// Manager owns the connections of one logical session.
type Manager struct {
	mu   sync.Mutex
	opts Options
	rel  adapter.Adapter
	doc  docstore.Store
}

// NewManager creates a Manager. Nothing is connected until first use.
func NewManager(opts Options) *Manager {
	return &Manager{opts: opts.withDefaults()}
}

// Relational returns the relational adapter, connecting it if needed.
func (m *Manager) Relational(ctx context.Context) (adapter.Adapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureRelational(ctx); err != nil {
		return nil, err
	}
	return m.rel, nil
}

// Document returns the document store, connecting it if needed.
func (m *Manager) Document(ctx context.Context) (docstore.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureDocument(ctx); err != nil {
		return nil, err
	}
	return m.doc, nil
}

// EnsureConnected connects backend unless it is already connected.
func (m *Manager) EnsureConnected(ctx context.Context, backend core.Backend) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if backend == core.BackendDocument {
		return m.ensureDocument(ctx)
	}
	return m.ensureRelational(ctx)
}

// Connect drops any live handle for backend and connects again. It returns
// the user-facing confirmation message.
func (m *Manager) Connect(ctx context.Context, backend core.Backend) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if backend == core.BackendDocument {
		m.closeDocument(ctx)
		if err := m.ensureDocument(ctx); err != nil {
			return "", err
		}
		return "Connected to MongoDB", nil
	}

	m.closeRelational()
	if err := m.ensureRelational(ctx); err != nil {
		return "", err
	}
	return "Connected to " + m.relationalName(), nil
}

// Close releases the handle for backend. Closing an idle backend is not an
// error; the message says there was nothing to close.
func (m *Manager) Close(ctx context.Context, backend core.Backend) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if backend == core.BackendDocument {
		if m.doc == nil {
			return "No active MongoDB connection", nil
		}
		err := m.doc.Close(ctx)
		m.doc = nil
		if err != nil {
			return "", fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
		return "MongoDB connection closed", nil
	}

	name := m.relationalName()
	if m.rel == nil {
		return "No active " + name + " connection", nil
	}
	err := m.rel.Close()
	m.rel = nil
	if err != nil {
		return "", fmt.Errorf("failed to close %s connection: %w", name, err)
	}
	return name + " connection closed", nil
}

// State reports whether backend currently holds a live handle.
func (m *Manager) State(backend core.Backend) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if backend == core.BackendDocument {
		if m.doc != nil {
			return Connected
		}
		return Disconnected
	}
	if m.rel != nil {
		return Connected
	}
	return Disconnected
}

// CloseAll releases every handle.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	if m.rel != nil {
		firstErr = m.rel.Close()
		m.rel = nil
	}
	if m.doc != nil {
		if err := m.doc.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		m.doc = nil
	}
	return firstErr
}

func (m *Manager) ensureRelational(ctx context.Context) error {
	if m.rel != nil {
		return nil
	}
	cfg := m.opts.Relational
	a, err := m.opts.NewAdapter(cfg, m.opts.Logger)
	if err != nil {
		return &core.ConnectionError{Backend: core.BackendRelational, Driver: adapter.DisplayName(cfg.Type), Err: err}
	}
	if err := a.Connect(ctx, cfg); err != nil {
		return &core.ConnectionError{Backend: core.BackendRelational, Driver: adapter.DisplayName(cfg.Type), Err: err}
	}
	m.opts.Logger.Info("relational backend connected", slog.String("type", cfg.Type))
	m.rel = a
	return nil
}

func (m *Manager) ensureDocument(ctx context.Context) error {
	if m.doc != nil {
		return nil
	}
	s := m.opts.NewStore(m.opts.Logger)
	if err := s.Connect(ctx, m.opts.Document); err != nil {
		return &core.ConnectionError{Backend: core.BackendDocument, Driver: "MongoDB", Err: err}
	}
	m.opts.Logger.Info("document backend connected", slog.String("database", m.opts.Document.Database))
	m.doc = s
	return nil
}

func (m *Manager) closeRelational() {
	if m.rel != nil {
		_ = m.rel.Close()
		m.rel = nil
	}
}

func (m *Manager) closeDocument(ctx context.Context) {
	if m.doc != nil {
		_ = m.doc.Close(ctx)
		m.doc = nil
	}
}

func (m *Manager) relationalName() string {
	if m.rel != nil {
		if d := m.rel.Dialect(); d != nil && d.DisplayName != "" {
			return d.DisplayName
		}
	}
	return adapter.DisplayName(m.opts.Relational.Type)
}
