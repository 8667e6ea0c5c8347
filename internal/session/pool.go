package session

import (
	"context"
	"sort"
	"sync"
)

// DefaultSessionID names the session used when callers do not pick one.
const DefaultSessionID = "default"

// Pool maps session IDs to Managers sharing one set of Options.
type Pool struct {
	mu       sync.Mutex
	opts     Options
	managers map[string]*Manager
}

// NewPool creates an empty pool.
func NewPool(opts Options) *Pool {
	return &Pool{
		opts:     opts.withDefaults(),
		managers: make(map[string]*Manager),
	}
}

// Get returns the Manager for id, creating it on first use. An empty id
// selects DefaultSessionID.
func (p *Pool) Get(id string) *Manager {
	if id == "" {
		id = DefaultSessionID
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.managers[id]
	if !ok {
		m = NewManager(p.opts)
		p.managers[id] = m
	}
	return m
}

// IDs returns the known session IDs, sorted.
func (p *Pool) IDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.managers))
	for id := range p.managers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Release closes and forgets one session.
func (p *Pool) Release(ctx context.Context, id string) error {
	p.mu.Lock()
	m, ok := p.managers[id]
	delete(p.managers, id)
	p.mu.Unlock()
	if !ok {
		return nil
	}
	return m.CloseAll(ctx)
}

// Close tears down every session and returns the first error.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	managers := p.managers
	p.managers = make(map[string]*Manager)
	p.mu.Unlock()

	var firstErr error
	for _, m := range managers {
		if err := m.CloseAll(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
