// Package commands implements the dbpilot subcommands.
package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/leapstack-labs/dbpilot/internal/config"
	"github.com/leapstack-labs/dbpilot/internal/dispatch"
	"github.com/leapstack-labs/dbpilot/internal/history"
	"github.com/leapstack-labs/dbpilot/internal/render"
	"github.com/leapstack-labs/dbpilot/internal/session"
	"github.com/leapstack-labs/dbpilot/pkg/core"
)

// ErrOperationFailed is returned by commands whose dispatched intent failed.
// The failure has already been rendered, so callers only set the exit code.
var ErrOperationFailed = errors.New("operation failed")

// Env carries what every command needs. Backend connections and the
// history database are opened on first use.
type Env struct {
	Config   *config.Config
	Logger   *slog.Logger
	Renderer *render.Renderer

	// SessionOptions overrides the connection options derived from Config.
	SessionOptions *session.Options

	mu      sync.Mutex
	manager *session.Manager
	history *history.Store
	opened  bool
}

type envKey struct{}

// WithEnv stores env in ctx.
func WithEnv(ctx context.Context, env *Env) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// GetEnv retrieves the Env from ctx. A default Env is returned when none
// was stored, so commands can be run in isolation.
func GetEnv(ctx context.Context) *Env {
	if ctx != nil {
		if e, ok := ctx.Value(envKey{}).(*Env); ok {
			return e
		}
	}
	return &Env{
		Config:   &config.Config{},
		Logger:   slog.New(slog.DiscardHandler),
		Renderer: render.NewRenderer(os.Stdout, os.Stderr, render.ModeAuto),
	}
}

func (e *Env) sessionOptions() session.Options {
	if e.SessionOptions != nil {
		return *e.SessionOptions
	}
	return session.Options{
		Relational: e.Config.Relational.AdapterConfig(),
		Document:   e.Config.Document.StoreConfig(),
		Logger:     e.Logger,
	}
}

// Manager returns the connection manager, creating it on first use.
func (e *Env) Manager() *session.Manager {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.manager == nil {
		e.manager = session.NewManager(e.sessionOptions())
	}
	return e.manager
}

// History returns the history store, or nil when history is disabled or
// could not be opened. An open failure is logged once.
func (e *Env) History() *history.Store {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.opened {
		return e.history
	}
	e.opened = true
	if !e.Config.History.Enabled {
		return nil
	}
	h, err := history.Open(e.Config.History.Path, e.Logger)
	if err != nil {
		e.Logger.Warn("history disabled", slog.String("error", err.Error()))
		return nil
	}
	e.history = h
	return h
}

// Dispatcher returns a dispatcher bound to the manager and history.
func (e *Env) Dispatcher() *dispatch.Dispatcher {
	opts := []dispatch.Option{dispatch.WithLogger(e.Logger)}
	if h := e.History(); h != nil {
		opts = append(opts, dispatch.WithRecorder(h))
	}
	return dispatch.New(e.Manager(), opts...)
}

// Close releases connections and the history database.
func (e *Env) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.manager != nil {
		err = e.manager.CloseAll(ctx)
		e.manager = nil
	}
	if e.history != nil {
		if cerr := e.history.Close(); cerr != nil && err == nil {
			err = cerr
		}
		e.history = nil
	}
	return err
}

// renderResult renders res and maps a failure to ErrOperationFailed.
func renderResult(r *render.Renderer, res core.Result) error {
	if err := r.Result(res); err != nil {
		return err
	}
	if !res.OK {
		return ErrOperationFailed
	}
	return nil
}
