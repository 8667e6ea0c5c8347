// Package dispatch executes intents against the relational and document
// backends.
//
// The Dispatcher validates the operation name, makes sure the owning backend
// is connected, decodes the parameter bag into the operation's typed
// parameters and runs the handler. Every failure, including a panic inside a
// handler, comes back as an unsuccessful core.Result with a single-line
// message.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/dbpilot/pkg/adapter"
	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/leapstack-labs/dbpilot/pkg/docstore"
)

// Connections supplies connected backends. *session.Manager implements it.
type Connections interface {
	Relational(ctx context.Context) (adapter.Adapter, error)
	Document(ctx context.Context) (docstore.Store, error)
}

// Record describes one finished dispatch.
type Record struct {
	Intent   core.Intent
	Result   core.Result
	Started  time.Time
	Duration time.Duration
}

// Recorder receives a Record for every dispatch.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRecorder reports every dispatch to r.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// Dispatcher routes intents to backend handlers.
type Dispatcher struct {
	conns    Connections
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
}

// New creates a Dispatcher over conns.
func New(conns Connections, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		conns:  conns,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch executes one intent. It never returns an error: failures are
// reported through the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, in core.Intent) core.Result {
	started := d.now()
	res := d.run(ctx, in)
	d.finish(ctx, in, res, started)
	return res
}

func (d *Dispatcher) run(ctx context.Context, in core.Intent) (res core.Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("operation panicked",
				slog.String("operation", string(in.Operation)),
				slog.Any("panic", r))
			res = core.Failure(fmt.Errorf("%s failed: internal error: %v", in.Operation, r))
		}
	}()

	info, ok := in.Operation.Info()
	if !ok {
		return core.Failure(&core.UnknownOperationError{
			Operation:   string(in.Operation),
			Explanation: in.Explanation,
		})
	}
	if in.Parameters == nil {
		in.Parameters = core.Params{}
	}

	var err error
	switch info.Backend {
	case core.BackendDocument:
		res, err = d.runDocument(ctx, in)
	default:
		res, err = d.runRelational(ctx, in)
	}
	if err != nil {
		return core.Failure(err)
	}
	return res
}

func (d *Dispatcher) finish(ctx context.Context, in core.Intent, res core.Result, started time.Time) {
	elapsed := d.now().Sub(started)

	attrs := []any{
		slog.String("operation", string(in.Operation)),
		slog.String("target", in.Target),
		slog.Bool("ok", res.OK),
		slog.Duration("duration", elapsed),
	}
	if res.OK {
		d.logger.Debug("operation finished", attrs...)
	} else {
		d.logger.Warn("operation failed", append(attrs, slog.String("error", res.Message))...)
	}

	if d.recorder == nil {
		return
	}
	rec := Record{Intent: in, Result: res, Started: started, Duration: elapsed}
	if err := d.recorder.Record(ctx, rec); err != nil {
		d.logger.Warn("failed to record operation", slog.String("error", err.Error()))
	}
}

// requireTarget rejects intents without a target for operations that need one.
func requireTarget(in core.Intent) error {
	if in.Target == "" {
		return &core.ParamError{Operation: in.Operation, Param: "target", Reason: "is required"}
	}
	return nil
}

// execErr wraps a backend failure with the operation and target.
func execErr(in core.Intent, err error) error {
	return &core.BackendExecutionError{Operation: in.Operation, Target: in.Target, Err: err}
}
