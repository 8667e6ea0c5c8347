package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/dbpilot/pkg/adapter"
	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/leapstack-labs/dbpilot/pkg/docstore"
	"github.com/leapstack-labs/dbpilot/pkg/schema"
)

// Import loads CSV from r into a new table or collection named target. It is
// the entry point for file uploads and the import command; the result is
// recorded like any dispatched intent.
func (d *Dispatcher) Import(ctx context.Context, backend core.Backend, target string, r io.Reader, opts schema.CSVOptions) core.Result {
	op := core.OpCreateTableFromCSV
	if backend == core.BackendDocument {
		op = core.OpCreateCollectionFromCSV
	}
	in := core.Intent{Operation: op, Target: target, Parameters: core.Params{"source": "upload"}}
	if opts.Delimiter != 0 {
		in.Parameters["delimiter"] = string(opts.Delimiter)
	}

	started := d.now()
	res := d.runImport(ctx, in, r, opts)
	d.finish(ctx, in, res, started)
	return res
}

func (d *Dispatcher) runImport(ctx context.Context, in core.Intent, r io.Reader, opts schema.CSVOptions) (res core.Result) {
	defer func() {
		if p := recover(); p != nil {
			res = core.Failure(fmt.Errorf("%s failed: internal error: %v", in.Operation, p))
		}
	}()

	if err := requireTarget(in); err != nil {
		return core.Failure(err)
	}

	var err error
	if in.Operation == core.OpCreateCollectionFromCSV {
		var s docstore.Store
		if s, err = d.conns.Document(ctx); err == nil {
			res, err = d.importCollection(ctx, s, in.Target, r, opts)
		}
	} else {
		var a adapter.Adapter
		if a, err = d.conns.Relational(ctx); err == nil {
			res, err = d.importTable(ctx, a, in.Target, r, opts)
		}
	}
	if err != nil {
		return core.Failure(err)
	}
	return res
}

func (d *Dispatcher) createTableFromCSV(ctx context.Context, a adapter.Adapter, in core.Intent) (core.Result, error) {
	r, opts, closeFn, err := openCSV(in)
	if err != nil {
		return core.Result{}, err
	}
	defer closeFn()
	return d.importTable(ctx, a, in.Target, r, opts)
}

func (d *Dispatcher) createCollectionFromCSV(ctx context.Context, s docstore.Store, in core.Intent) (core.Result, error) {
	r, opts, closeFn, err := openCSV(in)
	if err != nil {
		return core.Result{}, err
	}
	defer closeFn()
	return d.importCollection(ctx, s, in.Target, r, opts)
}

// openCSV resolves the path or content parameter of a *_from_csv intent.
func openCSV(in core.Intent) (io.Reader, schema.CSVOptions, func(), error) {
	var p csvParams
	if err := decodeParams(in, &p); err != nil {
		return nil, schema.CSVOptions{}, nil, err
	}

	var opts schema.CSVOptions
	if p.Delimiter != "" {
		r, size := utf8.DecodeRuneInString(p.Delimiter)
		if size != len(p.Delimiter) {
			return nil, opts, nil, &core.ParamError{Operation: in.Operation, Param: "delimiter", Reason: "must be a single character"}
		}
		opts.Delimiter = r
	}

	switch {
	case p.Content != "":
		return strings.NewReader(p.Content), opts, func() {}, nil
	case p.Path != "":
		f, err := os.Open(p.Path) //nolint:gosec // reading a user-named CSV file is the point
		if errors.Is(err, fs.ErrNotExist) {
			return nil, opts, nil, &core.ImportError{Target: in.Target, Stage: "read",
				Err: fmt.Errorf("CSV file not found at path: %s", p.Path)}
		}
		if err != nil {
			return nil, opts, nil, &core.ImportError{Target: in.Target, Stage: "read", Err: err}
		}
		return f, opts, func() { _ = f.Close() }, nil
	default:
		return nil, opts, nil, &core.ParamError{Operation: in.Operation, Param: "path", Reason: "path or content is required"}
	}
}

func (d *Dispatcher) importTable(ctx context.Context, a adapter.Adapter, target string, r io.Reader, opts schema.CSVOptions) (core.Result, error) {
	frame, err := schema.ReadCSV(r, opts)
	if err != nil {
		return core.Result{}, &core.ImportError{Target: target, Stage: "read", Err: err}
	}
	syn := schema.Synthesize(frame)
	n, err := d.loadTable(ctx, a, target, syn)
	if err != nil {
		return core.Result{}, err
	}
	return core.ImportResult(n, "Created table '%s' with %d records", target, n), nil
}

// loadTable creates target if it does not exist and bulk-loads the
// synthesized rows. A failed load leaves the created table in place.
func (d *Dispatcher) loadTable(ctx context.Context, a adapter.Adapter, target string, syn *schema.Synthesis) (int64, error) {
	if err := syn.Schema.Validate(); err != nil {
		return 0, &core.ImportError{Target: target, Stage: "create", Err: err}
	}
	if _, err := a.Exec(ctx, createTableSQL(a.Dialect(), target, syn.Schema, true)); err != nil {
		return 0, &core.ImportError{Target: target, Stage: "create", Err: err}
	}
	n, err := a.CopyRows(ctx, target, syn.Schema.Names(), syn.Rows)
	if err != nil {
		return 0, &core.ImportError{Target: target, Stage: "load", Err: err}
	}
	d.logger.Info("table loaded",
		slog.String("table", target),
		slog.Int("columns", len(syn.Schema)),
		slog.Int64("rows", n))
	return n, nil
}

func (d *Dispatcher) importCollection(ctx context.Context, s docstore.Store, target string, r io.Reader, opts schema.CSVOptions) (core.Result, error) {
	frame, err := schema.ReadCSV(r, opts)
	if err != nil {
		return core.Result{}, &core.ImportError{Target: target, Stage: "read", Err: err}
	}
	syn := schema.Synthesize(frame)

	existing, err := s.ListCollections(ctx)
	if err != nil {
		return core.Result{}, &core.ImportError{Target: target, Stage: "create", Err: err}
	}
	if !slices.Contains(existing, target) {
		if err := s.CreateCollection(ctx, target); err != nil {
			return core.Result{}, &core.ImportError{Target: target, Stage: "create", Err: err}
		}
	}

	docs := syn.Records()
	if len(docs) == 0 {
		return core.ImportResult(0, "Created empty collection '%s'", target), nil
	}
	n, err := s.InsertMany(ctx, target, docs)
	if err != nil {
		return core.Result{}, &core.ImportError{Target: target, Stage: "load", Err: err}
	}
	d.logger.Info("collection loaded", slog.String("collection", target), slog.Int64("documents", n))
	return core.ImportResult(n, "Created collection '%s' with %d documents", target, n), nil
}
