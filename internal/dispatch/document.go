package dispatch

import (
	"context"

	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/leapstack-labs/dbpilot/pkg/docstore"
)

func (d *Dispatcher) runDocument(ctx context.Context, in core.Intent) (core.Result, error) {
	if in.Operation != core.OpListCollections {
		if err := requireTarget(in); err != nil {
			return core.Result{}, err
		}
	}

	s, err := d.conns.Document(ctx)
	if err != nil {
		return core.Result{}, err
	}

	switch in.Operation {
	case core.OpListCollections:
		return listCollections(ctx, s, in)
	case core.OpViewCollection:
		return viewCollection(ctx, s, in)
	case core.OpCountDocuments:
		return countDocuments(ctx, s, in)
	case core.OpAddDocument:
		return addDocument(ctx, s, in)
	case core.OpDeleteDocument:
		return deleteDocument(ctx, s, in)
	case core.OpCreateCollection:
		return createCollection(ctx, s, in)
	case core.OpCreateCollectionFromCSV:
		return d.createCollectionFromCSV(ctx, s, in)
	case core.OpRenameCollection:
		return renameCollection(ctx, s, in)
	case core.OpUpdateDocument:
		return updateDocument(ctx, s, in)
	case core.OpRunAggregation:
		return runAggregation(ctx, s, in)
	default:
		return core.Result{}, &core.UnknownOperationError{Operation: string(in.Operation)}
	}
}

func listCollections(ctx context.Context, s docstore.Store, in core.Intent) (core.Result, error) {
	names, err := s.ListCollections(ctx)
	if err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.NamesResult(names), nil
}

func viewCollection(ctx context.Context, s docstore.Store, in core.Intent) (core.Result, error) {
	var p findParams
	if err := decodeParams(in, &p); err != nil {
		return core.Result{}, err
	}
	filter, err := documentParam(in, "filter", p.Filter)
	if err != nil {
		return core.Result{}, err
	}
	table, err := s.Find(ctx, in.Target, filter, int64(limitOrDefault(p.Limit)))
	if err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.TableResult(table), nil
}

func countDocuments(ctx context.Context, s docstore.Store, in core.Intent) (core.Result, error) {
	var p filterParams
	if err := decodeParams(in, &p); err != nil {
		return core.Result{}, err
	}
	filter, err := documentParam(in, "filter", p.Filter)
	if err != nil {
		return core.Result{}, err
	}
	n, err := s.Count(ctx, in.Target, filter)
	if err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.CountResult(n), nil
}

func addDocument(ctx context.Context, s docstore.Store, in core.Intent) (core.Result, error) {
	var p dataParams
	if err := decodeParams(in, &p); err != nil {
		return core.Result{}, err
	}
	data, err := documentParam(in, "data", p.Data)
	if err != nil {
		return core.Result{}, err
	}
	if data.Len() == 0 {
		return core.Result{}, missing(in, "data")
	}
	id, err := s.InsertOne(ctx, in.Target, data)
	if err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.MessageResult("Document added with ID: %s", id), nil
}

func deleteDocument(ctx context.Context, s docstore.Store, in core.Intent) (core.Result, error) {
	var p filterParams
	if err := decodeParams(in, &p); err != nil {
		return core.Result{}, err
	}
	filter, err := documentParam(in, "filter", p.Filter)
	if err != nil {
		return core.Result{}, err
	}
	if filter.Len() == 0 {
		return core.Result{}, &core.ParamError{Operation: in.Operation, Param: "filter", Reason: "must not be empty"}
	}
	n, err := s.DeleteMany(ctx, in.Target, filter)
	if err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.MessageResult("%d documents deleted", n), nil
}

func createCollection(ctx context.Context, s docstore.Store, in core.Intent) (core.Result, error) {
	if err := s.CreateCollection(ctx, in.Target); err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.MessageResult("Collection '%s' created successfully", in.Target), nil
}

func renameCollection(ctx context.Context, s docstore.Store, in core.Intent) (core.Result, error) {
	var p renameParams
	if err := decodeParams(in, &p); err != nil {
		return core.Result{}, err
	}
	if p.NewName == "" {
		return core.Result{}, missing(in, "new_name")
	}
	if err := s.RenameCollection(ctx, in.Target, p.NewName); err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.MessageResult("Collection renamed from '%s' to '%s'", in.Target, p.NewName), nil
}

func updateDocument(ctx context.Context, s docstore.Store, in core.Intent) (core.Result, error) {
	var p updateDocumentParams
	if err := decodeParams(in, &p); err != nil {
		return core.Result{}, err
	}
	filter, err := documentParam(in, "filter", p.Filter)
	if err != nil {
		return core.Result{}, err
	}
	update, err := documentParam(in, "update", p.Update)
	if err != nil {
		return core.Result{}, err
	}
	if update.Len() == 0 {
		return core.Result{}, missing(in, "update")
	}
	if !docstore.IsUpdateDocument(update) {
		update = core.Document{{Key: "$set", Value: update}}
	}
	n, err := s.UpdateMany(ctx, in.Target, filter, update)
	if err != nil {
		return core.Result{}, execErr(in, err)
	}
	return core.MessageResult("%d documents updated in collection '%s'", n, in.Target), nil
}

func runAggregation(ctx context.Context, s docstore.Store, in core.Intent) (core.Result, error) {
	var p pipelineParams
	if err := decodeParams(in, &p); err != nil {
		return core.Result{}, err
	}
	if stage, ok := core.AsDocument(parseJSONText(p.Pipeline)); ok {
		p.Pipeline = []any{stage}
	}
	pipeline, err := listParam(in, "pipeline", p.Pipeline)
	if err != nil {
		return core.Result{}, err
	}
	if pipeline == nil {
		return core.Result{}, missing(in, "pipeline")
	}
	table, err := s.Aggregate(ctx, in.Target, pipeline)
	if err != nil {
		return core.Result{}, execErr(in, err)
	}
	if table.Len() == 0 {
		return core.MessageResult("Aggregation returned no results"), nil
	}
	return core.TableResult(table), nil
}
