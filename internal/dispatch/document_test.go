package dispatch

import (
	"context"
	"testing"

	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_CollectionLifecycle(t *testing.T) {
	d, _, store := newFixture(t)
	ctx := context.Background()

	steps := []struct {
		name    string
		intent  core.Intent
		message string
	}{
		{
			name:    "create collection",
			intent:  intent(core.OpCreateCollection, "users", nil),
			message: "Collection 'users' created successfully",
		},
		{
			name:    "add document",
			intent:  intent(core.OpAddDocument, "users", core.Params{"data": core.Document{{Key: "name", Value: "Ada"}, {Key: "age", Value: int64(36)}}}),
			message: "Document added with ID: doc-1",
		},
		{
			name:    "add another document",
			intent:  intent(core.OpAddDocument, "users", core.Params{"data": core.Document{{Key: "name", Value: "Linus"}, {Key: "age", Value: int64(28)}}}),
			message: "Document added with ID: doc-2",
		},
		{
			name: "update wraps bare fields in $set",
			intent: intent(core.OpUpdateDocument, "users", core.Params{
				"filter": core.Document{{Key: "name", Value: "Ada"}},
				"update": core.Document{{Key: "age", Value: int64(37)}},
			}),
			message: "1 documents updated in collection 'users'",
		},
		{
			name: "update with operators is passed through",
			intent: intent(core.OpUpdateDocument, "users", core.Params{
				"filter": core.Document{{Key: "name", Value: "Linus"}},
				"update": core.Document{{Key: "$set", Value: core.Document{{Key: "team", Value: "kernel"}}}},
			}),
			message: "1 documents updated in collection 'users'",
		},
		{
			name:    "rename collection",
			intent:  intent(core.OpRenameCollection, "users", core.Params{"new_name": "people"}),
			message: "Collection renamed from 'users' to 'people'",
		},
		{
			name:    "delete document",
			intent:  intent(core.OpDeleteDocument, "people", core.Params{"filter": core.Document{{Key: "name", Value: "Linus"}}}),
			message: "1 documents deleted",
		},
	}

	for _, step := range steps {
		res := d.Dispatch(ctx, step.intent)
		require.True(t, res.OK, "%s: %s", step.name, res.Message)
		assert.Equal(t, step.message, res.Message, step.name)
	}

	docs := store.Documents("people")
	require.Len(t, docs, 1)
	age, _ := docs[0].Get("age")
	assert.Equal(t, int64(37), age)

	res := d.Dispatch(ctx, intent(core.OpListCollections, "", nil))
	require.True(t, res.OK)
	assert.Equal(t, []string{"people"}, res.Names)

	res = d.Dispatch(ctx, intent(core.OpCountDocuments, "people", nil))
	require.True(t, res.OK)
	assert.Equal(t, int64(1), res.Count)

	res = d.Dispatch(ctx, intent(core.OpViewCollection, "people", nil))
	require.True(t, res.OK)
	assert.Equal(t, []string{"_id", "name", "age"}, res.Table.Columns)
	assert.Equal(t, [][]any{{"doc-1", "Ada", int64(37)}}, res.Table.Rows)
}

func TestDocument_DeleteRequiresFilter(t *testing.T) {
	d, _, store := newFixture(t)
	ctx := context.Background()
	_, err := store.InsertMany(ctx, "users", []core.Document{{{Key: "name", Value: "Ada"}}})
	require.NoError(t, err)

	for _, params := range []core.Params{nil, {"filter": core.Document{}}, {"filter": "{}"}} {
		res := d.Dispatch(ctx, intent(core.OpDeleteDocument, "users", params))
		assert.False(t, res.OK)
		assert.Contains(t, res.Message, "must not be empty")
	}
	assert.Len(t, store.Documents("users"), 1)
}

func TestDocument_Aggregation(t *testing.T) {
	d, _, store := newFixture(t)
	ctx := context.Background()
	_, err := store.InsertMany(ctx, "orders", []core.Document{
		{{Key: "status", Value: "open"}, {Key: "total", Value: int64(5)}},
		{{Key: "status", Value: "closed"}, {Key: "total", Value: int64(9)}},
	})
	require.NoError(t, err)

	res := d.Dispatch(ctx, intent(core.OpRunAggregation, "orders", core.Params{
		"pipeline": []any{map[string]any{"$match": map[string]any{"status": "open"}}},
	}))
	require.True(t, res.OK, res.Message)
	assert.Equal(t, 1, res.Table.Len())

	// a single stage object is accepted as a one-stage pipeline
	res = d.Dispatch(ctx, intent(core.OpRunAggregation, "orders", core.Params{
		"pipeline": map[string]any{"$match": map[string]any{"status": "archived"}},
	}))
	require.True(t, res.OK, res.Message)
	assert.Equal(t, core.KindMessage, res.Kind)
	assert.Equal(t, "Aggregation returned no results", res.Message)

	res = d.Dispatch(ctx, intent(core.OpRunAggregation, "orders", core.Params{
		"pipeline": []any{map[string]any{"$bogus": map[string]any{}}},
	}))
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "run_aggregation on 'orders' failed")
	assert.Contains(t, res.Message, "$bogus")

	res = d.Dispatch(ctx, intent(core.OpRunAggregation, "orders", nil))
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, `"pipeline"`)
}

func TestDocument_BackendErrors(t *testing.T) {
	d, _, _ := newFixture(t)
	ctx := context.Background()

	require.True(t, d.Dispatch(ctx, intent(core.OpCreateCollection, "a", nil)).OK)

	res := d.Dispatch(ctx, intent(core.OpCreateCollection, "a", nil))
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "already exists")

	res = d.Dispatch(ctx, intent(core.OpRenameCollection, "ghost", core.Params{"new_name": "b"}))
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "source namespace does not exist")
}
