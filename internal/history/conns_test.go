package history

import (
	"context"

	"github.com/leapstack-labs/dbpilot/pkg/adapter"
	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/leapstack-labs/dbpilot/pkg/docstore"
)

// docsOnly serves a document store and no relational backend.
type docsOnly struct {
	store docstore.Store
}

func (c docsOnly) Relational(context.Context) (adapter.Adapter, error) {
	return nil, core.ErrNotConnected
}

func (c docsOnly) Document(context.Context) (docstore.Store, error) {
	return c.store, nil
}
