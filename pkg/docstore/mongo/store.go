// Package mongo implements docstore.Store on top of the official MongoDB
// Go driver.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/leapstack-labs/dbpilot/pkg/core"
	"github.com/leapstack-labs/dbpilot/pkg/docstore"
)

// DefaultURI is used when no connection string is configured.
const DefaultURI = "mongodb://localhost:27017/"

// DefaultTimeout bounds server selection and the initial ping.
const DefaultTimeout = 10 * time.Second

// Store implements docstore.Store for MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// New creates an unconnected store.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{logger: logger}
}

// NewWithDatabase wraps an already connected database handle.
func NewWithDatabase(db *mongo.Database, logger *slog.Logger) *Store {
	s := New(logger)
	s.db = db
	s.client = db.Client()
	return s
}

// Connect opens a client and pings the server.
func (s *Store) Connect(ctx context.Context, cfg core.DocumentConfig) error {
	uri := cfg.URI
	if uri == "" {
		uri = DefaultURI
	}
	name := cfg.Database
	if name == "" {
		name = docstore.DefaultDatabase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	s.logger.Debug("connecting to mongodb", slog.String("database", name))

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to open mongodb connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s.client = client
	s.db = client.Database(name)
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	s.logger.Debug("closing mongodb connection")
	err := s.client.Disconnect(ctx)
	s.client = nil
	s.db = nil
	return err
}

// ListCollections returns collection names, sorted.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, core.ErrNotConnected
	}
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	sort.Strings(names)
	return names, nil
}

// CreateCollection creates an empty collection.
func (s *Store) CreateCollection(ctx context.Context, name string) error {
	if s.db == nil {
		return core.ErrNotConnected
	}
	if err := s.db.CreateCollection(ctx, name); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// RenameCollection renames a collection through the admin database.
func (s *Store) RenameCollection(ctx context.Context, from, to string) error {
	if s.db == nil {
		return core.ErrNotConnected
	}
	cmd := bson.D{
		{Key: "renameCollection", Value: s.db.Name() + "." + from},
		{Key: "to", Value: s.db.Name() + "." + to},
	}
	if err := s.client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("failed to rename collection: %w", err)
	}
	return nil
}

// InsertOne inserts one document and returns its _id as text.
func (s *Store) InsertOne(ctx context.Context, collection string, doc core.Document) (string, error) {
	if s.db == nil {
		return "", core.ErrNotConnected
	}
	d, err := toDocument(doc)
	if err != nil {
		return "", err
	}
	res, err := s.db.Collection(collection).InsertOne(ctx, d)
	if err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}
	return formatID(res.InsertedID), nil
}

// InsertMany inserts documents in one batch.
func (s *Store) InsertMany(ctx context.Context, collection string, docs []core.Document) (int64, error) {
	if s.db == nil {
		return 0, core.ErrNotConnected
	}
	if len(docs) == 0 {
		return 0, nil
	}
	batch := make([]any, len(docs))
	for i, doc := range docs {
		d, err := toDocument(doc)
		if err != nil {
			return 0, fmt.Errorf("document %d: %w", i+1, err)
		}
		batch[i] = d
	}
	res, err := s.db.Collection(collection).InsertMany(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("failed to insert documents: %w", err)
	}
	return int64(len(res.InsertedIDs)), nil
}

// Find returns up to limit matching documents.
func (s *Store) Find(ctx context.Context, collection string, filter core.Document, limit int64) (*core.Table, error) {
	if s.db == nil {
		return nil, core.ErrNotConnected
	}
	f, err := toFilter(filter)
	if err != nil {
		return nil, err
	}
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.db.Collection(collection).Find(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find documents: %w", err)
	}
	return drain(ctx, cur)
}

// Count returns the number of matching documents.
func (s *Store) Count(ctx context.Context, collection string, filter core.Document) (int64, error) {
	if s.db == nil {
		return 0, core.ErrNotConnected
	}
	f, err := toFilter(filter)
	if err != nil {
		return 0, err
	}
	n, err := s.db.Collection(collection).CountDocuments(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// UpdateMany applies update to every matching document.
func (s *Store) UpdateMany(ctx context.Context, collection string, filter, update core.Document) (int64, error) {
	if s.db == nil {
		return 0, core.ErrNotConnected
	}
	f, err := toFilter(filter)
	if err != nil {
		return 0, err
	}
	u, err := toDocument(update)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Collection(collection).UpdateMany(ctx, f, u)
	if err != nil {
		return 0, fmt.Errorf("failed to update documents: %w", err)
	}
	return res.ModifiedCount, nil
}

// DeleteMany removes every matching document.
func (s *Store) DeleteMany(ctx context.Context, collection string, filter core.Document) (int64, error) {
	if s.db == nil {
		return 0, core.ErrNotConnected
	}
	f, err := toFilter(filter)
	if err != nil {
		return 0, err
	}
	res, err := s.db.Collection(collection).DeleteMany(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("failed to delete documents: %w", err)
	}
	return res.DeletedCount, nil
}

// Aggregate runs a pipeline and returns the output documents.
func (s *Store) Aggregate(ctx context.Context, collection string, pipeline []any) (*core.Table, error) {
	if s.db == nil {
		return nil, core.ErrNotConnected
	}
	stages := make(bson.A, len(pipeline))
	for i, stage := range pipeline {
		v, err := toBSON(stage)
		if err != nil {
			return nil, fmt.Errorf("pipeline stage %d: %w", i+1, err)
		}
		stages[i] = v
	}
	cur, err := s.db.Collection(collection).Aggregate(ctx, stages)
	if err != nil {
		return nil, fmt.Errorf("failed to run aggregation: %w", err)
	}
	return drain(ctx, cur)
}

func drain(ctx context.Context, cur *mongo.Cursor) (*core.Table, error) {
	defer func() { _ = cur.Close(ctx) }()

	var docs []bson.D
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	return documentsTable(docs), nil
}

// Ensure Store implements docstore.Store interface
var _ docstore.Store = (*Store)(nil)
