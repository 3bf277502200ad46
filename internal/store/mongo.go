// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tomtom215/hikeplanner/internal/features"
	"github.com/tomtom215/hikeplanner/internal/logging"
)

const mongoDuplicateKey = 11000

// Mongo stores documents in a MongoDB collection.
type Mongo struct {
	client     *mongo.Client
	database   string
	collection string

	mu        sync.Mutex
	replacing bool
}

// OpenMongo connects to uri. The connection is lazy; Open pings it.
func OpenMongo(ctx context.Context, uri, database, collection string, timeout time.Duration) (*Mongo, error) {
	opts := options.Client().ApplyURI(uri)
	if timeout > 0 {
		opts.SetTimeout(timeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	return &Mongo{client: client, database: database, collection: collection}, nil
}

// Driver implements Collection.
func (m *Mongo) Driver() string { return DriverMongo }

// Ping implements Collection.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// Close implements Collection.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *Mongo) coll(name string) *mongo.Collection {
	return m.client.Database(m.database).Collection(name)
}

// Count implements Collection.
func (m *Mongo) Count(ctx context.Context) (int64, error) {
	n, err := m.coll(m.collection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", m.collection, err)
	}
	return n, nil
}

// Scan implements Collection.
func (m *Mongo) Scan(ctx context.Context, fn func(*features.Document) error) error {
	cur, err := m.coll(m.collection).Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("scan %s: %w", m.collection, err)
	}
	defer func() {
		if closeErr := cur.Close(ctx); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Failed to close cursor")
		}
	}()

	for cur.Next(ctx) {
		var fields bson.M
		if err := cur.Decode(&fields); err != nil {
			return fmt.Errorf("decode %s document: %w", m.collection, err)
		}
		if err := fn(features.FromFields(fields)); err != nil {
			return err
		}
	}
	return cur.Err()
}

// BeginReplace implements Collection. The staging collection is created
// up front so an empty load still swaps in an empty collection.
func (m *Mongo) BeginReplace(ctx context.Context) (Replacement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replacing {
		return nil, ErrReplaceInProgress
	}

	staging := m.collection + "_staging"
	if err := m.coll(staging).Drop(ctx); err != nil {
		return nil, fmt.Errorf("drop stale staging collection: %w", err)
	}
	if err := m.client.Database(m.database).CreateCollection(ctx, staging); err != nil {
		return nil, fmt.Errorf("create staging collection: %w", err)
	}
	m.replacing = true
	return &mongoReplacement{m: m, staging: staging}, nil
}

type mongoReplacement struct {
	m       *Mongo
	staging string

	mu   sync.Mutex
	done bool
}

func (r *mongoReplacement) closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Insert writes docs unordered. Duplicate _id values are logged and
// skipped; any other write error fails the batch.
func (r *mongoReplacement) Insert(ctx context.Context, docs []*features.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if r.closed() {
		return ErrReplacementClosed
	}

	batch := make([]interface{}, len(docs))
	for i, d := range docs {
		batch[i] = d.Fields()
	}

	_, err := r.m.coll(r.staging).InsertMany(ctx, batch, options.InsertMany().SetOrdered(false))
	if err == nil {
		return nil
	}

	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) && bulkErr.WriteConcernError == nil && onlyDuplicates(bulkErr.WriteErrors) {
		logging.Ctx(ctx).Warn().
			Int("duplicates", len(bulkErr.WriteErrors)).
			Msg("Skipped documents with duplicate _id")
		return nil
	}
	return fmt.Errorf("insert into %s: %w", r.staging, err)
}

func onlyDuplicates(errs []mongo.BulkWriteError) bool {
	for _, e := range errs {
		if e.Code != mongoDuplicateKey {
			return false
		}
	}
	return len(errs) > 0
}

// Commit renames staging over the live collection with dropTarget, which
// MongoDB performs atomically.
func (r *mongoReplacement) Commit(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return ErrReplacementClosed
	}
	defer r.release()

	cmd := bson.D{
		{Key: "renameCollection", Value: r.m.database + "." + r.staging},
		{Key: "to", Value: r.m.database + "." + r.m.collection},
		{Key: "dropTarget", Value: true},
	}
	if err := r.m.client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("swap %s into %s: %w", r.staging, r.m.collection, err)
	}
	return nil
}

func (r *mongoReplacement) Abort(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return nil
	}
	defer r.release()

	if err := r.m.coll(r.staging).Drop(ctx); err != nil {
		return fmt.Errorf("drop staging collection: %w", err)
	}
	return nil
}

func (r *mongoReplacement) release() {
	r.done = true
	r.m.mu.Lock()
	r.m.replacing = false
	r.m.mu.Unlock()
}
