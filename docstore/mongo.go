//go:build !local
// +build !local

package docstore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/tanisharajgor/Mongo-Exploratory/pipeline"
)

type MongoDocumentStore struct {
	client *mongo.Client
	dbName string
}

// Open connects to MongoDB at cfg.URI and verifies the connection.
func Open(ctx context.Context, cfg Config) (DocumentStore, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout).SetServerSelectionTimeout(cfg.ConnectTimeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	store := NewMongoDocumentStore(client, cfg.Database)
	if err := store.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return store, nil
}

func NewMongoDocumentStore(client *mongo.Client, dbName string) *MongoDocumentStore {
	return &MongoDocumentStore{client: client, dbName: dbName}
}

func (m *MongoDocumentStore) Collection(name string) Collection {
	return &mongoCollection{coll: m.client.Database(m.dbName).Collection(name)}
}

func (m *MongoDocumentStore) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoDocumentStore) Drop(ctx context.Context) error {
	return m.client.Database(m.dbName).Drop(ctx)
}

func (m *MongoDocumentStore) Close() error {
	return m.client.Disconnect(context.Background())
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) Name() string {
	return c.coll.Name()
}

func (c *mongoCollection) InsertOne(ctx context.Context, document interface{}) (interface{}, error) {
	res, err := c.coll.InsertOne(ctx, document)
	if err != nil {
		return nil, err
	}
	return res.InsertedID, nil
}

func (c *mongoCollection) CountDocuments(ctx context.Context, filter pipeline.Filter) (int64, error) {
	return c.coll.CountDocuments(ctx, filter.BSON())
}

func (c *mongoCollection) Aggregate(ctx context.Context, p pipeline.Pipeline, results interface{}) error {
	cursor, err := c.coll.Aggregate(ctx, p.BSON())
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, results)
}

func (c *mongoCollection) Find(ctx context.Context, filter pipeline.Filter, projection pipeline.Projection, results interface{}) error {
	opts := options.Find()
	if len(projection) > 0 {
		opts.SetProjection(projection.BSON())
	}
	cursor, err := c.coll.Find(ctx, filter.BSON(), opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, results)
}

// EnsureIndex relies on createIndexes being a no-op for an existing
// index with the same keys.
func (c *mongoCollection) EnsureIndex(ctx context.Context, idx pipeline.Index) error {
	_, err := c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: idx.Keys()})
	return err
}
