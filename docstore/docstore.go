package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/tanisharajgor/Mongo-Exploratory/pipeline"
)

// DocumentStore is a handle on one database of a document store.
// Methods are modeled after the MongoDB operations the service needs.
type DocumentStore interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	// Drop removes the database with every collection and index in it.
	Drop(ctx context.Context) error
	Close() error
}

// Collection is a named collection of documents. Implementations are safe
// for concurrent use.
type Collection interface {
	Name() string
	InsertOne(ctx context.Context, document interface{}) (insertedID interface{}, err error)
	CountDocuments(ctx context.Context, filter pipeline.Filter) (int64, error)
	// Aggregate runs p and decodes every output document into results,
	// which must be a pointer to a slice.
	Aggregate(ctx context.Context, p pipeline.Pipeline, results interface{}) error
	// Find decodes the documents matching filter into results. An empty
	// projection returns whole documents.
	Find(ctx context.Context, filter pipeline.Filter, projection pipeline.Projection, results interface{}) error
	// EnsureIndex creates idx unless an identical index already exists.
	EnsureIndex(ctx context.Context, idx pipeline.Index) error
}

// Config selects and configures the backend returned by Open.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	// DataFile is the snapshot file of the local backend. Empty keeps
	// the local store in memory only.
	DataFile string
}

var (
	// ErrNoGeoIndex is returned for a proximity query on a field without a 2dsphere index.
	ErrNoGeoIndex = errors.New("unable to find index for $geoNear query")
	// ErrGeoNotAllowed is returned when a proximity condition appears inside
	// an aggregation $match or a count.
	ErrGeoNotAllowed = errors.New("$geoNear, $near, and $nearSphere are not allowed in this context")
	// ErrInvalidResults is returned when results is not a pointer to a slice.
	ErrInvalidResults = errors.New("results argument must be a pointer to a slice")
)
