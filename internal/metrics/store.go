package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tanisharajgor/Mongo-Exploratory/docstore"
	"github.com/tanisharajgor/Mongo-Exploratory/ingest"
	"github.com/tanisharajgor/Mongo-Exploratory/pipeline"
)

var (
	storeOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Document store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"collection", "operation", "outcome"},
	)

	ingestMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_messages_total",
			Help:      "Bus messages handled by the ingester, by outcome",
		},
		[]string{"topic", "outcome"},
	)
)

// InstrumentedCollection times every call of the wrapped collection.
type InstrumentedCollection struct {
	next docstore.Collection
}

// InstrumentCollection wraps coll with latency metrics
func InstrumentCollection(coll docstore.Collection) *InstrumentedCollection {
	return &InstrumentedCollection{next: coll}
}

func (c *InstrumentedCollection) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	storeOperationDuration.WithLabelValues(c.next.Name(), op, outcome).Observe(time.Since(start).Seconds())
}

func (c *InstrumentedCollection) Name() string {
	return c.next.Name()
}

func (c *InstrumentedCollection) InsertOne(ctx context.Context, doc interface{}) (interface{}, error) {
	start := time.Now()
	id, err := c.next.InsertOne(ctx, doc)
	c.observe("insert_one", start, err)
	return id, err
}

func (c *InstrumentedCollection) CountDocuments(ctx context.Context, filter pipeline.Filter) (int64, error) {
	start := time.Now()
	n, err := c.next.CountDocuments(ctx, filter)
	c.observe("count_documents", start, err)
	return n, err
}

func (c *InstrumentedCollection) Aggregate(ctx context.Context, p pipeline.Pipeline, results interface{}) error {
	start := time.Now()
	err := c.next.Aggregate(ctx, p, results)
	c.observe("aggregate", start, err)
	return err
}

func (c *InstrumentedCollection) Find(ctx context.Context, filter pipeline.Filter, projection pipeline.Projection, results interface{}) error {
	start := time.Now()
	err := c.next.Find(ctx, filter, projection, results)
	c.observe("find", start, err)
	return err
}

func (c *InstrumentedCollection) EnsureIndex(ctx context.Context, idx pipeline.Index) error {
	start := time.Now()
	err := c.next.EnsureIndex(ctx, idx)
	c.observe("ensure_index", start, err)
	return err
}

// IngestRecorder counts ingested messages by topic and outcome.
type IngestRecorder struct{}

func (IngestRecorder) RecordIngest(topic string, outcome ingest.Outcome) {
	ingestMessagesTotal.WithLabelValues(topic, string(outcome)).Inc()
}

var (
	_ docstore.Collection = (*InstrumentedCollection)(nil)
	_ ingest.Recorder     = IngestRecorder{}
)
