// Package ingest inserts restaurant documents arriving on the message bus.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tanisharajgor/Mongo-Exploratory/logging"
	"github.com/tanisharajgor/Mongo-Exploratory/messagebus"
	"github.com/tanisharajgor/Mongo-Exploratory/utils"
)

// Outcome labels what happened to one message.
type Outcome string

const (
	OutcomeInserted Outcome = "inserted"
	// OutcomeSkipped marks a message that could not be decoded. It is
	// committed so it is not redelivered.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed marks a decoded document the store rejected. It is
	// left uncommitted.
	OutcomeFailed Outcome = "failed"
)

// Inserter stores one document.
type Inserter interface {
	Insert(ctx context.Context, doc interface{}) (interface{}, error)
}

// Recorder observes message outcomes, e.g. for metrics.
type Recorder interface {
	RecordIngest(topic string, outcome Outcome)
}

// Config holds configuration for the ingester
type Config struct {
	Topics        []string
	InsertTimeout time.Duration
}

// Stats counts messages by outcome since Start.
type Stats struct {
	Received int64 `json:"received"`
	Inserted int64 `json:"inserted"`
	Skipped  int64 `json:"skipped"`
	Failed   int64 `json:"failed"`
}

// Ingester decodes Extended JSON or protobuf messages and inserts them, committing
// each message once it is stored or known to be undecodable.
type Ingester struct {
	consumer messagebus.Consumer
	inserter Inserter
	recorder Recorder
	config   Config
	logger   logging.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc

	received atomic.Int64
	inserted atomic.Int64
	skipped  atomic.Int64
	failed   atomic.Int64
}

// NewIngester creates an ingester. recorder may be nil.
func NewIngester(consumer messagebus.Consumer, inserter Inserter, config Config, logger logging.Logger, recorder Recorder) *Ingester {
	if config.InsertTimeout <= 0 {
		config.InsertTimeout = 10 * time.Second
	}
	return &Ingester{
		consumer: consumer,
		inserter: inserter,
		recorder: recorder,
		config:   config,
		logger:   logger.WithField("component", "ingest"),
	}
}

// Start registers the message handler and subscribes to the configured topics
func (i *Ingester) Start() error {
	i.logger.Infow("Starting ingester", "topics", i.config.Topics)

	i.mu.Lock()
	i.ctx, i.cancel = context.WithCancel(context.Background())
	i.mu.Unlock()

	i.consumer.OnMessage(i.handle)
	if err := i.consumer.Subscribe(i.config.Topics); err != nil {
		i.logger.Errorw("Failed to subscribe to topics", "topics", i.config.Topics, "error", err)
		return fmt.Errorf("failed to subscribe to topics: %w", err)
	}
	return nil
}

// Stop closes the consumer, which waits for the message being handled
func (i *Ingester) Stop() error {
	err := i.consumer.Close()

	i.mu.Lock()
	if i.cancel != nil {
		i.cancel()
	}
	i.mu.Unlock()

	if err != nil {
		i.logger.Errorw("Error closing consumer", "error", err)
		return err
	}
	s := i.Stats()
	i.logger.Infow("Ingester stopped", "received", s.Received, "inserted", s.Inserted, "skipped", s.Skipped, "failed", s.Failed)
	return nil
}

// Stats returns a snapshot of the counters
func (i *Ingester) Stats() Stats {
	return Stats{
		Received: i.received.Load(),
		Inserted: i.inserted.Load(),
		Skipped:  i.skipped.Load(),
		Failed:   i.failed.Load(),
	}
}

func (i *Ingester) baseContext() context.Context {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.ctx == nil {
		return context.Background()
	}
	return i.ctx
}

func (i *Ingester) handle(message *messagebus.Message) {
	if message == nil {
		return
	}
	i.received.Add(1)

	traceID := utils.ExtractTraceID(message.Headers)
	ctx := utils.WithTraceID(i.baseContext(), traceID)
	msgLogger := utils.WithTraceLogger(i.logger, ctx).WithFields(logging.Fields{
		"topic":     message.Topic,
		"partition": message.Partition,
		"offset":    message.Offset,
	})
	msgLogger.Debugw("Received message", "size", len(message.Value))

	doc, err := DecodeDocument(message)
	if err != nil {
		msgLogger.Warnw("Skipping undecodable message", "error", err)
		i.skipped.Add(1)
		i.record(message.Topic, OutcomeSkipped)
		i.commit(ctx, message, msgLogger)
		return
	}

	insertCtx, cancel := context.WithTimeout(ctx, i.config.InsertTimeout)
	defer cancel()
	id, err := i.inserter.Insert(insertCtx, doc)
	if err != nil {
		msgLogger.Errorw("Insert failed, message left uncommitted", "error", err)
		i.failed.Add(1)
		i.record(message.Topic, OutcomeFailed)
		return
	}

	i.inserted.Add(1)
	i.record(message.Topic, OutcomeInserted)
	msgLogger.Debugw("Inserted document", "id", id)
	i.commit(ctx, message, msgLogger)
}

func (i *Ingester) commit(ctx context.Context, message *messagebus.Message, msgLogger logging.Logger) {
	if err := i.consumer.Commit(ctx, message); err != nil {
		msgLogger.Warnw("Failed to commit message", "error", err)
	}
}

func (i *Ingester) record(topic string, outcome Outcome) {
	if i.recorder != nil {
		i.recorder.RecordIngest(topic, outcome)
	}
}
