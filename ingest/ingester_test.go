package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/goleak"

	"github.com/tanisharajgor/Mongo-Exploratory/docstore"
	"github.com/tanisharajgor/Mongo-Exploratory/logging"
	"github.com/tanisharajgor/Mongo-Exploratory/messagebus"
	"github.com/tanisharajgor/Mongo-Exploratory/pipeline"
	"github.com/tanisharajgor/Mongo-Exploratory/restaurants"
	"github.com/tanisharajgor/Mongo-Exploratory/utils"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockConsumer delivers messages from a goroutine the way the bus does
// and records commits.
type mockConsumer struct {
	mu        sync.Mutex
	topics    []string
	onMessage func(*messagebus.Message)
	committed []int64
	closed    bool
	subErr    error
	queue     chan *messagebus.Message
	done      chan struct{}
}

func newMockConsumer() *mockConsumer {
	return &mockConsumer{queue: make(chan *messagebus.Message, 16)}
}

func (m *mockConsumer) Subscribe(topics []string) error {
	if m.subErr != nil {
		return m.subErr
	}
	m.mu.Lock()
	m.topics = topics
	fn := m.onMessage
	m.done = make(chan struct{})
	m.mu.Unlock()
	go func() {
		defer close(m.done)
		for msg := range m.queue {
			fn(msg)
		}
	}()
	return nil
}

func (m *mockConsumer) OnMessage(fn func(*messagebus.Message)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onMessage = fn
}

func (m *mockConsumer) Commit(ctx context.Context, message *messagebus.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = append(m.committed, message.Offset)
	return nil
}

func (m *mockConsumer) Close() error {
	m.mu.Lock()
	m.closed = true
	done := m.done
	m.mu.Unlock()
	close(m.queue)
	if done != nil {
		<-done
	}
	return nil
}

func (m *mockConsumer) commits() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64{}, m.committed...)
}

type failingInserter struct{}

func (failingInserter) Insert(ctx context.Context, doc interface{}) (interface{}, error) {
	return nil, errors.New("not primary")
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[Outcome]int
}

func (r *countingRecorder) RecordIngest(topic string, outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[Outcome]int{}
	}
	r.outcomes[outcome]++
}

func TestIngesterInsertsAndCommits(t *testing.T) {
	coll := docstore.NewMemoryStore().Collection(restaurants.CollectionName)
	repo := restaurants.NewRepository(coll, logging.NewMockLogger())
	consumer := newMockConsumer()
	recorder := &countingRecorder{}
	logger := logging.NewMockLoggerWithLevel(logging.DebugLevel)

	ing := NewIngester(consumer, repo, Config{Topics: []string{"restaurants"}}, logger, recorder)
	require.NoError(t, ing.Start())
	assert.Equal(t, []string{"restaurants"}, consumer.topics)

	consumer.queue <- &messagebus.Message{Topic: "restaurants", Offset: 0,
		Value:   []byte(`{"borough":"Bronx","cuisine":"Bakery","address":{"coord":[-73.85,40.84]},"grades":[{"grade":"A","score":{"$numberInt":"5"}}]}`),
		Headers: map[string]string{utils.TraceIDHeader: "trace-42"}}
	consumer.queue <- &messagebus.Message{Topic: "restaurants", Offset: 1, Value: []byte(`not json`)}
	consumer.queue <- &messagebus.Message{Topic: "restaurants", Offset: 2, Value: []byte(`{"_id":"r2","borough":"Bronx"}`)}
	require.NoError(t, ing.Stop())

	assert.Equal(t, Stats{Received: 3, Inserted: 2, Skipped: 1}, ing.Stats())
	assert.Equal(t, []int64{0, 1, 2}, consumer.commits(), "inserted and undecodable messages are committed")
	assert.Equal(t, map[Outcome]int{OutcomeInserted: 2, OutcomeSkipped: 1}, recorder.outcomes)
	assert.True(t, logger.HasLogEntryWithField(logging.DebugLevel, "traceId", "trace-42"))
	assert.True(t, logger.HasLogEntryContaining(logging.WarnLevel, "undecodable"))

	n, err := repo.CountInBorough(context.Background(), "Bronx")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	var docs []bson.M
	require.NoError(t, coll.Find(context.Background(), pipeline.Where(pipeline.Eq{Field: "_id", Value: "r2"}), nil, &docs))
	assert.Len(t, docs, 1)
}

func TestIngesterLeavesFailedInsertsUncommitted(t *testing.T) {
	consumer := newMockConsumer()
	logger := logging.NewMockLogger()
	ing := NewIngester(consumer, failingInserter{}, Config{Topics: []string{"restaurants"}}, logger, nil)
	require.NoError(t, ing.Start())

	consumer.queue <- &messagebus.Message{Topic: "restaurants", Offset: 7, Value: []byte(`{"name":"x"}`)}
	require.NoError(t, ing.Stop())

	assert.Equal(t, Stats{Received: 1, Failed: 1}, ing.Stats())
	assert.Empty(t, consumer.commits())
	assert.True(t, logger.HasLogEntryWithField(logging.ErrorLevel, "error", "not primary"))
	assert.True(t, consumer.closed)
}

func TestIngesterSubscribeError(t *testing.T) {
	consumer := newMockConsumer()
	consumer.subErr = errors.New("unknown topic")
	ing := NewIngester(consumer, failingInserter{}, Config{Topics: []string{"nope"}}, logging.NewMockLogger(), nil)

	err := ing.Start()
	assert.ErrorContains(t, err, "unknown topic")
	require.NoError(t, ing.Stop())
}
