//go:build local
// +build local

package messagebus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// topicMutex serializes offset assignment between producers in one process
var topicMutex sync.Mutex

func baseDir(configMap map[string]any) string {
	dir := GetStringValue(configMap, "local.base.dir", "")
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "restaurants-messagebus")
	}
	return dir
}

func messageFile(topicDir string, offset int64) string {
	return filepath.Join(topicDir, fmt.Sprintf("%010d.json", offset))
}

// LocalProducer file-based implementation for development. Each message is
// one JSON file named after its offset under <base dir>/<topic>.
type LocalProducer struct {
	dir string
}

// NewProducer creates a new local producer
func NewProducer(configMap map[string]any, clientID string) (Producer, error) {
	dir := baseDir(configMap)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create message bus directory: %w", err)
	}
	return &LocalProducer{dir: dir}, nil
}

// Send sends a message to file storage
func (p *LocalProducer) Send(ctx context.Context, message *Message) (int32, int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	topicMutex.Lock()
	defer topicMutex.Unlock()

	message.Timestamp = time.Now()
	message.Partition = 0

	topicDir := filepath.Join(p.dir, message.Topic)
	if err := os.MkdirAll(topicDir, 0755); err != nil {
		return 0, 0, fmt.Errorf("failed to create topic directory: %w", err)
	}
	files, err := os.ReadDir(topicDir)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read topic directory: %w", err)
	}
	message.Offset = int64(len(files))

	data, err := sonic.Marshal(message)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to marshal message: %w", err)
	}
	// written aside and renamed so consumers never see a partial file
	tmp, err := os.CreateTemp(p.dir, ".pending-*")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to write message file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, 0, fmt.Errorf("failed to write message file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, 0, fmt.Errorf("failed to write message file: %w", err)
	}
	if err := os.Rename(tmp.Name(), messageFile(topicDir, message.Offset)); err != nil {
		return 0, 0, fmt.Errorf("failed to write message file: %w", err)
	}
	return message.Partition, message.Offset, nil
}

// Close closes the local producer
func (p *LocalProducer) Close() error {
	return nil
}

// LocalConsumer file-based implementation for development. It starts from
// the first message of every topic it subscribes to.
type LocalConsumer struct {
	dir       string
	interval  time.Duration
	mu        sync.Mutex
	topics    []string
	next      map[string]int64
	committed map[string]int64
	onMessage func(*Message)
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewConsumer creates a new local consumer. The group is ignored as the
// local bus has a single consumer per topic.
func NewConsumer(configMap map[string]any, group string) (Consumer, error) {
	interval := time.Duration(GetIntValue(configMap, "local.poll.interval.ms", 100)) * time.Millisecond
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &LocalConsumer{
		dir:       baseDir(configMap),
		interval:  interval,
		next:      make(map[string]int64),
		committed: make(map[string]int64),
	}, nil
}

// Subscribe replaces the topic set and (re)starts the watcher
func (c *LocalConsumer) Subscribe(topics []string) error {
	c.stopWatcher()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append([]string{}, topics...)
	sort.Strings(c.topics)
	for _, topic := range c.topics {
		if _, ok := c.next[topic]; !ok {
			c.next[topic] = 0
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.runWatcher(ctx, c.done)
	return nil
}

// OnMessage sets a callback for incoming messages
func (c *LocalConsumer) OnMessage(fn func(*Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = fn
}

func (c *LocalConsumer) runWatcher(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.drain(ctx)
		}
	}
}

// drain delivers every available message of every topic, in offset order
func (c *LocalConsumer) drain(ctx context.Context) {
	for ctx.Err() == nil {
		message, fn := c.nextMessage()
		if message == nil {
			return
		}
		if fn != nil {
			fn(message)
		}
	}
}

func (c *LocalConsumer) nextMessage() (*Message, func(*Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, topic := range c.topics {
		offset := c.next[topic]
		data, err := os.ReadFile(messageFile(filepath.Join(c.dir, topic), offset))
		if err != nil {
			continue
		}
		c.next[topic] = offset + 1
		var message Message
		if err := sonic.Unmarshal(data, &message); err != nil {
			continue
		}
		return &message, c.onMessage
	}
	return nil, nil
}

// Commit records the offset in memory; the local bus does not persist it
func (c *LocalConsumer) Commit(ctx context.Context, message *Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if message.Offset+1 > c.committed[message.Topic] {
		c.committed[message.Topic] = message.Offset + 1
	}
	return nil
}

// Committed returns the next uncommitted offset of topic
func (c *LocalConsumer) Committed(topic string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committed[topic]
}

func (c *LocalConsumer) stopWatcher() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// Close closes the local consumer
func (c *LocalConsumer) Close() error {
	c.stopWatcher()
	return nil
}
