//go:build !local
// +build !local

package messagebus

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const pollTimeout = 100 * time.Millisecond

// KafkaProducer Kafka implementation for production (default)
type KafkaProducer struct {
	producer *kafka.Producer
}

// producerConfig maps the YAML config onto librdkafka settings
func producerConfig(configMap map[string]any, clientID string) *kafka.ConfigMap {
	if clientID == "" {
		clientID = os.Getenv("HOSTNAME")
	}
	config := &kafka.ConfigMap{}
	config.SetKey("bootstrap.servers", GetStringValue(configMap, "bootstrap.servers", "localhost:9092"))
	config.SetKey("client.id", GetStringValue(configMap, "client.id", clientID))
	config.SetKey("acks", GetStringValue(configMap, "acks", "1"))
	config.SetKey("retries", GetIntValue(configMap, "retries", 3))
	config.SetKey("batch.size", GetIntValue(configMap, "batch.size", 16384))
	config.SetKey("linger.ms", GetIntValue(configMap, "linger.ms", 1))
	config.SetKey("security.protocol", GetStringValue(configMap, "security.protocol", "PLAINTEXT"))
	setIfPresent(config, configMap, "ssl.ca.location")
	setIfPresent(config, configMap, "ssl.certificate.location")
	setIfPresent(config, configMap, "ssl.key.location")
	config.SetKey("enable.ssl.certificate.verification", GetBoolValue(configMap, "enable.ssl.certificate.verification", false))
	return config
}

// consumerConfig maps the YAML config onto librdkafka settings. A non-empty
// group overrides group.id from the file.
func consumerConfig(configMap map[string]any, group string) *kafka.ConfigMap {
	groupID := GetStringValue(configMap, "group.id", "restaurants-ingest")
	if group != "" {
		groupID = group
	}
	config := &kafka.ConfigMap{}
	config.SetKey("bootstrap.servers", GetStringValue(configMap, "bootstrap.servers", "localhost:9092"))
	config.SetKey("group.id", groupID)
	config.SetKey("auto.offset.reset", GetStringValue(configMap, "auto.offset.reset", "earliest"))
	config.SetKey("enable.auto.commit", GetBoolValue(configMap, "enable.auto.commit", false))
	config.SetKey("session.timeout.ms", GetIntValue(configMap, "session.timeout.ms", 6000))
	config.SetKey("fetch.max.bytes", GetIntValue(configMap, "fetch.max.bytes", 1048576))
	config.SetKey("client.id", GetStringValue(configMap, "client.id", groupID+"-"+os.Getenv("HOSTNAME")))
	config.SetKey("security.protocol", GetStringValue(configMap, "security.protocol", "PLAINTEXT"))
	setIfPresent(config, configMap, "ssl.ca.location")
	setIfPresent(config, configMap, "ssl.certificate.location")
	setIfPresent(config, configMap, "ssl.key.location")
	config.SetKey("enable.ssl.certificate.verification", GetBoolValue(configMap, "enable.ssl.certificate.verification", false))
	return config
}

func setIfPresent(config *kafka.ConfigMap, configMap map[string]any, key string) {
	if v := GetStringValue(configMap, key, ""); v != "" {
		config.SetKey(key, v)
	}
}

// NewProducer creates a Kafka producer from a loaded config map
func NewProducer(configMap map[string]any, clientID string) (Producer, error) {
	producer, err := kafka.NewProducer(producerConfig(configMap, clientID))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return &KafkaProducer{producer: producer}, nil
}

func toKafkaMessage(message *Message) *kafka.Message {
	kafkaMessage := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &message.Topic,
			Partition: kafka.PartitionAny,
		},
		Value:     message.Value,
		Timestamp: message.Timestamp,
	}
	if message.Key != "" {
		kafkaMessage.Key = []byte(message.Key)
	}
	for key, value := range message.Headers {
		kafkaMessage.Headers = append(kafkaMessage.Headers, kafka.Header{
			Key:   key,
			Value: []byte(value),
		})
	}
	return kafkaMessage
}

func fromKafkaMessage(kafkaMessage *kafka.Message) *Message {
	message := &Message{
		Key:       string(kafkaMessage.Key),
		Value:     kafkaMessage.Value,
		Headers:   make(map[string]string, len(kafkaMessage.Headers)),
		Partition: kafkaMessage.TopicPartition.Partition,
		Offset:    int64(kafkaMessage.TopicPartition.Offset),
		Timestamp: kafkaMessage.Timestamp,
	}
	if kafkaMessage.TopicPartition.Topic != nil {
		message.Topic = *kafkaMessage.TopicPartition.Topic
	}
	for _, header := range kafkaMessage.Headers {
		message.Headers[header.Key] = string(header.Value)
	}
	return message
}

// Send sends a message to Kafka and waits for the delivery report
func (p *KafkaProducer) Send(ctx context.Context, message *Message) (int32, int64, error) {
	message.Timestamp = time.Now()

	deliveryChan := make(chan kafka.Event, 1)
	if err := p.producer.Produce(toKafkaMessage(message), deliveryChan); err != nil {
		return 0, 0, fmt.Errorf("failed to produce message: %w", err)
	}

	select {
	case event := <-deliveryChan:
		msg, ok := event.(*kafka.Message)
		if !ok {
			return 0, 0, fmt.Errorf("unexpected event type %T", event)
		}
		if msg.TopicPartition.Error != nil {
			return 0, 0, fmt.Errorf("delivery failed: %w", msg.TopicPartition.Error)
		}
		return msg.TopicPartition.Partition, int64(msg.TopicPartition.Offset), nil
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	}
}

// Close flushes outstanding messages and closes the Kafka producer
func (p *KafkaProducer) Close() error {
	p.producer.Flush(5000)
	p.producer.Close()
	return nil
}

// KafkaConsumer Kafka implementation for production
type KafkaConsumer struct {
	consumer  *kafka.Consumer
	mu        sync.Mutex
	onMessage func(*Message)
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewConsumer creates a Kafka consumer from a loaded config map.
// If group is not empty, it overrides the group.id from config.
func NewConsumer(configMap map[string]any, group string) (Consumer, error) {
	consumer, err := kafka.NewConsumer(consumerConfig(configMap, group))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}
	return &KafkaConsumer{consumer: consumer}, nil
}

// Subscribe subscribes to topics and starts the poll loop
func (c *KafkaConsumer) Subscribe(topics []string) error {
	if err := c.consumer.SubscribeTopics(topics, nil); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		c.done = make(chan struct{})
		go c.pollLoop(ctx, c.done)
	}
	return nil
}

// OnMessage sets a callback for incoming messages
func (c *KafkaConsumer) OnMessage(fn func(*Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = fn
}

func (c *KafkaConsumer) handler() func(*Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onMessage
}

func (c *KafkaConsumer) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for ctx.Err() == nil {
		message, err := c.poll(pollTimeout)
		if err != nil {
			if kafkaErr, ok := err.(kafka.Error); ok && kafkaErr.IsFatal() {
				return
			}
			continue
		}
		if message == nil {
			continue
		}
		if fn := c.handler(); fn != nil {
			fn(message)
		}
	}
}

// poll reads one message, returning nil on timeout
func (c *KafkaConsumer) poll(timeout time.Duration) (*Message, error) {
	kafkaMessage, err := c.consumer.ReadMessage(timeout)
	if err != nil {
		if kafkaErr, ok := err.(kafka.Error); ok && kafkaErr.Code() == kafka.ErrTimedOut {
			return nil, nil
		}
		return nil, err
	}
	return fromKafkaMessage(kafkaMessage), nil
}

// Commit manually commits the offset after message
func (c *KafkaConsumer) Commit(ctx context.Context, message *Message) error {
	topicPartition := kafka.TopicPartition{
		Topic:     &message.Topic,
		Partition: message.Partition,
		Offset:    kafka.Offset(message.Offset + 1),
	}
	_, err := c.consumer.CommitOffsets([]kafka.TopicPartition{topicPartition})
	return err
}

// Close stops the poll loop and closes the Kafka consumer
func (c *KafkaConsumer) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return c.consumer.Close()
}
