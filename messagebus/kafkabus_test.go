//go:build !local
// +build !local

package messagebus

import (
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaImplementsInterfaces(t *testing.T) {
	var _ Producer = &KafkaProducer{}
	var _ Consumer = &KafkaConsumer{}
}

func TestConsumerConfig(t *testing.T) {
	cfg := consumerConfig(map[string]any{
		"bootstrap.servers": "broker:9092",
		"group.id":          "from-file",
		"ssl.ca.location":   "/etc/ca.pem",
	}, "")

	v, err := cfg.Get("bootstrap.servers", nil)
	require.NoError(t, err)
	assert.Equal(t, "broker:9092", v)
	v, _ = cfg.Get("group.id", nil)
	assert.Equal(t, "from-file", v)
	v, _ = cfg.Get("enable.auto.commit", nil)
	assert.Equal(t, false, v)
	v, _ = cfg.Get("ssl.ca.location", nil)
	assert.Equal(t, "/etc/ca.pem", v)
	v, _ = cfg.Get("ssl.key.location", "unset")
	assert.Equal(t, "unset", v)

	override := consumerConfig(map[string]any{"group.id": "from-file"}, "cli-group")
	v, _ = override.Get("group.id", nil)
	assert.Equal(t, "cli-group", v)
}

func TestProducerConfigDefaults(t *testing.T) {
	cfg := producerConfig(map[string]any{}, "loader")

	v, _ := cfg.Get("bootstrap.servers", nil)
	assert.Equal(t, "localhost:9092", v)
	v, _ = cfg.Get("client.id", nil)
	assert.Equal(t, "loader", v)
	v, _ = cfg.Get("retries", nil)
	assert.Equal(t, 3, v)
}

func TestKafkaMessageConversion(t *testing.T) {
	msg := &Message{
		Topic:     "restaurants",
		Key:       "30075445",
		Value:     []byte(`{"name":"x"}`),
		Headers:   map[string]string{"X-Trace-Id": "abc"},
		Timestamp: time.Unix(1700000000, 0),
	}

	km := toKafkaMessage(msg)
	require.NotNil(t, km.TopicPartition.Topic)
	assert.Equal(t, "restaurants", *km.TopicPartition.Topic)
	assert.Equal(t, kafka.PartitionAny, km.TopicPartition.Partition)
	assert.Equal(t, []byte("30075445"), km.Key)

	km.TopicPartition.Partition = 2
	km.TopicPartition.Offset = 41
	back := fromKafkaMessage(km)
	assert.Equal(t, msg.Topic, back.Topic)
	assert.Equal(t, msg.Key, back.Key)
	assert.Equal(t, msg.Value, back.Value)
	assert.Equal(t, msg.Headers, back.Headers)
	assert.EqualValues(t, 2, back.Partition)
	assert.EqualValues(t, 41, back.Offset)

	assert.Nil(t, toKafkaMessage(&Message{Topic: "t"}).Key)
}
