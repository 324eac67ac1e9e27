package messagebus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanisharajgor/Mongo-Exploratory/utils"
)

func TestLoadConfigMap(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "conf"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "conf", "kafka-consumer.yaml"),
		[]byte("bootstrap.servers: broker:9092\nsession.timeout.ms: 9000\nenable.auto.commit: true\n"), 0644))
	t.Setenv("SERVICE_HOME", home)

	cfg := LoadConfigMap("kafka-consumer.yaml")
	assert.Equal(t, "broker:9092", GetStringValue(cfg, "bootstrap.servers", "localhost:9092"))
	assert.Equal(t, 9000, GetIntValue(cfg, "session.timeout.ms", 6000))
	assert.True(t, GetBoolValue(cfg, "enable.auto.commit", false))

	assert.Empty(t, LoadConfigMap("missing.yaml"))
	assert.Empty(t, LoadConfigMap(""))
}

func TestConfigValueDefaults(t *testing.T) {
	cfg := map[string]any{"retries": "five", "linger.ms": int64(7), "batch.size": 2.0, "acks": 1}

	assert.Equal(t, 3, GetIntValue(cfg, "retries", 3), "wrong type falls back")
	assert.Equal(t, 7, GetIntValue(cfg, "linger.ms", 1))
	assert.Equal(t, 2, GetIntValue(cfg, "batch.size", 1))
	assert.Equal(t, "all", GetStringValue(cfg, "acks", "all"))
	assert.False(t, GetBoolValue(cfg, "missing", false))
}

func TestWithTraceHeader(t *testing.T) {
	msg := WithTraceHeader(context.Background(), &Message{Topic: "t"})
	assert.Nil(t, msg.Headers)

	ctx := utils.WithTraceID(context.Background(), "trace-1")
	msg = WithTraceHeader(ctx, &Message{Topic: "t"})
	assert.Equal(t, "trace-1", msg.Headers[utils.TraceIDHeader])
}
