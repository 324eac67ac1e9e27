package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanisharajgor/Mongo-Exploratory/logging"
)

const configFileName = "config.yaml"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), configFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	config := LoadConfig()

	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 4477, config.Server.Port)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "explore_mongo", config.Mongo.Database)
	assert.Equal(t, "restaurants", config.Mongo.Collection)
	assert.False(t, config.Mongo.ResetOnStart)
	assert.False(t, config.Ingest.Enabled)
	assert.Equal(t, []string{"restaurants"}, config.Ingest.Topics)
	assert.NoError(t, config.Validate())
}

func TestLoadConfigWithEnvVars(t *testing.T) {
	t.Setenv("SERVER_HOST", "testhost")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("MONGO_RESET_ON_START", "true")
	t.Setenv("INGEST_TOPICS", "a, b")

	config := LoadConfig()

	assert.Equal(t, "testhost", config.Server.Host)
	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "mongodb://db:27017", config.Mongo.URI)
	assert.True(t, config.Mongo.ResetOnStart)
	assert.Equal(t, []string{"a", "b"}, config.Ingest.Topics)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "test.example.com"
  port: 9000
logging:
  level: "debug"
  fileName: "/tmp/restaurants.log"
mongo:
  database: "nyc"
  resetOnStart: true
  connectTimeout: 3
ingest:
  enabled: true
  topics: ["restaurants-raw"]
`)

	config, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "test.example.com", config.Server.Host)
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, 10, config.Server.ReadTimeout, "keys absent from the file keep their defaults")
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "nyc", config.Mongo.Database)
	assert.Equal(t, "restaurants", config.Mongo.Collection)
	assert.True(t, config.Mongo.ResetOnStart)
	assert.Equal(t, 3*time.Second, config.Mongo.StoreConfig().ConnectTimeout)
	assert.Equal(t, []string{"restaurants-raw"}, config.Ingest.Topics)
}

func TestLoadConfigFromFileEnvOverride(t *testing.T) {
	path := writeConfig(t, "mongo:\n  database: nyc\n  resetOnStart: true\n")
	t.Setenv("MONGO_DATABASE", "override")
	t.Setenv("MONGO_RESET_ON_START", "false")

	config, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "override", config.Mongo.Database)
	assert.False(t, config.Mongo.ResetOnStart)
}

func TestLoadConfigFromFileErrors(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "error reading config file")
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := writeConfig(t, "server: [not, a, map")
	_, err = LoadConfigFromFile(path)
	assert.ErrorContains(t, err, "error parsing YAML config file")
}

func TestLoadConfigWithDefaultsFallsBack(t *testing.T) {
	config := LoadConfigWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 4477, config.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RawConfig)
		wantErr string
	}{
		{"bad port", func(c *RawConfig) { c.Server.Port = 0 }, "invalid server port"},
		{"no database", func(c *RawConfig) { c.Mongo.Database = "" }, "mongo.database"},
		{"no collection", func(c *RawConfig) { c.Mongo.Collection = "" }, "mongo.collection"},
		{"ingest without topics", func(c *RawConfig) { c.Ingest.Enabled = true; c.Ingest.Topics = nil }, "ingest.topics"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := LoadConfig()
			tt.mutate(config)
			assert.ErrorContains(t, config.Validate(), tt.wantErr)
		})
	}
}

func TestConvertToLoggerConfig(t *testing.T) {
	cfg := RawLoggingConfig{Level: "warn", FileName: "stdout", LoggerName: "main", ServiceName: "svc", Console: true}
	got := cfg.ConvertToLoggerConfig()

	assert.Equal(t, logging.LoggerConfig{
		Level:       logging.WarnLevel,
		FilePath:    "stdout",
		LoggerName:  "main",
		ServiceName: "svc",
		Console:     true,
	}, got)
	assert.Equal(t, 1500*time.Millisecond, RawIngestConfig{InsertTimeoutMs: 1500}.InsertTimeout())
}
