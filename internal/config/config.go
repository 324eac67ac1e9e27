package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/tanisharajgor/Mongo-Exploratory/docstore"
	"github.com/tanisharajgor/Mongo-Exploratory/logging"
	"github.com/tanisharajgor/Mongo-Exploratory/restaurants"
	"github.com/tanisharajgor/Mongo-Exploratory/utils"
)

// RawConfig holds the application configuration
type RawConfig struct {
	Server  RawServerConfig  `yaml:"server"`
	Logging RawLoggingConfig `yaml:"logging"`
	Mongo   RawMongoConfig   `yaml:"mongo"`
	Ingest  RawIngestConfig  `yaml:"ingest"`
}

// RawServerConfig holds server-related configuration
type RawServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`  // seconds
	WriteTimeout int    `yaml:"writeTimeout"` // seconds
}

// RawLoggingConfig holds logging-related configuration
type RawLoggingConfig struct {
	Level       string `yaml:"level"`       // Log level: debug, info, warn, error, fatal
	FileName    string `yaml:"fileName"`    // Path to the log file, or stdout/stderr
	LoggerName  string `yaml:"loggerName"`  // Name identifier for the logger
	ServiceName string `yaml:"serviceName"` // Service name for structured logging
	Console     bool   `yaml:"console"`     // Human readable output on stdout/stderr
}

// RawMongoConfig selects the document store
type RawMongoConfig struct {
	URI            string `yaml:"uri"`
	Database       string `yaml:"database"`
	Collection     string `yaml:"collection"`
	ResetOnStart   bool   `yaml:"resetOnStart"`   // drop the database before serving
	ConnectTimeout int    `yaml:"connectTimeout"` // seconds
	DataFile       string `yaml:"dataFile"`       // snapshot file of the local store
}

// RawIngestConfig holds the bus ingestion configuration
type RawIngestConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Topics          []string `yaml:"topics"`
	ConsumerGroup   string   `yaml:"consumerGroup"`
	KafkaConfFile   string   `yaml:"kafkaConfigFile"`
	ProducerConf    string   `yaml:"producerConfigFile"`
	InsertTimeoutMs int      `yaml:"insertTimeoutMs"`
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() *RawConfig {
	return &RawConfig{
		Server: RawServerConfig{
			Host:         utils.GetEnv("SERVER_HOST", "localhost"),
			Port:         utils.GetEnvInt("SERVER_PORT", 4477),
			ReadTimeout:  utils.GetEnvInt("SERVER_READ_TIMEOUT", 10),
			WriteTimeout: utils.GetEnvInt("SERVER_WRITE_TIMEOUT", 10),
		},
		Logging: RawLoggingConfig{
			Level:       utils.GetEnv("LOG_LEVEL", "info"),
			FileName:    utils.GetEnv("LOG_FILE_NAME", logging.SinkStderr),
			LoggerName:  utils.GetEnv("LOG_LOGGER_NAME", "main"),
			ServiceName: utils.GetEnv("LOG_SERVICE_NAME", "restaurants"),
			Console:     utils.GetEnvBool("LOG_CONSOLE", false),
		},
		Mongo: RawMongoConfig{
			URI:            utils.GetEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:       utils.GetEnv("MONGO_DATABASE", "explore_mongo"),
			Collection:     utils.GetEnv("MONGO_COLLECTION", restaurants.CollectionName),
			ResetOnStart:   utils.GetEnvBool("MONGO_RESET_ON_START", false),
			ConnectTimeout: utils.GetEnvInt("MONGO_CONNECT_TIMEOUT", 10),
			DataFile:       utils.GetEnv("MONGO_DATA_FILE", ""),
		},
		Ingest: RawIngestConfig{
			Enabled:         utils.GetEnvBool("INGEST_ENABLED", false),
			Topics:          utils.SplitList(utils.GetEnv("INGEST_TOPICS", "restaurants")),
			ConsumerGroup:   utils.GetEnv("INGEST_CONSUMER_GROUP", "restaurants-ingest"),
			KafkaConfFile:   utils.GetEnv("INGEST_KAFKA_CONFIG_FILE", "kafka-consumer.yaml"),
			ProducerConf:    utils.GetEnv("INGEST_PRODUCER_CONFIG_FILE", "kafka-producer.yaml"),
			InsertTimeoutMs: utils.GetEnvInt("INGEST_INSERT_TIMEOUT_MS", 10000),
		},
	}
}

// LoadConfigFromFile loads configuration from a YAML file with optional
// environment variable overrides. Keys missing from the file keep the
// environment/default values.
func LoadConfigFromFile(configPath string) (*RawConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config file %s", configPath)
	}

	config := LoadConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(err, "error parsing YAML config file %s", configPath)
	}

	overrideWithEnvVars(config)
	return config, nil
}

// LoadConfigWithDefaults loads configuration from file if it exists, falling back to environment variables and defaults
func LoadConfigWithDefaults(configPath string) *RawConfig {
	if config, err := LoadConfigFromFile(configPath); err == nil {
		return config
	}
	return LoadConfig()
}

// overrideWithEnvVars overrides config values with environment variables if they are set
func overrideWithEnvVars(config *RawConfig) {
	overrideServerConfig(&config.Server)
	overrideLoggingConfig(&config.Logging)
	overrideMongoConfig(&config.Mongo)
	overrideIngestConfig(&config.Ingest)
}

func overrideServerConfig(server *RawServerConfig) {
	if host := utils.GetEnv("SERVER_HOST", ""); host != "" {
		server.Host = host
	}
	if port := utils.GetEnvInt("SERVER_PORT", -1); port != -1 {
		server.Port = port
	}
	if readTimeout := utils.GetEnvInt("SERVER_READ_TIMEOUT", -1); readTimeout != -1 {
		server.ReadTimeout = readTimeout
	}
	if writeTimeout := utils.GetEnvInt("SERVER_WRITE_TIMEOUT", -1); writeTimeout != -1 {
		server.WriteTimeout = writeTimeout
	}
}

func overrideLoggingConfig(logging *RawLoggingConfig) {
	if level := utils.GetEnv("LOG_LEVEL", ""); level != "" {
		logging.Level = level
	}
	if fileName := utils.GetEnv("LOG_FILE_NAME", ""); fileName != "" {
		logging.FileName = fileName
	}
	if loggerName := utils.GetEnv("LOG_LOGGER_NAME", ""); loggerName != "" {
		logging.LoggerName = loggerName
	}
	if serviceName := utils.GetEnv("LOG_SERVICE_NAME", ""); serviceName != "" {
		logging.ServiceName = serviceName
	}
	if _, ok := os.LookupEnv("LOG_CONSOLE"); ok {
		logging.Console = utils.GetEnvBool("LOG_CONSOLE", logging.Console)
	}
}

func overrideMongoConfig(mongo *RawMongoConfig) {
	if uri := utils.GetEnv("MONGO_URI", ""); uri != "" {
		mongo.URI = uri
	}
	if database := utils.GetEnv("MONGO_DATABASE", ""); database != "" {
		mongo.Database = database
	}
	if collection := utils.GetEnv("MONGO_COLLECTION", ""); collection != "" {
		mongo.Collection = collection
	}
	if _, ok := os.LookupEnv("MONGO_RESET_ON_START"); ok {
		mongo.ResetOnStart = utils.GetEnvBool("MONGO_RESET_ON_START", mongo.ResetOnStart)
	}
	if timeout := utils.GetEnvInt("MONGO_CONNECT_TIMEOUT", -1); timeout != -1 {
		mongo.ConnectTimeout = timeout
	}
	if dataFile := utils.GetEnv("MONGO_DATA_FILE", ""); dataFile != "" {
		mongo.DataFile = dataFile
	}
}

func overrideIngestConfig(ingest *RawIngestConfig) {
	if _, ok := os.LookupEnv("INGEST_ENABLED"); ok {
		ingest.Enabled = utils.GetEnvBool("INGEST_ENABLED", ingest.Enabled)
	}
	if topics := utils.GetEnv("INGEST_TOPICS", ""); topics != "" {
		ingest.Topics = utils.SplitList(topics)
	}
	if group := utils.GetEnv("INGEST_CONSUMER_GROUP", ""); group != "" {
		ingest.ConsumerGroup = group
	}
	if file := utils.GetEnv("INGEST_KAFKA_CONFIG_FILE", ""); file != "" {
		ingest.KafkaConfFile = file
	}
	if file := utils.GetEnv("INGEST_PRODUCER_CONFIG_FILE", ""); file != "" {
		ingest.ProducerConf = file
	}
	if timeout := utils.GetEnvInt("INGEST_INSERT_TIMEOUT_MS", -1); timeout != -1 {
		ingest.InsertTimeoutMs = timeout
	}
}

// ConvertToLoggerConfig converts RawLoggingConfig to logging.LoggerConfig
func (cfg RawLoggingConfig) ConvertToLoggerConfig() logging.LoggerConfig {
	return logging.LoggerConfig{
		Level:       logging.ParseLevel(cfg.Level),
		FilePath:    cfg.FileName,
		LoggerName:  cfg.LoggerName,
		ServiceName: cfg.ServiceName,
		Console:     cfg.Console,
	}
}

// StoreConfig converts RawMongoConfig to the document store configuration
func (cfg RawMongoConfig) StoreConfig() docstore.Config {
	return docstore.Config{
		URI:            cfg.URI,
		Database:       cfg.Database,
		ConnectTimeout: time.Duration(cfg.ConnectTimeout) * time.Second,
		DataFile:       cfg.DataFile,
	}
}

// InsertTimeout returns the per-message insert timeout
func (cfg RawIngestConfig) InsertTimeout() time.Duration {
	return time.Duration(cfg.InsertTimeoutMs) * time.Millisecond
}

// Validate reports configuration values that would prevent startup
func (cfg *RawConfig) Validate() error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Mongo.Database == "" {
		return errors.New("mongo.database is required")
	}
	if cfg.Mongo.Collection == "" {
		return errors.New("mongo.collection is required")
	}
	if cfg.Ingest.Enabled && len(cfg.Ingest.Topics) == 0 {
		return errors.New("ingest.topics is required when ingestion is enabled")
	}
	return nil
}
