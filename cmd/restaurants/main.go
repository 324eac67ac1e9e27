package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tanisharajgor/Mongo-Exploratory/internal/config"
	"github.com/tanisharajgor/Mongo-Exploratory/logging"
	"github.com/tanisharajgor/Mongo-Exploratory/utils"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "restaurants",
	Short:         "Query and load the restaurants collection",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load .env file for local development (ignored in production)
		loadEnvFile()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"path to config.yaml (default $SERVICE_HOME/conf/config.yaml)")
	rootCmd.AddCommand(serveCmd, loadCmd, queryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.RawConfig, error) {
	path := configFile
	if path == "" {
		path = utils.ResolveConfFilePath("config.yaml")
	}
	cfg := config.LoadConfigWithDefaults(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// oneShotConfig turns off what only the long running server should do at
// startup: consuming the bus and dropping the database.
func oneShotConfig(cfg *config.RawConfig) *config.RawConfig {
	cfg.Ingest.Enabled = false
	cfg.Mongo.ResetOnStart = false
	return cfg
}

func initLogger(cfg *config.RawConfig) (logging.Logger, error) {
	logDir := os.Getenv("SERVICE_LOG_DIR")
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, err
		}
		if !filepath.IsAbs(cfg.Logging.FileName) && !isStdSink(cfg.Logging.FileName) {
			cfg.Logging.FileName = filepath.Join(logDir, cfg.Logging.FileName)
		}
	}

	loggerConfig := cfg.Logging.ConvertToLoggerConfig()
	return logging.NewLogger(&loggerConfig)
}

func isStdSink(name string) bool {
	return name == logging.SinkStdout || name == logging.SinkStderr
}

// loadEnvFile loads .env file for local development
// In production (Docker/K8s), environment variables are set directly
func loadEnvFile() {
	if isRunningInContainer() {
		return
	}

	envPaths := []string{
		".env",
		filepath.Join(os.Getenv("SERVICE_HOME"), ".env"),
	}
	for _, envPath := range envPaths {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("Failed to load .env from %s: %v", envPath, err)
			continue
		}
		return
	}
}

// isRunningInContainer detects if the application is running in a container
func isRunningInContainer() bool {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true
	}
	if os.Getenv("CONTAINER") == "true" {
		return true
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}
