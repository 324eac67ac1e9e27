package utils

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// GetEnv gets an environment variable with a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets an integer environment variable with a default value
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvBool gets a boolean environment variable with a default value
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// SplitList splits a comma-separated string, trimming blanks and dropping empty items
func SplitList(s string) []string {
	out := []string{}
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ResolveConfFilePath resolves a config file name against SERVICE_HOME/conf
func ResolveConfFilePath(configPath string) string {
	if filepath.IsAbs(configPath) {
		return configPath
	}

	// test fixtures live next to the test
	if strings.HasPrefix(filepath.Base(configPath), "test_") {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	homeDir := os.Getenv("SERVICE_HOME")
	if homeDir == "" {
		homeDir = "."
	}
	return filepath.Join(homeDir, "conf", configPath)
}

// LoadConfigMap reads a YAML file into a generic map. A missing or
// malformed file yields nil so callers fall back to their defaults.
func LoadConfigMap(configPath string) map[string]any {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil
	}

	config := make(map[string]any)
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil
	}
	return config
}
