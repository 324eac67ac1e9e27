package messagebus

import (
	"github.com/tanisharajgor/Mongo-Exploratory/utils"
)

// LoadConfigMap loads a bus config file, resolved against $SERVICE_HOME/conf.
// A missing file yields an empty map so every key takes its default.
func LoadConfigMap(configFile string) map[string]any {
	if configFile == "" {
		return map[string]any{}
	}
	configMap := utils.LoadConfigMap(utils.ResolveConfFilePath(configFile))
	if configMap == nil {
		return map[string]any{}
	}
	return configMap
}

// GetStringValue safely gets a string value from config map with default
func GetStringValue(config map[string]interface{}, key, defaultValue string) string {
	if val, ok := config[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultValue
}

// GetBoolValue safely gets a bool value from config map with default
func GetBoolValue(config map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := config[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return defaultValue
}

// GetIntValue safely gets an int value from config map with default
func GetIntValue(config map[string]interface{}, key string, defaultValue int) int {
	if val, ok := config[key]; ok {
		switch i := val.(type) {
		case int:
			return i
		case int64:
			return int(i)
		case float64:
			return int(i)
		}
	}
	return defaultValue
}
