// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation.
// MODEL_PATH and PORT keep their historical unprefixed names so existing
// deployments keep working; the rest use the UMINOME_ prefix.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"model.path", "MODEL_PATH", validateEnvPath},
		{"web.port", "PORT", validateEnvPort},

		{"debug", "UMINOME_DEBUG", validateEnvBool},
		{"web.host", "UMINOME_WEB_HOST", nil},
		{"audit.path", "UMINOME_AUDIT_PATH", nil},
		{"mqtt.broker", "UMINOME_MQTT_BROKER", nil},
		{"mqtt.username", "UMINOME_MQTT_USERNAME", nil},
		{"mqtt.password", "UMINOME_MQTT_PASSWORD", nil},
		{"telemetry.dsn", "UMINOME_TELEMETRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	bindings := getEnvBindings()
	var warnings []string

	for _, binding := range bindings {
		// Bind the environment variable to the config key
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		// Validate the value if it's set and validation function is provided
		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

// validateEnvBool validates boolean environment variables
func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value, must be true/false or 1/0")
	}
	return nil
}

// validateEnvPort validates the listening port
func validateEnvPort(value string) error {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid port, must be a number")
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port, must be between 1 and 65535")
	}
	return nil
}

// validateEnvPath validates a model artifact path. Relative paths are
// accepted because deployments resolve them against the working directory,
// and missing files are left for the model registry to report per request.
func validateEnvPath(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("path must not be empty")
	}

	cleanedPath := filepath.Clean(value)

	// Reject traversal components that survive cleaning
	for _, part := range strings.Split(cleanedPath, string(os.PathSeparator)) {
		if part == ".." {
			return fmt.Errorf("path traversal detected in cleaned path: %s", cleanedPath)
		}
	}

	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	// Set up key replacer for nested config keys
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind specific environment variables with validation
	return bindEnvVars()
}
