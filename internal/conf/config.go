// config.go: This file contains the configuration for the Umi no Me detection
// gateway. It defines the settings struct and functions to load and save the
// settings.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// ModelConfig contains settings for the detector model artifact.
type ModelConfig struct {
	Path    string            // path to the default model artifact
	Aliases map[string]string // named preset -> model artifact path
	Labels  string            // optional path to a class label list
}

// WebConfig contains settings for the HTTP server.
type WebConfig struct {
	Host        string // interface to bind, e.g. 0.0.0.0
	Port        string // port for web server
	MaxBodySize string // request body cap in echo syntax, e.g. "2M"
	Templates   string // optional directory with page templates
}

// AuditConfig contains settings for the detection audit store.
type AuditConfig struct {
	Path string // path to the append-only CSV file
}

// MQTTSettings contains settings for MQTT integration.
type MQTTSettings struct {
	Enabled  bool   // true to enable MQTT publishing
	Broker   string // MQTT broker (tcp://host:port)
	ClientID string // MQTT client id
	Topic    string // MQTT topic for detection batches
	Retain   bool   // true to retain messages at the broker
	Username string // MQTT username
	Password string // MQTT password
}

// TelemetrySettings contains settings for error telemetry.
type TelemetrySettings struct {
	Enabled bool   // true to enable Sentry error reporting
	Dsn     string // Sentry DSN
}

// OutputConfig contains settings for optional database persistence of
// detection batches. The CSV audit store is always on; these are additive.
type OutputConfig struct {
	SQLite struct {
		Enabled bool   // true to enable sqlite output
		Path    string // path to sqlite database
	}

	MySQL struct {
		Enabled  bool   // true to enable mysql output
		Username string // username for mysql database
		Password string // password for mysql database
		Database string // database name for mysql database
		Host     string // host for mysql database
		Port     string // port for mysql database
	}
}

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled     bool         // true to enable this log
	Path        string       // Path to the log file
	Rotation    RotationType // Type of log rotation
	MaxSize     int64        // Max size in bytes for RotationSize
	RotationDay string       // Day of the week for RotationWeekly
}

// RotationType defines different types of log rotations.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// Settings contains all configuration options for the detection gateway.
type Settings struct {
	Debug bool // true to enable debug mode

	// Runtime values, not stored in config file
	Version   string `yaml:"-"` // Version from build
	BuildDate string `yaml:"-"` // Build date from build

	Main struct {
		Name string // instance name, used to identify the source of detections
	}

	Model ModelConfig // detector model configuration

	Web WebConfig // HTTP server configuration

	Audit AuditConfig // audit CSV store configuration

	Output OutputConfig // optional database persistence

	MQTT MQTTSettings // MQTT integration

	Telemetry TelemetrySettings // error telemetry

	Log LogConfig // service log configuration
}

// ResolveModelPath maps a request-supplied alias through the configured alias
// table. An empty or unrecognized alias falls back to the default model path.
func (s *Settings) ResolveModelPath(alias string) string {
	if alias != "" {
		if path, ok := s.Model.Aliases[alias]; ok && path != "" {
			return path
		}
	}
	return s.Model.Path
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a new
// Settings instance and makes it the active one.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	// Initialize viper and read config
	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	// Unmarshal the config into settings
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	// Validate settings
	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Get OS specific config paths
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Set default values for each configuration parameter
	// function defined in defaults.go
	setDefaultConfig()

	// Bind environment variables, including the MODEL_PATH and PORT
	// overrides the original deployment relies on
	if err := configureEnvironmentVariables(); err != nil {
		// Environment issues are warnings, not fatal
		log.Printf("Environment variable warnings: %v", err)
	}

	// Read configuration file
	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig creates a default config file and writes it to the default config path
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig := getDefaultConfig()

	// Create directories for config file
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	// Write default config file
	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}
	return string(data)
}

// LoadFromFile reads an explicit config file into settings, replacing
// whatever the search paths produced. Used by the --config flag.
func LoadFromFile(path string, settings *Settings) error {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", path, err)
	}
	if err := viper.Unmarshal(settings); err != nil {
		return fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	if err := ValidateSettings(settings); err != nil {
		return fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveSettings saves the current settings to the configuration file.
func SaveSettings() error {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()

	// Copy the settings so marshaling never races with a reload
	settingsCopy := *settingsInstance

	// Find the path of the current config file
	configPath, err := FindConfigFile()
	if err != nil {
		return fmt.Errorf("error finding config file: %w", err)
	}

	// Save the settings to the config file
	if err := SaveYAMLConfig(configPath, &settingsCopy); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}

	log.Printf("Settings saved successfully to %s", configPath)
	return nil
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			_, err := Load()
			if err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// SaveYAMLConfig updates the YAML configuration file with new settings.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// Write to a temporary file first so the final rename is atomic
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		// Rename can fail across filesystems, fall back to copy & delete
		if err := moveFile(tempFileName, configPath); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}

	return nil
}
