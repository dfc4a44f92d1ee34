package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestResolveModelPath(t *testing.T) {
	t.Parallel()

	settings := &Settings{}
	settings.Model.Path = "models/best.tflite"
	settings.Model.Aliases = map[string]string{
		"fast":  "models/fast.tflite",
		"large": "models/large.tflite",
		"bad":   "",
	}

	tests := []struct {
		name  string
		alias string
		want  string
	}{
		{"empty alias falls back to default", "", "models/best.tflite"},
		{"known alias resolves", "fast", "models/fast.tflite"},
		{"second alias resolves", "large", "models/large.tflite"},
		{"unknown alias falls back to default", "nonexistent", "models/best.tflite"},
		{"alias with empty path falls back to default", "bad", "models/best.tflite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := settings.ResolveModelPath(tt.alias); got != tt.want {
				t.Errorf("ResolveModelPath(%q) = %q, want %q", tt.alias, got, tt.want)
			}
		})
	}
}

func TestResolveModelPathNilAliases(t *testing.T) {
	t.Parallel()

	settings := &Settings{}
	settings.Model.Path = "models/best.tflite"

	if got := settings.ResolveModelPath("anything"); got != "models/best.tflite" {
		t.Errorf("ResolveModelPath with nil alias table = %q, want default", got)
	}
}

func TestEmbeddedDefaultConfig(t *testing.T) {
	t.Parallel()

	raw := getDefaultConfig()
	require.NotEmpty(t, raw, "embedded config.yaml should not be empty")

	var parsed map[string]any
	err := yaml.Unmarshal([]byte(raw), &parsed)
	require.NoError(t, err, "embedded config.yaml must be valid YAML")

	// The embedded file must cover every top-level section so a generated
	// default config is self-documenting.
	for _, section := range []string{"main", "model", "web", "audit", "output", "mqtt", "telemetry", "log"} {
		assert.Contains(t, parsed, section, "embedded config missing section %q", section)
	}

	model, ok := parsed["model"].(map[string]any)
	require.True(t, ok, "model section should be a mapping")
	assert.Equal(t, "models/best.tflite", model["path"])

	web, ok := parsed["web"].(map[string]any)
	require.True(t, ok, "web section should be a mapping")
	assert.Equal(t, "5000", web["port"])
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	t.Parallel()

	settings := &Settings{}
	settings.Debug = true
	settings.Version = "1.2.3"
	settings.Main.Name = "Test Node"
	settings.Model.Path = "models/custom.tflite"
	settings.Model.Aliases = map[string]string{"fast": "models/fast.tflite"}
	settings.Web.Host = "127.0.0.1"
	settings.Web.Port = "8080"
	settings.Audit.Path = "logs/detections.csv"

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveYAMLConfig(configPath, settings))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)

	var loaded Settings
	require.NoError(t, yaml.Unmarshal(data, &loaded))

	assert.True(t, loaded.Debug)
	assert.Equal(t, "Test Node", loaded.Main.Name)
	assert.Equal(t, "models/custom.tflite", loaded.Model.Path)
	assert.Equal(t, "models/fast.tflite", loaded.Model.Aliases["fast"])
	assert.Equal(t, "127.0.0.1", loaded.Web.Host)
	assert.Equal(t, "8080", loaded.Web.Port)

	// Runtime fields carry yaml:"-" and must not be persisted
	assert.Empty(t, loaded.Version, "Version should not survive a save/load cycle")
}

func TestSaveYAMLConfigCreatesReadableFile(t *testing.T) {
	t.Parallel()

	settings := &Settings{}
	settings.Model.Path = "models/best.tflite"
	settings.Web.Port = "5000"
	settings.Audit.Path = "logs/detections.csv"

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveYAMLConfig(configPath, settings))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.Positive(t, info.Size())
}
