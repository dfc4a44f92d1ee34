package conf

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEnvBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"true", "true", false},
		{"false", "false", false},
		{"1", "1", false},
		{"0", "0", false},
		{"t", "t", false},
		{"TRUE", "TRUE", false},
		{"invalid", "maybe", true},
		{"yes", "yes", true}, // strconv.ParseBool doesn't accept yes/no
		{"no", "no", true},
		{"empty", "", true},
		{"true with spaces", " true ", false},
		{"false with newline", "false\n", false},
		{"decimal", "0.5", true},
		{"large number", "123", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEnvBool(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid boolean value")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEnvPort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"default port", "5000", false},
		{"low port", "1", false},
		{"high port", "65535", false},
		{"zero", "0", true},
		{"too large", "65536", true},
		{"negative", "-1", true},
		{"not a number", "http", true},
		{"empty", "", true},
		{"port with spaces", " 8080 ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEnvPort(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid port")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEnvPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		wantErr bool
		errMsg  string
	}{
		// Relative paths are accepted, deployments resolve them against the
		// working directory.
		{"relative path", filepath.Join("models", "best.tflite"), false, ""},
		{"absolute path", filepath.Join(string(filepath.Separator), "opt", "models", "best.tflite"), false, ""},
		{"nonexistent file is fine", filepath.Join("models", "missing.tflite"), false, ""},
		{"traversal normalized away", filepath.Join("models", "sub", "..", "best.tflite"), false, ""},
		{"leading traversal", filepath.Join("..", "outside", "model.tflite"), true, "path traversal"},
		{"pure traversal", "..", true, "path traversal"},
		{"empty path", "", true, "must not be empty"},
		{"whitespace only", "   ", true, "must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEnvPath(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigureEnvironmentVariables(t *testing.T) {
	t.Run("model path override", func(t *testing.T) {
		viper.Reset()
		t.Setenv("MODEL_PATH", "models/harbor.tflite")

		require.NoError(t, configureEnvironmentVariables())
		assert.Equal(t, "models/harbor.tflite", viper.GetString("model.path"))
	})

	t.Run("port override", func(t *testing.T) {
		viper.Reset()
		t.Setenv("PORT", "8080")

		require.NoError(t, configureEnvironmentVariables())
		assert.Equal(t, "8080", viper.GetString("web.port"))
	})

	t.Run("invalid port reported", func(t *testing.T) {
		viper.Reset()
		t.Setenv("PORT", "not-a-port")

		err := configureEnvironmentVariables()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PORT")
	})

	t.Run("invalid debug flag reported", func(t *testing.T) {
		viper.Reset()
		t.Setenv("UMINOME_DEBUG", "maybe")

		err := configureEnvironmentVariables()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "UMINOME_DEBUG")
	})

	t.Run("multiple issues collected", func(t *testing.T) {
		viper.Reset()
		t.Setenv("PORT", "0")
		t.Setenv("UMINOME_DEBUG", "maybe")

		err := configureEnvironmentVariables()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PORT")
		assert.Contains(t, err.Error(), "UMINOME_DEBUG")
	})

	t.Run("unset variables do not override defaults", func(t *testing.T) {
		viper.Reset()
		setDefaultConfig()
		// Clear any ambient values so defaults are observable
		t.Setenv("MODEL_PATH", "")
		t.Setenv("PORT", "")

		require.NoError(t, configureEnvironmentVariables())
		assert.Equal(t, "5000", viper.GetString("web.port"))
		assert.Equal(t, "models/best.tflite", viper.GetString("model.path"))
	})
}
