package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateModelSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		model   ModelConfig
		wantErr bool
	}{
		{
			name:    "default path - should pass",
			model:   ModelConfig{Path: "models/best.tflite"},
			wantErr: false,
		},
		{
			name:    "empty path - should fail",
			model:   ModelConfig{Path: ""},
			wantErr: true,
		},
		{
			name: "valid aliases - should pass",
			model: ModelConfig{
				Path:    "models/best.tflite",
				Aliases: map[string]string{"fast": "models/fast.tflite"},
			},
			wantErr: false,
		},
		{
			name: "blank alias name - should fail",
			model: ModelConfig{
				Path:    "models/best.tflite",
				Aliases: map[string]string{"  ": "models/fast.tflite"},
			},
			wantErr: true,
		},
		{
			name: "alias with blank path - should fail",
			model: ModelConfig{
				Path:    "models/best.tflite",
				Aliases: map[string]string{"fast": "   "},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateModelSettings(&tt.model)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateModelSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateWebSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		web     WebConfig
		wantErr bool
	}{
		{"default port", WebConfig{Port: "5000", MaxBodySize: "2M"}, false},
		{"port lower bound", WebConfig{Port: "1"}, false},
		{"port upper bound", WebConfig{Port: "65535"}, false},
		{"port zero", WebConfig{Port: "0"}, true},
		{"port too large", WebConfig{Port: "65536"}, true},
		{"port not a number", WebConfig{Port: "http"}, true},
		{"empty port", WebConfig{Port: ""}, true},
		{"body size kilobytes", WebConfig{Port: "5000", MaxBodySize: "512K"}, false},
		{"body size gigabytes", WebConfig{Port: "5000", MaxBodySize: "1G"}, false},
		{"body size lowercase", WebConfig{Port: "5000", MaxBodySize: "2m"}, false},
		{"body size with B suffix", WebConfig{Port: "5000", MaxBodySize: "2MB"}, false},
		{"body size plain bytes", WebConfig{Port: "5000", MaxBodySize: "1048576"}, false},
		{"body size empty is allowed", WebConfig{Port: "5000", MaxBodySize: ""}, false},
		{"body size garbage", WebConfig{Port: "5000", MaxBodySize: "lots"}, true},
		{"body size negative", WebConfig{Port: "5000", MaxBodySize: "-2M"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateWebSettings(&tt.web)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateWebSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateOutputSettings(t *testing.T) {
	t.Parallel()

	makeOutput := func(mutate func(*OutputConfig)) OutputConfig {
		var o OutputConfig
		mutate(&o)
		return o
	}

	tests := []struct {
		name    string
		output  OutputConfig
		wantErr bool
	}{
		{
			name:    "both disabled - should pass",
			output:  makeOutput(func(o *OutputConfig) {}),
			wantErr: false,
		},
		{
			name: "sqlite with path - should pass",
			output: makeOutput(func(o *OutputConfig) {
				o.SQLite.Enabled = true
				o.SQLite.Path = "uminome.db"
			}),
			wantErr: false,
		},
		{
			name: "sqlite without path - should fail",
			output: makeOutput(func(o *OutputConfig) {
				o.SQLite.Enabled = true
			}),
			wantErr: true,
		},
		{
			name: "both enabled - should fail",
			output: makeOutput(func(o *OutputConfig) {
				o.SQLite.Enabled = true
				o.SQLite.Path = "uminome.db"
				o.MySQL.Enabled = true
				o.MySQL.Host = "localhost"
				o.MySQL.Database = "uminome"
				o.MySQL.Username = "uminome"
			}),
			wantErr: true,
		},
		{
			name: "mysql complete - should pass",
			output: makeOutput(func(o *OutputConfig) {
				o.MySQL.Enabled = true
				o.MySQL.Host = "localhost"
				o.MySQL.Database = "uminome"
				o.MySQL.Username = "uminome"
			}),
			wantErr: false,
		},
		{
			name: "mysql missing host - should fail",
			output: makeOutput(func(o *OutputConfig) {
				o.MySQL.Enabled = true
				o.MySQL.Database = "uminome"
				o.MySQL.Username = "uminome"
			}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateOutputSettings(&tt.output)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateOutputSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMQTTSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mqtt    MQTTSettings
		wantErr bool
	}{
		{
			name:    "disabled - should pass regardless of broker",
			mqtt:    MQTTSettings{Enabled: false},
			wantErr: false,
		},
		{
			name:    "enabled tcp broker - should pass",
			mqtt:    MQTTSettings{Enabled: true, Broker: "tcp://localhost:1883", Topic: "uminome/detections"},
			wantErr: false,
		},
		{
			name:    "enabled ssl broker - should pass",
			mqtt:    MQTTSettings{Enabled: true, Broker: "ssl://broker.example.com:8883", Topic: "uminome/detections"},
			wantErr: false,
		},
		{
			name:    "enabled websocket broker - should pass",
			mqtt:    MQTTSettings{Enabled: true, Broker: "wss://broker.example.com/mqtt", Topic: "uminome/detections"},
			wantErr: false,
		},
		{
			name:    "enabled without broker - should fail",
			mqtt:    MQTTSettings{Enabled: true, Topic: "uminome/detections"},
			wantErr: true,
		},
		{
			name:    "enabled without scheme - should fail",
			mqtt:    MQTTSettings{Enabled: true, Broker: "localhost:1883", Topic: "uminome/detections"},
			wantErr: true,
		},
		{
			name:    "enabled without topic - should fail",
			mqtt:    MQTTSettings{Enabled: true, Broker: "tcp://localhost:1883"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateMQTTSettings(&tt.mqtt)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateMQTTSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateLogSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		log     LogConfig
		wantErr bool
	}{
		{
			name:    "disabled - should pass regardless of rotation",
			log:     LogConfig{Enabled: false, Rotation: "hourly"},
			wantErr: false,
		},
		{
			name:    "daily rotation - should pass",
			log:     LogConfig{Enabled: true, Path: "logs/uminome.log", Rotation: RotationDaily},
			wantErr: false,
		},
		{
			name:    "weekly rotation - should pass",
			log:     LogConfig{Enabled: true, Path: "logs/uminome.log", Rotation: RotationWeekly, RotationDay: "Sunday"},
			wantErr: false,
		},
		{
			name:    "size rotation with maxsize - should pass",
			log:     LogConfig{Enabled: true, Path: "logs/uminome.log", Rotation: RotationSize, MaxSize: 1024},
			wantErr: false,
		},
		{
			name:    "size rotation without maxsize - should fail",
			log:     LogConfig{Enabled: true, Path: "logs/uminome.log", Rotation: RotationSize, MaxSize: 0},
			wantErr: true,
		},
		{
			name:    "unknown rotation - should fail",
			log:     LogConfig{Enabled: true, Path: "logs/uminome.log", Rotation: "hourly"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateLogSettings(&tt.log)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateLogSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSettingsAggregatesErrors(t *testing.T) {
	t.Parallel()

	settings := &Settings{}
	// Model path, web port and audit path are all invalid here
	settings.Web.Port = "not-a-port"

	err := ValidateSettings(settings)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.GreaterOrEqual(t, len(ve.Errors), 3, "expected errors for model, web and audit sections")
}

func TestValidateSettingsDefaultsPass(t *testing.T) {
	t.Parallel()

	settings := &Settings{}
	settings.Model.Path = "models/best.tflite"
	settings.Web.Host = "0.0.0.0"
	settings.Web.Port = "5000"
	settings.Web.MaxBodySize = "2M"
	settings.Audit.Path = "logs/detections.csv"
	settings.Log.Enabled = true
	settings.Log.Path = "logs/uminome.log"
	settings.Log.Rotation = RotationDaily

	assert.NoError(t, ValidateSettings(settings))
}
