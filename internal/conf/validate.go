// conf/validate.go

package conf

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// bodySizeRe matches echo's body limit syntax, e.g. "2M", "512K", "1G".
var bodySizeRe = regexp.MustCompile(`^[0-9]+[KMGT]?B?$`)

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateModelSettings(&settings.Model); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateWebSettings(&settings.Web); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateAuditSettings(&settings.Audit); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateOutputSettings(&settings.Output); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateMQTTSettings(&settings.MQTT); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateTelemetrySettings(&settings.Telemetry); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateLogSettings(&settings.Log); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateModelSettings(model *ModelConfig) error {
	if model.Path == "" {
		return fmt.Errorf("model path must not be empty")
	}
	for alias, path := range model.Aliases {
		if strings.TrimSpace(alias) == "" {
			return fmt.Errorf("model alias names must not be empty")
		}
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("model alias %q must map to a non-empty path", alias)
		}
	}
	return nil
}

func validateWebSettings(web *WebConfig) error {
	port, err := strconv.Atoi(web.Port)
	if err != nil {
		return fmt.Errorf("web port must be a number: %s", web.Port)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535: %d", port)
	}
	if web.MaxBodySize != "" && !bodySizeRe.MatchString(strings.ToUpper(web.MaxBodySize)) {
		return fmt.Errorf("web maxbodysize must look like 2M or 512K: %s", web.MaxBodySize)
	}
	return nil
}

func validateAuditSettings(audit *AuditConfig) error {
	if audit.Path == "" {
		return fmt.Errorf("audit path must not be empty")
	}
	return nil
}

func validateOutputSettings(output *OutputConfig) error {
	if output.SQLite.Enabled && output.MySQL.Enabled {
		return fmt.Errorf("only one database output can be enabled at a time")
	}
	if output.SQLite.Enabled && output.SQLite.Path == "" {
		return fmt.Errorf("sqlite output requires a database path")
	}
	if output.MySQL.Enabled {
		if output.MySQL.Host == "" || output.MySQL.Database == "" || output.MySQL.Username == "" {
			return fmt.Errorf("mysql output requires host, database and username")
		}
	}
	return nil
}

func validateMQTTSettings(mqtt *MQTTSettings) error {
	if !mqtt.Enabled {
		return nil
	}
	if mqtt.Broker == "" {
		return fmt.Errorf("mqtt broker must not be empty when mqtt is enabled")
	}
	validPrefix := false
	for _, prefix := range []string{"tcp://", "ssl://", "ws://", "wss://", "mqtt://", "mqtts://"} {
		if strings.HasPrefix(mqtt.Broker, prefix) {
			validPrefix = true
			break
		}
	}
	if !validPrefix {
		return fmt.Errorf("mqtt broker must start with a scheme such as tcp:// or ssl://: %s", mqtt.Broker)
	}
	if mqtt.Topic == "" {
		return fmt.Errorf("mqtt topic must not be empty when mqtt is enabled")
	}
	return nil
}

func validateTelemetrySettings(telemetry *TelemetrySettings) error {
	if telemetry.Enabled && telemetry.Dsn == "" {
		return fmt.Errorf("telemetry requires a dsn when enabled")
	}
	return nil
}

func validateLogSettings(logConfig *LogConfig) error {
	if !logConfig.Enabled {
		return nil
	}
	switch logConfig.Rotation {
	case RotationDaily, RotationWeekly, RotationSize:
	default:
		return fmt.Errorf("log rotation must be daily, weekly or size: %s", logConfig.Rotation)
	}
	if logConfig.Rotation == RotationSize && logConfig.MaxSize <= 0 {
		return fmt.Errorf("log maxsize must be positive for size rotation")
	}
	return nil
}
