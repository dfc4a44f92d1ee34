// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "Umi no Me")

	viper.SetDefault("model.path", "models/best.tflite")
	viper.SetDefault("model.aliases", map[string]string{})
	viper.SetDefault("model.labels", "")

	viper.SetDefault("web.host", "0.0.0.0")
	viper.SetDefault("web.port", "5000")
	viper.SetDefault("web.maxbodysize", "2M")
	viper.SetDefault("web.templates", "templates")

	viper.SetDefault("audit.path", "logs/detections.csv")

	viper.SetDefault("output.sqlite.enabled", false)
	viper.SetDefault("output.sqlite.path", "uminome.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "uminome")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.database", "uminome")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.clientid", "umi-no-me")
	viper.SetDefault("mqtt.topic", "uminome/detections")
	viper.SetDefault("mqtt.retain", false)
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.dsn", "")

	viper.SetDefault("log.enabled", true)
	viper.SetDefault("log.path", "logs/uminome.log")
	viper.SetDefault("log.rotation", RotationDaily)
	viper.SetDefault("log.maxsize", 10*1024*1024)
	viper.SetDefault("log.rotationday", time.Sunday.String())
}
