package config

import "github.com/spf13/viper"

type MetricsConfig struct {
	Address        string `mapstructure:"address"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
}

func (config MetricsConfig) bindEnvironmentVariables() error {
	return viper.BindEnv("metrics.pushgateway_url", "METRICS_PUSHGATEWAY_URL")
}
