package config

import (
	"fmt"
	"github.com/spf13/viper"
	"time"
)

type DashboardConfig struct {
	OutputFile string `mapstructure:"output_file"`
	Title      string `mapstructure:"title"`
	// MaxDataAge is how old the combined file may get before the health check warns.
	MaxDataAge time.Duration `mapstructure:"max_data_age"`
	RecentDays int           `mapstructure:"recent_days"`
}

func (config DashboardConfig) setDefaults() {
	viper.SetDefault("dashboard.output_file", "docs/index.html")
	viper.SetDefault("dashboard.title", "Jobs Dashboard")
	viper.SetDefault("dashboard.max_data_age", "8h")
	viper.SetDefault("dashboard.recent_days", 30)
}

func (config DashboardConfig) validate() error {
	if config.OutputFile == "" {
		return fmt.Errorf("missing variable: output_file")
	}
	if config.MaxDataAge <= 0 {
		return fmt.Errorf("max_data_age must be positive")
	}
	return nil
}

type CategoryConfig struct {
	// MappingFile optionally replaces the built-in keyword rules.
	MappingFile string `mapstructure:"mapping_file"`
}
