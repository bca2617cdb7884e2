package config

import (
	"errors"
	"github.com/spf13/viper"
	"time"
)

// StateDBConfig points at the SQLite file holding crawl state and run history.
type StateDBConfig struct {
	Path        string        `mapstructure:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
}

func (config StateDBConfig) validate() error {
	if config.Path == "" {
		return errors.New("missing variable: state db path")
	}
	if config.BusyTimeout < 0 {
		return errors.New("busy_timeout can't be negative")
	}
	return nil
}

func (config StateDBConfig) setDefaults() {
	viper.SetDefault("db.path", "./data/state.db")
	viper.SetDefault("db.busy_timeout", 5*time.Second)
}

func (config StateDBConfig) bindEnvironmentVariables() error {
	return viper.BindEnv("db.path", "STATE_DB_PATH")
}
