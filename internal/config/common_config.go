package config

import (
	"errors"
	"fmt"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"time"
)

type CommonConfig struct {
	RawDir       string `mapstructure:"raw_dir"`
	BackupDir    string `mapstructure:"backup_dir"`
	CombinedFile string `mapstructure:"combined_file"`

	HTTPRetries     int           `mapstructure:"http_retries"`
	HTTPBackoff     time.Duration `mapstructure:"http_backoff"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
	HTTPMinInterval time.Duration `mapstructure:"http_min_interval"`
	HTTPJitter      time.Duration `mapstructure:"http_jitter"`

	// Schedule is a cron expression used by --schedule.
	Schedule string `mapstructure:"schedule"`
	// HistoryRetentionDays bounds how long run history is kept.
	HistoryRetentionDays int `mapstructure:"history_retention_days"`
}

func (config CommonConfig) setDefaults() {
	viper.SetDefault("common.raw_dir", "data/raw")
	viper.SetDefault("common.backup_dir", "data/backups")
	viper.SetDefault("common.combined_file", "data/processed/combined_jobs.csv")
	viper.SetDefault("common.http_retries", 3)
	viper.SetDefault("common.http_backoff", "500ms")
	viper.SetDefault("common.http_timeout", "30s")
	viper.SetDefault("common.http_min_interval", "0s")
	viper.SetDefault("common.http_jitter", "0s")
	viper.SetDefault("common.schedule", "0 6 * * *")
	viper.SetDefault("common.history_retention_days", 30)
}

func (config CommonConfig) validate() error {
	var errs []error

	if config.RawDir == "" {
		errs = append(errs, fmt.Errorf("missing variable: raw_dir"))
	}
	if config.BackupDir == "" {
		errs = append(errs, fmt.Errorf("missing variable: backup_dir"))
	}
	if config.CombinedFile == "" {
		errs = append(errs, fmt.Errorf("missing variable: combined_file"))
	}
	if config.HTTPRetries < 1 {
		errs = append(errs, fmt.Errorf("http_retries must be at least 1"))
	}
	if config.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http_timeout must be positive"))
	}
	if config.HTTPMinInterval < 0 || config.HTTPJitter < 0 {
		errs = append(errs, fmt.Errorf("http_min_interval and http_jitter can't be negative"))
	}
	if config.HistoryRetentionDays <= 0 {
		errs = append(errs, fmt.Errorf("history_retention_days must be greater than zero"))
	}
	if _, err := cron.ParseStandard(config.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("invalid schedule %q: %w", config.Schedule, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func (config CommonConfig) bindEnvironmentVariables() error {

	err := viper.BindEnv("common.raw_dir", "AMAZON_SCRAPER_DATA_DIR")
	if err != nil {
		return err
	}

	err = viper.BindEnv("common.backup_dir", "AMAZON_SCRAPER_BACKUP_DIR")
	if err != nil {
		return err
	}

	return viper.BindEnv("common.schedule", "SCRAPER_SCHEDULE")
}
