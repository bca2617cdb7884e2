package config

import (
	"errors"
	"fmt"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"os"
	"path/filepath"
)

type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger"`
	Common     CommonConfig     `mapstructure:"common"`
	DB         StateDBConfig    `mapstructure:"db"`
	Amazon     AmazonConfig     `mapstructure:"amazon"`
	TheirStack TheirStackConfig `mapstructure:"theirstack"`
	Category   CategoryConfig   `mapstructure:"category"`
	Dashboard  DashboardConfig  `mapstructure:"dashboard"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`

	// path of the loaded file, relative data paths are resolved against its project root
	file string
}

var configFile = "./configs/config.yaml"

// Get loads the config or exits. An explicit path wins over CONFIG_PATH.
func Get(path string) *Config {

	file := configFile
	if value, _ := os.LookupEnv("MODE"); value == "test" {
		file = "../../configs/config.yaml"
	}
	if value, ok := os.LookupEnv("CONFIG_PATH"); ok && value != "" {
		file = value
	}
	if path != "" {
		file = path
	}

	config, err := Load(file)
	if err != nil {
		log.Fatal(err)
	}

	return config
}

func Load(file string) (*Config, error) {

	// a missing .env is normal outside local development
	_ = godotenv.Load()

	viper.SetConfigFile(file)
	viper.AutomaticEnv()

	setDefaults()

	err := bindEnvironmentVariables()
	if err != nil {
		return nil, err
	}

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", file, err)
	}

	config := Config{file: file}
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	CommonConfig{}.setDefaults()
	AmazonConfig{}.setDefaults()
	TheirStackConfig{}.setDefaults()
	DashboardConfig{}.setDefaults()
	StateDBConfig{}.setDefaults()
	viper.SetDefault("logger.log_level", string(LevelInfo))
	viper.SetDefault("logger.app_name", "jobs-tracker")
	viper.SetDefault("logger.output_file", "./logs/scraper.log")
	viper.SetDefault("metrics.address", ":8080")
}

func bindEnvironmentVariables() error {
	var errs []error

	sections := map[string]interface{ bindEnvironmentVariables() error }{
		"LoggerConfig":     LoggerConfig{},
		"CommonConfig":     CommonConfig{},
		"StateDBConfig":    StateDBConfig{},
		"AmazonConfig":     AmazonConfig{},
		"TheirStackConfig": TheirStackConfig{},
		"MetricsConfig":    MetricsConfig{},
	}

	for name, section := range sections {
		if err := section.bindEnvironmentVariables(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func (config Config) validate() error {
	var errs []error

	if err := config.Logger.validate(); err != nil {
		errs = append(errs, fmt.Errorf("LoggerConfig: %w", err))
	}

	if err := config.Common.validate(); err != nil {
		errs = append(errs, fmt.Errorf("CommonConfig: %w", err))
	}

	if err := config.DB.validate(); err != nil {
		errs = append(errs, fmt.Errorf("StateDBConfig: %w", err))
	}

	if err := config.Dashboard.validate(); err != nil {
		errs = append(errs, fmt.Errorf("DashboardConfig: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

// ValidateSources checks the sections of the enabled sources. It runs after the
// command line narrowed the selection, so a missing key of an unselected
// source doesn't block the run.
func (config Config) ValidateSources() error {
	var errs []error

	if config.Amazon.Enabled {
		if err := config.Amazon.validate(); err != nil {
			errs = append(errs, fmt.Errorf("AmazonConfig: %w", err))
		}
	}

	if config.TheirStack.Enabled {
		if err := config.TheirStack.validate(); err != nil {
			errs = append(errs, fmt.Errorf("TheirStackConfig: %w", err))
		}
	}

	if !config.Amazon.Enabled && !config.TheirStack.Enabled {
		errs = append(errs, errors.New("no source enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

// ResolvePath interprets relative paths against the project root, the parent
// of the directory holding the config file when that directory is "configs".
func (config Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || config.file == "" {
		return p
	}
	dir := filepath.Dir(config.file)
	if base := filepath.Base(dir); base == "configs" || base == "config" {
		dir = filepath.Dir(dir)
	}
	return filepath.Join(dir, p)
}
