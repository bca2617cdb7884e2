package config

import (
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"time"
)

type Engine string

const (
	EngineAPI     Engine = "api"
	EngineBrowser Engine = "browser"
)

type AmazonConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Engine  Engine `mapstructure:"engine" validate:"oneof=api browser"`

	// SearchURL is the amazon.jobs search page with all filters applied.
	SearchURL string `mapstructure:"search_url"`
	// HeadersFile is a captured request dump, used by the api engine when SearchURL is empty.
	HeadersFile string `mapstructure:"headers_file"`
	NoCookie    bool   `mapstructure:"no_cookie"`
	SaveRaw     bool   `mapstructure:"save_raw"`

	MaxPages   int           `mapstructure:"max_pages" validate:"gte=0"`
	MaxJobs    int           `mapstructure:"max_jobs" validate:"gte=0"`
	MaxRuntime time.Duration `mapstructure:"max_runtime" validate:"gte=0"`

	// browser engine only
	MaxWorkers      int           `mapstructure:"max_workers" validate:"gte=1,lte=16"`
	BatchSize       int           `mapstructure:"batch_size" validate:"gte=1"`
	RefreshExisting bool          `mapstructure:"refresh_existing"`
	Headless        bool          `mapstructure:"headless"`
	DelayMin        time.Duration `mapstructure:"delay_min" validate:"gte=0"`
	DelayMax        time.Duration `mapstructure:"delay_max" validate:"gtefield=DelayMin"`
	PageTimeout     time.Duration `mapstructure:"page_timeout" validate:"gt=0"`
	CountryFilter   string        `mapstructure:"country_filter"`

	APIRawFilename     string `mapstructure:"api_raw_filename"`
	BrowserRawFilename string `mapstructure:"browser_raw_filename"`
}

func (config AmazonConfig) setDefaults() {
	viper.SetDefault("amazon.enabled", true)
	viper.SetDefault("amazon.engine", string(EngineAPI))
	viper.SetDefault("amazon.save_raw", true)
	viper.SetDefault("amazon.max_workers", 3)
	viper.SetDefault("amazon.batch_size", 10)
	viper.SetDefault("amazon.headless", true)
	viper.SetDefault("amazon.delay_min", "1s")
	viper.SetDefault("amazon.delay_max", "3s")
	viper.SetDefault("amazon.page_timeout", "30s")
	viper.SetDefault("amazon.country_filter", "LUX")
	viper.SetDefault("amazon.api_raw_filename", "amazon_api_jobs.csv")
	viper.SetDefault("amazon.browser_raw_filename", "amazon_jobs.csv")
}

func (config AmazonConfig) validate() error {
	var errs []error

	if err := validator.New().Struct(config); err != nil {
		errs = append(errs, err)
	}

	if config.SearchURL == "" && (config.Engine == EngineBrowser || config.HeadersFile == "") {
		errs = append(errs, fmt.Errorf("missing variable: search_url"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func (config AmazonConfig) bindEnvironmentVariables() error {

	err := viper.BindEnv("amazon.engine", "AMAZON_ENGINE")
	if err != nil {
		return err
	}

	err = viper.BindEnv("amazon.search_url", "AMAZON_SCRAPER_BASE_URL")
	if err != nil {
		return err
	}

	err = viper.BindEnv("amazon.max_workers", "AMAZON_SCRAPER_MAX_WORKERS")
	if err != nil {
		return err
	}

	return viper.BindEnv("amazon.batch_size", "AMAZON_SCRAPER_BATCH_SIZE")
}
