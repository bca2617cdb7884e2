package config

import (
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type TheirStackConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	APIURL  string `mapstructure:"api_url" validate:"required,url"`

	PageSize           int      `mapstructure:"page_size" validate:"gte=1,lte=500"`
	MaxJobsPerRun      int      `mapstructure:"max_jobs_per_run" validate:"gte=1"`
	MaxExcludedIDs     int      `mapstructure:"max_excluded_ids" validate:"gte=0"`
	PostedAtMaxAgeDays int      `mapstructure:"posted_at_max_age_days" validate:"gte=1"`
	WideFetchLimit     int      `mapstructure:"wide_fetch_limit" validate:"gte=0"`
	JobTitleOr         []string `mapstructure:"job_title_or"`
	JobCountryCodeOr   []string `mapstructure:"job_country_code_or" validate:"min=1"`
	// TitlesFile is an optional JSON list (or map of lists) of extra titles.
	TitlesFile    string `mapstructure:"titles_file"`
	SaveResponses bool   `mapstructure:"save_responses"`
	RawFilename   string `mapstructure:"raw_filename"`
}

func (config TheirStackConfig) setDefaults() {
	viper.SetDefault("theirstack.enabled", true)
	viper.SetDefault("theirstack.api_url", "https://api.theirstack.com/v1/jobs/search")
	viper.SetDefault("theirstack.page_size", 25)
	viper.SetDefault("theirstack.max_jobs_per_run", 50)
	viper.SetDefault("theirstack.max_excluded_ids", 1000)
	viper.SetDefault("theirstack.posted_at_max_age_days", 14)
	viper.SetDefault("theirstack.wide_fetch_limit", 10)
	viper.SetDefault("theirstack.job_country_code_or", []string{"LU"})
	viper.SetDefault("theirstack.save_responses", true)
	viper.SetDefault("theirstack.raw_filename", "theirstack_jobs.csv")
}

func (config TheirStackConfig) validate() error {
	var errs []error

	if config.APIKey == "" {
		errs = append(errs, fmt.Errorf("missing variable: THEIR_STACK_API_KEY"))
	}

	if err := validator.New().Struct(config); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func (config TheirStackConfig) bindEnvironmentVariables() error {

	err := viper.BindEnv("theirstack.api_key", "THEIR_STACK_API_KEY")
	if err != nil {
		return err
	}

	return viper.BindEnv("theirstack.api_url", "THEIRSTACK_API_URL")
}
