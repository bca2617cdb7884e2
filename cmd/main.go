package main

import (
	"context"
	"fmt"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/jobs-tracker/internal/browser"
	"github.com/maxaizer/jobs-tracker/internal/category"
	"github.com/maxaizer/jobs-tracker/internal/clients/amazon"
	"github.com/maxaizer/jobs-tracker/internal/clients/theirstack"
	"github.com/maxaizer/jobs-tracker/internal/clients/transport"
	"github.com/maxaizer/jobs-tracker/internal/config"
	"github.com/maxaizer/jobs-tracker/internal/dashboard"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/maxaizer/jobs-tracker/internal/logger"
	"github.com/maxaizer/jobs-tracker/internal/metrics"
	"github.com/maxaizer/jobs-tracker/internal/normalize"
	"github.com/maxaizer/jobs-tracker/internal/repositories"
	"github.com/maxaizer/jobs-tracker/internal/services"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"gorm.io/gorm"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

type options struct {
	configPath string
	sources    []string
	engine     string
	dashboard  bool
	force      bool
	schedule   bool
	health     bool
}

func parseOptions() options {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path of the YAML config (default CONFIG_PATH or ./configs/config.yaml)")
	flag.StringSliceVar(&opts.sources, "source", []string{"all"}, "sources to scrape: amazon, theirstack or all")
	flag.StringVar(&opts.engine, "engine", "", "amazon engine, api or browser, overrides amazon.engine")
	flag.BoolVar(&opts.dashboard, "dashboard", true, "rebuild the combined CSV and the dashboard after scraping")
	flag.BoolVar(&opts.force, "force", false, "run TheirStack even if it already ran today")
	flag.BoolVar(&opts.schedule, "schedule", false, "keep running on common.schedule until interrupted")
	flag.BoolVar(&opts.health, "health", false, "only check the published data and exit")
	flag.Parse()
	return opts
}

func main() {
	os.Exit(run(parseOptions()))
}

func run(opts options) int {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get(opts.configPath)

	logger.Setup(ctx, cfg.Logger)
	defer logger.Cleanup()

	combinedFile := cfg.ResolvePath(cfg.Common.CombinedFile)

	if opts.health {
		report := services.NewHealthChecker(combinedFile, cfg.Dashboard.MaxDataAge, cfg.Dashboard.RecentDays).Check()
		report.Log()
		return lo.Ternary(report.Healthy(), 0, 1)
	}

	// the combined file keeps every configured source, whatever this run scrapes
	published := publishedSources(cfg)

	if err := selectSources(cfg, opts); err != nil {
		log.Errorf("invalid options: %v", err)
		return 1
	}
	if err := cfg.ValidateSources(); err != nil {
		log.Errorf("invalid config: %v", err)
		return 1
	}

	dbContext, err := repositories.NewDbContext(cfg.ResolvePath(cfg.DB.Path), cfg.DB.BusyTimeout)
	if err != nil {
		log.Errorf("can't create db context: %v", err)
		return 1
	}
	defer dbContext.Close()

	if err = dbContext.Migrate(); err != nil {
		log.Errorf("can't migrate db context: %v", err)
		return 1
	}

	bus := EventBus.New()
	history := repositories.NewRunHistoryRepository(dbContext.DB)
	if _, err = services.NewRunRecorder(bus, history); err != nil {
		log.Errorf("can't create run recorder: %v", err)
		return 1
	}

	scrapers, err := buildScrapers(cfg, dbContext.DB, opts.force)
	if err != nil {
		log.Errorf("can't create scrapers: %v", err)
		return 1
	}

	snapshots := repositories.NewSnapshotsRepository(
		cfg.ResolvePath(cfg.Common.RawDir),
		cfg.ResolvePath(cfg.Common.BackupDir),
		map[models.Source]string{
			models.SourceAmazonAPI:  cfg.Amazon.APIRawFilename,
			models.SourceAmazon:     cfg.Amazon.BrowserRawFilename,
			models.SourceTheirStack: cfg.TheirStack.RawFilename,
		})
	runner := services.NewRunner(bus, snapshots)

	var publisher *services.Publisher
	if opts.dashboard {
		generator, err := dashboard.NewGenerator(cfg.Dashboard.Title, cfg.Dashboard.RecentDays)
		if err != nil {
			log.Errorf("can't create dashboard generator: %v", err)
			return 1
		}
		publisher = services.NewPublisher(snapshots, published, combinedFile, generator, cfg.ResolvePath(cfg.Dashboard.OutputFile))
	}

	cleaner, err := services.NewHistoryCleaner(history, cfg.Common.HistoryRetentionDays)
	if err != nil {
		log.Errorf("can't create history cleaner: %v", err)
		return 1
	}

	job := func(ctx context.Context) bool {
		summary := runner.Run(ctx, scrapers)
		ok := !summary.Failed()
		if publisher != nil {
			if err := publisher.Publish(); err != nil {
				log.Errorf("publish failed: %v", err)
				ok = false
			}
		}
		return ok
	}

	if opts.schedule {
		return runScheduled(ctx, cfg, job, cleaner)
	}

	ok := job(ctx)

	if _, err := cleaner.CleanNow(context.WithoutCancel(ctx)); err != nil {
		log.Warnf("run history not pruned: %v", err)
	}
	if err := metrics.Push(cfg.Metrics.PushgatewayURL, cfg.Logger.AppName); err != nil {
		log.Warnf("metrics not pushed: %v", err)
	}

	if !ok {
		log.Error("run finished with failures")
		return 1
	}
	log.Info("run finished")
	return 0
}

func runScheduled(ctx context.Context, cfg *config.Config, job func(ctx context.Context) bool,
	cleaner *services.HistoryCleaner) int {

	server := metrics.StartMetricsServer(cfg.Metrics.Address)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := cleaner.Start(); err != nil {
		log.Errorf("can't start history cleaner: %v", err)
		return 1
	}
	defer cleaner.Stop()

	scheduler, err := services.NewScheduler(ctx, cfg.Common.Schedule, func(ctx context.Context) {
		if !job(ctx) {
			log.Warn("scheduled run finished with failures")
		}
	})
	if err != nil {
		log.Errorf("can't create scheduler: %v", err)
		return 1
	}
	scheduler.Start()

	<-ctx.Done()

	log.Info("Shutting down services...")
	scheduler.Stop()
	log.Info("Services stopped.")
	return 0
}

// selectSources narrows the enabled sources to the ones asked for on the
// command line and applies the engine override.
func selectSources(cfg *config.Config, opts options) error {

	if opts.engine != "" {
		cfg.Amazon.Engine = config.Engine(strings.ToLower(opts.engine))
	}

	requested := lo.Map(opts.sources, func(s string, _ int) string { return strings.ToLower(strings.TrimSpace(s)) })
	if lo.Contains(requested, "all") {
		return nil
	}

	for _, name := range requested {
		if name != "amazon" && name != "theirstack" {
			return fmt.Errorf("unknown source %q", name)
		}
	}
	cfg.Amazon.Enabled = lo.Contains(requested, "amazon")
	cfg.TheirStack.Enabled = lo.Contains(requested, "theirstack")
	return nil
}

func amazonSource(cfg *config.Config) models.Source {
	return lo.Ternary(cfg.Amazon.Engine == config.EngineBrowser, models.SourceAmazon, models.SourceAmazonAPI)
}

func publishedSources(cfg *config.Config) []models.Source {
	var sources []models.Source
	if cfg.Amazon.Enabled {
		sources = append(sources, amazonSource(cfg))
	}
	if cfg.TheirStack.Enabled {
		sources = append(sources, models.SourceTheirStack)
	}
	return sources
}

func buildScrapers(cfg *config.Config, db *gorm.DB, force bool) ([]services.Scraper, error) {

	mapping := category.DefaultMapping()
	if cfg.Category.MappingFile != "" {
		loaded, err := category.LoadMapping(cfg.ResolvePath(cfg.Category.MappingFile))
		if err != nil {
			return nil, err
		}
		mapping = loaded
	}
	normalizer := normalize.New(category.NewMapper(mapping))
	retryPolicy := transport.RetryPolicy{Retries: cfg.Common.HTTPRetries, Backoff: cfg.Common.HTTPBackoff}

	var scrapers []services.Scraper

	if cfg.Amazon.Enabled {
		switch amazonSource(cfg) {
		case models.SourceAmazon:
			scrapers = append(scrapers, newAmazonBrowserScraper(cfg, normalizer))
		default:
			scraper, err := newAmazonAPIScraper(cfg, normalizer, retryPolicy)
			if err != nil {
				return nil, err
			}
			scrapers = append(scrapers, scraper)
		}
	}

	if cfg.TheirStack.Enabled {
		client, err := theirstack.NewClient(cfg.TheirStack.APIURL, cfg.TheirStack.APIKey, cfg.Common.HTTPTimeout)
		if err != nil {
			return nil, err
		}
		client.SetMinInterval(cfg.Common.HTTPMinInterval)
		client.SetRetryPolicy(retryPolicy)

		titles, err := theirstack.LoadTitles(cfg.ResolvePath(cfg.TheirStack.TitlesFile), cfg.TheirStack.JobTitleOr)
		if err != nil {
			return nil, err
		}

		scraper := services.NewTheirStackScraper(client, repositories.NewCrawlStatesRepository(db), normalizer,
			cfg.TheirStack, titles, cfg.ResolvePath(cfg.Common.BackupDir))
		scraper.SetForce(force)
		scrapers = append(scrapers, scraper)
	}

	return scrapers, nil
}

func newAmazonAPIScraper(cfg *config.Config, normalizer *normalize.Normalizer,
	retryPolicy transport.RetryPolicy) (*services.AmazonAPIScraper, error) {

	spec := amazon.NewRequestSpec(cfg.Amazon.SearchURL)
	if cfg.Amazon.SearchURL == "" {
		parsed, err := amazon.ParseHeadersFile(cfg.ResolvePath(cfg.Amazon.HeadersFile))
		if err != nil {
			return nil, err
		}
		spec = parsed
	}
	if cfg.Amazon.NoCookie && spec.StripCookie() {
		log.Info("session cookie removed from the amazon request")
	}

	client := amazon.NewClient(spec, cfg.Common.HTTPTimeout)
	client.SetMinInterval(cfg.Common.HTTPMinInterval)
	client.SetRetryPolicy(retryPolicy)

	rawDir := ""
	if cfg.Amazon.SaveRaw {
		rawDir = services.AmazonRawDir(cfg.ResolvePath(cfg.Common.RawDir))
	}

	startOffset := amazon.IntQueryParam(spec.URL, "offset", 0)
	return services.NewAmazonAPIScraper(client, normalizer, cfg.Amazon, cfg.Common.HTTPJitter, startOffset, rawDir), nil
}

func newAmazonBrowserScraper(cfg *config.Config, normalizer *normalize.Normalizer) *services.AmazonBrowserScraper {

	options := browser.Options{Headless: cfg.Amazon.Headless, Timeout: cfg.Amazon.PageTimeout}
	launch := func() (services.BrowserSession, error) {
		session, err := browser.Launch(options)
		if err != nil {
			return nil, err
		}
		return session, nil
	}

	return services.NewAmazonBrowserScraper(launch, normalizer, cfg.Amazon)
}
