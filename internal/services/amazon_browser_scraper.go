package services

import (
	"context"
	"github.com/maxaizer/jobs-tracker/internal/browser"
	"github.com/maxaizer/jobs-tracker/internal/clients/amazon"
	"github.com/maxaizer/jobs-tracker/internal/config"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/maxaizer/jobs-tracker/internal/logger"
	"github.com/maxaizer/jobs-tracker/internal/metrics"
	"github.com/maxaizer/jobs-tracker/internal/normalize"
	"github.com/maxaizer/jobs-tracker/internal/pagination"
	"github.com/maxaizer/jobs-tracker/internal/reconcile"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"strconv"
	"time"
)

// BrowserSession hands out pages of one running browser.
type BrowserSession interface {
	NewPage() (browser.Page, error)
	Close() error
}

// BrowserLauncher starts a browser, called once per crawl.
type BrowserLauncher func() (BrowserSession, error)

type AmazonBrowserScraper struct {
	launch     BrowserLauncher
	normalizer *normalize.Normalizer
	cfg        config.AmazonConfig
	searchURL  string
	details    *detailCache
	logger     *log.Entry
}

func NewAmazonBrowserScraper(launch BrowserLauncher, normalizer *normalize.Normalizer, cfg config.AmazonConfig) *AmazonBrowserScraper {

	entry := log.WithField(logger.SourceField, models.SourceAmazon)

	searchURL := amazon.HTMLSearchURL(cfg.SearchURL, cfg.CountryFilter)
	if cfg.CountryFilter != "" && !amazon.HasCountryFilter(cfg.SearchURL, cfg.CountryFilter) {
		entry.Warnf("search url has no country[]=%s filter, using %s", cfg.CountryFilter, searchURL)
	}

	return &AmazonBrowserScraper{
		launch:     launch,
		normalizer: normalizer,
		cfg:        cfg,
		searchURL:  searchURL,
		details:    newDetailCache(gocache.New(30*time.Minute, time.Hour)),
		logger:     entry,
	}
}

func (s *AmazonBrowserScraper) Source() models.Source {
	return models.SourceAmazon
}

func (s *AmazonBrowserScraper) Scrape(ctx context.Context, prior []models.JobRecord) (Crawl, error) {

	session, err := s.launch()
	if err != nil {
		s.logger.WithField(logger.ErrorTypeField, logger.ErrorTypeBrowser).Errorf("failed to launch browser: %v", err)
		return Crawl{}, errors.Wrap(err, "launch browser")
	}
	defer func() {
		if err := session.Close(); err != nil {
			s.logger.Warnf("failed to close browser: %v", err)
		}
	}()

	listing, err := session.NewPage()
	if err != nil {
		return Crawl{}, errors.Wrap(err, "open listing page")
	}
	defer listing.Close()

	result := pagination.NewController(s.limits(), s.listingFetcher(listing), s.logger).Run(ctx)
	s.logger.Infof("listing stopped (%s) after %d pages, %d unique jobs", result.Reason, result.Pages, result.Seen.Cardinality())

	if errors.Is(result.Err, browser.ErrBlocked) {
		s.logger.WithField(logger.ErrorTypeField, logger.ErrorTypeBrowser).Errorf("crawl aborted: %v", result.Err)
		return Crawl{}, result.Err
	}

	crawl := crawlFromResult(result)
	pending := s.pendingDetails(result.Records, prior)
	s.logger.Infof("%d jobs need their detail page, %d already known", len(pending), result.Seen.Cardinality()-len(pending))

	records, err := s.fetchDetails(ctx, session, pending)
	if errors.Is(err, browser.ErrBlocked) {
		s.logger.WithField(logger.ErrorTypeField, logger.ErrorTypeBrowser).Errorf("crawl aborted: %v", err)
		return Crawl{}, err
	}
	if err != nil && crawl.Err == nil {
		crawl.Err = err
		crawl.Partial = true
	}
	crawl.Records = records

	return crawl, nil
}

func (s *AmazonBrowserScraper) limits() pagination.Limits {
	return pagination.Limits{
		PageSize:    amazon.IntQueryParam(s.searchURL, "result_limit", 10),
		MaxPages:    s.cfg.MaxPages,
		MaxJobs:     s.cfg.MaxJobs,
		MaxRuntime:  s.cfg.MaxRuntime,
		MinInterval: s.cfg.DelayMin,
		Jitter:      s.cfg.DelayMax - s.cfg.DelayMin,
		StartOffset: amazon.IntQueryParam(s.searchURL, "offset", 0),
	}
}

func (s *AmazonBrowserScraper) listingFetcher(listing browser.Page) pagination.FetchFunc {
	return func(ctx context.Context, offset, limit int) (pagination.Page, error) {

		doc, err := listing.Load(ctx, amazon.SetQueryParam(s.searchURL, "offset", strconv.Itoa(offset)))
		if err != nil {
			s.logger.WithField(logger.ErrorTypeField, logger.ErrorTypeBrowser).Errorf("failed to load listing at offset %d: %v", offset, err)
			return pagination.Page{}, err
		}

		tiles, err := browser.ParseListing(doc.HTML)
		if err != nil {
			s.logger.WithField(logger.ErrorTypeField, logger.ErrorTypeParse).Errorf("failed to parse listing at offset %d: %v", offset, err)
			return pagination.Page{}, err
		}
		if len(tiles) == 0 {
			if err := browser.CheckBlocked(doc); err != nil {
				return pagination.Page{}, err
			}
		}
		metrics.PagesFetchedCounter.WithLabelValues(string(models.SourceAmazon)).Inc()

		records := lo.Map(tiles, func(tile browser.Tile, _ int) models.JobRecord {
			return s.normalizer.FromAmazonTile(tile)
		})
		return pagination.Page{Records: records}, nil
	}
}

// pendingDetails drops listing duplicates and, unless refresh_existing is
// set, the jobs the snapshot already has. Those stay in seen all the same.
func (s *AmazonBrowserScraper) pendingDetails(records, prior []models.JobRecord) []models.JobRecord {

	known := reconcile.NewIDSet()
	if !s.cfg.RefreshExisting {
		for _, record := range prior {
			known.Add(reconcile.NormalizeID(record.ID))
		}
	}

	unique := lo.UniqBy(records, func(record models.JobRecord) string { return reconcile.NormalizeID(record.ID) })
	return lo.Filter(unique, func(record models.JobRecord, _ int) bool {
		return !known.Contains(reconcile.NormalizeID(record.ID))
	})
}

// fetchDetails completes records with their detail pages using a pool of
// max_workers pages, batch_size jobs at a time. Records come back in input
// order. A bot wall on any page fails the whole pool.
func (s *AmazonBrowserScraper) fetchDetails(ctx context.Context, session BrowserSession, records []models.JobRecord) ([]models.JobRecord, error) {

	workers := min(s.cfg.MaxWorkers, len(records))
	if workers <= 0 {
		return records, nil
	}
	batchSize := max(s.cfg.BatchSize, 1)

	pages := make(chan browser.Page, workers)
	defer func() {
		close(pages)
		for page := range pages {
			_ = page.Close()
		}
	}()
	for i := 0; i < workers; i++ {
		page, err := session.NewPage()
		if err != nil {
			return nil, errors.Wrap(err, "open detail page")
		}
		pages <- page
	}

	results := make([]models.JobRecord, len(records))
	done := 0

	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				page := <-pages
				defer func() { pages <- page }()

				record, err := s.completeRecord(gctx, page, records[i])
				results[i] = record
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return completed(results[:end]), err
		}
		done = end
		s.logger.Infof("detail pages: %d/%d", done, len(records))

		if end < len(records) {
			if err := browser.Pause(ctx, s.cfg.DelayMin, s.cfg.DelayMax); err != nil {
				return completed(results[:done]), err
			}
		}
	}

	return results, nil
}

func (s *AmazonBrowserScraper) completeRecord(ctx context.Context, page browser.Page, record models.JobRecord) (models.JobRecord, error) {

	if err := browser.Pause(ctx, 0, s.cfg.DelayMin); err != nil {
		return models.JobRecord{}, err
	}

	detail, doc, err := s.details.getDetail(ctx, page, record.ID, record.URL)
	if err != nil {
		if ctx.Err() != nil {
			return models.JobRecord{}, ctx.Err()
		}
		s.logger.WithField(logger.ErrorTypeField, logger.ErrorTypeBrowser).
			Warnf("detail page of %s failed, keeping listing fields: %v", record.ID, err)
		return record, nil
	}

	if detail.Empty() {
		if err := browser.CheckBlocked(doc); err != nil {
			return models.JobRecord{}, err
		}
		s.logger.WithField(logger.ErrorTypeField, logger.ErrorTypeParse).Warnf("detail page of %s has no known sections", record.ID)
	}
	return s.normalizer.WithAmazonDetail(record, detail), nil
}

// completed drops the slots of workers that never finished.
func completed(records []models.JobRecord) []models.JobRecord {
	return lo.Filter(records, func(record models.JobRecord, _ int) bool { return record.ID != "" })
}
