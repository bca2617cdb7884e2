package services

import (
	"context"
	"fmt"
	"github.com/maxaizer/jobs-tracker/internal/clients/amazon"
	"github.com/maxaizer/jobs-tracker/internal/config"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/maxaizer/jobs-tracker/internal/logger"
	"github.com/maxaizer/jobs-tracker/internal/metrics"
	"github.com/maxaizer/jobs-tracker/internal/normalize"
	"github.com/maxaizer/jobs-tracker/internal/pagination"
	log "github.com/sirupsen/logrus"
	"os"
	"path/filepath"
	"time"
)

const amazonRawDirName = "amazon_api_raw"

type amazonSearchClient interface {
	Search(ctx context.Context, offset int) (amazon.Page, error)
	ResultLimit() int
}

type AmazonAPIScraper struct {
	client     amazonSearchClient
	normalizer *normalize.Normalizer
	limits     pagination.Limits
	rawDir     string
	logger     *log.Entry
}

// NewAmazonAPIScraper pages through search.json. Raw pages are archived under
// rawDir when it is not empty.
func NewAmazonAPIScraper(client amazonSearchClient, normalizer *normalize.Normalizer,
	cfg config.AmazonConfig, jitter time.Duration, startOffset int, rawDir string) *AmazonAPIScraper {

	return &AmazonAPIScraper{
		client:     client,
		normalizer: normalizer,
		limits: pagination.Limits{
			PageSize:    client.ResultLimit(),
			MaxPages:    cfg.MaxPages,
			MaxJobs:     cfg.MaxJobs,
			MaxRuntime:  cfg.MaxRuntime,
			Jitter:      jitter,
			StartOffset: startOffset,
		},
		rawDir: rawDir,
		logger: log.WithField(logger.SourceField, models.SourceAmazonAPI),
	}
}

func (s *AmazonAPIScraper) Source() models.Source {
	return models.SourceAmazonAPI
}

func (s *AmazonAPIScraper) Scrape(ctx context.Context, _ []models.JobRecord) (Crawl, error) {

	if s.rawDir != "" {
		if err := os.MkdirAll(s.rawDir, 0755); err != nil {
			s.logger.WithField(logger.ErrorTypeField, logger.ErrorTypeStorage).
				Warnf("raw pages won't be saved: %v", err)
			s.rawDir = ""
		}
	}

	pageNum := 0
	fetch := func(ctx context.Context, offset, limit int) (pagination.Page, error) {

		start := time.Now()
		page, err := s.client.Search(ctx, offset)
		metrics.StepDuration.WithLabelValues(string(models.SourceAmazonAPI), "page_fetch").Observe(time.Since(start).Seconds())
		if err != nil {
			s.logger.WithField(logger.ErrorTypeField, logger.ErrorTypeAmazonApi).Errorf("failed to fetch page: %v", err)
			return pagination.Page{}, err
		}
		pageNum++
		metrics.PagesFetchedCounter.WithLabelValues(string(models.SourceAmazonAPI)).Inc()
		s.saveRawPage(pageNum, page.Raw)

		records := make([]models.JobRecord, 0, len(page.Jobs))
		for _, job := range page.Jobs {
			record := s.normalizer.FromAmazonAPI(job)
			if record.ID == "" {
				s.logger.WithField(logger.ErrorTypeField, logger.ErrorTypeParse).
					Warnf("job %q at offset %d has no id, skipped", job.Title, offset)
				continue
			}
			records = append(records, record)
		}

		s.logger.Infof("offset %d: %d jobs, %d total hits", offset, len(page.Jobs), page.Hits)
		return pagination.Page{Records: records, Total: page.Hits}, nil
	}

	result := pagination.NewController(s.limits, fetch, s.logger).Run(ctx)
	s.logger.Infof("crawl stopped (%s) after %d pages, %d unique jobs", result.Reason, result.Pages, result.Seen.Cardinality())

	return crawlFromResult(result), nil
}

func (s *AmazonAPIScraper) saveRawPage(pageNum int, raw []byte) {
	if s.rawDir == "" || len(raw) == 0 {
		return
	}
	path := filepath.Join(s.rawDir, fmt.Sprintf("page_%d.json", pageNum))
	if err := os.WriteFile(path, raw, 0644); err != nil {
		s.logger.WithField(logger.ErrorTypeField, logger.ErrorTypeStorage).Warnf("failed to save raw page %s: %v", path, err)
	}
}

// AmazonRawDir is where raw search pages of a run are archived.
func AmazonRawDir(dataDir string) string {
	return filepath.Join(dataDir, amazonRawDirName)
}
