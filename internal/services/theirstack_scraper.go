package services

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/maxaizer/jobs-tracker/internal/clients/theirstack"
	"github.com/maxaizer/jobs-tracker/internal/config"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/maxaizer/jobs-tracker/internal/logger"
	"github.com/maxaizer/jobs-tracker/internal/metrics"
	"github.com/maxaizer/jobs-tracker/internal/normalize"
	"github.com/maxaizer/jobs-tracker/internal/pagination"
	"github.com/maxaizer/jobs-tracker/internal/reconcile"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	dateLayout          = "2006-01-02"
	backupTimestampUTC  = "20060102T150405Z"
	defaultWideFetchCap = 10
)

// ErrAlreadyRanToday is returned when the once-a-day guard skips a run.
var ErrAlreadyRanToday = errors.New("already ran today")

type theirStackSearcher interface {
	Search(ctx context.Context, request theirstack.SearchRequest) (theirstack.Response, error)
}

type crawlStateRepository interface {
	Load(ctx context.Context, source models.Source) (models.CrawlSnapshot, error)
	Save(ctx context.Context, source models.Source, lastRunDate string, newIDs []string) error
}

// TheirStackScraper fetches postings published since the previous run. Every
// result is paid for, so a free pre-check with limit 1 decides whether to page
// at all, and ids already returned are excluded from the query.
type TheirStackScraper struct {
	client     theirStackSearcher
	states     crawlStateRepository
	normalizer *normalize.Normalizer
	cfg        config.TheirStackConfig
	titles     []string
	backupDir  string
	force      bool
	now        func() time.Time
	logger     *log.Entry
}

func NewTheirStackScraper(client theirStackSearcher, states crawlStateRepository, normalizer *normalize.Normalizer,
	cfg config.TheirStackConfig, titles []string, backupDir string) *TheirStackScraper {

	return &TheirStackScraper{
		client:     client,
		states:     states,
		normalizer: normalizer,
		cfg:        cfg,
		titles:     titles,
		backupDir:  backupDir,
		now:        time.Now,
		logger:     log.WithField(logger.SourceField, models.SourceTheirStack),
	}
}

// SetForce disables the once-a-day guard.
func (s *TheirStackScraper) SetForce(force bool) {
	s.force = force
}

func (s *TheirStackScraper) Source() models.Source {
	return models.SourceTheirStack
}

func (s *TheirStackScraper) Scrape(ctx context.Context, _ []models.JobRecord) (Crawl, error) {

	state, err := s.states.Load(ctx, models.SourceTheirStack)
	if err != nil {
		s.logger.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to load crawl state: %v", err)
		return Crawl{}, errors.Wrap(err, "load crawl state")
	}

	now := s.now().UTC()
	today := now.Format(dateLayout)
	if state.LastRunDate == today && !s.force {
		s.logger.Infof("already ran today (%s), skipping", today)
		return Crawl{}, ErrAlreadyRanToday
	}

	postedAtGte := state.LastRunDate
	if postedAtGte == "" {
		postedAtGte = now.AddDate(0, 0, -1).Format(dateLayout)
	}

	known := reconcile.NewIDSet(state.SeenIDs...)
	base := theirstack.SearchRequest{
		PostedAtGte:        postedAtGte,
		JobCountryCodeOr:   s.cfg.JobCountryCodeOr,
		PostedAtMaxAgeDays: s.cfg.PostedAtMaxAgeDays,
		JobTitleOr:         s.titles,
		JobIDNot:           excludedIDs(state.SeenIDs, s.cfg.MaxExcludedIDs),
	}
	s.logger.Infof("state: last_run_date=%q seen_ids=%d, querying since %s with %d titles, excluding %d ids",
		state.LastRunDate, len(state.SeenIDs), postedAtGte, len(s.titles), len(base.JobIDNot))

	total, err := s.precheck(ctx, base, "precheck")
	if err != nil {
		return Crawl{}, err
	}
	s.logger.Infof("pre-check total_results=%d", total)

	if total == 0 {
		return s.wideFetch(ctx, base, now, known, state.LastRunDate), nil
	}

	target := min(total, s.cfg.MaxJobsPerRun)
	result := s.fetchPages(ctx, base, target, "page", known)
	return s.crawl(result, today, state.LastRunDate), nil
}

// wideFetch looks over the whole posted_at_max_age_days window when nothing is
// new since the last run, fetching at most wide_fetch_limit jobs. Failures
// here only mean there's nothing to add.
func (s *TheirStackScraper) wideFetch(ctx context.Context, base theirstack.SearchRequest, now time.Time,
	known reconcile.IDSet, lastRunDate string) Crawl {

	wide := base
	wide.PostedAtGte = now.AddDate(0, 0, -s.cfg.PostedAtMaxAgeDays).Format(dateLayout)

	total, err := s.precheck(ctx, wide, "precheck_wide")
	if err != nil {
		s.logger.Warnf("wide pre-check failed: %v", err)
		return Crawl{Partial: true}
	}
	s.logger.Infof("wide pre-check total_results=%d (posted_at_gte=%s)", total, wide.PostedAtGte)

	limit := s.cfg.WideFetchLimit
	if limit == 0 {
		limit = defaultWideFetchCap
	}
	if total == 0 {
		s.logger.Info("no new jobs, skipping paid request")
		return Crawl{Partial: true}
	}

	target := min(total, limit)
	s.logger.Infof("proceeding with limited wide fetch: cap=%d from posted_at_gte=%s", target, wide.PostedAtGte)
	result := s.fetchPages(ctx, wide, target, "page_wide", known)
	return s.crawl(result, now.Format(dateLayout), lastRunDate)
}

func (s *TheirStackScraper) precheck(ctx context.Context, base theirstack.SearchRequest, kind string) (int, error) {

	request := base
	request.Limit = 1
	request.BlurCompanyData = true
	request.IncludeTotalResults = true

	response, err := s.client.Search(ctx, request)
	if err != nil {
		s.logger.WithField(logger.ErrorTypeField, logger.ErrorTypeTheirStackApi).Errorf("%s request failed: %v", kind, err)
		return 0, errors.Wrap(err, kind)
	}
	s.saveResponse(kind, nil, request, response.Raw)
	return response.TotalResults(), nil
}

// fetchPages requests pages 1.. until target jobs were requested, dropping the
// jobs an earlier run already returned.
func (s *TheirStackScraper) fetchPages(ctx context.Context, base theirstack.SearchRequest, target int,
	kind string, known reconcile.IDSet) pagination.Result {

	pageSize := s.cfg.PageSize

	fetch := func(ctx context.Context, offset, limit int) (pagination.Page, error) {

		request := base
		request.Page = offset/pageSize + 1
		request.Limit = min(limit, target-offset)

		start := time.Now()
		response, err := s.client.Search(ctx, request)
		metrics.StepDuration.WithLabelValues(string(models.SourceTheirStack), "page_fetch").Observe(time.Since(start).Seconds())
		if err != nil {
			s.logger.WithField(logger.ErrorTypeField, logger.ErrorTypeTheirStackApi).Errorf("page %d failed: %v", request.Page, err)
			return pagination.Page{}, err
		}
		metrics.PagesFetchedCounter.WithLabelValues(string(models.SourceTheirStack)).Inc()
		s.saveResponse(kind, &request.Page, request, response.Raw)

		ids := make([]string, 0, len(response.Data))
		records := make([]models.JobRecord, 0, len(response.Data))
		for _, job := range response.Data {
			id := strings.TrimSpace(job.ID.String())
			ids = append(ids, id)
			if id == "" || known.Contains(id) {
				continue
			}
			records = append(records, s.normalizer.FromTheirStack(job))
		}

		s.logger.Infof("page %d results=%d new=%d dup=%d", request.Page, len(ids), len(records), len(ids)-len(records))
		return pagination.Page{Records: records, IDs: ids, Total: target}, nil
	}

	return pagination.NewController(pagination.Limits{PageSize: pageSize}, fetch, s.logger).Run(ctx)
}

// crawl wraps a paging result. The state keeps the new ids whatever happened,
// but last_run_date only moves forward when paging wasn't cut short.
func (s *TheirStackScraper) crawl(result pagination.Result, today, lastRunDate string) Crawl {

	crawl := crawlFromResult(result)
	crawl.Partial = true

	runDate := lo.Ternary(crawl.Err == nil, today, lastRunDate)
	newIDs := lo.Map(crawl.Records, func(record models.JobRecord, _ int) string { return record.ID })

	crawl.Commit = func(ctx context.Context) error {
		if err := s.states.Save(ctx, models.SourceTheirStack, runDate, newIDs); err != nil {
			s.logger.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to save crawl state: %v", err)
			return errors.Wrap(err, "save crawl state")
		}
		s.logger.Infof("crawl state saved: last_run_date=%s, %d new ids", runDate, len(newIDs))
		return nil
	}
	return crawl
}

type responseBackup struct {
	TimestampUTC   string                   `json:"timestamp_utc"`
	Kind           string                   `json:"kind"`
	Page           *int                     `json:"page"`
	RequestPayload theirstack.SearchRequest `json:"request_payload"`
	Response       json.RawMessage          `json:"response"`
}

func (s *TheirStackScraper) saveResponse(kind string, page *int, request theirstack.SearchRequest, raw json.RawMessage) {

	if !s.cfg.SaveResponses || s.backupDir == "" {
		return
	}

	ts := s.now().UTC().Format(backupTimestampUTC)
	name := fmt.Sprintf("theirstack_response_%s_%s", kind, ts)
	if page != nil {
		name += fmt.Sprintf("_p%d", *page)
	}
	path := filepath.Join(s.backupDir, name+".json")

	if len(raw) == 0 {
		raw = nil
	}
	data, err := json.MarshalIndent(responseBackup{
		TimestampUTC:   ts,
		Kind:           kind,
		Page:           page,
		RequestPayload: request,
		Response:       raw,
	}, "", "  ")
	if err == nil {
		if err = os.MkdirAll(s.backupDir, 0755); err == nil {
			err = os.WriteFile(path, data, 0644)
		}
	}
	if err != nil {
		s.logger.WithField(logger.ErrorTypeField, logger.ErrorTypeStorage).Warnf("failed to save %s response backup: %v", kind, err)
		return
	}
	s.logger.Debugf("saved %s response backup: %s", kind, path)
}

// excludedIDs keeps the most recent ids when there are more than limit.
func excludedIDs(seen []string, limit int) []string {
	if limit <= 0 || len(seen) <= limit {
		return seen
	}
	return seen[len(seen)-limit:]
}
