package services

import (
	"context"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/jobs-tracker/internal/domain/events"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/maxaizer/jobs-tracker/internal/logger"
	"github.com/maxaizer/jobs-tracker/internal/metrics"
	"github.com/maxaizer/jobs-tracker/internal/reconcile"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"time"
)

type snapshotRepository interface {
	Load(source models.Source) []models.JobRecord
	Save(source models.Source, records []models.JobRecord) (string, error)
}

// SourceResult is the outcome of one source run.
type SourceResult struct {
	Source   models.Source
	Status   models.RunStatus
	Fetched  int
	Inserted int
	Active   int
	Inactive int
	Err      error
}

type Summary struct {
	Results []SourceResult
}

// Failed reports whether any source failed. Skipped sources don't count.
func (s Summary) Failed() bool {
	return lo.SomeBy(s.Results, func(result SourceResult) bool { return result.Status == models.RunFailed })
}

// Runner crawls sources one after another, reconciles each crawl against the
// source's snapshot and persists the result. A failing source never stops
// the others.
type Runner struct {
	bus       EventBus.Bus
	snapshots snapshotRepository
	now       func() time.Time
}

func NewRunner(bus EventBus.Bus, snapshots snapshotRepository) *Runner {
	return &Runner{bus: bus, snapshots: snapshots, now: time.Now}
}

func (r *Runner) Run(ctx context.Context, scrapers []Scraper) Summary {

	summary := Summary{}
	for _, scraper := range scrapers {
		if ctx.Err() != nil {
			summary.Results = append(summary.Results, SourceResult{
				Source: scraper.Source(),
				Status: models.RunFailed,
				Err:    ctx.Err(),
			})
			continue
		}
		summary.Results = append(summary.Results, r.RunSource(ctx, scraper))
	}

	for _, result := range summary.Results {
		entry := log.WithField(logger.SourceField, result.Source)
		if result.Err != nil && result.Status == models.RunFailed {
			entry.Errorf("%s: %v", result.Status, result.Err)
			continue
		}
		entry.Infof("%s: fetched=%d inserted=%d active=%d inactive=%d",
			result.Status, result.Fetched, result.Inserted, result.Active, result.Inactive)
	}
	return summary
}

func (r *Runner) RunSource(ctx context.Context, scraper Scraper) SourceResult {

	source := scraper.Source()
	entry := log.WithField(logger.SourceField, source)
	started := r.now()

	result := r.runSource(ctx, scraper, entry)

	duration := r.now().Sub(started)
	r.bus.Publish(events.SourceCompletedTopic, events.SourceCompleted{
		Source:    source,
		StartedAt: started,
		Duration:  duration,
		Status:    result.Status,
		Fetched:   result.Fetched,
		Inserted:  result.Inserted,
		Active:    result.Active,
		Inactive:  result.Inactive,
		Err:       result.Err,
	})
	entry.Infof("run finished in %v with status %s", duration.Round(time.Millisecond), result.Status)
	return result
}

func (r *Runner) runSource(ctx context.Context, scraper Scraper, entry *log.Entry) SourceResult {

	source := scraper.Source()
	result := SourceResult{Source: source}

	prior := r.snapshots.Load(source)
	entry.Infof("loaded %d prior records", len(prior))

	start := r.now()
	crawl, err := scraper.Scrape(ctx, prior)
	metrics.StepDuration.WithLabelValues(string(source), "crawl").Observe(r.now().Sub(start).Seconds())

	if errors.Is(err, ErrAlreadyRanToday) {
		result.Status = models.RunSkipped
		return result
	}
	if err != nil {
		entry.Errorf("crawl failed, snapshot left untouched: %v", err)
		result.Status = models.RunFailed
		result.Err = err
		return result
	}

	result.Fetched = len(crawl.Records)
	metrics.JobsScrapedCounter.WithLabelValues(string(source)).Add(float64(result.Fetched))

	seen := crawl.Seen
	if crawl.Partial || crawl.Err != nil {
		if crawl.Err == nil {
			entry.Warnf("crawl stopped early (%s), missing jobs are not deactivated", crawl.Reason)
		}
		seen = reconcile.UpsertSeen(prior, crawl.Records)
	}

	start = r.now()
	reconciled := reconcile.Reconcile(prior, crawl.Records, seen)
	metrics.StepDuration.WithLabelValues(string(source), "reconcile").Observe(r.now().Sub(start).Seconds())

	result.Inserted = reconciled.Inserted
	result.Active = reconciled.Active
	result.Inactive = reconciled.Inactive

	if reconciled.Skipped {
		entry.Warn("no job ids observed, snapshot left untouched")
	} else {
		start = r.now()
		backup, err := r.snapshots.Save(source, reconciled.Records)
		metrics.StepDuration.WithLabelValues(string(source), "persist").Observe(r.now().Sub(start).Seconds())
		if err != nil {
			entry.WithField(logger.ErrorTypeField, logger.ErrorTypeStorage).Errorf("failed to save snapshot: %v", err)
			result.Status = models.RunFailed
			result.Err = errors.Wrap(err, "save snapshot")
			return result
		}
		if backup != "" {
			entry.Debugf("previous snapshot backed up to %s", backup)
		}
		entry.Infof("snapshot saved: %d records, %d inserted, %d updated, %d dropped",
			reconciled.Total(), reconciled.Inserted, reconciled.Updated, reconciled.Dropped)
	}

	if crawl.Commit != nil {
		if err := crawl.Commit(context.WithoutCancel(ctx)); err != nil {
			result.Status = models.RunFailed
			result.Err = err
			return result
		}
	}

	if crawl.Err != nil {
		result.Status = models.RunFailed
		result.Err = errors.Wrap(crawl.Err, "crawl truncated")
		return result
	}

	result.Status = models.RunSucceeded
	return result
}
