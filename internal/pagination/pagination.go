// Package pagination drives offset/limit fetching until one of the stop rules fires.
package pagination

import (
	"context"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/maxaizer/jobs-tracker/internal/reconcile"
	log "github.com/sirupsen/logrus"
	"math/rand"
	"time"
)

type StopReason string

const (
	StopTotalReached StopReason = "total_reached"
	StopEmptyPage    StopReason = "empty_page"
	StopShortPage    StopReason = "short_page"
	StopMaxPages     StopReason = "max_pages"
	StopMaxJobs      StopReason = "max_jobs"
	StopMaxRuntime   StopReason = "max_runtime"
	StopStagnation   StopReason = "stagnation"
	StopFetchError   StopReason = "fetch_error"
	StopCancelled    StopReason = "cancelled"
)

// stagnationLimit is the number of consecutive fetches without a new id that ends the loop.
const stagnationLimit = 2

// Page is one fetched page.
type Page struct {
	Records []models.JobRecord
	// IDs observed on the page. Defaults to the record ids when nil; sources that
	// skip re-scraping known jobs report those ids here too.
	IDs []string
	// Total is the hit count reported by the endpoint, 0 when unknown.
	Total int
}

type FetchFunc func(ctx context.Context, offset, limit int) (Page, error)

type Limits struct {
	PageSize   int
	MaxPages   int
	MaxJobs    int
	MaxRuntime time.Duration
	// MinInterval and Jitter pace consecutive fetches.
	MinInterval time.Duration
	Jitter      time.Duration
	// StartOffset is the offset of the first page.
	StartOffset int
}

type Result struct {
	Records []models.JobRecord
	Seen    reconcile.IDSet
	Pages   int
	Total   int
	Reason  StopReason
	// Err is the fetch error that truncated the loop, if any.
	Err error
}

// Complete reports whether the crawl ended on its own rather than on an error.
func (r Result) Complete() bool {
	return r.Err == nil && r.Reason != StopCancelled
}

// Exhaustive reports whether the crawl walked the whole listing. Caps end a
// crawl cleanly but leave the rest of the listing unseen. A stagnating
// endpoint counts only when every reported hit was observed.
func (r Result) Exhaustive() bool {
	if r.Err != nil {
		return false
	}
	switch r.Reason {
	case StopTotalReached, StopEmptyPage, StopShortPage:
		return true
	case StopStagnation:
		return r.Total > 0 && r.Seen != nil && r.Seen.Cardinality() >= r.Total
	default:
		return false
	}
}

type Controller struct {
	limits Limits
	fetch  FetchFunc
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	logger *log.Entry
}

func NewController(limits Limits, fetch FetchFunc, logger *log.Entry) *Controller {
	if limits.PageSize <= 0 {
		limits.PageSize = 10
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Controller{
		limits: limits,
		fetch:  fetch,
		now:    time.Now,
		sleep:  sleepContext,
		logger: logger,
	}
}

// Run fetches pages until a stop rule fires. A fetch error truncates the loop,
// the pages fetched before it are still returned.
func (c *Controller) Run(ctx context.Context) Result {

	result := Result{Seen: reconcile.NewIDSet()}
	started := c.now()
	offset := c.limits.StartOffset
	stagnant := 0

	for {
		if ctx.Err() != nil {
			result.Reason = StopCancelled
			return result
		}
		if c.limits.MaxPages > 0 && result.Pages >= c.limits.MaxPages {
			result.Reason = StopMaxPages
			return result
		}
		if c.limits.MaxRuntime > 0 && c.now().Sub(started) >= c.limits.MaxRuntime {
			result.Reason = StopMaxRuntime
			return result
		}

		if result.Pages > 0 {
			if err := c.sleep(ctx, c.delay()); err != nil {
				result.Reason = StopCancelled
				return result
			}
		}

		page, err := c.fetch(ctx, offset, c.limits.PageSize)
		if err != nil {
			if ctx.Err() != nil {
				result.Reason = StopCancelled
				return result
			}
			c.logger.Warnf("page at offset %d failed, stopping pagination: %v", offset, err)
			result.Reason = StopFetchError
			result.Err = err
			return result
		}
		result.Pages++
		if page.Total > 0 {
			result.Total = page.Total
		}

		ids := page.IDs
		if ids == nil {
			ids = make([]string, 0, len(page.Records))
			for _, record := range page.Records {
				ids = append(ids, record.ID)
			}
		}

		if len(ids) == 0 && len(page.Records) == 0 {
			result.Reason = StopEmptyPage
			return result
		}

		newIDs := 0
		for _, id := range ids {
			if id != "" && result.Seen.Add(id) {
				newIDs++
			}
		}
		result.Records = append(result.Records, page.Records...)

		c.logger.Debugf("offset %d: rows=%d new_ids=%d unique_ids=%d", offset, len(ids), newIDs, result.Seen.Cardinality())

		if newIDs == 0 {
			stagnant++
		} else {
			stagnant = 0
		}
		if stagnant >= stagnationLimit {
			c.logger.Warnf("no new ids in %d consecutive pages, stopping at offset %d", stagnant, offset)
			result.Reason = StopStagnation
			return result
		}

		if c.limits.MaxJobs > 0 && result.Seen.Cardinality() >= c.limits.MaxJobs {
			result.Reason = StopMaxJobs
			return result
		}

		offset += c.limits.PageSize
		if result.Total > 0 && offset >= result.Total {
			result.Reason = StopTotalReached
			return result
		}
		if len(ids) < c.limits.PageSize {
			result.Reason = StopShortPage
			return result
		}
	}
}

func (c *Controller) delay() time.Duration {
	d := c.limits.MinInterval
	if c.limits.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(c.limits.Jitter)))
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
