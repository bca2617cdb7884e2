package services

import (
	"context"
	"fmt"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/maxaizer/jobs-tracker/internal/pagination"
	"github.com/maxaizer/jobs-tracker/internal/reconcile"
)

// Scraper crawls one source. A returned error aborts the run for that source
// and leaves its snapshot untouched.
type Scraper interface {
	Source() models.Source
	Scrape(ctx context.Context, prior []models.JobRecord) (Crawl, error)
}

// Crawl is what a scraper observed during one run.
type Crawl struct {
	Records []models.JobRecord
	Seen    reconcile.IDSet
	Pages   int
	Reason  pagination.StopReason
	// Partial crawls didn't walk the whole listing, they only add and update rows.
	Partial bool
	// Err is the failure that truncated the crawl. What was fetched before it is kept.
	Err error
	// Commit runs once the snapshot is persisted.
	Commit func(ctx context.Context) error
}

func crawlFromResult(result pagination.Result) Crawl {
	crawl := Crawl{
		Records: result.Records,
		Seen:    result.Seen,
		Pages:   result.Pages,
		Reason:  result.Reason,
		Partial: !result.Exhaustive(),
		Err:     result.Err,
	}
	if crawl.Err == nil && result.Reason == pagination.StopCancelled {
		crawl.Err = fmt.Errorf("crawl cancelled after %d pages", result.Pages)
	}
	return crawl
}
