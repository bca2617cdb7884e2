package services

import (
	"context"
	"github.com/maxaizer/jobs-tracker/internal/browser"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/maxaizer/jobs-tracker/internal/metrics"
	gocache "github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
	"time"
)

type detailCache struct {
	cache *gocache.Cache
}

func newDetailCache(cache *gocache.Cache) *detailCache {
	return &detailCache{cache: cache}
}

// getDetail returns the parsed detail page of jobID, loading it through page on
// a miss. Only non-empty details are cached, an empty one may be a bot wall.
func (h *detailCache) getDetail(ctx context.Context, page browser.Page, jobID, url string) (browser.Detail, browser.Document, error) {

	if cached, found := h.cache.Get(jobID); found {
		return cached.(browser.Detail), browser.Document{URL: url}, nil
	}

	start := time.Now()
	doc, err := page.Load(ctx, url)
	metrics.StepDuration.WithLabelValues(string(models.SourceAmazon), "detail_fetch").Observe(time.Since(start).Seconds())
	if err != nil {
		return browser.Detail{}, doc, err
	}

	detail, err := browser.ParseDetail(doc.HTML)
	if err != nil {
		return browser.Detail{}, doc, err
	}

	if !detail.Empty() {
		if cacheErr := h.cache.Add(jobID, detail, gocache.DefaultExpiration); cacheErr != nil {
			log.Debugf("detail of %s already cached: %v", jobID, cacheErr)
		}
	}
	return detail, doc, nil
}
