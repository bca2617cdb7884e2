package services

import (
	"context"
	"github.com/maxaizer/jobs-tracker/internal/browser"
	"github.com/maxaizer/jobs-tracker/internal/clients/amazon"
	"github.com/maxaizer/jobs-tracker/internal/clients/theirstack"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"sync"
	"time"
)

type mockScraper struct {
	mock.Mock
	source models.Source
}

func (m *mockScraper) Source() models.Source {
	return m.source
}

func (m *mockScraper) Scrape(ctx context.Context, prior []models.JobRecord) (Crawl, error) {
	args := m.Called(ctx, prior)
	return args.Get(0).(Crawl), args.Error(1)
}

type memorySnapshots struct {
	records map[models.Source][]models.JobRecord
	saves   int
	saveErr error
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{records: map[models.Source][]models.JobRecord{}}
}

func (m *memorySnapshots) Load(source models.Source) []models.JobRecord {
	return m.records[source]
}

func (m *memorySnapshots) Save(source models.Source, records []models.JobRecord) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.saves++
	m.records[source] = records
	return "", nil
}

type mockRunHistory struct {
	mock.Mock
}

func (m *mockRunHistory) Add(ctx context.Context, record models.RunRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockRunHistory) RemoveOlderThan(ctx context.Context, expirationTime time.Time) (int64, error) {
	args := m.Called(ctx, expirationTime)
	return args.Get(0).(int64), args.Error(1)
}

type mockAmazonClient struct {
	mock.Mock
	limit int
}

func (m *mockAmazonClient) Search(ctx context.Context, offset int) (amazon.Page, error) {
	args := m.Called(ctx, offset)
	return args.Get(0).(amazon.Page), args.Error(1)
}

func (m *mockAmazonClient) ResultLimit() int {
	return m.limit
}

type mockTheirStackClient struct {
	mock.Mock
}

func (m *mockTheirStackClient) Search(ctx context.Context, request theirstack.SearchRequest) (theirstack.Response, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(theirstack.Response), args.Error(1)
}

type mockCrawlStates struct {
	mock.Mock
}

func (m *mockCrawlStates) Load(ctx context.Context, source models.Source) (models.CrawlSnapshot, error) {
	args := m.Called(ctx, source)
	return args.Get(0).(models.CrawlSnapshot), args.Error(1)
}

func (m *mockCrawlStates) Save(ctx context.Context, source models.Source, lastRunDate string, newIDs []string) error {
	return m.Called(ctx, source, lastRunDate, newIDs).Error(0)
}

// fakeSite serves fixed HTML per URL to every page it opens.
type fakeSite struct {
	mu     sync.Mutex
	pages  map[string]string
	loads  map[string]int
	opened int
	closed int
}

func newFakeSite(pages map[string]string) *fakeSite {
	return &fakeSite{pages: pages, loads: map[string]int{}}
}

func (s *fakeSite) NewPage() (browser.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened++
	return &fakePage{site: s}, nil
}

func (s *fakeSite) Close() error {
	return nil
}

func (s *fakeSite) launcher() BrowserLauncher {
	return func() (BrowserSession, error) { return s, nil }
}

func (s *fakeSite) loadCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads[url]
}

type fakePage struct {
	site *fakeSite
}

func (p *fakePage) Load(ctx context.Context, url string) (browser.Document, error) {
	if err := ctx.Err(); err != nil {
		return browser.Document{}, err
	}
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	p.site.loads[url]++
	html, ok := p.site.pages[url]
	if !ok {
		return browser.Document{URL: url}, errors.Errorf("no page at %s", url)
	}
	return browser.Document{URL: url, HTML: html}, nil
}

func (p *fakePage) Close() error {
	p.site.mu.Lock()
	defer p.site.mu.Unlock()
	p.site.closed++
	return nil
}
