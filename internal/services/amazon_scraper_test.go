package services

import (
	"context"
	"fmt"
	"github.com/maxaizer/jobs-tracker/internal/browser"
	"github.com/maxaizer/jobs-tracker/internal/clients/amazon"
	"github.com/maxaizer/jobs-tracker/internal/config"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/maxaizer/jobs-tracker/internal/normalize"
	"github.com/maxaizer/jobs-tracker/internal/pagination"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"strings"
	"testing"
)

func amazonJob(id, title string) amazon.Job {
	return amazon.Job{
		IDIcims:    amazon.FlexString(id),
		Title:      title,
		JobPath:    "/en/jobs/" + id,
		PostedDate: "March 5, 2025",
	}
}

func amazonPage(hits int, jobs ...amazon.Job) amazon.Page {
	return amazon.Page{SearchResponse: amazon.SearchResponse{Hits: hits, Jobs: jobs}, Raw: []byte(`{"hits":1}`)}
}

func Test_AmazonAPIScraper_ShouldPageUntilTotalAndArchiveRawPages(t *testing.T) {

	rawDir := filepath.Join(t.TempDir(), "amazon_api_raw")
	client := &mockAmazonClient{limit: 2}
	client.On("Search", mock.Anything, 0).Return(amazonPage(3, amazonJob("101", "Data Engineer"), amazonJob("102", "SDE")), nil).Once()
	client.On("Search", mock.Anything, 2).Return(amazonPage(3, amazonJob("103", "Applied Scientist")), nil).Once()

	scraper := NewAmazonAPIScraper(client, normalize.New(nil), config.AmazonConfig{}, 0, 0, rawDir)
	crawl, err := scraper.Scrape(context.Background(), nil)

	require.NoError(t, err)
	assert.False(t, crawl.Partial)
	assert.NoError(t, crawl.Err)
	assert.Equal(t, pagination.StopTotalReached, crawl.Reason)
	assert.Equal(t, []string{"101", "102", "103"}, recordIDs(crawl.Records))
	assert.Equal(t, models.SourceAmazonAPI, crawl.Records[0].Source)
	assert.Equal(t, "https://amazon.jobs/en/jobs/101", crawl.Records[0].URL)
	assert.FileExists(t, filepath.Join(rawDir, "page_1.json"))
	assert.FileExists(t, filepath.Join(rawDir, "page_2.json"))
	client.AssertExpectations(t)
}

func Test_AmazonAPIScraper_MaxPages_ShouldReturnPartialCrawl(t *testing.T) {

	client := &mockAmazonClient{limit: 2}
	client.On("Search", mock.Anything, 0).Return(amazonPage(10, amazonJob("1", "A"), amazonJob("2", "B")), nil).Once()

	scraper := NewAmazonAPIScraper(client, normalize.New(nil), config.AmazonConfig{MaxPages: 1}, 0, 0, "")
	crawl, err := scraper.Scrape(context.Background(), nil)

	require.NoError(t, err)
	assert.True(t, crawl.Partial)
	assert.NoError(t, crawl.Err)
	assert.Equal(t, pagination.StopMaxPages, crawl.Reason)
	assert.Len(t, crawl.Records, 2)
}

func Test_AmazonAPIScraper_FetchError_ShouldKeepEarlierPages(t *testing.T) {

	client := &mockAmazonClient{limit: 2}
	client.On("Search", mock.Anything, 0).Return(amazonPage(10, amazonJob("1", "A"), amazonJob("2", "B")), nil).Once()
	client.On("Search", mock.Anything, 2).Return(amazon.Page{}, errors.New("status 503")).Once()

	scraper := NewAmazonAPIScraper(client, normalize.New(nil), config.AmazonConfig{}, 0, 0, "")
	crawl, err := scraper.Scrape(context.Background(), nil)

	require.NoError(t, err)
	assert.True(t, crawl.Partial)
	assert.ErrorContains(t, crawl.Err, "503")
	assert.Equal(t, []string{"1", "2"}, recordIDs(crawl.Records))
}

func Test_AmazonAPIScraper_JobWithoutID_ShouldBeSkipped(t *testing.T) {

	client := &mockAmazonClient{limit: 10}
	client.On("Search", mock.Anything, 0).Return(amazonPage(2, amazonJob("1", "A"), amazon.Job{Title: "Ghost"}), nil).Once()

	scraper := NewAmazonAPIScraper(client, normalize.New(nil), config.AmazonConfig{}, 0, 0, "")
	crawl, err := scraper.Scrape(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, recordIDs(crawl.Records))
}

const testSearchURL = "https://www.amazon.jobs/en/search?result_limit=10"

func listingURL(offset int) string {
	return amazon.SetQueryParam(testSearchURL, "offset", fmt.Sprint(offset))
}

func detailURL(id string) string {
	return "https://amazon.jobs/en/jobs/" + id
}

func listingHTML(ids ...string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>Search results</title></head><body>")
	for _, id := range ids {
		fmt.Fprintf(&b, `<div class="job-tile" data-job-id="%s"><a href="/en/jobs/%s"><h3>Data Engineer %s, AWS</h3></a>`+
			`<h2 class="posting-date">Posted March 5, 2025</h2></div>`, id, id, id)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func detailHTML(description string) string {
	return `<html><head><title>Job</title></head><body>` +
		`<div class="association job-category-icon"><a href="/c">Data Science</a></div>` +
		`<h2>DESCRIPTION</h2><p>` + description + `</p>` +
		`<h2>BASIC QUALIFICATIONS</h2><p>- SQL<br>- Python</p></body></html>`
}

const botWallHTML = `<html><head><title>Robot Check</title></head><body><p>Please solve the captcha to continue.</p></body></html>`

func browserConfig() config.AmazonConfig {
	return config.AmazonConfig{SearchURL: testSearchURL, MaxWorkers: 2, BatchSize: 2}
}

func Test_AmazonBrowserScraper_ShouldSkipKnownJobsButKeepThemSeen(t *testing.T) {

	site := newFakeSite(map[string]string{
		listingURL(0):  listingHTML("1", "2", "3"),
		detailURL("1"): detailHTML("Build pipelines."),
		detailURL("2"): detailHTML("Known job."),
		detailURL("3"): detailHTML("Train models."),
	})
	prior := []models.JobRecord{{ID: "2", Title: "Data Engineer 2, AWS", Active: true, Source: models.SourceAmazon}}

	scraper := NewAmazonBrowserScraper(site.launcher(), normalize.New(nil), browserConfig())
	crawl, err := scraper.Scrape(context.Background(), prior)

	require.NoError(t, err)
	assert.False(t, crawl.Partial)
	assert.Equal(t, pagination.StopShortPage, crawl.Reason)
	assert.Equal(t, []string{"1", "3"}, recordIDs(crawl.Records))
	assert.True(t, crawl.Seen.Contains("2"))
	assert.Zero(t, site.loadCount(detailURL("2")))

	first := crawl.Records[0]
	assert.Equal(t, "Build pipelines.", first.Description)
	assert.Equal(t, "- SQL\n- Python", first.BasicQual)
	assert.Equal(t, "Data Science", first.JobCategory)
	assert.Equal(t, "Data Engineer 1", first.Role)
	assert.Equal(t, "AWS", first.Team)
	assert.Equal(t, models.SourceAmazon, first.Source)

	assert.Equal(t, site.opened, site.closed)
}

func Test_AmazonBrowserScraper_KnownIDWithFloatSuffix_ShouldNotReloadDetail(t *testing.T) {

	site := newFakeSite(map[string]string{
		listingURL(0):  listingHTML("1", "2"),
		detailURL("1"): detailHTML("One."),
		detailURL("2"): detailHTML("Two."),
	})
	prior := []models.JobRecord{{ID: "2.0", Title: "Data Engineer 2, AWS", Active: true, Source: models.SourceAmazon}}

	scraper := NewAmazonBrowserScraper(site.launcher(), normalize.New(nil), browserConfig())
	crawl, err := scraper.Scrape(context.Background(), prior)

	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, recordIDs(crawl.Records))
	assert.True(t, crawl.Seen.Contains("2"))
	assert.Zero(t, site.loadCount(detailURL("2")))
	assert.Equal(t, 1, site.loadCount(detailURL("1")))
}

func Test_AmazonBrowserScraper_RefreshExisting_ShouldReloadKnownJobs(t *testing.T) {

	site := newFakeSite(map[string]string{
		listingURL(0):  listingHTML("1", "2"),
		detailURL("1"): detailHTML("One."),
		detailURL("2"): detailHTML("Two."),
	})
	cfg := browserConfig()
	cfg.RefreshExisting = true

	scraper := NewAmazonBrowserScraper(site.launcher(), normalize.New(nil), cfg)
	crawl, err := scraper.Scrape(context.Background(), []models.JobRecord{{ID: "2", Active: true}})

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, recordIDs(crawl.Records))
	assert.Equal(t, "Two.", crawl.Records[1].Description)
}

func Test_AmazonBrowserScraper_BlockedListing_ShouldAbort(t *testing.T) {

	site := newFakeSite(map[string]string{listingURL(0): botWallHTML})

	scraper := NewAmazonBrowserScraper(site.launcher(), normalize.New(nil), browserConfig())
	_, err := scraper.Scrape(context.Background(), nil)

	assert.ErrorIs(t, err, browser.ErrBlocked)
}

func Test_AmazonBrowserScraper_BlockedDetail_ShouldAbort(t *testing.T) {

	site := newFakeSite(map[string]string{
		listingURL(0):  listingHTML("1", "2"),
		detailURL("1"): detailHTML("One."),
		detailURL("2"): botWallHTML,
	})

	scraper := NewAmazonBrowserScraper(site.launcher(), normalize.New(nil), browserConfig())
	_, err := scraper.Scrape(context.Background(), nil)

	assert.ErrorIs(t, err, browser.ErrBlocked)
	assert.Equal(t, site.opened, site.closed)
}

func Test_AmazonBrowserScraper_DetailLoadFailure_ShouldKeepListingFields(t *testing.T) {

	site := newFakeSite(map[string]string{
		listingURL(0):  listingHTML("1", "2"),
		detailURL("1"): detailHTML("One."),
	})

	scraper := NewAmazonBrowserScraper(site.launcher(), normalize.New(nil), browserConfig())
	crawl, err := scraper.Scrape(context.Background(), nil)

	require.NoError(t, err)
	require.Equal(t, []string{"1", "2"}, recordIDs(crawl.Records))
	assert.Equal(t, "One.", crawl.Records[0].Description)
	assert.Empty(t, crawl.Records[1].Description)
	assert.Equal(t, "Data Engineer 2, AWS", crawl.Records[1].Title)
}

func Test_AmazonBrowserScraper_EmptyListing_ShouldReturnEmptyCrawl(t *testing.T) {

	site := newFakeSite(map[string]string{listingURL(0): listingHTML()})

	scraper := NewAmazonBrowserScraper(site.launcher(), normalize.New(nil), browserConfig())
	crawl, err := scraper.Scrape(context.Background(), []models.JobRecord{{ID: "9", Active: true}})

	require.NoError(t, err)
	assert.Empty(t, crawl.Records)
	assert.Zero(t, crawl.Seen.Cardinality())
	assert.Equal(t, pagination.StopEmptyPage, crawl.Reason)
}

func Test_AmazonBrowserScraper_LaunchFailure_ShouldReturnError(t *testing.T) {

	launch := func() (BrowserSession, error) { return nil, errors.New("chromium not installed") }

	scraper := NewAmazonBrowserScraper(launch, normalize.New(nil), browserConfig())
	_, err := scraper.Scrape(context.Background(), nil)

	assert.ErrorContains(t, err, "launch browser")
}
