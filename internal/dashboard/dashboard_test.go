package dashboard

import (
	"bytes"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/maxaizer/jobs-tracker/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func date(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func newTestGenerator(t *testing.T) *Generator {
	g, err := NewGenerator("Luxembourg Tech Jobs", 30)
	require.NoError(t, err)
	g.now = func() time.Time { return fixedNow }
	return g
}

func testRecords() []models.JobRecord {
	return []models.JobRecord{
		{ID: "1", Title: "Old Analyst", Role: "Analyst", Team: "Retail", JobCategory: "Business Intelligence",
			Source: models.SourceAmazonAPI, Active: false, PostingDate: date(2024, 12, 1), URL: "https://amazon.jobs/en/jobs/1"},
		{ID: "2", Title: "Data Engineer, AWS", Role: "Data Engineer", Team: "AWS", JobCategory: "Data Science",
			Source: models.SourceAmazonAPI, Active: true, PostingDate: date(2025, 3, 5), URL: "https://amazon.jobs/en/jobs/2"},
		{ID: "3", Title: "Backend Developer <Go>", Role: "Backend Developer <Go>", Team: "External", JobCategory: "Software Development",
			Source: models.SourceTheirStack, Active: true},
	}
}

func Test_Build_ShouldComputeStatsAndOptions(t *testing.T) {

	view := newTestGenerator(t).Build(testRecords())

	assert.Equal(t, 3, view.Stats.Total)
	assert.Equal(t, 2, view.Stats.Active)
	assert.Equal(t, 1, view.Stats.Inactive)
	assert.Equal(t, 1, view.Stats.Recent)
	assert.Equal(t, []SourceCount{
		{Source: models.SourceAmazonAPI, Total: 2, Active: 1},
		{Source: models.SourceTheirStack, Total: 1, Active: 1},
	}, view.Stats.BySource)

	assert.Equal(t, []string{"Business Intelligence", "Data Science", "Software Development"}, view.Categories)
	assert.Equal(t, []string{"AWS", "External", "Retail"}, view.Teams)
	assert.Equal(t, []string{"AmazonAPI", "TheirStack"}, view.Sources)
	assert.Equal(t, "2025-03-10 09:00:00 UTC", view.LastUpdated)
}

func Test_Build_ShouldSortNewestFirstAndUndatedLast(t *testing.T) {

	view := newTestGenerator(t).Build(testRecords())

	require.Len(t, view.Rows, 3)
	assert.Equal(t, "Data Engineer, AWS", view.Rows[0].Title)
	assert.Equal(t, "2025-03-05", view.Rows[0].Posted)
	assert.Equal(t, "Old Analyst", view.Rows[1].Title)
	assert.Equal(t, "Inactive", view.Rows[1].Status)
	assert.Empty(t, view.Rows[2].Posted)
}

func Test_Render_ShouldEscapeAndListColumns(t *testing.T) {

	var buf bytes.Buffer
	require.NoError(t, newTestGenerator(t).Render(&buf, testRecords()))
	html := buf.String()

	for _, header := range []string{"Title", "Role", "Team", "Category", "Source", "Posted", "Status", "Link"} {
		assert.Contains(t, html, ">"+header+"</th>")
	}
	assert.Contains(t, html, "Backend Developer &lt;Go&gt;")
	assert.NotContains(t, html, "Backend Developer <Go>")
	assert.Contains(t, html, `id="category-filter"`)
	assert.Contains(t, html, `<option value="TheirStack">TheirStack</option>`)
	assert.Contains(t, html, `href="https://amazon.jobs/en/jobs/2"`)
}

func Test_Generate_ShouldWriteDashboardFromCombinedFile(t *testing.T) {

	dir := t.TempDir()
	combined := filepath.Join(dir, "combined_jobs.csv")
	output := filepath.Join(dir, "docs", "index.html")

	file, err := os.Create(combined)
	require.NoError(t, err)
	require.NoError(t, repositories.WriteRecords(file, testRecords(), false))
	require.NoError(t, file.Close())

	require.NoError(t, newTestGenerator(t).Generate(combined, output))

	html, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Data Engineer, AWS")
	assert.Contains(t, string(html), "Luxembourg Tech Jobs")
}

func Test_Generate_MissingCombinedFile_ShouldWriteErrorPage(t *testing.T) {

	dir := t.TempDir()
	output := filepath.Join(dir, "index.html")

	err := newTestGenerator(t).Generate(filepath.Join(dir, "missing.csv"), output)
	assert.Error(t, err)

	html, readErr := os.ReadFile(output)
	require.NoError(t, readErr)
	assert.Contains(t, string(html), "could not be loaded")
	assert.NotContains(t, string(html), "job-table")
}
