package repositories

import (
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func Test_Combine_ShouldUnionSnapshotsAndInferSource(t *testing.T) {

	dir := t.TempDir()
	amazon := filepath.Join(dir, "amazon_jobs.csv")
	theirstack := filepath.Join(dir, "theirstack_jobs.csv")
	output := filepath.Join(dir, "processed", "combined_jobs.csv")

	require.NoError(t, os.WriteFile(amazon, []byte("id,title,job_url,active\n1,Engineer,https://amazon.jobs/en/jobs/1,False\n"), 0o644))
	require.NoError(t, WriteAtomic(theirstack, func(w io.Writer) error {
		record := models.JobRecord{ID: "ts-1", Title: "Data Scientist", Active: true, Source: models.SourceTheirStack}
		record.SetExtra("about", "fintech")
		return WriteRecords(w, []models.JobRecord{record}, true)
	}))

	count, err := Combine([]string{amazon, theirstack, filepath.Join(dir, "missing_jobs.csv")}, output)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	records, err := LoadCombined(output)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, models.SourceAmazon, records[0].Source)
	assert.Equal(t, "https://amazon.jobs/en/jobs/1", records[0].URL)
	assert.False(t, records[0].Active)

	assert.Equal(t, models.SourceTheirStack, records[1].Source)
	assert.Empty(t, records[1].Extra)
}

func Test_Combine_NothingReadable_ShouldFail(t *testing.T) {

	dir := t.TempDir()

	_, err := Combine([]string{filepath.Join(dir, "amazon_jobs.csv")}, filepath.Join(dir, "combined.csv"))

	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "combined.csv"))
}

func Test_LoadCombined_MissingFile_ShouldFail(t *testing.T) {
	_, err := LoadCombined(filepath.Join(t.TempDir(), "combined.csv"))

	assert.Error(t, err)
}

func Test_SourceFromFileName_ShouldMatchPrefixes(t *testing.T) {
	assert.Equal(t, models.SourceAmazonAPI, SourceFromFileName("data/raw/amazon_api_jobs.csv"))
	assert.Equal(t, models.SourceAmazon, SourceFromFileName("Amazon_jobs.csv"))
	assert.Equal(t, models.SourceTheirStack, SourceFromFileName("/tmp/theirstack_jobs.csv"))
	assert.Equal(t, SourceUnknown, SourceFromFileName("linkedin_jobs.csv"))
}
