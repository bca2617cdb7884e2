package services

import (
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/maxaizer/jobs-tracker/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeCSV(t *testing.T, path string, records []models.JobRecord) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, repositories.WriteRecords(file, records, false))
	require.NoError(t, file.Close())
}

func postedDaysAgo(now time.Time, days int) *time.Time {
	d := now.AddDate(0, 0, -days)
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

func newTestHealthChecker(file string, now time.Time) *HealthChecker {
	checker := NewHealthChecker(file, 24*time.Hour, 30)
	checker.now = func() time.Time { return now }
	return checker
}

func Test_HealthChecker_FreshData_ShouldBeHealthy(t *testing.T) {

	file := filepath.Join(t.TempDir(), "combined_jobs.csv")
	now := time.Now()
	writeCSV(t, file, []models.JobRecord{
		{ID: "1", Title: "A", Active: true, Source: models.SourceAmazonAPI, PostingDate: postedDaysAgo(now, 3)},
		{ID: "2", Title: "B", Active: false, Source: models.SourceAmazonAPI, PostingDate: postedDaysAgo(now, 90)},
		{ID: "3", Title: "C", Active: true, Source: models.SourceTheirStack},
	})

	report := newTestHealthChecker(file, now).Check()

	assert.True(t, report.Healthy(), report.Problems)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Active)
	assert.Equal(t, 1, report.Recent)
}

func Test_HealthChecker_MissingFile_ShouldBeUnhealthy(t *testing.T) {

	report := newTestHealthChecker(filepath.Join(t.TempDir(), "missing.csv"), time.Now()).Check()

	assert.False(t, report.Healthy())
	require.Len(t, report.Problems, 1)
	assert.Contains(t, report.Problems[0], "not found")
}

func Test_HealthChecker_StaleFile_ShouldBeUnhealthy(t *testing.T) {

	file := filepath.Join(t.TempDir(), "combined_jobs.csv")
	writeCSV(t, file, []models.JobRecord{{ID: "1", Title: "A", Active: true}})
	modified := time.Now().Add(-50 * time.Hour)
	require.NoError(t, os.Chtimes(file, modified, modified))

	report := newTestHealthChecker(file, time.Now()).Check()

	assert.False(t, report.Healthy())
	assert.Contains(t, report.Problems[0], "old")
	assert.Equal(t, 1, report.Active)
}

func Test_HealthChecker_NoActiveJobs_ShouldBeUnhealthy(t *testing.T) {

	file := filepath.Join(t.TempDir(), "combined_jobs.csv")
	writeCSV(t, file, []models.JobRecord{{ID: "1", Title: "A", Active: false}})

	report := newTestHealthChecker(file, time.Now()).Check()

	assert.False(t, report.Healthy())
	assert.Equal(t, []string{"no active jobs"}, report.Problems)
}

func Test_HealthChecker_EmptyFile_ShouldBeUnhealthy(t *testing.T) {

	file := filepath.Join(t.TempDir(), "combined_jobs.csv")
	writeCSV(t, file, nil)

	report := newTestHealthChecker(file, time.Now()).Check()

	assert.False(t, report.Healthy())
	assert.Equal(t, []string{"data file is empty"}, report.Problems)
}
