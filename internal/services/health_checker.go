package services

import (
	"fmt"
	"github.com/maxaizer/jobs-tracker/internal/repositories"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"os"
	"time"
)

type HealthReport struct {
	File     string
	Modified time.Time
	Age      time.Duration
	Total    int
	Active   int
	// Recent counts postings of the last recentDays days.
	Recent   int
	Problems []string
}

func (r HealthReport) Healthy() bool {
	return len(r.Problems) == 0
}

// HealthChecker inspects the combined file the dashboard is built from.
type HealthChecker struct {
	combinedFile string
	maxAge       time.Duration
	recentDays   int
	now          func() time.Time
}

func NewHealthChecker(combinedFile string, maxAge time.Duration, recentDays int) *HealthChecker {
	if recentDays <= 0 {
		recentDays = 30
	}
	return &HealthChecker{combinedFile: combinedFile, maxAge: maxAge, recentDays: recentDays, now: time.Now}
}

func (h *HealthChecker) Check() HealthReport {

	report := HealthReport{File: h.combinedFile}

	info, err := os.Stat(h.combinedFile)
	if err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("data file not found: %v", err))
		return report
	}
	report.Modified = info.ModTime()
	report.Age = h.now().Sub(info.ModTime())
	if h.maxAge > 0 && report.Age > h.maxAge {
		report.Problems = append(report.Problems, fmt.Sprintf("data is %v old, more than %v", report.Age.Round(time.Minute), h.maxAge))
	}

	records, err := repositories.LoadCombined(h.combinedFile)
	if err != nil {
		report.Problems = append(report.Problems, fmt.Sprintf("data file is unreadable: %v", err))
		return report
	}

	since := h.now().AddDate(0, 0, -h.recentDays)
	report.Total = len(records)
	for _, record := range records {
		if record.Active {
			report.Active++
		}
		if record.PostingDate != nil && !record.PostingDate.Before(since) {
			report.Recent++
		}
	}

	if report.Total == 0 {
		report.Problems = append(report.Problems, "data file is empty")
	} else if report.Active == 0 {
		report.Problems = append(report.Problems, "no active jobs")
	}
	return report
}

// Log writes the report, problems as warnings.
func (r HealthReport) Log() {
	entry := log.WithFields(log.Fields{
		"file":   r.File,
		"total":  r.Total,
		"active": r.Active,
		"recent": r.Recent,
	})
	if !r.Modified.IsZero() {
		entry = entry.WithField("age", r.Age.Round(time.Minute))
	}
	lo.ForEach(r.Problems, func(problem string, _ int) { entry.Warn(problem) })
	if r.Healthy() {
		entry.Info("scraper appears healthy")
	} else {
		entry.Error("scraper needs attention")
	}
}
