package models

import "time"

// CrawlState is the incremental cursor of a source that only returns postings
// newer than the previous run.
type CrawlState struct {
	Source      Source `gorm:"primaryKey"`
	LastRunDate string
	UpdatedAt   time.Time
}

// SeenJob is an id an incremental source already returned, excluded from later queries.
type SeenJob struct {
	Source Source `gorm:"primaryKey"`
	JobID  string `gorm:"primaryKey"`
	SeenAt time.Time
}

// CrawlSnapshot is the loaded state together with the ids seen so far, oldest first.
type CrawlSnapshot struct {
	LastRunDate string
	SeenIDs     []string
}
