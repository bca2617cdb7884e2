package models

import "time"

type RunStatus string

const (
	RunSucceeded RunStatus = "success"
	RunFailed    RunStatus = "failed"
	RunSkipped   RunStatus = "skipped"
)

// RunRecord is the outcome of one source run, kept for monitoring.
type RunRecord struct {
	ID        int       `gorm:"primaryKey"`
	Source    Source    `gorm:"index"`
	StartedAt time.Time `gorm:"index"`
	Duration  time.Duration
	Fetched   int
	Inserted  int
	Active    int
	Inactive  int
	Status    RunStatus
	Error     string
}
