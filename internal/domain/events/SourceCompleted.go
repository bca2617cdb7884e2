package events

import (
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"time"
)

var SourceCompletedTopic = "SourceCompletedEvent"

// SourceCompleted is published once per source run, whatever its outcome.
type SourceCompleted struct {
	Source    models.Source
	StartedAt time.Time
	Duration  time.Duration
	Status    models.RunStatus
	Fetched   int
	Inserted  int
	Active    int
	Inactive  int
	Err       error
}
