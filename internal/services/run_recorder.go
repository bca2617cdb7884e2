package services

import (
	"context"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/jobs-tracker/internal/domain/events"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/maxaizer/jobs-tracker/internal/logger"
	"github.com/maxaizer/jobs-tracker/internal/metrics"
	log "github.com/sirupsen/logrus"
)

type runHistoryRepository interface {
	Add(ctx context.Context, record models.RunRecord) error
}

// RunRecorder keeps the outcome of every source run in the history table and
// in the run metrics.
type RunRecorder struct {
	history runHistoryRepository
}

func NewRunRecorder(bus EventBus.Bus, history runHistoryRepository) (*RunRecorder, error) {
	recorder := &RunRecorder{history: history}
	if err := bus.Subscribe(events.SourceCompletedTopic, recorder.onSourceCompleted); err != nil {
		return nil, err
	}
	return recorder, nil
}

func (r *RunRecorder) onSourceCompleted(event events.SourceCompleted) {

	source := string(event.Source)
	metrics.SourceRunDuration.WithLabelValues(source, string(event.Status)).Observe(event.Duration.Seconds())
	if event.Status != models.RunSkipped {
		metrics.SnapshotJobs.WithLabelValues(source, "active").Set(float64(event.Active))
		metrics.SnapshotJobs.WithLabelValues(source, "inactive").Set(float64(event.Inactive))
	}

	record := models.RunRecord{
		Source:    event.Source,
		StartedAt: event.StartedAt.UTC(),
		Duration:  event.Duration,
		Fetched:   event.Fetched,
		Inserted:  event.Inserted,
		Active:    event.Active,
		Inactive:  event.Inactive,
		Status:    event.Status,
	}
	if event.Err != nil {
		record.Error = event.Err.Error()
	}

	if err := r.history.Add(context.Background(), record); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("couldn't save run of %s: %v", source, err)
		return
	}
	log.Debugf("run of %s saved with status %s", source, event.Status)
}
