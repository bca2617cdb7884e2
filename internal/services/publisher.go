package services

import (
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/maxaizer/jobs-tracker/internal/logger"
	"github.com/maxaizer/jobs-tracker/internal/metrics"
	"github.com/maxaizer/jobs-tracker/internal/repositories"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"time"
)

type snapshotPaths interface {
	Path(source models.Source) string
}

type dashboardGenerator interface {
	Generate(combinedFile, output string) error
}

// Publisher rebuilds the combined CSV from the source snapshots and the
// dashboard from the combined CSV.
type Publisher struct {
	snapshots    snapshotPaths
	sources      []models.Source
	combinedFile string
	dashboard    dashboardGenerator
	outputFile   string
}

func NewPublisher(snapshots snapshotPaths, sources []models.Source, combinedFile string,
	dashboard dashboardGenerator, outputFile string) *Publisher {

	return &Publisher{
		snapshots:    snapshots,
		sources:      sources,
		combinedFile: combinedFile,
		dashboard:    dashboard,
		outputFile:   outputFile,
	}
}

func (p *Publisher) Publish() error {

	files := make([]string, 0, len(p.sources))
	for _, source := range p.sources {
		files = append(files, p.snapshots.Path(source))
	}

	start := time.Now()
	total, err := repositories.Combine(files, p.combinedFile)
	metrics.StepDuration.WithLabelValues("combined", "combine").Observe(time.Since(start).Seconds())
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeStorage).Errorf("failed to combine snapshots: %v", err)
	} else {
		log.Infof("combined %d jobs into %s", total, p.combinedFile)
	}

	// the dashboard is regenerated either way, an unreadable combined file yields the error page
	if dashErr := p.dashboard.Generate(p.combinedFile, p.outputFile); dashErr != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeStorage).Errorf("failed to generate dashboard: %v", dashErr)
		if err == nil {
			err = dashErr
		}
	}
	return errors.Wrap(err, "publish")
}
