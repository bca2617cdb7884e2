package services

import (
	"context"
	"github.com/maxaizer/jobs-tracker/internal/logger"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"time"
)

type RunHistoryCleanupRepository interface {
	RemoveOlderThan(ctx context.Context, expirationTime time.Time) (int64, error)
}

type HistoryCleaner struct {
	history              RunHistoryCleanupRepository
	cron                 *cron.Cron
	expirationTimeInDays int
	now                  func() time.Time
}

func NewHistoryCleaner(history RunHistoryCleanupRepository, expirationInDays int) (*HistoryCleaner, error) {

	if expirationInDays <= 0 {
		return nil, errors.New("expiration in days must be greater than zero")
	}

	return &HistoryCleaner{
		history:              history,
		cron:                 cron.New(),
		expirationTimeInDays: expirationInDays,
		now:                  time.Now,
	}, nil
}

// Start prunes the history every midnight until Stop.
func (hc *HistoryCleaner) Start() error {
	_, err := hc.cron.AddFunc("0 0 * * *", func() {
		_, _ = hc.CleanNow(context.Background())
	})
	if err != nil {
		return err
	}

	hc.cron.Start()
	log.Infof("run history cleaner started, expiration in days: %d", hc.expirationTimeInDays)
	return nil
}

func (hc *HistoryCleaner) Stop() {
	<-hc.cron.Stop().Done()
}

func (hc *HistoryCleaner) CleanNow(ctx context.Context) (int64, error) {
	expirationTime := hc.now().AddDate(0, 0, -hc.expirationTimeInDays)
	rowsAffected, err := hc.history.RemoveOlderThan(ctx, expirationTime)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("Failed to clean old runs: %v", err)
		return 0, err
	}
	log.Infof("Old runs were cleaned at %v, affected rows: %v", hc.now(), rowsAffected)
	return rowsAffected, nil
}
