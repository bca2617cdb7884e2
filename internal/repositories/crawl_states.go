package repositories

import (
	"context"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"time"
)

type CrawlStates struct {
	db *gorm.DB
}

func NewCrawlStatesRepository(db *gorm.DB) *CrawlStates {
	return &CrawlStates{db: db}
}

// Load returns an empty snapshot for a source that never ran.
func (repo *CrawlStates) Load(ctx context.Context, source models.Source) (models.CrawlSnapshot, error) {

	snapshot := models.CrawlSnapshot{}

	state := &models.CrawlState{}
	err := repo.db.WithContext(ctx).First(state, "source = ?", source).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return snapshot, err
	}
	if err == nil {
		snapshot.LastRunDate = state.LastRunDate
	}

	err = repo.db.WithContext(ctx).Model(&models.SeenJob{}).
		Where("source = ?", source).
		Order("seen_at, job_id").
		Pluck("job_id", &snapshot.SeenIDs).Error
	if err != nil {
		return snapshot, err
	}

	return snapshot, nil
}

// Save stores the run date and adds the new ids, ids already known keep their first-seen time.
func (repo *CrawlStates) Save(ctx context.Context, source models.Source, lastRunDate string, newIDs []string) error {

	now := time.Now().UTC()

	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Save(&models.CrawlState{Source: source, LastRunDate: lastRunDate, UpdatedAt: now}).Error
		if err != nil {
			return errors.Wrap(err, "save crawl state")
		}

		if len(newIDs) == 0 {
			return nil
		}

		seen := make([]models.SeenJob, 0, len(newIDs))
		for _, id := range newIDs {
			seen = append(seen, models.SeenJob{Source: source, JobID: id, SeenAt: now})
		}
		err = tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(seen, 500).Error
		return errors.Wrap(err, "save seen jobs")
	})
}
