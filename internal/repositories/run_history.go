package repositories

import (
	"context"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"gorm.io/gorm"
	"time"
)

type RunHistory struct {
	db *gorm.DB
}

func NewRunHistoryRepository(db *gorm.DB) *RunHistory {
	return &RunHistory{db: db}
}

func (repo *RunHistory) Add(ctx context.Context, record models.RunRecord) error {
	return repo.db.WithContext(ctx).Create(&record).Error
}

// Latest returns the most recent runs of a source, newest first.
func (repo *RunHistory) Latest(ctx context.Context, source models.Source, limit int) ([]models.RunRecord, error) {

	var records []models.RunRecord
	if err := repo.db.WithContext(ctx).
		Where("source = ?", source).
		Order("started_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (repo *RunHistory) RemoveOlderThan(ctx context.Context, expirationTime time.Time) (int64, error) {
	res := repo.db.WithContext(ctx).Delete(&models.RunRecord{}, "started_at < ?", expirationTime)
	return res.RowsAffected, res.Error
}
