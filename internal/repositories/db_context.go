package repositories

import (
	"fmt"
	"github.com/glebarez/sqlite"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"os"
	"path/filepath"
	"time"
)

type DbContext struct {
	DB *gorm.DB
}

// NewDbContext opens the state database at path. A positive busyTimeout makes
// concurrent writers wait for the lock instead of failing with SQLITE_BUSY.
func NewDbContext(path string, busyTimeout time.Duration) (*DbContext, error) {

	if dir := filepath.Dir(path); path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path
	if busyTimeout > 0 {
		dsn = fmt.Sprintf("%s?_pragma=busy_timeout(%d)", path, busyTimeout.Milliseconds())
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}

	return &DbContext{DB: db}, nil
}

func (c *DbContext) Migrate() error {
	err := c.DB.AutoMigrate(models.CrawlState{})
	if err != nil {
		return fmt.Errorf("failed to migrate CrawlState entity: %w", err)
	}

	err = c.DB.AutoMigrate(models.SeenJob{})
	if err != nil {
		return fmt.Errorf("failed to migrate SeenJob entity: %w", err)
	}

	err = c.DB.AutoMigrate(models.RunRecord{})
	if err != nil {
		return fmt.Errorf("failed to migrate RunRecord entity: %w", err)
	}

	return nil
}

func (c *DbContext) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
