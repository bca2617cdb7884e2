package repositories

import (
	"fmt"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/maxaizer/jobs-tracker/internal/logger"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"io"
	"os"
	"path/filepath"
	"time"
)

const backupTimeLayout = "20060102_150405"

// Snapshots keeps one CSV file per source under the raw directory.
type Snapshots struct {
	rawDir    string
	backupDir string
	files     map[models.Source]string
	now       func() time.Time
}

// NewSnapshotsRepository takes optional per source file names, the default
// is <source_key>_jobs.csv.
func NewSnapshotsRepository(rawDir, backupDir string, files map[models.Source]string) *Snapshots {
	return &Snapshots{
		rawDir:    rawDir,
		backupDir: backupDir,
		files:     files,
		now:       time.Now,
	}
}

func (s *Snapshots) Path(source models.Source) string {
	name := s.files[source]
	if name == "" {
		name = source.Key() + "_jobs.csv"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.rawDir, name)
}

// Load returns the prior snapshot of a source. A missing file is an empty
// snapshot, an unreadable one is logged and treated as empty as well.
func (s *Snapshots) Load(source models.Source) []models.JobRecord {

	path := s.Path(source)
	records, err := readSnapshot(path, source)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeStorage).
				WithField(logger.SourceField, source).
				Warnf("ignoring unreadable snapshot %s: %v", path, err)
		}
		return nil
	}
	return records
}

// Save backs up the current file and atomically replaces it with records.
// It returns the backup path, empty when there was nothing to back up.
func (s *Snapshots) Save(source models.Source, records []models.JobRecord) (string, error) {

	path := s.Path(source)

	backup, err := s.Backup(source)
	if err != nil {
		return "", err
	}

	err = WriteAtomic(path, func(w io.Writer) error {
		return WriteRecords(w, records, true)
	})
	if err != nil {
		return backup, errors.Wrapf(err, "save %s snapshot", source)
	}

	log.WithField(logger.SourceField, source).Infof("saved %d jobs to %s", len(records), path)
	return backup, nil
}

// Backup copies the current snapshot to
// <backup_dir>/<source_key>_jobs_backup_YYYYmmdd_HHMMSS.csv.
func (s *Snapshots) Backup(source models.Source) (string, error) {

	path := s.Path(source)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", errors.Wrap(err, "stat snapshot")
	}

	name := fmt.Sprintf("%s_jobs_backup_%s.csv", source.Key(), s.now().Format(backupTimeLayout))
	backup := filepath.Join(s.backupDir, name)
	if err := copyFile(path, backup); err != nil {
		return "", errors.Wrapf(err, "backup %s", path)
	}

	log.WithField(logger.SourceField, source).Debugf("backup created: %s", backup)
	return backup, nil
}

func readSnapshot(path string, source models.Source) ([]models.JobRecord, error) {

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadRecords(file, source)
}
