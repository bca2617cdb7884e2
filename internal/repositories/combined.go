package repositories

import (
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/maxaizer/jobs-tracker/internal/logger"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const SourceUnknown models.Source = "unknown"

// Combine writes the union of the given snapshot files to output with the
// fixed column set. Missing or unreadable inputs are skipped with a warning,
// an error is returned when none of them could be read.
func Combine(files []string, output string) (int, error) {

	var all []models.JobRecord
	var loaded int

	for _, path := range files {
		records, err := readSnapshot(path, SourceFromFileName(path))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Warnf("no snapshot found at %s", path)
			} else {
				log.WithField(logger.ErrorTypeField, logger.ErrorTypeStorage).
					Errorf("error reading %s: %v", path, err)
			}
			continue
		}
		loaded++
		log.Infof("loaded %d jobs from %s", len(records), filepath.Base(path))
		all = append(all, records...)
	}

	if loaded == 0 {
		return 0, errors.New("no valid job data found")
	}

	err := WriteAtomic(output, func(w io.Writer) error {
		return WriteRecords(w, all, false)
	})
	if err != nil {
		return 0, errors.Wrap(err, "write combined file")
	}

	log.Infof("combined %d jobs from %d sources into %s", len(all), loaded, output)
	return len(all), nil
}

// LoadCombined reads the combined file, unlike a snapshot an unreadable file is an error.
func LoadCombined(path string) ([]models.JobRecord, error) {
	records, err := readSnapshot(path, SourceUnknown)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return records, nil
}

// SourceFromFileName guesses the source of a snapshot without a source column.
func SourceFromFileName(path string) models.Source {
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	switch {
	case strings.HasPrefix(stem, "amazon_api"):
		return models.SourceAmazonAPI
	case strings.HasPrefix(stem, "amazon"):
		return models.SourceAmazon
	case strings.HasPrefix(stem, "theirstack"):
		return models.SourceTheirStack
	default:
		return SourceUnknown
	}
}
