// Package reconcile merges a freshly scraped batch into the persisted snapshot
// of one source and recomputes the active flag from the ids observed during
// the crawl.
package reconcile

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/maxaizer/jobs-tracker/internal/logger"
	log "github.com/sirupsen/logrus"
	"strings"
)

// IDSet is the set of identifiers observed during one crawl.
type IDSet = mapset.Set[string]

// NewIDSet returns a thread safe set, workers of the browser engine add to it concurrently.
func NewIDSet(ids ...string) IDSet {
	return mapset.NewSet[string](ids...)
}

type Result struct {
	Records  []models.JobRecord
	Inserted int
	Updated  int
	Dropped  int
	Active   int
	Inactive int
	// Skipped is set when nothing was observed and the prior snapshot was returned as is.
	Skipped bool
}

func (r Result) Total() int {
	return len(r.Records)
}

// Reconcile produces the next snapshot from the prior one.
//
// Every id in seen ends up active, every prior id outside seen ends up
// inactive with its other fields untouched, batch records overwrite prior
// fields and new ids are appended. The first occurrence of a duplicated batch
// id wins. An empty seen set means the crawl observed nothing, so the prior
// snapshot is returned unchanged instead of being deactivated wholesale.
func Reconcile(prior, batch []models.JobRecord, seen IDSet) Result {

	observed := NormalizeIDs(seen)
	if observed.Cardinality() == 0 {
		records := make([]models.JobRecord, len(prior))
		copy(records, prior)
		result := Result{Records: records, Skipped: true}
		result.countActive()
		return result
	}

	result := Result{}
	index := make(map[string]int, len(prior)+len(batch))
	records := make([]models.JobRecord, 0, len(prior)+len(batch))

	for _, record := range prior {
		id := NormalizeID(record.ID)
		if id == "" {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeParse).
				Warnf("dropping prior %s record without id (title %q)", record.Source, record.Title)
			result.Dropped++
			continue
		}
		if _, exists := index[id]; exists {
			// duplicated rows in the snapshot collapse onto the last one
			records[index[id]] = withID(record, id)
			continue
		}
		index[id] = len(records)
		records = append(records, withID(record, id))
	}

	batchSeen := make(map[string]struct{}, len(batch))
	for _, record := range batch {
		id := NormalizeID(record.ID)
		if id == "" {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeParse).
				Warnf("dropping scraped %s record without id (title %q)", record.Source, record.Title)
			result.Dropped++
			continue
		}
		if _, duplicate := batchSeen[id]; duplicate {
			continue
		}
		batchSeen[id] = struct{}{}

		if i, exists := index[id]; exists {
			records[i] = withID(record, id)
			result.Updated++
			continue
		}
		index[id] = len(records)
		records = append(records, withID(record, id))
		result.Inserted++
	}

	for i := range records {
		records[i].Active = observed.Contains(records[i].ID)
	}

	result.Records = records
	result.countActive()
	return result
}

// UpsertSeen builds the seen set for incremental sources that only ever
// observe new postings: prior active ids stay active, prior inactive ids stay
// inactive and every batch id becomes active.
func UpsertSeen(prior, batch []models.JobRecord) IDSet {
	seen := NewIDSet()
	for _, record := range prior {
		if record.Active {
			seen.Add(NormalizeID(record.ID))
		}
	}
	for _, record := range batch {
		if id := NormalizeID(record.ID); id != "" {
			seen.Add(id)
		}
	}
	seen.Remove("")
	return seen
}

func (r *Result) countActive() {
	r.Active, r.Inactive = 0, 0
	for _, record := range r.Records {
		if record.Active {
			r.Active++
		} else {
			r.Inactive++
		}
	}
}

// NormalizeIDs returns the normalized form of every id in ids, without blanks.
func NormalizeIDs(ids IDSet) IDSet {
	normalized := NewIDSet()
	if ids == nil {
		return normalized
	}
	for _, id := range ids.ToSlice() {
		if id = NormalizeID(id); id != "" {
			normalized.Add(id)
		}
	}
	return normalized
}

// NormalizeID is the canonical form ids are stored and compared under.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	// ids read back from spreadsheets sometimes carry a float suffix
	if strings.HasSuffix(id, ".0") && isDigits(id[:len(id)-2]) {
		id = id[:len(id)-2]
	}
	return id
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func withID(record models.JobRecord, id string) models.JobRecord {
	c := record.Clone()
	c.ID = id
	return c
}
