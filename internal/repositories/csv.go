package repositories

import (
	"encoding/csv"
	"fmt"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/samber/lo"
	"io"
	"sort"
	"strings"
)

// Columns is the fixed leading column order of every snapshot and of the combined file.
var Columns = []string{
	"id", "title", "company", "location", "posting_date", "url", "description",
	"basic_qual", "pref_qual", "skills", "active", "job_category", "team", "role", "source",
}

// columns written under another name by older versions
var columnAliases = map[string]string{
	"job_url":  "url",
	"category": "job_category",
}

var activeValues = map[string]bool{
	"true": true, "t": true, "1": true, "yes": true, "y": true,
	"false": false, "f": false, "0": false, "no": false, "n": false,
}

// ParseActive treats anything unrecognized, including an empty cell, as active.
func ParseActive(value string) bool {
	active, ok := activeValues[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return true
	}
	return active
}

func FormatActive(active bool) string {
	if active {
		return "True"
	}
	return "False"
}

// WriteRecords writes the header and rows. Extra columns follow the fixed ones
// in name order, when withExtras is false they are left out.
func WriteRecords(w io.Writer, records []models.JobRecord, withExtras bool) error {

	var extras []string
	if withExtras {
		extras = extraColumns(records)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(append(append([]string{}, Columns...), extras...)); err != nil {
		return err
	}

	for _, record := range records {
		row := []string{
			record.ID,
			record.Title,
			record.Company,
			record.Location,
			record.PostingDateString(),
			record.URL,
			record.Description,
			record.BasicQual,
			record.PrefQual,
			record.Skills,
			FormatActive(record.Active),
			record.JobCategory,
			record.Team,
			record.Role,
			string(record.Source),
		}
		for _, column := range extras {
			row = append(row, record.Extra[column])
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func extraColumns(records []models.JobRecord) []string {
	known := lo.SliceToMap(Columns, func(c string) (string, struct{}) { return c, struct{}{} })
	set := make(map[string]struct{})
	for _, record := range records {
		for key := range record.Extra {
			if _, ok := known[key]; !ok {
				set[key] = struct{}{}
			}
		}
	}
	extras := lo.Keys(set)
	sort.Strings(extras)
	return extras
}

// ReadRecords parses a snapshot. Rows without a source column get fallback as source.
func ReadRecords(r io.Reader, fallback models.Source) ([]models.JobRecord, error) {

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		header[i] = name
		if _, exists := index[name]; !exists {
			index[name] = i
		}
	}
	for alias, canonical := range columnAliases {
		if i, ok := index[alias]; ok {
			if _, exists := index[canonical]; !exists {
				index[canonical] = i
			}
		}
	}
	if _, ok := index["id"]; !ok {
		return nil, fmt.Errorf("missing id column")
	}

	known := lo.SliceToMap(Columns, func(c string) (string, struct{}) { return c, struct{}{} })

	var records []models.JobRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		cell := func(column string) string {
			i, ok := index[column]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}

		record := models.JobRecord{
			ID:          strings.TrimSpace(cell("id")),
			Title:       cell("title"),
			Company:     cell("company"),
			Location:    cell("location"),
			PostingDate: models.ParsePostingDate(cell("posting_date")),
			URL:         cell("url"),
			Description: cell("description"),
			BasicQual:   cell("basic_qual"),
			PrefQual:    cell("pref_qual"),
			Skills:      cell("skills"),
			Active:      ParseActive(cell("active")),
			JobCategory: cell("job_category"),
			Team:        cell("team"),
			Role:        cell("role"),
			Source:      models.Source(strings.TrimSpace(cell("source"))),
		}
		if record.Source == "" {
			record.Source = fallback
		}

		for i, name := range header {
			if _, ok := known[name]; ok {
				continue
			}
			if _, ok := columnAliases[name]; ok || i >= len(row) {
				continue
			}
			record.SetExtra(name, row[i])
		}

		records = append(records, record)
	}

	return records, nil
}
