// Package dashboard renders the static HTML page published from the combined CSV.
package dashboard

import (
	"bytes"
	"embed"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/maxaizer/jobs-tracker/internal/repositories"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"html/template"
	"io"
	"sort"
	"strings"
	"time"
)

//go:embed templates/*.html
var templates embed.FS

const (
	statusActive   = "Active"
	statusInactive = "Inactive"
	updatedLayout  = "2006-01-02 15:04:05 MST"
)

type SourceCount struct {
	Source models.Source
	Total  int
	Active int
}

type Stats struct {
	Total    int
	Active   int
	Inactive int
	Recent   int
	BySource []SourceCount
}

type Row struct {
	Title    string
	Role     string
	Team     string
	Category string
	Source   string
	Posted   string
	Status   string
	Active   bool
	URL      string
}

type View struct {
	Title       string
	LastUpdated string
	RecentDays  int
	Stats       Stats
	Categories  []string
	Roles       []string
	Teams       []string
	Sources     []string
	Statuses    []string
	Rows        []Row
}

type filterView struct {
	Name    string
	Label   string
	All     string
	Options []string
}

type errorView struct {
	Title       string
	Error       string
	LastUpdated string
}

type Generator struct {
	title      string
	recentDays int
	now        func() time.Time
	page       *template.Template
	errorPage  *template.Template
}

func NewGenerator(title string, recentDays int) (*Generator, error) {

	funcs := template.FuncMap{
		"filter": func(name, label, all string, options []string) filterView {
			return filterView{Name: name, Label: label, All: all, Options: options}
		},
	}

	page, err := template.New("dashboard.html").Funcs(funcs).ParseFS(templates, "templates/dashboard.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse dashboard template")
	}
	errorPage, err := template.ParseFS(templates, "templates/error.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse error template")
	}

	if recentDays <= 0 {
		recentDays = 30
	}
	return &Generator{
		title:      title,
		recentDays: recentDays,
		now:        time.Now,
		page:       page,
		errorPage:  errorPage,
	}, nil
}

// Generate rebuilds the dashboard from the combined CSV. When the CSV can't be
// read an error page is written in its place and the error returned.
func (g *Generator) Generate(combinedFile, output string) error {

	records, loadErr := repositories.LoadCombined(combinedFile)
	if loadErr != nil {
		log.Errorf("failed to load %s, writing error page: %v", combinedFile, loadErr)
		err := repositories.WriteAtomic(output, func(w io.Writer) error {
			return g.RenderError(w, loadErr)
		})
		if err != nil {
			return errors.Wrap(err, "write error page")
		}
		return errors.Wrap(loadErr, "load combined jobs")
	}

	err := repositories.WriteAtomic(output, func(w io.Writer) error {
		return g.Render(w, records)
	})
	if err != nil {
		return errors.Wrap(err, "write dashboard")
	}
	log.Infof("dashboard written to %s with %d jobs", output, len(records))
	return nil
}

func (g *Generator) Render(w io.Writer, records []models.JobRecord) error {
	var buf bytes.Buffer
	if err := g.page.Execute(&buf, g.Build(records)); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (g *Generator) RenderError(w io.Writer, cause error) error {
	return g.errorPage.Execute(w, errorView{
		Title:       g.title,
		Error:       cause.Error(),
		LastUpdated: g.now().Format(updatedLayout),
	})
}

// Build computes the stats, filter options and rows. Rows are ordered by
// posting date, newest first, undated last.
func (g *Generator) Build(records []models.JobRecord) View {

	view := View{
		Title:       g.title,
		LastUpdated: g.now().Format(updatedLayout),
		RecentDays:  g.recentDays,
		Statuses:    []string{statusActive, statusInactive},
	}

	since := g.now().AddDate(0, 0, -g.recentDays)
	bySource := map[models.Source]*SourceCount{}
	var sourceOrder []models.Source

	sorted := make([]models.JobRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].PostingDate, sorted[j].PostingDate
		if a == nil || b == nil {
			return a != nil
		}
		return a.After(*b)
	})

	for _, record := range sorted {
		view.Stats.Total++
		if record.Active {
			view.Stats.Active++
		}
		if record.PostingDate != nil && !record.PostingDate.Before(since) {
			view.Stats.Recent++
		}

		count, ok := bySource[record.Source]
		if !ok {
			count = &SourceCount{Source: record.Source}
			bySource[record.Source] = count
			sourceOrder = append(sourceOrder, record.Source)
		}
		count.Total++
		if record.Active {
			count.Active++
		}

		view.Rows = append(view.Rows, Row{
			Title:    record.Title,
			Role:     record.Role,
			Team:     record.Team,
			Category: record.JobCategory,
			Source:   string(record.Source),
			Posted:   record.PostingDateString(),
			Status:   lo.Ternary(record.Active, statusActive, statusInactive),
			Active:   record.Active,
			URL:      record.URL,
		})
	}
	view.Stats.Inactive = view.Stats.Total - view.Stats.Active

	sort.Slice(sourceOrder, func(i, j int) bool { return sourceOrder[i] < sourceOrder[j] })
	for _, source := range sourceOrder {
		view.Stats.BySource = append(view.Stats.BySource, *bySource[source])
	}

	view.Categories = options(view.Rows, func(row Row) string { return row.Category })
	view.Roles = options(view.Rows, func(row Row) string { return row.Role })
	view.Teams = options(view.Rows, func(row Row) string { return row.Team })
	view.Sources = options(view.Rows, func(row Row) string { return row.Source })
	return view
}

// options are the sorted distinct non-blank values of a column.
func options(rows []Row, value func(Row) string) []string {
	values := lo.Uniq(lo.FilterMap(rows, func(row Row, _ int) (string, bool) {
		v := strings.TrimSpace(value(row))
		return v, v != ""
	}))
	sort.Strings(values)
	return values
}
