// Package normalize maps the raw shapes of every source onto models.JobRecord.
package normalize

import (
	"github.com/maxaizer/jobs-tracker/internal/browser"
	"github.com/maxaizer/jobs-tracker/internal/category"
	"github.com/maxaizer/jobs-tracker/internal/clients/amazon"
	"github.com/maxaizer/jobs-tracker/internal/clients/theirstack"
	"github.com/maxaizer/jobs-tracker/internal/description"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/samber/lo"
	"regexp"
	"strings"
)

const (
	amazonCompany   = "Amazon"
	externalTeam    = "External"
	skillsSeparator = ", "
)

var roleTeamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^([^,]+),\s*([^,]+)$`),
	regexp.MustCompile(`^([^-]+)\s*-\s*([^-]+)$`),
	regexp.MustCompile(`^(.+?)\s+position\s+(.+)$`),
}

type Normalizer struct {
	categories *category.Mapper
}

func New(categories *category.Mapper) *Normalizer {
	if categories == nil {
		categories = category.NewDefaultMapper()
	}
	return &Normalizer{categories: categories}
}

// FromAmazonAPI maps one search.json entry. The API already categorizes most
// jobs, inference only fills the gaps.
func (n *Normalizer) FromAmazonAPI(job amazon.Job) models.JobRecord {

	record := models.JobRecord{
		ID:          job.Key(),
		Title:       strings.TrimSpace(job.Title),
		Company:     lo.Ternary(strings.TrimSpace(job.CompanyName) != "", strings.TrimSpace(job.CompanyName), amazonCompany),
		Location:    lo.Ternary(job.Location != "", job.Location, job.NormalizedLocation),
		PostingDate: models.ParsePostingDate(job.PostedDate),
		URL:         job.URL(),
		Description: job.Description,
		BasicQual:   job.BasicQualifications,
		PrefQual:    job.PreferredQualifications,
		Active:      true,
		JobCategory: strings.TrimSpace(job.JobCategory),
		Team:        job.TeamLabel(),
		Role:        strings.TrimSpace(job.Title),
		Source:      models.SourceAmazonAPI,
	}

	text := []string{job.Description, job.BasicQualifications, job.PreferredQualifications}
	if record.JobCategory == "" {
		record.JobCategory = n.categories.Infer(category.Job{
			Title:       record.Title,
			Description: strings.Join(text, "\n"),
		})
	}
	record.Skills = strings.Join(n.categories.DetectSkills(text...), skillsSeparator)

	record.SetExtra("api_id", string(job.ID))
	record.SetExtra("city", job.City)
	record.SetExtra("country_code", job.CountryCode)
	record.SetExtra("normalized_location", job.NormalizedLocation)
	record.SetExtra("job_schedule_type", job.JobScheduleType)
	record.SetExtra("description_short", job.DescriptionShort)
	record.SetExtra("apply_url", job.URLNextStep)

	return record
}

// FromAmazonTile maps a search result tile, the detail page fills the rest.
func (n *Normalizer) FromAmazonTile(tile browser.Tile) models.JobRecord {

	role, team := SplitRoleTeam(tile.Title)

	return models.JobRecord{
		ID:          strings.TrimSpace(tile.ID),
		Title:       tile.Title,
		Company:     amazonCompany,
		PostingDate: tile.PostingDate,
		URL:         tile.URL,
		Active:      true,
		Team:        team,
		Role:        role,
		Source:      models.SourceAmazon,
	}
}

// WithAmazonDetail completes a tile record with its detail page.
func (n *Normalizer) WithAmazonDetail(record models.JobRecord, detail browser.Detail) models.JobRecord {

	record = record.Clone()
	record.Description = detail.Description
	record.BasicQual = detail.BasicQual
	record.PrefQual = detail.PrefQual
	record.JobCategory = detail.Category

	text := []string{detail.Description, detail.BasicQual, detail.PrefQual}
	if record.JobCategory == "" {
		record.JobCategory = n.categories.Infer(category.Job{
			Title:       record.Title,
			Description: strings.Join(text, "\n"),
		})
	}
	record.Skills = strings.Join(n.categories.DetectSkills(text...), skillsSeparator)

	return record
}

// FromTheirStack maps one aggregator job. Its description is split into
// sections which are kept as extra columns.
func (n *Normalizer) FromTheirStack(job theirstack.Job) models.JobRecord {

	title := strings.TrimSpace(job.JobTitle)
	company := strings.TrimSpace(job.CompanyName())
	sections := description.Parse(job.Description)

	record := models.JobRecord{
		ID:          strings.TrimSpace(job.ID.String()),
		Title:       title,
		Company:     company,
		Location:    job.Location,
		PostingDate: models.ParsePostingDate(job.DatePosted),
		URL:         job.JobURL(),
		Description: job.Description,
		BasicQual:   description.Join(sections.BasicQualifications),
		PrefQual:    description.Join(sections.PreferredQualifications),
		Skills:      strings.Join(job.TechnologySlugs, skillsSeparator),
		Active:      true,
		JobCategory: n.categories.Infer(category.Job{
			Title:           title,
			NormalizedTitle: job.NormalizedTitle,
			Description:     job.Description,
			TechSlugs:       job.TechnologySlugs,
		}),
		Team:   lo.Ternary(company != "", company, externalTeam),
		Role:   title,
		Source: models.SourceTheirStack,
	}

	record.SetExtra("about", sections.About)
	record.SetExtra("responsibilities", description.Join(sections.Responsibilities))
	record.SetExtra("basic_qualifications", record.BasicQual)
	record.SetExtra("preferred_qualifications", record.PrefQual)
	record.SetExtra("benefits", description.Join(sections.Benefits))
	record.SetExtra("country_code", job.CountryCode)
	record.SetExtra("seniority", job.Seniority)
	record.SetExtra("salary", job.SalaryString)
	if job.Remote != nil {
		record.SetExtra("remote", lo.Ternary(*job.Remote, "True", "False"))
	}

	return record
}

// SplitRoleTeam splits "Role, Team" or "Role - Team" titles. Titles without a
// separator are all role.
func SplitRoleTeam(title string) (string, string) {

	title = strings.TrimSpace(title)
	if title == "" {
		return "", ""
	}

	for _, pattern := range roleTeamPatterns {
		if m := pattern.FindStringSubmatch(title); m != nil {
			return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		}
	}

	for _, separator := range []string{",", " - "} {
		if role, team, found := strings.Cut(title, separator); found {
			return strings.TrimSpace(role), strings.TrimSpace(team)
		}
	}

	return title, ""
}
