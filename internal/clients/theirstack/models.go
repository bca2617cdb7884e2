package theirstack

import (
	"encoding/json"
	"strings"
)

// SearchRequest is the body of a job search. Zero values are omitted.
type SearchRequest struct {
	PostedAtGte         string   `json:"posted_at_gte,omitempty"`
	JobCountryCodeOr    []string `json:"job_country_code_or,omitempty"`
	PostedAtMaxAgeDays  int      `json:"posted_at_max_age_days,omitempty"`
	JobTitleOr          []string `json:"job_title_or,omitempty"`
	Limit               int      `json:"limit"`
	Page                int      `json:"page,omitempty"`
	BlurCompanyData     bool     `json:"blur_company_data,omitempty"`
	IncludeTotalResults bool     `json:"include_total_results,omitempty"`
	JobIDNot            []string `json:"job_id_not,omitempty"`
}

type Metadata struct {
	TotalResults int `json:"total_results"`
	Total        int `json:"total"`
}

type SearchResponse struct {
	Metadata *Metadata `json:"metadata"`
	Meta     *Metadata `json:"meta"`
	Data     []Job     `json:"data"`
}

// TotalResults reads metadata.total_results, falling back to meta.total.
func (r SearchResponse) TotalResults() int {
	for _, meta := range []*Metadata{r.Metadata, r.Meta} {
		if meta == nil {
			continue
		}
		if meta.TotalResults > 0 {
			return meta.TotalResults
		}
		if meta.Total > 0 {
			return meta.Total
		}
	}
	return 0
}

type Company struct {
	Name string `json:"name"`
}

type Job struct {
	ID              JobID    `json:"id"`
	JobTitle        string   `json:"job_title"`
	NormalizedTitle string   `json:"normalized_title"`
	URL             string   `json:"url"`
	FinalURL        string   `json:"final_url"`
	SourceURL       string   `json:"source_url"`
	Company         string   `json:"company"`
	CompanyObject   *Company `json:"company_object"`
	Location        string   `json:"location"`
	CountryCode     string   `json:"country_code"`
	DatePosted      string   `json:"date_posted"`
	Description     string   `json:"description"`
	TechnologySlugs []string `json:"technology_slugs"`
	Remote          *bool    `json:"remote"`
	Seniority       string   `json:"seniority"`
	SalaryString    string   `json:"salary_string"`
}

// JobURL prefers final_url, then url, then source_url.
func (j Job) JobURL() string {
	for _, candidate := range []string{j.FinalURL, j.URL, j.SourceURL} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

// CompanyName prefers the plain company field over company_object.name.
func (j Job) CompanyName() string {
	if j.Company != "" {
		return j.Company
	}
	if j.CompanyObject != nil {
		return j.CompanyObject.Name
	}
	return ""
}

// JobID accepts numeric and string ids.
type JobID string

func (id *JobID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = JobID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = JobID(n.String())
	return nil
}

func (id JobID) String() string {
	return string(id)
}
