package amazon

import (
	"encoding/json"
	"regexp"
	"strings"
)

const jobsBaseURL = "https://amazon.jobs"

var jobPathIDRegex = regexp.MustCompile(`/jobs/(\d+)`)

type SearchResponse struct {
	Hits int   `json:"hits"`
	Jobs []Job `json:"jobs"`
}

type Team struct {
	Label string `json:"label"`
}

// UnmarshalJSON ignores team values that are not objects.
func (t *Team) UnmarshalJSON(data []byte) error {
	var raw struct {
		Label string `json:"label"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	t.Label = raw.Label
	return nil
}

// FlexString accepts a JSON string, number or null.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Job is one entry of the search.json "jobs" array.
type Job struct {
	ID                      FlexString `json:"id"`
	IDIcims                 FlexString `json:"id_icims"`
	JobPath                 string     `json:"job_path"`
	Title                   string     `json:"title"`
	CompanyName             string     `json:"company_name"`
	City                    string     `json:"city"`
	CountryCode             string     `json:"country_code"`
	Location                string     `json:"location"`
	NormalizedLocation      string     `json:"normalized_location"`
	JobCategory             string     `json:"job_category"`
	JobScheduleType         string     `json:"job_schedule_type"`
	PostedDate              string     `json:"posted_date"`
	Description             string     `json:"description"`
	DescriptionShort        string     `json:"description_short"`
	BasicQualifications     string     `json:"basic_qualifications"`
	PreferredQualifications string     `json:"preferred_qualifications"`
	Team                    *Team      `json:"team"`
	URLNextStep             string     `json:"url_next_step"`
}

// Key is the stable job id: id_icims, then the number in job_path, then the API id.
func (j Job) Key() string {
	if id := strings.TrimSpace(string(j.IDIcims)); id != "" {
		return id
	}
	if m := jobPathIDRegex.FindStringSubmatch(j.JobPath); m != nil {
		return m[1]
	}
	return strings.TrimSpace(string(j.ID))
}

// URL is the public job page.
func (j Job) URL() string {
	if j.JobPath == "" {
		return ""
	}
	return jobsBaseURL + j.JobPath
}

func (j Job) TeamLabel() string {
	if j.Team == nil {
		return ""
	}
	return j.Team.Label
}
