package models

import (
	"errors"
	"strings"
	"time"
)

type Source string

const (
	SourceAmazonAPI  Source = "AmazonAPI"
	SourceAmazon     Source = "Amazon"
	SourceTheirStack Source = "TheirStack"
)

// Key is the lower-case name used for snapshot file names and config sections.
func (s Source) Key() string {
	switch s {
	case SourceAmazonAPI:
		return "amazon_api"
	case SourceAmazon:
		return "amazon"
	case SourceTheirStack:
		return "theirstack"
	default:
		return strings.ToLower(string(s))
	}
}

func ToSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "amazonapi", "amazon_api":
		return SourceAmazonAPI, nil
	case "amazon", "amazonselenium", "amazon_selenium":
		return SourceAmazon, nil
	case "theirstack":
		return SourceTheirStack, nil
	default:
		return "", errors.New("invalid source: " + s)
	}
}

const PostingDateLayout = "2006-01-02"

// JobRecord is one job posting in the common row shape shared by all sources.
type JobRecord struct {
	ID          string
	Title       string
	Company     string
	Location    string
	PostingDate *time.Time
	URL         string
	Description string
	BasicQual   string
	PrefQual    string
	Skills      string
	Active      bool
	JobCategory string
	Team        string
	Role        string
	Source      Source

	// Extra holds source specific columns that are carried through the snapshot as is.
	Extra map[string]string
}

func (r JobRecord) PostingDateString() string {
	if r.PostingDate == nil || r.PostingDate.IsZero() {
		return ""
	}
	return r.PostingDate.Format(PostingDateLayout)
}

// SetExtra ignores empty values so blank optional fields don't create columns.
func (r *JobRecord) SetExtra(key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if r.Extra == nil {
		r.Extra = make(map[string]string)
	}
	r.Extra[key] = value
}

func (r JobRecord) Clone() JobRecord {
	c := r
	if r.PostingDate != nil {
		d := *r.PostingDate
		c.PostingDate = &d
	}
	if r.Extra != nil {
		c.Extra = make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = v
		}
	}
	return c
}
