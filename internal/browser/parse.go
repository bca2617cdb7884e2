package browser

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"net/url"
	"strings"
	"time"
)

const siteURL = "https://amazon.jobs"

// tile selectors in order of preference, the first one matching anything wins
var tileSelectors = []string{"div.job-tile", "li.job-tile", "div[data-job-id]"}

// Tile is one job of a search result page.
type Tile struct {
	ID          string
	Title       string
	URL         string
	PostingDate *time.Time
}

// Detail holds the sections of a job page.
type Detail struct {
	Description string
	BasicQual   string
	PrefQual    string
	Category    string
}

func (d Detail) Empty() bool {
	return d.Description == "" && d.BasicQual == "" && d.PrefQual == "" && d.Category == ""
}

func ParseListing(html string) ([]Tile, error) {

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var selection *goquery.Selection
	for _, selector := range tileSelectors {
		selection = doc.Find(selector)
		if selection.Length() > 0 {
			break
		}
	}

	tiles := make([]Tile, 0, selection.Length())
	selection.Each(func(_ int, s *goquery.Selection) {
		id, ok := s.Attr("data-job-id")
		if !ok || strings.TrimSpace(id) == "" {
			id, _ = s.Find("[data-job-id]").First().Attr("data-job-id")
		}
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}

		title := strings.TrimSpace(s.Find("h3, h2, a").First().Text())
		if title == "" {
			title = truncate(strings.TrimSpace(s.Text()), 100)
		}

		link, _ := s.Find("a[href*='/jobs/']").First().Attr("href")
		link = absoluteURL(link)
		if link == "" {
			link = siteURL + "/en/jobs/" + id
		}

		tiles = append(tiles, Tile{
			ID:          id,
			Title:       collapseSpaces(title),
			URL:         link,
			PostingDate: models.ParsePostingDate(s.Find("h2.posting-date").First().Text()),
		})
	})

	return tiles, nil
}

func ParseDetail(html string) (Detail, error) {

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Detail{}, err
	}

	return Detail{
		Description: section(doc, "DESCRIPTION"),
		BasicQual:   section(doc, "BASIC QUALIFICATIONS"),
		PrefQual:    section(doc, "PREFERRED QUALIFICATIONS"),
		Category:    strings.TrimSpace(doc.Find("div.association.job-category-icon a").First().Text()),
	}, nil
}

// section is the text of the first paragraph following the h2 whose text contains heading.
func section(doc *goquery.Document, heading string) string {

	h2 := doc.Find("h2").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), heading)
	}).First()
	if h2.Length() == 0 {
		return ""
	}

	p := h2.NextAllFiltered("p").First()
	if p.Length() == 0 {
		return ""
	}

	p.Find("br").ReplaceWithHtml("\n")
	lines := strings.Split(p.Text(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func absoluteURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	base, _ := url.Parse(siteURL)
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
