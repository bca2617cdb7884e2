// Package category infers a canonical job category from titles, technology
// slugs and descriptions, and detects known skills in free text.
package category

import (
	"github.com/samber/lo"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"regexp"
	"strings"
	"unicode"
)

var (
	solutionsArchitectRegex = regexp.MustCompile(`\bsolutions? architect\b`)
	securityRegex           = regexp.MustCompile(`\bsecurity\b`)
)

const tieBonus = 0.5

// Job carries the signals used for scoring.
type Job struct {
	Title           string
	NormalizedTitle string
	Description     string
	TechSlugs       []string
}

type keyword struct {
	raw     string
	pattern *regexp.Regexp
}

type Mapper struct {
	mapping  Mapping
	keywords map[string][]keyword
	slugs    map[string]map[string]struct{}
	skills   []keyword
}

func NewMapper(mapping Mapping) *Mapper {
	m := &Mapper{
		mapping:  mapping,
		keywords: make(map[string][]keyword, len(mapping.Rules)),
		slugs:    make(map[string]map[string]struct{}, len(mapping.Rules)),
	}

	for name, rule := range mapping.Rules {
		for _, raw := range rule.Title {
			if raw == "" {
				continue
			}
			m.keywords[name] = append(m.keywords[name], keyword{
				raw:     raw,
				pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.TrimSpace(raw)) + `\b`),
			})
		}
		set := make(map[string]struct{}, len(rule.TechSlugs))
		for _, slug := range rule.TechSlugs {
			set[strings.ToLower(slug)] = struct{}{}
		}
		m.slugs[name] = set
	}

	for _, skill := range lo.Uniq(mapping.Skills) {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if skill == "" {
			continue
		}
		m.skills = append(m.skills, keyword{
			raw:     skill,
			pattern: regexp.MustCompile(`(?:^|[^a-z0-9])` + regexp.QuoteMeta(skill) + `(?:$|[^a-z0-9])`),
		})
	}

	return m
}

// NewDefaultMapper is a Mapper over the built-in rules.
func NewDefaultMapper() *Mapper {
	return NewMapper(DefaultMapping())
}

// Normalize lower-cases the text and strips diacritics.
func Normalize(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, text)
	if err != nil {
		result = text
	}
	return strings.ToLower(result)
}

// Infer returns one of the canonical categories, Other when nothing scores
// above the minimum.
func (m *Mapper) Infer(job Job) string {

	title := Normalize(job.Title)
	normalizedTitle := title
	if job.NormalizedTitle != "" {
		normalizedTitle = Normalize(job.NormalizedTitle)
	}
	bothTitles := title + " " + Normalize(job.NormalizedTitle)

	if m.mapping.TieBreakers.SolutionsArchitectOverride && solutionsArchitectRegex.MatchString(bothTitles) {
		return SolutionsArchitect
	}
	if m.mapping.TieBreakers.SecurityOverride && securityRegex.MatchString(bothTitles) {
		return Security
	}

	description := Normalize(job.Description)
	slugs := lo.Map(job.TechSlugs, func(s string, _ int) string { return strings.ToLower(s) })

	scores := make(map[string]float64, len(m.mapping.Categories))
	for _, name := range m.mapping.Categories {
		if name == Other {
			continue
		}
		scores[name] = m.score(name, title, normalizedTitle, description, slugs)
	}

	if m.mapping.TieBreakers.MLOverDataScience && scores[MachineLearningScience] > 0 && scores[DataScience] > 0 {
		scores[MachineLearningScience] += tieBonus
	}
	if m.mapping.TieBreakers.BIOverDataScience && scores[BusinessIntelligence] > 0 && scores[DataScience] > 0 {
		scores[BusinessIntelligence] += tieBonus
	}
	if _, ok := scores[ProductManagement]; ok && m.hits(ProductManagement, bothTitles) > 0 {
		scores[ProductManagement] += tieBonus
	}

	best, bestScore := Other, 0.0
	for _, name := range m.mapping.Categories {
		score, ok := scores[name]
		if !ok {
			continue
		}
		// strict comparison keeps the earlier category on ties
		if best == Other || score > bestScore {
			best, bestScore = name, score
		}
	}

	if bestScore < m.mapping.MinScore {
		return Other
	}
	return best
}

func (m *Mapper) score(name, title, normalizedTitle, description string, slugs []string) float64 {
	weights := m.mapping.Weights
	score := weights.Title * float64(m.hits(name, title))
	score += weights.NormalizedTitle * float64(m.hits(name, normalizedTitle))

	if set := m.slugs[name]; len(set) > 0 && len(slugs) > 0 {
		matched := lo.Filter(lo.Uniq(slugs), func(s string, _ int) bool {
			_, ok := set[s]
			return ok
		})
		score += weights.TechSlugs * float64(len(matched))
	}

	score += weights.Description * float64(m.hits(name, description))
	return score
}

// hits counts keywords found either on word boundaries or as a plain substring.
func (m *Mapper) hits(name, text string) int {
	if text == "" {
		return 0
	}
	count := 0
	for _, kw := range m.keywords[name] {
		if kw.pattern.MatchString(text) || strings.Contains(text, kw.raw) {
			count++
		}
	}
	return count
}

// DetectSkills returns the known skills mentioned in any of the texts, in the
// order they are configured.
func (m *Mapper) DetectSkills(texts ...string) []string {
	joined := Normalize(strings.Join(texts, "\n"))
	if strings.TrimSpace(joined) == "" {
		return nil
	}

	var found []string
	for _, skill := range m.skills {
		if skill.pattern.MatchString(joined) {
			found = append(found, skill.raw)
		}
	}
	return found
}
