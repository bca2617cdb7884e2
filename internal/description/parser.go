// Package description splits free-form job descriptions (HTML or Markdown)
// into about, responsibilities, qualifications and benefits.
package description

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"regexp"
	"strings"
)

type label string

const (
	labelAbout            label = "about"
	labelResponsibilities label = "responsibilities"
	labelBasic            label = "basic"
	labelPreferred        label = "preferred"
	labelBenefits         label = "benefits"
)

// classification order, the first matching label wins
var labels = []label{labelAbout, labelResponsibilities, labelBasic, labelPreferred, labelBenefits}

var aliases = map[label][]string{
	labelAbout: {
		`about( the (role|company|team))?`, `about us`, `who we are`, `our story`, `why join us`,
		`why should you join us`, `company overview`, `what we do`, `our values`, `working with us`,
		`engineering culture`, `our mission`, `summary`, `overview`,
	},
	labelResponsibilities: {
		`(key )?responsibilit(?:y|ies)`, `what you(?:'|")?ll do`, `what you will do`, `what you will be doing`,
		`what you do`, `duties`, `your impact`, `missions`, `day[- ]?to[- ]?day`, `role(?: and)? responsibilities`,
		`role overview`, `your responsibilities`, `tasks`, `accountabilit(?:y|ies)`, `your mission`,
		`scope of (?:work|role)`, `what you(?:'|’)ll work on`, `what you(?:'|’)ll own`, `main tasks`, `deliverables`,
	},
	labelBasic: {
		`(required|basic|minimum) qualif(?:ication|ications)`, `requirements`, `must[- ]have`,
		`prereq(?:uisite)?s?`, `required skills`, `minimum requirements`, `you (?:have|bring)`, `you must have`,
		`what you bring to the table`, `who you are`, `about you`, `profile`, `skills and experience`,
		`what you will bring`, `what you bring`, `what we(?:'|’)re looking for`, `we look for`,
		`we are looking for`, `essential skills`, `mandatory skills`, `your background`,
	},
	labelPreferred: {
		`preferred qualif(?:ication|ications)`, `additional desired qualifications`, `nice[- ]to[- ]have`,
		`nice[- ]to[- ]haves?`, `bonus`, `plus`, `good[- ]to[- ]have`, `would be a plus`, `is a plus`,
		`strongly preferred`, `preferred skills`, `ideally`, `preferred experience`, `bonus skills`,
		`desirable`, `pluses`, `it(?:'|’)s a plus if`, `additional qualifications`, `preferred but not required`,
	},
	labelBenefits: {
		`benefits`, `perks`, `what we offer`, `what you can expect`, `compensation and benefits`, `we offer`,
		`our offer`, `why you(?:'|’)ll love`, `why you(?:'|’)ll love working here`, `why you will love`,
		`perks and benefits`, `compensation`, `compensation & perks`, `what we provide`, `what (?:you|we) get`,
		`what you(?:'|’)ll get`, `what you will get`, `employee benefits`, `what(?:'|’)s in it for you`, `rewards`,
	},
}

var canonicalLabels = map[string]struct{}{
	"about": {}, "about the role": {}, "about the company": {}, "about us": {},
	"responsibilities": {}, "key responsibilities": {}, "required qualifications": {},
	"basic qualifications": {}, "minimum qualifications": {}, "preferred qualifications": {},
	"benefits": {}, "perks": {},
}

var (
	searchers = map[label]*regexp.Regexp{}
	matchers  = map[label]*regexp.Regexp{}

	headingRegex        = regexp.MustCompile(`(?i)^\s{0,3}(?:#+\s*|<h[1-6][^>]*>)(.+?)\s*$`)
	bulletRegex         = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+?)\s*$`)
	allCapsRegex        = regexp.MustCompile(`^[A-Z0-9][A-Z0-9 &/,-]{2,80}:?$`)
	mixedCaseColonRegex = regexp.MustCompile(`^[A-Za-z0-9][^\n]{1,80}:$`)

	codeFenceRegex   = regexp.MustCompile("```[\\s\\S]*?```")
	inlineCodeRegex  = regexp.MustCompile("`[^`]+`")
	urlRegex         = regexp.MustCompile(`https?://\S+`)
	spacesRegex      = regexp.MustCompile(`[ \t]+`)
	leadingWSRegex   = regexp.MustCompile(`\n[ \t]+`)
	trailingWSRegex  = regexp.MustCompile(`[ \t]+\n`)
	blankLinesRegex  = regexp.MustCompile(`\n{3,}`)
	blockElementList = "br, p, ul, ol, h1, h2, h3, h4, h5, h6"
)

func init() {
	for _, l := range labels {
		joined := "(?:" + strings.Join(aliases[l], ")|(?:") + ")"
		searchers[l] = regexp.MustCompile(`(?i)` + joined)
		matchers[l] = regexp.MustCompile(`(?i)^(?:` + joined + `)$`)
	}
}

// Sections is the structured form of a description.
type Sections struct {
	About                   string
	Responsibilities        []string
	BasicQualifications     []string
	PreferredQualifications []string
	Benefits                []string
}

// Parse never fails, text it cannot structure ends up in About or nowhere.
func Parse(text string) Sections {

	cleaned := clean(text)
	if cleaned == "" {
		return Sections{}
	}

	lines := strings.Split(cleaned, "\n")

	var about, responsibilities, basic, preferred, benefits []string
	found := false
	for _, s := range segment(lines) {
		l := classifyTitle(s.title)
		if l == "" {
			continue
		}
		found = true
		items := extractBullets(s.lines)
		switch l {
		case labelAbout:
			about = append(about, strings.TrimSpace(strings.Join(s.lines, " ")))
		case labelResponsibilities:
			responsibilities = append(responsibilities, items...)
		case labelBasic:
			basic = append(basic, items...)
		case labelPreferred:
			preferred = append(preferred, items...)
		case labelBenefits:
			benefits = append(benefits, items...)
		}
	}

	if !found {
		fb := fallbackClassify(lines)
		responsibilities, basic, preferred, benefits = fb.Responsibilities, fb.BasicQualifications, fb.PreferredQualifications, fb.Benefits

		classified := map[string]struct{}{}
		for _, group := range [][]string{responsibilities, basic, preferred, benefits} {
			for _, item := range group {
				classified[item] = struct{}{}
			}
		}
		var remaining []string
		for _, line := range lines {
			candidate := bulletText(line)
			if _, ok := classified[candidate]; candidate != "" && !ok {
				remaining = append(remaining, candidate)
			}
		}
		if len(remaining) > 3 {
			remaining = remaining[:3]
		}
		if len(remaining) > 0 {
			about = append(about, strings.Join(remaining, " "))
		}
	}

	return Sections{
		About:                   strings.TrimSpace(strings.Join(nonEmpty(about), " ")),
		Responsibilities:        uniq(responsibilities),
		BasicQualifications:     uniq(basic),
		PreferredQualifications: uniq(preferred),
		Benefits:                uniq(benefits),
	}
}

// Join renders a section list the way it is stored in a CSV cell.
func Join(items []string) string {
	return strings.Join(items, "\n")
}

func clean(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	if strings.Contains(text, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(text)); err == nil {
			doc.Find(blockElementList).BeforeHtml("\n")
			doc.Find("li").BeforeHtml("\n- ")
			text = doc.Text()
		}
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = codeFenceRegex.ReplaceAllString(text, " ")
	text = inlineCodeRegex.ReplaceAllString(text, " ")
	text = urlRegex.ReplaceAllString(text, " ")
	text = spacesRegex.ReplaceAllString(text, " ")
	text = leadingWSRegex.ReplaceAllString(text, "\n")
	text = trailingWSRegex.ReplaceAllString(text, "\n")
	text = blankLinesRegex.ReplaceAllString(text, "\n\n")
	text = strings.ReplaceAll(text, " • ", "\n• ")
	text = strings.ReplaceAll(text, " - ", "\n- ")
	return strings.TrimSpace(text)
}

type section struct {
	title string
	lines []string
}

func segment(lines []string) []section {
	var sections []section
	current := section{}

	flush := func() {
		if current.title != "" || len(current.lines) > 0 {
			sections = append(sections, section{title: strings.TrimSpace(current.title), lines: nonEmpty(current.lines)})
		}
		current = section{}
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if title, ok := headingTitle(line); ok {
			flush()
			current.title = title
			continue
		}
		current.lines = append(current.lines, raw)
	}

	flush()
	return sections
}

// headingTitle recognises Markdown headings, ALL-CAPS labels and short lines ending with a colon.
func headingTitle(line string) (string, bool) {
	if m := headingRegex.FindStringSubmatch(line); m != nil {
		return m[1], true
	}
	if allCapsRegex.MatchString(line) && strings.ContainsAny(line, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return strings.TrimSuffix(line, ":"), true
	}
	if mixedCaseColonRegex.MatchString(line) {
		return strings.TrimSuffix(line, ":"), true
	}
	return "", false
}

func classifyTitle(title string) label {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return ""
	}
	for _, l := range labels {
		if searchers[l].MatchString(t) {
			return l
		}
	}
	return ""
}

func isHeadingLabel(text string) bool {
	t := strings.ToLower(strings.Trim(strings.TrimSpace(text), ":"))
	if len(strings.Fields(t)) > 6 {
		return false
	}
	for _, l := range labels {
		if matchers[l].MatchString(t) {
			return true
		}
	}
	_, ok := canonicalLabels[t]
	return ok
}

func bulletText(line string) string {
	if m := bulletRegex.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(line)
}

func extractBullets(block []string) []string {
	var items []string
	for _, line := range block {
		if m := bulletRegex.FindStringSubmatch(line); m != nil {
			candidate := strings.TrimSpace(m[1])
			if !isHeadingLabel(candidate) {
				items = append(items, candidate)
			}
		}
	}

	if len(items) == 0 {
		items = splitSentences(strings.TrimSpace(strings.Join(block, " ")))
	}

	seen := map[string]struct{}{}
	var result []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		if _, dup := seen[item]; item == "" || dup || isHeadingLabel(item) {
			continue
		}
		seen[item] = struct{}{}
		result = append(result, item)
	}
	return result
}

// splitSentences breaks after '.', '!' or '?' followed by whitespace.
func splitSentences(blob string) []string {
	var parts []string
	runes := []rune(blob)
	start := 0
	for i := 0; i < len(runes)-1; i++ {
		switch runes[i] {
		case '.', '!', '?':
			if isSpace(runes[i+1]) {
				parts = append(parts, strings.TrimSpace(string(runes[start:i+1])))
				start = i + 1
			}
		}
	}
	if start < len(runes) {
		parts = append(parts, strings.TrimSpace(string(runes[start:])))
	}
	return nonEmpty(parts)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}

func nonEmpty(items []string) []string {
	return lo.Filter(items, func(item string, _ int) bool {
		return strings.TrimSpace(item) != ""
	})
}

func uniq(items []string) []string {
	trimmed := lo.FilterMap(items, func(item string, _ int) (string, bool) {
		item = strings.TrimSpace(item)
		return item, item != ""
	})
	return lo.Uniq(trimmed)
}
