package description

import (
	"regexp"
	"strings"
)

var (
	verbLeadRegex = regexp.MustCompile(`(?i)^(` + strings.Join([]string{
		"design", "architect", "build", "develop", "implement", "integrate", "deliver", "execute",
		"coordinate", "support", "communicate", "research", "own", "lead", "drive", "collaborate",
		"partner", "work", "plan", "analyze", "optimi[sz]e", "maintain", "ensure", "mentor",
		"manage", "monitor", "test", "troubleshoot", "document", "review",
	}, "|") + `)\b`)

	basicKeywordRegex = regexp.MustCompile(`(?i)\b(` + strings.Join([]string{
		"required", "must", "minimum", "bachelor", "degree", "years of experience", "authorization",
		"proficient", "expertise", "strong", "essential", "mandatory", "background",
		"you must have", "what we(?:'|’)re looking for",
	}, "|") + `)\b`)

	preferredKeywordRegex = regexp.MustCompile(`(?i)\b(` + strings.Join([]string{
		"preferred", "nice to have", "good to have", "plus", "pluses", "desirable",
		"it(?:'|’)s a plus if", "preferred but not required", "familiarity", "experience with",
		"bonus skills?",
	}, "|") + `)\b`)

	benefitsKeywordRegex = regexp.MustCompile(
		`(?i)\b(benefits|perks|insurance|vacation|holiday|bonus|equity|stock|401k|pension|remote|flexible)\b`)
)

// fallbackClassify sorts loose lines by keywords when a description has no
// recognisable headings. Benefits win over preferred, preferred over basic.
func fallbackClassify(lines []string) Sections {
	var result Sections
	for _, line := range lines {
		candidate := bulletText(line)
		if candidate == "" {
			continue
		}
		switch {
		case benefitsKeywordRegex.MatchString(candidate):
			result.Benefits = append(result.Benefits, candidate)
		case preferredKeywordRegex.MatchString(candidate):
			result.PreferredQualifications = append(result.PreferredQualifications, candidate)
		case basicKeywordRegex.MatchString(candidate):
			result.BasicQualifications = append(result.BasicQualifications, candidate)
		case verbLeadRegex.MatchString(candidate):
			result.Responsibilities = append(result.Responsibilities, candidate)
		}
	}
	return result
}
