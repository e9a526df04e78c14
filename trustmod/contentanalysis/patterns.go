package contentanalysis

import (
	"regexp"
	"strings"
)

// Content categories, ordered from advisory to severe. Category weights feed
// the risk score; Violation and Safety matches force human review regardless
// of score.
type Category string

const (
	CategoryContentWarning = Category("ContentWarning")
	CategoryViolation      = Category("Violation")
	CategoryQuality        = Category("Quality")
	CategorySafety         = Category("Safety")
)

var categories = []Category{CategoryContentWarning, CategoryViolation, CategoryQuality, CategorySafety}

var categoryWeights = map[Category]float64{
	CategoryContentWarning: 0.2,
	CategoryViolation:      0.8,
	CategoryQuality:        0.4,
	CategorySafety:         1.0,
}

type tagPattern struct {
	Tag      string
	Patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(`(?i)`+e))
	}
	return out
}

// tagPatterns drives the local classifier. A tag matches when any one of its
// expressions matches; each tag is reported at most once.
var tagPatterns = map[Category][]tagPattern{
	CategoryContentWarning: {
		{Tag: "NSFW", Patterns: compileAll(
			`\b(nsfw|not safe for work|adult content|explicit|sexual|nude|naked|porn|xxx)\b`,
			`\b(18\+|mature content|adult only)\b`,
		)},
		{Tag: "Violence", Patterns: compileAll(
			`\b(violence|violent|kill|murder|death|blood|gore|fight|attack|assault|weapon|gun|knife|bomb)\b`,
			`\b(war|battle|shooting|stabbing|beating|torture)\b`,
		)},
		{Tag: "Sensitive", Patterns: compileAll(
			`\b(trigger|triggering|sensitive|depression|anxiety|suicide|self harm|mental health)\b`,
			`\b(trauma|ptsd|abuse|eating disorder|addiction)\b`,
		)},
		{Tag: "Spoiler", Patterns: compileAll(
			`\b(spoiler|spoilers|plot twist|ending|finale|dies|death scene)\b`,
			`\b(season \d+|episode \d+|chapter \d+).*\b(reveals?|twist|surprise)\b`,
		)},
	},
	CategoryViolation: {
		{Tag: "Harassment", Patterns: compileAll(
			`\b(harass|harassment|bully|bullying|intimidate|threaten|stalk|stalking)\b`,
			`\b(you suck|kill yourself|kys|loser|idiot|stupid|moron)\b`,
		)},
		{Tag: "Hate Speech", Patterns: compileAll(
			`\b(hate|racist|racism|sexist|sexism|homophobic|transphobic|bigot|nazi)\b`,
			`\b(slur|offensive|discriminat|prejudice)\b`,
		)},
		{Tag: "Misinformation", Patterns: compileAll(
			`\b(fake news|conspiracy|hoax|lie|lies|false|misinformation|disinformation)\b`,
			`\b(covid.*fake|vaccine.*dangerous|election.*stolen)\b`,
		)},
	},
	CategoryQuality: {
		{Tag: "Spam", Patterns: compileAll(
			`\b(buy now|click here|free money|get rich|make money fast|limited time)\b`,
			`\b(viagra|casino|lottery|winner|congratulations.*won)\b`,
			`(http[s]?://\S+.*){3,}`,
		)},
		{Tag: "Low Quality", Patterns: compileAll(
			`^.{1,10}$`,
			`^[^a-zA-Z]*$`,
			`\b(first|second|third|fourth|fifth)\b$`,
		)},
	},
	CategorySafety: {
		{Tag: "Self Harm", Patterns: compileAll(
			`\b(suicide|kill myself|end it all|self harm|cut myself|overdose|jump off)\b`,
			`\b(want to die|better off dead|no point living|end my life)\b`,
		)},
		{Tag: "Doxxing", Patterns: compileAll(
			`\b\d{3}-\d{3}-\d{4}\b`,
			`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`,
			`\b\d{1,5}\s+\w+\s+(street|st|avenue|ave|road|rd|drive|dr|lane|ln|boulevard|blvd)\b`,
			`\b(home address|phone number|social security|ssn|credit card)\b`,
		)},
	},
}

const repeatedRunThreshold = 11

// hasRepeatedRun reports whether any single rune repeats at least n times in a
// row. RE2 has no backreferences, so the repeated-character spam signal is a
// plain scan.
func hasRepeatedRun(text string, n int) bool {
	var last rune
	run := 0
	for _, r := range strings.ToLower(text) {
		if r == last {
			run++
			if run >= n {
				return true
			}
		} else {
			last = r
			run = 1
		}
	}
	return false
}
