// Package classify maps freeform procedure descriptions to study types and
// RVU values using a prioritized keyword rule set.
package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/calebmd/radpace/internal/model"
)

// Keywords shorter than this match on word boundaries; longer keywords
// match as substrings. Short tokens like "pel" are too ambiguous to allow
// inside unrelated words. A rule author can force boundary matching for a
// longer keyword by prefixing it with "=".
const boundaryThreshold = 4

// Result is one classification decision. RuleIndex is the declaration
// position of the winning rule, or -1 when no rule matched and the
// Unknown sentinel applies.
type Result struct {
	StudyType string
	Modality  string
	BodyPart  string
	RVU       float64
	RuleIndex int
}

// Matched reports whether a rule matched, as opposed to the Unknown fallback.
func (r Result) Matched() bool {
	return r.RuleIndex >= 0
}

// Classify maps procedure text to a study type and RVU value. It is a pure
// function of its inputs: identical (text, rule set generation) pairs always
// yield identical results, and concurrent calls against the same RuleSet are
// safe.
//
// A rule is a candidate when every required keyword group has at least one
// member present and no excluded keyword is present; exclusion always wins.
// Among candidates the winner has the highest priority, then the most
// required groups (the most specific match), then the earliest declaration.
// Composite procedures are therefore captured by wide high-priority rules
// instead of being double-counted by their component rules.
func Classify(text string, rules *model.RuleSet) Result {
	norm := normalize(text)

	best := -1
	for i := 0; i < rules.Len(); i++ {
		rule := rules.Rule(i)
		if !ruleMatches(norm, &rule) {
			continue
		}
		if best < 0 || beats(&rule, rules.Rule(best)) {
			best = i
		}
	}

	if best < 0 {
		return Result{StudyType: model.StudyTypeUnknown, RVU: 0.0, RuleIndex: -1}
	}

	winner := rules.Rule(best)
	return Result{
		StudyType: winner.TypeName,
		Modality:  winner.Modality,
		BodyPart:  winner.BodyPart,
		RVU:       winner.RVU,
		RuleIndex: best,
	}
}

// beats reports whether rule a outranks rule b. Ties fall through to
// declaration order, which the caller preserves by keeping the earlier rule.
func beats(a *model.ClassificationRule, b model.ClassificationRule) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return len(a.RequiredGroups) > len(b.RequiredGroups)
}

func ruleMatches(norm string, rule *model.ClassificationRule) bool {
	for _, kw := range rule.ExcludedKeywords {
		if keywordPresent(norm, kw) {
			return false
		}
	}
	for _, group := range rule.RequiredGroups {
		satisfied := false
		for _, kw := range group {
			if keywordPresent(norm, kw) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return false
		}
	}
	return true
}

// keywordPresent checks one keyword against already-normalized text.
func keywordPresent(norm, keyword string) bool {
	forceBoundary := strings.HasPrefix(keyword, "=")
	if forceBoundary {
		keyword = keyword[1:]
	}
	kw := normalize(keyword)
	if kw == "" {
		return false
	}
	if forceBoundary || utf8.RuneCountInString(kw) < boundaryThreshold {
		return containsWord(norm, kw)
	}
	return strings.Contains(norm, kw)
}

// normalize case-folds and collapses all whitespace runs to single spaces.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// containsWord reports whether kw occurs in text delimited by non-alphanumeric
// runes on both sides. kw may itself contain spaces ("ct angio").
func containsWord(text, kw string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], kw)
		if idx < 0 {
			return false
		}
		idx += start
		if boundaryBefore(text, idx) && boundaryAfter(text, idx+len(kw)) {
			return true
		}
		start = idx + 1
	}
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
