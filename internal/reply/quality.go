package reply

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMinLength is the shortest model reply accepted as specific.
const DefaultMinLength = 80

// QualityFilter flags model output that deflects instead of helping.
type QualityFilter struct {
	phrases   []string
	minLength int
	redactor  *regexp.Regexp
}

// NewQualityFilter returns a filter over lower-cased phrases. A non-positive
// minLength uses DefaultMinLength.
func NewQualityFilter(phrases []string, minLength int) *QualityFilter {
	ps := make([]string, 0, len(phrases))
	alts := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(p)), "’", "'")
		if p != "" {
			ps = append(ps, p)
			alts = append(alts, strings.ReplaceAll(regexp.QuoteMeta(p), "'", "['’]"))
		}
	}
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	f := &QualityFilter{phrases: ps, minLength: minLength}
	if len(alts) > 0 {
		f.redactor = regexp.MustCompile(`(?i)` + strings.Join(alts, "|"))
	}
	return f
}

// IsGeneric reports whether text contains a deflecting phrase or is shorter
// than the minimum length.
func (f *QualityFilter) IsGeneric(text string) bool {
	return f.Reason(text) != ""
}

// Reason explains why text is generic, or returns "" when it is not.
func (f *QualityFilter) Reason(text string) string {
	t := strings.ReplaceAll(strings.ToLower(text), "’", "'")
	for _, p := range f.phrases {
		if strings.Contains(t, p) {
			return "phrase: " + p
		}
	}
	if utf8.RuneCountInString(t) < f.minLength {
		return "too short"
	}
	return ""
}

// Redact removes every deflecting phrase from text and collapses the
// whitespace left behind. Removal repeats until no phrase remains.
func (f *QualityFilter) Redact(text string) string {
	if f.redactor == nil {
		return text
	}
	text = strings.Join(strings.Fields(text), " ")
	for f.redactor.MatchString(text) {
		text = strings.Join(strings.Fields(f.redactor.ReplaceAllString(text, " ")), " ")
	}
	return text
}
