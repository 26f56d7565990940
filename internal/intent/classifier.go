package intent

import (
	"strings"
	"unicode"
)

// ShortFormMaxTokens is the largest utterance, in whitespace-separated
// tokens, that short-form rules are evaluated against.
const ShortFormMaxTokens = 3

// Rule is one step of the classification cascade.
type Rule struct {
	Category Category
	Keywords []string
	// ShortForm restricts the rule to utterances of at most
	// ShortFormMaxTokens tokens. Short-form rules always match whole words.
	ShortForm bool
	// WholeWord matches keywords on word boundaries instead of as raw
	// substrings. Used for very short keywords such as "hi" or "ex".
	WholeWord bool
}

// Match describes which rule decided a classification.
type Match struct {
	Category Category `json:"intent"`
	Keyword  string   `json:"keyword,omitempty"`
	// Rule is the zero-based cascade position, or -1 when no rule matched.
	Rule int `json:"rule"`
}

// Classifier evaluates an ordered rule cascade. It holds no mutable state
// and is safe for concurrent use.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a classifier over a copy of rules. Keywords are
// lower-cased once here so Detect does no per-call preparation of the tables.
func NewClassifier(rules []Rule) *Classifier {
	cp := make([]Rule, 0, len(rules))
	for _, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k == "" {
				continue
			}
			if r.ShortForm || r.WholeWord {
				k = normalizeWords(k)
			}
			kws = append(kws, k)
		}
		cp = append(cp, Rule{Category: r.Category, Keywords: kws, ShortForm: r.ShortForm, WholeWord: r.WholeWord})
	}
	return &Classifier{rules: cp}
}

// Detect returns the category of the first matching rule, or Unknown.
// Detect is total: every input, including the empty string, yields a member
// of the closed set.
func (c *Classifier) Detect(text string) Category {
	return c.Explain(text).Category
}

// Explain is Detect plus the keyword and cascade position that decided it.
func (c *Classifier) Explain(text string) Match {
	t := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(text)), "’", "'")
	if t == "" {
		return Match{Category: Unknown, Rule: -1}
	}

	short := len(strings.Fields(t)) <= ShortFormMaxTokens
	words := " " + normalizeWords(t) + " "

	for i, r := range c.rules {
		if r.ShortForm && !short {
			continue
		}
		for _, k := range r.Keywords {
			var hit bool
			if r.ShortForm || r.WholeWord {
				hit = strings.Contains(words, " "+k+" ")
			} else {
				hit = strings.Contains(t, k)
			}
			if hit {
				return Match{Category: r.Category, Keyword: k, Rule: i}
			}
		}
	}
	return Match{Category: Unknown, Rule: -1}
}

// Rules returns a copy of the cascade in evaluation order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = r
		out[i].Keywords = append([]string(nil), r.Keywords...)
	}
	return out
}

// normalizeWords reduces text to single-space separated words made of
// letters, digits and apostrophes.
func normalizeWords(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r == '’' || r == '\'':
			return '\''
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return r
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}
