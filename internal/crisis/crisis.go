// Package crisis flags utterances that indicate an immediate self-harm risk.
//
// Matching is a plain lower-cased substring test against a fixed keyword
// list. There is no tokenization, stemming or negation handling, so short
// keywords such as "die" also fire inside unrelated words ("studied") and
// idioms ("I could die of embarrassment"). That imprecision is accepted.
package crisis

import "strings"

// Detector is an immutable keyword matcher, safe for concurrent use.
type Detector struct {
	keywords []string
}

// NewDetector returns a detector over a lower-cased copy of keywords.
// Blank keywords are dropped so they cannot match every input.
func NewDetector(keywords []string) *Detector {
	kws := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			kws = append(kws, k)
		}
	}
	return &Detector{keywords: kws}
}

// IsCrisis reports whether text contains any crisis keyword.
func (d *Detector) IsCrisis(text string) bool {
	_, ok := d.Match(text)
	return ok
}

// Match returns the first keyword found in text.
func (d *Detector) Match(text string) (string, bool) {
	t := strings.ToLower(text)
	if strings.TrimSpace(t) == "" {
		return "", false
	}
	for _, k := range d.keywords {
		if strings.Contains(t, k) {
			return k, true
		}
	}
	return "", false
}
