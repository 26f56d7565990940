package emotion

import (
	"context"
	"strings"
)

// Keywords maps one label to its trigger words.
type Keywords struct {
	Label string
	Words []string
}

// KeywordAnalyzer labels text by counting trigger words. The winning label
// is the one with the most hits (earlier labels win ties); the score is its
// share of all hits.
type KeywordAnalyzer struct {
	table []Keywords
}

// NewKeywordAnalyzer copies table, upper-casing labels and lower-casing words.
func NewKeywordAnalyzer(table []Keywords) *KeywordAnalyzer {
	cp := make([]Keywords, 0, len(table))
	for _, k := range table {
		label := strings.ToUpper(strings.TrimSpace(k.Label))
		if label == "" {
			continue
		}
		var words []string
		for _, w := range k.Words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				words = append(words, w)
			}
		}
		cp = append(cp, Keywords{Label: label, Words: words})
	}
	return &KeywordAnalyzer{table: cp}
}

// Analyze implements Analyzer. It never returns an error.
func (a *KeywordAnalyzer) Analyze(_ context.Context, text string) (Result, error) {
	t, ok := Prepare(text)
	if !ok {
		return Neutral(), nil
	}
	t = strings.ToLower(t)

	best, bestHits, total := "", 0, 0
	for _, k := range a.table {
		hits := 0
		for _, w := range k.Words {
			if strings.Contains(t, w) {
				hits++
			}
		}
		total += hits
		if hits > bestHits {
			best, bestHits = k.Label, hits
		}
	}
	if bestHits == 0 {
		return Neutral(), nil
	}
	return Result{Label: best, Score: float64(bestHits) / float64(total)}, nil
}
