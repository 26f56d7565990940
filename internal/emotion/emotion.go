// Package emotion labels the emotional tone of an utterance. The label is
// passed through to clients; no reply decision depends on it.
package emotion

import (
	"context"
	"errors"
	"strings"
)

const (
	// NeutralLabel is reported for empty input and when no analyzer succeeds.
	NeutralLabel = "NEUTRAL"
	// MaxInputLength is the number of characters sent to an analyzer.
	MaxInputLength = 512
)

// Result is a single emotion label with a confidence in [0, 1].
type Result struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Neutral returns the zero-confidence neutral result.
func Neutral() Result { return Result{Label: NeutralLabel, Score: 0} }

// Analyzer classifies the emotion expressed by text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Result, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, text string) (Result, error)

// Analyze implements Analyzer.
func (f AnalyzerFunc) Analyze(ctx context.Context, text string) (Result, error) { return f(ctx, text) }

// Prepare trims text and truncates it to MaxInputLength characters. The
// boolean is false when nothing is left to analyze.
func Prepare(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if t == "" {
		return "", false
	}
	if r := []rune(t); len(r) > MaxInputLength {
		t = string(r[:MaxInputLength])
	}
	return t, true
}

// NeutralAnalyzer always reports Neutral. It is used when no inference
// endpoint is configured and keyword analysis is disabled.
type NeutralAnalyzer struct{}

// Analyze implements Analyzer.
func (NeutralAnalyzer) Analyze(context.Context, string) (Result, error) { return Neutral(), nil }

type chain []Analyzer

// Chain returns an Analyzer that tries each analyzer in order and returns the
// first successful result. When all of them fail it returns Neutral and the
// joined errors.
func Chain(analyzers ...Analyzer) Analyzer {
	var c chain
	for _, a := range analyzers {
		if a != nil {
			c = append(c, a)
		}
	}
	return c
}

func (c chain) Analyze(ctx context.Context, text string) (Result, error) {
	if _, ok := Prepare(text); !ok {
		return Neutral(), nil
	}
	var errs []error
	for _, a := range c {
		res, err := a.Analyze(ctx, text)
		if err == nil {
			return res, nil
		}
		errs = append(errs, err)
	}
	return Neutral(), errors.Join(errs...)
}
