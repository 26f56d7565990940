package emotion

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPrepare(t *testing.T) {
	if _, ok := Prepare("   "); ok {
		t.Error("blank input should not be analyzable")
	}
	got, ok := Prepare("  hello  ")
	if !ok || got != "hello" {
		t.Errorf("Prepare() = %q, %v", got, ok)
	}
	long := strings.Repeat("é", MaxInputLength+100)
	got, _ = Prepare(long)
	if n := utf8.RuneCountInString(got); n != MaxInputLength {
		t.Errorf("expected %d characters, got %d", MaxInputLength, n)
	}
}

func TestKeywordAnalyzer(t *testing.T) {
	a := NewKeywordAnalyzer([]Keywords{
		{Label: "sadness", Words: []string{"sad", "lonely"}},
		{Label: "fear", Words: []string{"scared", "anxious"}},
		{Label: " ", Words: []string{"ignored"}},
	})

	tests := []struct {
		in        string
		wantLabel string
		wantScore float64
	}{
		{"I'm so sad and lonely", "SADNESS", 1},
		{"sad and scared and anxious", "FEAR", 2.0 / 3.0},
		{"sad and scared", "SADNESS", 0.5},
		{"nothing to report", NeutralLabel, 0},
		{"", NeutralLabel, 0},
	}
	for _, tt := range tests {
		got, err := a.Analyze(context.Background(), tt.in)
		if err != nil {
			t.Fatalf("Analyze(%q) error: %v", tt.in, err)
		}
		if got.Label != tt.wantLabel || got.Score != tt.wantScore {
			t.Errorf("Analyze(%q) = %+v, want %s/%v", tt.in, got, tt.wantLabel, tt.wantScore)
		}
	}
}

func TestChainFallsThrough(t *testing.T) {
	failing := AnalyzerFunc(func(context.Context, string) (Result, error) {
		return Result{}, errors.New("endpoint down")
	})
	fixed := AnalyzerFunc(func(context.Context, string) (Result, error) {
		return Result{Label: "JOY", Score: 0.8}, nil
	})

	got, err := Chain(failing, nil, fixed).Analyze(context.Background(), "great day")
	if err != nil || got.Label != "JOY" {
		t.Errorf("Chain() = %+v, %v; want JOY", got, err)
	}

	got, err = Chain(failing).Analyze(context.Background(), "great day")
	if err == nil || got != Neutral() {
		t.Errorf("all-failing chain = %+v, %v; want neutral and an error", got, err)
	}
}

func TestChainSkipsEmptyInput(t *testing.T) {
	called := false
	a := AnalyzerFunc(func(context.Context, string) (Result, error) {
		called = true
		return Result{Label: "JOY", Score: 1}, nil
	})
	got, err := Chain(a).Analyze(context.Background(), " ")
	if err != nil || got != Neutral() || called {
		t.Errorf("empty input: got %+v, %v, called=%v", got, err, called)
	}
}

func TestNeutralAnalyzer(t *testing.T) {
	got, err := NeutralAnalyzer{}.Analyze(context.Background(), "I'm furious")
	if err != nil || got.Label != NeutralLabel || got.Score != 0 {
		t.Errorf("NeutralAnalyzer = %+v, %v", got, err)
	}
}
