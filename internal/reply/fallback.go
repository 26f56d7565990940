package reply

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/BTreeMap/NeuroCare/internal/intent"
	"github.com/BTreeMap/NeuroCare/internal/util"
)

// DefaultQuoteLength is how many characters of the utterance the echo reply quotes.
const DefaultQuoteLength = 50

// ErrGenericFallback is returned by Audit when a fallback template would be
// rejected by the quality gate.
var ErrGenericFallback = errors.New("reply: fallback template is generic")

// Topic is a keyword group of the fallback generator.
type Topic struct {
	Category intent.Category
	Keywords []string
	Replies  []string
}

// EchoData is the data passed to the echo template.
type EchoData struct {
	Quote   string
	Intent  string
	Emotion string
}

// Fallback composes topic-aware replies when a model is unavailable or its
// output was rejected. It is immutable after construction.
type Fallback struct {
	topics   []Topic
	greeting string
	echo     *template.Template
	quoteLen int
	picker   util.Picker
	filter   *QualityFilter
}

// FallbackOption configures a Fallback.
type FallbackOption func(*Fallback)

// WithQualityFilter makes the echo reply drop deflecting phrases from the
// quoted utterance so the rendered reply passes filter.
func WithQualityFilter(filter *QualityFilter) FallbackOption {
	return func(f *Fallback) {
		f.filter = filter
	}
}

// NewFallback builds a generator. echo is a text/template over EchoData.
func NewFallback(topics []Topic, greeting, echo string, quoteLen int, picker util.Picker, opts ...FallbackOption) (*Fallback, error) {
	tmpl, err := template.New("echo").Option("missingkey=error").Parse(echo)
	if err != nil {
		return nil, fmt.Errorf("reply: parse echo template: %w", err)
	}
	cp := make([]Topic, 0, len(topics))
	for _, t := range topics {
		kws := make([]string, 0, len(t.Keywords))
		for _, k := range t.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kws = append(kws, k)
			}
		}
		cp = append(cp, Topic{Category: t.Category, Keywords: kws, Replies: append([]string(nil), t.Replies...)})
	}
	if quoteLen <= 0 {
		quoteLen = DefaultQuoteLength
	}
	if picker == nil {
		picker = util.DefaultPicker
	}
	f := &Fallback{topics: cp, greeting: greeting, echo: tmpl, quoteLen: quoteLen, picker: picker}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Generate returns a reply for text. Topics are matched by category first
// and by keyword second; a greeting gets the greeting reply; anything else
// gets the echo reply quoting the start of text.
func (f *Fallback) Generate(text string, category intent.Category, emotion string) string {
	if t, ok := f.topicFor(text, category); ok {
		return util.PickString(f.picker, t.Replies)
	}
	if category == intent.Greeting && f.greeting != "" {
		return f.greeting
	}
	out, err := f.echoFor(text, category, emotion)
	if err != nil {
		slog.Error("Fallback.Generate: echo template failed", "error", err)
		return f.greeting
	}
	return out
}

// echoFor renders the echo reply. When the quote makes the reply generic,
// the deflecting phrases are cut from the quote, and the quote is dropped if
// that still fails.
func (f *Fallback) echoFor(text string, category intent.Category, emotion string) (string, error) {
	out, err := f.renderEcho(text, category, emotion)
	if err != nil || f.filter == nil || !f.filter.IsGeneric(out) {
		return out, err
	}
	slog.Debug("Fallback.Generate: redacting quote", "reason", f.filter.Reason(out))
	out, err = f.renderEcho(f.filter.Redact(text), category, emotion)
	if err != nil || !f.filter.IsGeneric(out) {
		return out, err
	}
	return f.renderEcho("", category, emotion)
}

// topicFor returns the topic for a category, else the first topic with a
// keyword contained in text.
func (f *Fallback) topicFor(text string, category intent.Category) (Topic, bool) {
	for _, t := range f.topics {
		if t.Category == category {
			return t, true
		}
	}
	lower := strings.ToLower(text)
	for _, t := range f.topics {
		for _, k := range t.Keywords {
			if strings.Contains(lower, k) {
				return t, true
			}
		}
	}
	return Topic{}, false
}

func (f *Fallback) renderEcho(text string, category intent.Category, emotion string) (string, error) {
	var b strings.Builder
	err := f.echo.Execute(&b, EchoData{
		Quote:   Quote(text, f.quoteLen),
		Intent:  string(category),
		Emotion: emotion,
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// Templates returns every fixed reply the generator can produce, with the
// echo rendered for an empty quote.
func (f *Fallback) Templates() ([]string, error) {
	var out []string
	for _, t := range f.topics {
		out = append(out, t.Replies...)
	}
	if f.greeting != "" {
		out = append(out, f.greeting)
	}
	echo, err := f.renderEcho("", intent.Unknown, "")
	if err != nil {
		return nil, fmt.Errorf("reply: render echo template: %w", err)
	}
	return append(out, echo), nil
}

// Audit checks that no template would itself be flagged by filter.
func (f *Fallback) Audit(filter *QualityFilter) error {
	all, err := f.Templates()
	if err != nil {
		return err
	}
	for _, s := range all {
		if reason := filter.Reason(s); reason != "" {
			return fmt.Errorf("%w (%s): %q", ErrGenericFallback, reason, s)
		}
	}
	return nil
}

// Quote returns the first n characters of the trimmed text, with "..."
// appended when it was cut.
func Quote(text string, n int) string {
	r := []rune(strings.TrimSpace(text))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
