// Package lexicon loads the immutable keyword tables and reply templates that
// drive classification and response selection.
//
// A Lexicon is read once at process start (the embedded default or an
// operator-supplied YAML file), validated, and then only read. Components
// receive the slices they need at construction time.
package lexicon

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/BTreeMap/NeuroCare/internal/intent"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Validation errors.
var (
	ErrNoCrisisKeywords  = errors.New("lexicon: crisis keywords are required")
	ErrNoCrisisScript    = errors.New("lexicon: crisis script is required")
	ErrNoIntentRules     = errors.New("lexicon: at least one intent rule is required")
	ErrUnknownCategory   = errors.New("lexicon: unknown intent category")
	ErrEmptyRule         = errors.New("lexicon: intent rule has no keywords")
	ErrNoUnknownReplies  = errors.New("lexicon: responses for \"unknown\" are required")
	ErrEmptyResponseSet  = errors.New("lexicon: response set is empty")
	ErrNoFallbackEcho    = errors.New("lexicon: fallback echo template is required")
	ErrInvalidFallback   = errors.New("lexicon: invalid fallback topic")
	ErrInvalidEchoFormat = errors.New("lexicon: fallback echo template does not parse")
)

// Lexicon is the full set of tables.
type Lexicon struct {
	Crisis    CrisisSection       `yaml:"crisis"`
	Intents   []IntentRule        `yaml:"intents"`
	Responses map[string][]string `yaml:"responses"`
	Quality   QualitySection      `yaml:"quality"`
	Fallback  FallbackSection     `yaml:"fallback"`
	Emotions  []EmotionKeywords   `yaml:"emotions"`
}

// CrisisSection holds the crisis keyword list and the fixed crisis script.
type CrisisSection struct {
	Keywords []string `yaml:"keywords"`
	Script   string   `yaml:"script"`
}

// IntentRule is the YAML form of intent.Rule.
type IntentRule struct {
	Category  string   `yaml:"category"`
	ShortForm bool     `yaml:"short_form,omitempty"`
	WholeWord bool     `yaml:"whole_word,omitempty"`
	Keywords  []string `yaml:"keywords"`
}

// QualitySection configures the generic-reply gate.
type QualitySection struct {
	MinLength         int      `yaml:"min_length"`
	DeflectingPhrases []string `yaml:"deflecting_phrases"`
}

// FallbackSection configures the contextual fallback generator.
type FallbackSection struct {
	QuoteLength int             `yaml:"quote_length"`
	Topics      []FallbackTopic `yaml:"topics"`
	Greeting    string          `yaml:"greeting"`
	Echo        string          `yaml:"echo"`
}

// FallbackTopic is one keyword group of the fallback generator.
type FallbackTopic struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
	Replies  []string `yaml:"replies"`
}

// EmotionKeywords maps an emotion label to trigger words.
type EmotionKeywords struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

// Default returns the embedded lexicon.
func Default() (*Lexicon, error) {
	return Parse(defaultYAML)
}

// MustDefault is Default for callers that treat a broken embedded file as a
// programming error.
func MustDefault() *Lexicon {
	lx, err := Default()
	if err != nil {
		panic(fmt.Sprintf("embedded lexicon is invalid: %v", err))
	}
	return lx
}

// Load reads a lexicon from path, or returns the embedded default when path
// is empty.
func Load(path string) (*Lexicon, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: read %s: %w", path, err)
	}
	lx, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("lexicon: %s: %w", path, err)
	}
	return lx, nil
}

// Parse decodes and validates a YAML document. Unknown fields are rejected.
func Parse(data []byte) (*Lexicon, error) {
	var lx Lexicon
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&lx); err != nil {
		return nil, fmt.Errorf("lexicon: decode: %w", err)
	}
	if err := lx.Validate(); err != nil {
		return nil, err
	}
	return &lx, nil
}

// Validate checks structural invariants. It does not check reply quality;
// the fallback generator audits its own templates when it is built.
func (lx *Lexicon) Validate() error {
	if len(nonEmpty(lx.Crisis.Keywords)) == 0 {
		return ErrNoCrisisKeywords
	}
	if strings.TrimSpace(lx.Crisis.Script) == "" {
		return ErrNoCrisisScript
	}

	if len(lx.Intents) == 0 {
		return ErrNoIntentRules
	}
	for i, r := range lx.Intents {
		c, ok := intent.Parse(r.Category)
		if !ok || c == intent.Unknown {
			return fmt.Errorf("%w: intents[%d] %q", ErrUnknownCategory, i, r.Category)
		}
		if len(nonEmpty(r.Keywords)) == 0 {
			return fmt.Errorf("%w: intents[%d] %q", ErrEmptyRule, i, r.Category)
		}
	}

	for name, set := range lx.Responses {
		if _, ok := intent.Parse(name); !ok {
			return fmt.Errorf("%w: responses.%s", ErrUnknownCategory, name)
		}
		if len(nonEmpty(set)) == 0 {
			return fmt.Errorf("%w: responses.%s", ErrEmptyResponseSet, name)
		}
	}
	if len(nonEmpty(lx.Responses[string(intent.Unknown)])) == 0 {
		return ErrNoUnknownReplies
	}

	for i, t := range lx.Fallback.Topics {
		if _, ok := intent.Parse(t.Category); !ok {
			return fmt.Errorf("%w: fallback.topics[%d] category %q", ErrInvalidFallback, i, t.Category)
		}
		if len(nonEmpty(t.Replies)) == 0 {
			return fmt.Errorf("%w: fallback.topics[%d] has no replies", ErrInvalidFallback, i)
		}
	}
	if strings.TrimSpace(lx.Fallback.Echo) == "" {
		return ErrNoFallbackEcho
	}
	if _, err := template.New("echo").Parse(lx.Fallback.Echo); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEchoFormat, err)
	}

	for i, e := range lx.Emotions {
		if strings.TrimSpace(e.Label) == "" {
			return fmt.Errorf("lexicon: emotions[%d] has no label", i)
		}
	}
	return nil
}

// IntentRules converts the YAML cascade into classifier rules, preserving
// order.
func (lx *Lexicon) IntentRules() []intent.Rule {
	rules := make([]intent.Rule, 0, len(lx.Intents))
	for _, r := range lx.Intents {
		c, _ := intent.Parse(r.Category)
		rules = append(rules, intent.Rule{
			Category:  c,
			Keywords:  nonEmpty(r.Keywords),
			ShortForm: r.ShortForm,
			WholeWord: r.WholeWord,
		})
	}
	return rules
}

// ResponseSets returns the template bank keyed by category.
func (lx *Lexicon) ResponseSets() map[intent.Category][]string {
	out := make(map[intent.Category][]string, len(lx.Responses))
	for name, set := range lx.Responses {
		c, _ := intent.Parse(name)
		out[c] = nonEmpty(set)
	}
	return out
}

// Marshal renders the lexicon back to YAML.
func (lx *Lexicon) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(lx); err != nil {
		return nil, fmt.Errorf("lexicon: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("lexicon: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
