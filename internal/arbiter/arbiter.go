// Package arbiter decides, turn by turn, how NeuroCare answers: with the
// crisis script, from the template bank, or through an external provider
// whose failures and generic output fall back to local replies.
//
// An Arbiter holds only immutable tables and provider handles. Each call to
// HandleTurn is independent; conversation state arrives with the request.
package arbiter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/NeuroCare/internal/crisis"
	"github.com/BTreeMap/NeuroCare/internal/emotion"
	"github.com/BTreeMap/NeuroCare/internal/genai"
	"github.com/BTreeMap/NeuroCare/internal/intent"
	"github.com/BTreeMap/NeuroCare/internal/lexicon"
	"github.com/BTreeMap/NeuroCare/internal/reply"
	"github.com/BTreeMap/NeuroCare/internal/tone"
	"github.com/BTreeMap/NeuroCare/internal/util"
)

// Mode selects how a reply is produced.
type Mode string

const (
	ModeTemplate Mode = "template"
	ModeOpenAI   Mode = "openai"
	ModeGemini   Mode = "gemini"
)

// DefaultMode is used when a request does not name a mode.
const DefaultMode = ModeGemini

// DefaultProviderTimeout bounds a single provider call.
const DefaultProviderTimeout = 20 * time.Second

// ParseMode maps a wire value to a Mode, case-insensitively.
func ParseMode(s string) (Mode, bool) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeTemplate, ModeOpenAI, ModeGemini:
		return m, true
	default:
		return "", false
	}
}

// Sender identifies who produced a history turn.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Turn is one client-supplied history entry. Intent is the category the bot
// recorded for its own reply and is empty on user turns.
type Turn struct {
	Sender Sender
	Text   string
	Intent string
}

// Request is the input of one turn.
type Request struct {
	Message   string
	History   []Turn
	Mode      string
	ClientID  string
	ToneTags  []string
	RequestID string
}

// Result is the outcome of one turn.
type Result struct {
	Reply    string
	Emotion  emotion.Result
	Intent   intent.Category
	IsCrisis bool
	ModeUsed Mode
}

// ProviderInfo reports the configuration state of one provider.
type ProviderInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Arbiter produces replies. It is safe for concurrent use.
type Arbiter struct {
	detector   *crisis.Detector
	classifier *intent.Classifier
	bank       *reply.Bank
	filter     *reply.QualityFilter
	fallback   *reply.Fallback

	analyzer    emotion.Analyzer
	openai      genai.Provider
	gemini      genai.Provider
	limiter     *genai.Limiter
	timeout     time.Duration
	defaultMode Mode
}

// Opts holds optional collaborators for an Arbiter.
type Opts struct {
	OpenAI          genai.Provider
	Gemini          genai.Provider
	Analyzer        emotion.Analyzer
	Limiter         *genai.Limiter
	ProviderTimeout time.Duration
	DefaultMode     Mode
	Picker          util.Picker
}

// Option configures an Arbiter.
type Option func(*Opts)

// WithOpenAI sets the provider behind ModeOpenAI.
func WithOpenAI(p genai.Provider) Option {
	return func(o *Opts) { o.OpenAI = p }
}

// WithGemini sets the provider behind ModeGemini.
func WithGemini(p genai.Provider) Option {
	return func(o *Opts) { o.Gemini = p }
}

// WithAnalyzer sets the emotion analyzer. The default uses the lexicon's
// emotion keywords.
func WithAnalyzer(a emotion.Analyzer) Option {
	return func(o *Opts) { o.Analyzer = a }
}

// WithLimiter sets the per-client provider call limiter.
func WithLimiter(l *genai.Limiter) Option {
	return func(o *Opts) { o.Limiter = l }
}

// WithProviderTimeout bounds each provider call.
func WithProviderTimeout(d time.Duration) Option {
	return func(o *Opts) { o.ProviderTimeout = d }
}

// WithDefaultMode sets the mode used when a request names none.
func WithDefaultMode(m Mode) Option {
	return func(o *Opts) { o.DefaultMode = m }
}

// WithPicker sets the random source for template selection.
func WithPicker(p util.Picker) Option {
	return func(o *Opts) { o.Picker = p }
}

// New builds an Arbiter from a validated lexicon. It fails when a fallback
// template would itself be rejected by the quality filter.
func New(lx *lexicon.Lexicon, opts ...Option) (*Arbiter, error) {
	cfg := Opts{
		ProviderTimeout: DefaultProviderTimeout,
		DefaultMode:     DefaultMode,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Picker == nil {
		cfg.Picker = util.DefaultPicker
	}
	if cfg.OpenAI == nil {
		cfg.OpenAI = genai.Disabled(genai.OpenAIProvider)
	}
	if cfg.Gemini == nil {
		cfg.Gemini = genai.Disabled(genai.GeminiProvider)
	}
	if cfg.Analyzer == nil {
		cfg.Analyzer = emotion.NewKeywordAnalyzer(EmotionKeywords(lx))
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = DefaultProviderTimeout
	}
	if _, ok := ParseMode(string(cfg.DefaultMode)); !ok {
		return nil, fmt.Errorf("arbiter: invalid default mode %q", cfg.DefaultMode)
	}

	filter := reply.NewQualityFilter(lx.Quality.DeflectingPhrases, lx.Quality.MinLength)
	fallback, err := reply.NewFallback(FallbackTopics(lx), lx.Fallback.Greeting, lx.Fallback.Echo, lx.Fallback.QuoteLength, cfg.Picker, reply.WithQualityFilter(filter))
	if err != nil {
		return nil, fmt.Errorf("arbiter: %w", err)
	}
	if err := fallback.Audit(filter); err != nil {
		return nil, fmt.Errorf("arbiter: %w", err)
	}

	return &Arbiter{
		detector:    crisis.NewDetector(lx.Crisis.Keywords),
		classifier:  intent.NewClassifier(lx.IntentRules()),
		bank:        reply.NewBank(lx.ResponseSets(), lx.Crisis.Script, cfg.Picker),
		filter:      filter,
		fallback:    fallback,
		analyzer:    cfg.Analyzer,
		openai:      cfg.OpenAI,
		gemini:      cfg.Gemini,
		limiter:     cfg.Limiter,
		timeout:     cfg.ProviderTimeout,
		defaultMode: cfg.DefaultMode,
	}, nil
}

// FallbackTopics converts the lexicon fallback section.
func FallbackTopics(lx *lexicon.Lexicon) []reply.Topic {
	topics := make([]reply.Topic, 0, len(lx.Fallback.Topics))
	for _, t := range lx.Fallback.Topics {
		c, _ := intent.Parse(t.Category)
		topics = append(topics, reply.Topic{Category: c, Keywords: t.Keywords, Replies: t.Replies})
	}
	return topics
}

// EmotionKeywords converts the lexicon emotion table.
func EmotionKeywords(lx *lexicon.Lexicon) []emotion.Keywords {
	table := make([]emotion.Keywords, 0, len(lx.Emotions))
	for _, e := range lx.Emotions {
		table = append(table, emotion.Keywords{Label: e.Label, Words: e.Keywords})
	}
	return table
}

// Providers reports which providers are configured.
func (a *Arbiter) Providers() []ProviderInfo {
	return []ProviderInfo{
		{Name: a.openai.Name(), Available: a.openai.Available()},
		{Name: a.gemini.Name(), Available: a.gemini.Available()},
	}
}

// DefaultMode returns the mode used for requests that name none.
func (a *Arbiter) DefaultMode() Mode { return a.defaultMode }

// HandleTurn produces the reply for one utterance. It never fails: provider
// errors are logged and answered from local replies.
func (a *Arbiter) HandleTurn(ctx context.Context, req Request) Result {
	log := slog.With("request_id", req.RequestID)

	emo, err := a.analyzer.Analyze(ctx, req.Message)
	if err != nil {
		log.Warn("Arbiter.HandleTurn: emotion analysis failed", "error", err)
		emo = emotion.Neutral()
	}

	match := a.classifier.Explain(req.Message)
	category := match.Category
	if category == intent.Unknown {
		if prior, ok := priorIntent(req.History); ok {
			log.Debug("Arbiter.HandleTurn: carrying intent from previous reply", "intent", prior)
			category = prior
		}
	}

	isCrisis := a.detector.IsCrisis(req.Message) || category == intent.Crisis
	res := Result{Emotion: emo, Intent: category, IsCrisis: isCrisis, ModeUsed: ModeTemplate}
	log.Debug("Arbiter.HandleTurn: classified", "intent", category, "keyword", match.Keyword, "crisis", isCrisis, "emotion", emo.Label)

	if isCrisis {
		log.Warn("Arbiter.HandleTurn: crisis language detected; sending crisis script", "client_id", req.ClientID)
		res.Reply = a.bank.CrisisScript()
		return res
	}

	if category == intent.Gratitude || category == intent.Goodbye {
		res.Reply = a.bank.Choose(category, false)
		return res
	}

	mode := a.defaultMode
	if strings.TrimSpace(req.Mode) != "" {
		parsed, ok := ParseMode(req.Mode)
		if !ok {
			log.Debug("Arbiter.HandleTurn: unrecognized mode, using templates", "mode", req.Mode)
			res.Reply = a.bank.Choose(category, false)
			return res
		}
		mode = parsed
	}

	tags := tone.ValidateTags(req.ToneTags)
	switch {
	case mode == ModeOpenAI && a.openai.Available():
		prompt := openAIPrompt(req.Message, req.History, category, emo.Label, tags)
		out, err := a.complete(ctx, a.openai, prompt, req.ClientID)
		if err != nil {
			log.Warn("Arbiter.HandleTurn: openai call failed, using templates", "error", err)
			res.Reply = a.bank.Choose(category, false)
			return res
		}
		res.Reply, res.ModeUsed = out, ModeOpenAI
		return res

	case mode == ModeGemini && a.gemini.Available():
		prompt := geminiPrompt(req.Message, req.History, category, emo.Label, tags)
		out, err := a.complete(ctx, a.gemini, prompt, req.ClientID)
		if err != nil {
			log.Warn("Arbiter.HandleTurn: gemini call failed, using contextual fallback", "error", err)
			res.Reply = a.fallback.Generate(req.Message, category, emo.Label)
			return res
		}
		if reason := a.filter.Reason(out); reason != "" {
			log.Warn("Arbiter.HandleTurn: rejected generic gemini reply", "reason", reason, "preview", reply.Quote(out, 100))
			res.Reply = a.fallback.Generate(req.Message, category, emo.Label)
			return res
		}
		res.Reply, res.ModeUsed = out, ModeGemini
		return res

	default:
		if mode != ModeTemplate {
			log.Debug("Arbiter.HandleTurn: provider not configured, using templates", "mode", mode)
		}
		res.Reply = a.bank.Choose(category, false)
		return res
	}
}

// complete runs one rate-limited provider call under the provider timeout.
func (a *Arbiter) complete(ctx context.Context, p genai.Provider, prompt genai.Prompt, clientID string) (string, error) {
	if !a.limiter.Allow(clientID) {
		return "", fmt.Errorf("%w: %s: %w", genai.ErrProvider, p.Name(), genai.ErrRateLimited)
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	out, err := p.Complete(ctx, prompt)
	slog.Debug("Arbiter.complete: provider call finished", "provider", p.Name(), "duration", time.Since(start), "ok", err == nil)
	return out, err
}

// priorIntent returns the valid intent recorded on the most recent bot turn.
func priorIntent(history []Turn) (intent.Category, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Sender != SenderBot {
			continue
		}
		c, ok := intent.Parse(history[i].Intent)
		if !ok || c == intent.Unknown {
			return "", false
		}
		return c, true
	}
	return "", false
}
