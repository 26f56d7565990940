package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
)

// Provider names.
const (
	OpenAIProvider = "openai"
	GeminiProvider = "gemini"
)

// GeminiBaseURL is Gemini's OpenAI-compatible endpoint.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// DefaultGeminiModels is tried in order; later entries are used when an
// earlier model is not found.
var DefaultGeminiModels = []string{"gemini-1.5-flash", "gemini-1.5-pro", "gemini-pro"}

var (
	// ErrProvider wraps every failed provider call.
	ErrProvider = errors.New("genai: provider call failed")
	// ErrUnavailable is returned by providers that are not configured.
	ErrUnavailable = errors.New("genai: provider not configured")
	// ErrRateLimited is returned when the upstream API or the local limiter
	// refuses a call.
	ErrRateLimited = errors.New("genai: rate limited")
	// ErrEmptyReply is returned when the model answered with blank text.
	ErrEmptyReply = errors.New("genai: empty reply")
)

// Role of a prompt message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one prior turn included in a prompt.
type Message struct {
	Role    Role
	Content string
}

// Prompt is a provider-neutral request. System may be empty when the whole
// instruction set is folded into User.
type Prompt struct {
	System  string
	History []Message
	User    string
}

// Provider is an external text generator.
type Provider interface {
	Name() string
	// Available reports whether the provider is configured. Callers must
	// not call Complete on an unavailable provider.
	Available() bool
	Complete(ctx context.Context, p Prompt) (string, error)
}

// generator is the part of Client used by ChatProvider.
type generator interface {
	GenerateWithModel(ctx context.Context, model string, msgs []openai.ChatCompletionMessageParamUnion) (string, error)
	Model() string
}

// ChatProvider is a Provider backed by a chat completion client.
type ChatProvider struct {
	name   string
	client generator
	models []string
}

// NewChatProvider returns a provider that tries models in order, moving to
// the next one only when the API reports the model does not exist. With no
// models the client's default is used.
func NewChatProvider(name string, client *Client, models ...string) *ChatProvider {
	return newChatProvider(name, client, models...)
}

func newChatProvider(name string, client generator, models ...string) *ChatProvider {
	var ms []string
	for _, m := range models {
		if m = strings.TrimSpace(m); m != "" {
			ms = append(ms, m)
		}
	}
	if len(ms) == 0 {
		ms = []string{client.Model()}
	}
	return &ChatProvider{name: name, client: client, models: ms}
}

// NewOpenAIProvider configures the OpenAI chat provider.
func NewOpenAIProvider(apiKey, model string, opts ...Option) (*ChatProvider, error) {
	base := []Option{WithAPIKey(apiKey), WithModel(model)}
	client, err := NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("openai provider: %w", err)
	}
	return NewChatProvider(OpenAIProvider, client), nil
}

// NewGeminiProvider configures the Gemini provider through its
// OpenAI-compatible endpoint. An empty baseURL uses GeminiBaseURL and an
// empty models list uses DefaultGeminiModels.
func NewGeminiProvider(apiKey, baseURL string, models []string, opts ...Option) (*ChatProvider, error) {
	if baseURL == "" {
		baseURL = GeminiBaseURL
	}
	if len(models) == 0 {
		models = DefaultGeminiModels
	}
	base := []Option{WithAPIKey(apiKey), WithBaseURL(baseURL), WithModel(models[0])}
	client, err := NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("gemini provider: %w", err)
	}
	return NewChatProvider(GeminiProvider, client, models...), nil
}

// Name implements Provider.
func (p *ChatProvider) Name() string { return p.name }

// Available implements Provider.
func (p *ChatProvider) Available() bool { return p != nil && p.client != nil }

// Models returns the model preference list.
func (p *ChatProvider) Models() []string { return append([]string(nil), p.models...) }

// Complete implements Provider.
func (p *ChatProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if !p.Available() {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, p.Name())
	}
	msgs := buildMessages(prompt)

	var lastErr error
	for i, model := range p.models {
		out, err := p.client.GenerateWithModel(ctx, model, msgs)
		if err == nil {
			out = strings.TrimSpace(out)
			if out == "" {
				return "", fmt.Errorf("%w: %s: %w", ErrProvider, p.name, ErrEmptyReply)
			}
			return out, nil
		}
		lastErr = err
		if isModelNotFound(err) && i < len(p.models)-1 {
			slog.Warn("ChatProvider.Complete: model not found, trying next", "provider", p.name, "model", model, "next", p.models[i+1])
			continue
		}
		break
	}
	if isRateLimited(lastErr) {
		return "", fmt.Errorf("%w: %s: %w: %w", ErrProvider, p.name, ErrRateLimited, lastErr)
	}
	return "", fmt.Errorf("%w: %s: %w", ErrProvider, p.name, lastErr)
}

func buildMessages(p Prompt) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(p.History)+2)
	if p.System != "" {
		msgs = append(msgs, openai.SystemMessage(p.System))
	}
	for _, m := range p.History {
		if m.Role == RoleAssistant {
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		} else {
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	return append(msgs, openai.UserMessage(p.User))
}

func apiStatus(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func isModelNotFound(err error) bool { return apiStatus(err) == http.StatusNotFound }

func isRateLimited(err error) bool { return apiStatus(err) == http.StatusTooManyRequests }

// disabled is the Provider used when no credentials are configured.
type disabled struct{ name string }

// Disabled returns a Provider that is never available.
func Disabled(name string) Provider { return disabled{name: name} }

func (d disabled) Name() string { return d.name }
func (d disabled) Available() bool { return false }
func (d disabled) Complete(context.Context, Prompt) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrUnavailable, d.name)
}
