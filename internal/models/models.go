// Package models defines the wire types shared by the NeuroCare HTTP,
// websocket and messaging surfaces.
package models

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Validation limits for chat requests.
const (
	// MaxMessageLength is the longest accepted utterance, in characters.
	MaxMessageLength = 4000
	// MaxHistoryLength is the most history entries accepted per request.
	MaxHistoryLength = 100
	// MaxToneTags is the most tone tags accepted per request.
	MaxToneTags = 16
)

// Error variables for better error handling and testability
var (
	ErrMessageTooLong = errors.New("message exceeds maximum length")
	ErrHistoryTooLong = errors.New("history exceeds maximum length")
	ErrInvalidSender  = errors.New("history sender must be \"user\" or \"bot\"")
	ErrTooManyTags    = errors.New("too many tone tags")
)

// History senders.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// HistoryMessage is one prior turn echoed back by the client. Bot entries
// carry the intent returned with that reply.
type HistoryMessage struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
	Intent string `json:"intent,omitempty"`
}

// ChatRequest is the body of POST /api/chat and of each websocket frame.
type ChatRequest struct {
	Message string           `json:"message"`
	History []HistoryMessage `json:"history,omitempty"`
	UserID  string           `json:"user_id,omitempty"`
	Mode    string           `json:"mode,omitempty"`
	Tone    []string         `json:"tone,omitempty"`
}

// Validate checks request limits and normalizes history senders in place.
// An empty message is valid.
func (r *ChatRequest) Validate() error {
	if utf8.RuneCountInString(r.Message) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if len(r.History) > MaxHistoryLength {
		return ErrHistoryTooLong
	}
	if len(r.Tone) > MaxToneTags {
		return ErrTooManyTags
	}
	for i := range r.History {
		s := strings.ToLower(strings.TrimSpace(r.History[i].Sender))
		if s != SenderUser && s != SenderBot {
			return ErrInvalidSender
		}
		r.History[i].Sender = s
	}
	return nil
}

// ChatResponse is the result of one turn.
type ChatResponse struct {
	Reply        string  `json:"reply"`
	EmotionLabel string  `json:"emotion_label"`
	EmotionScore float64 `json:"emotion_score"`
	Intent       string  `json:"intent"`
	IsCrisis     bool    `json:"is_crisis"`
	LLMMode      string  `json:"llm_mode"`
}

// ProviderStatus reports whether a generation provider is configured.
type ProviderStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string           `json:"status"`
	Service   string           `json:"service"`
	Providers []ProviderStatus `json:"providers,omitempty"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}
