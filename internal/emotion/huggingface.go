package emotion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	// DefaultModel is the text-classification model queried by HFClient.
	DefaultModel   = "j-hartmann/emotion-english-distilroberta-base"
	defaultHFBase  = "https://api-inference.huggingface.co/models"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

var (
	// ErrNoToken is returned by NewHFClient when no API token is configured.
	ErrNoToken = errors.New("emotion: Hugging Face API token not set")
	// ErrInference wraps failures reported by the inference endpoint.
	ErrInference = errors.New("emotion: inference request failed")
	// ErrMalformedResponse is returned when the response has no labels.
	ErrMalformedResponse = errors.New("emotion: malformed inference response")
)

// HFClient queries a Hugging Face text-classification endpoint.
type HFClient struct {
	token   string
	model   string
	baseURL string
	client  *http.Client
}

// Option configures an HFClient.
type Option func(*HFClient)

// WithToken sets the bearer token.
func WithToken(token string) Option {
	return func(c *HFClient) { c.token = token }
}

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(c *HFClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL overrides the inference endpoint root.
func WithBaseURL(u string) Option {
	return func(c *HFClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HFClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewHFClient returns a client for the configured model.
func NewHFClient(opts ...Option) (*HFClient, error) {
	c := &HFClient{
		model:   DefaultModel,
		baseURL: defaultHFBase,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if strings.TrimSpace(c.token) == "" {
		return nil, ErrNoToken
	}
	return c, nil
}

// Model returns the model id queried by the client.
func (c *HFClient) Model() string { return c.model }

// Analyze implements Analyzer. The highest scoring label is returned
// upper-cased.
func (c *HFClient) Analyze(ctx context.Context, text string) (Result, error) {
	t, ok := Prepare(text)
	if !ok {
		return Neutral(), nil
	}

	body, err := sjson.SetBytes(nil, "inputs", t)
	if err != nil {
		return Result{}, fmt.Errorf("emotion: build request: %w", err)
	}
	body, err = sjson.SetBytes(body, "options.wait_for_model", true)
	if err != nil {
		return Result{}, fmt.Errorf("emotion: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+c.model, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("emotion: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInference, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{}, fmt.Errorf("emotion: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(data, "error").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return Result{}, fmt.Errorf("%w: HTTP %d: %s", ErrInference, resp.StatusCode, msg)
	}

	res, err := parseClassification(data)
	if err != nil {
		return Result{}, err
	}
	slog.Debug("HFClient.Analyze: classified", "model", c.model, "label", res.Label, "score", res.Score)
	return res, nil
}

// parseClassification accepts both the nested ([[{label,score}]]) and flat
// ([{label,score}]) response shapes and returns the best label. Scores must
// be numbers in [0, 1].
func parseClassification(data []byte) (Result, error) {
	if !gjson.ValidBytes(data) {
		return Result{}, ErrMalformedResponse
	}
	root := gjson.ParseBytes(data)
	if msg := root.Get("error"); msg.Exists() {
		return Result{}, fmt.Errorf("%w: %s", ErrInference, msg.String())
	}
	labels := root
	if first := root.Get("0"); first.IsArray() {
		labels = first
	}
	if !labels.IsArray() {
		return Result{}, ErrMalformedResponse
	}

	var best Result
	found, bad := false, false
	labels.ForEach(func(_, v gjson.Result) bool {
		label := v.Get("label").String()
		if label == "" {
			return true
		}
		raw := v.Get("score")
		score := raw.Float()
		if raw.Type != gjson.Number || score < 0 || score > 1 {
			bad = true
			return false
		}
		if !found || score > best.Score {
			best = Result{Label: strings.ToUpper(label), Score: score}
			found = true
		}
		return true
	})
	if bad || !found {
		return Result{}, ErrMalformedResponse
	}
	return best, nil
}
