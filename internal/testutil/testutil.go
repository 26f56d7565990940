// Package testutil provides common test utilities and helpers for NeuroCare tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/BTreeMap/NeuroCare/internal/arbiter"
	"github.com/BTreeMap/NeuroCare/internal/emotion"
	"github.com/BTreeMap/NeuroCare/internal/lexicon"
	"github.com/BTreeMap/NeuroCare/internal/util"
)

// TB is the subset of testing.TB the helpers use.
type TB interface {
	Helper()
	Errorf(format string, args ...interface{})
	Error(args ...interface{})
	Fatalf(format string, args ...interface{})
	Fatal(args ...interface{})
}

// NewTemplateArbiter returns an arbiter over the built-in lexicon with no
// providers, a neutral emotion analyzer and deterministic reply selection.
func NewTemplateArbiter(t TB, opts ...arbiter.Option) *arbiter.Arbiter {
	t.Helper()
	lx, err := lexicon.Default()
	if err != nil {
		t.Fatalf("failed to load default lexicon: %v", err)
	}
	base := []arbiter.Option{
		arbiter.WithAnalyzer(emotion.NeutralAnalyzer{}),
		arbiter.WithPicker(util.FixedPicker(0)),
	}
	a, err := arbiter.New(lx, append(base, opts...)...)
	if err != nil {
		t.Fatalf("failed to build arbiter: %v", err)
	}
	return a
}

// StubTurns is a turn handler that records requests and returns a fixed
// result.
type StubTurns struct {
	Result       arbiter.Result
	ProviderList []arbiter.ProviderInfo

	mu       sync.Mutex
	requests []arbiter.Request
}

// HandleTurn records req and returns s.Result.
func (s *StubTurns) HandleTurn(_ context.Context, req arbiter.Request) arbiter.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.Result
}

// Providers returns s.ProviderList.
func (s *StubTurns) Providers() []arbiter.ProviderInfo { return s.ProviderList }

// Requests returns a copy of the recorded requests.
func (s *StubTurns) Requests() []arbiter.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]arbiter.Request(nil), s.requests...)
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t TB, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t TB, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t TB, method, url string, body interface{}) *http.Request {
	t.Helper()
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		reqBody = bytes.NewBuffer(MustMarshalJSON(t, body))
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// CreateJSONRequest creates an HTTP request with a raw JSON body.
func CreateJSONRequest(t TB, method, url, jsonBody string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(jsonBody))
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t TB, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t TB, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
