package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestChatRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ChatRequest
		wantErr error
	}{
		{"empty message is valid", ChatRequest{}, nil},
		{"plain message", ChatRequest{Message: "hello"}, nil},
		{"message at limit", ChatRequest{Message: strings.Repeat("é", MaxMessageLength)}, nil},
		{"message too long", ChatRequest{Message: strings.Repeat("a", MaxMessageLength+1)}, ErrMessageTooLong},
		{"history too long", ChatRequest{History: make([]HistoryMessage, MaxHistoryLength+1)}, ErrHistoryTooLong},
		{"too many tags", ChatRequest{Tone: make([]string, MaxToneTags+1)}, ErrTooManyTags},
		{"bad sender", ChatRequest{History: []HistoryMessage{{Sender: "assistant", Text: "hi"}}}, ErrInvalidSender},
		{"empty sender", ChatRequest{History: []HistoryMessage{{Text: "hi"}}}, ErrInvalidSender},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestChatRequestValidateNormalizesSenders(t *testing.T) {
	req := ChatRequest{History: []HistoryMessage{
		{Sender: " User ", Text: "I'm stressed"},
		{Sender: "BOT", Text: "Tell me more", Intent: "stress"},
	}}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if req.History[0].Sender != SenderUser || req.History[1].Sender != SenderBot {
		t.Errorf("senders not normalized: %+v", req.History)
	}
}

func TestChatRequestDecodesWireFormat(t *testing.T) {
	body := `{"message":"hi","history":[{"sender":"bot","text":"hey","intent":"greeting"}],"user_id":"u1","mode":"openai","tone":["concise"]}`
	var req ChatRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if req.Message != "hi" || req.UserID != "u1" || req.Mode != "openai" {
		t.Errorf("unexpected request: %+v", req)
	}
	if len(req.History) != 1 || req.History[0].Intent != "greeting" {
		t.Errorf("unexpected history: %+v", req.History)
	}
	if len(req.Tone) != 1 || req.Tone[0] != "concise" {
		t.Errorf("unexpected tone: %v", req.Tone)
	}
}

func TestChatResponseFieldNames(t *testing.T) {
	data, err := json.Marshal(ChatResponse{Reply: "r", EmotionLabel: "JOY", EmotionScore: 0.5, Intent: "exams", LLMMode: "template"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"reply", "emotion_label", "emotion_score", "intent", "is_crisis", "llm_mode"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing field %q in %s", key, data)
		}
	}
}

func TestAPIResponseBuilder(t *testing.T) {
	resp := NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage("done").
		WithResult(map[string]string{"k": "v"}).
		Build()

	if resp.Status != string(APIStatusOK) || resp.Message != "done" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Result == nil {
		t.Error("expected result to be set")
	}
}

func TestResponseHelpers(t *testing.T) {
	if r := Success(nil); r.Status != "ok" || r.Message != "" {
		t.Errorf("Success() = %+v", r)
	}
	if r := SuccessWithMessage("hello", 1); r.Status != "ok" || r.Message != "hello" || r.Result != 1 {
		t.Errorf("SuccessWithMessage() = %+v", r)
	}
	if r := Error("bad"); r.Status != "error" || r.Message != "bad" || r.Result != nil {
		t.Errorf("Error() = %+v", r)
	}

	data, err := json.Marshal(Error("bad"))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "result") {
		t.Errorf("error envelope should omit result: %s", data)
	}
}
