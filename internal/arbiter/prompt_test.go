package arbiter

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/BTreeMap/NeuroCare/internal/genai"
)

func history(n int) []Turn {
	turns := make([]Turn, 0, n)
	for i := 0; i < n; i++ {
		sender := SenderUser
		if i%2 == 1 {
			sender = SenderBot
		}
		turns = append(turns, Turn{Sender: sender, Text: fmt.Sprintf("turn-%02d", i)})
	}
	return turns
}

func TestOpenAIPromptHistoryWindow(t *testing.T) {
	p := openAIPrompt("I'm stressed", history(12), "stress", "FEAR", nil)

	if len(p.History) != OpenAIHistoryTurns {
		t.Fatalf("expected %d history messages, got %d", OpenAIHistoryTurns, len(p.History))
	}
	if p.History[0].Content != "turn-04" || p.History[7].Content != "turn-11" {
		t.Errorf("expected the most recent turns, got %q..%q", p.History[0].Content, p.History[7].Content)
	}
	if p.History[0].Role != genai.RoleUser || p.History[1].Role != genai.RoleAssistant {
		t.Errorf("unexpected roles %s, %s", p.History[0].Role, p.History[1].Role)
	}
	if !strings.Contains(p.User, "Detected emotion: FEAR; detected intent: stress") {
		t.Errorf("user turn is missing annotations: %q", p.User)
	}
	if !strings.Contains(p.User, `"I'm stressed"`) {
		t.Errorf("user turn is missing the message: %q", p.User)
	}
	if !strings.Contains(p.System, "NeuroCare") {
		t.Error("system prompt should introduce NeuroCare")
	}
}

func TestGeminiPromptHistoryWindow(t *testing.T) {
	p := geminiPrompt("exams tomorrow", history(10), "exams", "NEUTRAL", nil)

	if p.System != "" || len(p.History) != 0 {
		t.Error("gemini prompt should be a single text prompt")
	}
	if strings.Contains(p.User, "turn-03") {
		t.Error("turns older than the window should be dropped")
	}
	for i := 4; i < 10; i++ {
		if !strings.Contains(p.User, fmt.Sprintf("turn-%02d", i)) {
			t.Errorf("missing turn-%02d", i)
		}
	}
	if !strings.Contains(p.User, "User: turn-04") || !strings.Contains(p.User, "NeuroCare: turn-05") {
		t.Errorf("history lines should be labelled:\n%s", p.User)
	}
	if !strings.Contains(p.User, "Detected intent: exams") || !strings.Contains(p.User, `User says: "exams tomorrow"`) {
		t.Errorf("prompt missing intent or message:\n%s", p.User)
	}
}

func TestPromptsIncludeToneGuide(t *testing.T) {
	oa := newMock(genai.OpenAIProvider, specificReply, nil)
	gm := newMock(genai.GeminiProvider, specificReply, nil)
	a := newArbiter(t, WithOpenAI(oa), WithGemini(gm))

	tags := []string{"concise", "not_a_tag"}
	a.HandleTurn(context.Background(), Request{Message: "I'm so stressed", Mode: "openai", ToneTags: tags})
	a.HandleTurn(context.Background(), Request{Message: "I'm so stressed", Mode: "gemini", ToneTags: tags})

	if !strings.Contains(oa.prompts[0].System, "Be concise") {
		t.Error("openai system prompt is missing the tone guide")
	}
	if !strings.Contains(gm.prompts[0].User, "Be concise") {
		t.Error("gemini prompt is missing the tone guide")
	}
	if strings.Contains(oa.prompts[0].System, "not_a_tag") {
		t.Error("unknown tags must not reach the prompt")
	}
}

func TestShortHistoryKeptWhole(t *testing.T) {
	if got := lastTurns(history(3), OpenAIHistoryTurns); len(got) != 3 {
		t.Errorf("expected all 3 turns, got %d", len(got))
	}
	if got := lastTurns(nil, GeminiHistoryTurns); len(got) != 0 {
		t.Errorf("expected no turns, got %d", len(got))
	}
}
