package arbiter

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/NeuroCare/internal/genai"
	"github.com/BTreeMap/NeuroCare/internal/intent"
	"github.com/BTreeMap/NeuroCare/internal/tone"
)

// History windows sent to each provider.
const (
	OpenAIHistoryTurns = 8
	GeminiHistoryTurns = 6
)

const openAISystemPrompt = `You are NeuroCare, a warm and empathetic mental health support companion. You listen, validate and gently guide. You are not a medical professional, but you care about the person you are talking to.

How to reply:
1. Open by naming what the user actually shared, using their own words or feelings.
2. Validate the feeling and make clear it is understandable.
3. Offer a gentle reframe, such as a strength they may be overlooking.
4. Suggest one to three concrete steps that fit their situation, not generic advice.
5. Close with one caring follow-up question.
6. Write four to seven sentences in a natural, conversational voice.

Never repeat earlier replies and never answer generically.`

const geminiRules = `You are NeuroCare, a supportive mental health companion. Reply to the user naturally.

Rules you must follow:
1. Do not deflect with phrases like "tell me more", "share more" or "what's on your mind".
2. Give a specific, actionable reply based on what the user said.
3. Reuse the user's own words (for example "exhausted" or "exams tomorrow").
4. Suggest two or three concrete things they can do right now.
5. End with one specific follow-up question about their situation.
6. Keep it to three to five warm but direct sentences.

Detected intent: %s
Detected emotion: %s

Example of a reply to avoid:
"That sounds important to you. I'd love to understand better, can you share a bit more?"

Example of a good reply:
"Being exhausted the night before exams is hard, and your body is already stretched thin. Try 25 minutes of focused review followed by a 5 minute break, keep water nearby, and pick just one topic for tonight. Which subject feels the heaviest?"`

// openAIPrompt builds a role-tagged prompt with the last OpenAIHistoryTurns
// turns and an annotated user message.
func openAIPrompt(message string, history []Turn, category intent.Category, emotionLabel string, tags []string) genai.Prompt {
	window := lastTurns(history, OpenAIHistoryTurns)
	msgs := make([]genai.Message, 0, len(window))
	for _, t := range window {
		role := genai.RoleAssistant
		if t.Sender == SenderUser {
			role = genai.RoleUser
		}
		msgs = append(msgs, genai.Message{Role: role, Content: t.Text})
	}

	user := fmt.Sprintf("(Detected emotion: %s; detected intent: %s)\nUSER: %q\n\n"+
		"Mention the user's exact situation in your first sentence, validate the feeling, "+
		"give one to three realistic coping steps and ask one gentle follow-up question. "+
		"End with a one-sentence reminder that you are not a professional.",
		emotionLabel, category, message)

	return genai.Prompt{
		System:  openAISystemPrompt + tone.BuildToneGuide(tags),
		History: msgs,
		User:    user,
	}
}

// geminiPrompt folds the rules, the last GeminiHistoryTurns turns and the
// user message into one text prompt.
func geminiPrompt(message string, history []Turn, category intent.Category, emotionLabel string, tags []string) genai.Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, geminiRules, category, emotionLabel)
	b.WriteString(tone.BuildToneGuide(tags))
	b.WriteString("\n\nConversation history:\n")
	for _, t := range lastTurns(history, GeminiHistoryTurns) {
		speaker := "NeuroCare"
		if t.Sender == SenderUser {
			speaker = "User"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, t.Text)
	}
	fmt.Fprintf(&b, "\nUser says: %q\n\nGive a helpful, specific response (not generic):", message)
	return genai.Prompt{User: b.String()}
}

func lastTurns(history []Turn, n int) []Turn {
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}
