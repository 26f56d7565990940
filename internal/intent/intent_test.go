package intent_test

import (
	"strings"
	"testing"

	"github.com/BTreeMap/NeuroCare/internal/intent"
	"github.com/BTreeMap/NeuroCare/internal/lexicon"
)

func defaultClassifier(t *testing.T) *intent.Classifier {
	t.Helper()
	lx, err := lexicon.Default()
	if err != nil {
		t.Fatalf("failed to load default lexicon: %v", err)
	}
	return intent.NewClassifier(lx.IntentRules())
}

func TestDetectDefaultCascade(t *testing.T) {
	c := defaultClassifier(t)

	tests := []struct {
		name string
		in   string
		want intent.Category
	}{
		{"affirmation", "yes", intent.Affirmation},
		{"negation", "nope", intent.Negation},
		{"uncertainty slang", "idk", intent.Uncertainty},
		{"uncertainty phrase", "i don't know", intent.Uncertainty},
		{"short goodbye", "bye", intent.Goodbye},
		{"good night", "good night", intent.Goodbye},
		{"gratitude before goodbye", "thanks, bye", intent.Gratitude},
		{"greeting", "hello there", intent.Greeting},
		{"greeting with question", "hey, how are you?", intent.Greeting},
		{"smalltalk", "so what's up with you today", intent.Smalltalk},
		{"exams over tiredness", "I have exams tomorrow and I'm so exhausted", intent.Exams},
		{"exams over stress", "I'm overwhelmed about my exam", intent.Exams},
		{"stress over anxiety", "I'm stressed and anxious", intent.Stress},
		{"anxiety over sadness", "I feel anxious and sad", intent.Anxiety},
		{"sadness over tiredness", "I'm sad and tired", intent.Sadness},
		{"tiredness over loneliness", "I'm exhausted and I always get ignored", intent.Tiredness},
		{"lonely is sadness", "I feel lonely", intent.Sadness},
		{"loneliness over self esteem", "I get ignored because I'm useless", intent.Loneliness},
		{"self esteem over work", "I'm a failure at my job", intent.SelfEsteem},
		{"work over relationship", "my boyfriend hates my job", intent.WorkStudy},
		{"relationship over motivation", "my parents say I have no motivation", intent.Relationship},
		{"motivation over coping", "I feel stuck, what should I do", intent.Motivation},
		{"coping over crisis", "help me, I want to end my life", intent.CopingRequest},
		{"crisis", "I want to kill myself", intent.Crisis},
		{"crisis over long gratitude", "I don't want to live, thanks a lot", intent.Crisis},
		{"long gratitude", "thank you so much for everything", intent.Gratitude},
		{"long goodbye", "I have to go now, talk soon", intent.Goodbye},
		{"no substring greeting", "I think this is nothing", intent.Unknown},
		{"no substring relationship", "I need some excitement", intent.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Detect(tt.in); got != tt.want {
				t.Errorf("Detect(%q) = %s, want %s (%+v)", tt.in, got, tt.want, c.Explain(tt.in))
			}
		})
	}
}

func TestExamKeywordsMatchWholeWords(t *testing.T) {
	c := defaultClassifier(t)

	tests := []struct {
		name string
		in   string
		want intent.Category
	}{
		{"test inside latest", "I'm anxious about the latest news", intent.Anxiety},
		{"marks inside remarks", "I feel so sad, people keep making remarks about me", intent.Sadness},
		{"test inside protest", "I'm stressed about the protest", intent.Stress},
		{"result inside resulted", "the argument resulted in me feeling exhausted", intent.Tiredness},
		{"plural exam", "my exams start monday and I'm anxious", intent.Exams},
		{"exam with punctuation", "I'm stressed about the test.", intent.Exams},
		{"marks as a word", "my marks were bad and I'm sad", intent.Exams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Detect(tt.in); got != tt.want {
				t.Errorf("Detect(%q) = %s, want %s (%+v)", tt.in, got, tt.want, c.Explain(tt.in))
			}
		})
	}
}

func TestDetectIsTotal(t *testing.T) {
	c := defaultClassifier(t)
	inputs := []string{
		"",
		"   ",
		"asdf qwerty zxcv",
		"🙂🙂🙂",
		"!!!???",
		strings.Repeat("blah ", 500),
		"日本語のテキスト",
	}
	for _, in := range inputs {
		if got := c.Detect(in); !got.Valid() {
			t.Errorf("Detect(%q) returned %q outside the closed set", in, got)
		}
	}
	if got := c.Detect(""); got != intent.Unknown {
		t.Errorf("Detect(\"\") = %s, want unknown", got)
	}
}

func TestDetectIsDeterministic(t *testing.T) {
	c := defaultClassifier(t)
	in := "I'm stressed about my deadline and my friends"
	first := c.Detect(in)
	for i := 0; i < 20; i++ {
		if got := c.Detect(in); got != first {
			t.Fatalf("Detect changed between calls: %s then %s", first, got)
		}
	}
}

func TestDetectIgnoresCase(t *testing.T) {
	c := defaultClassifier(t)
	if got := c.Detect("I AM SO STRESSED"); got != intent.Stress {
		t.Errorf("Detect(upper case) = %s, want stress", got)
	}
}

func TestShortFormSkippedForLongInput(t *testing.T) {
	c := defaultClassifier(t)
	// "sure" is an affirmation keyword, but this is not a short utterance.
	if got := c.Detect("I'm sure nobody would notice anything today"); got == intent.Affirmation {
		t.Errorf("short-form rule fired on a long utterance")
	}
}
