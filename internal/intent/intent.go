// Package intent assigns exactly one conversational category to an utterance.
//
// Classification is an ordered cascade of keyword rules: the first rule whose
// keywords match wins. The cascade order is a priority policy, since keyword
// sets overlap between categories.
package intent

import "strings"

// Category is the closed set of conversational intents.
type Category string

const (
	Greeting      Category = "greeting"
	Smalltalk     Category = "smalltalk"
	Stress        Category = "stress"
	Anxiety       Category = "anxiety"
	Sadness       Category = "sadness"
	Tiredness     Category = "tiredness"
	Loneliness    Category = "loneliness"
	SelfEsteem    Category = "self_esteem"
	WorkStudy     Category = "work_study"
	Relationship  Category = "relationship"
	Exams         Category = "exams"
	Motivation    Category = "motivation"
	Gratitude     Category = "gratitude"
	Goodbye       Category = "goodbye"
	Affirmation   Category = "affirmation"
	Negation      Category = "negation"
	Uncertainty   Category = "uncertainty"
	CopingRequest Category = "coping_request"
	Crisis        Category = "crisis"
	Unknown       Category = "unknown"
)

// All lists every category in declaration order.
var All = []Category{
	Greeting, Smalltalk, Stress, Anxiety, Sadness, Tiredness, Loneliness,
	SelfEsteem, WorkStudy, Relationship, Exams, Motivation, Gratitude, Goodbye,
	Affirmation, Negation, Uncertainty, CopingRequest, Crisis, Unknown,
}

var known = func() map[Category]bool {
	m := make(map[Category]bool, len(All))
	for _, c := range All {
		m[c] = true
	}
	return m
}()

// String returns the wire name of the category.
func (c Category) String() string { return string(c) }

// Valid reports whether c is a member of the closed set.
func (c Category) Valid() bool { return known[c] }

// Parse maps a wire name to a Category. Matching is case-insensitive and
// ignores surrounding whitespace. The boolean is false for names outside the
// closed set, in which case Unknown is returned.
func Parse(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !known[c] {
		return Unknown, false
	}
	return c, true
}
