// Package tone validates the style tags a client may attach to a chat request
// and renders them into a prompt snippet for the generation providers.
//
// Tags come from a fixed whitelist. Anything else is dropped, so client input
// never reaches a prompt verbatim.
package tone

import "strings"

// ---- Whitelist ----

// AllTags is the hard-coded set of accepted tone tags.
var AllTags = map[string]bool{
	// Style
	"concise":                true,
	"detailed":               true,
	"formal":                 true,
	"casual":                 true,
	"no_emojis":              true,
	"emojis_ok":              true,
	"bullet_points":          true,
	"one_question_at_a_time": true,
	// Stance
	"warm_supportive": true,
	"direct_coach":    true,
	"gentle_coach":    true,
	// Content
	"practical_steps": true,
	"validate_first":  true,
}

// MaxTags bounds how many tags a single request may carry.
const MaxTags = 8

// mutuallyExclusivePairs defines tags where at most one may be active.
var mutuallyExclusivePairs = [][2]string{
	{"concise", "detailed"},
	{"formal", "casual"},
	{"direct_coach", "gentle_coach"},
}

// ---- Public API ----

// ValidateTags normalizes, whitelists and de-duplicates tags, keeping request
// order. When both members of an exclusive pair are present the earlier one
// wins; no_emojis always removes emojis_ok.
func ValidateTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(strings.ToLower(t))
		if !AllTags[t] || seen[t] {
			continue
		}
		if excluded(t, seen) {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == MaxTags {
			break
		}
	}

	if seen["no_emojis"] && seen["emojis_ok"] {
		filtered := out[:0]
		for _, t := range out {
			if t != "emojis_ok" {
				filtered = append(filtered, t)
			}
		}
		out = filtered
	}
	return out
}

func excluded(tag string, active map[string]bool) bool {
	for _, pair := range mutuallyExclusivePairs {
		if tag == pair[0] && active[pair[1]] {
			return true
		}
		if tag == pair[1] && active[pair[0]] {
			return true
		}
	}
	return false
}

// BuildToneGuide produces a compact instruction snippet for injection into
// system prompts. It returns an empty string when there are no tags. Callers
// should pass the output of ValidateTags.
func BuildToneGuide(tags []string) string {
	if len(tags) == 0 {
		return ""
	}

	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}

	var b strings.Builder
	b.WriteString("\n<TONE POLICY>\nAdapt your reply to the user's preferred style:\n")

	// Style rules.
	if set["concise"] {
		b.WriteString("- Be concise: short sentences, minimal filler.\n")
	}
	if set["detailed"] {
		b.WriteString("- Be detailed: explain a little more, but avoid rambling.\n")
	}
	if set["formal"] {
		b.WriteString("- Use formal, respectful language.\n")
	}
	if set["casual"] {
		b.WriteString("- Use casual, friendly language.\n")
	}
	if set["no_emojis"] {
		b.WriteString("- Do NOT use emojis.\n")
	} else if set["emojis_ok"] {
		b.WriteString("- Emojis are welcome where appropriate.\n")
	}
	if set["bullet_points"] {
		b.WriteString("- Use bullet points when suggesting several steps.\n")
	}
	if set["one_question_at_a_time"] {
		b.WriteString("- Ask only one question at a time.\n")
	}

	// Stance rules.
	switch {
	case set["direct_coach"]:
		b.WriteString("- Be a direct coach: clear, action-oriented suggestions.\n")
	case set["gentle_coach"]:
		b.WriteString("- Be a gentle coach: patient, encouraging guidance.\n")
	default:
		b.WriteString("- Keep a warm, supportive stance.\n")
	}

	// Content rules.
	if set["validate_first"] {
		b.WriteString("- Acknowledge and validate the feeling before suggesting anything.\n")
	}
	if set["practical_steps"] {
		b.WriteString("- Include at least one concrete step the user can take today.\n")
	}

	b.WriteString("- NEVER mirror hostility, sarcasm, insults, or unsafe language.\n")
	b.WriteString("</TONE POLICY>\n")

	return b.String()
}
