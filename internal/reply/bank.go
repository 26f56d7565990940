// Package reply produces reply text without calling an external model: the
// template bank, the keyword-driven contextual fallback, and the quality gate
// applied to model output.
package reply

import (
	"github.com/BTreeMap/NeuroCare/internal/intent"
	"github.com/BTreeMap/NeuroCare/internal/util"
)

// Bank maps each category to a set of canned replies plus one crisis script.
// It is immutable after construction.
type Bank struct {
	responses    map[intent.Category][]string
	crisisScript string
	picker       util.Picker
}

// NewBank copies responses. A nil picker uses util.DefaultPicker.
func NewBank(responses map[intent.Category][]string, crisisScript string, picker util.Picker) *Bank {
	cp := make(map[intent.Category][]string, len(responses))
	for c, set := range responses {
		if len(set) > 0 {
			cp[c] = append([]string(nil), set...)
		}
	}
	if picker == nil {
		picker = util.DefaultPicker
	}
	return &Bank{responses: cp, crisisScript: crisisScript, picker: picker}
}

// Choose returns the crisis script when crisis is set. Otherwise it returns a
// random reply registered for category, or for Unknown when category has
// none.
func (b *Bank) Choose(category intent.Category, crisis bool) string {
	if crisis {
		return b.crisisScript
	}
	return util.PickString(b.picker, b.Candidates(category))
}

// Candidates returns the set Choose draws from for a non-crisis turn.
func (b *Bank) Candidates(category intent.Category) []string {
	if set, ok := b.responses[category]; ok {
		return set
	}
	return b.responses[intent.Unknown]
}

// CrisisScript returns the fixed crisis reply.
func (b *Bank) CrisisScript() string { return b.crisisScript }
