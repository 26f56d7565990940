// Package util provides small helpers shared across NeuroCare components.
package util

import (
	"math/rand/v2"
	"sync"
)

// Picker selects an index in [0, n). Implementations must be safe for
// concurrent use.
type Picker interface {
	IntN(n int) int
}

type globalPicker struct{}

func (globalPicker) IntN(n int) int { return rand.IntN(n) }

// DefaultPicker draws from the process-wide math/rand/v2 source.
var DefaultPicker Picker = globalPicker{}

// seededPicker wraps a seeded *rand.Rand, which is not goroutine safe.
type seededPicker struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeededPicker returns a deterministic Picker for tests and reproducible
// CLI runs.
func NewSeededPicker(seed uint64) Picker {
	return &seededPicker{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *seededPicker) IntN(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.r.IntN(n)
}

// FixedPicker always returns the same index, clamped to the range.
type FixedPicker int

// IntN implements Picker.
func (f FixedPicker) IntN(n int) int {
	if int(f) < 0 {
		return 0
	}
	if int(f) >= n {
		return n - 1
	}
	return int(f)
}

// PickString returns a uniformly chosen element of options, or "" when
// options is empty. A nil picker uses DefaultPicker.
func PickString(p Picker, options []string) string {
	if len(options) == 0 {
		return ""
	}
	if p == nil {
		p = DefaultPicker
	}
	return options[p.IntN(len(options))]
}
