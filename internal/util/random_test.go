package util

import "testing"

func TestPickString(t *testing.T) {
	options := []string{"a", "b", "c"}

	tests := []struct {
		name   string
		picker Picker
		opts   []string
		want   string
	}{
		{"empty options", DefaultPicker, nil, ""},
		{"fixed first", FixedPicker(0), options, "a"},
		{"fixed last", FixedPicker(2), options, "c"},
		{"fixed clamps high", FixedPicker(10), options, "c"},
		{"fixed clamps negative", FixedPicker(-3), options, "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PickString(tt.picker, tt.opts); got != tt.want {
				t.Errorf("PickString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPickStringMembership(t *testing.T) {
	options := []string{"x", "y", "z"}
	member := map[string]bool{"x": true, "y": true, "z": true}

	for _, p := range []Picker{nil, DefaultPicker, NewSeededPicker(7)} {
		for i := 0; i < 200; i++ {
			got := PickString(p, options)
			if !member[got] {
				t.Fatalf("PickString() = %q, not one of %v", got, options)
			}
		}
	}
}

func TestSeededPickerIsDeterministic(t *testing.T) {
	a := NewSeededPicker(42)
	b := NewSeededPicker(42)
	for i := 0; i < 50; i++ {
		if x, y := a.IntN(1000), b.IntN(1000); x != y {
			t.Fatalf("draw %d differs: %d vs %d", i, x, y)
		}
	}
}

func TestDefaultPickerCoversRange(t *testing.T) {
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		n := DefaultPicker.IntN(3)
		if n < 0 || n >= 3 {
			t.Fatalf("IntN(3) = %d, out of range", n)
		}
		seen[n] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected all 3 indexes over 1000 draws, saw %v", seen)
	}
}
