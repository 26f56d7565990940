package util

import (
	"reflect"
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"true", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"0", true, false},
		{"off", true, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Setenv("NEUROCARE_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("NEUROCARE_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("NEUROCARE_TEST_INT", "")
	if got := ParseIntEnv("NEUROCARE_TEST_INT", 7); got != 7 {
		t.Errorf("expected default 7, got %d", got)
	}
	t.Setenv("NEUROCARE_TEST_INT", " 42 ")
	if got := ParseIntEnv("NEUROCARE_TEST_INT", 7); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	t.Setenv("NEUROCARE_TEST_INT", "forty")
	if got := ParseIntEnv("NEUROCARE_TEST_INT", 7); got != 7 {
		t.Errorf("expected default on invalid input, got %d", got)
	}
}

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 20 * time.Second},
		{"15", 15 * time.Second},
		{"1m30s", 90 * time.Second},
		{"-5", 20 * time.Second},
		{"0s", 20 * time.Second},
		{"soon", 20 * time.Second},
	}
	for _, tt := range tests {
		t.Setenv("NEUROCARE_TEST_DURATION", tt.value)
		if got := ParseDurationEnv("NEUROCARE_TEST_DURATION", 20*time.Second); got != tt.want {
			t.Errorf("ParseDurationEnv(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" http://a.test , ,http://b.test,")
	want := []string{"http://a.test", "http://b.test"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitList() = %v, want %v", got, want)
	}
	if got := SplitList(""); got != nil {
		t.Errorf("SplitList(\"\") = %v, want nil", got)
	}
}
