package main

import (
	"flag"
	"io"
	"testing"

	"github.com/BTreeMap/NeuroCare/internal/api"
	"github.com/BTreeMap/NeuroCare/internal/app"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("neurocare", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestLoadEnvironmentConfigDefaults(t *testing.T) {
	t.Setenv("API_ADDR", "")
	t.Setenv("DEFAULT_MODE", "")

	config := loadEnvironmentConfig()
	if config.APIAddr != app.DefaultAPIAddr {
		t.Errorf("Expected default API address %q, got %q", app.DefaultAPIAddr, config.APIAddr)
	}
	if config.DefaultMode != "gemini" {
		t.Errorf("Expected default mode gemini, got %q", config.DefaultMode)
	}
}

func TestParseCommandLineFlagsUsesEnvironmentDefaults(t *testing.T) {
	config := app.Config{
		OpenAIKey:      "sk-env",
		APIAddr:        "0.0.0.0:8001",
		AllowedOrigins: []string{"http://a.test", "http://b.test"},
		DefaultMode:    "openai",
	}

	flags, err := parseCommandLineFlags(newFlagSet(), nil, config)
	if err != nil {
		t.Fatalf("parseCommandLineFlags() error = %v", err)
	}
	got := applyFlags(config, flags)

	if got.OpenAIKey != "sk-env" || got.APIAddr != "0.0.0.0:8001" || got.DefaultMode != "openai" {
		t.Errorf("environment defaults lost: %+v", got)
	}
	if len(got.AllowedOrigins) != 2 || got.AllowedOrigins[1] != "http://b.test" {
		t.Errorf("AllowedOrigins = %v", got.AllowedOrigins)
	}
}

func TestParseCommandLineFlagsOverrides(t *testing.T) {
	config := app.Config{APIAddr: "127.0.0.1:8001", DefaultMode: "gemini"}
	args := []string{
		"-api-addr", ":9000",
		"-default-mode", "template",
		"-allowed-origins", "http://localhost:5173",
		"-lexicon", "/etc/neurocare/lexicon.yaml",
		"-gemini-api-key", "gm-flag",
		"-debug",
	}

	flags, err := parseCommandLineFlags(newFlagSet(), args, config)
	if err != nil {
		t.Fatalf("parseCommandLineFlags() error = %v", err)
	}
	got := applyFlags(config, flags)

	if got.APIAddr != ":9000" || got.DefaultMode != "template" || got.LexiconPath != "/etc/neurocare/lexicon.yaml" {
		t.Errorf("flags not applied: %+v", got)
	}
	if got.GeminiKey != "gm-flag" || !got.Debug {
		t.Errorf("flags not applied: %+v", got)
	}
	if len(got.AllowedOrigins) != 1 || got.AllowedOrigins[0] != "http://localhost:5173" {
		t.Errorf("AllowedOrigins = %v", got.AllowedOrigins)
	}
}

func TestParseCommandLineFlagsRejectsUnknownFlag(t *testing.T) {
	if _, err := parseCommandLineFlags(newFlagSet(), []string{"-qr-output", "x"}, app.Config{}); err == nil {
		t.Error("expected error for an unknown flag")
	}
}

func TestBuildAPIOptions(t *testing.T) {
	if opts := buildAPIOptions(app.Config{}); len(opts) != 0 {
		t.Errorf("expected no options for an empty config, got %d", len(opts))
	}

	opts := buildAPIOptions(app.Config{APIAddr: ":9000", AllowedOrigins: []string{"http://a.test"}})
	if len(opts) != 2 {
		t.Fatalf("expected 2 options, got %d", len(opts))
	}
	s := api.NewServer(nil, opts...)
	if s.Addr() != ":9000" {
		t.Errorf("Addr() = %q, want :9000", s.Addr())
	}
}
