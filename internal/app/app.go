// Package app assembles NeuroCare components from environment configuration.
// Both the server and the developer CLI build their arbiter here.
package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/BTreeMap/NeuroCare/internal/arbiter"
	"github.com/BTreeMap/NeuroCare/internal/emotion"
	"github.com/BTreeMap/NeuroCare/internal/genai"
	"github.com/BTreeMap/NeuroCare/internal/lexicon"
	"github.com/BTreeMap/NeuroCare/internal/store"
	"github.com/BTreeMap/NeuroCare/internal/twiliowhatsapp"
	"github.com/BTreeMap/NeuroCare/internal/util"
	"github.com/joho/godotenv"
)

// DefaultAPIAddr is the listen address when API_ADDR is unset.
const DefaultAPIAddr = "127.0.0.1:8001"

// Config holds environment configuration.
type Config struct {
	OpenAIKey     string
	OpenAIModel   string
	GeminiKey     string
	GeminiModels  []string
	GeminiBaseURL string

	HFToken      string
	EmotionModel string

	APIAddr        string
	AllowedOrigins []string
	LexiconPath    string

	ProviderTimeout   time.Duration
	ProviderRateLimit int
	DefaultMode       string

	TwilioAuthToken         string
	TwilioValidateSignature bool
	TwilioAccountSID        string
	TwilioFromNumber        string
	TwilioPublicURL         string

	Debug bool
}

// LoadDotEnv loads a .env file from the working directory when one exists.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}
}

// ConfigFromEnv reads Config from the process environment.
func ConfigFromEnv() Config {
	cfg := Config{
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   strings.TrimSpace(os.Getenv("OPENAI_MODEL")),
		GeminiKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModels:  util.SplitList(os.Getenv("GEMINI_MODEL")),
		GeminiBaseURL: strings.TrimSpace(os.Getenv("GEMINI_BASE_URL")),

		HFToken:      os.Getenv("HF_API_TOKEN"),
		EmotionModel: strings.TrimSpace(os.Getenv("EMOTION_MODEL")),

		APIAddr:        strings.TrimSpace(os.Getenv("API_ADDR")),
		AllowedOrigins: util.SplitList(os.Getenv("ALLOWED_ORIGINS")),
		LexiconPath:    strings.TrimSpace(os.Getenv("LEXICON_PATH")),

		ProviderTimeout:   util.ParseDurationEnv("PROVIDER_TIMEOUT", arbiter.DefaultProviderTimeout),
		ProviderRateLimit: util.ParseIntEnv("PROVIDER_RATE_LIMIT", genai.DefaultCallsPerMinute),
		DefaultMode:       strings.TrimSpace(os.Getenv("DEFAULT_MODE")),

		TwilioAuthToken:         os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioValidateSignature: util.ParseBoolEnv("TWILIO_VALIDATE_SIGNATURE", true),
		TwilioAccountSID:        os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioFromNumber:        os.Getenv("TWILIO_FROM_NUMBER"),
		TwilioPublicURL:         strings.TrimSpace(os.Getenv("TWILIO_WEBHOOK_URL")),

		Debug: util.ParseBoolEnv("NEUROCARE_DEBUG", false),
	}
	if cfg.APIAddr == "" {
		cfg.APIAddr = DefaultAPIAddr
	}
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = string(arbiter.DefaultMode)
	}

	slog.Debug("environment variables loaded",
		"OPENAI_API_KEY_SET", cfg.OpenAIKey != "",
		"OPENAI_MODEL", cfg.OpenAIModel,
		"GEMINI_API_KEY_SET", cfg.GeminiKey != "",
		"GEMINI_MODEL", cfg.GeminiModels,
		"HF_API_TOKEN_SET", cfg.HFToken != "",
		"API_ADDR", cfg.APIAddr,
		"ALLOWED_ORIGINS", cfg.AllowedOrigins,
		"LEXICON_PATH", cfg.LexiconPath,
		"PROVIDER_TIMEOUT", cfg.ProviderTimeout,
		"PROVIDER_RATE_LIMIT", cfg.ProviderRateLimit,
		"DEFAULT_MODE", cfg.DefaultMode,
		"TWILIO_AUTH_TOKEN_SET", cfg.TwilioAuthToken != "")

	return cfg
}

// BuildProviders configures both generation providers. A provider whose key
// is missing is returned disabled, with the reason logged.
func BuildProviders(cfg Config) (openAI, gemini genai.Provider) {
	oa, err := genai.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel)
	if err != nil {
		slog.Warn("OpenAI provider disabled", "reason", err)
		openAI = genai.Disabled(genai.OpenAIProvider)
	} else {
		slog.Info("OpenAI provider configured", "model", oa.Models())
		openAI = oa
	}

	gm, err := genai.NewGeminiProvider(cfg.GeminiKey, cfg.GeminiBaseURL, cfg.GeminiModels)
	if err != nil {
		slog.Warn("Gemini provider disabled", "reason", err)
		gemini = genai.Disabled(genai.GeminiProvider)
	} else {
		slog.Info("Gemini provider configured", "models", gm.Models())
		gemini = gm
	}
	return openAI, gemini
}

// BuildAnalyzer returns the Hugging Face classifier backed by the lexicon's
// keyword analyzer, or the keyword analyzer alone when no token is set.
func BuildAnalyzer(cfg Config, lx *lexicon.Lexicon) emotion.Analyzer {
	keywords := emotion.NewKeywordAnalyzer(arbiter.EmotionKeywords(lx))
	hf, err := emotion.NewHFClient(emotion.WithToken(cfg.HFToken), emotion.WithModel(cfg.EmotionModel))
	if err != nil {
		slog.Info("Hugging Face emotion model disabled, using keyword analysis", "reason", err)
		return keywords
	}
	slog.Info("Hugging Face emotion model configured", "model", hf.Model())
	return emotion.Chain(hf, keywords)
}

// BuildArbiter loads the lexicon and assembles an arbiter with every
// configured collaborator.
func BuildArbiter(cfg Config) (*arbiter.Arbiter, error) {
	lx, err := lexicon.Load(cfg.LexiconPath)
	if err != nil {
		return nil, err
	}

	mode := arbiter.DefaultMode
	if cfg.DefaultMode != "" {
		m, ok := arbiter.ParseMode(cfg.DefaultMode)
		if !ok {
			return nil, fmt.Errorf("app: invalid DEFAULT_MODE %q", cfg.DefaultMode)
		}
		mode = m
	}

	openAI, gemini := BuildProviders(cfg)
	return arbiter.New(lx,
		arbiter.WithOpenAI(openAI),
		arbiter.WithGemini(gemini),
		arbiter.WithAnalyzer(BuildAnalyzer(cfg, lx)),
		arbiter.WithLimiter(genai.NewLimiter(cfg.ProviderRateLimit, 0)),
		arbiter.WithProviderTimeout(cfg.ProviderTimeout),
		arbiter.WithDefaultMode(mode),
	)
}

// BuildTwilioHandler returns the messaging webhook, or false when Twilio is
// not configured. Redelivered messages are dropped. Replies go over the REST
// API when an account SID and a sending number are also set.
func BuildTwilioHandler(cfg Config, turns twiliowhatsapp.TurnRunner) (http.Handler, bool) {
	if strings.TrimSpace(cfg.TwilioAuthToken) == "" {
		return nil, false
	}
	opts := []twiliowhatsapp.HandlerOption{
		twiliowhatsapp.WithMode(cfg.DefaultMode),
		twiliowhatsapp.WithDedup(store.NewInMemoryDedup(store.DefaultDedupTTL, store.DefaultDedupMaxRecords)),
	}
	if cfg.TwilioValidateSignature {
		opts = append(opts, twiliowhatsapp.WithSignatureValidation(cfg.TwilioAuthToken))
	} else {
		slog.Warn("Twilio signature validation disabled")
	}
	if cfg.TwilioPublicURL != "" {
		opts = append(opts, twiliowhatsapp.WithPublicURL(cfg.TwilioPublicURL))
	}
	if cfg.TwilioAccountSID != "" && cfg.TwilioFromNumber != "" {
		client, err := twiliowhatsapp.NewClient(
			twiliowhatsapp.WithAccountSID(cfg.TwilioAccountSID),
			twiliowhatsapp.WithAuthToken(cfg.TwilioAuthToken),
			twiliowhatsapp.WithFromWhats(cfg.TwilioFromNumber),
		)
		if err != nil {
			slog.Warn("Twilio REST replies disabled", "reason", err)
		} else {
			opts = append(opts, twiliowhatsapp.WithSender(client))
		}
	}
	return twiliowhatsapp.NewHandler(turns, opts...), true
}
