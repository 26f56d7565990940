package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/BTreeMap/NeuroCare/internal/api"
	"github.com/BTreeMap/NeuroCare/internal/app"
	"github.com/BTreeMap/NeuroCare/internal/util"
)

func main() {
	// Initialize structured logger
	initializeLogger(util.ParseBoolEnv("NEUROCARE_DEBUG", false))

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags, err := parseCommandLineFlags(flag.CommandLine, os.Args[1:], config)
	if err != nil {
		slog.Error("Failed to parse flags", "error", err)
		os.Exit(2)
	}
	if *flags.debug {
		initializeLogger(true)
	}
	config = applyFlags(config, flags)

	// Build the reply pipeline; a bad lexicon is fatal before serving
	arb, err := app.BuildArbiter(config)
	if err != nil {
		slog.Error("Failed to build arbiter", "error", err)
		os.Exit(1)
	}

	apiOpts := buildAPIOptions(config)
	if h, ok := app.BuildTwilioHandler(config, arb); ok {
		apiOpts = append(apiOpts, api.WithTwilioHandler(h))
		slog.Info("Twilio webhook enabled", "path", "/twilio/webhook")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping NeuroCare with configured modules")
	slog.Debug("Final configuration", "api_addr", config.APIAddr, "default_mode", config.DefaultMode, "lexicon_path", config.LexiconPath, "providers", arb.Providers())
	if err := api.Run(ctx, arb, apiOpts...); err != nil {
		slog.Error("NeuroCare failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("NeuroCare exited successfully")
}

// Flags holds command line flag values
type Flags struct {
	openaiKey      *string
	geminiKey      *string
	apiAddr        *string
	allowedOrigins *string
	lexiconPath    *string
	defaultMode    *string
	debug          *bool
}

// initializeLogger sets up structured logging, at debug level when requested
func initializeLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() app.Config {
	app.LoadDotEnv()
	return app.ConfigFromEnv()
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(fs *flag.FlagSet, args []string, config app.Config) (Flags, error) {
	flags := Flags{
		openaiKey:      fs.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		geminiKey:      fs.String("gemini-api-key", config.GeminiKey, "Gemini API key (overrides $GEMINI_API_KEY)"),
		apiAddr:        fs.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		allowedOrigins: fs.String("allowed-origins", strings.Join(config.AllowedOrigins, ","), "comma separated CORS origins, empty allows all (overrides $ALLOWED_ORIGINS)"),
		lexiconPath:    fs.String("lexicon", config.LexiconPath, "path to a lexicon YAML file (overrides $LEXICON_PATH)"),
		defaultMode:    fs.String("default-mode", config.DefaultMode, "reply mode when a request names none: gemini, openai or template (overrides $DEFAULT_MODE)"),
		debug:          fs.Bool("debug", config.Debug, "enable debug logging (overrides $NEUROCARE_DEBUG)"),
	}

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	slog.Debug("flags parsed",
		"openaiKeySet", *flags.openaiKey != "",
		"geminiKeySet", *flags.geminiKey != "",
		"apiAddr", *flags.apiAddr,
		"allowedOrigins", *flags.allowedOrigins,
		"lexiconPath", *flags.lexiconPath,
		"defaultMode", *flags.defaultMode,
		"debug", *flags.debug)

	return flags, nil
}

// applyFlags overlays flag values onto the environment configuration
func applyFlags(config app.Config, flags Flags) app.Config {
	config.OpenAIKey = *flags.openaiKey
	config.GeminiKey = *flags.geminiKey
	config.APIAddr = *flags.apiAddr
	config.AllowedOrigins = util.SplitList(*flags.allowedOrigins)
	config.LexiconPath = *flags.lexiconPath
	config.DefaultMode = *flags.defaultMode
	config.Debug = *flags.debug
	return config
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(config app.Config) []api.Option {
	var apiOpts []api.Option
	if config.APIAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(config.APIAddr))
	}
	if len(config.AllowedOrigins) > 0 {
		apiOpts = append(apiOpts, api.WithAllowedOrigins(config.AllowedOrigins))
	}
	return apiOpts
}
