package di

import (
	"flag"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/email-priority/internal/adapters/store"
	"github.com/mikey/email-priority/internal/config"
	"github.com/mikey/email-priority/internal/core"
	"github.com/mikey/email-priority/internal/factory"
	"github.com/mikey/email-priority/internal/logging"
	"github.com/mikey/email-priority/internal/utils"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Sentiment provider flags
	Provider    string
	MaxTokens   int
	Temperature float64
	MaxBodySize int

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// Groq flags
	GroqAPIKey    string
	GroqModelName string

	// Scoring flags
	SenderHistory string
	Contacts      string

	// Input flags
	InputFile  string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Sentiment provider flags
	flag.StringVar(&flags.Provider, "provider", "none", "Sentiment provider (groq, gemini, bedrock, none)")
	flag.IntVar(&flags.MaxTokens, "max-tokens", 400, "Maximum tokens for sentiment response")
	flag.Float64Var(&flags.Temperature, "temperature", 0.1, "Temperature for sentiment generation")
	flag.IntVar(&flags.MaxBodySize, "max-body-size", 4096, "Maximum email body size to send to the provider")

	// Bedrock flags
	flag.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	flag.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	flag.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-pro", "Gemini model name")

	// Groq flags
	flag.StringVar(&flags.GroqAPIKey, "groq-api-key", "", "API key for Groq")
	flag.StringVar(&flags.GroqModelName, "groq-model", "llama-3.3-70b-versatile", "Groq model name")

	// Scoring flags
	flag.StringVar(&flags.SenderHistory, "sender-history", "", "Sender history as received:replied, e.g. 20:15")
	flag.StringVar(&flags.Contacts, "contacts", "", "Comma-separated contact entries, e.g. boss@corp.com=vip")

	// Input flags
	flag.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewSentimentFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register sentiment analyzer
	if err := container.Provide(func(f *factory.SentimentFactory) (core.SentimentAnalyzer, error) {
		return f.CreateAnalyzer()
	}); err != nil {
		return nil, err
	}

	// Register a one-shot in-memory store, populated from the -contacts
	// and -sender-history flags in main
	if err := container.Provide(func(logger *zap.Logger) *store.MemoryStore {
		return store.NewMemoryStore(logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(st *store.MemoryStore) core.ContactRegistry { return st }); err != nil {
		return nil, err
	}
	if err := container.Provide(func(st *store.MemoryStore) core.SenderHistoryStore { return st }); err != nil {
		return nil, err
	}

	// Register priority service
	if err := container.Provide(func(
		sentiment core.SentimentAnalyzer,
		registry core.ContactRegistry,
		history core.SenderHistoryStore,
		cfg *config.Config,
		logger *zap.Logger,
	) (*core.PriorityService, error) {
		collaboratorTimeout, err := cfg.GetDuration("sentiment.timeout")
		if err != nil {
			return nil, err
		}
		return core.NewPriorityService(
			registry,
			history,
			sentiment,
			nil, // No calendar checker for CLI
			nil, // No cache for CLI
			logger,
			false,
			time.Duration(0),
			collaboratorTimeout,
			1, // Single email at a time
			false,
		), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set sentiment provider
	v.Set("sentiment.provider", flags.Provider)

	// Set provider-specific configuration
	switch flags.Provider {
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		v.Set("bedrock.temperature", flags.Temperature)
		v.Set("bedrock.max_body_size", flags.MaxBodySize)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
		v.Set("gemini.temperature", flags.Temperature)
		v.Set("gemini.max_body_size", flags.MaxBodySize)
	case "groq":
		v.Set("groq.api_key", flags.GroqAPIKey)
		v.Set("groq.model_name", flags.GroqModelName)
		v.Set("groq.max_tokens", flags.MaxTokens)
		v.Set("groq.temperature", flags.Temperature)
		v.Set("groq.max_body_size", flags.MaxBodySize)
	}

	return config.NewFromViper(v)
}
