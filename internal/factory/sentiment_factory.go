package factory

import (
	"fmt"

	"github.com/mikey/email-priority/internal/adapters/bedrock"
	"github.com/mikey/email-priority/internal/adapters/gemini"
	"github.com/mikey/email-priority/internal/adapters/groq"
	"github.com/mikey/email-priority/internal/config"
	"github.com/mikey/email-priority/internal/core"
	"github.com/mikey/email-priority/internal/utils"
	"go.uber.org/zap"
)

// SentimentFactory creates sentiment analyzer clients
type SentimentFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewSentimentFactory creates a new sentiment factory
func NewSentimentFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *SentimentFactory {
	return &SentimentFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateAnalyzer creates a sentiment analyzer based on the configuration.
// Returns nil for the "none" provider, which puts scoring on the
// rule-based fallback path.
func (f *SentimentFactory) CreateAnalyzer() (core.SentimentAnalyzer, error) {
	sentimentConfig := f.cfg.GetSentiment()

	switch sentimentConfig.Provider {
	case "bedrock":
		factory := bedrock.NewFactory(f.cfg, f.logger, f.textProcessor)
		return factory.CreateClient()
	case "gemini":
		factory := gemini.NewFactory(f.cfg, f.logger, f.textProcessor)
		return factory.CreateClient()
	case "groq":
		factory := groq.NewFactory(f.cfg, f.logger, f.textProcessor)
		return factory.CreateClient()
	case "none", "":
		f.logger.Info("No sentiment provider configured, using rule-based tone analysis")
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported sentiment provider: %s", sentimentConfig.Provider)
	}
}
