package groq

import (
	"fmt"

	"github.com/mikey/email-priority/internal/config"
	"github.com/mikey/email-priority/internal/utils"
	"go.uber.org/zap"
)

// Factory creates Groq sentiment clients
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new Groq factory
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClient creates a new Groq sentiment client
func (f *Factory) CreateClient() (*GroqClient, error) {
	groqCfg := f.cfg.GetGroq()
	if groqCfg.APIKey == "" {
		return nil, fmt.Errorf("groq API key is not configured")
	}

	return NewGroqClient(
		groqCfg.APIKey,
		groqCfg.BaseURL,
		groqCfg.ModelName,
		groqCfg.MaxTokens,
		groqCfg.Temperature,
		groqCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	), nil
}
