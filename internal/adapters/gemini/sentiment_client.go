package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/email-priority/internal/core"
	"github.com/mikey/email-priority/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiClient is an implementation of the SentimentAnalyzer interface using
// Google Gemini
type GeminiClient struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &GeminiClient{
		client:        client,
		model:         model,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat: `You analyze the emotional tone of emails. Analyze the following email text.
Respond with a JSON object containing:
- urgency: number between 0 and 100 (how urgent the sender sounds)
- stress: number between 0 and 100 (how stressed the sender sounds)
- anger: number between 0 and 100 (how angry or frustrated the sender sounds)
- excitement: number between 0 and 100 (how excited or positive the sender sounds)

Email text:
%s

Respond only with the JSON object and nothing else.`,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Name identifies the backing provider
func (c *GeminiClient) Name() string {
	return "gemini/" + c.modelName
}

// Analyze estimates the emotional tone of the given text
func (c *GeminiClient) Analyze(ctx context.Context, text string) (*core.SentimentScores, error) {
	processed := c.textProcessor.ProcessText(text, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, processed)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])

	var scores core.SentimentScores
	if err := json.Unmarshal([]byte(responseText), &scores); err != nil {
		// The model sometimes wraps the JSON in prose or code fences
		jsonStart := -1
		jsonEnd := -1
		for i := 0; i < len(responseText); i++ {
			if responseText[i] == '{' {
				jsonStart = i
				break
			}
		}
		for i := len(responseText) - 1; i >= 0; i-- {
			if responseText[i] == '}' {
				jsonEnd = i + 1
				break
			}
		}
		if jsonStart < 0 || jsonEnd <= jsonStart {
			return nil, fmt.Errorf("failed to extract JSON from Gemini response")
		}
		if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd]), &scores); err != nil {
			return nil, fmt.Errorf("failed to parse Gemini response as JSON: %w", err)
		}
	}

	clamp := func(n int) int {
		if n < 0 {
			return 0
		}
		if n > 100 {
			return 100
		}
		return n
	}
	scores.Urgency = clamp(scores.Urgency)
	scores.Stress = clamp(scores.Stress)
	scores.Anger = clamp(scores.Anger)
	scores.Excitement = clamp(scores.Excitement)

	return &scores, nil
}
