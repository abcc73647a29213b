package groq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mikey/email-priority/internal/core"
	"github.com/mikey/email-priority/internal/utils"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// GroqClient is an implementation of the SentimentAnalyzer interface using
// the Groq OpenAI-compatible chat API
type GroqClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// NewGroqClient creates a new Groq client
func NewGroqClient(
	apiKey string,
	baseURL string,
	modelName string,
	maxTokens int,
	temperature float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *GroqClient {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	return &GroqClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat:  sentimentPrompt,
	}
}

const sentimentPrompt = `You analyze the emotional tone of emails. Analyze the following email text.
Respond with a JSON object containing:
- urgency: number between 0 and 100 (how urgent the sender sounds)
- stress: number between 0 and 100 (how stressed the sender sounds)
- anger: number between 0 and 100 (how angry or frustrated the sender sounds)
- excitement: number between 0 and 100 (how excited or positive the sender sounds)

Email text:
%s

Respond only with the JSON object and nothing else.`

// Name identifies the backing provider
func (c *GroqClient) Name() string {
	return "groq/" + c.modelName
}

// Analyze estimates the emotional tone of the given text
func (c *GroqClient) Analyze(ctx context.Context, text string) (*core.SentimentScores, error) {
	processed := c.textProcessor.ProcessText(text, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, processed)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an email tone analyzer. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with Groq: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from Groq")
	}

	scores, err := parseSentimentJSON(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Groq sentiment analysis complete",
		zap.String("model", c.modelName),
		zap.Int("urgency", scores.Urgency),
		zap.Int("stress", scores.Stress))

	return scores, nil
}

// parseSentimentJSON parses the collaborator's JSON reply, salvaging the
// first {...} block when the model wrapped it in prose
func parseSentimentJSON(responseText string) (*core.SentimentScores, error) {
	var scores core.SentimentScores
	if err := json.Unmarshal([]byte(responseText), &scores); err == nil {
		return clampScores(&scores), nil
	}

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
		return nil, fmt.Errorf("failed to extract JSON from sentiment response")
	}
	if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd]), &scores); err != nil {
		return nil, fmt.Errorf("failed to parse sentiment response as JSON: %w", err)
	}
	return clampScores(&scores), nil
}

func clampScores(s *core.SentimentScores) *core.SentimentScores {
	clamp := func(n int) int {
		if n < 0 {
			return 0
		}
		if n > 100 {
			return 100
		}
		return n
	}
	s.Urgency = clamp(s.Urgency)
	s.Stress = clamp(s.Stress)
	s.Anger = clamp(s.Anger)
	s.Excitement = clamp(s.Excitement)
	return s
}
