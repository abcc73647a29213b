package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/email-priority/internal/core"
	"github.com/mikey/email-priority/internal/utils"
	"go.uber.org/zap"
)

// BedrockClient is an implementation of the SentimentAnalyzer interface
// using Amazon Bedrock
type BedrockClient struct {
	client        *bedrockruntime.Client
	modelID       string
	maxTokens     int
	temperature   float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// NewBedrockClient creates a new Bedrock client
func NewBedrockClient(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockClient {
	return &BedrockClient{
		client:        client,
		modelID:       modelID,
		maxTokens:     maxTokens,
		temperature:   temperature,
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
	}
}

// Name identifies the backing provider
func (c *BedrockClient) Name() string {
	return "bedrock/" + c.modelID
}

func (c *BedrockClient) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.")
}

// Analyze estimates the emotional tone of the given text
func (c *BedrockClient) Analyze(ctx context.Context, text string) (*core.SentimentScores, error) {
	processed := c.textProcessor.ProcessText(text, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, processed)

	var payload []byte
	var err error
	if c.isAnthropicModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", prompt),
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Bedrock request: %w", err)
	}

	output, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	responseText, err := extractCompletion(output.Body, c.isAnthropicModel())
	if err != nil {
		return nil, err
	}

	var scores core.SentimentScores
	if err := json.Unmarshal([]byte(responseText), &scores); err != nil {
		jsonStart := strings.IndexByte(responseText, '{')
		jsonEnd := strings.LastIndexByte(responseText, '}')
		if jsonStart < 0 || jsonEnd < jsonStart {
			return nil, fmt.Errorf("failed to extract JSON from Bedrock response")
		}
		if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd+1]), &scores); err != nil {
			return nil, fmt.Errorf("failed to parse Bedrock response as JSON: %w", err)
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

// extractCompletion pulls the completion text out of a model-specific body
func extractCompletion(body []byte, anthropic bool) (string, error) {
	if anthropic {
		var resp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("failed to parse Bedrock response body: %w", err)
		}
		return resp.Completion, nil
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(body, &generic); err != nil {
		return "", fmt.Errorf("failed to parse Bedrock response body: %w", err)
	}
	for _, key := range []string{"completion", "outputText", "generation"} {
		if s, ok := generic[key].(string); ok {
			return s, nil
		}
	}
	return "", fmt.Errorf("unrecognized Bedrock response format")
}
