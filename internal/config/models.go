package config

// SentimentConfig selects the tone collaborator provider
type SentimentConfig struct {
	Provider string
}

// GroqConfig represents the configuration for the Groq sentiment provider
type GroqConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for the Gemini sentiment provider
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	MaxBodySize int
}

// BedrockConfig represents the configuration for the Bedrock sentiment provider
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	MaxBodySize int
}

// GetSentiment returns the sentiment collaborator configuration
func (c *Config) GetSentiment() SentimentConfig {
	return SentimentConfig{
		Provider: c.GetString("sentiment.provider"),
	}
}

// GetGroq returns the Groq configuration
func (c *Config) GetGroq() GroqConfig {
	return GroqConfig{
		APIKey:      c.GetString("groq.api_key"),
		BaseURL:     c.GetString("groq.base_url"),
		ModelName:   c.GetString("groq.model_name"),
		MaxTokens:   c.GetInt("groq.max_tokens"),
		Temperature: float32(c.GetFloat64("groq.temperature")),
		MaxBodySize: c.GetInt("groq.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}
