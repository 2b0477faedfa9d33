package config

import "os"

// GeminiModels defines which Gemini models to use for different tasks
type GeminiModels struct {
	// Analysis is the per-student insight call (one call per response, rate limited)
	Analysis string `json:"analysis"`

	// Generate is the survey question generation call
	Generate string `json:"generate"`
}

// AIConfig holds all AI-related configuration
type AIConfig struct {
	APIKey    string       `json:"-"` // Never serialize
	BaseURL   string       `json:"baseUrl"`
	Models    GeminiModels `json:"models"`
	TimeoutMS int          `json:"timeoutMs"`
}

// DefaultAIConfig returns the default AI configuration
func DefaultAIConfig() *AIConfig {
	model := getEnv("GEMINI_MODEL", "gemini-1.5-flash")
	return &AIConfig{
		APIKey:  os.Getenv("GEMINI_API_KEY"),
		BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/models"),
		Models: GeminiModels{
			Analysis: getEnv("GEMINI_MODEL_ANALYSIS", model),
			Generate: getEnv("GEMINI_MODEL_GENERATE", model),
		},
		TimeoutMS: getEnvInt("GEMINI_TIMEOUT_MS", 30000),
	}
}

// IsEnabled returns true if the AI API is configured
func (c *AIConfig) IsEnabled() bool {
	return c.APIKey != ""
}

// ModelEndpoint returns the full endpoint for a given model
func (c *AIConfig) ModelEndpoint(model string) string {
	return c.BaseURL + "/" + model + ":generateContent"
}
