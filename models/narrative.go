package models

// AnalysisType tells whether a narrative came from the LLM or the templates
type AnalysisType string

const (
	AnalysisAIPowered AnalysisType = "ai_powered"
	AnalysisRuleBased AnalysisType = "rule_based"
)

// FallbackModel is reported as model_used for templated narratives.
const FallbackModel = "fallback_rule_based"

// TokenUsage is the LLM accounting returned by providers
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Narrative is the natural-language summary of a numeric result
type Narrative struct {
	Text         string       `json:"text"`
	ModelUsed    string       `json:"model_used"`
	AnalysisType AnalysisType `json:"analysis_type"`
	Usage        *TokenUsage  `json:"token_usage,omitempty"`
}

// Chat roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one message of a chat completion request
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the provider independent completion request
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// ChatResponse is the provider independent completion result
type ChatResponse struct {
	Content string     `json:"content"`
	Model   string     `json:"model"`
	Usage   TokenUsage `json:"usage"`
}
