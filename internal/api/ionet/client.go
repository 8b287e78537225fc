package ionet

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	httpClient "github.com/Alias1177/SubnetScope/internal/platform/http"
	"github.com/Alias1177/SubnetScope/models"
)

// DefaultBaseURL is the io.net intelligence API (OpenAI compatible)
const DefaultBaseURL = "https://api.intelligence.io.solutions/api/v1"

// Client is the io.net chat completion client
type Client struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

// ClientOptions holds options for creating a new io.net client
type ClientOptions struct {
	APIKey         string
	BaseURL        string
	Model          string
	RequestTimeout time.Duration
	RequestsPerSec int
}

// NewClient creates a new io.net client. Requests are rate limited and
// never retried; the caller decides what a failure means.
func NewClient(options ClientOptions) *Client {
	cfg := openai.DefaultConfig(options.APIKey)
	cfg.BaseURL = DefaultBaseURL
	if options.BaseURL != "" {
		cfg.BaseURL = options.BaseURL
	}
	cfg.HTTPClient = httpClient.NewClient(httpClient.ClientOptions{
		Timeout:        options.RequestTimeout,
		RequestsPerSec: options.RequestsPerSec,
	})

	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  options.Model,
		logger: log.With().Str("component", "ionet_client").Logger(),
	}
}

// Complete sends a chat completion request
func (c *Client) Complete(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	c.logger.Debug().Str("model", model).Int("messages", len(messages)).Msg("Sending chat completion")

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("io.net completion: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, models.ErrEmptyCompletion
	}

	usedModel := resp.Model
	if usedModel == "" {
		usedModel = model
	}

	return &models.ChatResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   usedModel,
		Usage: models.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
