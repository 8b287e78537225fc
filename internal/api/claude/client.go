package claude

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SubnetScope/models"
)

// DefaultModel is used when neither the options nor the request name one.
const DefaultModel = "claude-3-5-haiku-latest"

// Client is the Anthropic chat completion client
type Client struct {
	client anthropic.Client
	model  string
	logger zerolog.Logger
}

// ClientOptions holds options for creating a new Claude client
type ClientOptions struct {
	APIKey         string
	Model          string
	BaseURL        string
	RequestTimeout time.Duration
}

// NewClient creates a Claude client with SDK retries disabled.
func NewClient(options ClientOptions) *Client {
	if options.Model == "" {
		options.Model = DefaultModel
	}
	if options.RequestTimeout == 0 {
		options.RequestTimeout = 30 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(options.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: options.RequestTimeout}),
	}
	if options.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(options.BaseURL))
	}

	return &Client{
		client: anthropic.NewClient(opts...),
		model:  options.Model,
		logger: log.With().Str("component", "claude_client").Logger(),
	}
}

// Complete sends a chat completion request. System messages become the
// Claude system prompt.
func (c *Client) Complete(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	var system []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case models.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  messages,
		System:    system,
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(req.Temperature))
	}

	c.logger.Debug().Str("model", model).Int("messages", len(messages)).Msg("Sending Claude message")

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude completion: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, models.ErrEmptyCompletion
	}

	usedModel := string(resp.Model)
	if usedModel == "" {
		usedModel = model
	}

	return &models.ChatResponse{
		Content: text.String(),
		Model:   usedModel,
		Usage: models.TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}
