package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"
)

// DefaultAnthropicModel is used when AnthropicClient.Model is empty.
const DefaultAnthropicModel = "claude-sonnet-4-5"

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	APIKey    string
	Model     string
	MaxTokens int64

	// BaseURL and HTTPClient override the SDK defaults, mainly for tests.
	BaseURL    string
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

// Chat sends one system prompt and one user message and returns the first text block.
func (c *AnthropicClient) Chat(ctx context.Context, system, user string) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("llm: anthropic API key required")
	}
	opts := []option.RequestOption{option.WithAPIKey(c.APIKey), option.WithMaxRetries(1)}
	if c.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.BaseURL))
	}
	if c.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(c.HTTPClient))
	}
	client := anthropic.NewClient(opts...)

	model := c.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			if c.Logger != nil {
				c.Logger.WithFields(logrus.Fields{
					"model":      model,
					"size":       len(block.Text),
					"tokens_in":  message.Usage.InputTokens,
					"tokens_out": message.Usage.OutputTokens,
				}).Debug("anthropic response")
			}
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("llm: no text content in anthropic response")
}
