package samplers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

func init() {
	RegisterProviderFactory("anthropic", newAnthropicClient)
}

// Verify interface compliance at compile time.
var _ ProviderClient = (*anthropicClient)(nil)

// anthropicClient adapts the Anthropic Messages API to the
// ProviderClient interface.
type anthropicClient struct {
	client       anthropic.Client
	defaultModel string
}

func newAnthropicClient(config ClientConfig) (ProviderClient, error) {
	if config.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	model := config.Model
	if model == "" {
		model = "claude-sonnet-4-0"
	}

	return &anthropicClient{
		client:       anthropic.NewClient(opts...),
		defaultModel: model,
	}, nil
}

// Provider returns the provider's registered name.
func (c *anthropicClient) Provider() string { return "anthropic" }

// Complete performs one Messages API request.
func (c *anthropicClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return CompletionResponse{}, fmt.Errorf("anthropic request failed (status %d): %w", apiErr.StatusCode, err)
		}
		return CompletionResponse{}, fmt.Errorf("anthropic request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	if sb.Len() == 0 {
		return CompletionResponse{}, errors.New("anthropic: response contained no text blocks")
	}

	return CompletionResponse{
		Content:   sb.String(),
		TokensIn:  int(message.Usage.InputTokens),
		TokensOut: int(message.Usage.OutputTokens),
	}, nil
}
