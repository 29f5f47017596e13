package samplers

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

func init() {
	RegisterProviderFactory("google", newGoogleClient)
}

// Verify interface compliance at compile time.
var _ ProviderClient = (*googleClient)(nil)

// googleClient adapts the Gemini API to the ProviderClient interface.
type googleClient struct {
	client       *genai.Client
	defaultModel string
}

func newGoogleClient(config ClientConfig) (ProviderClient, error) {
	if config.APIKey == "" {
		return nil, errors.New("google: API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("google: create client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	return &googleClient{client: client, defaultModel: model}, nil
}

// Provider returns the provider's registered name.
func (c *googleClient) Provider() string { return "google" }

// Complete performs one content generation request.
func (c *googleClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	genCfg := &genai.GenerateContentConfig{}
	if req.Temperature != nil {
		genCfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(req.MaxTokens)
	} else {
		genCfg.MaxOutputTokens = defaultMaxTokens
	}
	if req.System != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, genCfg)
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return CompletionResponse{}, fmt.Errorf("google request failed (status %d): %w", apiErr.Code, err)
		}
		return CompletionResponse{}, fmt.Errorf("google request failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return CompletionResponse{}, errors.New("google: response contained no text")
	}

	out := CompletionResponse{Content: text}
	if resp.UsageMetadata != nil {
		out.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		out.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	} else {
		out.TokensIn = estimateTokens(req.Prompt)
		out.TokensOut = estimateTokens(text)
	}
	return out, nil
}
