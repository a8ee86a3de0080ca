package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const (
	geminiChatModel  = "gemini-2.0-flash"
	geminiEmbedModel = "gemini-embedding-001"
)

// GeminiProvider backs the gateway with the Gemini API.
type GeminiProvider struct {
	client *genai.Client
}

func NewGemini(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.Models.EmbedContent(ctx, geminiEmbedModel, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(int32(1536)),
	})
	if err != nil {
		return nil, p.wrap(err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Kind: FailureOther, Err: errors.New("empty embedding response")}
	}
	return resp.Embeddings[0].Values, nil
}

func (p *GeminiProvider) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}

	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case "system":
			cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
		case "assistant":
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Content}},
			})
		}
	}

	resp, err := p.client.Models.GenerateContent(ctx, geminiChatModel, contents, cfg)
	if err != nil {
		return "", p.wrap(err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(part.Text)
		}
	}

	out := strings.TrimSpace(builder.String())
	if out == "" {
		return "", &ProviderError{Provider: p.Name(), Kind: FailureOther, Err: errors.New("empty completion response")}
	}
	return out, nil
}

func (p *GeminiProvider) wrap(err error) error {
	kind := FailureOther

	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		kind = FailureRateLimited
	}

	return &ProviderError{Provider: p.Name(), Kind: kind, Err: err}
}
