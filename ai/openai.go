package ai

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const (
	openaiChatModel = openai.GPT4oMini
)

// OpenAIProvider backs the gateway with the OpenAI API.
type OpenAIProvider struct {
	client     *openai.Client
	embedModel openai.EmbeddingModel
	chatModel  string
}

func NewOpenAI(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		client:     openai.NewClient(apiKey),
		embedModel: openai.SmallEmbedding3,
		chatModel:  openaiChatModel,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      []string{text},
		Model:      p.embedModel,
		Dimensions: 1536,
	})
	if err != nil {
		return nil, p.wrap(err)
	}
	if len(resp.Data) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Kind: FailureOther, Err: errors.New("empty embedding response")}
	}
	return resp.Data[0].Embedding, nil
}

func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.chatModel,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", p.wrap(err)
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Provider: p.Name(), Kind: FailureOther, Err: errors.New("empty completion response")}
	}
	return resp.Choices[0].Message.Content, nil
}

// wrap classifies the API error for the failover policy. Quota
// exhaustion comes back as 429 with code insufficient_quota, so the
// code check runs before the status check.
func (p *OpenAIProvider) wrap(err error) error {
	kind := FailureOther

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code, _ := apiErr.Code.(string)
		switch {
		case code == "insufficient_quota" || apiErr.Type == "insufficient_quota":
			kind = FailureBillingExhausted
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			kind = FailureRateLimited
		}
	}

	return &ProviderError{Provider: p.Name(), Kind: kind, Err: err}
}
