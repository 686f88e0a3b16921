package llm

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"

	"storyForge/internal/apierror"
)

type OpenAIProvider struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func NewOpenAI(apiKey, model string, maxTokens int) *OpenAIProvider {
	return NewOpenAIWithConfig(openai.DefaultConfig(apiKey), model, maxTokens)
}

// NewOpenAIWithConfig для прокси и тестов с подменой BaseURL.
func NewOpenAIWithConfig(cfg openai.ClientConfig, model string, maxTokens int) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (p *OpenAIProvider) Name() string  { return ProviderOpenAI }
func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, apierror.Classify(ProviderOpenAI, err)
	}
	if len(resp.Choices) == 0 {
		return nil, apierror.New(apierror.KindServerError, ProviderOpenAI, errors.New("пустой ответ от OpenAI"))
	}

	model := resp.Model
	if model == "" {
		model = p.model
	}
	return &Response{
		Text:             resp.Choices[0].Message.Content,
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
