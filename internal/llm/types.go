// Package llm предоставляет провайдеров моделей (OpenAI, Anthropic) за общим
// интерфейсом, circuit breaker на провайдера и логирование запросов.
package llm

import (
	"context"
	"strings"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	DefaultOpenAIModel    = "gpt-4o"
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultMaxTokens      = 1024
)

// Logger определяет интерфейс для логирования LLM запросов.
type Logger interface {
	// LogLLMRequest сохраняет информацию о запросе к LLM в базу данных.
	LogLLMRequest(ctx context.Context, provider, model, promptText, responseText string, tokensUsed int) error
}

// Message одно сообщение диалога. Role: user, assistant или system.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request собранный запрос к модели.
type Request struct {
	System   string
	Messages []Message
	// MaxTokens лимит ответа; 0 означает значение провайдера.
	MaxTokens int
}

// Prompt текстовое представление запроса для логов.
func (r Request) Prompt() string {
	var b strings.Builder
	if r.System != "" {
		b.WriteString("system: ")
		b.WriteString(r.System)
	}
	for _, m := range r.Messages {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

// Response ответ модели.
type Response struct {
	Text             string `json:"text"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
}

func (r *Response) TotalTokens() int {
	return r.PromptTokens + r.CompletionTokens
}

// Provider внешний вызов модели. Ошибки возвращаются уже
// классифицированными как *apierror.Error.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, req Request) (*Response, error)
}
