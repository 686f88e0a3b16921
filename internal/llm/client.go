package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storyForge/internal/apierror"
)

var ErrNoAPIKey = errors.New("API key is not configured")

// Credentials ключ и модель провайдера по умолчанию из конфигурации.
type Credentials struct {
	Key       string
	Model     string
	MaxTokens int
}

// NewProvider создаёт провайдера по имени.
func NewProvider(name, apiKey, model string, maxTokens int) (Provider, error) {
	switch strings.ToLower(name) {
	case ProviderOpenAI:
		return NewOpenAI(apiKey, model, maxTokens), nil
	case ProviderAnthropic:
		return NewAnthropic(apiKey, model, maxTokens), nil
	}
	return nil, fmt.Errorf("неизвестный провайдер %q", name)
}

// Factory выбирает провайдера для запроса: ключ и модель из запроса
// перекрывают значения из конфигурации.
type Factory struct {
	Default  string
	Defaults map[string]Credentials
	// New подменяется в тестах.
	New func(name, apiKey, model string, maxTokens int) (Provider, error)
}

func NewFactory(defaultProvider string, defaults map[string]Credentials) *Factory {
	if defaultProvider == "" {
		defaultProvider = ProviderAnthropic
	}
	return &Factory{Default: defaultProvider, Defaults: defaults, New: NewProvider}
}

func (f *Factory) Provider(name, apiKey, model string) (Provider, error) {
	if name == "" {
		name = f.Default
	}
	creds := f.Defaults[name]
	if apiKey == "" {
		apiKey = creds.Key
	}
	if apiKey == "" {
		return nil, apierror.New(apierror.KindInvalidKey, name, ErrNoAPIKey)
	}
	if model == "" {
		model = creds.Model
	}
	newFn := f.New
	if newFn == nil {
		newFn = NewProvider
	}
	return newFn(name, apiKey, model, creds.MaxTokens)
}

// Client вызывает провайдера через его circuit breaker и пишет лог запроса.
type Client struct {
	breakers *BreakerPool
	logger   Logger
	log      *zap.Logger
}

func NewClient(breakers *BreakerPool, logger Logger, log *zap.Logger) *Client {
	if breakers == nil {
		breakers = NewBreakerPool(DefaultMaxFailures, DefaultResetTimeout)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{breakers: breakers, logger: logger, log: log}
}

func (c *Client) Breakers() *BreakerPool {
	return c.breakers
}

func (c *Client) Complete(ctx context.Context, p Provider, req Request) (*Response, error) {
	var resp *Response
	err := c.breakers.Get(p.Name()).Call(ctx, func(ctx context.Context) error {
		r, err := p.Complete(ctx, req)
		resp = r
		return err
	})
	if err != nil {
		apiErr := apierror.Classify(p.Name(), err)
		c.log.Warn("Ошибка запроса к модели",
			zap.String("provider", p.Name()),
			zap.String("model", p.Model()),
			zap.String("code", apiErr.Code()),
			zap.Error(err),
		)
		return nil, apiErr
	}

	if c.logger != nil {
		if err := c.logger.LogLLMRequest(ctx, p.Name(), resp.Model, req.Prompt(), resp.Text, resp.TotalTokens()); err != nil {
			c.log.Warn("Не удалось сохранить лог LLM", zap.Error(err))
		}
	}
	return resp, nil
}
