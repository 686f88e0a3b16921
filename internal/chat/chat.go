// Package chat связывает обработку запроса чата: лимит, проверка, разрешение
// сущностей, сборка контекста и промпта, вызов модели и обогащение ответа.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"storyForge/internal/apierror"
	"storyForge/internal/budget"
	"storyForge/internal/enrich"
	"storyForge/internal/entity"
	"storyForge/internal/injection"
	"storyForge/internal/llm"
	"storyForge/internal/metrics"
	"storyForge/internal/modes"
	"storyForge/internal/ratelimit"
	"storyForge/internal/resolver"
	"storyForge/internal/validation"
)

const (
	DefaultPromptBudget    = 8000
	DefaultResponseReserve = 1000
)

// ValidationError запрос отклонён до сборки контекста.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid chat request: " + strings.Join(e.Errors, "; ")
}

// RateLimitError клиент превысил лимит.
type RateLimitError struct {
	ratelimit.Result
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// ProviderSource выбирает провайдера для запроса.
type ProviderSource interface {
	Provider(name, apiKey, model string) (llm.Provider, error)
}

// Completer вызов модели.
type Completer interface {
	Complete(ctx context.Context, p llm.Provider, req llm.Request) (*llm.Response, error)
}

type Options struct {
	// EntityBudget бюджет контекста сущностей.
	EntityBudget int
	// PromptBudget бюджет всего системного промпта вместе с резервом ответа.
	PromptBudget    int
	ResponseReserve int
	RecentMessages  int
	SystemPrompt    string
}

func (o Options) withDefaults() Options {
	if o.EntityBudget <= 0 {
		o.EntityBudget = injection.DefaultTotalBudget
	}
	if o.PromptBudget <= 0 {
		o.PromptBudget = DefaultPromptBudget
	}
	if o.ResponseReserve <= 0 {
		o.ResponseReserve = DefaultResponseReserve
	}
	if o.RecentMessages <= 0 {
		o.RecentMessages = DefaultRecentMessages
	}
	if o.SystemPrompt == "" {
		o.SystemPrompt = DefaultSystemPrompt
	}
	return o
}

type Deps struct {
	Store     entity.Store
	Stubs     resolver.StubCreator
	Registry  *modes.Registry
	Limiter   ratelimit.Limiter
	Providers ProviderSource
	Client    Completer
	Metrics   *metrics.Collector
	Log       *zap.Logger
}

type Service struct {
	store     entity.Store
	resolver  *resolver.Resolver
	preview   *resolver.Resolver
	registry  *modes.Registry
	assembler *injection.Assembler
	limiter   ratelimit.Limiter
	providers ProviderSource
	client    Completer
	metrics   *metrics.Collector
	opts      Options
	log       *zap.Logger
}

func New(d Deps, opts Options) *Service {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	registry := d.Registry
	if registry == nil {
		registry = modes.Default()
	}
	return &Service{
		store:     d.Store,
		resolver:  resolver.New(d.Store, d.Stubs, log),
		preview:   resolver.New(d.Store, nil, log),
		registry:  registry,
		assembler: injection.New(registry, log),
		limiter:   d.Limiter,
		providers: d.Providers,
		client:    d.Client,
		metrics:   d.Metrics,
		opts:      opts.withDefaults(),
		log:       log,
	}
}

// ContextInfo что вошло в промпт.
type ContextInfo struct {
	EntityTokens    int               `json:"entityTokens"`
	PromptTokens    int               `json:"promptTokens"`
	Budgets         modes.Budgets     `json:"budgets"`
	EntityNames     injection.PerKind `json:"entityNames"`
	IncludedFields  injection.PerKind `json:"includedFields"`
	TruncatedFields injection.PerKind `json:"truncatedFields"`
	Sections        *budget.Result    `json:"sections"`
}

// Prepared результат подготовки запроса без вызова модели.
type Prepared struct {
	Mode         modes.Mode        `json:"mode"`
	SystemPrompt string            `json:"systemPrompt"`
	Messages     []llm.Message     `json:"messages"`
	Context      ContextInfo       `json:"context"`
	Missing      []entity.ID       `json:"missingEntityIds"`
	Stubs        []resolver.Stub   `json:"createdStubs"`
	Entities     *injection.Result `json:"-"`
	Refs         []entity.Ref      `json:"-"`

	request *validation.ChatRequest
}

type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// Reply ответ чата.
type Reply struct {
	Message     string              `json:"message"`
	Raw         string              `json:"raw"`
	Provider    string              `json:"provider"`
	Model       string              `json:"model"`
	Usage       Usage               `json:"usage"`
	Mode        modes.Mode          `json:"mode"`
	Context     ContextInfo         `json:"context"`
	References  []enrich.Reference  `json:"references"`
	FactUpdates []enrich.FactUpdate `json:"factUpdates"`
	Stubs       []resolver.Stub     `json:"createdStubs"`
	Missing     []entity.ID         `json:"missingEntityIds"`
}

// Handle полный цикл запроса чата. Ошибки: *RateLimitError,
// *ValidationError, *apierror.Error от провайдера или внутренняя ошибка.
func (s *Service) Handle(ctx context.Context, clientKey string, req *validation.ChatRequest) (*Reply, error) {
	if err := s.allow(ctx, clientKey); err != nil {
		return nil, err
	}

	prep, err := s.prepare(ctx, req, s.resolver)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordStubs(len(prep.Stubs))
	mode := string(prep.Mode)

	provider, err := s.providers.Provider(prep.request.Provider, prep.request.APIKey, prep.request.Model)
	if err != nil {
		return nil, s.providerFailure(mode, prep.request.Provider, err)
	}

	started := time.Now()
	resp, err := s.client.Complete(ctx, provider, llm.Request{
		System:    prep.SystemPrompt,
		Messages:  prep.Messages,
		MaxTokens: s.opts.ResponseReserve,
	})
	if err != nil {
		s.metrics.RecordLLMRequest(provider.Name(), provider.Model(), "error", time.Since(started), 0, 0)
		return nil, s.providerFailure(mode, provider.Name(), err)
	}
	s.metrics.RecordLLMRequest(provider.Name(), resp.Model, "success", time.Since(started), resp.PromptTokens, resp.CompletionTokens)

	refs := s.knownRefs(ctx, prep)
	reply := &Reply{
		Message:     enrich.EnrichWithLinks(resp.Text, refs),
		Raw:         resp.Text,
		Provider:    provider.Name(),
		Model:       resp.Model,
		Usage:       Usage{PromptTokens: resp.PromptTokens, CompletionTokens: resp.CompletionTokens},
		Mode:        prep.Mode,
		Context:     prep.Context,
		References:  enrich.ExtractReferences(resp.Text, refs),
		FactUpdates: enrich.DetectFactUpdates(resp.Text, prep.Refs),
		Stubs:       prep.Stubs,
		Missing:     prep.Missing,
	}

	s.metrics.RecordChat(mode, "ok")
	s.log.Info("Ответ чата",
		zap.String("mode", mode),
		zap.String("provider", reply.Provider),
		zap.String("model", reply.Model),
		zap.Int("prompt_tokens", prep.Context.PromptTokens),
		zap.Int("references", len(reply.References)),
		zap.Int("fact_updates", len(reply.FactUpdates)),
	)
	return reply, nil
}

// Preview собирает промпт так же, как Handle, но без вызова модели и без
// создания заготовок.
func (s *Service) Preview(ctx context.Context, clientKey string, req *validation.ChatRequest) (*Prepared, error) {
	if err := s.allow(ctx, clientKey); err != nil {
		return nil, err
	}
	return s.prepare(ctx, req, s.preview)
}

func (s *Service) allow(ctx context.Context, clientKey string) error {
	if s.limiter == nil {
		return nil
	}
	res, err := s.limiter.Allow(ctx, clientKey)
	if err != nil {
		// хранилище лимитов недоступно: запрос пропускается
		s.log.Warn("Ошибка лимитера", zap.String("client", clientKey), zap.Error(err))
		return nil
	}
	if !res.Allowed {
		s.metrics.RecordChat("unknown", "rate_limited")
		return &RateLimitError{Result: res}
	}
	return nil
}

func (s *Service) prepare(ctx context.Context, req *validation.ChatRequest, r *resolver.Resolver) (*Prepared, error) {
	v := validation.ValidateChatRequest(req)
	if !v.Valid {
		s.metrics.RecordChat("unknown", "invalid")
		return nil, &ValidationError{Errors: v.Errors}
	}
	clean := v.Clean

	mode, err := s.registry.Parse(clean.Mode)
	if err != nil {
		s.metrics.RecordChat("unknown", "invalid")
		return nil, &ValidationError{Errors: []string{fmt.Sprintf("Invalid mode %q", clean.Mode)}}
	}

	stubs, mentioned, err := r.EnsureStubs(ctx, clean.LastUserMessage())
	if err != nil {
		s.metrics.RecordChat(string(mode), "error")
		return nil, fmt.Errorf("ошибка обработки упоминаний: %w", err)
	}

	ids := clean.EntityIDs()
	resolved, err := r.Resolve(ctx, resolver.CollectIDs(ids.Linked, ids.Pinned, ids.Mentioned, mentioned))
	if err != nil {
		s.metrics.RecordChat(string(mode), "error")
		return nil, fmt.Errorf("ошибка загрузки сущностей: %w", err)
	}

	entities := s.assembler.Assemble(injection.Input{
		Mode:        mode,
		Entities:    resolved.Set,
		TotalBudget: s.opts.EntityBudget,
	})

	earlier, recent := splitMessages(clean.Messages, s.opts.RecentMessages)
	prompt := budget.Compose(
		promptSections(s.opts.SystemPrompt, clean, entities.Context, earlier),
		budget.Options{MaxTokens: s.opts.PromptBudget, ResponseBuffer: s.opts.ResponseReserve},
	)

	s.metrics.RecordContextTokens("entities", entities.TokenCount)
	s.metrics.RecordContextTokens("prompt", prompt.TotalTokens)
	if len(prompt.Dropped) > 0 {
		s.log.Debug("Секции промпта отброшены", zap.Strings("sections", prompt.Dropped))
	}

	return &Prepared{
		Mode:         mode,
		SystemPrompt: prompt.Content,
		Messages:     recent,
		Context: ContextInfo{
			EntityTokens:    entities.TokenCount,
			PromptTokens:    prompt.TotalTokens,
			Budgets:         entities.Budgets,
			EntityNames:     entities.EntityNames,
			IncludedFields:  entities.IncludedFields,
			TruncatedFields: entities.TruncatedFields,
			Sections:        prompt,
		},
		Missing:  resolved.Missing,
		Stubs:    stubs,
		Entities: entities,
		Refs:     resolved.Refs(),
		request:  clean,
	}, nil
}

// knownRefs все сущности хранилища для ссылок в ответе; при ошибке только
// сущности из контекста.
func (s *Service) knownRefs(ctx context.Context, prep *Prepared) []entity.Ref {
	refs, err := entity.AllRefs(ctx, s.store)
	if err != nil {
		s.log.Warn("Не удалось загрузить сущности для ссылок", zap.Error(err))
		return prep.Refs
	}
	return refs
}

func (s *Service) providerFailure(mode, provider string, err error) error {
	apiErr := apierror.Classify(provider, err)
	s.metrics.RecordProviderError(apiErr.Provider, apiErr.Code())
	s.metrics.RecordChat(mode, "provider_error")
	if errors.Is(err, llm.ErrNoAPIKey) {
		s.log.Warn("Ключ провайдера не настроен", zap.String("provider", provider))
	}
	return apiErr
}
