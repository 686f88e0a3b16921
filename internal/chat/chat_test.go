package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyForge/internal/apierror"
	"storyForge/internal/entity"
	"storyForge/internal/llm"
	"storyForge/internal/metrics"
	"storyForge/internal/ratelimit"
	"storyForge/internal/validation"
)

type memStore struct {
	characters map[entity.ID]*entity.Character
	worlds     map[entity.ID]*entity.World
	projects   map[entity.ID]*entity.Project
	stubs      []entity.ID
}

func newMemStore() *memStore {
	s := &memStore{
		characters: map[entity.ID]*entity.Character{},
		worlds:     map[entity.ID]*entity.World{},
		projects:   map[entity.ID]*entity.Project{},
	}
	ana := &entity.Character{
		ID:          entity.MustParseID("#ANA"),
		Name:        "Ana",
		Role:        "protagonist",
		CoreConcept: "A smuggler who hears the marsh speak.",
		Backstory:   "Ana grew up on the stilt villages. She lost her brother to the tide.",
		Motivations: []string{"find her brother", "pay her debts"},
	}
	s.characters[ana.ID] = ana
	marsh := &entity.World{
		ID:          entity.MustParseID("@MARSH"),
		Name:        "Marsh",
		Description: "A drowned country of reeds and lanterns.",
		Rules:       []string{"The tide never lies."},
	}
	s.worlds[marsh.ID] = marsh
	return s
}

func (s *memStore) GetCharacter(_ context.Context, id entity.ID) (*entity.Character, error) {
	if c, ok := s.characters[id]; ok {
		return c, nil
	}
	return nil, entity.ErrNotFound
}

func (s *memStore) GetWorld(_ context.Context, id entity.ID) (*entity.World, error) {
	if w, ok := s.worlds[id]; ok {
		return w, nil
	}
	return nil, entity.ErrNotFound
}

func (s *memStore) GetProject(_ context.Context, id entity.ID) (*entity.Project, error) {
	if p, ok := s.projects[id]; ok {
		return p, nil
	}
	return nil, entity.ErrNotFound
}

func (s *memStore) Characters(context.Context) ([]entity.Character, error) {
	var out []entity.Character
	for _, c := range s.characters {
		out = append(out, *c)
	}
	return out, nil
}

func (s *memStore) Worlds(context.Context) ([]entity.World, error) {
	var out []entity.World
	for _, w := range s.worlds {
		out = append(out, *w)
	}
	return out, nil
}

func (s *memStore) Projects(context.Context) ([]entity.Project, error) {
	var out []entity.Project
	for _, p := range s.projects {
		out = append(out, *p)
	}
	return out, nil
}

func (s *memStore) CreateStub(_ context.Context, id entity.ID, name string) error {
	s.stubs = append(s.stubs, id)
	s.characters[id] = &entity.Character{ID: id, Name: name, IsStub: true}
	return nil
}

type fakeProvider struct {
	text string
	err  error
	got  []llm.Request
}

func (p *fakeProvider) Name() string  { return llm.ProviderAnthropic }
func (p *fakeProvider) Model() string { return "claude-test" }

func (p *fakeProvider) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	p.got = append(p.got, req)
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Text: p.text, Model: "claude-test", PromptTokens: 40, CompletionTokens: 12}, nil
}

type fixture struct {
	store    *memStore
	provider *fakeProvider
	service  *Service
	metrics  *metrics.Collector
}

func newFixture(t *testing.T, limiter ratelimit.Limiter, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMemStore(),
		provider: &fakeProvider{text: "Ana walks into the Marsh. Ana has a rusty lantern."},
		metrics:  metrics.New("", nil),
	}
	factory := llm.NewFactory(llm.ProviderAnthropic, map[string]llm.Credentials{
		llm.ProviderAnthropic: {Key: "server-key"},
	})
	factory.New = func(name, apiKey, model string, maxTokens int) (llm.Provider, error) {
		return f.provider, nil
	}
	f.service = New(Deps{
		Store:     f.store,
		Stubs:     f.store,
		Limiter:   limiter,
		Providers: factory,
		Client:    llm.NewClient(nil, nil, nil),
		Metrics:   f.metrics,
	}, opts)
	return f
}

func request(msg string) *validation.ChatRequest {
	return &validation.ChatRequest{
		Messages:        []validation.Message{{Role: "user", Content: msg}},
		LinkedCharacter: "#ANA",
		Mode:            "scene",
	}
}

func TestHandle_Pipeline(t *testing.T) {
	f := newFixture(t, nil, Options{})

	reply, err := f.service.Handle(context.Background(), "u1", request("Write a scene where Ana meets @Marsh folk and @Bram"))
	require.NoError(t, err)

	// @Bram неизвестен: создана заготовка, @Marsh найден по имени
	require.Len(t, f.store.stubs, 1)
	require.Len(t, reply.Stubs, 1)
	assert.Equal(t, "Bram", reply.Stubs[0].Name)
	assert.Equal(t, entity.KindCharacter, reply.Stubs[0].ID.Kind)

	require.Len(t, f.provider.got, 1)
	sent := f.provider.got[0]
	assert.Contains(t, sent.System, DefaultSystemPrompt)
	assert.Contains(t, sent.System, "## Story Context")
	assert.Contains(t, sent.System, "### Character: Ana (#ANA)")
	assert.Contains(t, sent.System, "### World: Marsh (@MARSH)")
	assert.Equal(t, DefaultResponseReserve, sent.MaxTokens)
	require.Len(t, sent.Messages, 1)

	assert.Equal(t, "[@Ana](character:#ANA) walks into the [@Marsh](world:@MARSH). [@Ana](character:#ANA) has a rusty lantern.", reply.Message)
	assert.Equal(t, "Ana walks into the Marsh. Ana has a rusty lantern.", reply.Raw)
	assert.Equal(t, "claude-test", reply.Model)
	assert.Equal(t, Usage{PromptTokens: 40, CompletionTokens: 12}, reply.Usage)

	require.NotEmpty(t, reply.References)
	assert.Equal(t, entity.MustParseID("#ANA"), reply.References[0].ID)

	require.Len(t, reply.FactUpdates, 1)
	assert.Equal(t, "Ana has a rusty lantern", reply.FactUpdates[0].Fact)

	assert.Equal(t, []string{"Ana", "Bram"}, reply.Context.EntityNames.Character)
	assert.Equal(t, []string{"Marsh"}, reply.Context.EntityNames.World)
	assert.LessOrEqual(t, reply.Context.PromptTokens, DefaultPromptBudget-DefaultResponseReserve)
	assert.Empty(t, reply.Missing)
}

func TestHandle_MissingEntitiesAreNotFatal(t *testing.T) {
	f := newFixture(t, nil, Options{})
	req := request("Hello")
	req.PinnedEntityIDs = []string{"@NOWHERE", "$GHOST"}

	reply, err := f.service.Handle(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.Equal(t, []entity.ID{entity.MustParseID("@NOWHERE"), entity.MustParseID("$GHOST")}, reply.Missing)
	assert.Equal(t, []string{"Ana"}, reply.Context.EntityNames.Character)
}

func TestHandle_Validation(t *testing.T) {
	f := newFixture(t, nil, Options{})

	_, err := f.service.Handle(context.Background(), "u1", &validation.ChatRequest{})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Errors, "Messages array must not be empty")

	req := request("hi")
	req.Mode = "poetry_slam"
	_, err = f.service.Handle(context.Background(), "u1", req)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Errors[0], "Invalid mode")

	assert.Empty(t, f.provider.got)
}

func TestHandle_RateLimited(t *testing.T) {
	limiter := ratelimit.NewMemory(ratelimit.Config{Capacity: 2, RefillPer: time.Minute}, nil)
	f := newFixture(t, limiter, Options{})

	for i := 0; i < 2; i++ {
		_, err := f.service.Handle(context.Background(), "u1", request("hi"))
		require.NoError(t, err)
	}
	_, err := f.service.Handle(context.Background(), "u1", request("hi"))
	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.False(t, rlErr.Allowed)
	assert.Zero(t, rlErr.Remaining)
	assert.Greater(t, rlErr.RetryAfter, time.Duration(0))

	// другой клиент не затронут
	_, err = f.service.Handle(context.Background(), "u2", request("hi"))
	assert.NoError(t, err)
}

func TestHandle_ProviderError(t *testing.T) {
	f := newFixture(t, nil, Options{})
	f.provider.err = errors.New("Incorrect API key provided")

	_, err := f.service.Handle(context.Background(), "u1", request("hi"))
	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.KindInvalidKey, apiErr.Kind)
	assert.Equal(t, "anthropic", apiErr.Response().InvalidKey)
}

func TestHandle_NoKeyConfigured(t *testing.T) {
	f := newFixture(t, nil, Options{})
	req := request("hi")
	req.Provider = "openai"

	_, err := f.service.Handle(context.Background(), "u1", req)
	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.KindInvalidKey, apiErr.Kind)
	assert.Equal(t, "openai", apiErr.Provider)
	assert.Empty(t, f.provider.got)
}

func TestPreview_NoSideEffects(t *testing.T) {
	f := newFixture(t, nil, Options{})

	prep, err := f.service.Preview(context.Background(), "u1", request("Ana meets @Bram in @Marsh"))
	require.NoError(t, err)
	assert.Empty(t, f.store.stubs)
	assert.Empty(t, prep.Stubs)
	assert.Empty(t, f.provider.got)
	assert.Equal(t, []string{"Marsh"}, prep.Context.EntityNames.World)
	assert.Contains(t, prep.SystemPrompt, "### Character: Ana (#ANA)")
	assert.Contains(t, prep.Context.Sections.Included, SectionEntities)
}

func TestPrepare_HistoryAndSession(t *testing.T) {
	f := newFixture(t, nil, Options{RecentMessages: 2})
	req := request("last")
	req.SessionSetup = "Noir tone, present tense."
	req.ModeInstruction = "Write as a scene."
	req.Messages = []validation.Message{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
		{Role: "user", Content: "second question"},
		{Role: "assistant", Content: "second answer"},
		{Role: "user", Content: "last"},
	}

	prep, err := f.service.Preview(context.Background(), "u1", req)
	require.NoError(t, err)

	require.Len(t, prep.Messages, 2)
	assert.Equal(t, "second answer", prep.Messages[0].Content)
	assert.Equal(t, "last", prep.Messages[1].Content)

	assert.Equal(t, []string{SectionSystem, SectionMode, SectionSession, SectionEntities, SectionConversation}, prep.Context.Sections.Included)
	system := prep.SystemPrompt
	assert.Less(t, strings.Index(system, "Write as a scene."), strings.Index(system, "## Session Setup"))
	assert.Contains(t, system, "## Earlier Conversation\n\nuser: first question")
}

func TestPrepare_TightBudgetDropsLowPriority(t *testing.T) {
	f := newFixture(t, nil, Options{PromptBudget: 1120, ResponseReserve: 1000, RecentMessages: 1})
	req := request("last")
	req.Messages = []validation.Message{
		{Role: "user", Content: strings.Repeat("long earlier message ", 40)},
		{Role: "user", Content: "last"},
	}

	prep, err := f.service.Preview(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.LessOrEqual(t, prep.Context.PromptTokens, 120)
	assert.Contains(t, prep.Context.Sections.Included, SectionSystem)
	assert.Contains(t, prep.Context.Sections.Dropped, SectionConversation)
}
