package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyForge/internal/entity"
)

type memStore struct {
	characters map[entity.ID]*entity.Character
	worlds     map[entity.ID]*entity.World
	projects   map[entity.ID]*entity.Project
	fail       error
	stubs      []Stub
	// trashed ID сущностей в корзине: Get их не видит, заготовку не создать.
	trashed map[entity.ID]bool
}

func newMemStore() *memStore {
	s := &memStore{
		characters: map[entity.ID]*entity.Character{},
		worlds:     map[entity.ID]*entity.World{},
		projects:   map[entity.ID]*entity.Project{},
	}
	for _, c := range []*entity.Character{
		{ID: entity.MustParseID("#ANA"), Name: "Ana", Aliases: []string{"the Fox"}},
		{ID: entity.MustParseID("#BARTHOLOMEW"), Name: "Bartholomew Reed"},
	} {
		s.characters[c.ID] = c
	}
	w := &entity.World{ID: entity.MustParseID("@MARSH"), Name: "Marsh"}
	s.worlds[w.ID] = w
	p := &entity.Project{ID: entity.MustParseID("$TIDE"), Name: "Tide"}
	s.projects[p.ID] = p
	return s
}

func (s *memStore) GetCharacter(_ context.Context, id entity.ID) (*entity.Character, error) {
	if s.fail != nil {
		return nil, s.fail
	}
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
	if s.trashed[id] {
		return fmt.Errorf("%w: %s", entity.ErrExists, id)
	}
	s.stubs = append(s.stubs, Stub{ID: id, Name: name})
	s.characters[id] = &entity.Character{ID: id, Name: name, IsStub: true}
	return nil
}

func TestCollectIDs(t *testing.T) {
	a, b, c := entity.MustParseID("#A"), entity.MustParseID("@B"), entity.MustParseID("$C")
	got := CollectIDs([]entity.ID{a, b}, nil, []entity.ID{b, {}, c, a})
	assert.Equal(t, []entity.ID{a, b, c}, got)
}

func TestResolve_MissingIsNotFatal(t *testing.T) {
	r := New(newMemStore(), nil, nil)
	res, err := r.Resolve(context.Background(), []entity.ID{
		entity.MustParseID("#ANA"),
		entity.MustParseID("#GHOST"),
		entity.MustParseID("@MARSH"),
		entity.MustParseID("$TIDE"),
	})
	require.NoError(t, err)
	require.Len(t, res.Characters, 1)
	assert.Equal(t, "Ana", res.Characters[0].Name)
	assert.Len(t, res.Worlds, 1)
	assert.Len(t, res.Projects, 1)
	assert.Equal(t, []entity.ID{entity.MustParseID("#GHOST")}, res.Missing)
}

func TestResolve_StoreError(t *testing.T) {
	store := newMemStore()
	store.fail = errors.New("db down")
	_, err := New(store, nil, nil).Resolve(context.Background(), []entity.ID{entity.MustParseID("#ANA")})
	assert.ErrorContains(t, err, "db down")
}

func TestParseMentionMarkup(t *testing.T) {
	text := "[@Ana](character:#ANA) met [@Marsh](world:@MARSH) and [@Odd](world:#ODD)."
	got := ParseMentionMarkup(text)
	assert.Equal(t, []Mention{
		{Name: "Ana", ID: entity.MustParseID("#ANA")},
		{Name: "Marsh", ID: entity.MustParseID("@MARSH")},
	}, got)
}

func TestFindBareMentions(t *testing.T) {
	text := "@Ana said hi to @Bartholomew Reed, not [@Ana](character:#ANA) or bob@mail.com or (world:@MARSH). @Zoë!"
	assert.Equal(t, []string{"Ana", "Bartholomew Reed", "Zoë"}, FindBareMentions(text))
}

func TestMatchMention(t *testing.T) {
	refs := []entity.Ref{
		{ID: entity.MustParseID("#ANA"), Name: "Ana", Aliases: []string{"the Fox"}},
		{ID: entity.MustParseID("#BART"), Name: "Bartholomew Reed"},
		{ID: entity.MustParseID("#BARTA"), Name: "Bartholomew"},
		{ID: entity.MustParseID("@MARSH"), Name: "Marsh"},
	}

	cases := []struct {
		name string
		want string
		ok   bool
	}{
		{"ana", "#ANA", true},
		{"The  Fox", "#ANA", true},
		{"Bartholomew", "#BARTA", true},
		{"Bartholomw", "#BARTA", true},
		{"Mars", "", false},
		{"Marhs", "@MARSH", true},
		{"Zed", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		ref, ok := MatchMention(tc.name, refs)
		assert.Equal(t, tc.ok, ok, tc.name)
		if tc.ok {
			assert.Equal(t, tc.want, ref.ID.String(), tc.name)
		}
	}
}

func TestMatchMention_UniquePrefix(t *testing.T) {
	refs := []entity.Ref{{ID: entity.MustParseID("#BART"), Name: "Bartholomew Reed"}}
	ref, ok := MatchMention("Bartholomew", refs)
	require.True(t, ok)
	assert.Equal(t, "#BART", ref.ID.String())
}

func TestEnsureStubs(t *testing.T) {
	store := newMemStore()
	r := New(store, store, nil)

	text := "@Ana meets @Corvin at [@Keep](world:@KEEP) and [@Marsh](world:@MARSH). Later @Corvin leaves."
	stubs, ids, err := r.EnsureStubs(context.Background(), text)
	require.NoError(t, err)

	require.Len(t, stubs, 2)
	assert.Equal(t, "Keep", stubs[0].Name)
	assert.Equal(t, entity.MustParseID("@KEEP"), stubs[0].ID)
	assert.Equal(t, "Corvin", stubs[1].Name)
	assert.Equal(t, entity.KindCharacter, stubs[1].ID.Kind)
	assert.Regexp(t, entity.IDPattern, stubs[1].ID.String())

	assert.Equal(t, []entity.ID{
		entity.MustParseID("@KEEP"),
		entity.MustParseID("@MARSH"),
		entity.MustParseID("#ANA"),
		stubs[1].ID,
	}, ids)
	assert.Len(t, store.stubs, 2)
}

func TestEnsureStubs_TrashedIDNotReported(t *testing.T) {
	store := newMemStore()
	keep := entity.MustParseID("@KEEP")
	store.trashed = map[entity.ID]bool{keep: true}
	r := New(store, store, nil)

	stubs, ids, err := r.EnsureStubs(context.Background(),
		"[@Keep](world:@KEEP) stands. @Ana returns to [@Keep](world:@KEEP).")
	require.NoError(t, err)

	assert.Empty(t, stubs)
	assert.Empty(t, store.stubs)
	assert.Equal(t, []entity.ID{entity.MustParseID("#ANA")}, ids)
}

func TestEnsureStubs_StoreErrorPropagates(t *testing.T) {
	r := New(newMemStore(), failingStubs{}, nil)
	_, _, err := r.EnsureStubs(context.Background(), "[@Keep](world:@KEEP)")
	assert.ErrorIs(t, err, errStubFailed)
	assert.NotErrorIs(t, err, entity.ErrExists)
}

var errStubFailed = errors.New("disk full")

type failingStubs struct{}

func (failingStubs) CreateStub(context.Context, entity.ID, string) error { return errStubFailed }

func TestEnsureStubs_WithoutCreator(t *testing.T) {
	r := New(newMemStore(), nil, nil)
	stubs, ids, err := r.EnsureStubs(context.Background(), "@Nobody waves at @Ana.")
	require.NoError(t, err)
	assert.Empty(t, stubs)
	assert.Equal(t, []entity.ID{entity.MustParseID("#ANA")}, ids)
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("марш", "марш"))
	assert.Equal(t, 1, levenshtein("марш", "мярш"))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
	assert.Equal(t, 4, levenshtein("", "abcd"))
}
