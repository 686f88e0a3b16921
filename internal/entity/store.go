package entity

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("entity not found")
	// ErrExists ID уже занят, в том числе сущностью в корзине.
	ErrExists = errors.New("entity already exists")
)

// Store хранилище сущностей, из которого ядро только читает.
// Get* возвращают ErrNotFound, если сущности нет или она в корзине.
type Store interface {
	GetCharacter(ctx context.Context, id ID) (*Character, error)
	GetWorld(ctx context.Context, id ID) (*World, error)
	GetProject(ctx context.Context, id ID) (*Project, error)

	Characters(ctx context.Context) ([]Character, error)
	Worlds(ctx context.Context) ([]World, error)
	Projects(ctx context.Context) ([]Project, error)
}

// Ref облегчённая ссылка на сущность для поиска упоминаний в тексте.
type Ref struct {
	ID      ID
	Name    string
	Aliases []string
}

// RefOf строит Ref из сущности.
func RefOf(e Entity) Ref {
	return Ref{ID: e.EntityID(), Name: e.DisplayName(), Aliases: e.AliasList()}
}

// Names возвращает каноническое имя и псевдонимы, пустые пропускаются.
func (r Ref) Names() []string {
	names := make([]string, 0, len(r.Aliases)+1)
	if r.Name != "" {
		names = append(names, r.Name)
	}
	for _, a := range r.Aliases {
		if a != "" {
			names = append(names, a)
		}
	}
	return names
}

// Set набор сущностей, сгруппированных по типу.
type Set struct {
	Characters []*Character
	Worlds     []*World
	Projects   []*Project
}

func (s Set) Len() int {
	return len(s.Characters) + len(s.Worlds) + len(s.Projects)
}

// Refs возвращает ссылки на все сущности набора.
func (s Set) Refs() []Ref {
	refs := make([]Ref, 0, s.Len())
	for _, c := range s.Characters {
		refs = append(refs, RefOf(c))
	}
	for _, w := range s.Worlds {
		refs = append(refs, RefOf(w))
	}
	for _, p := range s.Projects {
		refs = append(refs, RefOf(p))
	}
	return refs
}

// AllRefs загружает все сущности хранилища как ссылки.
func AllRefs(ctx context.Context, store Store) ([]Ref, error) {
	chars, err := store.Characters(ctx)
	if err != nil {
		return nil, err
	}
	worlds, err := store.Worlds(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := store.Projects(ctx)
	if err != nil {
		return nil, err
	}

	refs := make([]Ref, 0, len(chars)+len(worlds)+len(projects))
	for i := range chars {
		refs = append(refs, RefOf(&chars[i]))
	}
	for i := range worlds {
		refs = append(refs, RefOf(&worlds[i]))
	}
	for i := range projects {
		refs = append(refs, RefOf(&projects[i]))
	}
	return refs, nil
}
