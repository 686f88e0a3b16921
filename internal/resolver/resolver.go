// Package resolver превращает идентификаторы и упоминания из запроса в
// сущности хранилища. Ненайденные сущности не ошибка: они собираются в
// Missing, и обработка продолжается.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"storyForge/internal/entity"
)

// StubCreator создаёт заготовку сущности и ставит её в очередь доработки.
type StubCreator interface {
	CreateStub(ctx context.Context, id entity.ID, name string) error
}

// Resolved результат разрешения идентификаторов.
type Resolved struct {
	entity.Set
	Missing []entity.ID
}

type Resolver struct {
	store entity.Store
	stubs StubCreator
	log   *zap.Logger
}

// New создаёт резолвер. stubs может быть nil: тогда заготовки не создаются.
func New(store entity.Store, stubs StubCreator, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{store: store, stubs: stubs, log: log}
}

// CollectIDs сливает группы идентификаторов без повторов, порядок первого
// появления сохраняется.
func CollectIDs(groups ...[]entity.ID) []entity.ID {
	seen := make(map[entity.ID]bool)
	var out []entity.ID
	for _, g := range groups {
		for _, id := range g {
			if id.IsZero() || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Resolve загружает сущности по идентификаторам. Тип берётся из ID.
func (r *Resolver) Resolve(ctx context.Context, ids []entity.ID) (*Resolved, error) {
	res := &Resolved{}
	for _, id := range ids {
		err := r.load(ctx, id, &res.Set)
		if errors.Is(err, entity.ErrNotFound) {
			r.log.Warn("Сущность не найдена", zap.String("id", id.String()))
			res.Missing = append(res.Missing, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", id, err)
		}
	}
	return res, nil
}

func (r *Resolver) load(ctx context.Context, id entity.ID, set *entity.Set) error {
	switch id.Kind {
	case entity.KindCharacter:
		c, err := r.store.GetCharacter(ctx, id)
		if err != nil {
			return err
		}
		set.Characters = append(set.Characters, c)
	case entity.KindWorld:
		w, err := r.store.GetWorld(ctx, id)
		if err != nil {
			return err
		}
		set.Worlds = append(set.Worlds, w)
	case entity.KindProject:
		p, err := r.store.GetProject(ctx, id)
		if err != nil {
			return err
		}
		set.Projects = append(set.Projects, p)
	default:
		return fmt.Errorf("%w: %s", entity.ErrInvalidID, id)
	}
	return nil
}

// StubID новый идентификатор заготовки: сигил типа и ULID.
func StubID(kind entity.Kind) (entity.ID, error) {
	return entity.NewID(kind, ulid.Make().String())
}

// Stub созданная заготовка.
type Stub struct {
	ID   entity.ID `json:"id"`
	Name string    `json:"name"`
}

// EnsureStubs создаёт заготовки для упоминаний, которые не удалось
// сопоставить: размеченные ссылки на несуществующие ID получают заготовку
// с этим ID, голые @Имя без совпадений становятся персонажами с новым ID.
// Возвращает созданные заготовки и ID всех упомянутых сущностей, включая
// новые.
func (r *Resolver) EnsureStubs(ctx context.Context, text string) ([]Stub, []entity.ID, error) {
	refs, err := entity.AllRefs(ctx, r.store)
	if err != nil {
		return nil, nil, fmt.Errorf("load refs: %w", err)
	}
	known := make(map[entity.ID]bool, len(refs))
	for _, ref := range refs {
		known[ref.ID] = true
	}

	var (
		stubs     []Stub
		mentioned []entity.ID
		seenNames = make(map[string]bool)
		taken     = make(map[entity.ID]bool)
	)
	create := func(id entity.ID, name string) (bool, error) {
		if err := r.stubs.CreateStub(ctx, id, name); err != nil {
			if errors.Is(err, entity.ErrExists) {
				r.log.Debug("ID заготовки уже занят", zap.String("id", id.String()))
				taken[id] = true
				return false, nil
			}
			return false, fmt.Errorf("create stub %s: %w", id, err)
		}
		r.log.Info("Создана заготовка сущности", zap.String("id", id.String()), zap.String("name", name))
		stubs = append(stubs, Stub{ID: id, Name: name})
		known[id] = true
		refs = append(refs, entity.Ref{ID: id, Name: name})
		return true, nil
	}

	for _, m := range ParseMentionMarkup(text) {
		seenNames[normalize(m.Name)] = true
		if taken[m.ID] {
			continue
		}
		if !known[m.ID] && r.stubs != nil {
			created, err := create(m.ID, m.Name)
			if err != nil {
				return stubs, mentioned, err
			}
			if !created {
				continue
			}
		}
		mentioned = append(mentioned, m.ID)
	}

	for _, name := range FindBareMentions(text) {
		key := normalize(name)
		if seenNames[key] {
			continue
		}
		seenNames[key] = true

		if ref, ok := MatchMention(name, refs); ok {
			mentioned = append(mentioned, ref.ID)
			continue
		}
		if r.stubs == nil {
			continue
		}
		id, err := StubID(entity.KindCharacter)
		if err != nil {
			return stubs, mentioned, err
		}
		created, err := create(id, name)
		if err != nil {
			return stubs, mentioned, err
		}
		if created {
			mentioned = append(mentioned, id)
		}
	}

	return stubs, CollectIDs(mentioned), nil
}
