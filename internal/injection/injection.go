// Package injection собирает контекст связанных сущностей для режима чата
// в пределах общего бюджета токенов.
package injection

import (
	"strings"

	"go.uber.org/zap"

	"storyForge/internal/entity"
	"storyForge/internal/fieldfilter"
	"storyForge/internal/modes"
	"storyForge/internal/tokens"
)

// DefaultTotalBudget бюджет по умолчанию для контекста сущностей.
const DefaultTotalBudget = 3000

// Separator разделитель секций сущностей.
const Separator = "\n\n---\n\n"

// Input что нужно собрать.
type Input struct {
	Mode        modes.Mode
	Entities    entity.Set
	TotalBudget int
}

// PerKind списки, разложенные по типам сущностей.
type PerKind struct {
	Character []string `json:"character"`
	World     []string `json:"world"`
	Project   []string `json:"project"`
}

func (p *PerKind) add(kind entity.Kind, values ...string) {
	var dst *[]string
	switch kind {
	case entity.KindCharacter:
		dst = &p.Character
	case entity.KindWorld:
		dst = &p.World
	case entity.KindProject:
		dst = &p.Project
	default:
		return
	}
	for _, v := range values {
		if !contains(*dst, v) {
			*dst = append(*dst, v)
		}
	}
}

// Result собранный контекст.
type Result struct {
	Context string `json:"context"`
	// TokenCount оценка по итоговой строке, включая форматирование.
	TokenCount      int                   `json:"tokenCount"`
	Budgets         modes.Budgets         `json:"budgets"`
	IncludedFields  PerKind               `json:"includedFields"`
	TruncatedFields PerKind               `json:"truncatedFields"`
	EntityNames     PerKind               `json:"entityNames"`
	Filtered        []*fieldfilter.Result `json:"-"`
}

// Assembler собирает контекст по таблице режимов.
type Assembler struct {
	registry *modes.Registry
	log      *zap.Logger
}

func New(registry *modes.Registry, log *zap.Logger) *Assembler {
	if registry == nil {
		registry = modes.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Assembler{registry: registry, log: log}
}

// Assemble фильтрует каждую сущность по её доле бюджета и склеивает секции.
// Бюджет типа делится поровну между N сущностями (целочисленно); типы без
// сущностей бюджет не расходуют.
func (a *Assembler) Assemble(in Input) *Result {
	total := in.TotalBudget
	if total <= 0 {
		total = DefaultTotalBudget
	}

	cfg := a.registry.Get(in.Mode)
	budgets := a.registry.EntityBudgets(in.Mode, total)
	res := &Result{Budgets: budgets}

	var sections []string
	for _, kind := range entity.Kinds {
		group := entitiesOf(in.Entities, kind)
		if len(group) == 0 {
			continue
		}
		perEntity := budgets.For(kind) / len(group)
		fields := cfg.Fields(kind)

		for _, e := range group {
			filtered, err := fieldfilter.Filter(e, fields, perEntity)
			if err != nil {
				a.log.Warn("Сущность пропущена при сборке контекста", zap.Error(err))
				continue
			}
			res.Filtered = append(res.Filtered, filtered)
			res.EntityNames.add(kind, filtered.Name)
			res.IncludedFields.add(kind, filtered.Included...)
			res.TruncatedFields.add(kind, filtered.Truncated...)
			sections = append(sections, FormatSection(filtered))
		}
	}

	res.Context = strings.Join(sections, Separator)
	res.TokenCount = tokens.Estimate(res.Context)

	a.log.Debug("Контекст сущностей собран",
		zap.String("mode", string(in.Mode)),
		zap.Int("entities", len(res.Filtered)),
		zap.Int("tokens", res.TokenCount),
		zap.Int("budget", total),
	)
	return res
}

func entitiesOf(set entity.Set, kind entity.Kind) []entity.Entity {
	var out []entity.Entity
	switch kind {
	case entity.KindCharacter:
		for _, c := range set.Characters {
			out = append(out, c)
		}
	case entity.KindWorld:
		for _, w := range set.Worlds {
			out = append(out, w)
		}
	case entity.KindProject:
		for _, p := range set.Projects {
			out = append(out, p)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
