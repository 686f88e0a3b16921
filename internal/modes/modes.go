// Package modes статическая таблица режимов чата: какие поля сущностей важны
// в режиме и как общий бюджет токенов делится между типами сущностей.
package modes

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"storyForge/internal/entity"
	"storyForge/internal/fieldfilter"
)

// Mode режим чата.
type Mode string

const (
	General    Mode = "general"
	Character  Mode = "character"
	World      Mode = "world"
	Project    Mode = "project"
	Scene      Mode = "scene"
	ChatWith   Mode = "chat_with"
	Brainstorm Mode = "brainstorm"
)

var ErrUnknownMode = errors.New("unknown mode")

// Split доли общего бюджета в процентах. Сумма не обязана быть 100:
// каждая доля считается от одного и того же общего бюджета.
type Split struct {
	Character int `yaml:"character" json:"character"`
	World     int `yaml:"world" json:"world"`
	Project   int `yaml:"project" json:"project"`
}

// Config настройки контекста для режима.
type Config struct {
	Mode      Mode                      `yaml:"-" json:"mode"`
	Character []fieldfilter.FieldConfig `yaml:"character" json:"character"`
	World     []fieldfilter.FieldConfig `yaml:"world" json:"world"`
	Project   []fieldfilter.FieldConfig `yaml:"project" json:"project"`
	Budget    Split                     `yaml:"budget" json:"budget"`
}

// Fields возвращает конфигурации полей для типа сущности.
func (c Config) Fields(kind entity.Kind) []fieldfilter.FieldConfig {
	switch kind {
	case entity.KindCharacter:
		return c.Character
	case entity.KindWorld:
		return c.World
	case entity.KindProject:
		return c.Project
	}
	return nil
}

func (c *Config) resolve() error {
	for _, group := range [][]fieldfilter.FieldConfig{c.Character, c.World, c.Project} {
		for i := range group {
			if err := group[i].Resolve(); err != nil {
				return err
			}
		}
	}
	for _, pct := range []int{c.Budget.Character, c.Budget.World, c.Budget.Project} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("budget percentage %d out of range 0..100", pct)
		}
	}
	return nil
}

// Budgets бюджеты в токенах по типам сущностей.
type Budgets struct {
	Character int `json:"character"`
	World     int `json:"world"`
	Project   int `json:"project"`
}

// For возвращает бюджет для типа сущности.
func (b Budgets) For(kind entity.Kind) int {
	switch kind {
	case entity.KindCharacter:
		return b.Character
	case entity.KindWorld:
		return b.World
	case entity.KindProject:
		return b.Project
	}
	return 0
}

// Registry набор конфигураций режимов.
type Registry struct {
	configs map[Mode]Config
}

// Get возвращает конфигурацию режима. Неизвестный режим получает
// конфигурацию general: режимы проверяются на границе через Parse.
func (r *Registry) Get(m Mode) Config {
	if cfg, ok := r.configs[m]; ok {
		return cfg
	}
	return r.configs[General]
}

// Parse проверяет имя режима.
func (r *Registry) Parse(s string) (Mode, error) {
	m := Mode(strings.TrimSpace(s))
	if m == "" {
		return General, nil
	}
	if _, ok := r.configs[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

// Modes возвращает все режимы в алфавитном порядке.
func (r *Registry) Modes() []Mode {
	out := make([]Mode, 0, len(r.configs))
	for m := range r.configs {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// EntityBudgets делит totalBudget по типам: floor(total * pct / 100) для
// каждого типа независимо.
func (r *Registry) EntityBudgets(m Mode, totalBudget int) Budgets {
	split := r.Get(m).Budget
	return Budgets{
		Character: share(totalBudget, split.Character),
		World:     share(totalBudget, split.World),
		Project:   share(totalBudget, split.Project),
	}
}

func share(total, pct int) int {
	if total <= 0 || pct <= 0 {
		return 0
	}
	return total * pct / 100
}

var defaultRegistry = mustBuild(builtin())

// Default встроенная таблица режимов.
func Default() *Registry {
	return defaultRegistry
}

// Get конфигурация режима из встроенной таблицы.
func Get(m Mode) Config {
	return defaultRegistry.Get(m)
}

// EntityBudgets бюджеты по встроенной таблице.
func EntityBudgets(m Mode, totalBudget int) Budgets {
	return defaultRegistry.EntityBudgets(m, totalBudget)
}

// ParseMode проверяет имя режима по встроенной таблице.
func ParseMode(s string) (Mode, error) {
	return defaultRegistry.Parse(s)
}

func mustBuild(configs map[Mode]Config) *Registry {
	r, err := build(configs)
	if err != nil {
		panic(err)
	}
	return r
}

func build(configs map[Mode]Config) (*Registry, error) {
	r := &Registry{configs: make(map[Mode]Config, len(configs))}
	for m, cfg := range configs {
		cfg.Mode = m
		if err := cfg.resolve(); err != nil {
			return nil, fmt.Errorf("mode %s: %w", m, err)
		}
		r.configs[m] = cfg
	}
	if _, ok := r.configs[General]; !ok {
		return nil, fmt.Errorf("mode %s is required", General)
	}
	return r, nil
}
