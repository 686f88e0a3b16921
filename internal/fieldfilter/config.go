// Package fieldfilter отбирает поля сущности по приоритетам так, чтобы они
// уложились в бюджет токенов.
package fieldfilter

import (
	"fmt"
	"strings"

	"storyForge/internal/entity"
)

// Priority приоритет поля.
type Priority string

const (
	High   Priority = "high"
	Medium Priority = "medium"
	Low    Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case High:
		return 0
	case Medium:
		return 1
	default:
		return 2
	}
}

// ParsePriority разбирает приоритет из конфигурации.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case High, Medium, Low:
		return p, nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// AccessorKind способ извлечения значения поля.
type AccessorKind int

const (
	// Direct поле самой сущности.
	Direct AccessorKind = iota + 1
	// Nested поле вложенного объекта на один уровень (voiceProfile.sampleDialogue).
	Nested
)

// Accessor разобранный путь к значению поля.
type Accessor struct {
	Kind  AccessorKind
	Field string
	Sub   string
}

// ParseAccessor разбирает путь вида "field" или "field.sub". Пустой путь
// означает прямое поле с именем field.
func ParseAccessor(field, path string) (Accessor, error) {
	if path == "" {
		path = field
	}
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return Accessor{}, fmt.Errorf("invalid field path %q", path)
		}
	}
	switch len(parts) {
	case 1:
		return Accessor{Kind: Direct, Field: parts[0]}, nil
	case 2:
		return Accessor{Kind: Nested, Field: parts[0], Sub: parts[1]}, nil
	}
	return Accessor{}, fmt.Errorf("field path %q is nested deeper than one level", path)
}

// Value извлекает значение из сущности.
func (a Accessor) Value(src entity.FieldSource) (any, bool) {
	v, ok := src.Field(a.Field)
	if !ok || a.Kind != Nested {
		return v, ok
	}
	nested, isSource := v.(entity.FieldSource)
	if !isSource {
		return nil, false
	}
	return nested.Field(a.Sub)
}

// FieldConfig декларативное правило включения поля в контекст.
type FieldConfig struct {
	Field    string   `yaml:"field"`
	Priority Priority `yaml:"priority"`
	Path     string   `yaml:"path,omitempty"`
	MaxItems int      `yaml:"maxItems,omitempty"`

	accessor Accessor
}

// F прямое поле с приоритетом.
func F(field string, priority Priority) FieldConfig {
	return FieldConfig{
		Field:    field,
		Priority: priority,
		accessor: Accessor{Kind: Direct, Field: field},
	}
}

// Nest поле, значение которого берётся по вложенному пути.
func Nest(field, path string, priority Priority) FieldConfig {
	cfg := FieldConfig{Field: field, Priority: priority, Path: path}
	if err := cfg.Resolve(); err != nil {
		panic(err)
	}
	return cfg
}

// Max ограничивает количество элементов списка.
func (c FieldConfig) Max(n int) FieldConfig {
	c.MaxItems = n
	return c
}

// Resolve проверяет конфигурацию и разбирает путь. Вызывается один раз при
// загрузке конфигурации.
func (c *FieldConfig) Resolve() error {
	if c.Field == "" {
		return fmt.Errorf("field config without field name")
	}
	p, err := ParsePriority(string(c.Priority))
	if err != nil {
		return fmt.Errorf("field %s: %w", c.Field, err)
	}
	c.Priority = p
	if c.MaxItems < 0 {
		return fmt.Errorf("field %s: negative maxItems", c.Field)
	}
	acc, err := ParseAccessor(c.Field, c.Path)
	if err != nil {
		return fmt.Errorf("field %s: %w", c.Field, err)
	}
	c.accessor = acc
	return nil
}

// Accessor возвращает разобранный путь; для неразобранной конфигурации это
// прямое поле Field.
func (c FieldConfig) Accessor() Accessor {
	if c.accessor.Kind == 0 {
		return Accessor{Kind: Direct, Field: c.Field}
	}
	return c.accessor
}
