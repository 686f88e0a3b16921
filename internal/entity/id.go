// Package entity описывает сущности писательского проекта: персонажей, миры и проекты.
// Тип сущности определяется единственным символом-префиксом идентификатора
// (#, @, $) и разбирается один раз на границе системы в ID.
package entity

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Kind тип сущности.
type Kind int

const (
	KindCharacter Kind = iota + 1
	KindWorld
	KindProject
)

// Kinds перечисляет все типы в порядке, в котором они выводятся в контексте.
var Kinds = []Kind{KindCharacter, KindWorld, KindProject}

var ErrInvalidID = errors.New("invalid entity id")

// IDPattern формат идентификатора сущности.
var IDPattern = regexp.MustCompile(`^[#@$][A-Z0-9_]+$`)

func (k Kind) String() string {
	switch k {
	case KindCharacter:
		return "character"
	case KindWorld:
		return "world"
	case KindProject:
		return "project"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Sigil возвращает символ-префикс идентификатора для типа.
func (k Kind) Sigil() byte {
	switch k {
	case KindCharacter:
		return '#'
	case KindWorld:
		return '@'
	case KindProject:
		return '$'
	default:
		return 0
	}
}

// ParseKind разбирает имя типа из разметки упоминаний (character|world|project).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "character":
		return KindCharacter, nil
	case "world":
		return KindWorld, nil
	case "project":
		return KindProject, nil
	}
	return 0, fmt.Errorf("unknown entity kind %q", s)
}

func kindFromSigil(c byte) (Kind, bool) {
	switch c {
	case '#':
		return KindCharacter, true
	case '@':
		return KindWorld, true
	case '$':
		return KindProject, true
	}
	return 0, false
}

// ID идентификатор сущности: тип плюс код без префикса.
type ID struct {
	Kind Kind
	Code string
}

// ParseID разбирает строку вида #ABC_123 / @WORLD_1 / $PROJECT_789.
func ParseID(s string) (ID, error) {
	if !IDPattern.MatchString(s) {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	kind, _ := kindFromSigil(s[0])
	return ID{Kind: kind, Code: s[1:]}, nil
}

// MustParseID как ParseID, но паникует на ошибке. Только для литералов.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// NewID собирает идентификатор из типа и кода.
func NewID(kind Kind, code string) (ID, error) {
	if kind.Sigil() == 0 {
		return ID{}, fmt.Errorf("%w: unknown kind", ErrInvalidID)
	}
	return ParseID(string(kind.Sigil()) + code)
}

func (id ID) String() string {
	if id.IsZero() {
		return ""
	}
	return string(id.Kind.Sigil()) + id.Code
}

func (id ID) IsZero() bool {
	return id.Kind == 0 || id.Code == ""
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*id = ID{}
		return nil
	}
	parsed, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseIDs разбирает список строк, возвращая корректные идентификаторы и
// отвергнутые строки отдельно.
func ParseIDs(raw []string) (ids []ID, rejected []string) {
	for _, s := range raw {
		id, err := ParseID(strings.TrimSpace(s))
		if err != nil {
			rejected = append(rejected, s)
			continue
		}
		ids = append(ids, id)
	}
	return ids, rejected
}
