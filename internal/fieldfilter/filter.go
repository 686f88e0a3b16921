package fieldfilter

import (
	"encoding"
	"errors"
	"reflect"
	"sort"

	"storyForge/internal/entity"
	"storyForge/internal/tokens"
)

// TruncationFloor минимальный остаток бюджета, начиная с которого поле
// высокого приоритета обрезается, а не отбрасывается.
const TruncationFloor = 50

var ErrInvalidEntity = errors.New("entity must have id and name")

// objectKeyOrder порядок ключей при обрезке вложенных объектов.
var objectKeyOrder = []string{
	"name", "summary", "description", "tone", "style", "vocabulary",
	"speechPatterns", "sampleDialogue", "quirks",
}

// Result отфильтрованная сущность.
type Result struct {
	Kind       entity.Kind    `json:"type"`
	ID         entity.ID      `json:"id"`
	Name       string         `json:"name"`
	Fields     map[string]any `json:"fields"`
	TokensUsed int            `json:"tokensUsed"`
	// Included поля в порядке включения.
	Included  []string `json:"includedFields"`
	Truncated []string `json:"truncatedFields"`
}

// Filter отбирает поля сущности по конфигурациям в пределах budget токенов.
// Поля high обрезаются, если остаток бюджета не меньше TruncationFloor;
// medium и low, не поместившиеся целиком, отбрасываются.
func Filter(e entity.Entity, configs []FieldConfig, budget int) (*Result, error) {
	if isNil(e) || e.EntityID().IsZero() || e.DisplayName() == "" {
		return nil, ErrInvalidEntity
	}

	id := e.EntityID()
	res := &Result{
		Kind:   id.Kind,
		ID:     id,
		Name:   e.DisplayName(),
		Fields: make(map[string]any),
	}

	ordered := make([]FieldConfig, len(configs))
	copy(ordered, configs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority.rank() < ordered[j].Priority.rank()
	})

	for _, cfg := range ordered {
		if res.TokensUsed >= budget {
			break
		}
		if _, dup := res.Fields[cfg.Field]; dup {
			continue
		}

		value, ok := cfg.Accessor().Value(e)
		if !ok || value == nil {
			continue
		}
		if cfg.MaxItems > 0 {
			value = capItems(value, cfg.MaxItems)
		}

		remaining := budget - res.TokensUsed
		cost := tokens.EstimateJSON(value)

		if cost <= remaining {
			res.Fields[cfg.Field] = value
			res.Included = append(res.Included, cfg.Field)
			res.TokensUsed += cost
			continue
		}

		if cfg.Priority != High || remaining < TruncationFloor {
			continue
		}

		truncated, tcost, ok := truncateValue(value, remaining)
		if !ok {
			continue
		}
		res.Fields[cfg.Field] = truncated
		res.Included = append(res.Included, cfg.Field)
		res.Truncated = append(res.Truncated, cfg.Field)
		res.TokensUsed += tcost
	}

	return res, nil
}

func isNil(e entity.Entity) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

func capItems(value any, max int) any {
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice || v.Len() <= max {
		return value
	}
	return v.Slice(0, max).Interface()
}

// truncateValue сокращает значение до maxTokens. Возвращает новое значение
// и его стоимость; ok=false, если ничего осмысленного не поместилось.
func truncateValue(value any, maxTokens int) (any, int, bool) {
	if s, ok := value.(string); ok {
		return truncateString(s, maxTokens)
	}
	if obj, ok := value.(entity.ObjectValue); ok {
		return truncateObject(obj, maxTokens)
	}
	if v := reflect.ValueOf(value); v.Kind() == reflect.Slice {
		return truncateSlice(v, maxTokens)
	}
	return nil, 0, false
}

func truncateString(s string, maxTokens int) (any, int, bool) {
	// две кавычки JSON
	chars := tokens.Chars(maxTokens) - 2
	for chars > len(tokens.Ellipsis) {
		cut := tokens.TruncateWords(s, chars)
		if cut == "" {
			break
		}
		if cost := tokens.EstimateJSON(cut); cost <= maxTokens {
			return cut, cost, true
		}
		// экранированные символы удлиняют JSON
		chars -= chars/10 + 1
	}
	return nil, 0, false
}

func truncateSlice(v reflect.Value, maxTokens int) (any, int, bool) {
	n := 0
	cost := 0
	for i := 1; i <= v.Len(); i++ {
		c := tokens.EstimateJSON(v.Slice(0, i).Interface())
		if c > maxTokens {
			break
		}
		n, cost = i, c
	}
	if n > 0 {
		return v.Slice(0, n).Interface(), cost, true
	}
	if v.Len() == 0 {
		return nil, 0, false
	}

	// даже первый элемент не помещается: обрезаем его самого
	first := v.Index(0)
	switch first.Kind() {
	case reflect.String:
		return fitString(first.String(), maxTokens, func(s string) any {
			one := reflect.MakeSlice(v.Type(), 1, 1)
			one.Index(0).SetString(s)
			return one.Interface()
		})
	case reflect.Struct:
		if out, c, ok := truncateStructItem(v.Type(), first, maxTokens); ok {
			return out, c, true
		}
	}

	// прочие элементы идут строкой с их JSON
	rendered, err := tokens.JSON(first.Interface())
	if err != nil {
		return nil, 0, false
	}
	return fitString(rendered, maxTokens, func(s string) any { return []string{s} })
}

// truncateStructItem обрезает самое длинное строковое поле элемента,
// остальные поля сохраняются.
func truncateStructItem(sliceType reflect.Type, item reflect.Value, maxTokens int) (any, int, bool) {
	if _, custom := item.Interface().(encoding.TextMarshaler); custom {
		return nil, 0, false
	}
	longest, size := -1, 0
	for i := 0; i < item.NumField(); i++ {
		f := item.Field(i)
		if f.Kind() != reflect.String || !item.Type().Field(i).IsExported() {
			continue
		}
		if l := len(f.String()); l > size {
			longest, size = i, l
		}
	}
	if longest < 0 {
		return nil, 0, false
	}
	return fitString(item.Field(longest).String(), maxTokens, func(s string) any {
		one := reflect.MakeSlice(sliceType, 1, 1)
		one.Index(0).Set(item)
		one.Index(0).Field(longest).SetString(s)
		return one.Interface()
	})
}

// fitString подбирает обрезку s так, чтобы build(обрезка) стоило не больше
// maxTokens.
func fitString(s string, maxTokens int, build func(string) any) (any, int, bool) {
	base := tokens.EstimateJSON(build(""))
	for room := maxTokens - base + 1; room > 0; room-- {
		cut, _, ok := truncateString(s, room)
		if !ok {
			return nil, 0, false
		}
		out := build(cut.(string))
		if c := tokens.EstimateJSON(out); c <= maxTokens {
			return out, c, true
		}
	}
	return nil, 0, false
}

func truncateObject(obj entity.ObjectValue, maxTokens int) (any, int, bool) {
	keys := orderedKeys(obj.Keys())
	out := make(map[string]any)
	cost := 0
	for _, k := range keys {
		v, ok := obj.Field(k)
		if !ok {
			continue
		}
		out[k] = v
		if c := tokens.EstimateJSON(out); c <= maxTokens {
			cost = c
			continue
		}

		// ключ целиком не помещается: обрезаем его значение
		out[k] = ""
		fitted := false
		for room := maxTokens - tokens.EstimateJSON(out) + 1; room > 0; room-- {
			tv, _, ok := truncateValue(v, room)
			if !ok {
				break
			}
			out[k] = tv
			if c := tokens.EstimateJSON(out); c <= maxTokens {
				cost, fitted = c, true
				break
			}
		}
		if !fitted {
			delete(out, k)
		}
	}
	if len(out) == 0 {
		return nil, 0, false
	}
	return out, cost, true
}

func orderedKeys(keys []string) []string {
	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	out := make([]string, 0, len(keys))
	for _, k := range objectKeyOrder {
		if present[k] {
			out = append(out, k)
			delete(present, k)
		}
	}
	for _, k := range keys {
		if present[k] {
			out = append(out, k)
		}
	}
	return out
}
