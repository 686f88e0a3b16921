package injection

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"storyForge/internal/entity"
	"storyForge/internal/fieldfilter"
	"storyForge/internal/tokens"
)

// FormatSection рендерит отфильтрованную сущность как секцию контекста.
func FormatSection(r *fieldfilter.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s: %s (%s)", Label(r.Kind.String()), r.Name, r.ID)
	for _, field := range r.Included {
		v := formatValue(r.Fields[field])
		if v == "" {
			continue
		}
		fmt.Fprintf(&b, "\n**%s:** %s", Label(field), v)
	}
	return b.String()
}

// Label превращает имя поля в заголовок: coreConcept -> Core Concept.
func Label(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i == 0 {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		if unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case []string:
		return strings.Join(val, "; ")
	case []entity.ID:
		ids := make([]string, len(val))
		for i, id := range val {
			ids[i] = id.String()
		}
		return strings.Join(ids, ", ")
	case []entity.CanonicalFact:
		facts := make([]string, len(val))
		for i, f := range val {
			facts[i] = f.Fact
		}
		return strings.Join(facts, "; ")
	case []entity.TimelineEntry:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = formatTimeline(e)
		}
		return strings.Join(parts, "; ")
	case entity.ObjectValue:
		return formatObject(val.Keys(), val.Field)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return formatObject(keys, func(k string) (any, bool) {
			x, ok := val[k]
			return x, ok
		})
	}
	s, err := tokens.JSON(v)
	if err != nil {
		return ""
	}
	return s
}

func formatObject(keys []string, get func(string) (any, bool)) string {
	var parts []string
	for _, k := range keys {
		v, ok := get(k)
		if !ok {
			continue
		}
		if s := formatValue(v); s != "" {
			parts = append(parts, Label(k)+": "+s)
		}
	}
	return strings.Join(parts, " | ")
}

func formatTimeline(e entity.TimelineEntry) string {
	s := e.Title
	if e.When != "" {
		s += " (" + e.When + ")"
	}
	if e.Description != "" {
		s += ": " + e.Description
	}
	return s
}
