// Package budget упаковывает произвольные текстовые секции в бюджет токенов
// по приоритетам. О сущностях пакет ничего не знает.
package budget

import (
	"sort"
	"strings"

	"storyForge/internal/tokens"
)

// DefaultSeparator разделитель секций по умолчанию.
const DefaultSeparator = "\n\n"

// Section кусок промпта.
type Section struct {
	ID          string
	Content     string
	Priority    int
	Truncatable bool
	// MinTokens минимальный остаток бюджета, при котором секцию есть смысл
	// обрезать.
	MinTokens int
}

// Options параметры упаковки.
type Options struct {
	MaxTokens      int
	ResponseBuffer int
	Separator      string
}

// Result итог упаковки.
type Result struct {
	Content     string   `json:"content"`
	TotalTokens int      `json:"totalTokens"`
	Included    []string `json:"includedSections"`
	Truncated   []string `json:"truncatedSections"`
	Dropped     []string `json:"droppedSections"`
}

// Available бюджет после вычета резерва на ответ.
func (o Options) Available() int {
	if n := o.MaxTokens - o.ResponseBuffer; n > 0 {
		return n
	}
	return 0
}

// Compose раскладывает секции по убыванию приоритета и добавляет целиком,
// пока они помещаются вместе с разделителями. Не поместившаяся секция
// обрезается по границе абзаца или предложения, если она Truncatable и
// остаток не меньше её MinTokens; иначе отбрасывается. Секции с пустым
// содержимым тоже попадают в Dropped.
func Compose(sections []Section, opts Options) *Result {
	sep := opts.Separator
	if sep == "" {
		sep = DefaultSeparator
	}
	available := opts.Available()
	sepCost := tokens.Estimate(sep)

	ordered := make([]Section, len(sections))
	copy(ordered, sections)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	res := &Result{}
	var pieces []string
	used := 0

	for _, s := range ordered {
		if strings.TrimSpace(s.Content) == "" {
			res.Dropped = append(res.Dropped, s.ID)
			continue
		}
		overhead := 0
		if len(pieces) > 0 {
			overhead = sepCost
		}
		room := available - used - overhead
		cost := tokens.Estimate(s.Content)

		if cost <= room {
			pieces = append(pieces, s.Content)
			res.Included = append(res.Included, s.ID)
			used += overhead + cost
			continue
		}

		if s.Truncatable && room > 0 && room >= s.MinTokens {
			cut := tokens.TruncateToTokens(s.Content, room)
			if c := tokens.Estimate(cut); strings.TrimSpace(cut) != "" && c <= room {
				pieces = append(pieces, cut)
				res.Included = append(res.Included, s.ID)
				res.Truncated = append(res.Truncated, s.ID)
				used += overhead + c
				continue
			}
		}
		res.Dropped = append(res.Dropped, s.ID)
	}

	res.Content = strings.Join(pieces, sep)
	res.TotalTokens = tokens.Estimate(res.Content)
	return res
}
