// Package enrich разбирает ответ модели: находит упоминания известных
// сущностей, превращает их в ссылки и вытаскивает кандидатов в канонические
// факты. Всё на регулярных выражениях, без NLP.
package enrich

import (
	"sort"
	"time"
	"unicode"

	"github.com/dlclark/regexp2"

	"storyForge/internal/entity"
)

// matchTimeout ограничение на одно сопоставление.
const matchTimeout = 500 * time.Millisecond

// Reference найденное упоминание сущности.
type Reference struct {
	ID   entity.ID   `json:"entityId"`
	Kind entity.Kind `json:"type"`
	// Name каноническое имя, даже если совпал псевдоним.
	Name       string  `json:"name"`
	Matched    string  `json:"matchedName"`
	Mentions   int     `json:"mentions"`
	Confidence float64 `json:"confidence"`
}

// ExtractReferences ищет каждую сущность по имени и псевдонимам (границы
// слов, без учёта регистра). Побеждает первое совпавшее имя. Уверенность:
// 0.5 + min(0.1*n, 0.3) + 0.2*доля упоминаний с заглавной буквы.
// Результат отсортирован по убыванию уверенности.
func ExtractReferences(text string, refs []entity.Ref) []Reference {
	var out []Reference
	if text == "" {
		return out
	}

	for _, ref := range refs {
		for _, name := range ref.Names() {
			re := wordPattern(name)
			if re == nil {
				continue
			}
			total, capitalized := countMatches(re, text)
			if total == 0 {
				continue
			}
			out = append(out, Reference{
				ID:         ref.ID,
				Kind:       ref.ID.Kind,
				Name:       ref.Name,
				Matched:    name,
				Mentions:   total,
				Confidence: confidence(total, capitalized),
			})
			break
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

func confidence(total, capitalized int) float64 {
	if total <= 0 {
		return 0
	}
	c := 0.5 + min(0.1*float64(total), 0.3) + 0.2*float64(capitalized)/float64(total)
	return min(c, 1)
}

func wordPattern(name string) *regexp2.Regexp {
	re, err := regexp2.Compile(`\b`+regexp2.Escape(name)+`\b`, regexp2.IgnoreCase)
	if err != nil {
		return nil
	}
	re.MatchTimeout = matchTimeout
	return re
}

func countMatches(re *regexp2.Regexp, text string) (total, capitalized int) {
	m, err := re.FindStringMatch(text)
	for err == nil && m != nil {
		total++
		if s := m.String(); s != "" && unicode.IsUpper([]rune(s)[0]) {
			capitalized++
		}
		m, err = re.FindNextMatch(m)
	}
	return total, capitalized
}
