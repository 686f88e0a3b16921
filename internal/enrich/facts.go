package enrich

import (
	"strings"

	"github.com/dlclark/regexp2"

	"storyForge/internal/entity"
)

// Category категория канонического факта.
type Category string

const (
	CategoryPhysical     Category = "physical"
	CategoryPersonality  Category = "personality"
	CategoryHistory      Category = "history"
	CategoryRelationship Category = "relationship"
	CategoryAbility      Category = "ability"
	CategoryPossession   Category = "possession"
	CategoryOther        Category = "other"
)

// ConfidenceDefinite единственная метка уверенности, которую ставит детектор.
const ConfidenceDefinite = "definite"

// FactUpdate кандидат в канонический факт.
type FactUpdate struct {
	EntityID   entity.ID `json:"entityId"`
	EntityName string    `json:"entityName"`
	Fact       string    `json:"fact"`
	Category   Category  `json:"category"`
	Confidence string    `json:"confidence"`
	Sentence   string    `json:"sentence"`
}

// factPatterns шаблоны, {name} подставляется экранированным именем.
// Первая группа всегда захватывает весь факт.
var factPatterns = []string{
	`(\b{name}(?:'s)?\s+(?:hair|eyes|skin|face|voice|height|build|scar|scars)\s+(?:is|are|was|were)\s+[^.,;!?]+)`,
	`(\b{name}\s+(?:has|had)\s+(?:a\s+|an\s+)?[^.,;!?]+)`,
	`(\b{name}\s+(?:is|was)\s+(?!not\b)[^.,;!?]+)`,
	`(\b{name}\s+(?:can|could|owns|owned|carries|carried|wears|wore)\s+[^.,;!?]+)`,
}

var categoryKeywords = []struct {
	category Category
	words    []string
}{
	{CategoryPhysical, []string{"hair", "eyes", "skin", "face", "tall", "short", "scar", "height", "build", "wears", "wore", "voice"}},
	{CategoryRelationship, []string{"brother", "sister", "mother", "father", "son", "daughter", "friend", "enemy", "rival", "married", "wife", "husband", "lover", "mentor", "ally"}},
	{CategoryHistory, []string{"born", "grew up", "raised", "years ago", "used to", "once", "former", "served"}},
	{CategoryAbility, []string{"can ", "could ", "able to", "skilled", "magic", "power", "fight", "trained"}},
	{CategoryPossession, []string{"owns", "owned", "carries", "carried", "sword", "ship", "ring", "house"}},
	{CategoryPersonality, []string{"brave", "kind", "cruel", "shy", "stubborn", "loyal", "afraid", "angry", "proud", "honest", "cunning", "curious"}},
}

var sentenceSplit = regexp2.MustCompile(`[^.!?\n]+[.!?]*`, regexp2.None)

// DetectFactUpdates режет текст на предложения и для предложений с
// упоминанием известной сущности применяет набор шаблонов. Это
// эвристика: ложные срабатывания ожидаемы. Текст без упоминаний даёт
// пустой список.
func DetectFactUpdates(text string, refs []entity.Ref) []FactUpdate {
	var out []FactUpdate
	if strings.TrimSpace(text) == "" || len(refs) == 0 {
		return out
	}

	seen := make(map[string]bool)
	for _, sentence := range splitSentences(text) {
		for _, ref := range refs {
			for _, name := range ref.Names() {
				for _, fact := range matchFacts(sentence, name) {
					key := ref.ID.String() + "|" + strings.ToLower(fact)
					if seen[key] {
						continue
					}
					seen[key] = true
					out = append(out, FactUpdate{
						EntityID:   ref.ID,
						EntityName: ref.Name,
						Fact:       fact,
						Category:   Categorize(fact),
						Confidence: ConfidenceDefinite,
						Sentence:   sentence,
					})
				}
			}
		}
	}
	return out
}

// Categorize определяет категорию факта по ключевым словам.
func Categorize(fact string) Category {
	lower := strings.ToLower(fact) + " "
	for _, group := range categoryKeywords {
		for _, w := range group.words {
			if strings.Contains(lower, w) {
				return group.category
			}
		}
	}
	return CategoryOther
}

func splitSentences(text string) []string {
	var out []string
	m, err := sentenceSplit.FindStringMatch(text)
	for err == nil && m != nil {
		if s := strings.TrimSpace(m.String()); s != "" {
			out = append(out, s)
		}
		m, err = sentenceSplit.FindNextMatch(m)
	}
	return out
}

func matchFacts(sentence, name string) []string {
	escaped := regexp2.Escape(name)
	var facts []string
	for _, p := range factPatterns {
		re, err := regexp2.Compile(strings.ReplaceAll(p, "{name}", escaped), regexp2.IgnoreCase)
		if err != nil {
			continue
		}
		re.MatchTimeout = matchTimeout
		m, err := re.FindStringMatch(sentence)
		if err != nil || m == nil {
			continue
		}
		if fact := strings.TrimSpace(m.GroupByNumber(1).String()); fact != "" {
			facts = append(facts, fact)
		}
	}
	return facts
}
