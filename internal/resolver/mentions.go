package resolver

import (
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"storyForge/internal/entity"
)

// Mention размеченное упоминание [@Name](kind:ID).
type Mention struct {
	Name string
	ID   entity.ID
}

var (
	markupPattern = regexp2.MustCompile(`\[@([^\]\n]+)\]\((character|world|project):([#@$][A-Z0-9_]+)\)`, regexp2.None)
	barePattern   = regexp2.MustCompile(`(?<![\w@#$:\[])@(\p{L}[\p{L}\p{N}_'-]*(?: \p{Lu}[\p{L}\p{N}_'-]*)*)`, regexp2.None)
)

// fuzzyMinLen имена короче этого сравниваются только точно и по префиксу.
const (
	fuzzyMinLen      = 5
	fuzzyMaxDistance = 2
)

// ParseMentionMarkup извлекает размеченные упоминания. Разметка, где тип
// не совпадает с сигилом ID, пропускается.
func ParseMentionMarkup(text string) []Mention {
	var out []Mention
	m, err := markupPattern.FindStringMatch(text)
	for err == nil && m != nil {
		groups := m.Groups()
		kind, kerr := entity.ParseKind(groups[2].String())
		id, ierr := entity.ParseID(groups[3].String())
		if kerr == nil && ierr == nil && id.Kind == kind {
			out = append(out, Mention{Name: strings.TrimSpace(groups[1].String()), ID: id})
		}
		m, err = markupPattern.FindNextMatch(m)
	}
	return out
}

// FindBareMentions возвращает имена из голых упоминаний @Имя вне разметки.
// Имя может состоять из нескольких слов, каждое следующее с заглавной.
func FindBareMentions(text string) []string {
	var out []string
	m, err := barePattern.FindStringMatch(text)
	for err == nil && m != nil {
		name := strings.TrimRight(m.GroupByNumber(1).String(), "'-")
		if name != "" {
			out = append(out, name)
		}
		m, err = barePattern.FindNextMatch(m)
	}
	return out
}

// MatchMention ищет сущность по имени упоминания: точное совпадение имени
// или псевдонима, затем единственный префикс, затем ближайшее имя по
// расстоянию Левенштейна (не больше 2, только для имён от 5 символов).
func MatchMention(name string, refs []entity.Ref) (entity.Ref, bool) {
	needle := normalize(name)
	if needle == "" {
		return entity.Ref{}, false
	}

	for _, ref := range refs {
		for _, n := range ref.Names() {
			if normalize(n) == needle {
				return ref, true
			}
		}
	}

	var prefixed []entity.Ref
	for _, ref := range refs {
		for _, n := range ref.Names() {
			if strings.HasPrefix(normalize(n), needle+" ") {
				prefixed = append(prefixed, ref)
				break
			}
		}
	}
	if len(prefixed) == 1 {
		return prefixed[0], true
	}

	if utf8.RuneCountInString(needle) < fuzzyMinLen {
		return entity.Ref{}, false
	}
	var (
		best     entity.Ref
		bestDist = fuzzyMaxDistance + 1
		tie      bool
	)
	for _, ref := range refs {
		for _, n := range ref.Names() {
			d := levenshtein(needle, normalize(n))
			switch {
			case d < bestDist:
				best, bestDist, tie = ref, d, false
			case d == bestDist && ref.ID != best.ID:
				tie = true
			}
		}
	}
	if bestDist > fuzzyMaxDistance || tie {
		return entity.Ref{}, false
	}
	return best, true
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// levenshtein расстояние редактирования по рунам, одна строка матрицы.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}

	previous := make([]int, len(ra)+1)
	for i := range previous {
		previous[i] = i
	}
	for j := 1; j <= len(rb); j++ {
		current := make([]int, len(ra)+1)
		current[0] = j
		for i := 1; i <= len(ra); i++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			current[i] = min(previous[i]+1, current[i-1]+1, previous[i-1]+cost)
		}
		previous = current
	}
	return previous[len(ra)]
}
