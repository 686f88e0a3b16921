package enrich

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"storyForge/internal/entity"
)

// Link разметка упоминания: [@Name](character:#ID).
func Link(name string, id entity.ID) string {
	return fmt.Sprintf("[@%s](%s:%s)", name, id.Kind, id)
}

// linkGuard не даёт заворачивать уже размеченные упоминания: перед именем
// не должно быть "[", "@" или сигила, внутри [..] и внутри (kind:ID)
// совпадения игнорируются. Обычные скобки, как в "(Ana)", не мешают.
const (
	linkBefore = `(?<![\w@#$:\[])@?`
	linkAfter  = `(?!\w)(?![^\[\]\n]*\])(?![^()\s]*:[#@$][A-Z0-9_]+\))`
)

type namedRef struct {
	name string
	id   entity.ID
}

// EnrichWithLinks заменяет голые упоминания сущностей на ссылки. Имена
// обрабатываются от длинных к коротким, чтобы "Ana Maria" не превратилась
// в ссылку на "Ana". Повторное применение ничего не меняет.
func EnrichWithLinks(text string, refs []entity.Ref) string {
	var names []namedRef
	for _, ref := range refs {
		for _, n := range ref.Names() {
			names = append(names, namedRef{name: n, id: ref.ID})
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		return utf8.RuneCountInString(names[i].name) > utf8.RuneCountInString(names[j].name)
	})

	for _, n := range names {
		re, err := regexp2.Compile(linkBefore+regexp2.Escape(n.name)+linkAfter, regexp2.IgnoreCase)
		if err != nil {
			continue
		}
		re.MatchTimeout = matchTimeout

		id := n.id
		replaced, err := re.ReplaceFunc(text, func(m regexp2.Match) string {
			s := m.String()
			if len(s) > 0 && s[0] == '@' {
				s = s[1:]
			}
			return Link(s, id)
		}, -1, -1)
		if err != nil {
			continue
		}
		text = replaced
	}
	return text
}
