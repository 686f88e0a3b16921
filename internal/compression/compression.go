// Package compression простое сжатие сущностей до фиксированных длин полей.
// Приоритеты и конфигурации режимов здесь не используются.
package compression

import (
	"fmt"
	"strings"

	"storyForge/internal/entity"
	"storyForge/internal/tokens"
)

// Лимиты полей в символах.
const (
	CoreConceptLimit   = 200
	BackstoryLimit     = 500
	PersonalityLimit   = 300
	AppearanceLimit    = 200
	ArcLimit           = 250
	DescriptionLimit   = 400
	HistoryLimit       = 400
	RulesLimit         = 300
	SummaryLimit       = 500
	LoglineLimit       = 200
	MagicSystemLimit   = 250
	TechnologyLimit    = 250
	RelationshipsLimit = 250
)

// MaxListItems сколько элементов списка попадает в сжатое представление.
const MaxListItems = 5

// Character сжатый персонаж.
type Character struct {
	ID          entity.ID `json:"id"`
	Name        string    `json:"name"`
	Role        string    `json:"role,omitempty"`
	CoreConcept string    `json:"coreConcept,omitempty"`
	Personality string    `json:"personality,omitempty"`
	Appearance  string    `json:"appearance,omitempty"`
	Backstory   string    `json:"backstory,omitempty"`
	Arc         string    `json:"arc,omitempty"`
	Motivations []string  `json:"motivations,omitempty"`
	Flaws       []string  `json:"flaws,omitempty"`
	Tone        string    `json:"voiceTone,omitempty"`
}

// World сжатый мир.
type World struct {
	ID          entity.ID `json:"id"`
	Name        string    `json:"name"`
	Genre       string    `json:"genre,omitempty"`
	Tone        string    `json:"tone,omitempty"`
	CoreConcept string    `json:"coreConcept,omitempty"`
	Description string    `json:"description,omitempty"`
	History     string    `json:"history,omitempty"`
	Rules       string    `json:"rules,omitempty"`
	MagicSystem string    `json:"magicSystem,omitempty"`
	Technology  string    `json:"technology,omitempty"`
	Locations   []string  `json:"locations,omitempty"`
	Factions    []string  `json:"factions,omitempty"`
}

// Project сжатый проект.
type Project struct {
	ID         entity.ID `json:"id"`
	Name       string    `json:"name"`
	Genre      string    `json:"genre,omitempty"`
	Logline    string    `json:"logline,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	Themes     []string  `json:"themes,omitempty"`
	Characters int       `json:"characterCount,omitempty"`
	Worlds     int       `json:"worldCount,omitempty"`
}

func clip(text string, limit int) string {
	return tokens.TruncateAtBoundary(strings.TrimSpace(text), limit)
}

func head(list []string) []string {
	if len(list) <= MaxListItems {
		return list
	}
	return list[:MaxListItems]
}

func CompressCharacter(c *entity.Character) Character {
	out := Character{
		ID:          c.ID,
		Name:        c.Name,
		Role:        c.Role,
		CoreConcept: clip(c.CoreConcept, CoreConceptLimit),
		Personality: clip(c.Personality, PersonalityLimit),
		Appearance:  clip(c.Appearance, AppearanceLimit),
		Backstory:   clip(c.Backstory, BackstoryLimit),
		Arc:         clip(c.Arc, ArcLimit),
		Motivations: head(c.Motivations),
		Flaws:       head(c.Flaws),
	}
	if c.VoiceProfile != nil {
		out.Tone = c.VoiceProfile.Tone
	}
	return out
}

func CompressWorld(w *entity.World) World {
	return World{
		ID:          w.ID,
		Name:        w.Name,
		Genre:       w.Genre,
		Tone:        w.Tone,
		CoreConcept: clip(w.CoreConcept, CoreConceptLimit),
		Description: clip(w.Description, DescriptionLimit),
		History:     clip(w.History, HistoryLimit),
		Rules:       clip(strings.Join(w.Rules, "; "), RulesLimit),
		MagicSystem: clip(w.MagicSystem, MagicSystemLimit),
		Technology:  clip(w.Technology, TechnologyLimit),
		Locations:   head(w.Locations),
		Factions:    head(w.Factions),
	}
}

func CompressProject(p *entity.Project) Project {
	return Project{
		ID:         p.ID,
		Name:       p.Name,
		Genre:      p.Genre,
		Logline:    clip(p.Logline, LoglineLimit),
		Summary:    clip(p.Summary, SummaryLimit),
		Themes:     head(p.Themes),
		Characters: len(p.CharacterIDs),
		Worlds:     len(p.WorldIDs),
	}
}

// Markdown рендер по фиксированному шаблону, пустые поля пропускаются.
func (c Character) Markdown() string {
	var b mdBuilder
	b.title("Character", c.Name, c.ID)
	b.line("Role", c.Role)
	b.line("Core Concept", c.CoreConcept)
	b.line("Personality", c.Personality)
	b.line("Appearance", c.Appearance)
	b.line("Backstory", c.Backstory)
	b.line("Arc", c.Arc)
	b.list("Motivations", c.Motivations)
	b.list("Flaws", c.Flaws)
	b.line("Voice", c.Tone)
	return b.String()
}

func (w World) Markdown() string {
	var b mdBuilder
	b.title("World", w.Name, w.ID)
	b.line("Genre", w.Genre)
	b.line("Tone", w.Tone)
	b.line("Core Concept", w.CoreConcept)
	b.line("Description", w.Description)
	b.line("History", w.History)
	b.line("Rules", w.Rules)
	b.line("Magic", w.MagicSystem)
	b.line("Technology", w.Technology)
	b.list("Locations", w.Locations)
	b.list("Factions", w.Factions)
	return b.String()
}

func (p Project) Markdown() string {
	var b mdBuilder
	b.title("Project", p.Name, p.ID)
	b.line("Genre", p.Genre)
	b.line("Logline", p.Logline)
	b.line("Summary", p.Summary)
	b.list("Themes", p.Themes)
	if p.Characters > 0 || p.Worlds > 0 {
		b.line("Cast", fmt.Sprintf("%d characters, %d worlds", p.Characters, p.Worlds))
	}
	return b.String()
}

// Set сжимает набор сущностей в один Markdown-документ.
func Set(set entity.Set) string {
	var parts []string
	for _, c := range set.Characters {
		parts = append(parts, CompressCharacter(c).Markdown())
	}
	for _, w := range set.Worlds {
		parts = append(parts, CompressWorld(w).Markdown())
	}
	for _, p := range set.Projects {
		parts = append(parts, CompressProject(p).Markdown())
	}
	return strings.Join(parts, "\n\n")
}

type mdBuilder struct {
	strings.Builder
}

func (b *mdBuilder) title(kind, name string, id entity.ID) {
	fmt.Fprintf(b, "## %s: %s", kind, name)
	if !id.IsZero() {
		fmt.Fprintf(b, " (%s)", id)
	}
}

func (b *mdBuilder) line(label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "\n- **%s:** %s", label, value)
}

func (b *mdBuilder) list(label string, values []string) {
	if len(values) == 0 {
		return
	}
	b.line(label, strings.Join(values, ", "))
}
