package entity

import "time"

// Entity общий интерфейс персонажа, мира и проекта.
type Entity interface {
	FieldSource
	EntityID() ID
	DisplayName() string
	AliasList() []string
}

// FieldSource отдаёт значение поля по его имени в JSON-представлении.
// Пустые значения (пустая строка, пустой список, nil) считаются отсутствующими.
type FieldSource interface {
	Field(name string) (any, bool)
}

// ObjectValue вложенный объект (например, VoiceProfile), который можно
// обрезать по ключам.
type ObjectValue interface {
	FieldSource
	Keys() []string
}

// CanonicalFact установленный факт о сущности.
type CanonicalFact struct {
	Fact      string    `json:"fact"`
	Category  string    `json:"category,omitempty"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// VoiceProfile манера речи персонажа.
type VoiceProfile struct {
	Tone           string   `json:"tone,omitempty"`
	Style          string   `json:"style,omitempty"`
	Vocabulary     string   `json:"vocabulary,omitempty"`
	SpeechPatterns []string `json:"speechPatterns,omitempty"`
	Quirks         []string `json:"quirks,omitempty"`
	SampleDialogue []string `json:"sampleDialogue,omitempty"`
}

// Character персонаж (#).
type Character struct {
	ID             ID              `json:"id"`
	Name           string          `json:"name"`
	Aliases        []string        `json:"aliases,omitempty"`
	Role           string          `json:"role,omitempty"`
	Genre          string          `json:"genre,omitempty"`
	CoreConcept    string          `json:"coreConcept,omitempty"`
	Appearance     string          `json:"appearance,omitempty"`
	Personality    string          `json:"personality,omitempty"`
	Backstory      string          `json:"backstory,omitempty"`
	Relationships  string          `json:"relationships,omitempty"`
	Arc            string          `json:"arc,omitempty"`
	Motivations    []string        `json:"motivations,omitempty"`
	Flaws          []string        `json:"flaws,omitempty"`
	Fears          []string        `json:"fears,omitempty"`
	Allies         []string        `json:"allies,omitempty"`
	Enemies        []string        `json:"enemies,omitempty"`
	VoiceProfile   *VoiceProfile   `json:"voiceProfile,omitempty"`
	CanonicalFacts []CanonicalFact `json:"canonicalFacts,omitempty"`
	Progress       int             `json:"progress,omitempty"`
	Phase          string          `json:"phase,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	IsStub         bool            `json:"isStub,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// World мир (@).
type World struct {
	ID             ID              `json:"id"`
	Name           string          `json:"name"`
	Aliases        []string        `json:"aliases,omitempty"`
	Genre          string          `json:"genre,omitempty"`
	Tone           string          `json:"tone,omitempty"`
	CoreConcept    string          `json:"coreConcept,omitempty"`
	Description    string          `json:"description,omitempty"`
	History        string          `json:"history,omitempty"`
	Rules          []string        `json:"rules,omitempty"`
	Locations      []string        `json:"locations,omitempty"`
	Factions       []string        `json:"factions,omitempty"`
	Societies      string          `json:"societies,omitempty"`
	MagicSystem    string          `json:"magicSystem,omitempty"`
	Technology     string          `json:"technology,omitempty"`
	CanonicalFacts []CanonicalFact `json:"canonicalFacts,omitempty"`
	Progress       int             `json:"progress,omitempty"`
	Phase          string          `json:"phase,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	IsStub         bool            `json:"isStub,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// TimelineEntry событие на временной шкале проекта.
type TimelineEntry struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	When        string `json:"when,omitempty"`
}

// Project проект ($).
type Project struct {
	ID           ID              `json:"id"`
	Name         string          `json:"name"`
	Aliases      []string        `json:"aliases,omitempty"`
	Genre        string          `json:"genre,omitempty"`
	Logline      string          `json:"logline,omitempty"`
	Summary      string          `json:"summary,omitempty"`
	Themes       []string        `json:"themes,omitempty"`
	Status       string          `json:"status,omitempty"`
	CharacterIDs []ID            `json:"characterIds,omitempty"`
	WorldIDs     []ID            `json:"worldIds,omitempty"`
	Timeline     []TimelineEntry `json:"timeline,omitempty"`
	Progress     int             `json:"progress,omitempty"`
	Phase        string          `json:"phase,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
	IsStub       bool            `json:"isStub,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func (c *Character) EntityID() ID        { return c.ID }
func (c *Character) DisplayName() string { return c.Name }
func (c *Character) AliasList() []string { return c.Aliases }

func (w *World) EntityID() ID        { return w.ID }
func (w *World) DisplayName() string { return w.Name }
func (w *World) AliasList() []string { return w.Aliases }

func (p *Project) EntityID() ID        { return p.ID }
func (p *Project) DisplayName() string { return p.Name }
func (p *Project) AliasList() []string { return p.Aliases }
