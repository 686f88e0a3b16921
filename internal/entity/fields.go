package entity

func text(s string) (any, bool) {
	return s, s != ""
}

func list[T any](l []T) (any, bool) {
	return l, len(l) > 0
}

func number(n int) (any, bool) {
	return n, n != 0
}

func (c *Character) Field(name string) (any, bool) {
	switch name {
	case "id":
		return c.ID.String(), !c.ID.IsZero()
	case "name":
		return text(c.Name)
	case "aliases":
		return list(c.Aliases)
	case "role":
		return text(c.Role)
	case "genre":
		return text(c.Genre)
	case "coreConcept":
		return text(c.CoreConcept)
	case "appearance":
		return text(c.Appearance)
	case "personality":
		return text(c.Personality)
	case "backstory":
		return text(c.Backstory)
	case "relationships":
		return text(c.Relationships)
	case "arc":
		return text(c.Arc)
	case "motivations":
		return list(c.Motivations)
	case "flaws":
		return list(c.Flaws)
	case "fears":
		return list(c.Fears)
	case "allies":
		return list(c.Allies)
	case "enemies":
		return list(c.Enemies)
	case "voiceProfile":
		if c.VoiceProfile == nil {
			return nil, false
		}
		return c.VoiceProfile, true
	case "canonicalFacts":
		return list(c.CanonicalFacts)
	case "progress":
		return number(c.Progress)
	case "phase":
		return text(c.Phase)
	case "tags":
		return list(c.Tags)
	}
	return nil, false
}

func (w *World) Field(name string) (any, bool) {
	switch name {
	case "id":
		return w.ID.String(), !w.ID.IsZero()
	case "name":
		return text(w.Name)
	case "aliases":
		return list(w.Aliases)
	case "genre":
		return text(w.Genre)
	case "tone":
		return text(w.Tone)
	case "coreConcept":
		return text(w.CoreConcept)
	case "description":
		return text(w.Description)
	case "history":
		return text(w.History)
	case "rules":
		return list(w.Rules)
	case "locations":
		return list(w.Locations)
	case "factions":
		return list(w.Factions)
	case "societies":
		return text(w.Societies)
	case "magicSystem":
		return text(w.MagicSystem)
	case "technology":
		return text(w.Technology)
	case "canonicalFacts":
		return list(w.CanonicalFacts)
	case "progress":
		return number(w.Progress)
	case "phase":
		return text(w.Phase)
	case "tags":
		return list(w.Tags)
	}
	return nil, false
}

func (p *Project) Field(name string) (any, bool) {
	switch name {
	case "id":
		return p.ID.String(), !p.ID.IsZero()
	case "name":
		return text(p.Name)
	case "aliases":
		return list(p.Aliases)
	case "genre":
		return text(p.Genre)
	case "logline":
		return text(p.Logline)
	case "summary":
		return text(p.Summary)
	case "themes":
		return list(p.Themes)
	case "status":
		return text(p.Status)
	case "characterIds":
		return list(p.CharacterIDs)
	case "worldIds":
		return list(p.WorldIDs)
	case "timeline":
		return list(p.Timeline)
	case "progress":
		return number(p.Progress)
	case "phase":
		return text(p.Phase)
	case "tags":
		return list(p.Tags)
	}
	return nil, false
}

var voiceProfileKeys = []string{"tone", "style", "vocabulary", "speechPatterns", "quirks", "sampleDialogue"}

func (v *VoiceProfile) Keys() []string {
	return voiceProfileKeys
}

func (v *VoiceProfile) Field(name string) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch name {
	case "tone":
		return text(v.Tone)
	case "style":
		return text(v.Style)
	case "vocabulary":
		return text(v.Vocabulary)
	case "speechPatterns":
		return list(v.SpeechPatterns)
	case "quirks":
		return list(v.Quirks)
	case "sampleDialogue":
		return list(v.SampleDialogue)
	}
	return nil, false
}
