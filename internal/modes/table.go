package modes

import (
	ff "storyForge/internal/fieldfilter"
)

func builtin() map[Mode]Config {
	return map[Mode]Config{
		General: {
			Character: []ff.FieldConfig{
				ff.F("role", ff.High),
				ff.F("coreConcept", ff.High),
				ff.F("personality", ff.Medium),
				ff.F("motivations", ff.Medium).Max(3),
				ff.F("backstory", ff.Low),
				ff.F("tags", ff.Low).Max(5),
			},
			World: []ff.FieldConfig{
				ff.F("genre", ff.High),
				ff.F("coreConcept", ff.High),
				ff.F("description", ff.Medium),
				ff.F("rules", ff.Low).Max(3),
			},
			Project: []ff.FieldConfig{
				ff.F("logline", ff.High),
				ff.F("genre", ff.High),
				ff.F("summary", ff.Medium),
				ff.F("themes", ff.Low).Max(3),
			},
			Budget: Split{Character: 40, World: 30, Project: 30},
		},

		Character: {
			Character: []ff.FieldConfig{
				ff.F("role", ff.High),
				ff.F("coreConcept", ff.High),
				ff.F("personality", ff.High),
				ff.F("backstory", ff.High),
				ff.F("motivations", ff.Medium).Max(5),
				ff.F("flaws", ff.Medium).Max(5),
				ff.F("fears", ff.Medium).Max(5),
				ff.F("arc", ff.Medium),
				ff.F("relationships", ff.Medium),
				ff.F("appearance", ff.Low),
				ff.F("voiceProfile", ff.Low),
				ff.F("canonicalFacts", ff.Low).Max(10),
				ff.F("phase", ff.Low),
			},
			World: []ff.FieldConfig{
				ff.F("genre", ff.High),
				ff.F("tone", ff.Medium),
				ff.F("societies", ff.Low),
			},
			Project: []ff.FieldConfig{
				ff.F("logline", ff.High),
				ff.F("themes", ff.Low).Max(3),
			},
			Budget: Split{Character: 70, World: 15, Project: 15},
		},

		World: {
			Character: []ff.FieldConfig{
				ff.F("role", ff.High),
				ff.F("coreConcept", ff.Medium),
			},
			World: []ff.FieldConfig{
				ff.F("genre", ff.High),
				ff.F("tone", ff.High),
				ff.F("coreConcept", ff.High),
				ff.F("description", ff.High),
				ff.F("rules", ff.High).Max(10),
				ff.F("history", ff.Medium),
				ff.F("locations", ff.Medium).Max(8),
				ff.F("factions", ff.Medium).Max(8),
				ff.F("societies", ff.Medium),
				ff.F("magicSystem", ff.Medium),
				ff.F("technology", ff.Medium),
				ff.F("canonicalFacts", ff.Low).Max(10),
			},
			Project: []ff.FieldConfig{
				ff.F("logline", ff.High),
				ff.F("genre", ff.Medium),
			},
			Budget: Split{Character: 15, World: 70, Project: 15},
		},

		Project: {
			Character: []ff.FieldConfig{
				ff.F("role", ff.High),
				ff.F("coreConcept", ff.Medium),
				ff.F("arc", ff.Low),
			},
			World: []ff.FieldConfig{
				ff.F("genre", ff.High),
				ff.F("coreConcept", ff.Medium),
			},
			Project: []ff.FieldConfig{
				ff.F("logline", ff.High),
				ff.F("summary", ff.High),
				ff.F("genre", ff.High),
				ff.F("themes", ff.Medium).Max(5),
				ff.F("timeline", ff.Medium).Max(10),
				ff.F("status", ff.Low),
				ff.F("phase", ff.Low),
			},
			Budget: Split{Character: 25, World: 25, Project: 50},
		},

		Scene: {
			Character: []ff.FieldConfig{
				ff.F("role", ff.High),
				ff.F("personality", ff.High),
				ff.F("appearance", ff.Medium),
				ff.F("motivations", ff.Medium).Max(3),
				ff.F("relationships", ff.Medium),
				ff.Nest("speechPatterns", "voiceProfile.speechPatterns", ff.Medium).Max(3),
				ff.F("fears", ff.Low).Max(3),
			},
			World: []ff.FieldConfig{
				ff.F("tone", ff.High),
				ff.F("locations", ff.High).Max(5),
				ff.F("description", ff.Medium),
				ff.F("rules", ff.Medium).Max(5),
				ff.F("technology", ff.Low),
				ff.F("magicSystem", ff.Low),
			},
			Project: []ff.FieldConfig{
				ff.F("logline", ff.Medium),
				ff.F("timeline", ff.Low).Max(5),
			},
			Budget: Split{Character: 50, World: 35, Project: 15},
		},

		ChatWith: {
			Character: []ff.FieldConfig{
				ff.F("personality", ff.High),
				ff.F("voiceProfile", ff.High),
				ff.Nest("sampleDialogue", "voiceProfile.sampleDialogue", ff.High).Max(5),
				ff.F("backstory", ff.High),
				ff.F("motivations", ff.Medium).Max(5),
				ff.F("fears", ff.Medium).Max(5),
				ff.F("relationships", ff.Medium),
				ff.F("canonicalFacts", ff.Medium).Max(10),
				ff.F("flaws", ff.Low).Max(5),
				ff.F("allies", ff.Low).Max(5),
				ff.F("enemies", ff.Low).Max(5),
			},
			World: []ff.FieldConfig{
				ff.F("tone", ff.High),
				ff.F("description", ff.Medium),
				ff.F("societies", ff.Low),
			},
			Project: []ff.FieldConfig{
				ff.F("logline", ff.Medium),
			},
			Budget: Split{Character: 85, World: 10, Project: 5},
		},

		Brainstorm: {
			Character: []ff.FieldConfig{
				ff.F("role", ff.High),
				ff.F("coreConcept", ff.High),
				ff.F("arc", ff.Medium),
				ff.F("flaws", ff.Medium).Max(3),
				ff.F("motivations", ff.Low).Max(3),
			},
			World: []ff.FieldConfig{
				ff.F("coreConcept", ff.High),
				ff.F("genre", ff.High),
				ff.F("factions", ff.Medium).Max(5),
				ff.F("rules", ff.Low).Max(5),
			},
			Project: []ff.FieldConfig{
				ff.F("logline", ff.High),
				ff.F("summary", ff.Medium),
				ff.F("themes", ff.Medium).Max(5),
			},
			Budget: Split{Character: 35, World: 35, Project: 30},
		},
	}
}
