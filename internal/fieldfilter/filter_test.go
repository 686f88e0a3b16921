package fieldfilter

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"storyForge/internal/entity"
	"storyForge/internal/tokens"
)

func newCharacter() *entity.Character {
	return &entity.Character{
		ID:          entity.MustParseID("#ANA"),
		Name:        "Ana",
		Role:        "protagonist",
		Backstory:   strings.Repeat("She grew up by the harbour and learned to sail. ", 40),
		Motivations: []string{"a", "b", "c", "d", "e", "f"},
		VoiceProfile: &entity.VoiceProfile{
			Tone:           "wry",
			SampleDialogue: []string{"Not today."},
		},
	}
}

func TestFilter_PriorityOrder(t *testing.T) {
	res, err := Filter(newCharacter(), []FieldConfig{
		F("motivations", Low),
		F("role", High),
		F("genre", High),
	}, 1000)
	require.NoError(t, err)

	assert.Equal(t, []string{"role", "motivations"}, res.Included, "missing genre is skipped silently")
	assert.Empty(t, res.Truncated)
	assert.Equal(t, "Ana", res.Name)
	assert.Equal(t, entity.KindCharacter, res.Kind)
}

func TestFilter_NestedPath(t *testing.T) {
	res, err := Filter(newCharacter(), []FieldConfig{
		Nest("sampleDialogue", "voiceProfile.sampleDialogue", High),
	}, 500)
	require.NoError(t, err)
	assert.Equal(t, []string{"Not today."}, res.Fields["sampleDialogue"])
}

func TestFilter_MaxItems(t *testing.T) {
	res, err := Filter(newCharacter(), []FieldConfig{F("motivations", Medium).Max(5)}, 500)
	require.NoError(t, err)
	assert.Len(t, res.Fields["motivations"], 5)
}

func TestFilter_HighPriorityTruncated(t *testing.T) {
	res, err := Filter(newCharacter(), []FieldConfig{F("backstory", High)}, 100)
	require.NoError(t, err)

	require.Contains(t, res.Fields, "backstory")
	assert.Equal(t, []string{"backstory"}, res.Truncated)
	assert.LessOrEqual(t, res.TokensUsed, 100)
	assert.True(t, strings.HasSuffix(res.Fields["backstory"].(string), tokens.Ellipsis))
}

func TestFilter_MediumDroppedNotTruncated(t *testing.T) {
	res, err := Filter(newCharacter(), []FieldConfig{F("backstory", Medium), F("role", Low)}, 100)
	require.NoError(t, err)

	assert.NotContains(t, res.Fields, "backstory")
	assert.Empty(t, res.Truncated)
	assert.Equal(t, []string{"role"}, res.Included)
}

func TestFilter_BelowFloorDropsHigh(t *testing.T) {
	// role стоит 4 токена, остаётся 49 < TruncationFloor
	res, err := Filter(newCharacter(), []FieldConfig{F("role", High), F("backstory", High)}, 53)
	require.NoError(t, err)

	assert.Equal(t, []string{"role"}, res.Included)
	assert.Empty(t, res.Truncated)
}

func TestFilter_ZeroBudget(t *testing.T) {
	res, err := Filter(newCharacter(), []FieldConfig{F("role", High)}, 0)
	require.NoError(t, err)
	assert.Empty(t, res.Included)
	assert.Zero(t, res.TokensUsed)
}

func TestFilter_ObjectTruncatedByKey(t *testing.T) {
	c := newCharacter()
	c.VoiceProfile.SampleDialogue = []string{strings.Repeat("Long line of dialogue. ", 60)}

	res, err := Filter(c, []FieldConfig{F("voiceProfile", High)}, 60)
	require.NoError(t, err)

	obj, ok := res.Fields["voiceProfile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "wry", obj["tone"])
	lines, ok := obj["sampleDialogue"].([]string)
	require.True(t, ok)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasSuffix(lines[0], tokens.Ellipsis))
	assert.Equal(t, []string{"voiceProfile"}, res.Truncated)
	assert.LessOrEqual(t, res.TokensUsed, 60)
}

func TestFilter_LongFactAndDialogueTruncated(t *testing.T) {
	c := newCharacter()
	c.CanonicalFacts = []entity.CanonicalFact{{
		Fact:     strings.Repeat("The harbour burned the winter she turned nine. ", 30),
		Category: "history",
	}}
	c.VoiceProfile.SampleDialogue = []string{strings.Repeat("You never listen to the tide, do you? ", 30)}

	res, err := Filter(c, []FieldConfig{F("canonicalFacts", High), F("voiceProfile", High)}, 200)
	require.NoError(t, err)

	require.Equal(t, []string{"canonicalFacts"}, res.Included)
	assert.Equal(t, []string{"canonicalFacts"}, res.Truncated)
	assert.LessOrEqual(t, res.TokensUsed, 200)
	assert.Greater(t, res.TokensUsed, 200-TruncationFloor)

	facts, ok := res.Fields["canonicalFacts"].([]entity.CanonicalFact)
	require.True(t, ok)
	require.Len(t, facts, 1)
	assert.Equal(t, "history", facts[0].Category)
	assert.True(t, strings.HasSuffix(facts[0].Fact, tokens.Ellipsis))

	res, err = Filter(c, []FieldConfig{F("voiceProfile", High), F("canonicalFacts", High)}, 200)
	require.NoError(t, err)

	require.Equal(t, []string{"voiceProfile"}, res.Included)
	assert.LessOrEqual(t, res.TokensUsed, 200)
	obj, ok := res.Fields["voiceProfile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "wry", obj["tone"])
	lines, ok := obj["sampleDialogue"].([]string)
	require.True(t, ok)
	require.Len(t, lines, 1)
	assert.NotEmpty(t, lines[0])
}

var characterFields = []string{
	"role", "genre", "coreConcept", "appearance", "personality", "backstory",
	"relationships", "arc", "motivations", "flaws", "fears", "allies", "enemies",
	"voiceProfile", "canonicalFacts", "tags",
}

func TestFilter_BudgetAndTruncationProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		prose := rapid.StringMatching(`[A-Za-z ,.!?"<>]{0,900}`)
		items := rapid.SliceOfN(rapid.StringMatching(`[a-z ]{1,120}`), 0, 12)
		facts := rapid.SliceOfN(prose, 0, 4)

		c := &entity.Character{
			ID:            entity.MustParseID("#P"),
			Name:          "P",
			Role:          prose.Draw(rt, "role"),
			Genre:         prose.Draw(rt, "genre"),
			CoreConcept:   prose.Draw(rt, "coreConcept"),
			Appearance:    prose.Draw(rt, "appearance"),
			Personality:   prose.Draw(rt, "personality"),
			Backstory:     prose.Draw(rt, "backstory"),
			Relationships: prose.Draw(rt, "relationships"),
			Arc:           prose.Draw(rt, "arc"),
			Motivations:   items.Draw(rt, "motivations"),
			Flaws:         items.Draw(rt, "flaws"),
			Fears:         items.Draw(rt, "fears"),
			Allies:        items.Draw(rt, "allies"),
			Enemies:       items.Draw(rt, "enemies"),
			Tags:          items.Draw(rt, "tags"),
			VoiceProfile: &entity.VoiceProfile{
				Tone:           prose.Draw(rt, "tone"),
				SampleDialogue: items.Draw(rt, "dialogue"),
				Quirks:         items.Draw(rt, "quirks"),
			},
		}
		for _, f := range facts.Draw(rt, "facts") {
			c.CanonicalFacts = append(c.CanonicalFacts, entity.CanonicalFact{Fact: f, Category: "history"})
		}

		priorities := []Priority{High, Medium, Low}
		var configs []FieldConfig
		byField := map[string]Priority{}
		for _, f := range characterFields {
			if !rapid.Bool().Draw(rt, "use_"+f) {
				continue
			}
			p := priorities[rapid.IntRange(0, 2).Draw(rt, "prio_"+f)]
			cfg := F(f, p)
			if rapid.Bool().Draw(rt, "cap_"+f) {
				cfg = cfg.Max(rapid.IntRange(1, 6).Draw(rt, "max_"+f))
			}
			configs = append(configs, cfg)
			byField[f] = p
		}
		budget := rapid.IntRange(0, 800).Draw(rt, "budget")

		res, err := Filter(c, configs, budget)
		require.NoError(rt, err)

		sum := 0
		for _, f := range res.Included {
			sum += tokens.EstimateJSON(res.Fields[f])
		}
		assert.Equal(rt, res.TokensUsed, sum)
		assert.LessOrEqual(rt, sum, budget+TruncationFloor)

		for _, f := range res.Truncated {
			assert.Equal(rt, High, byField[f], "only high-priority fields are truncated: %s", f)
		}

		// high-поле пропускается, только когда остаток ниже порога
		ordered := make([]FieldConfig, len(configs))
		copy(ordered, configs)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Priority.rank() < ordered[j].Priority.rank()
		})
		included := map[string]bool{}
		for _, f := range res.Included {
			included[f] = true
		}
		used := 0
		for _, cfg := range ordered {
			if included[cfg.Field] {
				used += tokens.EstimateJSON(res.Fields[cfg.Field])
				continue
			}
			v, ok := cfg.Accessor().Value(c)
			if cfg.Priority != High || !ok || v == nil {
				continue
			}
			assert.Less(rt, budget-used, TruncationFloor, "high-priority field dropped: %s", cfg.Field)
		}
	})
}
