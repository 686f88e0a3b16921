package budget

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"storyForge/internal/tokens"
)

func TestCompose_PriorityOrder(t *testing.T) {
	res := Compose([]Section{
		{ID: "low", Content: "low", Priority: 1},
		{ID: "high", Content: "high", Priority: 10},
		{ID: "mid", Content: "mid", Priority: 5},
	}, Options{MaxTokens: 100})

	assert.Equal(t, []string{"high", "mid", "low"}, res.Included)
	assert.Equal(t, "high\n\nmid\n\nlow", res.Content)
	assert.Empty(t, res.Dropped)
	assert.Equal(t, tokens.Estimate(res.Content), res.TotalTokens)
}

func TestCompose_ResponseBufferReserved(t *testing.T) {
	body := strings.Repeat("x", 40) // 10 токенов
	res := Compose([]Section{
		{ID: "a", Content: body, Priority: 2},
		{ID: "b", Content: body, Priority: 1},
	}, Options{MaxTokens: 25, ResponseBuffer: 10})

	assert.Equal(t, []string{"a"}, res.Included)
	assert.Equal(t, []string{"b"}, res.Dropped)
}

func TestCompose_TruncatesAtSentence(t *testing.T) {
	history := "First exchange went well. Second exchange was tense. Third one ended in a long argument about the map."
	res := Compose([]Section{
		{ID: "system", Content: strings.Repeat("s", 40), Priority: 100},
		{ID: "history", Content: history, Priority: 40, Truncatable: true, MinTokens: 5},
	}, Options{MaxTokens: 30, Separator: "\n"})

	assert.Equal(t, []string{"system", "history"}, res.Included)
	assert.Equal(t, []string{"history"}, res.Truncated)
	assert.LessOrEqual(t, res.TotalTokens, 30)
	assert.True(t, strings.HasSuffix(res.Content, "tense."), res.Content)
}

func TestCompose_BelowMinTokensDropped(t *testing.T) {
	res := Compose([]Section{
		{ID: "a", Content: strings.Repeat("a", 36), Priority: 2},
		{ID: "b", Content: strings.Repeat("b ", 100), Priority: 1, Truncatable: true, MinTokens: 20},
	}, Options{MaxTokens: 20})

	assert.Equal(t, []string{"a"}, res.Included)
	assert.Equal(t, []string{"b"}, res.Dropped)
	assert.Empty(t, res.Truncated)
}

func TestCompose_NonTruncatableDropped(t *testing.T) {
	res := Compose([]Section{
		{ID: "big", Content: strings.Repeat("word ", 100), Priority: 9},
		{ID: "small", Content: "fits", Priority: 1},
	}, Options{MaxTokens: 10})

	assert.Equal(t, []string{"big"}, res.Dropped)
	assert.Equal(t, []string{"small"}, res.Included)
	assert.Empty(t, res.Truncated)
}

func TestCompose_EmptyAndZeroBudget(t *testing.T) {
	res := Compose([]Section{
		{ID: "blank", Content: "  \n\t", Priority: 9},
		{ID: "body", Content: "text", Priority: 5},
		{ID: "none", Priority: 1},
	}, Options{MaxTokens: 10})
	assert.Equal(t, []string{"body"}, res.Included)
	assert.Equal(t, []string{"blank", "none"}, res.Dropped)
	assert.Equal(t, "text", res.Content)

	res = Compose([]Section{{ID: "x", Content: "text", Truncatable: true}}, Options{MaxTokens: 5, ResponseBuffer: 10})
	assert.Equal(t, []string{"x"}, res.Dropped)
	assert.Zero(t, res.TotalTokens)
}

func TestCompose_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(rt, "n")
		sections := make([]Section, n)
		for i := range sections {
			sections[i] = Section{
				ID:          string(rune('a' + i)),
				Content:     rapid.StringMatching(`[A-Za-z .\n]{0,300}`).Draw(rt, "content"),
				Priority:    rapid.IntRange(0, 100).Draw(rt, "priority"),
				Truncatable: rapid.Bool().Draw(rt, "truncatable"),
				MinTokens:   rapid.IntRange(0, 40).Draw(rt, "min"),
			}
		}
		opts := Options{
			MaxTokens:      rapid.IntRange(0, 400).Draw(rt, "max"),
			ResponseBuffer: rapid.IntRange(0, 100).Draw(rt, "buffer"),
			Separator:      rapid.SampledFrom([]string{"\n\n", "\n---\n", " | "}).Draw(rt, "sep"),
		}

		res := Compose(sections, opts)

		assert.LessOrEqual(rt, res.TotalTokens, opts.Available())

		truncatable := make(map[string]bool)
		for _, s := range sections {
			truncatable[s.ID] = s.Truncatable
		}
		for _, id := range res.Truncated {
			assert.True(rt, truncatable[id], "non-truncatable section %s was truncated", id)
		}
		for _, id := range res.Dropped {
			assert.NotContains(rt, res.Included, id)
		}
		assert.Len(rt, res.Included, n-len(res.Dropped), "every section is either included or dropped")
	})
}
