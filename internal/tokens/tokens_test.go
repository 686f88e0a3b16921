package tokens

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestEstimate(t *testing.T) {
	assert.Equal(t, 0, Estimate(""))
	assert.Equal(t, 1, Estimate("a"))
	assert.Equal(t, 1, Estimate("abcd"))
	assert.Equal(t, 2, Estimate("abcde"))
	assert.Equal(t, 2, Estimate("привет"), "counts runes, not bytes")
}

func TestEstimateJSON(t *testing.T) {
	// "a<b" -> 5 символов в JSON без экранирования HTML
	assert.Equal(t, 2, EstimateJSON("a<b"))
	assert.Equal(t, Estimate(`["x","y"]`), EstimateJSON([]string{"x", "y"}))
	assert.Equal(t, 0, EstimateJSON(func() {}))
}

func TestTruncateAtBoundary(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{"short text untouched", "Short.", 100, "Short."},
		{"sentence past sixty percent", "First sentence here. Second sentence goes on and on.", 30, "First sentence here."},
		{"no late boundary hard cut", "Tiny. Then a very long run of words without a stop", 30, "Tiny. Then a very long run..."},
		{"paragraph preferred", "Para one is long enough.\n\nPara two continues for a while", 32, "Para one is long enough."},
		{"zero budget", "abc", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateAtBoundary(tt.text, tt.max)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncateWords(t *testing.T) {
	got := TruncateWords("The quick brown fox jumps over the lazy dog again and again", 30)
	assert.True(t, strings.HasSuffix(got, Ellipsis))
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 30)
	assert.NotContains(t, got, "jum ")

	got = TruncateWords("She ran far. Then she kept running", 20)
	assert.Equal(t, "She ran far. ...", got)

	assert.Equal(t, "", TruncateWords("abcdefgh", 3))
}

func TestTruncate_NeverExceedsLimit(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		text := rapid.StringMatching(`[a-zA-Zа-я .!?\n]{0,400}`).Draw(rt, "text")
		max := rapid.IntRange(0, 200).Draw(rt, "max")

		assert.LessOrEqual(rt, utf8.RuneCountInString(TruncateAtBoundary(text, max)), max)
		assert.LessOrEqual(rt, utf8.RuneCountInString(TruncateWords(text, max)), max)

		budget := rapid.IntRange(0, 60).Draw(rt, "budget")
		assert.LessOrEqual(rt, Estimate(TruncateToTokens(text, budget)), budget)
	})
}
