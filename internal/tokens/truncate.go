package tokens

import (
	"strings"
	"unicode"
)

// boundaryRatio доля целевой длины, после которой граница абзаца или
// предложения считается пригодной для обрезки.
const boundaryRatio = 0.6

// TruncateAtBoundary обрезает текст до maxChars символов. Сначала ищется
// граница абзаца, затем конец предложения после 60% длины; иначе жёсткая
// обрезка с многоточием. Результат никогда не длиннее maxChars.
func TruncateAtBoundary(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	if maxChars <= 0 {
		return ""
	}

	cut := runes[:maxChars]
	floor := int(float64(maxChars) * boundaryRatio)

	if idx := lastParagraphBreak(cut); idx >= floor {
		return strings.TrimRightFunc(string(cut[:idx]), unicode.IsSpace)
	}
	if idx := lastSentenceEnd(cut); idx >= floor {
		return string(cut[:idx+1])
	}
	return hardCut(runes, maxChars)
}

// TruncateToTokens обрезает текст так, чтобы Estimate(результат) <= maxTokens.
func TruncateToTokens(text string, maxTokens int) string {
	return TruncateAtBoundary(text, Chars(maxTokens))
}

// TruncateWords обрезает текст по концу предложения или по границе слова
// (после половины длины), всегда добавляя многоточие. Результат не длиннее maxChars.
func TruncateWords(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	if maxChars <= len(Ellipsis) {
		return ""
	}

	room := maxChars - len(Ellipsis) - 1
	cut := runes[:room]
	half := room / 2

	if idx := lastSentenceEnd(cut); idx >= half {
		return string(cut[:idx+1]) + " " + Ellipsis
	}
	if idx := lastSpace(cut); idx >= half {
		return strings.TrimRightFunc(string(cut[:idx]), unicode.IsSpace) + Ellipsis
	}
	return hardCut(runes, maxChars)
}

func hardCut(runes []rune, maxChars int) string {
	if maxChars <= len(Ellipsis) {
		return string(runes[:maxChars])
	}
	return strings.TrimRightFunc(string(runes[:maxChars-len(Ellipsis)]), unicode.IsSpace) + Ellipsis
}

func lastSentenceEnd(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		switch r[i] {
		case '.', '!', '?':
			// многоточие в середине не считается концом предложения
			if i+1 < len(r) && !unicode.IsSpace(r[i+1]) {
				continue
			}
			return i
		}
	}
	return -1
}

func lastParagraphBreak(r []rune) int {
	for i := len(r) - 1; i > 0; i-- {
		if r[i] == '\n' && r[i-1] == '\n' {
			return i - 1
		}
	}
	return -1
}

func lastSpace(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if unicode.IsSpace(r[i]) {
			return i
		}
	}
	return -1
}
