// Package tokens грубая оценка количества токенов по длине текста.
// Это эвристика (символы/4), а не токенизатор: все бюджеты, построенные на
// ней, приблизительны.
package tokens

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// CharsPerToken среднее число символов на токен.
const CharsPerToken = 4

// Ellipsis маркер обрезанного текста.
const Ellipsis = "..."

// Estimate возвращает ceil(len(text)/4), длина считается в символах.
func Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + CharsPerToken - 1) / CharsPerToken
}

// Chars переводит бюджет в токенах в бюджет в символах.
func Chars(tokenBudget int) int {
	if tokenBudget <= 0 {
		return 0
	}
	return tokenBudget * CharsPerToken
}

// JSON сериализует значение без экранирования HTML.
func JSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// EstimateJSON оценивает стоимость значения по длине его JSON-представления.
// Несериализуемые значения стоят 0.
func EstimateJSON(v any) int {
	s, err := JSON(v)
	if err != nil {
		return 0
	}
	return Estimate(s)
}
