// Package sanitizer чистит текст: управляющие символы во входящих запросах
// и секреты в том, что попадает в журналы запросов к моделям.
package sanitizer

import "strings"

type DataSanitizer struct {
	rules []SanitizerRule
}

type SanitizerRule interface {
	Sanitize(text string) string
}

// New набор правил для журналов.
func New() *DataSanitizer {
	return &DataSanitizer{
		rules: []SanitizerRule{
			&ControlSanitizer{},
			&PasswordSanitizer{},
			&TokenSanitizer{},
			&APIKeySanitizer{},
			&CookieSanitizer{},
			&EmailSanitizer{},
		},
	}
}

func NewWithRules(rules ...SanitizerRule) *DataSanitizer {
	return &DataSanitizer{rules: rules}
}

func (s *DataSanitizer) Sanitize(text string) string {
	if text == "" {
		return text
	}

	result := text
	for _, rule := range s.rules {
		result = rule.Sanitize(result)
	}

	return result
}

// MaskKey оставляет от ключа провайдера последние четыре символа.
func MaskKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if len(key) <= 12 {
		return "[FILTERED]"
	}
	return "..." + key[len(key)-4:]
}
