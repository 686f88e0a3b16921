package sanitizer

import "regexp"

type PasswordSanitizer struct{}

var passwordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(password|пароль)\s*[:=]\s*["']?([^"'\s]{3,})["']?`),
	regexp.MustCompile(`(?i)(passwd|pwd)\s*[:=]\s*["']?([^"'\s]{3,})["']?`),
	regexp.MustCompile(`(?i)(postgres(?:ql)?://[^:\s/]+:)([^@\s]+)(@)`),
}

func (s *PasswordSanitizer) Sanitize(text string) string {
	text = passwordPatterns[0].ReplaceAllString(text, `${1}: [FILTERED]`)
	text = passwordPatterns[1].ReplaceAllString(text, `${1}: [FILTERED]`)
	return passwordPatterns[2].ReplaceAllString(text, `${1}[FILTERED]${3}`)
}
