package ui

import (
	"fmt"
	"io"
	"strings"
)

// FormatKind иконка, цвет и подпись для типа сущности.
func FormatKind(kind string) (icon, color, text string) {
	switch kind {
	case "character":
		return IconPerson, ColorCyan, "персонаж"
	case "world":
		return IconGlobe, ColorGreen, "мир"
	case "project":
		return IconFolder, ColorPurple, "проект"
	default:
		return IconDocument, ColorGray, kind
	}
}

// Title заголовок блока вывода.
func Title(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\n"+ColorBold+"=== "+format+" ==="+ColorReset+"\n", args...)
}

// Field строка "метка: значение"; пустые значения пропускаются.
func Field(w io.Writer, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(w, ColorCyan+"%s:"+ColorReset+" %s\n", label, value)
}

func Error(w io.Writer, msg string) {
	fmt.Fprintln(w, ColorRed+IconCross+" "+msg+ColorReset)
}

func Empty(w io.Writer, msg string) {
	fmt.Fprintln(w, ColorGray+msg+ColorReset)
}

// Shorten обрезает строку до n рун с многоточием.
func Shorten(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "…"
}
