package ui

import (
	"fmt"
	"io"
)

// PrintBanner выводит заголовок при запуске сервера.
func PrintBanner(w io.Writer, version, addr string) {
	fmt.Fprintln(w, ColorBold+IconBook+" StoryForge "+version+ColorReset)
	fmt.Fprintln(w, ColorGray+"Сборка контекста истории для чата с моделью"+ColorReset)
	fmt.Fprintf(w, ColorGray+"Адрес: "+ColorReset+ColorYellow+"%s"+ColorReset+"\n", addr)
	fmt.Fprintln(w)
}
