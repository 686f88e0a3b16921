package commands

import (
	"context"
	"fmt"
	"io"

	"storyForge/internal/cli/ui"
	"storyForge/internal/database"
)

type LogReader interface {
	ListLLMLogs(ctx context.Context, limit int) ([]database.LlmLog, error)
}

// LogsHandler последние запросы к моделям.
type LogsHandler struct {
	repo LogReader
	out  io.Writer
}

func NewLogsHandler(repo LogReader, out io.Writer) *LogsHandler {
	return &LogsHandler{repo: repo, out: out}
}

func (h *LogsHandler) Show(ctx context.Context, limit int) error {
	logs, err := h.repo.ListLLMLogs(ctx, limit)
	if err != nil {
		ui.Error(h.out, "Ошибка чтения логов")
		return err
	}

	ui.Title(h.out, "%s Логи LLM", ui.IconList)
	if len(logs) == 0 {
		ui.Empty(h.out, "Логов нет")
		return nil
	}
	for _, l := range logs {
		fmt.Fprintf(h.out, ui.ColorGray+"[%s]"+ui.ColorReset+" "+ui.ColorCyan+"%s/%s"+ui.ColorReset+" "+ui.IconChart+" %d\n",
			l.CreatedAt.Format("2006-01-02 15:04:05"), l.Provider, l.Model, l.TokensUsed)
		fmt.Fprintf(h.out, "  "+ui.ColorGray+"→"+ui.ColorReset+" %s\n", ui.Shorten(l.PromptText, 100))
		if l.ResponseText != "" {
			fmt.Fprintf(h.out, "  "+ui.ColorGreen+"←"+ui.ColorReset+" %s\n", ui.Shorten(l.ResponseText, 100))
		}
	}
	return nil
}
