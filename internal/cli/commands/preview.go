package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"storyForge/internal/chat"
	"storyForge/internal/cli/ui"
	"storyForge/internal/validation"
)

type Previewer interface {
	Preview(ctx context.Context, clientKey string, req *validation.ChatRequest) (*chat.Prepared, error)
}

// PreviewRequest параметры команды preview.
type PreviewRequest struct {
	IDs     []string
	Mode    string
	Message string
}

// PreviewHandler собирает промпт для сущностей без вызова модели.
type PreviewHandler struct {
	chat Previewer
	out  io.Writer
}

func NewPreviewHandler(c Previewer, out io.Writer) *PreviewHandler {
	return &PreviewHandler{chat: c, out: out}
}

func (h *PreviewHandler) Preview(ctx context.Context, in PreviewRequest) error {
	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		msg = "Continue the story."
	}
	req := &validation.ChatRequest{
		Messages:        []validation.Message{{Role: "user", Content: msg}},
		PinnedEntityIDs: in.IDs,
		Mode:            in.Mode,
	}

	prep, err := h.chat.Preview(ctx, "cli", req)
	if err != nil {
		ui.Error(h.out, err.Error())
		return err
	}

	ui.Title(h.out, "%s Контекст (%s)", ui.IconDocument, prep.Mode)
	info := prep.Context
	ui.Field(h.out, "Токены сущностей", fmt.Sprint(info.EntityTokens))
	ui.Field(h.out, "Токены промпта", fmt.Sprint(info.PromptTokens))
	ui.Field(h.out, "Персонажи", strings.Join(info.EntityNames.Character, ", "))
	ui.Field(h.out, "Миры", strings.Join(info.EntityNames.World, ", "))
	ui.Field(h.out, "Проекты", strings.Join(info.EntityNames.Project, ", "))
	if len(prep.Missing) > 0 {
		missing := make([]string, len(prep.Missing))
		for i, id := range prep.Missing {
			missing[i] = id.String()
		}
		fmt.Fprintln(h.out, ui.ColorYellow+"Не найдены: "+strings.Join(missing, ", ")+ui.ColorReset)
	}
	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, prep.SystemPrompt)
	return nil
}
