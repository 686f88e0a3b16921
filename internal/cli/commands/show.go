package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"storyForge/internal/cli/ui"
	"storyForge/internal/compression"
	"storyForge/internal/entity"
)

// EntityReader чтение одной сущности из хранилища.
type EntityReader interface {
	Get(ctx context.Context, id entity.ID) (entity.Entity, error)
}

// ShowHandler выводит сущность по ID.
type ShowHandler struct {
	store EntityReader
	out   io.Writer
	log   *zap.Logger
}

func NewShowHandler(store EntityReader, out io.Writer, log *zap.Logger) *ShowHandler {
	return &ShowHandler{store: store, out: out, log: log}
}

// Show полная карточка в JSON или сжатая в Markdown при compact.
func (h *ShowHandler) Show(ctx context.Context, raw string, compact bool) error {
	id, err := entity.ParseID(strings.TrimSpace(raw))
	if err != nil {
		ui.Error(h.out, "Неверный ID сущности")
		return err
	}
	e, err := h.store.Get(ctx, id)
	if err != nil {
		ui.Error(h.out, "Сущность не найдена")
		return err
	}

	icon, color, kind := ui.FormatKind(id.Kind.String())
	ui.Title(h.out, "%s %s", icon, e.DisplayName())
	fmt.Fprintf(h.out, color+"%s"+ui.ColorReset+" %s\n", kind, id)
	ui.Field(h.out, "Псевдонимы", strings.Join(e.AliasList(), ", "))

	if compact {
		fmt.Fprintln(h.out)
		fmt.Fprintln(h.out, compression.Set(setOf(e)))
		return nil
	}

	body, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		h.log.Error("Ошибка сериализации сущности", zap.Error(err))
		return err
	}
	fmt.Fprintln(h.out, string(body))
	return nil
}

func setOf(e entity.Entity) entity.Set {
	var set entity.Set
	switch v := e.(type) {
	case *entity.Character:
		set.Characters = append(set.Characters, v)
	case *entity.World:
		set.Worlds = append(set.Worlds, v)
	case *entity.Project:
		set.Projects = append(set.Projects, v)
	}
	return set
}
