package commands

import (
	"context"
	"fmt"
	"io"

	"storyForge/internal/cli/ui"
	"storyForge/internal/database"
)

type QueueLister interface {
	ListQueue(ctx context.Context) ([]database.QueueItem, error)
	Trash(ctx context.Context) ([]database.TrashItem, error)
}

// QueueHandler очередь доработки и корзина.
type QueueHandler struct {
	repo QueueLister
	out  io.Writer
}

func NewQueueHandler(repo QueueLister, out io.Writer) *QueueHandler {
	return &QueueHandler{repo: repo, out: out}
}

func (h *QueueHandler) Queue(ctx context.Context) error {
	items, err := h.repo.ListQueue(ctx)
	if err != nil {
		ui.Error(h.out, "Ошибка чтения очереди")
		return err
	}
	ui.Title(h.out, "%s Очередь доработки (%d)", ui.IconList, len(items))
	if len(items) == 0 {
		ui.Empty(h.out, "Очередь пуста")
		return nil
	}
	for _, it := range items {
		icon, color, kind := ui.FormatKind(it.EntityType)
		fmt.Fprintf(h.out, "%s "+color+"%-10s"+ui.ColorReset+" %s "+ui.ColorGray+"%s"+ui.ColorReset+"\n",
			icon, kind, it.EntityID, it.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func (h *QueueHandler) Trash(ctx context.Context) error {
	items, err := h.repo.Trash(ctx)
	if err != nil {
		ui.Error(h.out, "Ошибка чтения корзины")
		return err
	}
	ui.Title(h.out, "%s Корзина (%d)", ui.IconTrash, len(items))
	if len(items) == 0 {
		ui.Empty(h.out, "Корзина пуста")
		return nil
	}
	for _, it := range items {
		icon, _, _ := ui.FormatKind(it.Kind)
		fmt.Fprintf(h.out, "%s %s %s "+ui.ColorGray+"удалено %s"+ui.ColorReset+"\n",
			icon, it.ID, it.Name, it.DeletedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
