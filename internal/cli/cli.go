// Package cli команды оператора: сервер, миграции и просмотр хранилища.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storyForge/internal/chat"
	"storyForge/internal/cli/commands"
	"storyForge/internal/cli/ui"
	"storyForge/internal/config"
	"storyForge/internal/database"
	"storyForge/internal/logger"
	"storyForge/internal/migrations"
)

const Version = "v0.1.0"

// Runtime собранные зависимости процесса.
type Runtime struct {
	Repo *database.Repository
	Chat *chat.Service
	// Serve блокируется до отмены ctx.
	Serve func(ctx context.Context) error
	Close func()
}

// Builder поднимает Runtime: БД, лимитер, провайдеров, сервер.
type Builder func(ctx context.Context) (*Runtime, error)

type CLI struct {
	cfg   *config.Cfg
	log   *logger.Zap
	build Builder
	out   io.Writer

	migrateUp   func(*config.Cfg, *logger.Zap) error
	migrateDown func(*config.Cfg, *logger.Zap, int) error
}

func New(cfg *config.Cfg, log *logger.Zap, build Builder) *CLI {
	return &CLI{
		cfg:         cfg,
		log:         log,
		build:       build,
		out:         os.Stdout,
		migrateUp:   migrations.Run,
		migrateDown: migrations.Down,
	}
}

// SetOutput перенаправляет вывод команд.
func (c *CLI) SetOutput(w io.Writer) {
	c.out = w
}

// Run выполняет команду из аргументов процесса; SIGINT и SIGTERM отменяют ctx.
func (c *CLI) Run(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := c.RootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (c *CLI) RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "storyforge",
		Short: "StoryForge - контекст истории для чата с моделью",
		Long: `StoryForge собирает контекст персонажей, миров и проектов
для запросов к модели и обогащает ответы ссылками на сущности.

Примеры:
  storyforge serve
  storyforge migrate up
  storyforge preview '#ANA' '@MARSH' --mode scene
  storyforge show '#ANA' --compact`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.out)

	root.AddCommand(
		c.serveCmd(),
		c.migrateCmd(),
		c.previewCmd(),
		c.showCmd(),
		c.queueCmd(),
		c.trashCmd(),
		c.logsCmd(),
	)
	return root
}

// withRuntime поднимает зависимости на время команды.
func (c *CLI) withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *Runtime) error) error {
	ctx := cmd.Context()
	rt, err := c.build(ctx)
	if err != nil {
		return err
	}
	if rt.Close != nil {
		defer rt.Close()
	}
	return fn(ctx, rt)
}

func (c *CLI) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP сервер",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.migrateUp(c.cfg, c.log); err != nil {
				return fmt.Errorf("ошибка миграций: %w", err)
			}
			return c.withRuntime(cmd, func(ctx context.Context, rt *Runtime) error {
				ui.PrintBanner(c.out, Version, c.cfg.App.Host+":"+c.cfg.App.Port)
				return rt.Serve(ctx)
			})
		},
	}
}

func (c *CLI) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Управление схемой БД",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Применить новые миграции",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return c.migrateUp(c.cfg, c.log)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Откатить последние миграции",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return c.migrateDown(c.cfg, c.log, steps)
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "сколько миграций откатить")

	cmd.AddCommand(up, down)
	return cmd
}

func (c *CLI) previewCmd() *cobra.Command {
	var in commands.PreviewRequest
	cmd := &cobra.Command{
		Use:   "preview <id>...",
		Short: "Показать промпт, собранный для сущностей",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.IDs = args
			return c.withRuntime(cmd, func(ctx context.Context, rt *Runtime) error {
				return commands.NewPreviewHandler(rt.Chat, c.out).Preview(ctx, in)
			})
		},
	}
	cmd.Flags().StringVarP(&in.Mode, "mode", "m", "", "режим контекста")
	cmd.Flags().StringVar(&in.Message, "message", "", "сообщение пользователя")
	return cmd
}

func (c *CLI) showCmd() *cobra.Command {
	var compact bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Показать сущность",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(cmd, func(ctx context.Context, rt *Runtime) error {
				return commands.NewShowHandler(rt.Repo, c.out, c.log.Logger).Show(ctx, args[0], compact)
			})
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "сжатая карточка")
	return cmd
}

func (c *CLI) queueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Очередь заготовок на доработку",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withRuntime(cmd, func(ctx context.Context, rt *Runtime) error {
				return commands.NewQueueHandler(rt.Repo, c.out).Queue(ctx)
			})
		},
	}
}

func (c *CLI) trashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trash",
		Short: "Удалённые сущности",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withRuntime(cmd, func(ctx context.Context, rt *Runtime) error {
				return commands.NewQueueHandler(rt.Repo, c.out).Trash(ctx)
			})
		},
	}
}

func (c *CLI) logsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Последние запросы к моделям",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withRuntime(cmd, func(ctx context.Context, rt *Runtime) error {
				return commands.NewLogsHandler(rt.Repo, c.out).Show(ctx, limit)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "сколько записей показать")
	return cmd
}

// Fatal логирует ошибку команды и завершает процесс.
func (c *CLI) Fatal(err error) {
	c.log.Error("Команда завершилась с ошибкой", zap.Error(err))
	ui.Error(c.out, err.Error())
	os.Exit(1)
}
