package main

import (
	"context"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storyForge/internal/chat"
	"storyForge/internal/cli"
	"storyForge/internal/config"
	"storyForge/internal/database"
	"storyForge/internal/llm"
	"storyForge/internal/logger"
	"storyForge/internal/metrics"
	"storyForge/internal/modes"
	"storyForge/internal/ratelimit"
	"storyForge/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Logger.Env, cfg.Logger.Level)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	console := cli.New(cfg, log, func(ctx context.Context) (*cli.Runtime, error) {
		return build(cfg, log)
	})
	if err := console.Run(context.Background(), os.Args[1:]); err != nil {
		console.Fatal(err)
	}
}

func build(cfg *config.Cfg, log *logger.Zap) (*cli.Runtime, error) {
	db, err := database.New(cfg, log)
	if err != nil {
		return nil, err
	}
	repo := database.NewRepository(db.DB, log.Logger)

	registry := modes.Default()
	if cfg.Context.ModesFile != "" {
		registry, err = modes.LoadFile(cfg.Context.ModesFile)
		if err != nil {
			db.Close(log)
			return nil, err
		}
		log.Info("Режимы загружены", zap.String("file", cfg.Context.ModesFile))
	}

	var rdb *redis.Client
	if cfg.RateLimit.Backend == "redis" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
	}
	limiter, err := ratelimit.New(cfg.RateLimit.Backend, ratelimit.Config{
		Capacity:   cfg.RateLimit.Capacity,
		RefillPer:  cfg.RateLimit.RefillPer,
		IdleTTL:    cfg.RateLimit.IdleTTL,
		SweepEvery: cfg.RateLimit.SweepEvery,
	}, redisClient(rdb), log.Logger)
	if err != nil {
		db.Close(log)
		return nil, err
	}

	providers := llm.NewFactory(cfg.App.DefaultProvider, map[string]llm.Credentials{
		llm.ProviderOpenAI:    {Key: cfg.OpenAI.KeyAI, Model: cfg.OpenAI.Model, MaxTokens: cfg.OpenAI.MaxTokens},
		llm.ProviderAnthropic: {Key: cfg.Anthropic.Key, Model: cfg.Anthropic.Model, MaxTokens: cfg.Anthropic.MaxTokens},
	})
	breakers := llm.NewBreakerPool(llm.DefaultMaxFailures, llm.DefaultResetTimeout)
	client := llm.NewClient(breakers, repo, log.Logger)
	collector := metrics.New(cfg.Metrics.Namespace, log.Logger)

	svc := chat.New(chat.Deps{
		Store:     repo,
		Stubs:     repo,
		Registry:  registry,
		Limiter:   limiter,
		Providers: providers,
		Client:    client,
		Metrics:   collector,
		Log:       log.Logger,
	}, chat.Options{
		EntityBudget:    cfg.Context.TotalBudget,
		PromptBudget:    cfg.Context.PromptBudget,
		ResponseReserve: cfg.Context.ResponseReserve,
		RecentMessages:  cfg.Context.RecentMessages,
	})

	srv := server.New(cfg, log, server.Deps{
		Chat:     svc,
		Store:    repo,
		Breakers: breakers,
		Metrics:  collector,
	})

	return &cli.Runtime{
		Repo: repo,
		Chat: svc,
		Serve: func(ctx context.Context) error {
			if mem, ok := limiter.(*ratelimit.Memory); ok {
				go mem.Run(ctx)
			}
			return srv.Run(ctx)
		},
		Close: func() {
			if rdb != nil {
				if err := rdb.Close(); err != nil {
					log.Warn("Ошибка закрытия redis", zap.Error(err))
				}
			}
			db.Close(log)
		},
	}, nil
}

// redisClient не даёт nil *redis.Client превратиться в ненулевой интерфейс.
func redisClient(c *redis.Client) redis.UniversalClient {
	if c == nil {
		return nil
	}
	return c
}
