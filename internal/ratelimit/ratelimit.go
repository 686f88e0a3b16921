// Package ratelimit ограничение частоты запросов по идентификатору клиента
// (token bucket). Бэкенды: память процесса и Redis.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultCapacity   = 20
	DefaultRefillPer  = time.Minute
	DefaultIdleTTL    = time.Hour
	DefaultSweepEvery = 10 * time.Minute
)

// Config параметры корзины: Capacity токенов восполняются за RefillPer.
type Config struct {
	Capacity   int
	RefillPer  time.Duration
	IdleTTL    time.Duration
	SweepEvery time.Duration
}

func DefaultConfig() Config {
	return Config{
		Capacity:   DefaultCapacity,
		RefillPer:  DefaultRefillPer,
		IdleTTL:    DefaultIdleTTL,
		SweepEvery: DefaultSweepEvery,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Capacity <= 0 {
		c.Capacity = d.Capacity
	}
	if c.RefillPer <= 0 {
		c.RefillPer = d.RefillPer
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = d.IdleTTL
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = d.SweepEvery
	}
	return c
}

// perSecond скорость восполнения в токенах в секунду.
func (c Config) perSecond() float64 {
	return float64(c.Capacity) / c.RefillPer.Seconds()
}

// Result решение по одному запросу.
type Result struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
	// ResetAt момент, когда корзина снова будет полной.
	ResetAt time.Time `json:"resetAt"`
	// RetryAfter сколько ждать до следующего токена; 0, если запрос разрешён.
	RetryAfter time.Duration `json:"-"`
}

// Limiter общий интерфейс бэкендов.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
	Reset(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// New выбирает бэкенд: "redis" требует клиента, всё остальное память.
func New(backend string, cfg Config, client redis.UniversalClient, log *zap.Logger) (Limiter, error) {
	switch backend {
	case "", "memory":
		return NewMemory(cfg, log), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("redis rate limiter requires a client")
		}
		return NewRedis(client, cfg, log), nil
	}
	return nil, fmt.Errorf("unknown rate limit backend %q", backend)
}

// result собирает Result из остатка токенов после решения.
func result(cfg Config, allowed bool, tokens float64, now time.Time) Result {
	rate := cfg.perSecond()
	tokens = math.Max(0, math.Min(tokens, float64(cfg.Capacity)))

	res := Result{
		Allowed:   allowed,
		Remaining: int(math.Floor(tokens)),
		ResetAt:   now.Add(secondsToDuration((float64(cfg.Capacity) - tokens) / rate)),
	}
	if !allowed {
		res.Remaining = 0
		res.RetryAfter = secondsToDuration((1 - tokens) / rate)
	}
	return res
}

func secondsToDuration(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(s * float64(time.Second)))
}
