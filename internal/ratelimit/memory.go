package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory корзины в памяти процесса. Состояние теряется при перезапуске и
// не делится между экземплярами.
type Memory struct {
	cfg Config
	log *zap.Logger
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewMemory(cfg Config, log *zap.Logger) *Memory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Memory{
		cfg:     cfg.withDefaults(),
		log:     log,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// WithClock подменяет часы, для тестов.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// Allow первый запрос создаёт полную корзину и сразу тратит один токен.
func (m *Memory) Allow(_ context.Context, key string) (Result, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(m.cfg.perSecond()), m.cfg.Capacity)}
		m.buckets[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	return result(m.cfg, allowed, b.limiter.TokensAt(now), now), nil
}

func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.buckets, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.buckets = make(map[string]*bucket)
	m.mu.Unlock()
	return nil
}

// Len число живых корзин.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// Sweep удаляет корзины, не использованные дольше IdleTTL.
func (m *Memory) Sweep() int {
	cutoff := m.now().Add(-m.cfg.IdleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, b := range m.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(m.buckets, key)
			removed++
		}
	}
	return removed
}

// Run чистит корзины каждые SweepEvery до отмены контекста.
func (m *Memory) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.log.Debug("Удалены неактивные корзины лимитера", zap.Int("count", n))
			}
		}
	}
}
