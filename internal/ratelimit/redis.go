package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// KeyPrefix префикс ключей корзин в Redis.
const KeyPrefix = "storyforge:ratelimit:"

// tokenBucket атомарно восполняет и тратит токен. Остаток возвращается
// строкой: Redis обрезает дробные числа Lua до целых.
var tokenBucket = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
  tokens = capacity
  ts = now
end

local elapsed = now - ts
if elapsed < 0 then
  elapsed = 0
end
tokens = math.min(capacity, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'ts', tostring(now))
redis.call('PEXPIRE', KEYS[1], ttl)
return {allowed, tostring(tokens)}
`)

// Redis корзины в Redis, общие для всех экземпляров сервиса. Неактивные
// ключи истекают через IdleTTL, отдельная чистка не нужна.
type Redis struct {
	client redis.UniversalClient
	cfg    Config
	log    *zap.Logger
	now    func() time.Time
}

func NewRedis(client redis.UniversalClient, cfg Config, log *zap.Logger) *Redis {
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{client: client, cfg: cfg.withDefaults(), log: log, now: time.Now}
}

// WithClock подменяет часы, для тестов.
func (r *Redis) WithClock(now func() time.Time) *Redis {
	r.now = now
	return r
}

func (r *Redis) Allow(ctx context.Context, key string) (Result, error) {
	now := r.now()
	perMilli := r.cfg.perSecond() / 1000

	raw, err := tokenBucket.Run(ctx, r.client, []string{KeyPrefix + key},
		r.cfg.Capacity,
		strconv.FormatFloat(perMilli, 'g', -1, 64),
		now.UnixMilli(),
		r.cfg.IdleTTL.Milliseconds(),
	).Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(raw) != 2 {
		return Result{}, fmt.Errorf("rate limit script: unexpected reply %v", raw)
	}

	allowed, _ := raw[0].(int64)
	tokensStr, _ := raw[1].(string)
	tokens, err := strconv.ParseFloat(tokensStr, 64)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script: parse tokens %q: %w", tokensStr, err)
	}
	return result(r.cfg, allowed == 1, tokens, now), nil
}

func (r *Redis) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, KeyPrefix+key).Err()
}

// Clear удаляет все корзины с префиксом KeyPrefix.
func (r *Redis) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan rate limit keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete rate limit keys: %w", err)
	}
	r.log.Debug("Корзины лимитера очищены", zap.Int("count", len(keys)))
	return nil
}
