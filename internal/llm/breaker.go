package llm

import (
	"context"
	"errors"
	"sync"
	"time"

	"storyForge/internal/apierror"
)

type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

const (
	DefaultMaxFailures  = 5
	DefaultResetTimeout = 30 * time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	now          func() time.Time

	mu          sync.Mutex
	state       CircuitState
	failures    int
	lastFailure time.Time
}

func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	if resetTimeout <= 0 {
		resetTimeout = DefaultResetTimeout
	}
	return &CircuitBreaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
		state:        StateClosed,
	}
}

// Call выполняет fn, если цепь не разомкнута. Неповторяемые ошибки
// провайдера (неверный ключ, длинный контекст) сбоем не считаются.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	cb.mu.Lock()
	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastFailure) > cb.resetTimeout {
			cb.state = StateHalfOpen
			cb.failures = 0
		} else {
			cb.mu.Unlock()
			return apierror.New(apierror.KindUnavailable, cb.name, ErrCircuitOpen)
		}
	}
	cb.mu.Unlock()

	err := fn(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil && countsAsFailure(err) {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
			cb.state = StateOpen
		}
		return err
	}

	if cb.state == StateHalfOpen {
		cb.state = StateClosed
	}
	cb.failures = 0
	return err
}

func countsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return true
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
}

// BreakerPool по одному breaker на провайдера.
type BreakerPool struct {
	maxFailures  int
	resetTimeout time.Duration
	now          func() time.Time

	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
}

func NewBreakerPool(maxFailures int, resetTimeout time.Duration) *BreakerPool {
	return &BreakerPool{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
		breakers:     make(map[string]*CircuitBreaker),
	}
}

// WithClock подменяет часы для всех breaker пула.
func (pool *BreakerPool) WithClock(now func() time.Time) *BreakerPool {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	pool.now = now
	for _, b := range pool.breakers {
		b.now = now
	}
	return pool
}

func (pool *BreakerPool) Get(key string) *CircuitBreaker {
	pool.mu.RLock()
	if breaker, ok := pool.breakers[key]; ok {
		pool.mu.RUnlock()
		return breaker
	}
	pool.mu.RUnlock()

	pool.mu.Lock()
	defer pool.mu.Unlock()

	if breaker, ok := pool.breakers[key]; ok {
		return breaker
	}

	breaker := NewCircuitBreaker(key, pool.maxFailures, pool.resetTimeout)
	breaker.now = pool.now
	pool.breakers[key] = breaker
	return breaker
}

// States снимок состояний для health.
func (pool *BreakerPool) States() map[string]string {
	if pool == nil {
		return map[string]string{}
	}
	pool.mu.RLock()
	defer pool.mu.RUnlock()
	out := make(map[string]string, len(pool.breakers))
	for key, b := range pool.breakers {
		out[key] = b.State().String()
	}
	return out
}

func (pool *BreakerPool) ResetAll() {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	for _, breaker := range pool.breakers {
		breaker.Reset()
	}
}
