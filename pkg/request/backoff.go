package request

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// ProviderBackoff manages exponential backoff per provider.
type ProviderBackoff struct {
	mu        sync.RWMutex
	providers map[string]*backoffState
	baseDelay time.Duration
	maxDelay  time.Duration
}

type backoffState struct {
	failureCount int
	nextAllowed  time.Time
}

// NewProviderBackoff creates a new backoff manager.
func NewProviderBackoff(baseDelay, maxDelay time.Duration) *ProviderBackoff {
	return &ProviderBackoff{
		providers: make(map[string]*backoffState),
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
	}
}

// Wait blocks until the provider is allowed to make a request or ctx ends.
func (b *ProviderBackoff) Wait(ctx context.Context, provider string) error {
	b.mu.RLock()
	state, exists := b.providers[provider]
	var next time.Time
	if exists {
		next = state.nextAllowed
	}
	b.mu.RUnlock()

	if !exists || !time.Now().Before(next) {
		return nil
	}

	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordFailure increases the backoff delay for a provider.
func (b *ProviderBackoff) RecordFailure(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, exists := b.providers[provider]
	if !exists {
		state = &backoffState{}
		b.providers[provider] = state
	}

	state.failureCount++
	state.nextAllowed = time.Now().Add(b.calculateDelay(state.failureCount))
}

// RecordSuccess decreases the backoff delay (gradual recovery).
func (b *ProviderBackoff) RecordSuccess(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, exists := b.providers[provider]
	if !exists {
		return
	}

	if state.failureCount > 0 {
		state.failureCount--
	}
	if state.failureCount == 0 {
		state.nextAllowed = time.Time{}
	}
}

// calculateDelay returns exponential delay with jitter.
func (b *ProviderBackoff) calculateDelay(failures int) time.Duration {
	// baseDelay * 2^(failures-1), capped
	multiplier := math.Pow(2, float64(failures-1))
	delay := time.Duration(float64(b.baseDelay) * multiplier)
	if delay > b.maxDelay {
		delay = b.maxDelay
	}

	// Add 10% jitter
	jitter := time.Duration(rand.Float64() * 0.1 * float64(delay))
	return delay + jitter
}

// GetState returns current backoff state for a provider.
func (b *ProviderBackoff) GetState(provider string) (failureCount int, nextAllowed time.Time) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if state, exists := b.providers[provider]; exists {
		return state.failureCount, state.nextAllowed
	}
	return 0, time.Time{}
}
