package loadgen

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"
)

var (
	errInvalidRate        = errors.New("loadgen: rate must be positive")
	errInvalidBurstEvery  = errors.New("loadgen: burst interval must not be negative")
	errInvalidBurstFactor = errors.New("loadgen: burst factor must be positive")
)

// TokenBucketConfig describes a refill schedule. Rate is tokens per tick; every BurstEvery-th
// tick refills Rate*BurstFactor instead. BurstEvery of zero disables bursts.
type TokenBucketConfig struct {
	Rate        float64
	BurstEvery  int
	BurstFactor float64
}

// TokenBucket is a rate limiter refilled in discrete ticks. It starts empty.
type TokenBucket struct {
	mu          sync.Mutex
	tokens      float64
	ticks       int64
	baseRate    float64
	burstEvery  int64
	burstFactor float64
	capacity    float64
}

func NewTokenBucket(cfg TokenBucketConfig) (*TokenBucket, error) {
	if !(cfg.Rate > 0) || math.IsInf(cfg.Rate, 0) {
		return nil, errInvalidRate
	}
	if cfg.BurstEvery < 0 {
		return nil, errInvalidBurstEvery
	}
	if !(cfg.BurstFactor > 0) || math.IsInf(cfg.BurstFactor, 0) {
		return nil, errInvalidBurstFactor
	}
	return &TokenBucket{
		baseRate:    cfg.Rate,
		burstEvery:  int64(cfg.BurstEvery),
		burstFactor: cfg.BurstFactor,
		capacity:    cfg.Rate * math.Max(1, cfg.BurstFactor),
	}, nil
}

// Tick advances the schedule by one interval and adds that interval's refill, capped at capacity.
func (b *TokenBucket) Tick() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ticks++
	refill := b.baseRate
	if b.burstEvery > 0 && b.ticks%b.burstEvery == 0 {
		refill = b.baseRate * b.burstFactor
	}
	b.tokens = math.Min(b.tokens+refill, b.capacity)
}

// TryAcquire takes one token if available. It never blocks.
func (b *TokenBucket) TryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (b *TokenBucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}

func (b *TokenBucket) Capacity() float64 {
	return b.capacity
}

// Run ticks the bucket every interval until ctx is done.
func (b *TokenBucket) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Tick()
		}
	}
}
