package loadgen

import (
	"context"
	"errors"
	"math/rand/v2"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/MarcoPoloResearchLab/chatlog/internal/client"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxBackoffMultiplier = 16

var (
	errMissingSender    = errors.New("loadgen: sender is required")
	errMissingLimiter   = errors.New("loadgen: limiter is required")
	errMissingSampler   = errors.New("loadgen: room sampler is required")
	errMissingUsers     = errors.New("loadgen: at least one user is required")
	errMissingHistogram = errors.New("loadgen: histogram is required")
	errInvalidActors    = errors.New("loadgen: publisher count must be positive")
	errInvalidBodySize  = errors.New("loadgen: body size must be positive")
)

// Sender delivers one message to the log under test.
type Sender interface {
	SendMessage(ctx context.Context, roomID, userID, body string) (client.SendResult, error)
}

// Limiter gates publishes without blocking.
type Limiter interface {
	TryAcquire() bool
}

// PublisherPoolConfig wires a PublisherPool.
type PublisherPoolConfig struct {
	Sender     Sender
	Limiter    Limiter
	Rooms      *WeightedSampler
	Users      []string
	BodyBytes  int
	Histogram  *LatencyHistogram
	Publishers int
	// IdleBackoff is the first sleep after an empty bucket. It doubles per consecutive miss up to
	// sixteen times its value and resets after a publish. Zero yields the processor instead.
	IdleBackoff time.Duration
	Logger      *zap.Logger
}

// PublisherPool runs concurrent actors that publish whenever the limiter allows.
type PublisherPool struct {
	sender      Sender
	limiter     Limiter
	rooms       *WeightedSampler
	users       []string
	bodyBytes   int
	histogram   *LatencyHistogram
	publishers  int
	idleBackoff time.Duration
	logger      *zap.Logger

	sent   atomic.Int64
	failed atomic.Int64
}

func NewPublisherPool(cfg PublisherPoolConfig) (*PublisherPool, error) {
	switch {
	case cfg.Sender == nil:
		return nil, errMissingSender
	case cfg.Limiter == nil:
		return nil, errMissingLimiter
	case cfg.Rooms == nil:
		return nil, errMissingSampler
	case len(cfg.Users) == 0:
		return nil, errMissingUsers
	case cfg.Histogram == nil:
		return nil, errMissingHistogram
	case cfg.Publishers < 1:
		return nil, errInvalidActors
	case cfg.BodyBytes < 1:
		return nil, errInvalidBodySize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PublisherPool{
		sender:      cfg.Sender,
		limiter:     cfg.Limiter,
		rooms:       cfg.Rooms,
		users:       append([]string(nil), cfg.Users...),
		bodyBytes:   cfg.BodyBytes,
		histogram:   cfg.Histogram,
		publishers:  cfg.Publishers,
		idleBackoff: cfg.IdleBackoff,
		logger:      logger,
	}, nil
}

// Run starts the actors and blocks until ctx is done and every actor has returned.
// A publish still in flight when ctx ends is abandoned and counted as neither sent nor failed.
func (p *PublisherPool) Run(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	for actor := 0; actor < p.publishers; actor++ {
		group.Go(func() error {
			p.runActor(groupCtx)
			return nil
		})
	}
	return group.Wait()
}

func (p *PublisherPool) Sent() int64 {
	return p.sent.Load()
}

func (p *PublisherPool) Failed() int64 {
	return p.failed.Load()
}

func (p *PublisherPool) runActor(ctx context.Context) {
	backoff := p.idleBackoff
	for ctx.Err() == nil {
		if !p.limiter.TryAcquire() {
			if backoff <= 0 {
				runtime.Gosched()
				continue
			}
			if !sleepContext(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, p.idleBackoff*maxBackoffMultiplier)
			continue
		}
		backoff = p.idleBackoff
		p.publishOne(ctx)
	}
}

func (p *PublisherPool) publishOne(ctx context.Context) {
	roomID := p.rooms.Pick()
	userID := p.users[rand.IntN(len(p.users))]
	body := RandomBody(p.bodyBytes, nil)

	started := time.Now()
	_, err := p.sender.SendMessage(ctx, roomID, userID, body)
	elapsed := time.Since(started)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.failed.Add(1)
		p.logger.Debug("publish failed", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	p.histogram.RecordDuration(elapsed)
	p.sent.Add(1)
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
