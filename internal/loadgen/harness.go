package loadgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/MarcoPoloResearchLab/chatlog/internal/client"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultTickInterval = time.Second

var errMissingAPI = errors.New("loadgen: api is required")

// API is the part of the chat log the harness drives.
type API interface {
	Sender
	CreateRoom(ctx context.Context, name string) (client.Room, error)
}

// Config describes one storm run.
type Config struct {
	Rooms       int
	Users       int
	Publishers  int
	Rate        float64
	Duration    time.Duration
	BurstEvery  int
	BurstFactor float64
	HotSkew     float64
	BodyBytes   int

	ReportInterval time.Duration
	IdleBackoff    time.Duration
	// TickInterval is the refill period of the limiter; Rate and BurstEvery count in ticks.
	// Defaults to one second.
	TickInterval time.Duration
}

// Dependencies are the collaborators of a storm run.
type Dependencies struct {
	API    API
	Output io.Writer
	Logger *zap.Logger
	Colour bool
}

// Run creates the rooms, drives publishers for cfg.Duration, and returns the final summary.
// Failing to create a room aborts the run before any publisher starts.
func Run(ctx context.Context, cfg Config, deps Dependencies) (Summary, error) {
	if deps.API == nil {
		return Summary{}, errMissingAPI
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tickInterval := cfg.TickInterval
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}

	bucket, err := NewTokenBucket(TokenBucketConfig{
		Rate:        cfg.Rate,
		BurstEvery:  cfg.BurstEvery,
		BurstFactor: cfg.BurstFactor,
	})
	if err != nil {
		return Summary{}, err
	}
	histogram, err := NewLatencyHistogram(DefaultLatencyBounds)
	if err != nil {
		return Summary{}, err
	}
	if cfg.Rooms < 1 {
		return Summary{}, errNoItems
	}

	roomIDs, err := createRooms(ctx, deps.API, cfg.Rooms)
	if err != nil {
		return Summary{}, err
	}
	logger.Info("rooms ready", zap.Strings("room_ids", roomIDs))

	sampler, err := NewZipfSampler(roomIDs, cfg.HotSkew, nil)
	if err != nil {
		return Summary{}, err
	}
	pool, err := NewPublisherPool(PublisherPoolConfig{
		Sender:      deps.API,
		Limiter:     bucket,
		Rooms:       sampler,
		Users:       NewUserPool(cfg.Users),
		BodyBytes:   cfg.BodyBytes,
		Histogram:   histogram,
		Publishers:  cfg.Publishers,
		IdleBackoff: cfg.IdleBackoff,
		Logger:      logger,
	})
	if err != nil {
		return Summary{}, err
	}
	reporter, err := NewReporter(ReporterConfig{
		Counters:  pool,
		Histogram: histogram,
		Output:    deps.Output,
		Interval:  cfg.ReportInterval,
		Colour:    deps.Colour,
	})
	if err != nil {
		return Summary{}, err
	}

	logger.Info("storm started",
		zap.Int("publishers", cfg.Publishers),
		zap.Float64("rate", cfg.Rate),
		zap.Duration("duration", cfg.Duration),
		zap.Float64s("room_weights", sampler.Weights()))

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		bucket.Run(groupCtx, tickInterval)
		return nil
	})
	group.Go(func() error {
		reporter.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		return pool.Run(groupCtx)
	})
	if err := group.Wait(); err != nil {
		return Summary{}, err
	}

	summary := reporter.Snapshot()
	logger.Info("storm finished",
		zap.Int64("sent", summary.Sent),
		zap.Int64("failed", summary.Failed),
		zap.Float64("p50_ms", summary.P50),
		zap.Float64("p95_ms", summary.P95),
		zap.Float64("p99_ms", summary.P99))
	return summary, nil
}

func createRooms(ctx context.Context, api API, count int) ([]string, error) {
	roomIDs := make([]string, 0, count)
	for index := 1; index <= count; index++ {
		name := fmt.Sprintf("room-%d", index)
		room, err := api.CreateRoom(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("loadgen: create %s: %w", name, err)
		}
		roomIDs = append(roomIDs, room.ID)
	}
	return roomIDs, nil
}
