package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

const userIDPrefixLength = 8

var (
	errMissingPoller = errors.New("follower: poller is required")
	errMissingRoomID = errors.New("follower: room id is required")
	errMissingOutput = errors.New("follower: output writer is required")
)

// MessagePoller is the read side of the API used by a Follower.
type MessagePoller interface {
	PollMessages(ctx context.Context, roomID string, options PollOptions) (Page, error)
}

// FollowerConfig configures a Follower.
type FollowerConfig struct {
	Poller   MessagePoller
	RoomID   string
	AfterSeq int64
	Limit    int
	Interval time.Duration
	Jitter   time.Duration
	Output   io.Writer
	Logger   *zap.Logger
	// Random returns a value in [0, 1) and scales the jitter. Defaults to math/rand/v2.
	Random func() float64
}

// Follower tails a room by repeatedly polling from its own cursor and printing new messages.
type Follower struct {
	poller   MessagePoller
	roomID   string
	cursor   int64
	limit    int
	interval time.Duration
	jitter   time.Duration
	output   io.Writer
	logger   *zap.Logger
	random   func() float64
}

// NewFollower validates cfg and constructs a Follower.
func NewFollower(cfg FollowerConfig) (*Follower, error) {
	if cfg.Poller == nil {
		return nil, errMissingPoller
	}
	if cfg.RoomID == "" {
		return nil, errMissingRoomID
	}
	if cfg.Output == nil {
		return nil, errMissingOutput
	}
	if cfg.AfterSeq < 0 {
		return nil, fmt.Errorf("follower: after seq %d is negative", cfg.AfterSeq)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	random := cfg.Random
	if random == nil {
		random = rand.Float64
	}

	return &Follower{
		poller:   cfg.Poller,
		roomID:   cfg.RoomID,
		cursor:   cfg.AfterSeq,
		limit:    cfg.Limit,
		interval: cfg.Interval,
		jitter:   cfg.Jitter,
		output:   cfg.Output,
		logger:   logger,
		random:   random,
	}, nil
}

// Cursor returns the last sequence number the follower has printed.
func (f *Follower) Cursor() int64 {
	return f.cursor
}

// PollOnce fetches one page, prints it, and advances the cursor. It returns the number of
// messages printed.
func (f *Follower) PollOnce(ctx context.Context) (int, error) {
	page, err := f.poller.PollMessages(ctx, f.roomID, PollOptions{AfterSeq: f.cursor, Limit: f.limit})
	if err != nil {
		return 0, err
	}
	for _, message := range page.Messages {
		if _, err := fmt.Fprintf(f.output, "[%d] %s: %s\n", message.Seq, shortUserID(message.UserID), message.Body); err != nil {
			return 0, err
		}
	}
	if page.NextAfterSeq > f.cursor {
		f.cursor = page.NextAfterSeq
	}
	return len(page.Messages), nil
}

// Run polls until ctx is cancelled. Poll errors are logged and the loop continues.
func (f *Follower) Run(ctx context.Context) error {
	for {
		if _, err := f.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			f.logger.Warn("poll error",
				zap.String("room_id", f.roomID),
				zap.Int64("after_seq", f.cursor),
				zap.Error(err))
		}

		timer := time.NewTimer(f.nextDelay())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (f *Follower) nextDelay() time.Duration {
	delay := f.interval
	if f.jitter > 0 {
		delay += time.Duration(f.random() * float64(f.jitter))
	}
	return delay
}

func shortUserID(userID string) string {
	runes := []rune(userID)
	if len(runes) <= userIDPrefixLength {
		return userID
	}
	return string(runes[:userIDPrefixLength])
}
