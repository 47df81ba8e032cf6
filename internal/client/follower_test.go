package client

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type scriptedPoller struct {
	mu      sync.Mutex
	pages   []Page
	errs    []error
	cursors []int64
}

func (p *scriptedPoller) PollMessages(_ context.Context, _ string, options PollOptions) (Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursors = append(p.cursors, options.AfterSeq)
	index := len(p.cursors) - 1
	if index < len(p.errs) && p.errs[index] != nil {
		return Page{}, p.errs[index]
	}
	if index < len(p.pages) {
		return p.pages[index], nil
	}
	return Page{NextAfterSeq: options.AfterSeq}, nil
}

func (p *scriptedPoller) calls() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.cursors...)
}

func TestNewFollowerValidatesConfig(t *testing.T) {
	output := &bytes.Buffer{}
	poller := &scriptedPoller{}

	tests := []struct {
		name string
		cfg  FollowerConfig
	}{
		{name: "missing-poller", cfg: FollowerConfig{RoomID: "room", Output: output}},
		{name: "missing-room", cfg: FollowerConfig{Poller: poller, Output: output}},
		{name: "missing-output", cfg: FollowerConfig{Poller: poller, RoomID: "room"}},
		{name: "negative-cursor", cfg: FollowerConfig{Poller: poller, RoomID: "room", Output: output, AfterSeq: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFollower(tt.cfg); err == nil {
				t.Fatalf("expected config to be rejected")
			}
		})
	}
}

func TestFollowerPrintsAndAdvancesCursor(t *testing.T) {
	poller := &scriptedPoller{
		pages: []Page{
			{
				Messages: []Message{
					{Seq: 1, UserID: "0b7e4a52-5d7e-4c55-9a8e-0c6f3f2b9d11", Body: "hello"},
					{Seq: 2, UserID: "short", Body: "world"},
				},
				NextAfterSeq: 2,
			},
			{NextAfterSeq: 2},
		},
	}
	output := &bytes.Buffer{}
	follower, err := NewFollower(FollowerConfig{Poller: poller, RoomID: "room", Output: output})
	if err != nil {
		t.Fatalf("failed to build follower: %v", err)
	}

	printed, err := follower.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if printed != 2 || follower.Cursor() != 2 {
		t.Fatalf("expected two messages and cursor 2, got %d and %d", printed, follower.Cursor())
	}
	expected := "[1] 0b7e4a52: hello\n[2] short: world\n"
	if output.String() != expected {
		t.Fatalf("unexpected output %q", output.String())
	}

	printed, err = follower.PollOnce(context.Background())
	if err != nil || printed != 0 || follower.Cursor() != 2 {
		t.Fatalf("expected empty poll to keep cursor, got %d %d %v", printed, follower.Cursor(), err)
	}

	if calls := poller.calls(); len(calls) != 2 || calls[0] != 0 || calls[1] != 2 {
		t.Fatalf("unexpected cursors sent %v", calls)
	}
}

func TestFollowerRunContinuesAfterErrors(t *testing.T) {
	poller := &scriptedPoller{
		errs: []error{errors.New("connection refused")},
		pages: []Page{
			{},
			{Messages: []Message{{Seq: 5, UserID: "abcdefgh-1234", Body: "late"}}, NextAfterSeq: 5},
		},
	}
	output := &bytes.Buffer{}
	follower, err := NewFollower(FollowerConfig{
		Poller:   poller,
		RoomID:   "room",
		AfterSeq: 4,
		Output:   output,
		Interval: time.Millisecond,
		Jitter:   time.Millisecond,
		Random:   func() float64 { return 0.5 },
	})
	if err != nil {
		t.Fatalf("failed to build follower: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- follower.Run(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(poller.calls()) < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("follower did not keep polling after an error")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("follower did not stop after cancellation")
	}

	if !strings.Contains(output.String(), "[5] abcdefgh: late\n") {
		t.Fatalf("unexpected output %q", output.String())
	}
	if follower.Cursor() != 5 {
		t.Fatalf("expected cursor 5, got %d", follower.Cursor())
	}
}

func TestFollowerDelayAddsScaledJitter(t *testing.T) {
	follower, err := NewFollower(FollowerConfig{
		Poller:   &scriptedPoller{},
		RoomID:   "room",
		Output:   &bytes.Buffer{},
		Interval: time.Second,
		Jitter:   200 * time.Millisecond,
		Random:   func() float64 { return 0.25 },
	})
	if err != nil {
		t.Fatalf("failed to build follower: %v", err)
	}
	if delay := follower.nextDelay(); delay != 1050*time.Millisecond {
		t.Fatalf("expected 1.05s delay, got %s", delay)
	}
}
