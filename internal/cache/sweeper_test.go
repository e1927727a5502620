// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingExpirer records sweeps and can block inside one.
type countingExpirer struct {
	calls     atomic.Int32
	lastSweep time.Time
	hasSweep  bool
	block     chan struct{}
	entered   chan struct{}

	mu         sync.Mutex
	thresholds []time.Time
}

func (c *countingExpirer) DeleteOlderThan(_ context.Context, threshold time.Time) int64 {
	c.calls.Add(1)
	c.mu.Lock()
	c.thresholds = append(c.thresholds, threshold)
	c.mu.Unlock()
	if c.entered != nil {
		select {
		case c.entered <- struct{}{}:
		default:
		}
	}
	if c.block != nil {
		<-c.block
	}
	return 3
}

func (c *countingExpirer) LastSweep(context.Context) (time.Time, bool) {
	return c.lastSweep, c.hasSweep
}

func TestSweeper_SweepNowUsesMaxAge(t *testing.T) {
	clock := newFakeClock()
	exp := &countingExpirer{}
	s := NewSweeper(exp, WithSweepClock(clock.Now))

	n, ran := s.SweepNow(context.Background())
	assert.True(t, ran)
	assert.Equal(t, int64(3), n)

	exp.mu.Lock()
	defer exp.mu.Unlock()
	require.Len(t, exp.thresholds, 1)
	assert.Equal(t, clock.Now().Add(-30*24*time.Hour), exp.thresholds[0])
}

func TestSweeper_StartSweepsWhenOverdue(t *testing.T) {
	exp := &countingExpirer{}
	s := NewSweeper(exp, WithInterval(time.Hour))
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return exp.calls.Load() == 1 },
		2*time.Second, 5*time.Millisecond)
}

func TestSweeper_StartSkipsWhenRecentlySwept(t *testing.T) {
	exp := &countingExpirer{lastSweep: time.Now().Add(-time.Minute), hasSweep: true}
	s := NewSweeper(exp, WithInterval(time.Hour))
	s.Start()
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(0), exp.calls.Load())
}

func TestSweeper_Ticks(t *testing.T) {
	exp := &countingExpirer{lastSweep: time.Now(), hasSweep: true}
	s := NewSweeper(exp, WithInterval(10*time.Millisecond))
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return exp.calls.Load() >= 3 },
		2*time.Second, 5*time.Millisecond)
}

func TestSweeper_StartIsIdempotent(t *testing.T) {
	exp := &countingExpirer{}
	s := NewSweeper(exp, WithInterval(time.Hour))
	s.Start()
	s.Start()
	s.Start()

	assert.Eventually(t, func() bool { return exp.calls.Load() >= 1 },
		2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	s.Stop()
	s.Stop()

	assert.Equal(t, int32(1), exp.calls.Load(), "one loop, one startup sweep")
}

func TestSweeper_OverlappingSweepIsSkipped(t *testing.T) {
	exp := &countingExpirer{
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	s := NewSweeper(exp)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.SweepNow(context.Background())
	}()
	<-exp.entered

	n, ran := s.SweepNow(context.Background())
	assert.False(t, ran)
	assert.Zero(t, n)

	close(exp.block)
	<-done
	assert.Equal(t, int32(1), exp.calls.Load())

	_, ran = s.SweepNow(context.Background())
	assert.True(t, ran, "flag is released after a sweep")
}

func TestSweeper_AgainstStore(t *testing.T) {
	clock := newFakeClock()
	st := openTestStore(t, WithClock(clock.Now))
	ctx := context.Background()

	st.Write("stale", []byte("s"))
	clock.Advance(31 * 24 * time.Hour)
	st.Write("fresh", []byte("f"))

	s := NewSweeper(st, WithSweepClock(clock.Now))
	n, ran := s.SweepNow(ctx)
	require.True(t, ran)
	assert.Equal(t, int64(1), n)

	_, ok := st.Read(ctx, "stale")
	assert.False(t, ok)
	_, ok = st.Read(ctx, "fresh")
	assert.True(t, ok)
}
