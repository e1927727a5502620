// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apex/log"
)

const (
	// DefaultSweepInterval is how often expired rows are removed.
	DefaultSweepInterval = 24 * time.Hour
	// DefaultMaxAge is how long a row may go unread before it expires.
	DefaultMaxAge = 30 * 24 * time.Hour
)

// Expirer is the part of the disk tier a Sweeper drives.
type Expirer interface {
	DeleteOlderThan(ctx context.Context, threshold time.Time) int64
	LastSweep(ctx context.Context) (time.Time, bool)
}

// Sweeper periodically deletes rows older than MaxAge. At most one sweep
// runs at a time; a tick that lands while one is in flight is dropped.
type Sweeper struct {
	store    Expirer
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time

	sweeping atomic.Bool

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// SweeperOption customizes a Sweeper.
type SweeperOption func(*Sweeper)

// WithInterval sets the time between sweeps.
func WithInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithMaxAge sets how long a row may go unaccessed.
func WithMaxAge(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithSweepClock sets the time source used to compute the threshold.
func WithSweepClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) { s.now = now }
}

// NewSweeper returns a stopped Sweeper for store.
func NewSweeper(store Expirer, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		store:    store,
		interval: DefaultSweepInterval,
		maxAge:   DefaultMaxAge,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins periodic sweeping. If the last recorded sweep is older than
// one interval, or there is none, a sweep runs right away. Calling Start on a
// running Sweeper does nothing.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop ends periodic sweeping and waits for an in-flight sweep.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
}

// SweepNow runs one sweep. It reports false, without sweeping, when another
// sweep is already in flight.
func (s *Sweeper) SweepNow(ctx context.Context) (int64, bool) {
	if !s.sweeping.CompareAndSwap(false, true) {
		log.Debug("image cache sweep already running, skipping")
		return 0, false
	}
	defer s.sweeping.Store(false)

	threshold := s.now().Add(-s.maxAge)
	n := s.store.DeleteOlderThan(ctx, threshold)
	log.WithField("removed", n).Debugf("swept image cache entries not accessed since %s",
		threshold.Format(time.RFC3339))
	return n, true
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	if last, ok := s.store.LastSweep(ctx); !ok || s.now().Sub(last) >= s.interval {
		s.SweepNow(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepNow(ctx)
		}
	}
}
