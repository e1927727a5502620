// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"
)

// Tier names where a lookup was served from.
type Tier int

const (
	TierNone Tier = iota
	TierMemory
	TierDisk
)

func (t Tier) String() string {
	switch t {
	case TierMemory:
		return "memory"
	case TierDisk:
		return "disk"
	default:
		return "none"
	}
}

// Stats combines both tiers.
type Stats struct {
	MemoryEntries    int
	MemoryCost       int64
	MemoryMaxEntries int
	MemoryMaxCost    int64
	Disk             StoreStats
	DiskOK           bool
}

// Coordinator fronts the memory and disk tiers. It never touches the network.
// With no store it behaves as if the disk tier were always empty.
type Coordinator struct {
	mem     *Memory[*Picture]
	store   *Store
	sweeper *Sweeper

	// genMu guards gen, which Clear bumps. A disk hit is promoted only if no
	// Clear happened while its read was queued.
	genMu sync.Mutex
	gen   uint64
}

type coordinatorOptions struct {
	maxEntries    int
	maxCost       int64
	sweepInterval time.Duration
	maxAge        time.Duration
}

// Option customizes a Coordinator.
type Option func(*coordinatorOptions)

// WithMemoryLimits sets the memory tier bounds.
func WithMemoryLimits(entries int, cost int64) Option {
	return func(o *coordinatorOptions) {
		o.maxEntries = entries
		o.maxCost = cost
	}
}

// WithExpiry sets the sweep interval and max unaccessed age of disk rows.
func WithExpiry(interval, maxAge time.Duration) Option {
	return func(o *coordinatorOptions) {
		o.sweepInterval = interval
		o.maxAge = maxAge
	}
}

// NewCoordinator builds a Coordinator over store, which may be nil. The
// sweeper is not running until Start.
func NewCoordinator(store *Store, opts ...Option) *Coordinator {
	o := coordinatorOptions{
		maxEntries:    DefaultMaxEntries,
		maxCost:       DefaultMaxCost,
		sweepInterval: DefaultSweepInterval,
		maxAge:        DefaultMaxAge,
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Coordinator{
		mem:   NewMemory[*Picture](o.maxEntries, o.maxCost),
		store: store,
	}
	if store != nil {
		c.sweeper = NewSweeper(store, WithInterval(o.sweepInterval), WithMaxAge(o.maxAge))
	}
	return c
}

// Start begins periodic expiry of disk rows. Safe to call more than once.
func (c *Coordinator) Start() {
	if c.sweeper != nil {
		c.sweeper.Start()
	}
}

// GetImage returns the picture cached under key from memory or disk.
func (c *Coordinator) GetImage(ctx context.Context, key string) (*Picture, bool) {
	pic, tier := c.Lookup(ctx, key)
	return pic, tier != TierNone
}

// Lookup is GetImage that also reports which tier served the hit. A memory
// hit refreshes the disk row's access time in the background. A disk hit is
// decoded and promoted into memory. Rows that fail to decode are removed.
func (c *Coordinator) Lookup(ctx context.Context, key string) (*Picture, Tier) {
	if key == "" {
		return nil, TierNone
	}

	if pic, ok := c.mem.Get(key); ok {
		if c.store != nil {
			c.store.Touch(key)
		}
		return pic, TierMemory
	}

	if c.store == nil {
		return nil, TierNone
	}

	gen := c.generation()
	raw, ok := c.store.Read(ctx, key)
	if !ok {
		return nil, TierNone
	}

	pic, err := Decode(raw)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("dropping undecodable image cache entry")
		c.store.Delete(key)
		return nil, TierNone
	}

	c.promote(gen, key, pic)
	return pic, TierDisk
}

func (c *Coordinator) generation() uint64 {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	return c.gen
}

func (c *Coordinator) promote(gen uint64, key string, pic *Picture) {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	if gen != c.gen {
		log.WithField("key", key).Debug("not promoting disk hit read before a clear")
		return
	}
	c.mem.Put(key, pic, pic.Cost())
}

// PutImage stores pic under key in memory now and schedules the disk write.
func (c *Coordinator) PutImage(key string, pic *Picture) {
	if key == "" || pic == nil {
		return
	}
	if !c.mem.Put(key, pic, pic.Cost()) {
		log.WithField("key", key).Debugf("image too large for memory tier (%d bytes)", pic.Cost())
	}
	if c.store != nil && len(pic.Raw) > 0 {
		c.store.Write(key, pic.Raw)
	}
}

// Clear empties memory now and schedules removal of every disk row. Disk
// reads already queued still return their bytes but no longer refill memory.
func (c *Coordinator) Clear() {
	c.genMu.Lock()
	c.gen++
	c.mem.Clear()
	c.genMu.Unlock()
	if c.store != nil {
		c.store.DeleteAll()
	}
}

// MakeKey maps a URL or opaque id to a cache key.
func (c *Coordinator) MakeKey(urlOrID string) string {
	return MakeKey(urlOrID)
}

// Sweep expires old disk rows now. ran is false when there is no disk tier or
// a sweep is already running.
func (c *Coordinator) Sweep(ctx context.Context) (removed int64, ran bool) {
	if c.sweeper == nil {
		return 0, false
	}
	return c.sweeper.SweepNow(ctx)
}

// Stats reports the size of both tiers.
func (c *Coordinator) Stats(ctx context.Context) Stats {
	maxEntries, maxCost := c.mem.Limits()
	st := Stats{
		MemoryEntries:    c.mem.Len(),
		MemoryCost:       c.mem.Cost(),
		MemoryMaxEntries: maxEntries,
		MemoryMaxCost:    maxCost,
	}
	if c.store != nil {
		st.Disk, st.DiskOK = c.store.Stats(ctx)
	}
	return st
}

// Entries lists the disk rows, most recently accessed first.
func (c *Coordinator) Entries(ctx context.Context) []Entry {
	if c.store == nil {
		return nil
	}
	return c.store.Entries(ctx)
}

// HasDisk reports whether a disk tier is attached.
func (c *Coordinator) HasDisk() bool {
	return c.store != nil
}

// Sync waits for all scheduled disk work.
func (c *Coordinator) Sync(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Sync(ctx)
}

// Close stops the sweeper and closes the disk tier after flushing it.
func (c *Coordinator) Close() error {
	if c.sweeper != nil {
		c.sweeper.Stop()
	}
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}
