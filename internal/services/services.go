// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"

	"github.com/staranto/catinfo/internal/aws"
	"github.com/staranto/catinfo/internal/cache"
	"github.com/staranto/catinfo/internal/cacheutil"
	"github.com/staranto/catinfo/internal/catapi"
	"github.com/staranto/catinfo/internal/config"
	"github.com/staranto/catinfo/internal/loader"
)

// Settings carries everything needed to build a Graph. SettingsFromConfig
// fills it from the config file; commands then apply their flags.
type Settings struct {
	APIURL  string
	APIKey  string
	RPS     float64
	Retries int
	Timeout time.Duration

	CacheDir      string
	NoCache       bool
	MemoryEntries int
	MemoryBytes   int64
	SweepInterval time.Duration
	MaxAge        time.Duration

	MirrorRegion   string
	MirrorProfile  string
	MirrorEndpoint string

	WarmConcurrency int
}

// SettingsFromConfig reads api.*, cache.* and images.mirror.* keys, falling
// back to the package defaults for anything unset.
func SettingsFromConfig() Settings {
	s := Settings{}
	s.APIURL, _ = config.GetString("api.url", catapi.DefaultBaseURL)
	s.APIKey, _ = config.GetString("api.key", "")
	rps, _ := config.GetInt("api.rps", 10)
	s.RPS = float64(rps)
	s.Retries, _ = config.GetInt("api.retries", 3)
	s.Timeout, _ = config.GetDuration("api.timeout", 30*time.Second)

	s.CacheDir, _ = config.GetString("cache.dir", "")
	enabled, _ := config.GetBool("cache.enabled", true)
	s.NoCache = !enabled
	s.MemoryEntries, _ = config.GetInt("cache.memory.entries", cache.DefaultMaxEntries)
	bytes, _ := config.GetInt("cache.memory.bytes", int(cache.DefaultMaxCost))
	s.MemoryBytes = int64(bytes)
	s.SweepInterval, _ = config.GetDuration("cache.sweep.interval", cache.DefaultSweepInterval)
	s.MaxAge, _ = config.GetDuration("cache.sweep.max_age", cache.DefaultMaxAge)

	s.MirrorRegion, _ = config.GetString("images.mirror.region", "")
	s.MirrorProfile, _ = config.GetString("images.mirror.profile", "")
	s.MirrorEndpoint, _ = config.GetString("images.mirror.endpoint", "")

	s.WarmConcurrency, _ = config.GetInt("cache.warm.concurrency", loader.DefaultWarmConcurrency)
	return s
}

// Graph is the set of collaborators shared by a command run.
type Graph struct {
	Catalog *catapi.Client
	Cache   *cache.Coordinator
	Loader  *loader.Loader
}

// NewCatalog builds the catalog client alone, for commands that never touch
// images. A mirror that cannot be configured is an error.
func NewCatalog(ctx context.Context, s Settings) (*catapi.Client, error) {
	burst := int(s.RPS)
	if burst < 1 {
		burst = 1
	}
	opts := []catapi.Option{
		catapi.WithBaseURL(s.APIURL),
		catapi.WithAPIKey(s.APIKey),
		catapi.WithRetries(s.Retries),
		catapi.WithTimeout(s.Timeout),
		catapi.WithRateLimit(s.RPS, burst),
	}

	if s.MirrorRegion != "" || s.MirrorEndpoint != "" {
		var awsOpts []aws.Option
		if s.MirrorRegion != "" {
			awsOpts = append(awsOpts, aws.WithRegion(s.MirrorRegion))
		}
		if s.MirrorProfile != "" {
			awsOpts = append(awsOpts, aws.WithProfile(s.MirrorProfile))
		}
		if s.MirrorEndpoint != "" {
			awsOpts = append(awsOpts, aws.WithEndpoint(s.MirrorEndpoint))
		}
		mirror, err := aws.NewMirror(ctx, awsOpts...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, catapi.WithS3(mirror))
	}

	return catapi.New(opts...), nil
}

// Build wires a Graph. A disk tier that cannot be opened is logged and the
// graph runs memory-only.
func Build(ctx context.Context, s Settings) (*Graph, error) {
	client, err := NewCatalog(ctx, s)
	if err != nil {
		return nil, err
	}

	store := openStore(s)
	coord := cache.NewCoordinator(store,
		cache.WithMemoryLimits(s.MemoryEntries, s.MemoryBytes),
		cache.WithExpiry(s.SweepInterval, s.MaxAge))
	coord.Start()

	var loaderOpts []loader.Option
	if s.WarmConcurrency > 0 {
		loaderOpts = append(loaderOpts, loader.WithWarmConcurrency(s.WarmConcurrency))
	}

	return &Graph{
		Catalog: client,
		Cache:   coord,
		Loader:  loader.New(coord, client, loaderOpts...),
	}, nil
}

// Close flushes and closes the disk tier.
func (g *Graph) Close() error {
	if g == nil || g.Cache == nil {
		return nil
	}
	return g.Cache.Close()
}

func openStore(s Settings) *cache.Store {
	if s.NoCache {
		log.Debug("disk cache disabled")
		return nil
	}

	path, err := dbPath(s.CacheDir)
	if err != nil {
		log.WithError(err).Warn("disk cache unavailable, using memory only")
		return nil
	}
	if path == "" {
		return nil
	}

	store, err := cache.OpenStore(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Warn("disk cache unavailable, using memory only")
		return nil
	}
	log.Debugf("disk cache: %s", path)
	return store
}

// dbPath prefers an explicit directory (flag or config) over cacheutil's
// resolution chain.
func dbPath(dir string) (string, error) {
	if dir == "" {
		p, ok, err := cacheutil.DBPath()
		if !ok {
			return "", err
		}
		return p, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	return filepath.Join(dir, cacheutil.DBName), nil
}
