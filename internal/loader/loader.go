// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/staranto/catinfo/internal/apperr"
	"github.com/staranto/catinfo/internal/cache"
	"github.com/staranto/catinfo/internal/catapi"
)

// DefaultWarmConcurrency bounds parallel downloads in Warm.
const DefaultWarmConcurrency = 4

// Catalog is what the loader needs from the network.
type Catalog interface {
	ImageInfo(ctx context.Context, id string) (*catapi.Image, error)
	ImageBytes(ctx context.Context, url string) ([]byte, error)
}

// Images is the cache the loader reads through and writes back to.
type Images interface {
	Lookup(ctx context.Context, key string) (*cache.Picture, cache.Tier)
	PutImage(key string, pic *cache.Picture)
	MakeKey(urlOrID string) string
}

// Source says how a Result was produced.
type Source int

const (
	// FromIDKey is a hit under the image id.
	FromIDKey Source = iota
	// FromURLKey is a hit under the key derived from the image URL.
	FromURLKey
	// FromNetwork means the bytes were downloaded.
	FromNetwork
)

func (s Source) String() string {
	switch s {
	case FromIDKey:
		return "id key"
	case FromURLKey:
		return "url key"
	default:
		return "network"
	}
}

// Result is a loaded picture and where it came from.
type Result struct {
	Picture *cache.Picture
	// Key is the cache key that served or stored the picture.
	Key    string
	Tier   cache.Tier
	Source Source
	// Info is set when metadata was fetched.
	Info *catapi.Image
}

// Loader resolves images through the cache, falling back to the catalog.
type Loader struct {
	images      Images
	catalog     Catalog
	group       singleflight.Group
	concurrency int
}

// Option customizes a Loader.
type Option func(*Loader)

// WithWarmConcurrency bounds parallel downloads in Warm.
func WithWarmConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// New returns a Loader over images and catalog.
func New(images Images, catalog Catalog, opts ...Option) *Loader {
	l := &Loader{
		images:      images,
		catalog:     catalog,
		concurrency: DefaultWarmConcurrency,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the image with the given catalog id. It tries the cache under
// id, then fetches metadata and tries the cache under the URL-derived key,
// and only then downloads the bytes, storing them under both keys. A hit
// under the URL key is not copied to the id key. Catalog failures are
// returned as-is. Concurrent calls for the same id share one execution.
func (l *Loader) Load(ctx context.Context, id string) (*Result, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.InvalidInput("load image", catapi.ErrEmptyInput)
	}
	return l.share(ctx, "id:"+id, func(ctx context.Context) (*Result, error) {
		return l.load(ctx, id)
	})
}

// share runs fn once per key for all concurrent callers. fn gets a context
// that keeps the first caller's values but not its cancellation, so one
// caller giving up does not fail the others; each caller still returns as
// soon as its own ctx is done.
func (l *Loader) share(ctx context.Context, key string, fn func(context.Context) (*Result, error)) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	detached := context.WithoutCancel(ctx)
	ch := l.group.DoChan(key, func() (any, error) {
		return fn(detached)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Shared {
			log.Debugf("shared in-flight load for %s", key)
		}
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Result), nil
	}
}

func (l *Loader) load(ctx context.Context, id string) (*Result, error) {
	if pic, tier := l.images.Lookup(ctx, id); tier != cache.TierNone {
		log.Debugf("image %s served from %s", id, tier)
		return &Result{Picture: pic, Key: id, Tier: tier, Source: FromIDKey}, nil
	}

	info, err := l.catalog.ImageInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	if info.URL == "" {
		return nil, apperr.InvalidInput("load image", catapi.ErrNoURL)
	}

	urlKey := l.images.MakeKey(info.URL)
	if pic, tier := l.images.Lookup(ctx, urlKey); tier != cache.TierNone {
		log.Debugf("image %s served from %s under %s", id, tier, urlKey)
		return &Result{Picture: pic, Key: urlKey, Tier: tier, Source: FromURLKey, Info: info}, nil
	}

	pic, err := l.download(ctx, info.URL)
	if err != nil {
		return nil, err
	}
	l.images.PutImage(id, pic)
	l.images.PutImage(urlKey, pic)

	return &Result{Picture: pic, Key: id, Tier: cache.TierNone, Source: FromNetwork, Info: info}, nil
}

// LoadURL returns the image at url, checking only the URL-derived key and
// storing downloads under it.
func (l *Loader) LoadURL(ctx context.Context, url string) (*Result, error) {
	if strings.TrimSpace(url) == "" {
		return nil, apperr.InvalidInput("load image", catapi.ErrNoURL)
	}
	return l.share(ctx, "url:"+url, func(ctx context.Context) (*Result, error) {
		key := l.images.MakeKey(url)
		if pic, tier := l.images.Lookup(ctx, key); tier != cache.TierNone {
			return &Result{Picture: pic, Key: key, Tier: tier, Source: FromURLKey}, nil
		}
		pic, err := l.download(ctx, url)
		if err != nil {
			return nil, err
		}
		l.images.PutImage(key, pic)
		return &Result{Picture: pic, Key: key, Tier: cache.TierNone, Source: FromNetwork}, nil
	})
}

func (l *Loader) download(ctx context.Context, url string) (*cache.Picture, error) {
	raw, err := l.catalog.ImageBytes(ctx, url)
	if err != nil {
		return nil, err
	}
	pic, err := cache.Decode(raw)
	if err != nil {
		return nil, err
	}
	log.Debugf("downloaded %s (%d bytes, %s)", url, len(raw), pic.Format)
	return pic, nil
}

// WarmReport counts the outcome of a Warm call.
type WarmReport struct {
	Downloaded int
	Cached     int
	Failed     int
	Skipped    int
}

// Warm loads every image in images into the cache, a few at a time. Images
// without a URL are skipped. Individual failures are counted and logged;
// only cancellation of ctx is returned.
func (l *Loader) Warm(ctx context.Context, images []*catapi.Image) (WarmReport, error) {
	var downloaded, cached, failed, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for _, img := range images {
		if img == nil || img.URL == "" {
			skipped.Add(1)
			continue
		}
		img := img
		g.Go(func() error {
			res, err := l.LoadURL(gctx, img.URL)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				log.WithError(err).WithField("image", img.ID).Warn("failed to warm image")
				return nil
			}
			if res.Source == FromNetwork {
				downloaded.Add(1)
			} else {
				cached.Add(1)
			}
			return nil
		})
	}

	err := g.Wait()
	return WarmReport{
		Downloaded: int(downloaded.Load()),
		Cached:     int(cached.Load()),
		Failed:     int(failed.Load()),
		Skipped:    int(skipped.Load()),
	}, err
}
