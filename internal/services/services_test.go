// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/catinfo/internal/cache"
	"github.com/staranto/catinfo/internal/cacheutil"
	"github.com/staranto/catinfo/internal/config"
	"github.com/staranto/catinfo/internal/loader"
)

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// catalog serves one image record and its bytes, counting downloads.
func catalog(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	raw := tinyPNG(t)
	var downloads atomic.Int32

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/images/0XYvRd7oD", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"id":"0XYvRd7oD","url":"%s/files/0XYvRd7oD.png","width":2,"height":2}`, srv.URL)
	})
	mux.HandleFunc("/files/0XYvRd7oD.png", func(w http.ResponseWriter, _ *http.Request) {
		downloads.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(raw)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &downloads
}

func testSettings(url, dir string) Settings {
	return Settings{
		APIURL:        url,
		Retries:       0,
		Timeout:       5 * time.Second,
		CacheDir:      dir,
		MemoryEntries: cache.DefaultMaxEntries,
		MemoryBytes:   cache.DefaultMaxCost,
		SweepInterval: cache.DefaultSweepInterval,
		MaxAge:        cache.DefaultMaxAge,
	}
}

func TestBuild_DiskTierSurvivesRestart(t *testing.T) {
	srv, downloads := catalog(t)
	dir := t.TempDir()
	ctx := context.Background()

	g, err := Build(ctx, testSettings(srv.URL, dir))
	require.NoError(t, err)
	assert.True(t, g.Cache.HasDisk())
	assert.FileExists(t, filepath.Join(dir, cacheutil.DBName))

	res, err := g.Loader.Load(ctx, "0XYvRd7oD")
	require.NoError(t, err)
	assert.Equal(t, loader.FromNetwork, res.Source)
	require.NoError(t, g.Close())

	// A fresh graph over the same directory is served from disk.
	g, err = Build(ctx, testSettings(srv.URL, dir))
	require.NoError(t, err)
	defer g.Close()

	res, err = g.Loader.Load(ctx, "0XYvRd7oD")
	require.NoError(t, err)
	assert.Equal(t, loader.FromIDKey, res.Source)
	assert.Equal(t, cache.TierDisk, res.Tier)
	assert.Equal(t, int32(1), downloads.Load())
}

func TestBuild_NoCache(t *testing.T) {
	srv, _ := catalog(t)
	s := testSettings(srv.URL, t.TempDir())
	s.NoCache = true

	g, err := Build(context.Background(), s)
	require.NoError(t, err)
	defer g.Close()

	assert.False(t, g.Cache.HasDisk())
	assert.NoFileExists(t, filepath.Join(s.CacheDir, cacheutil.DBName))
}

func TestBuild_UnusableCacheDirFallsBackToMemory(t *testing.T) {
	srv, _ := catalog(t)
	// A file where the directory should be.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, writeFile(blocker))

	g, err := Build(context.Background(), testSettings(srv.URL, filepath.Join(blocker, "cache")))
	require.NoError(t, err)
	defer g.Close()

	assert.False(t, g.Cache.HasDisk())
	_, err = g.Loader.Load(context.Background(), "0XYvRd7oD")
	assert.NoError(t, err)
}

func TestClose_Nil(t *testing.T) {
	var g *Graph
	assert.NoError(t, g.Close())
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "catinfo.yaml")
	require.NoError(t, writeFileContent(cfg, `
api:
  url: http://localhost:8080/v1
  key: live_abc
  rps: 2
  timeout: 10s
cache:
  enabled: false
  memory:
    entries: 25
  sweep:
    max_age: 168h
images:
  mirror:
    region: us-west-2
`))
	t.Setenv("CATINFO_CFG", cfg)
	_, err := config.Load()
	require.NoError(t, err)
	t.Cleanup(func() { config.Config = config.Type{} })

	s := SettingsFromConfig()
	assert.Equal(t, "http://localhost:8080/v1", s.APIURL)
	assert.Equal(t, "live_abc", s.APIKey)
	assert.Equal(t, 2.0, s.RPS)
	assert.Equal(t, 3, s.Retries)
	assert.Equal(t, 10*time.Second, s.Timeout)
	assert.True(t, s.NoCache)
	assert.Equal(t, 25, s.MemoryEntries)
	assert.Equal(t, cache.DefaultMaxCost, s.MemoryBytes)
	assert.Equal(t, cache.DefaultSweepInterval, s.SweepInterval)
	assert.Equal(t, 7*24*time.Hour, s.MaxAge)
	assert.Equal(t, "us-west-2", s.MirrorRegion)
	assert.Equal(t, loader.DefaultWarmConcurrency, s.WarmConcurrency)
}

func writeFile(path string) error {
	return writeFileContent(path, "x")
}

func writeFileContent(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
