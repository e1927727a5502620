// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/catinfo/internal/config"
)

func noConfig(t *testing.T) {
	t.Helper()
	t.Setenv("CATINFO_CFG", filepath.Join(t.TempDir(), "absent.yaml"))
	config.Config = config.Type{}
}

func TestDir_EnvWins(t *testing.T) {
	noConfig(t)
	t.Setenv("CATINFO_CACHE_DIR", "/tmp/somewhere")

	dir, ok := Dir()
	assert.True(t, ok)
	assert.Equal(t, "/tmp/somewhere", dir)
}

func TestDir_ConfigFile(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "catinfo.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("cache:\n  dir: /var/cache/cats\n"), 0o600))
	t.Setenv("CATINFO_CFG", cfg)
	t.Setenv("CATINFO_CACHE_DIR", "")
	config.Config = config.Type{}

	dir, ok := Dir()
	assert.True(t, ok)
	assert.Equal(t, "/var/cache/cats", dir)
}

func TestEnabled(t *testing.T) {
	noConfig(t)

	tests := []struct {
		env  string
		want bool
	}{
		{env: "", want: true},
		{env: "1", want: true},
		{env: "true", want: true},
		{env: "0", want: false},
		{env: "false", want: false},
	}

	for _, tt := range tests {
		t.Run("env="+tt.env, func(t *testing.T) {
			t.Setenv("CATINFO_CACHE", tt.env)
			assert.Equal(t, tt.want, Enabled())
		})
	}
}

func TestDBPath(t *testing.T) {
	noConfig(t)
	base := filepath.Join(t.TempDir(), "nested", "cache")
	t.Setenv("CATINFO_CACHE_DIR", base)
	t.Setenv("CATINFO_CACHE", "")

	p, ok, err := DBPath()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(base, DBName), p)
	assert.DirExists(t, base)
}

func TestDBPath_Disabled(t *testing.T) {
	noConfig(t)
	t.Setenv("CATINFO_CACHE", "0")

	p, ok, err := DBPath()
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, p)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "cats"), expandHome("~/cats"))
	assert.Equal(t, "/abs", expandHome("/abs"))
	assert.Equal(t, "~", expandHome("~"))
}
