// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/staranto/catinfo/internal/config"
)

// DBName is the image cache database file inside the cache directory.
const DBName = "images.db"

// Dir resolves the base cache directory.
// Precedence:
//  1. CATINFO_CACHE_DIR, if set and non-empty
//  2. cache.dir from the config file
//  3. os.UserCacheDir()/catinfo
//
// Returns ("", false) if a base cannot be resolved (treat as disabled).
func Dir() (string, bool) {
	if c, ok := os.LookupEnv("CATINFO_CACHE_DIR"); ok && c != "" {
		return c, true
	}
	if c, _ := config.GetString("cache.dir", ""); c != "" {
		return expandHome(c), true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "catinfo"), true
	}
	return "", false
}

// Enabled returns true unless CATINFO_CACHE explicitly disables it
// ("0"/"false") or cache.enabled is false in the config file.
func Enabled() bool {
	if enabled, ok := os.LookupEnv("CATINFO_CACHE"); ok && enabled != "" {
		return enabled != "0" && enabled != "false"
	}
	on, _ := config.GetBool("cache.enabled", true)
	return on
}

// EnsureBaseDir creates the base cache directory if caching is enabled and
// a base path can be resolved. Returns the path, whether it is usable, and an
// error if creation failed.
func EnsureBaseDir() (string, bool, error) {
	if !Enabled() {
		return "", false, nil
	}
	base, ok := Dir()
	if !ok {
		return "", false, nil
	}
	if err := os.MkdirAll(base, 0o755); err != nil { //nolint:mnd
		return base, false, fmt.Errorf("failed to create cache base directory: %w", err)
	}
	return base, true, nil
}

// DBPath returns the image cache database path, creating its directory. ok is
// false when caching is disabled or no directory is usable.
func DBPath() (string, bool, error) {
	base, ok, err := EnsureBaseDir()
	if !ok {
		return "", false, err
	}
	return filepath.Join(base, DBName), true, nil
}

func expandHome(p string) string {
	if len(p) < 2 || p[:2] != "~/" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
