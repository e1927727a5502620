// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package cache is the two-tier image cache. A bounded in-memory LRU holds
// decoded pictures; a SQLite table holds the encoded bytes across runs. All
// disk work runs on one goroutine per store in submission order, and disk
// failures are logged and read as misses. A Sweeper removes rows that have
// not been read or written for the configured max age.
package cache
